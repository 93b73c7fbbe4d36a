// Package sse streams package and build notifications to dev-server clients
// as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/componentkit/internal/models"
)

// Event types published by the broker.
const (
	EventPackagesUpdated = "packages.updated"
	EventSiteReload      = "site.reload"
	EventBuildFailed     = "build.failed"
)

// DefaultReloadThrottle bounds how often site.reload is sent.
const DefaultReloadThrottle = 2 * time.Second

// clientBuffer is the number of frames queued per client before new
// frames are dropped for it.
const clientBuffer = 64

// Event is one message to broadcast. Data is JSON encoded.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// PackagesUpdated is the payload of a packages.updated event.
type PackagesUpdated struct {
	Packages []string `json:"packages"`
}

// BuildFailed is the payload of a build.failed event.
type BuildFailed struct {
	Error string `json:"error"`
}

// Options configures a Broker.
type Options struct {
	// ReloadThrottle is the minimum gap between two site.reload events.
	ReloadThrottle time.Duration

	// Heartbeat is the interval of keep-alive comments written by ServeHTTP.
	// Zero disables them.
	Heartbeat time.Duration
}

// hub is owned by the broker loop.
type hub struct {
	clients    map[chan []byte]struct{}
	seq        uint64
	lastReload time.Time

	// failure is the framed build.failed event replayed to clients that
	// connect while the last rebuild is broken.
	failure []byte
}

func (h *hub) frame(event Event) []byte {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil
	}
	h.seq++
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", h.seq, event.Type, payload))
}

func (h *hub) send(raw []byte) {
	if raw == nil {
		return
	}
	for ch := range h.clients {
		select {
		case ch <- raw:
		default:
			// slow client
		}
	}
}

func (h *hub) reload(now time.Time, throttle time.Duration) {
	if now.Sub(h.lastReload) < throttle {
		return
	}
	h.lastReload = now
	h.send(h.frame(Event{Type: EventSiteReload, Data: struct{}{}}))
}

// Broker fans events out to subscribed clients. All state lives in one
// goroutine; public methods hand it closures and wait for them to run.
type Broker struct {
	opts Options

	ops     chan func(*hub)
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker loop. Close must be called to stop it.
func NewBroker(opts Options) *Broker {
	if opts.ReloadThrottle <= 0 {
		opts.ReloadThrottle = DefaultReloadThrottle
	}
	b := &Broker{
		opts:    opts,
		ops:     make(chan func(*hub)),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)

	h := &hub{clients: make(map[chan []byte]struct{})}
	for {
		select {
		case op := <-b.ops:
			op(h)
		case <-b.stopCh:
			for ch := range h.clients {
				close(ch)
			}
			return
		}
	}
}

// do runs op on the loop and waits for it. It reports false once the
// broker is closed. Ops must not block.
func (b *Broker) do(op func(*hub)) bool {
	if b.closed.Load() {
		return false
	}
	done := make(chan struct{})
	select {
	case b.ops <- func(h *hub) { op(h); close(done) }:
	case <-b.stopped:
		return false
	}
	<-done
	return true
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. A pending build failure is queued on the
// returned channel immediately. The channel is closed on Unsubscribe or
// Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	ok := b.do(func(h *hub) {
		h.clients[ch] = struct{}{}
		if h.failure != nil {
			ch <- h.failure
		}
	})
	if !ok {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(h *hub) {
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	n := 0
	b.do(func(h *hub) { n = len(h.clients) })
	return n
}

// Publish broadcasts an arbitrary event.
func (b *Broker) Publish(event Event) {
	b.do(func(h *hub) { h.send(h.frame(event)) })
}

// PublishChanges reports a successful rebuild. Changed packages are
// announced with packages.updated followed by a throttled site.reload.
// A rebuild that clears a broken build always triggers a reload, even when
// nothing changed.
func (b *Broker) PublishChanges(refs []models.Ref) {
	b.do(func(h *hub) {
		recovered := h.failure != nil
		h.failure = nil

		if len(refs) > 0 {
			names := make([]string, len(refs))
			for i, r := range refs {
				names[i] = r.String()
			}
			h.send(h.frame(Event{Type: EventPackagesUpdated, Data: PackagesUpdated{Packages: names}}))
		}

		now := time.Now()
		switch {
		case recovered:
			h.lastReload = time.Time{}
			h.reload(now, b.opts.ReloadThrottle)
		case len(refs) > 0:
			h.reload(now, b.opts.ReloadThrottle)
		}
	})
}

// PublishFailure reports a failed rebuild. The event is remembered until
// the next PublishChanges.
func (b *Broker) PublishFailure(err error) {
	if err == nil {
		return
	}
	b.do(func(h *hub) {
		h.failure = h.frame(Event{Type: EventBuildFailed, Data: BuildFailed{Error: err.Error()}})
		h.send(h.failure)
	})
}

// ServeHTTP streams events to one client until it disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", b.opts.ReloadThrottle.Milliseconds())
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var beat <-chan time.Time
	if b.opts.Heartbeat > 0 {
		ticker := time.NewTicker(b.opts.Heartbeat)
		defer ticker.Stop()
		beat = ticker.C
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-beat:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
