// Package checksum computes archive checksums and component content hashes.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/starford/componentkit/internal/models"
)

// ContentHashLength is the number of hex characters kept from the SHA-256 digest.
const ContentHashLength = 16

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// File returns the hex-encoded SHA-256 digest of the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum: read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ContentHash fingerprints the distributable content of a component: the
// template, then styles and scripts when present, then every module in walk
// order. Manifest, README and examples are not part of the hash.
func ContentHash(files models.Files) string {
	h := sha256.New()
	io.WriteString(h, files.Template)
	if files.Styles != "" {
		io.WriteString(h, files.Styles)
	}
	if files.Scripts != "" {
		io.WriteString(h, files.Scripts)
	}
	for _, m := range files.Modules {
		io.WriteString(h, m.Content)
	}
	return hex.EncodeToString(h.Sum(nil))[:ContentHashLength]
}
