// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the package catalog for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/componentkit/internal/apperr"
	"github.com/starford/componentkit/internal/catalog"
	"github.com/starford/componentkit/internal/models"
	"github.com/starford/componentkit/internal/readme"
)

// Server wraps the MCP server with catalog tools.
type Server struct {
	mcp     *server.MCPServer
	cat     catalog.Catalog
	baseURL string
}

// New creates a new MCP server with all catalog tools registered. baseURL
// makes download links in install instructions absolute.
func New(cat catalog.Catalog, version, baseURL string) *Server {
	s := &Server{cat: cat, baseURL: baseURL}

	s.mcp = server.NewMCPServer(
		"componentkit",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_packages",
		mcp.WithDescription("Full-text search through component package names, descriptions and docs."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchPackages)

	s.mcp.AddTool(mcp.NewTool("list_packages",
		mcp.WithDescription("List all component packages, optionally only sections or partials."),
		mcp.WithString("category", mcp.Description("Optional category: section or partial")),
	), s.listPackages)

	s.mcp.AddTool(mcp.NewTool("get_package",
		mcp.WithDescription("Get metadata for one component package: version, content hash, download URL, dependencies."),
		mcp.WithString("category", mcp.Required(), mcp.Description("section or partial")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Component name")),
	), s.getPackage)

	s.mcp.AddTool(mcp.NewTool("get_install_instructions",
		mcp.WithDescription("Step-by-step install instructions for a component package. "+
			"The consumer project needs a config file first; read "+ConfigContractURI+"."),
		mcp.WithString("category", mcp.Required(), mcp.Description("section or partial")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Component name")),
	), s.getInstallInstructions)

	s.mcp.AddResource(
		mcp.NewResource(ConfigContractURI, "Consumer Config Contract",
			mcp.WithResourceDescription("The nunjucks-components.config.json file installers require."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readConfigContract,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchPackages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := 20
	if v, lErr := req.RequireInt("limit"); lErr == nil && v > 0 {
		limit = v
	}
	results, err := s.cat.Search(query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) listPackages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var category models.Category
	if raw, cErr := req.RequireString("category"); cErr == nil && raw != "" {
		c, err := models.ParseCategory(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		category = c
	}
	list, err := s.cat.List(category)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

// lookup resolves the category/name arguments. A non-nil result is an error
// to return to the caller.
func (s *Server) lookup(req mcp.CallToolRequest) (*catalog.Package, *mcp.CallToolResult) {
	rawCat, err := req.RequireString("category")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	name, err := req.RequireString("name")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	category, err := models.ParseCategory(rawCat)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	p, err := s.cat.Get(models.Ref{Category: category, Name: name})
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, mcp.NewToolResultError(fmt.Sprintf("not found: %s/%s", category.Dir(), name))
	}
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return p, nil
}

func (s *Server) getPackage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, failed := s.lookup(req)
	if failed != nil {
		return failed, nil
	}
	return jsonResult(p)
}

func (s *Server) getInstallInstructions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, failed := s.lookup(req)
	if failed != nil {
		return failed, nil
	}
	return mcp.NewToolResultText(readme.Instructions(p.Category, p.Name, p.DownloadURL, s.baseURL, p.Requires)), nil
}

func (s *Server) readConfigContract(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ConfigContractURI,
			MIMEType: "text/markdown",
			Text:     ConfigContract,
		},
	}, nil
}
