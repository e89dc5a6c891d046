// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only Quill site tools for LLM integration via stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/siteservice"
)

// FrontMatterURI names the header schema resource.
const FrontMatterURI = "quill://front-matter"

const defaultSearchLimit = 20

// Server wraps the MCP server with Quill tools.
type Server struct {
	mcp        *server.MCPServer
	svc        *siteservice.Service
	shortcodes []string
}

// Option configures a Server.
type Option func(*Server)

// WithShortcodes lists the shortcode kinds the renderer resolves in the
// front-matter resource.
func WithShortcodes(kinds []string) Option {
	return func(s *Server) { s.shortcodes = kinds }
}

// New creates a new MCP server with all Quill tools registered.
func New(svc *siteservice.Service, version string, opts ...Option) *Server {
	s := &Server{svc: svc}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(
		"Quill",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Read one document by identifier (its content path without the .md extension; "+
			"index.md files are identified by their directory). Drafts are included."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document identifier, e.g. posts/nostr")),
		mcp.WithBoolean("html", mcp.Description("Return the rendered HTML body instead of the document JSON")),
	), s.getDocument)

	s.mcp.AddTool(mcp.NewTool("list_recent",
		mcp.WithDescription("List published documents, newest first."),
		mcp.WithNumber("page", mcp.Description("Page number, 1-based")),
		mcp.WithNumber("page_size", mcp.Description("Documents per page (max 100)")),
	), s.listRecent)

	s.mcp.AddTool(mcp.NewTool("list_by_category",
		mcp.WithDescription("List published documents in a category, newest first. Labels match exactly."),
		mcp.WithString("label", mcp.Required(), mcp.Description("Category label")),
	), s.listByCategory)

	s.mcp.AddTool(mcp.NewTool("list_by_tag",
		mcp.WithDescription("List published documents carrying a tag, newest first. Labels match exactly."),
		mcp.WithString("label", mcp.Required(), mcp.Description("Tag label")),
	), s.listByTag)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through published document titles, summaries and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchDocuments)

	s.mcp.AddResource(
		mcp.NewResource(FrontMatterURI, "Front-matter schema",
			mcp.WithResourceDescription("The header fields every content file starts with."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFrontMatterResource,
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

func (s *Server) getDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetBool("html", false) {
		html, err := s.svc.DocumentHTML(ctx, id)
		if err != nil {
			return toolError(id, err), nil
		}
		return mcp.NewToolResultText(html), nil
	}
	doc, err := s.svc.GetDocument(ctx, id)
	if err != nil {
		return toolError(id, err), nil
	}
	return jsonResult(doc)
}

func (s *Server) listRecent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.svc.ListRecent(ctx, req.GetInt("page", 1), req.GetInt("page_size", 0))
	if err != nil {
		return toolError("", err), nil
	}
	return jsonResult(page)
}

func (s *Server) listByCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	label, err := req.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.svc.ListByCategory(ctx, label)
	if err != nil {
		return toolError("", err), nil
	}
	return jsonResult(items)
}

func (s *Server) listByTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	label, err := req.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.svc.ListByTag(ctx, label)
	if err != nil {
		return toolError("", err), nil
	}
	return jsonResult(items)
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", defaultSearchLimit))
	if err != nil {
		return toolError("", err), nil
	}
	return jsonResult(results)
}

func (s *Server) readFrontMatterResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	text := FrontMatterSchema
	if len(s.shortcodes) > 0 {
		var b strings.Builder
		b.WriteString(text)
		b.WriteString("\n## Registered shortcodes\n\n")
		for _, k := range s.shortcodes {
			fmt.Fprintf(&b, "- `%s`\n", k)
		}
		text = b.String()
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FrontMatterURI,
			MIMEType: "text/markdown",
			Text:     text,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func toolError(id string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id))
	case errors.Is(err, apperr.ErrNotReady):
		return mcp.NewToolResultError("site is still building, try again shortly")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
