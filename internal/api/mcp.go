package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/impag-mx/surco/internal/catalog"
	"github.com/impag-mx/surco/internal/pipeline"
)

// ProductSearcher abstracts catalog lookup for the MCP layer.
type ProductSearcher interface {
	Search(ctx context.Context, query string) ([]catalog.MatchResult, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Pipeline Generator
	Catalog  CatalogSyncer
	Products ProductSearcher
}

// NewMCPServer creates an MCP server exposing the generation pipeline and
// catalog to agent clients.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"surco",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("surco — grounded social content generation for agricultural supplies, with catalog matching and topic uniqueness checks."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("generate_post",
			mcp.WithDescription("Generate a grounded social post for a query and publication date, running strategy, content and QA phases."),
			mcp.WithString("query", mcp.Description("What the post should be about"), mcp.Required()),
			mcp.WithString("date_for", mcp.Description("Publication date, YYYY-MM-DD (default today)")),
			mcp.WithString("channel", mcp.Description("Publishing channel (default facebook)")),
		),
		mcpGeneratePost(deps),
	)

	s.AddTool(
		mcp.NewTool("check_duplicate",
			mcp.WithDescription("Check whether a problem → solution topic collides with recent posts."),
			mcp.WithString("topic", mcp.Description("Topic in 'problema → solución' form"), mcp.Required()),
			mcp.WithString("date_for", mcp.Description("Publication date, YYYY-MM-DD (default today)")),
		),
		mcpCheckDuplicate(deps),
	)

	s.AddTool(
		mcp.NewTool("search_catalog",
			mcp.WithDescription("Find catalog products matching a free-text mention."),
			mcp.WithString("query", mcp.Description("Product mention to resolve"), mcp.Required()),
		),
		mcpSearchCatalog(deps),
	)

	s.AddTool(
		mcp.NewTool("refresh_catalog",
			mcp.WithDescription("Re-import the product catalog from the shop feed."),
		),
		mcpRefreshCatalog(deps),
	)

	return s
}

func mcpGeneratePost(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		dateFor, err := parseDate(req.GetString("date_for", ""))
		if err != nil {
			return mcpError(fmt.Sprintf("invalid date_for: %v", err)), nil
		}
		channel := req.GetString("channel", "facebook")

		res, err := deps.Pipeline.Generate(ctx, pipeline.Request{
			Query:   query,
			DateFor: dateFor,
			Channel: channel,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("generation failed: %v", err)), nil
		}

		b, err := json.Marshal(map[string]any{
			"topic":          res.Strategy.Topic,
			"body":           res.Content.Body,
			"hashtags":       res.Content.Hashtags,
			"call_to_action": res.Content.CallToAction,
			"post_id":        res.Post.ID,
			"soft_duplicate": res.SoftDup,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCheckDuplicate(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		topic, err := req.RequireString("topic")
		if err != nil {
			return mcpError("topic is required"), nil
		}
		dateFor, err := parseDate(req.GetString("date_for", ""))
		if err != nil {
			return mcpError(fmt.Sprintf("invalid date_for: %v", err)), nil
		}

		res, err := deps.Pipeline.CheckDuplicate(ctx, topic, dateFor)
		if err != nil {
			return mcpError(fmt.Sprintf("duplicate check failed: %v", err)), nil
		}

		conflicts := make([]string, 0, len(res.Conflicts))
		for _, p := range res.Conflicts {
			conflicts = append(conflicts, fmt.Sprintf("%s (%s)", p.Topic, p.DateFor.Format(dateLayout)))
		}
		b, err := json.Marshal(map[string]any{
			"hard":      res.Hard,
			"soft":      res.Soft,
			"conflicts": conflicts,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSearchCatalog(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		matches, err := deps.Products.Search(ctx, query)
		if err != nil {
			return mcpError(fmt.Sprintf("catalog search failed: %v", err)), nil
		}
		if len(matches) == 0 {
			return mcpText("[]"), nil
		}

		results := make([]productMatch, len(matches))
		for i, m := range matches {
			results[i] = productMatch{
				ID:       m.Product.ID,
				Name:     m.Product.Name,
				Price:    m.Product.Price,
				Currency: m.Product.Currency,
				Score:    m.Score,
			}
		}
		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpRefreshCatalog(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()

		n, err := deps.Catalog.Sync(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("catalog refresh failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Imported %d products", n)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
