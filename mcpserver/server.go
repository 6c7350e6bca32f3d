// Package mcpserver exposes the scraping operations as MCP tools.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/shopwalk/imagefetch"
	"github.com/use-agent/shopwalk/models"
)

// Tool names.
const (
	ToolSearch  = "search_trendyol"
	ToolDetails = "get_product_details"
	ToolImage   = "get_product_image"
	ToolReviews = "get_product_reviews"
)

// Engine runs the operations behind the tools. *scraper.Scraper satisfies it.
type Engine interface {
	SearchListing(ctx context.Context, query string, targetCount, maxScrollAttempts int) (*models.SearchResult, error)
	GetProductDetails(ctx context.Context, name string) (*models.DetailsResult, error)
	GetProductImages(ctx context.Context, name string) (*models.ImagesResult, error)
	GetProductReviews(ctx context.Context, name string) (*models.ReviewsResult, error)
}

// ImageFetcher downloads an image. *imagefetch.Fetcher satisfies it.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*imagefetch.Image, error)
}

// Options configure New.
type Options struct {
	Name    string // default: "trendyol-search"
	Version string // default: "0.1.0"

	// Images, when set, lets get_product_image inspect the main image.
	Images ImageFetcher

	// BaseURL resolves relative image sources.
	BaseURL string

	Logger *slog.Logger
}

// Server holds the MCP server and its tool handlers.
type Server struct {
	engine  Engine
	images  ImageFetcher
	baseURL string
	logger  *slog.Logger
	mcp     *server.MCPServer
	tools   []mcp.Tool
	byName  map[string]server.ToolHandlerFunc
}

// New registers the four tools against engine.
func New(engine Engine, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "trendyol-search"
	}
	if opts.Version == "" {
		opts.Version = "0.1.0"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine:  engine,
		images:  opts.Images,
		baseURL: opts.BaseURL,
		logger:  logger.With("component", "mcp"),
		byName:  make(map[string]server.ToolHandlerFunc),
		mcp: server.NewMCPServer(
			opts.Name,
			opts.Version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}

	s.add(mcp.NewTool(ToolSearch,
		mcp.WithDescription("Search for products on Trendyol with detailed information including names, descriptions, and prices"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query/product name to search for on Trendyol"),
		),
		mcp.WithNumber("target_count",
			mcp.Description("Number of products to retrieve (default: 100, max: 100)"),
			mcp.DefaultNumber(models.DefaultTargetCount),
			mcp.Min(1),
			mcp.Max(models.MaxTargetCount),
		),
		mcp.WithNumber("max_scroll_attempts",
			mcp.Description("Maximum scroll cycles used to load more results (default: 15, max: 30)"),
			mcp.DefaultNumber(models.DefaultMaxScrollAttempts),
			mcp.Min(1),
			mcp.Max(models.MaxScrollAttempts),
		),
	), s.handleSearch)

	s.add(productTool(ToolDetails,
		"Get detailed information about a specific product including title, price, description, features, rating, and brand",
		"The product name to search for and get details"), s.handleDetails)
	s.add(productTool(ToolImage,
		"Extract and display product images from the product gallery carousel",
		"The product name to search for and get images"), s.handleImage)
	s.add(productTool(ToolReviews,
		"Extract customer reviews and comments for a specific product",
		"The product name to search for and get reviews"), s.handleReviews)

	return s
}

func productTool(name, description, argDescription string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString("product_name",
			mcp.Required(),
			mcp.Description(argDescription),
		),
	)
}

// toolFunc produces the text of a successful call.
type toolFunc func(ctx context.Context, req mcp.CallToolRequest) (string, error)

// add registers tool with a handler that wraps fn's text in the result
// envelope. Failures are reported as tool errors, never as protocol errors.
func (s *Server) add(tool mcp.Tool, fn toolFunc) {
	s.tools = append(s.tools, tool)
	name := tool.Name
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.logger.Info("tool called", "tool", name)
		text, err := fn(ctx, req)
		if err != nil {
			s.logger.Warn("tool failed", "tool", name, "error", err)
			return mcp.NewToolResultError(fmt.Sprintf("Error executing %s: %v", name, err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Trendyol %s Results:\n\n%s", name, text)), nil
	}
	s.byName[name] = handler
	s.mcp.AddTool(tool, handler)
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// Tools lists the registered tools in registration order.
func (s *Server) Tools() []mcp.Tool { return append([]mcp.Tool(nil), s.tools...) }

// Handler returns the handler of the named tool, or nil.
func (s *Server) Handler(name string) server.ToolHandlerFunc {
	return s.byName[name]
}

// ServeStdio serves the protocol on stdin and stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp,
		server.WithErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError)))
}
