package mcpserver

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/use-agent/shopwalk/format"
	"github.com/use-agent/shopwalk/imagefetch"
	"github.com/use-agent/shopwalk/models"
)

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	query, err := req.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return "", models.InvalidInput("Missing required argument: query")
	}
	target := req.GetInt("target_count", models.DefaultTargetCount)
	if target < 1 || target > models.MaxTargetCount {
		return "", models.InvalidInput("target_count must be between 1 and %d", models.MaxTargetCount)
	}
	attempts := req.GetInt("max_scroll_attempts", models.DefaultMaxScrollAttempts)
	if attempts < 1 || attempts > models.MaxScrollAttempts {
		return "", models.InvalidInput("max_scroll_attempts must be between 1 and %d", models.MaxScrollAttempts)
	}

	res, err := s.engine.SearchListing(ctx, query, target, attempts)
	if err != nil {
		return "", err
	}
	return format.Listing(res), nil
}

func productName(req mcp.CallToolRequest) (string, error) {
	name, err := req.RequireString("product_name")
	if err != nil || strings.TrimSpace(name) == "" {
		return "", models.InvalidInput("Missing required argument: product_name")
	}
	return name, nil
}

func (s *Server) handleDetails(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	name, err := productName(req)
	if err != nil {
		return "", err
	}
	res, err := s.engine.GetProductDetails(ctx, name)
	if err != nil {
		return "", err
	}
	return format.Details(res), nil
}

func (s *Server) handleImage(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	name, err := productName(req)
	if err != nil {
		return "", err
	}
	res, err := s.engine.GetProductImages(ctx, name)
	if err != nil {
		return "", err
	}

	text := format.Images(res)
	if s.images == nil || res.Images.Primary == nil {
		return text, nil
	}
	// A failed download is part of the report, not a tool failure.
	src, err := imagefetch.Resolve(s.baseURL, res.Images.Primary.Src)
	if err != nil {
		return text + format.ImageError(err), nil
	}
	img, err := s.images.Fetch(ctx, src)
	if err != nil {
		return text + format.ImageError(err), nil
	}
	return text + format.ImageFile(img.Format, img.Width, img.Height, img.Size(), ""), nil
}

func (s *Server) handleReviews(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	name, err := productName(req)
	if err != nil {
		return "", err
	}
	res, err := s.engine.GetProductReviews(ctx, name)
	if err != nil {
		return "", err
	}
	return format.Reviews(res), nil
}
