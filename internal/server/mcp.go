package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/joseph-ayodele/campus-feed/constants"
	"github.com/joseph-ayodele/campus-feed/internal/common"
	"github.com/joseph-ayodele/campus-feed/internal/entity"
)

type parseEventArgs struct {
	Type     string `json:"type" jsonschema:"input type: text, url or image"`
	Content  string `json:"content" jsonschema:"message text, article URL, or poster as a data URI"`
	Language string `json:"language,omitempty" jsonschema:"output language: zh (default), en or zh-en"`
}

// NewMCPServer exposes the pipeline as the parse_event tool.
func NewMCPServer(parser Parser, version string, logger *slog.Logger) *mcp.Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := mcp.NewServer(&mcp.Implementation{Name: "campus-feed", Version: version}, nil)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "parse_event",
		Description: "Turn a group message, article URL or poster image into a structured campus event (title, type, key_info, summary, tags).",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args parseEventArgs) (*mcp.CallToolResult, any, error) {
		req := entity.ParseRequest{
			Type:     constants.InputType(args.Type),
			Content:  args.Content,
			Language: constants.Language(args.Language),
		}
		res, err := parser.Parse(ctx, req)
		if err != nil {
			logger.Warn("mcp.parse_event.failed", "kind", common.KindOf(err), "error", err)
		}
		_, body := ParseResponse(res, err)
		b, merr := json.Marshal(body)
		if merr != nil {
			return nil, nil, merr
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
			IsError: err != nil,
		}, nil, nil
	})
	return srv
}
