package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/hazyhaar/wardstats/pkg/aggregate"
	"github.com/hazyhaar/wardstats/pkg/kit"
	"github.com/hazyhaar/wardstats/pkg/report"
	"github.com/hazyhaar/wardstats/pkg/topic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers the wardstats MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, reg *topic.Registry, svc *report.Service, logger *slog.Logger) {
	ep := newEndpoints(reg, svc, Middleware(logger))
	registerTopicReport(srv, ep.report)
	registerComputeBreakdown(srv, ep.compute)
	registerListTopics(srv, ep.listTopics)
}

func registerTopicReport(srv *server.MCPServer, endpoint kit.Endpoint) {
	tool := mcp.NewTool("topic_report",
		mcp.WithDescription("Break down a municipal topic (population by religion, caste, age group...) with totals, percentage shares and highest/lowest entries."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Topic id, see list_topics")),
		mcp.WithString("group_by", mcp.Description("Comma-separated dimensions (e.g. ward,gender); defaults to the topic's default")),
		mcp.WithString("where", mcp.Description("Comma-separated filters dimension:value (e.g. ward:3)")),
		mcp.WithString("sort", mcp.Description("none, measure_desc, measure_asc, key_asc or key_desc")),
		mcp.WithNumber("top", mcp.Description("Keep this many entries and fold the rest into Other")),
	)

	kit.RegisterMCPTool(srv, tool, endpoint, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		r, err := decodeTopicReport(req.GetArguments())
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: r, EnrichCtx: topicCtx(r.Topic)}, nil
	})
}

// maxTop bounds the top argument; JSON numbers arrive as float64.
const maxTop = 10000

func decodeTopicReport(args map[string]any) (*report.Request, error) {
	id, _ := args["topic"].(string)
	if id == "" {
		return nil, fmt.Errorf("topic is required")
	}
	groupBy, _ := args["group_by"].(string)
	whereStr, _ := args["where"].(string)
	where, err := parseWhere([]string{whereStr})
	if err != nil {
		return nil, err
	}
	sortStr, _ := args["sort"].(string)
	sort, err := aggregate.ParseSortOrder(sortStr)
	if err != nil {
		return nil, err
	}
	top, _ := args["top"].(float64)
	if top < 0 || top > maxTop || top != math.Trunc(top) {
		return nil, fmt.Errorf("top must be a whole number between 0 and %d", maxTop)
	}

	return &report.Request{
		Topic:   id,
		GroupBy: splitList(groupBy),
		Where:   where,
		Sort:    sort,
		Top:     int(top),
	}, nil
}

func registerComputeBreakdown(srv *server.MCPServer, endpoint kit.Endpoint) {
	tool := mcp.NewTool("compute_breakdown",
		mcp.WithDescription("Aggregate caller-supplied measurement rows: totals reconciled against an optional summary, percentage shares, highest and lowest."),
		mcp.WithString("rows", mcp.Required(), mcp.Description(`JSON array of rows, e.g. [{"dimensions":{"ward":"1","category":"A"},"measure":10}]`)),
		mcp.WithString("group_by", mcp.Required(), mcp.Description("Comma-separated dimensions to group by")),
		mcp.WithString("summary", mcp.Description(`Optional JSON summary, e.g. {"totals":{"total":120}}`)),
		mcp.WithString("headline_field", mcp.Description("Summary total to reconcile against (default total)")),
		mcp.WithString("sort", mcp.Description("none, measure_desc, measure_asc, key_asc or key_desc")),
	)

	kit.RegisterMCPTool(srv, tool, endpoint, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		body, err := decodeComputeBreakdown(req.GetArguments())
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: body}, nil
	})
}

func decodeComputeBreakdown(args map[string]any) (*computeBody, error) {
	body := &computeBody{}
	if err := decodeJSONArg(args["rows"], &body.Rows); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if args["summary"] != nil {
		if err := decodeJSONArg(args["summary"], &body.Summary); err != nil {
			return nil, fmt.Errorf("summary: %w", err)
		}
	}
	groupBy, _ := args["group_by"].(string)
	body.GroupBy = splitList(groupBy)
	body.HeadlineField, _ = args["headline_field"].(string)
	body.Sort, _ = args["sort"].(string)
	return body, nil
}

func registerListTopics(srv *server.MCPServer, endpoint kit.Endpoint) {
	tool := mcp.NewTool("list_topics",
		mcp.WithDescription("List the loaded topics with their dimensions and default grouping."),
	)

	kit.RegisterMCPTool(srv, tool, endpoint, func(_ mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	})
}

// decodeJSONArg accepts either JSON text or an already-decoded value.
func decodeJSONArg(v any, dst any) error {
	var data []byte
	switch x := v.(type) {
	case nil:
		return fmt.Errorf("missing")
	case string:
		data = []byte(x)
	default:
		var err error
		if data, err = json.Marshal(x); err != nil {
			return err
		}
	}
	return json.Unmarshal(data, dst)
}

func topicCtx(id string) func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		return kit.WithTopic(ctx, id)
	}
}
