package api

import (
	"context"
	"fmt"

	"github.com/hazyhaar/wardstats/pkg/aggregate"
	"github.com/hazyhaar/wardstats/pkg/kit"
	"github.com/hazyhaar/wardstats/pkg/report"
	"github.com/hazyhaar/wardstats/pkg/topic"
)

// Shared request/response types used by both HTTP and MCP transports.

type topicsResponse struct {
	Topics []topic.Info `json:"topics"`
}

type topicResponse struct {
	topic.Info
	Labels map[string]string `json:"labels,omitempty"`
	Colors map[string]string `json:"colors,omitempty"`
}

type topicReq struct {
	ID string
}

type drillReq struct {
	Topic   string
	GroupBy []string
}

// computeBody is the caller-supplied input of POST /v1/compute and the
// compute_breakdown tool.
type computeBody struct {
	Rows          []aggregate.Row    `json:"rows" validate:"max=100000"`
	Summary       *aggregate.Summary `json:"summary,omitempty"`
	GroupBy       []string           `json:"group_by" validate:"max=6,dive,required,max=64"`
	Sort          string             `json:"sort,omitempty" validate:"omitempty,oneof=none measure_desc measure_asc key_asc key_desc"`
	HeadlineField string             `json:"headline_field,omitempty" validate:"omitempty,max=64"`
	Decimals      *int               `json:"decimals,omitempty" validate:"omitempty,min=0,max=6"`
	Markers       []string           `json:"markers,omitempty" validate:"omitempty,max=16,dive,required"`
}

func (b *computeBody) request() report.ComputeRequest {
	return report.ComputeRequest{
		Rows:          b.Rows,
		Summary:       b.Summary,
		GroupBy:       b.GroupBy,
		Sort:          aggregate.SortOrder(b.Sort),
		HeadlineField: b.HeadlineField,
		Decimals:      b.Decimals,
		Markers:       b.Markers,
	}
}

// endpoints are the kit.Endpoints behind every transport.
type endpoints struct {
	listTopics kit.Endpoint
	getTopic   kit.Endpoint
	report     kit.Endpoint
	drill      kit.Endpoint
	compute    kit.Endpoint
}

func newEndpoints(reg *topic.Registry, svc *report.Service, mw func(name string) kit.Middleware) endpoints {
	return endpoints{
		listTopics: mw("list_topics")(listTopicsEndpoint(reg)),
		getTopic:   mw("get_topic")(getTopicEndpoint(reg)),
		report:     mw("report")(reportEndpoint(svc)),
		drill:      mw("drill")(drillEndpoint(svc)),
		compute:    mw("compute")(computeEndpoint(svc)),
	}
}

func listTopicsEndpoint(reg *topic.Registry) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return topicsResponse{Topics: reg.List()}, nil
	}
}

func getTopicEndpoint(reg *topic.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*topicReq)
		t, ok := reg.Get(req.ID)
		if !ok {
			return nil, fmt.Errorf("%w: %q", report.ErrUnknownTopic, req.ID)
		}
		return topicResponse{Info: t.Info(), Labels: t.Manifest.Labels, Colors: t.Manifest.Colors}, nil
	}
}

func reportEndpoint(svc *report.Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return svc.Report(ctx, *request.(*report.Request))
	}
}

func drillEndpoint(svc *report.Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*drillReq)
		return svc.Drill(ctx, req.Topic, req.GroupBy)
	}
}

func computeEndpoint(svc *report.Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		body := request.(*computeBody)
		if err := validate.Struct(body); err != nil {
			return nil, fmt.Errorf("%w: %v", report.ErrInvalidRequest, err)
		}
		return svc.Compute(body.request()), nil
	}
}
