package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hazyhaar/wardstats/pkg/aggregate"
	"github.com/hazyhaar/wardstats/pkg/kit"
	"github.com/hazyhaar/wardstats/pkg/report"
	"github.com/hazyhaar/wardstats/pkg/topic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Middleware returns the endpoint middleware used by every transport.
func Middleware(logger *slog.Logger) func(name string) kit.Middleware {
	return func(name string) kit.Middleware {
		return kit.Chain(kit.RequestID(), kit.Logging(logger, name))
	}
}

// NewRouter returns an http.Handler with all wardstats API routes. gatherer
// may be nil, in which case /metrics is not served.
func NewRouter(reg *topic.Registry, svc *report.Service, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	h := &handler{
		ep:  newEndpoints(reg, svc, Middleware(logger)),
		reg: reg,
	}

	mux.HandleFunc("GET /v1/topics", h.handleListTopics)
	mux.HandleFunc("GET /v1/topics/{id}", h.handleGetTopic)
	mux.HandleFunc("GET /v1/reports/{topic}", h.handleReport)
	mux.HandleFunc("GET /v1/reports/{topic}/drill", h.handleDrill)
	mux.HandleFunc("GET /v1/compute", methodNotAllowed) // prevent GET on compute
	mux.HandleFunc("POST /v1/compute", h.handleCompute)
	mux.HandleFunc("GET /v1/health", h.handleHealth)
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return cors(requestID(mux))
}

type handler struct {
	ep  endpoints
	reg *topic.Registry
}

// --- topics ---

func (h *handler) handleListTopics(w http.ResponseWriter, r *http.Request) {
	resp, err := h.ep.listTopics(r.Context(), nil)
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	resp, err := h.ep.getTopic(kit.WithTopic(r.Context(), id), &topicReq{ID: id})
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- reports ---

func (h *handler) handleReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("topic")
	q := r.URL.Query()

	sort, err := aggregate.ParseSortOrder(q.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	where, err := parseWhere(q["where"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	top := 0
	if v := q.Get("top"); v != "" {
		if top, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "top must be an integer")
			return
		}
	}

	resp, err := h.ep.report(kit.WithTopic(r.Context(), id), &report.Request{
		Topic:   id,
		GroupBy: splitList(q.Get("group_by")),
		Where:   where,
		Sort:    sort,
		Top:     top,
	})
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleDrill(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("topic")
	resp, err := h.ep.drill(kit.WithTopic(r.Context(), id), &drillReq{
		Topic:   id,
		GroupBy: splitList(r.URL.Query().Get("group_by")),
	})
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- compute ---

func (h *handler) handleCompute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 8<<20) // 8 MiB max
	var body computeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.ep.compute(r.Context(), &body)
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status string `json:"status"`
	Topics int    `json:"topics"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Topics: h.reg.Count(),
	})
}

// --- helpers ---

// splitList parses "ward,gender" into its trimmed, non-empty parts.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseWhere reads filters of the form "gender:FEMALE". Several may be given
// comma-separated or as repeated parameters.
func parseWhere(values []string) (map[string]string, error) {
	var where map[string]string
	for _, v := range values {
		for _, clause := range splitList(v) {
			dim, val, ok := strings.Cut(clause, ":")
			dim, val = strings.TrimSpace(dim), strings.TrimSpace(val)
			if !ok || dim == "" || val == "" {
				return nil, fmt.Errorf("invalid where clause %q, want dimension:value", clause)
			}
			if where == nil {
				where = make(map[string]string)
			}
			where[dim] = val
		}
	}
	return where, nil
}

func writeEndpointError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, report.ErrUnknownTopic):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, report.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON encodes before writing the status, so an unencodable value turns
// into a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encode response", "error", err)
		code = http.StatusInternalServerError
		data = []byte(`{"error":"response encoding failed"}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// requestID propagates X-Request-ID, generating one when absent.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(kit.WithRequestID(r.Context(), id)))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
