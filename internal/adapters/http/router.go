package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/graph-pattern-predictor/internal/config"
	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
	"github.com/kirillkom/graph-pattern-predictor/internal/core/ports"
)

const maxPredictBodyBytes = 64 << 10

type Router struct {
	cfg       config.Config
	predictor ports.Predictor
}

func NewRouter(cfg config.Config, predictor ports.Predictor) *Router {
	return &Router{
		cfg:       cfg,
		predictor: predictor,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/api/graph_patterns", rt.graphPatterns)
	mux.HandleFunc("/api/predict", rt.predict)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIQueueWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = corsMiddleware(handler, rt.cfg.APICORSOrigins)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) graphPatterns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"graph_patterns": rt.predictor.Patterns()})
}

type predictResponse struct {
	Entity        domain.Entity       `json:"source"`
	GraphPatterns []domain.Pattern    `json:"graph_patterns"`
	FusedResults  domain.FusionResult `json:"fused_results"`
}

func (rt *Router) predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	source, err := readSource(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entity, err := parseSource(source)
	if err != nil {
		writeError(w, r, err)
		return
	}

	record, err := rt.predictor.PredictOne(r.Context(), entity)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		Entity:        record.Entity,
		GraphPatterns: rt.predictor.Patterns(),
		FusedResults:  record.FusedResults,
	})
}

// readSource accepts the identifier as a JSON body field, a form field or a
// query parameter.
func readSource(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPredictBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var req struct {
			Source string `json:"source"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return "", domain.WrapError(domain.ErrInvalidInput, "read source", errors.New("invalid json"))
		}
		if s := strings.TrimSpace(req.Source); s != "" {
			return s, nil
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxPredictBodyBytes); err != nil {
			return "", domain.WrapError(domain.ErrInvalidInput, "read source", err)
		}
	default:
		if err := r.ParseForm(); err != nil {
			return "", domain.WrapError(domain.ErrInvalidInput, "read source", err)
		}
	}

	if s := strings.TrimSpace(r.FormValue("source")); s != "" {
		return s, nil
	}
	return "", domain.WrapError(domain.ErrInvalidInput, "read source", errors.New("no source given"))
}

// parseSource takes N3 terms as they are and wraps bare IRIs.
func parseSource(source string) (domain.Entity, error) {
	if strings.HasPrefix(source, "<") || strings.HasPrefix(source, `"`) {
		return domain.ParseTerm(source)
	}
	return domain.EntityFromIRI(source)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("predict_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
