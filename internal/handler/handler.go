// Package handler holds the plumbing shared by the Cloud Function entry points.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/Lllllllleong/competencymatrix/internal/config"
	"github.com/Lllllllleong/competencymatrix/internal/contract"
	"github.com/Lllllllleong/competencymatrix/internal/render"
	"github.com/Lllllllleong/competencymatrix/internal/services"
)

var (
	runtime    *services.Runtime
	once       sync.Once
	runtimeErr error
)

// Runtime returns the process-wide runtime configured from the environment. The first
// call also installs the configured slog handler as the default logger.
func Runtime() (*services.Runtime, error) {
	once.Do(func() {
		cfg, err := config.FromEnv()
		if err != nil {
			runtimeErr = err
			return
		}
		slog.SetDefault(cfg.Logging.NewLogger(os.Stdout))
		runtime = services.NewRuntime(cfg)
		runtime.PersistSegments = true
	})
	return runtime, runtimeErr
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Error kinds.
const (
	KindInput    = "input"
	KindContract = "contract"
	KindTemplate = "template"
	KindInternal = "internal"
)

// Classify maps an error to its HTTP status and kind. Input problems are the caller's to
// fix. An exhausted contract budget and a template mismatch are terminal and must stay
// below 500 so the workflow never retries them.
func Classify(err error) (int, string) {
	var (
		ce *contract.ContractError
		tm *render.TemplateMismatchError
	)
	switch {
	case services.IsInputError(err):
		return http.StatusBadRequest, KindInput
	case errors.As(err, &ce):
		return http.StatusUnprocessableEntity, KindContract
	case errors.As(err, &tm):
		return http.StatusUnprocessableEntity, KindTemplate
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

// Serve decodes a Req from the body, runs process and writes its result as JSON.
func Serve[Req, Resp any](w http.ResponseWriter, r *http.Request, process func(context.Context, Req) (Resp, error)) {
	var req Req
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "could not parse JSON: " + err.Error(), Kind: KindInput})
		return
	}

	res, err := process(r.Context(), req)
	if err != nil {
		status, kind := Classify(err)
		slog.Error("Request failed", "status", status, "kind", kind, "error", err)
		WriteJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// InitFailed reports a failed one-time initialization.
func InitFailed(w http.ResponseWriter, err error) {
	slog.Error("Critical error during function initialization", "error", err)
	http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
