package journal

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nahida-ai/nahida/internal/api"
)

const defaultListLimit = 20

// Lister is implemented by *Repository.
type Lister interface {
	Recent(ctx context.Context, limit int) ([]Run, error)
}

type Handler struct {
	runs Lister
}

func NewHandler(runs Lister) *Handler {
	return &Handler{runs: runs}
}

// Recent serves GET /runs?limit=N, newest first.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			api.HandleError(w, api.NewBadRequestError("limit must be a positive integer"))
			return
		}
		limit = n
	}

	runs, err := h.runs.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("listing runs", "error", err)
		api.HandleError(w, err)
		return
	}
	if runs == nil {
		runs = []Run{}
	}
	api.JSON(w, http.StatusOK, runs)
}
