package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/standings/internal/domain/render"
	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/internal/domain/view"
)

// ViewDependencies defines the interface for view selection and refresh.
type ViewDependencies interface {
	Board() (render.Board, bool)
	CurrentView() view.State
	Datasets() []types.DatasetID
	Select(ctx context.Context, mode, dataset string) (view.State, error)
	Refresh(ctx context.Context) error
}

// ViewHandler handles view selection and manual refresh.
type ViewHandler struct {
	deps ViewDependencies
}

// NewViewHandler creates a new view handler.
func NewViewHandler(deps ViewDependencies) *ViewHandler {
	return &ViewHandler{deps: deps}
}

// viewRequest is the body of POST /view. Empty fields keep the current value.
type viewRequest struct {
	Mode    string `json:"mode"`
	Dataset string `json:"dataset"`
}

type viewResponse struct {
	View     string            `json:"view"`
	Mode     types.Mode        `json:"mode"`
	Dataset  types.DatasetID   `json:"dataset"`
	Modes    []types.Mode      `json:"modes"`
	Datasets []types.DatasetID `json:"datasets"`
}

func (h *ViewHandler) response(st view.State) viewResponse {
	return viewResponse{
		View:     st.String(),
		Mode:     st.Mode,
		Dataset:  st.Dataset,
		Modes:    types.Modes,
		Datasets: h.deps.Datasets(),
	}
}

// HandleView handles GET /view (current selection) and POST /view (switch
// mode and/or dataset). A rejected selection answers 400 and keeps the view.
func (h *ViewHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	const op = "api.view"
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.response(h.deps.CurrentView()))

	case http.MethodPost:
		req := viewRequest{Mode: r.URL.Query().Get("mode"), Dataset: r.URL.Query().Get("dataset")}
		if r.ContentLength != 0 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
				return
			}
		}
		if req.Mode == "" && req.Dataset == "" {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, view.ErrConfig))
			return
		}
		st, err := h.deps.Select(r.Context(), req.Mode, req.Dataset)
		if err != nil {
			writeServiceError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, h.response(st))

	default:
		http.NotFound(w, r)
	}
}

// HandleRefresh handles POST /refresh: fetch every dataset now and answer
// with the re-rendered board once the results are applied.
func (h *ViewHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.refresh"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.Refresh(r.Context()); err != nil {
		writeServiceError(w, op, err)
		return
	}
	b, ok := h.deps.Board()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "not_ready", NewKind(op, ErrNotReady))
		return
	}
	writeJSON(w, http.StatusOK, b)
}
