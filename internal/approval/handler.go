package approval

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/lingkungan/internal"
	"github.com/frahmantamala/lingkungan/internal/transport"
	"github.com/frahmantamala/lingkungan/pkg/logger"
	"github.com/go-chi/chi"
)

// ViewCache stores rendered read views. Implementations load a missing key
// once even under concurrent requests.
type ViewCache interface {
	GetOrLoad(key string, load func() ([]byte, error)) ([]byte, error)
}

type Handler struct {
	*transport.BaseHandler
	Actions *Actions
	cache   ViewCache
}

func NewHandler(actions *Actions, cache ViewCache) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Actions:     actions,
		cache:       cache,
	}
}

func (h *Handler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	q := ListQueryFromURL(r.URL.Query())
	h.serveView(w, r, q.CacheKey(), func() (int, interface{}) {
		res := h.Actions.List(r.Context(), q.Period, q.Status)
		return statusOf(res.Err), res
	})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	h.serveView(w, r, RoutePath+"/stats", func() (int, interface{}) {
		res := h.Actions.Stats(r.Context())
		return statusOf(res.Err), res
	})
}

func (h *Handler) GetApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res := h.Actions.Get(r.Context(), id)
	h.WriteJSON(w, statusOf(res.Err), res)
}

func (h *Handler) ApproveApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.logActor(r, "approve", id)
	res := h.Actions.Approve(r.Context(), id)
	h.WriteJSON(w, statusOf(res.Err), res)
}

func (h *Handler) RejectApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var dto RejectDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			h.Logger.Warn("RejectApproval: invalid request body", "error", err, "approval_id", id)
			h.WriteError(w, http.StatusBadRequest, "Format permintaan tidak valid")
			return
		}
	}
	dto.Normalize()

	h.logActor(r, "reject", id)
	res := h.Actions.Reject(r.Context(), id, dto.Reason)
	h.WriteJSON(w, statusOf(res.Err), res)
}

func (h *Handler) ResetApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.logActor(r, "reset", id)
	res := h.Actions.Reset(r.Context(), id)
	h.WriteJSON(w, statusOf(res.Err), res)
}

func (h *Handler) logActor(r *http.Request, action, id string) {
	lg := logger.From(r.Context(), h.Logger)
	if user, ok := internal.UserFromContext(r.Context()); ok && user != nil {
		lg.Info("approval action requested", "action", action, "approval_id", id, "user_id", user.ID)
		return
	}
	lg.Info("approval action requested", "action", action, "approval_id", id)
}

// uncacheableView carries a rendered failure through the cache loader so it
// reaches every waiter without being stored.
type uncacheableView struct {
	status int
	body   []byte
}

func (u *uncacheableView) Error() string {
	return fmt.Sprintf("view not cacheable: status %d", u.status)
}

func (h *Handler) serveView(w http.ResponseWriter, r *http.Request, key string, render func() (int, interface{})) {
	if h.cache == nil {
		status, v := render()
		h.WriteJSON(w, status, v)
		return
	}

	body, err := h.cache.GetOrLoad(key, func() ([]byte, error) {
		status, v := render()
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, &uncacheableView{status: status, body: b}
		}
		return b, nil
	})

	var uv *uncacheableView
	switch {
	case errors.As(err, &uv):
		h.WriteRawJSON(w, uv.status, uv.body)
	case err != nil:
		logger.From(r.Context(), h.Logger).Error("failed to render view", "error", err, "key", key)
		h.WriteError(w, http.StatusInternalServerError, genericFailureMessage)
	default:
		h.WriteRawJSON(w, http.StatusOK, body)
	}
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return transport.StatusFor(err)
}
