package parcelsapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/services/parcels"
)

type Service interface {
	AddFromText(ctx context.Context, text string) ([]*models.HydratedPackage, error)
	List(ctx context.Context, includeCompleted bool) ([]*models.HydratedPackage, error)
	Get(ctx context.Context, id string) (*models.HydratedPackage, error)
	Update(ctx context.Context, id string, patch models.PackagePatch) (*models.HydratedPackage, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	RefreshAll(ctx context.Context) (bool, error)
	RefreshOne(ctx context.Context, id string) (*models.HydratedPackage, error)
	Stats() parcels.Stats
}

type ParcelsAPI struct {
	svc Service
}

func New(svc Service) *ParcelsAPI {
	return &ParcelsAPI{svc: svc}
}

func (a *ParcelsAPI) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/packages", func(r chi.Router) {
		r.Post("/", a.addPackages)
		r.Get("/", a.listPackages)
		r.Delete("/", a.clearPackages)
		r.Post("/refresh", a.refreshAll)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getPackage)
			r.Patch("/", a.updatePackage)
			r.Delete("/", a.deletePackage)
			r.Post("/refresh", a.refreshOne)
		})
	})
	r.Get("/stats", a.stats)
	return r
}

type addRequest struct {
	Text string `json:"text"`
}

func (a *ParcelsAPI) addPackages(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	created, err := a.svc.AddFromText(r.Context(), req.Text)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"packages": created})
}

func (a *ParcelsAPI) listPackages(w http.ResponseWriter, r *http.Request) {
	includeCompleted, _ := strconv.ParseBool(r.URL.Query().Get("includeCompleted"))

	pkgs, err := a.svc.List(r.Context(), includeCompleted)
	if err != nil {
		slog.Error("list packages", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"packages": pkgs})
}

func (a *ParcelsAPI) getPackage(w http.ResponseWriter, r *http.Request) {
	h, err := a.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		slog.Error("get package", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if h == nil {
		writeError(w, http.StatusNotFound, "package not found")
		return
	}
	writeJSON(w, http.StatusOK, h)
}

type updateRequest struct {
	Notes       *string `json:"notes"`
	IsCompleted *bool   `json:"isCompleted"`
}

func (a *ParcelsAPI) updatePackage(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Notes == nil && req.IsCompleted == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	h, err := a.svc.Update(r.Context(), chi.URLParam(r, "id"), models.PackagePatch{
		Notes:     req.Notes,
		Completed: req.IsCompleted,
	})
	if err != nil {
		slog.Error("update package", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if h == nil {
		writeError(w, http.StatusNotFound, "package not found")
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (a *ParcelsAPI) deletePackage(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		slog.Error("delete package", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *ParcelsAPI) clearPackages(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Clear(r.Context()); err != nil {
		slog.Error("clear packages", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *ParcelsAPI) refreshAll(w http.ResponseWriter, r *http.Request) {
	started, err := a.svc.RefreshAll(r.Context())
	if err != nil {
		slog.Error("refresh all", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !started {
		// Пачка уже в полёте; это no-op, а не ошибка.
		writeJSON(w, http.StatusAccepted, map[string]any{"refreshed": false, "reason": "refresh already in progress"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"refreshed": true})
}

func (a *ParcelsAPI) refreshOne(w http.ResponseWriter, r *http.Request) {
	h, err := a.svc.RefreshOne(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		slog.Error("refresh package", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if h == nil {
		writeError(w, http.StatusNotFound, "package not found")
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (a *ParcelsAPI) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.Stats())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
