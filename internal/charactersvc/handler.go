// Package charactersvc implements the character persistence HTTP API.
// Every response body is JSON; every rejection is {"error": msg} so the
// game server can surface the message verbatim.
package charactersvc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vexelgames/polyrift/internal/db"
	"github.com/vexelgames/polyrift/internal/model"
)

const (
	defaultShape = "cube"
	defaultColor = "#ffffff"
)

// CharacterStore is the persistence surface the handlers need.
// *db.CharacterRepository implements it.
type CharacterStore interface {
	ListByUser(ctx context.Context, userID string) ([]model.Character, error)
	GetPrimary(ctx context.Context, userID string) (*model.Character, error)
	Create(ctx context.Context, userID, name, shape, color string) (*model.Character, error)
	UpdateProfile(ctx context.Context, characterID int64, name, shape, color *string, isPrimary *bool) (*model.Character, error)
	ApplyStats(ctx context.Context, characterID int64, delta db.StatsDelta) (*model.Character, error)
	Delete(ctx context.Context, characterID int64, userID string) (bool, error)
}

type Handler struct {
	store CharacterStore
}

func NewHandler(store CharacterStore) *Handler {
	return &Handler{store: store}
}

// Routes builds the service mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /characters/user/{userId}", h.listCharacters)
	mux.HandleFunc("POST /characters/user/{userId}", h.createCharacter)
	mux.HandleFunc("GET /characters/user/{userId}/primary", h.getPrimary)
	mux.HandleFunc("PUT /characters/{id}", h.updateCharacter)
	mux.HandleFunc("PATCH /characters/{id}/stats", h.updateStats)
	mux.HandleFunc("DELETE /characters/{id}/user/{userId}", h.deleteCharacter)
	mux.HandleFunc("GET /healthz", h.health)
	return mux
}

func (h *Handler) listCharacters(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	chars, err := h.store.ListByUser(r.Context(), userID)
	if err != nil {
		slog.Error("list characters failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if chars == nil {
		chars = []model.Character{}
	}
	writeJSON(w, http.StatusOK, chars)
}

func (h *Handler) getPrimary(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	c, err := h.store.GetPrimary(r.Context(), userID)
	if err != nil {
		slog.Error("get primary failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "no primary character")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) createCharacter(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	var req struct {
		Name  string `json:"name"`
		Shape string `json:"shape"`
		Color string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Shape == "" {
		req.Shape = defaultShape
	}
	if req.Color == "" {
		req.Color = defaultColor
	}

	c, err := h.store.Create(r.Context(), userID, req.Name, req.Shape, req.Color)
	if err != nil {
		slog.Error("create character failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) updateCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		IsPrimary *bool   `json:"isPrimary"`
		Name      *string `json:"name"`
		Shape     *string `json:"shape"`
		Color     *string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != nil && *req.Name == "" {
		writeError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}

	c, err := h.store.UpdateProfile(r.Context(), id, req.Name, req.Shape, req.Color, req.IsPrimary)
	if err != nil {
		slog.Error("update character failed", "character_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "character not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) updateStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Experience *int64  `json:"experience"`
		Kills      *int32  `json:"kills"`
		Deaths     *int32  `json:"deaths"`
		PlayTime   *int64  `json:"playTime"`
		WeaponType *string `json:"weaponType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.store.ApplyStats(r.Context(), id, db.StatsDelta{
		Experience: req.Experience,
		Kills:      req.Kills,
		Deaths:     req.Deaths,
		PlayTime:   req.PlayTime,
		WeaponType: req.WeaponType,
	})
	if err != nil {
		slog.Error("update stats failed", "character_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "character not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) deleteCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	userID := r.PathValue("userId")

	deleted, err := h.store.Delete(r.Context(), id, userID)
	if errors.Is(err, db.ErrLastCharacter) {
		writeError(w, http.StatusConflict, db.ErrLastCharacter.Error())
		return
	}
	if err != nil {
		slog.Error("delete character failed", "character_id", id, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "character not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid character id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
