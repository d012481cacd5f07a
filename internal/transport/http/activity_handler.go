package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"sparklab/internal/app"
	"sparklab/internal/auth"
	"sparklab/internal/domain"
	"sparklab/internal/logger"
)

type activityHandler struct {
	activities *app.ActivityService
	validate   *requestValidator
	log        *logger.Logger
}

type createActivityRequest struct {
	ID          string           `json:"id" validate:"required,notblank,max=64"`
	Title       string           `json:"title" validate:"required,notblank"`
	Description string           `json:"description"`
	Icon        string           `json:"icon"`
	Color       string           `json:"color"`
	Difficulty  string           `json:"difficulty"`
	Duration    string           `json:"duration"`
	Path        string           `json:"path"`
	Emoji       string           `json:"emoji"`
	Reward      string           `json:"reward"`
	Story       string           `json:"story"`
	VideoURL    string           `json:"videoUrl" validate:"omitempty,url"`
	Sections    []domain.Section `json:"sections" validate:"max=32"`
}

type advanceRequest struct {
	CurrentSection string `json:"currentSection" validate:"required,notblank"`
}

type actionRequest struct {
	Action     string            `json:"action" validate:"required,notblank,max=64"`
	Section    string            `json:"section"`
	Data       json.RawMessage   `json:"data"`
	DeviceInfo domain.DeviceInfo `json:"deviceInfo"`
}

type completeRequest struct {
	Data        json.RawMessage `json:"data"`
	StarsEarned *int            `json:"starsEarned"`
}

func (h *activityHandler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.activities.ListActivities(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, list, "")
}

func (h *activityHandler) get(w http.ResponseWriter, r *http.Request) {
	a, err := h.activities.Activity(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, a, "")
}

func (h *activityHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createActivityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, err)
		return
	}
	claims, _ := auth.FromContext(r.Context())
	created, err := h.activities.CreateActivity(r.Context(), claims.Role, claims.UserID, domain.Activity{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		Icon:        req.Icon,
		Color:       req.Color,
		Difficulty:  req.Difficulty,
		Duration:    req.Duration,
		Path:        req.Path,
		Emoji:       req.Emoji,
		Reward:      req.Reward,
		Story:       req.Story,
		VideoURL:    req.VideoURL,
		Sections:    req.Sections,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusCreated, created, "Activity created successfully")
}

func (h *activityHandler) progress(w http.ResponseWriter, r *http.Request) {
	session, err := h.activities.Progress(r.Context(), r.PathValue("id"), r.PathValue("userId"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, session, "")
}

func (h *activityHandler) advance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, err)
		return
	}
	session, err := h.activities.Advance(r.Context(), r.PathValue("id"), r.PathValue("userId"), req.CurrentSection)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, session, "")
}

func (h *activityHandler) action(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, err)
		return
	}
	if req.DeviceInfo.UserAgent == "" {
		req.DeviceInfo.UserAgent = r.UserAgent()
	}
	rec, err := h.activities.RecordAction(r.Context(), domain.ActionRecord{
		ActivityID: r.PathValue("id"),
		UserID:     r.PathValue("userId"),
		Action:     req.Action,
		Section:    req.Section,
		Data:       req.Data,
		DeviceInfo: req.DeviceInfo,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusCreated, rec, "Action logged")
}

func (h *activityHandler) complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	// an empty body completes a section without payload
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, err)
		return
	}
	res, err := h.activities.CompleteSection(r.Context(),
		r.PathValue("id"), r.PathValue("userId"), r.PathValue("section"),
		req.Data, req.StarsEarned)
	if err != nil {
		respondError(w, err)
		return
	}
	msg := "Section already completed"
	if res.First {
		msg = "Section completed"
	}
	respondOK(w, http.StatusOK, res, msg)
}

func (h *activityHandler) embedResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.activities.EmbedResults(r.Context(), r.PathValue("id"), r.PathValue("userId"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, results, "")
}
