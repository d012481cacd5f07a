package http

import (
	"net/http"
	"time"

	"sparklab/internal/app"
	"sparklab/internal/domain"
)

type quizHandler struct {
	quizzes  *app.QuizService
	validate *requestValidator
}

type saveResultRequest struct {
	QuizName   string    `json:"quizName" validate:"required,notblank"`
	User       string    `json:"user"`
	UserID     string    `json:"userId" validate:"required,notblank"`
	Username   string    `json:"username" validate:"required,notblank"`
	Email      string    `json:"email" validate:"omitempty,email"`
	TotalMarks int       `json:"totalMarks" validate:"gte=0"`
	Date       time.Time `json:"date"`
}

type submitRequest struct {
	User     string   `json:"user"`
	UserID   string   `json:"userId" validate:"required,notblank"`
	Username string   `json:"username" validate:"required,notblank"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Answers  []string `json:"answers" validate:"max=100"`
}

func (h *quizHandler) results(w http.ResponseWriter, r *http.Request) {
	results, err := h.quizzes.Results(r.Context(), r.URL.Query().Get("searchText"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, results, "")
}

func (h *quizHandler) saveResult(w http.ResponseWriter, r *http.Request) {
	var req saveResultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, err)
		return
	}
	saved, err := h.quizzes.SaveResult(r.Context(), domain.QuizResult{
		QuizName:   req.QuizName,
		User:       req.User,
		UserID:     req.UserID,
		Username:   req.Username,
		Email:      req.Email,
		TotalMarks: req.TotalMarks,
		Date:       req.Date,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusCreated, saved, "Quiz results saved successfully")
}

func (h *quizHandler) quiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quizzes.Quiz(r.Context(), r.PathValue("name"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, quiz, "")
}

func (h *quizHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, err)
		return
	}
	out, err := h.quizzes.Submit(r.Context(), r.PathValue("name"), app.Submission{
		Taker: app.Taker{
			User:     req.User,
			UserID:   req.UserID,
			Username: req.Username,
			Email:    req.Email,
		},
		Answers: req.Answers,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusCreated, out, out.Encouragement)
}
