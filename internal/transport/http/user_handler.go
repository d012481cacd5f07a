package http

import (
	"net/http"

	"sparklab/internal/app"
	"sparklab/internal/domain"
)

type userHandler struct {
	users    *app.UserService
	validate *requestValidator
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	UserName string `json:"userName" validate:"required,notblank,max=64"`
	Password string `json:"password" validate:"required,min=6"`
	ID       string `json:"id" validate:"required,account_id"`
	Age      int    `json:"age" validate:"gte=0,lte=120"`
}

type loginRequest struct {
	ID       string `json:"id" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=STUDENT TEACHER"`
}

func (h *userHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, err)
		return
	}
	res, err := h.users.Register(r.Context(), app.Registration{
		Email:    req.Email,
		UserName: req.UserName,
		Password: req.Password,
		ID:       req.ID,
		Age:      req.Age,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusCreated, res, "User registered successfully")
}

func (h *userHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, err)
		return
	}
	res, err := h.users.Login(r.Context(), req.ID, req.Password, domain.Role(req.Role))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, res, "Login successful")
}

func (h *userHandler) students(w http.ResponseWriter, r *http.Request) {
	students, err := h.users.Students(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, students, "")
}
