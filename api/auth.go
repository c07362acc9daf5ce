package api

import (
	"encoding/json"
	"net/http"

	"github.com/garnizeh/intake/internal/auth"
	"github.com/garnizeh/intake/pkg/models"
)

type AuthHandler struct {
	gate *auth.Gate
	dev  bool
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(gate *auth.Gate, dev bool) *AuthHandler {
	return &AuthHandler{gate: gate, dev: dev}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool                `json:"success"`
	Token   string              `json:"token"`
	Admin   models.AdminProfile `json:"admin"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	res, err := h.gate.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err, h.dev)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Success: true, Token: res.Token, Admin: res.Admin})
}

// Me returns the admin the request was authenticated as.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	admin, ok := AdminFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: admin})
}
