package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yacosta738/go-shopping-cart/internal/auth"
)

type AuthHandler struct {
	Tokens *auth.TokenProvider
}

type tokenReq struct {
	UserID string `json:"user_id"`
}

type tokenResp struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/token", h.issueToken)
}

// issueToken hands out a bearer token for the given user id, minting a guest
// id when none is supplied.
func (h *AuthHandler) issueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenReq
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}
	if req.UserID == "" {
		req.UserID = "guest-" + uuid.NewString()
	}

	token, expiresAt, err := h.Tokens.Issue(req.UserID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "token generation failed"})
		return
	}
	writeJSON(w, http.StatusOK, tokenResp{UserID: req.UserID, Token: token, ExpiresAt: expiresAt})
}
