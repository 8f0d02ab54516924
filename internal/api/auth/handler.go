package auth

import (
	"context"
	"net/http"

	"stockflow/internal/api/respond"
	"stockflow/internal/pkg/logger"
)

// AuthService define o contrato de emissão de tokens.
type AuthService interface {
	Authenticate(ctx context.Context, clientID, secret string) (string, error)
}

// TokenRequest representa o payload de entrada da troca de credenciais.
type TokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type Handler struct {
	Service AuthService
	Logger  logger.Logger
}

func NewHandler(svc AuthService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// TokenHandler lida com a requisição POST /v1/auth/token.
// @Summary Troca credenciais de cliente por um JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body TokenRequest true "client_id e client_secret"
// @Success 200 {object} map[string]string "Token JWT emitido"
// @Failure 401 {object} domain.ErrorResponse "Credenciais inválidas"
// @Router /auth/token [post]
func (h *Handler) TokenHandler(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.JSON(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	token, err := h.Service.Authenticate(r.Context(), req.ClientID, req.ClientSecret)
	if err != nil {
		respond.JSON(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}
	respond.JSON(w, r, h.Logger, map[string]string{"token": token}, nil, http.StatusOK)
}
