// Package authservice troca credenciais de cliente (operadores e serviços chamadores) por JWTs.
package authservice

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"stockflow/internal/domain"
	apperror "stockflow/internal/errors"
	"stockflow/internal/pkg/logger"
)

// TokenIssuer é o contrato da camada de token (internal/pkg/token).
type TokenIssuer interface {
	GenerateToken(subject string, role string) (string, error)
}

// Client é uma credencial cadastrada via API_CLIENTS.
type Client struct {
	ID         string
	Role       domain.Role
	SecretHash []byte
}

// ParseClients converte entradas "id" -> "papel:hashBcrypt".
func ParseClients(raw map[string]string) (map[string]Client, error) {
	clients := make(map[string]Client, len(raw))
	for id, entry := range raw {
		role, hash, ok := strings.Cut(entry, ":")
		if !ok || hash == "" {
			return nil, fmt.Errorf("cliente %s: use o formato papel:hash", id)
		}
		if !domain.Role(role).Valid() {
			return nil, fmt.Errorf("cliente %s: papel desconhecido %q", id, role)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("cliente %s: hash bcrypt inválido: %w", id, err)
		}
		clients[id] = Client{ID: id, Role: domain.Role(role), SecretHash: []byte(hash)}
	}
	return clients, nil
}

// HashSecret gera o hash bcrypt usado na configuração de um cliente.
func HashSecret(secret string) (string, error) {
	if len(secret) < 12 {
		return "", fmt.Errorf("o segredo deve ter ao menos 12 caracteres")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

type Service struct {
	clients map[string]Client
	tokens  TokenIssuer
	logger  logger.Logger
}

func NewService(clients map[string]Client, tokens TokenIssuer, logger logger.Logger) *Service {
	return &Service{clients: clients, tokens: tokens, logger: logger}
}

// Authenticate valida o segredo do cliente e emite um token com o papel cadastrado.
// Cliente desconhecido e segredo errado devolvem o mesmo erro.
func (s *Service) Authenticate(ctx context.Context, clientID, secret string) (string, error) {
	if clientID == "" || secret == "" {
		return "", apperror.NewUnauthorizedError("client_id e client_secret são obrigatórios.")
	}

	client, ok := s.clients[clientID]
	if !ok {
		s.logger.Warn("Tentativa de autenticação com cliente desconhecido.", map[string]interface{}{"client_id": clientID})
		return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
	}
	if err := bcrypt.CompareHashAndPassword(client.SecretHash, []byte(secret)); err != nil {
		s.logger.Warn("Segredo inválido.", map[string]interface{}{"client_id": clientID})
		return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
	}

	signed, err := s.tokens.GenerateToken(client.ID, string(client.Role))
	if err != nil {
		s.logger.Error("Falha ao gerar token.", err)
		return "", apperror.NewInternalError("Falha ao gerar token de autenticação.", err)
	}

	s.logger.Info("Token emitido.", map[string]interface{}{"client_id": clientID, "role": string(client.Role)})
	return signed, nil
}
