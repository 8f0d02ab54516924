package fulfillment

import (
	"context"
	"net/http"

	"stockflow/internal/api/respond"
	"stockflow/internal/domain"
	apperror "stockflow/internal/errors"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/service/selectorservice"
)

// SelectorService escolhe armazéns capazes de atender um pedido.
type SelectorService interface {
	Candidates(ctx context.Context, productID string, qty int, region string) ([]selectorservice.Candidate, error)
	FindBestWarehouse(ctx context.Context, productID string, qty int, region string) (domain.Warehouse, error)
}

type Handler struct {
	Service SelectorService
	Logger  logger.Logger
}

func NewHandler(svc SelectorService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

type query struct {
	productID string
	quantity  int
	region    string
}

func parseQuery(r *http.Request) (query, error) {
	qty, err := respond.QueryInt(r, "quantity", 1)
	if err != nil {
		return query{}, err
	}
	q := query{productID: r.URL.Query().Get("product_id"), quantity: qty, region: r.URL.Query().Get("region")}
	if q.productID == "" {
		return query{}, apperror.NewValidationError("product_id é obrigatório.")
	}
	return q, nil
}

// BestWarehouseHandler lida com GET /v1/fulfillment/warehouse?product_id=&quantity=&region=.
// @Summary Escolhe o melhor armazém para atender um pedido
// @Tags fulfillment
// @Produce json
// @Param product_id query string true "ID do produto"
// @Param quantity query int false "Quantidade (padrão 1)"
// @Param region query string false "Zona de entrega"
// @Success 200 {object} domain.Warehouse "Armazém escolhido"
// @Failure 400 {object} domain.ErrorResponse "Parâmetro inválido"
// @Failure 404 {object} domain.ErrorResponse "Nenhum armazém atende"
// @Security ApiKeyAuth
// @Router /fulfillment/warehouse [get]
func (h *Handler) BestWarehouseHandler(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		respond.JSON(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	warehouse, err := h.Service.FindBestWarehouse(r.Context(), q.productID, q.quantity, q.region)
	respond.JSON(w, r, h.Logger, warehouse, err, http.StatusOK)
}

// CandidatesHandler lida com GET /v1/fulfillment/candidates, na ordem de preferência.
// @Summary Lista armazéns candidatos em ordem de preferência
// @Tags fulfillment
// @Produce json
// @Param product_id query string true "ID do produto"
// @Param quantity query int false "Quantidade (padrão 1)"
// @Param region query string false "Zona de entrega"
// @Success 200 {array} selectorservice.Candidate "Candidatos"
// @Failure 400 {object} domain.ErrorResponse "Parâmetro inválido"
// @Security ApiKeyAuth
// @Router /fulfillment/candidates [get]
func (h *Handler) CandidatesHandler(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		respond.JSON(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	candidates, err := h.Service.Candidates(r.Context(), q.productID, q.quantity, q.region)
	respond.JSON(w, r, h.Logger, candidates, err, http.StatusOK)
}
