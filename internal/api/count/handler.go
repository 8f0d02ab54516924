package count

import (
	"context"
	"net/http"

	"stockflow/internal/api/respond"
	"stockflow/internal/domain"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/middleware"
	"stockflow/internal/service/countservice"
)

// CountService define o contrato do workflow de contagem (inventário cíclico).
type CountService interface {
	Create(ctx context.Context, req countservice.CreateRequest) (domain.StockCount, error)
	RecordCount(ctx context.Context, id, productID string, counted int, countedBy string) (domain.StockCount, error)
	Complete(ctx context.Context, id, performedBy string) (domain.StockCount, error)
	Cancel(ctx context.Context, id, cancelledBy string) (domain.StockCount, error)
	Get(ctx context.Context, id string) (domain.StockCount, error)
	List(ctx context.Context, filter domain.CountFilter) ([]domain.StockCount, error)
}

type Handler struct {
	Service CountService
	Logger  logger.Logger
}

func NewHandler(svc CountService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// CreateHandler lida com POST /v1/counts.
// @Summary Abre uma contagem de estoque
// @Tags counts
// @Accept json
// @Produce json
// @Param count body countservice.CreateRequest true "Armazém, tipo e produtos"
// @Success 201 {object} domain.StockCount "Contagem planejada"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 404 {object} domain.ErrorResponse "Armazém não encontrado"
// @Security ApiKeyAuth
// @Router /counts [post]
func (h *Handler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var req countservice.CreateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.JSON(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}
	req.CreatedBy = middleware.ActorFromContext(r.Context())

	c, err := h.Service.Create(r.Context(), req)
	respond.JSON(w, r, h.Logger, c, err, http.StatusCreated)
}

// GetHandler lida com GET /v1/counts/{id}.
// @Summary Busca uma contagem
// @Tags counts
// @Produce json
// @Param id path string true "ID da contagem"
// @Success 200 {object} domain.StockCount "Contagem encontrada"
// @Failure 404 {object} domain.ErrorResponse "Contagem não encontrada"
// @Security ApiKeyAuth
// @Router /counts/{id} [get]
func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.Get(r.Context(), r.PathValue("id"))
	respond.JSON(w, r, h.Logger, c, err, http.StatusOK)
}

// ListHandler lida com GET /v1/counts?warehouse_id=&status=.
// @Summary Lista contagens
// @Tags counts
// @Produce json
// @Param warehouse_id query string false "Filtra por armazém"
// @Param status query string false "Status"
// @Success 200 {array} domain.StockCount "Contagens"
// @Security ApiKeyAuth
// @Router /counts [get]
func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.CountFilter{WarehouseID: q.Get("warehouse_id"), Status: domain.CountStatus(q.Get("status"))}

	list, err := h.Service.List(r.Context(), filter)
	respond.JSON(w, r, h.Logger, list, err, http.StatusOK)
}

type lineRequest struct {
	ProductID string `json:"product_id"`
	Counted   int    `json:"counted"`
}

// RecordLineHandler lida com POST /v1/counts/{id}/lines.
// @Summary Registra a quantidade contada de um produto
// @Tags counts
// @Accept json
// @Produce json
// @Param id path string true "ID da contagem"
// @Param line body lineRequest true "Produto e quantidade contada"
// @Success 200 {object} domain.StockCount "Contagem atualizada"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Estado inválido"
// @Security ApiKeyAuth
// @Router /counts/{id}/lines [post]
func (h *Handler) RecordLineHandler(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.JSON(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	c, err := h.Service.RecordCount(r.Context(), r.PathValue("id"), req.ProductID, req.Counted, middleware.ActorFromContext(r.Context()))
	respond.JSON(w, r, h.Logger, c, err, http.StatusOK)
}

// CompleteHandler aplica as diferenças contadas no ledger.
// @Summary Conclui a contagem e ajusta as diferenças
// @Tags counts
// @Produce json
// @Param id path string true "ID da contagem"
// @Success 200 {object} domain.StockCount "Contagem concluída"
// @Failure 409 {object} domain.ErrorResponse "Estado inválido"
// @Security ApiKeyAuth
// @Router /counts/{id}/complete [post]
func (h *Handler) CompleteHandler(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.Complete(r.Context(), r.PathValue("id"), middleware.ActorFromContext(r.Context()))
	respond.JSON(w, r, h.Logger, c, err, http.StatusOK)
}

// @Summary Cancela uma contagem
// @Tags counts
// @Produce json
// @Param id path string true "ID da contagem"
// @Success 200 {object} domain.StockCount "Contagem cancelada"
// @Failure 409 {object} domain.ErrorResponse "Estado inválido"
// @Security ApiKeyAuth
// @Router /counts/{id}/cancel [post]
func (h *Handler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.Cancel(r.Context(), r.PathValue("id"), middleware.ActorFromContext(r.Context()))
	respond.JSON(w, r, h.Logger, c, err, http.StatusOK)
}
