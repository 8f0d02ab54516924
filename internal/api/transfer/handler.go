package transfer

import (
	"context"
	"net/http"

	"stockflow/internal/api/respond"
	"stockflow/internal/domain"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/middleware"
	"stockflow/internal/service/transferservice"
)

// TransferService define o contrato do workflow de transferências.
type TransferService interface {
	Request(ctx context.Context, req transferservice.TransferRequest) (domain.StockTransfer, error)
	Approve(ctx context.Context, id, approvedBy string) (domain.StockTransfer, error)
	Complete(ctx context.Context, id, receivedBy string, received map[string]int) (domain.StockTransfer, error)
	Cancel(ctx context.Context, id, cancelledBy string) (domain.StockTransfer, error)
	Get(ctx context.Context, id string) (domain.StockTransfer, error)
	List(ctx context.Context, filter domain.TransferFilter) ([]domain.StockTransfer, error)
}

type Handler struct {
	Service TransferService
	Logger  logger.Logger
}

func NewHandler(svc TransferService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// RequestHandler lida com POST /v1/transfers.
// @Summary Solicita uma transferência entre armazéns
// @Tags transfers
// @Accept json
// @Produce json
// @Param transfer body transferservice.TransferRequest true "Origem, destino e itens"
// @Success 201 {object} domain.StockTransfer "Transferência solicitada"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 404 {object} domain.ErrorResponse "Armazém não encontrado"
// @Security ApiKeyAuth
// @Router /transfers [post]
func (h *Handler) RequestHandler(w http.ResponseWriter, r *http.Request) {
	var req transferservice.TransferRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.JSON(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}
	req.RequestedBy = middleware.ActorFromContext(r.Context())

	t, err := h.Service.Request(r.Context(), req)
	respond.JSON(w, r, h.Logger, t, err, http.StatusCreated)
}

// GetHandler lida com GET /v1/transfers/{id}.
// @Summary Busca uma transferência
// @Tags transfers
// @Produce json
// @Param id path string true "ID da transferência"
// @Success 200 {object} domain.StockTransfer "Transferência encontrada"
// @Failure 404 {object} domain.ErrorResponse "Transferência não encontrada"
// @Security ApiKeyAuth
// @Router /transfers/{id} [get]
func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.Get(r.Context(), r.PathValue("id"))
	respond.JSON(w, r, h.Logger, t, err, http.StatusOK)
}

// ListHandler lida com GET /v1/transfers?warehouse_id=&status=. warehouse_id casa origem ou destino.
// @Summary Lista transferências
// @Tags transfers
// @Produce json
// @Param warehouse_id query string false "Origem ou destino"
// @Param status query string false "Status"
// @Success 200 {array} domain.StockTransfer "Transferências"
// @Security ApiKeyAuth
// @Router /transfers [get]
func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.TransferFilter{WarehouseID: q.Get("warehouse_id"), Status: domain.TransferStatus(q.Get("status"))}

	list, err := h.Service.List(r.Context(), filter)
	respond.JSON(w, r, h.Logger, list, err, http.StatusOK)
}

// ApproveHandler reserva o estoque na origem e coloca a transferência em trânsito.
// @Summary Aprova uma transferência pendente
// @Tags transfers
// @Produce json
// @Param id path string true "ID da transferência"
// @Success 200 {object} domain.StockTransfer "Transferência em trânsito"
// @Failure 409 {object} domain.ErrorResponse "Estado inválido ou estoque insuficiente"
// @Security ApiKeyAuth
// @Router /transfers/{id}/approve [post]
func (h *Handler) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.Approve(r.Context(), r.PathValue("id"), middleware.ActorFromContext(r.Context()))
	respond.JSON(w, r, h.Logger, t, err, http.StatusOK)
}

type completeRequest struct {
	Received map[string]int `json:"received,omitempty"`
}

// CompleteHandler lida com POST /v1/transfers/{id}/complete. Produtos ausentes de
// received são considerados recebidos integralmente.
// @Summary Conclui o recebimento de uma transferência
// @Tags transfers
// @Accept json
// @Produce json
// @Param id path string true "ID da transferência"
// @Param received body completeRequest false "Quantidades recebidas por produto"
// @Success 200 {object} domain.StockTransfer "Transferência concluída"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Estado inválido"
// @Security ApiKeyAuth
// @Router /transfers/{id}/complete [post]
func (h *Handler) CompleteHandler(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := respond.DecodeOptional(r, &req); err != nil {
		respond.JSON(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	t, err := h.Service.Complete(r.Context(), r.PathValue("id"), middleware.ActorFromContext(r.Context()), req.Received)
	respond.JSON(w, r, h.Logger, t, err, http.StatusOK)
}

// CancelHandler lida com POST /v1/transfers/{id}/cancel.
// @Summary Cancela uma transferência
// @Tags transfers
// @Produce json
// @Param id path string true "ID da transferência"
// @Success 200 {object} domain.StockTransfer "Transferência cancelada"
// @Failure 409 {object} domain.ErrorResponse "Estado inválido"
// @Security ApiKeyAuth
// @Router /transfers/{id}/cancel [post]
func (h *Handler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.Cancel(r.Context(), r.PathValue("id"), middleware.ActorFromContext(r.Context()))
	respond.JSON(w, r, h.Logger, t, err, http.StatusOK)
}
