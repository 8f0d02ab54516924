package inventory

import (
	"context"
	"net/http"

	"stockflow/internal/api/respond"
	"stockflow/internal/domain"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/middleware"
	"stockflow/internal/service/stockservice"
)

// StockService define o contrato que o Handler espera do ledger.
type StockService interface {
	Reserve(ctx context.Context, productID, warehouseID string, qty int, reference, actor string) (domain.InventoryItem, error)
	Release(ctx context.Context, productID, warehouseID string, qty int, reference, actor string) (domain.InventoryItem, error)
	ConfirmDeduction(ctx context.Context, productID, warehouseID string, qty int, reference, actor string) (domain.InventoryItem, error)
	Adjust(ctx context.Context, req stockservice.AdjustRequest) (domain.InventoryItem, error)
	GetItem(ctx context.Context, productID, warehouseID string) (domain.InventoryItem, error)
	ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.InventoryItem, error)
	ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.StockMovement, error)
	Replay(ctx context.Context, productID, warehouseID string) (stockservice.ReplayResult, error)
	ConfigureItem(ctx context.Context, productID, warehouseID string, settings domain.ItemSettings) (domain.InventoryItem, error)
}

// Handler agrupa todos os métodos de Handler de estoque.
type Handler struct {
	Service StockService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc StockService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// quantityRequest é o corpo de reserve, release e confirm.
type quantityRequest struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int    `json:"quantity"`
	Reference   string `json:"reference"`
}

type ledgerOp func(ctx context.Context, productID, warehouseID string, qty int, reference, actor string) (domain.InventoryItem, error)

func (h *Handler) quantityOp(op ledgerOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quantityRequest
		if err := respond.Decode(r, &req); err != nil {
			respond.JSON(w, r, h.Logger, nil, err, http.StatusBadRequest)
			return
		}

		item, err := op(r.Context(), req.ProductID, req.WarehouseID, req.Quantity, req.Reference, middleware.ActorFromContext(r.Context()))
		respond.JSON(w, r, h.Logger, item, err, http.StatusOK)
	}
}

// ReserveHandler lida com POST /v1/inventory/reserve.
// @Summary Reserva estoque de um item
// @Tags inventory
// @Accept json
// @Produce json
// @Param request body quantityRequest true "Produto, armazém, quantidade e referência"
// @Success 200 {object} domain.InventoryItem "Item após a reserva"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 404 {object} domain.ErrorResponse "Armazém não encontrado"
// @Failure 409 {object} domain.ErrorResponse "Estoque insuficiente"
// @Security ApiKeyAuth
// @Router /inventory/reserve [post]
func (h *Handler) ReserveHandler(w http.ResponseWriter, r *http.Request) {
	h.quantityOp(h.Service.Reserve)(w, r)
}

// ReleaseHandler lida com POST /v1/inventory/release.
// @Summary Libera estoque reservado
// @Tags inventory
// @Accept json
// @Produce json
// @Param request body quantityRequest true "Produto, armazém, quantidade e referência"
// @Success 200 {object} domain.InventoryItem "Item após a liberação"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Liberação maior que o reservado"
// @Security ApiKeyAuth
// @Router /inventory/release [post]
func (h *Handler) ReleaseHandler(w http.ResponseWriter, r *http.Request) {
	h.quantityOp(h.Service.Release)(w, r)
}

// ConfirmHandler lida com POST /v1/inventory/confirm (baixa de venda).
// @Summary Confirma a baixa de estoque reservado
// @Tags inventory
// @Accept json
// @Produce json
// @Param request body quantityRequest true "Produto, armazém, quantidade e referência"
// @Success 200 {object} domain.InventoryItem "Item após a baixa"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Baixa maior que o reservado"
// @Security ApiKeyAuth
// @Router /inventory/confirm [post]
func (h *Handler) ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	h.quantityOp(h.Service.ConfirmDeduction)(w, r)
}

// AdjustStockHandler lida com a requisição POST /v1/inventory/adjust.
// @Summary Ajusta a quantidade física de um item
// @Tags inventory
// @Accept json
// @Produce json
// @Param adjustment body stockservice.AdjustRequest true "Delta com sinal, tipo e motivo"
// @Success 200 {object} domain.InventoryItem "Item ajustado"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Ajuste deixaria o item inconsistente"
// @Security ApiKeyAuth
// @Router /inventory/adjust [post]
func (h *Handler) AdjustStockHandler(w http.ResponseWriter, r *http.Request) {
	var req stockservice.AdjustRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.JSON(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}
	req.Actor = middleware.ActorFromContext(r.Context())

	item, err := h.Service.Adjust(r.Context(), req)
	respond.JSON(w, r, h.Logger, item, err, http.StatusOK)
}

// GetItemHandler lida com GET /v1/inventory/{warehouseID}/{productID}.
// @Summary Busca um item de estoque
// @Tags inventory
// @Produce json
// @Param warehouseID path string true "ID do armazém"
// @Param productID path string true "ID do produto"
// @Success 200 {object} domain.InventoryItem "Item encontrado"
// @Failure 404 {object} domain.ErrorResponse "Item não encontrado"
// @Security ApiKeyAuth
// @Router /inventory/{warehouseID}/{productID} [get]
func (h *Handler) GetItemHandler(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.GetItem(r.Context(), r.PathValue("productID"), r.PathValue("warehouseID"))
	respond.JSON(w, r, h.Logger, item, err, http.StatusOK)
}

// ListItemsHandler lida com GET /v1/inventory?warehouse_id=&product_id=. product_id pode se repetir.
// @Summary Lista itens de estoque
// @Tags inventory
// @Produce json
// @Param warehouse_id query string false "Filtra por armazém"
// @Param product_id query []string false "Filtra por produto (pode repetir)"
// @Success 200 {array} domain.InventoryItem "Itens em ordem de chave"
// @Security ApiKeyAuth
// @Router /inventory [get]
func (h *Handler) ListItemsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ItemFilter{WarehouseID: q.Get("warehouse_id"), ProductIDs: q["product_id"]}

	items, err := h.Service.ListItems(r.Context(), filter)
	respond.JSON(w, r, h.Logger, items, err, http.StatusOK)
}

// ConfigureItemHandler lida com PUT /v1/inventory/{warehouseID}/{productID}/settings.
// @Summary Configura ponto de reposição, localização e custos
// @Tags inventory
// @Accept json
// @Produce json
// @Param warehouseID path string true "ID do armazém"
// @Param productID path string true "ID do produto"
// @Param settings body domain.ItemSettings true "Campos a alterar"
// @Success 200 {object} domain.InventoryItem "Item configurado"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 404 {object} domain.ErrorResponse "Armazém não encontrado"
// @Security ApiKeyAuth
// @Router /inventory/{warehouseID}/{productID}/settings [put]
func (h *Handler) ConfigureItemHandler(w http.ResponseWriter, r *http.Request) {
	var settings domain.ItemSettings
	if err := respond.Decode(r, &settings); err != nil {
		respond.JSON(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	item, err := h.Service.ConfigureItem(r.Context(), r.PathValue("productID"), r.PathValue("warehouseID"), settings)
	respond.JSON(w, r, h.Logger, item, err, http.StatusOK)
}

// ReplayHandler lida com GET /v1/inventory/{warehouseID}/{productID}/replay.
// @Summary Reconstrói a quantidade a partir das movimentações
// @Tags inventory
// @Produce json
// @Param warehouseID path string true "ID do armazém"
// @Param productID path string true "ID do produto"
// @Success 200 {object} stockservice.ReplayResult "Resultado da reconstrução"
// @Security ApiKeyAuth
// @Router /inventory/{warehouseID}/{productID}/replay [get]
func (h *Handler) ReplayHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.Replay(r.Context(), r.PathValue("productID"), r.PathValue("warehouseID"))
	respond.JSON(w, r, h.Logger, result, err, http.StatusOK)
}

// ListMovementsHandler lida com GET /v1/movements?product_id=&warehouse_id=&type=&reference=&limit=.
// @Summary Lista movimentações de estoque
// @Tags movements
// @Produce json
// @Param product_id query string false "Filtra por produto"
// @Param warehouse_id query string false "Filtra por armazém"
// @Param type query string false "Tipo de movimentação"
// @Param reference query string false "Referência externa"
// @Param limit query int false "Mantém as N mais recentes"
// @Success 200 {array} domain.StockMovement "Movimentações em ordem de sequência"
// @Failure 400 {object} domain.ErrorResponse "Parâmetro inválido"
// @Security ApiKeyAuth
// @Router /movements [get]
func (h *Handler) ListMovementsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := respond.QueryInt(r, "limit", 0)
	if err != nil {
		respond.JSON(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}
	q := r.URL.Query()
	filter := domain.MovementFilter{
		ProductID:   q.Get("product_id"),
		WarehouseID: q.Get("warehouse_id"),
		Type:        domain.MovementType(q.Get("type")),
		Reference:   q.Get("reference"),
		Limit:       limit,
	}

	movements, err := h.Service.ListMovements(r.Context(), filter)
	respond.JSON(w, r, h.Logger, movements, err, http.StatusOK)
}
