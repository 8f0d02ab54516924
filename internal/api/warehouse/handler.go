package warehouse

import (
	"context"
	"net/http"

	"stockflow/internal/api/respond"
	"stockflow/internal/domain"
	"stockflow/internal/pkg/logger"
)

// WarehouseService define o contrato que o Handler espera da camada de Serviço.
type WarehouseService interface {
	CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error)
	GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error)
	GetAllWarehouses(ctx context.Context, filter domain.WarehouseFilter) ([]domain.Warehouse, error)
	UpdateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error)
	SetStatus(ctx context.Context, id string, status domain.WarehouseStatus) (domain.Warehouse, error)
}

// CapacityService calcula a ocupação volumétrica a partir do ledger.
type CapacityService interface {
	Capacity(ctx context.Context, warehouseID string) (domain.WarehouseCapacity, error)
}

// Handler agrupa todos os métodos de Handler de armazéns.
type Handler struct {
	Service  WarehouseService
	Capacity CapacityService
	Logger   logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc WarehouseService, capacity CapacityService, log logger.Logger) *Handler {
	return &Handler{
		Service:  svc,
		Capacity: capacity,
		Logger:   log,
	}
}

// CreateWarehouseHandler lida com a requisição POST /v1/warehouses.
// @Summary Cria um novo armazém
// @Tags warehouses
// @Accept json
// @Produce json
// @Param warehouse body domain.Warehouse true "Dados do armazém para criação"
// @Success 201 {object} domain.Warehouse "Armazém criado com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Código já cadastrado"
// @Security ApiKeyAuth
// @Router /warehouses [post]
func (h *Handler) CreateWarehouseHandler(w http.ResponseWriter, r *http.Request) {
	var warehouse domain.Warehouse
	if err := respond.Decode(r, &warehouse); err != nil {
		respond.JSON(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	created, err := h.Service.CreateWarehouse(r.Context(), warehouse)
	respond.JSON(w, r, h.Logger, created, err, http.StatusCreated)
}

// GetWarehouseByIDHandler lida com a requisição GET /v1/warehouses/{id}.
// @Summary Obtém um armazém por ID
// @Tags warehouses
// @Produce json
// @Param id path string true "ID do Armazém"
// @Success 200 {object} domain.Warehouse "Armazém encontrado"
// @Failure 404 {object} domain.ErrorResponse "Armazém não encontrado"
// @Router /warehouses/{id} [get]
func (h *Handler) GetWarehouseByIDHandler(w http.ResponseWriter, r *http.Request) {
	warehouse, err := h.Service.GetWarehouseByID(r.Context(), r.PathValue("id"))
	respond.JSON(w, r, h.Logger, warehouse, err, http.StatusOK)
}

// GetAllWarehousesHandler lida com a requisição GET /v1/warehouses?status=&region=.
// @Summary Lista os armazéns
// @Tags warehouses
// @Produce json
// @Param status query string false "Filtra por status"
// @Param region query string false "Filtra por zona de entrega"
// @Success 200 {array} domain.Warehouse "Lista de armazéns"
// @Router /warehouses [get]
func (h *Handler) GetAllWarehousesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.WarehouseFilter{
		Status: domain.WarehouseStatus(q.Get("status")),
		Region: q.Get("region"),
	}

	warehouses, err := h.Service.GetAllWarehouses(r.Context(), filter)
	respond.JSON(w, r, h.Logger, warehouses, err, http.StatusOK)
}

// UpdateWarehouseHandler lida com a requisição PUT /v1/warehouses/{id}.
// O ID do path prevalece sobre o do corpo.
// @Summary Atualiza um armazém
// @Tags warehouses
// @Accept json
// @Produce json
// @Param id path string true "ID do Armazém"
// @Success 200 {object} domain.Warehouse "Armazém atualizado"
// @Failure 404 {object} domain.ErrorResponse "Armazém não encontrado"
// @Router /warehouses/{id} [put]
func (h *Handler) UpdateWarehouseHandler(w http.ResponseWriter, r *http.Request) {
	var warehouse domain.Warehouse
	if err := respond.Decode(r, &warehouse); err != nil {
		respond.JSON(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}
	warehouse.ID = r.PathValue("id")

	updated, err := h.Service.UpdateWarehouse(r.Context(), warehouse)
	respond.JSON(w, r, h.Logger, updated, err, http.StatusOK)
}

type statusRequest struct {
	Status domain.WarehouseStatus `json:"status"`
}

// SetStatusHandler lida com a requisição PATCH /v1/warehouses/{id}/status.
func (h *Handler) SetStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.JSON(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}

	updated, err := h.Service.SetStatus(r.Context(), r.PathValue("id"), req.Status)
	respond.JSON(w, r, h.Logger, updated, err, http.StatusOK)
}

// CapacityHandler lida com a requisição GET /v1/warehouses/{id}/capacity.
func (h *Handler) CapacityHandler(w http.ResponseWriter, r *http.Request) {
	capacity, err := h.Capacity.Capacity(r.Context(), r.PathValue("id"))
	respond.JSON(w, r, h.Logger, capacity, err, http.StatusOK)
}
