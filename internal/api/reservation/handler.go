package reservation

import (
	"context"
	"net/http"
	"time"

	"stockflow/internal/api/respond"
	"stockflow/internal/domain"
	apperror "stockflow/internal/errors"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/middleware"
	"stockflow/internal/service/reservationservice"
)

type ReservationService interface {
	Hold(ctx context.Context, req reservationservice.HoldRequest) (domain.Reservation, error)
	Confirm(ctx context.Context, id, actor string) (domain.Reservation, error)
	Release(ctx context.Context, id, actor string) (domain.Reservation, error)
	GetReservation(ctx context.Context, id string) (domain.Reservation, error)
	ListReservations(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error)
}

type Handler struct {
	Service ReservationService
	Logger  logger.Logger
}

func NewHandler(svc ReservationService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// holdRequest aceita o TTL em segundos; zero usa o padrão do serviço.
type holdRequest struct {
	reservationservice.HoldRequest
	TTLSeconds int `json:"ttl_seconds,omitempty"`
}

// HoldHandler lida com POST /v1/reservations. Sem warehouse_id o seletor escolhe o armazém.
// @Summary Cria uma reserva com prazo de expiração
// @Tags reservations
// @Accept json
// @Produce json
// @Param hold body holdRequest true "Produto, quantidade, referência e TTL"
// @Success 201 {object} domain.Reservation "Reserva ativa"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Estoque insuficiente"
// @Security ApiKeyAuth
// @Router /reservations [post]
func (h *Handler) HoldHandler(w http.ResponseWriter, r *http.Request) {
	var req holdRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.JSON(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}
	if req.TTLSeconds < 0 {
		respond.JSON(w, r, h.Logger, nil, apperror.NewValidationError("ttl_seconds não pode ser negativo."), http.StatusBadRequest)
		return
	}
	hold := req.HoldRequest
	hold.TTL = time.Duration(req.TTLSeconds) * time.Second
	hold.Actor = middleware.ActorFromContext(r.Context())

	res, err := h.Service.Hold(r.Context(), hold)
	respond.JSON(w, r, h.Logger, res, err, http.StatusCreated)
}

// GetHandler lida com GET /v1/reservations/{id}.
// @Summary Busca uma reserva
// @Tags reservations
// @Produce json
// @Param id path string true "ID da reserva"
// @Success 200 {object} domain.Reservation "Reserva encontrada"
// @Failure 404 {object} domain.ErrorResponse "Reserva não encontrada"
// @Security ApiKeyAuth
// @Router /reservations/{id} [get]
func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.GetReservation(r.Context(), r.PathValue("id"))
	respond.JSON(w, r, h.Logger, res, err, http.StatusOK)
}

// ListHandler lida com GET /v1/reservations?reference=&status=&limit=.
// @Summary Lista reservas
// @Tags reservations
// @Produce json
// @Param reference query string false "Referência externa"
// @Param status query string false "Status"
// @Param limit query int false "Quantidade máxima"
// @Success 200 {array} domain.Reservation "Reservas por vencimento"
// @Failure 400 {object} domain.ErrorResponse "Parâmetro inválido"
// @Security ApiKeyAuth
// @Router /reservations [get]
func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := respond.QueryInt(r, "limit", 0)
	if err != nil {
		respond.JSON(w, r, h.Logger, nil, err, http.StatusBadRequest)
		return
	}
	q := r.URL.Query()
	filter := domain.ReservationFilter{
		Reference: q.Get("reference"),
		Status:    domain.ReservationStatus(q.Get("status")),
		Limit:     limit,
	}

	list, err := h.Service.ListReservations(r.Context(), filter)
	respond.JSON(w, r, h.Logger, list, err, http.StatusOK)
}

// ConfirmHandler converte a reserva em baixa de estoque.
// @Summary Confirma uma reserva
// @Tags reservations
// @Produce json
// @Param id path string true "ID da reserva"
// @Success 200 {object} domain.Reservation "Reserva confirmada"
// @Failure 409 {object} domain.ErrorResponse "Reserva encerrada ou expirada"
// @Security ApiKeyAuth
// @Router /reservations/{id}/confirm [post]
func (h *Handler) ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Confirm(r.Context(), r.PathValue("id"), middleware.ActorFromContext(r.Context()))
	respond.JSON(w, r, h.Logger, res, err, http.StatusOK)
}

// @Summary Libera uma reserva
// @Tags reservations
// @Produce json
// @Param id path string true "ID da reserva"
// @Success 200 {object} domain.Reservation "Reserva liberada"
// @Failure 409 {object} domain.ErrorResponse "Reserva já encerrada"
// @Security ApiKeyAuth
// @Router /reservations/{id}/release [post]
func (h *Handler) ReleaseHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Release(r.Context(), r.PathValue("id"), middleware.ActorFromContext(r.Context()))
	respond.JSON(w, r, h.Logger, res, err, http.StatusOK)
}
