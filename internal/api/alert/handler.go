package alert

import (
	"context"
	"net/http"

	"stockflow/internal/api/respond"
	"stockflow/internal/domain"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/service/alertservice"
)

type AlertService interface {
	LowStockAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.LowStockAlert, error)
}

type Handler struct {
	Service AlertService
	Logger  logger.Logger
}

func NewHandler(svc AlertService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

type lowStockResponse struct {
	Alerts  []domain.LowStockAlert       `json:"alerts"`
	Summary map[domain.AlertSeverity]int `json:"summary"`
}

// LowStockHandler lida com GET /v1/alerts/low-stock?warehouse_id=&min_severity=.
// @Summary Lista alertas de estoque baixo
// @Tags alerts
// @Produce json
// @Param warehouse_id query string false "Filtra por armazém"
// @Param min_severity query string false "warning, critical ou out_of_stock"
// @Success 200 {object} lowStockResponse "Alertas e resumo por severidade"
// @Failure 400 {object} domain.ErrorResponse "Severidade inválida"
// @Security ApiKeyAuth
// @Router /alerts/low-stock [get]
func (h *Handler) LowStockHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.AlertFilter{
		WarehouseID: q.Get("warehouse_id"),
		MinSeverity: domain.AlertSeverity(q.Get("min_severity")),
	}

	alerts, err := h.Service.LowStockAlerts(r.Context(), filter)
	if err != nil {
		respond.JSON(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}
	respond.JSON(w, r, h.Logger, lowStockResponse{Alerts: alerts, Summary: alertservice.Summarize(alerts)}, nil, http.StatusOK)
}
