package alertservice

import (
	"context"
	"fmt"
	"sort"

	"stockflow/internal/domain"
	apperror "stockflow/internal/errors"
	"stockflow/internal/pkg/logger"
)

// ItemLister é o que o monitor precisa do ledger.
type ItemLister interface {
	ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.InventoryItem, error)
}

// Service é o Low-Stock Monitor: leitura pura, nunca altera estado.
type Service struct {
	items    ItemLister
	velocity VelocitySource
	logger   logger.Logger
}

// NewService aceita velocity nil; nesse caso dias restantes nunca são calculados.
func NewService(items ItemLister, velocity VelocitySource, logger logger.Logger) *Service {
	return &Service{items: items, velocity: velocity, logger: logger}
}

// Classify devolve a severidade do item, ou "" quando não há alerta.
func Classify(item domain.InventoryItem) domain.AlertSeverity {
	available := item.Available()
	switch {
	case available <= 0:
		return domain.SeverityOutOfStock
	case float64(available) <= float64(item.ReorderPoint)*0.5:
		return domain.SeverityCritical
	case available <= item.ReorderPoint:
		return domain.SeverityWarning
	}
	return ""
}

// SuggestedReorder usa reorderQuantity ou, se zero, o necessário para chegar a 2x o ponto de reposição.
func SuggestedReorder(item domain.InventoryItem) int {
	if item.ReorderQuantity > 0 {
		return item.ReorderQuantity
	}
	if gap := 2*item.ReorderPoint - item.Available(); gap > 0 {
		return gap
	}
	return 0
}

// LowStockAlerts calcula o feed de alertas ordenado por severidade e dias restantes.
func (s *Service) LowStockAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.LowStockAlert, error) {
	if filter.MinSeverity != "" && filter.MinSeverity.Rank() == 0 {
		return nil, apperror.NewValidationError(fmt.Sprintf("Severidade inválida: %s.", filter.MinSeverity))
	}

	items, err := s.items.ListItems(ctx, domain.ItemFilter{WarehouseID: filter.WarehouseID})
	if err != nil {
		s.logger.Error("Falha ao listar itens para alertas.", err)
		return nil, apperror.NewInternalError("Falha interna ao calcular alertas.", err)
	}

	alerts := make([]domain.LowStockAlert, 0)
	for _, item := range items {
		severity := Classify(item)
		if severity == "" {
			continue
		}
		if filter.MinSeverity != "" && severity.Rank() < filter.MinSeverity.Rank() {
			continue
		}

		alert := domain.LowStockAlert{
			ProductID:        item.ProductID,
			WarehouseID:      item.WarehouseID,
			Severity:         severity,
			Quantity:         item.Quantity,
			Reserved:         item.Reserved,
			Available:        item.Available(),
			ReorderPoint:     item.ReorderPoint,
			SuggestedReorder: SuggestedReorder(item),
		}
		s.attachVelocity(ctx, &alert)
		alerts = append(alerts, alert)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if (a.DaysRemaining == nil) != (b.DaysRemaining == nil) {
			return a.DaysRemaining != nil
		}
		if a.DaysRemaining != nil && *a.DaysRemaining != *b.DaysRemaining {
			return *a.DaysRemaining < *b.DaysRemaining
		}
		if a.WarehouseID != b.WarehouseID {
			return a.WarehouseID < b.WarehouseID
		}
		return a.ProductID < b.ProductID
	})
	return alerts, nil
}

// attachVelocity preenche média e dias restantes. Falha na fonte não derruba o feed.
func (s *Service) attachVelocity(ctx context.Context, alert *domain.LowStockAlert) {
	if s.velocity == nil {
		return
	}
	v, ok, err := s.velocity.AverageDailySales(ctx, alert.ProductID, alert.WarehouseID)
	if err != nil {
		s.logger.Warn("Falha ao consultar velocidade de vendas.", map[string]interface{}{
			"product_id": alert.ProductID, "warehouse_id": alert.WarehouseID, "error": err.Error(),
		})
		return
	}
	if !ok || v <= 0 {
		return
	}
	available := alert.Available
	if available < 0 {
		available = 0
	}
	days := float64(available) / v
	alert.AverageDailySale = &v
	alert.DaysRemaining = &days
}

// Summarize conta alertas por severidade.
func Summarize(alerts []domain.LowStockAlert) map[domain.AlertSeverity]int {
	out := map[domain.AlertSeverity]int{
		domain.SeverityOutOfStock: 0,
		domain.SeverityCritical:   0,
		domain.SeverityWarning:    0,
	}
	for _, a := range alerts {
		out[a.Severity]++
	}
	return out
}
