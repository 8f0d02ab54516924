package countservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"stockflow/internal/domain"
	apperror "stockflow/internal/errors"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/service/stockservice"
)

// AdjustmentReason é o motivo gravado nas movimentações geradas por uma contagem.
const AdjustmentReason = "stock count adjustment"

// Ledger é o subconjunto do Inventory Ledger usado pelas contagens.
type Ledger interface {
	ApplyWith(ctx context.Context, mutations []stockservice.Mutation, fn func(tx domain.LedgerTx) error) ([]domain.InventoryItem, error)
	ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.InventoryItem, error)
}

type WarehouseReader interface {
	GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error)
}

// CreateRequest abre uma sessão de contagem.
type CreateRequest struct {
	WarehouseID string           `json:"warehouse_id"`
	Type        domain.CountType `json:"type"`
	ProductIDs  []string         `json:"product_ids,omitempty"`
	CreatedBy   string           `json:"-"`
}

// Service conduz planned -> in_progress -> completed, ou cancelled.
type Service struct {
	ledger     Ledger
	repo       domain.CountRepository
	warehouses WarehouseReader
	logger     logger.Logger
	now        func() time.Time
	retries    int
}

func NewService(ledger Ledger, repo domain.CountRepository, warehouses WarehouseReader, logger logger.Logger) *Service {
	return &Service{
		ledger:     ledger,
		repo:       repo,
		warehouses: warehouses,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		retries:    3,
	}
}

// Create tira o snapshot de systemQuantity de todas as linhas no escopo.
func (s *Service) Create(ctx context.Context, req CreateRequest) (domain.StockCount, error) {
	s.logger.Debug("Iniciando criação de contagem.", map[string]interface{}{"warehouse_id": req.WarehouseID, "type": string(req.Type)})

	if !req.Type.Valid() {
		return domain.StockCount{}, apperror.NewValidationError(fmt.Sprintf("Tipo de contagem inválido: %s.", req.Type))
	}
	if _, err := s.warehouses.GetWarehouseByID(ctx, req.WarehouseID); err != nil {
		if apperror.IsWarehouseNotFound(err) || apperror.IsNotFound(err) {
			return domain.StockCount{}, apperror.NewWarehouseNotFoundError(req.WarehouseID)
		}
		return domain.StockCount{}, apperror.NewInternalError("Falha ao consultar armazém.", err)
	}

	var scope []string
	if req.Type != domain.CountFull {
		seen := make(map[string]struct{}, len(req.ProductIDs))
		for _, p := range req.ProductIDs {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if _, dup := seen[p]; !dup {
				seen[p] = struct{}{}
				scope = append(scope, p)
			}
		}
		if len(scope) == 0 {
			return domain.StockCount{}, apperror.NewValidationError("Contagens cycle e spot precisam de ao menos um produto.")
		}
	}

	items, err := s.ledger.ListItems(ctx, domain.ItemFilter{WarehouseID: req.WarehouseID, ProductIDs: scope})
	if err != nil {
		return domain.StockCount{}, err
	}
	system := make(map[string]int, len(items))
	for _, it := range items {
		system[it.ProductID] = it.Quantity
	}

	now := s.now()
	c := domain.StockCount{
		ID:          uuid.New().String(),
		WarehouseID: req.WarehouseID,
		Type:        req.Type,
		Status:      domain.CountPlanned,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Type == domain.CountFull {
		for _, it := range items {
			c.Items = append(c.Items, domain.StockCountItem{ProductID: it.ProductID, SystemQuantity: it.Quantity})
		}
	} else {
		for _, p := range scope {
			c.Items = append(c.Items, domain.StockCountItem{ProductID: p, SystemQuantity: system[p]})
		}
	}

	if _, err := s.ledger.ApplyWith(ctx, nil, func(tx domain.LedgerTx) error {
		return tx.SaveCount(ctx, c)
	}); err != nil {
		return domain.StockCount{}, err
	}

	c.Version = 1
	s.logger.Info("Contagem criada.", map[string]interface{}{"count_id": c.ID, "warehouse_id": c.WarehouseID, "lines": len(c.Items)})
	return c, nil
}

// RecordCount grava a contagem física de uma linha. Recontar sobrescreve.
func (s *Service) RecordCount(ctx context.Context, id, productID string, counted int, countedBy string) (domain.StockCount, error) {
	if counted < 0 {
		return domain.StockCount{}, apperror.NewValidationError("A quantidade contada não pode ser negativa.")
	}

	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		c, err := s.load(ctx, id, "record", domain.CountPlanned, domain.CountInProgress)
		if err != nil {
			return domain.StockCount{}, err
		}

		idx := -1
		for i, line := range c.Items {
			if line.ProductID == productID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return domain.StockCount{}, apperror.NewNotFoundError(fmt.Sprintf("Produto %s não faz parte da contagem %s.", productID, id))
		}

		now := s.now()
		updated := c
		updated.Items = append([]domain.StockCountItem(nil), c.Items...)
		line := updated.Items[idx]
		value := counted
		line.CountedQuantity = &value
		line.Variance = counted - line.SystemQuantity
		line.CountedBy = countedBy
		line.CountedAt = &now
		updated.Items[idx] = line
		if updated.Status == domain.CountPlanned {
			updated.Status = domain.CountInProgress
			updated.StartedAt = &now
		}
		updated.UpdatedAt = now

		_, err = s.ledger.ApplyWith(ctx, nil, func(tx domain.LedgerTx) error {
			return tx.SaveCount(ctx, updated)
		})
		if err == nil {
			updated.Version = c.Version + 1
			s.logger.Debug("Contagem registrada.", map[string]interface{}{"count_id": id, "product_id": productID, "variance": line.Variance})
			return updated, nil
		}
		if !apperror.IsConflict(err) {
			return domain.StockCount{}, err
		}
		// Outra linha foi registrada ao mesmo tempo; recarrega e tenta de novo.
		lastErr = err
	}
	return domain.StockCount{}, lastErr
}

// Complete ajusta cada linha contada com variância diferente de zero, tudo ou nada.
// Linhas não contadas são ignoradas.
func (s *Service) Complete(ctx context.Context, id, performedBy string) (domain.StockCount, error) {
	c, err := s.load(ctx, id, "complete", domain.CountPlanned, domain.CountInProgress)
	if err != nil {
		return domain.StockCount{}, err
	}

	var mutations []stockservice.Mutation
	for _, line := range c.Items {
		if !line.Counted() || line.Variance == 0 {
			continue
		}
		mutations = append(mutations, stockservice.Mutation{
			Kind:         stockservice.KindAdjust,
			ProductID:    line.ProductID,
			WarehouseID:  c.WarehouseID,
			Quantity:     line.Variance,
			Type:         domain.MovementAdjustment,
			Reason:       AdjustmentReason,
			Reference:    c.ID,
			Actor:        performedBy,
			StampCounted: true,
		})
	}

	now := s.now()
	updated := c
	updated.Status = domain.CountCompleted
	updated.CompletedBy = performedBy
	updated.CompletedAt = &now
	updated.UpdatedAt = now

	if err := s.transition(ctx, c, updated, "complete", mutations); err != nil {
		return domain.StockCount{}, err
	}

	updated.Version = c.Version + 1
	_, _, discrepancies, net := updated.Summary()
	s.logger.Info("Contagem concluída.", map[string]interface{}{"count_id": id, "adjusted_lines": discrepancies, "net_variance": net})
	return updated, nil
}

// Cancel encerra a contagem sem tocar no ledger.
func (s *Service) Cancel(ctx context.Context, id, cancelledBy string) (domain.StockCount, error) {
	c, err := s.load(ctx, id, "cancel", domain.CountPlanned, domain.CountInProgress)
	if err != nil {
		return domain.StockCount{}, err
	}

	now := s.now()
	updated := c
	updated.Status = domain.CountCancelled
	updated.CancelledBy = cancelledBy
	updated.CancelledAt = &now
	updated.UpdatedAt = now

	if err := s.transition(ctx, c, updated, "cancel", nil); err != nil {
		return domain.StockCount{}, err
	}
	updated.Version = c.Version + 1
	s.logger.Info("Contagem cancelada.", map[string]interface{}{"count_id": id})
	return updated, nil
}

func (s *Service) transition(ctx context.Context, current, updated domain.StockCount, action string, mutations []stockservice.Mutation) error {
	_, err := s.ledger.ApplyWith(ctx, mutations, func(tx domain.LedgerTx) error {
		return tx.SaveCount(ctx, updated)
	})
	if err == nil {
		return nil
	}
	if latest, getErr := s.repo.GetCount(ctx, current.ID); getErr == nil && latest.Status.Terminal() {
		return apperror.NewInvalidStateTransitionError("count", current.ID, string(latest.Status), action)
	}
	return err
}

func (s *Service) load(ctx context.Context, id, action string, allowed ...domain.CountStatus) (domain.StockCount, error) {
	c, err := s.repo.GetCount(ctx, id)
	if err != nil {
		return domain.StockCount{}, err
	}
	for _, st := range allowed {
		if c.Status == st {
			return c, nil
		}
	}
	s.logger.Warn("Transição de contagem inválida.", map[string]interface{}{"count_id": id, "status": string(c.Status), "action": action})
	return domain.StockCount{}, apperror.NewInvalidStateTransitionError("count", id, string(c.Status), action)
}

func (s *Service) Get(ctx context.Context, id string) (domain.StockCount, error) {
	return s.repo.GetCount(ctx, id)
}

func (s *Service) List(ctx context.Context, filter domain.CountFilter) ([]domain.StockCount, error) {
	counts, err := s.repo.ListCounts(ctx, filter)
	if err != nil {
		return nil, apperror.NewInternalError("Falha ao listar contagens.", err)
	}
	return counts, nil
}
