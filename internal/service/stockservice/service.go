package stockservice

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockflow/internal/domain"
	apperror "stockflow/internal/errors"
	"stockflow/internal/pkg/logger"
)

// WarehouseReader é o que o ledger precisa do registro de armazéns.
type WarehouseReader interface {
	GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error)
}

// Service é o Inventory Ledger: toda alteração de quantidade passa por aqui e gera exatamente
// uma movimentação.
type Service struct {
	store      domain.LedgerStore
	warehouses WarehouseReader
	logger     logger.Logger
	now        func() time.Time
}

// NewService cria e retorna uma nova instância do Serviço de Estoque.
func NewService(store domain.LedgerStore, warehouses WarehouseReader, logger logger.Logger) *Service {
	return &Service{
		store:      store,
		warehouses: warehouses,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Reserve incrementa reserved se houver disponível suficiente.
func (s *Service) Reserve(ctx context.Context, productID, warehouseID string, qty int, reference, actor string) (domain.InventoryItem, error) {
	return s.applyOne(ctx, Mutation{Kind: KindReserve, ProductID: productID, WarehouseID: warehouseID, Quantity: qty, Reference: reference, Actor: actor})
}

// Release devolve uma reserva ao disponível.
func (s *Service) Release(ctx context.Context, productID, warehouseID string, qty int, reference, actor string) (domain.InventoryItem, error) {
	return s.applyOne(ctx, Mutation{Kind: KindRelease, ProductID: productID, WarehouseID: warehouseID, Quantity: qty, Reference: reference, Actor: actor})
}

// ConfirmDeduction baixa quantidade e reserva (venda concluída).
func (s *Service) ConfirmDeduction(ctx context.Context, productID, warehouseID string, qty int, reference, actor string) (domain.InventoryItem, error) {
	return s.applyOne(ctx, Mutation{Kind: KindConfirm, ProductID: productID, WarehouseID: warehouseID, Quantity: qty, Reference: reference, Actor: actor})
}

// AdjustRequest é o payload de um ajuste manual.
type AdjustRequest struct {
	ProductID   string              `json:"product_id"`
	WarehouseID string              `json:"warehouse_id"`
	Delta       int                 `json:"delta"`
	Type        domain.MovementType `json:"type,omitempty"`
	Reason      string              `json:"reason"`
	Reference   string              `json:"reference,omitempty"`
	Actor       string              `json:"-"`
}

// Adjust aplica um delta com sinal. Ajuste positivo em chave desconhecida cria o item.
func (s *Service) Adjust(ctx context.Context, req AdjustRequest) (domain.InventoryItem, error) {
	return s.applyOne(ctx, Mutation{
		Kind:        KindAdjust,
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		Quantity:    req.Delta,
		Type:        req.Type,
		Reason:      req.Reason,
		Reference:   req.Reference,
		Actor:       req.Actor,
	})
}

func (s *Service) applyOne(ctx context.Context, m Mutation) (domain.InventoryItem, error) {
	items, err := s.Apply(ctx, m)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return items[0], nil
}

// Apply aplica todas as mutações como uma unidade: ou todas entram, ou nenhuma.
// Devolve o estado final do item de cada mutação, na mesma ordem.
func (s *Service) Apply(ctx context.Context, mutations ...Mutation) ([]domain.InventoryItem, error) {
	return s.ApplyWith(ctx, mutations, nil)
}

// ApplyWith aplica as mutações e depois executa fn na mesma unidade de trabalho.
// Workflows usam fn para gravar seus registros (compare-and-set) junto com o ledger.
func (s *Service) ApplyWith(ctx context.Context, mutations []Mutation, fn func(tx domain.LedgerTx) error) ([]domain.InventoryItem, error) {
	s.logger.Debug("Iniciando aplicação de mutações no ledger.", map[string]interface{}{"mutations": len(mutations)})

	keys := make([]domain.ItemKey, 0, len(mutations))
	warehouseIDs := make(map[string]struct{})
	for _, m := range mutations {
		if err := m.validate(); err != nil {
			s.logger.Warn("Mutação inválida.", map[string]interface{}{"kind": string(m.Kind), "product_id": m.ProductID, "warehouse_id": m.WarehouseID, "error": err.Error()})
			return nil, err
		}
		keys = append(keys, m.Key())
		if m.InheritCostFrom != nil {
			keys = append(keys, *m.InheritCostFrom)
		}
		warehouseIDs[m.WarehouseID] = struct{}{}
	}

	for id := range warehouseIDs {
		if _, err := s.warehouses.GetWarehouseByID(ctx, id); err != nil {
			if apperror.IsWarehouseNotFound(err) || apperror.IsNotFound(err) {
				return nil, apperror.NewWarehouseNotFoundError(id)
			}
			return nil, s.internal("Falha ao consultar armazém.", err)
		}
	}

	results := make([]domain.InventoryItem, len(mutations))
	err := s.store.WithItems(ctx, keys, func(tx domain.LedgerTx) error {
		for i, m := range mutations {
			item, err := s.mutate(ctx, tx, m)
			if err != nil {
				return err
			}
			results[i] = item
		}
		if fn != nil {
			return fn(tx)
		}
		return nil
	})
	if err != nil {
		if _, ok := apperror.AsAppError(err); ok {
			s.logger.Warn("Mutações rejeitadas pelo ledger.", map[string]interface{}{"error": err.Error()})
			return nil, err
		}
		return nil, s.internal("Falha interna ao aplicar mutações.", err)
	}

	for i, m := range mutations {
		s.logger.Info("Estoque alterado com sucesso.", map[string]interface{}{
			"kind":         string(m.Kind),
			"product_id":   m.ProductID,
			"warehouse_id": m.WarehouseID,
			"quantity":     results[i].Quantity,
			"reserved":     results[i].Reserved,
			"new_version":  results[i].Version,
		})
	}
	return results, nil
}

// mutate aplica uma mutação dentro da unidade de trabalho e registra a movimentação.
func (s *Service) mutate(ctx context.Context, tx domain.LedgerTx, m Mutation) (domain.InventoryItem, error) {
	key := m.Key()
	item, found, err := tx.GetItem(ctx, key)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	now := s.now()

	movement := domain.StockMovement{
		Type:             m.movementType(),
		ProductID:        m.ProductID,
		WarehouseID:      m.WarehouseID,
		PreviousQuantity: item.Quantity,
		Reference:        m.Reference,
		Reason:           m.Reason,
		Actor:            m.Actor,
		CreatedAt:        now,
	}

	switch m.Kind {
	case KindReserve:
		if !found || item.Available() < m.Quantity {
			return domain.InventoryItem{}, apperror.NewInsufficientStockError(m.ProductID, m.WarehouseID, m.Quantity, item.Available())
		}
		item.Reserved += m.Quantity
		movement.ReservedDelta = m.Quantity

	case KindRelease:
		if m.Quantity > item.Reserved {
			return domain.InventoryItem{}, apperror.NewOverReleaseError(m.ProductID, m.WarehouseID, m.Quantity, item.Reserved)
		}
		item.Reserved -= m.Quantity
		movement.ReservedDelta = -m.Quantity

	case KindConfirm:
		if m.Quantity > item.Reserved {
			return domain.InventoryItem{}, apperror.NewOverReleaseError(m.ProductID, m.WarehouseID, m.Quantity, item.Reserved)
		}
		item.Reserved -= m.Quantity
		item.Quantity -= m.Quantity
		movement.Delta = -m.Quantity
		movement.ReservedDelta = -m.Quantity

	case KindAdjust:
		newQuantity := item.Quantity + m.Quantity
		if newQuantity < item.Reserved || newQuantity < 0 {
			return domain.InventoryItem{}, apperror.NewCapacityViolationError(m.ProductID, m.WarehouseID, newQuantity, item.Reserved)
		}
		if !found {
			item = domain.NewInventoryItem(key, now)
			if m.InheritCostFrom != nil {
				source, ok, err := tx.GetItem(ctx, *m.InheritCostFrom)
				if err != nil {
					return domain.InventoryItem{}, err
				}
				if ok {
					item.CostPerUnit = source.CostPerUnit
					item.UnitVolume = source.UnitVolume
				}
			}
		}
		item.Quantity = newQuantity
		movement.Delta = m.Quantity
		if m.Quantity > 0 && (!found || movement.Type == domain.MovementPurchase || movement.Type == domain.MovementTransfer) {
			item.LastRestocked = &now
		}
		if m.StampCounted {
			item.LastCounted = &now
		}
	}

	item.Version++
	item.UpdatedAt = now
	item.RecomputeValue()
	movement.NewQuantity = item.Quantity

	if err := tx.PutItem(ctx, item); err != nil {
		return domain.InventoryItem{}, err
	}
	if err := tx.AppendMovement(ctx, movement); err != nil {
		return domain.InventoryItem{}, err
	}
	return item, nil
}

// GetItem busca o estado atual de um item.
func (s *Service) GetItem(ctx context.Context, productID, warehouseID string) (domain.InventoryItem, error) {
	item, err := s.store.GetItem(ctx, domain.ItemKey{ProductID: productID, WarehouseID: warehouseID})
	if err != nil {
		if apperror.IsNotFound(err) {
			return domain.InventoryItem{}, err
		}
		return domain.InventoryItem{}, s.internal("Falha ao buscar item.", err)
	}
	return item, nil
}

func (s *Service) ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.InventoryItem, error) {
	items, err := s.store.ListItems(ctx, filter)
	if err != nil {
		return nil, s.internal("Falha ao listar itens.", err)
	}
	return items, nil
}

func (s *Service) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.StockMovement, error) {
	movements, err := s.store.ListMovements(ctx, filter)
	if err != nil {
		return nil, s.internal("Falha ao listar movimentações.", err)
	}
	return movements, nil
}

// ReplayResult compara o estado reconstruído a partir do log com o estado armazenado.
type ReplayResult struct {
	Key            domain.ItemKey `json:"key"`
	Movements      int            `json:"movements"`
	Quantity       int            `json:"quantity"`
	Reserved       int            `json:"reserved"`
	StoredQuantity int            `json:"stored_quantity"`
	StoredReserved int            `json:"stored_reserved"`
	Consistent     bool           `json:"consistent"`
}

// Replay reconstrói quantity e reserved de uma chave somando o log de movimentações.
func (s *Service) Replay(ctx context.Context, productID, warehouseID string) (ReplayResult, error) {
	key := domain.ItemKey{ProductID: productID, WarehouseID: warehouseID}
	result := ReplayResult{Key: key}

	// O snapshot é lido com a chave bloqueada para que item e log sejam coerentes.
	err := s.store.WithItems(ctx, []domain.ItemKey{key}, func(tx domain.LedgerTx) error {
		item, _, err := tx.GetItem(ctx, key)
		if err != nil {
			return err
		}
		movements, err := s.store.ListMovements(ctx, domain.MovementFilter{ProductID: productID, WarehouseID: warehouseID})
		if err != nil {
			return err
		}
		result.Movements = len(movements)
		result.Quantity, result.Reserved = domain.Replay(movements)
		result.StoredQuantity = item.Quantity
		result.StoredReserved = item.Reserved
		return nil
	})
	if err != nil {
		return ReplayResult{}, s.internal("Falha ao reconstruir item a partir do log.", err)
	}

	result.Consistent = result.Quantity == result.StoredQuantity && result.Reserved == result.StoredReserved
	if !result.Consistent {
		s.logger.Warn("Log de movimentações diverge do estado armazenado.", map[string]interface{}{
			"product_id": productID, "warehouse_id": warehouseID,
			"replayed_quantity": result.Quantity, "stored_quantity": result.StoredQuantity,
		})
	}
	return result, nil
}

// Capacity calcula a ocupação do armazém: usado = soma de quantity * unitVolume.
func (s *Service) Capacity(ctx context.Context, warehouseID string) (domain.WarehouseCapacity, error) {
	w, err := s.warehouses.GetWarehouseByID(ctx, warehouseID)
	if err != nil {
		if apperror.IsWarehouseNotFound(err) || apperror.IsNotFound(err) {
			return domain.WarehouseCapacity{}, apperror.NewWarehouseNotFoundError(warehouseID)
		}
		return domain.WarehouseCapacity{}, s.internal("Falha ao consultar armazém.", err)
	}

	items, err := s.store.ListItems(ctx, domain.ItemFilter{WarehouseID: warehouseID})
	if err != nil {
		return domain.WarehouseCapacity{}, s.internal("Falha ao listar itens do armazém.", err)
	}

	used := decimal.Zero
	for _, it := range items {
		used = used.Add(it.Volume())
	}
	return domain.WarehouseCapacity{
		WarehouseID: warehouseID,
		Total:       w.TotalCapacity,
		Used:        used,
		Available:   w.TotalCapacity.Sub(used),
	}, nil
}

// ConfigureItem altera atributos do item sem tocar em quantidades, portanto sem movimentação.
// Cria o item vazio se ele ainda não existir.
func (s *Service) ConfigureItem(ctx context.Context, productID, warehouseID string, settings domain.ItemSettings) (domain.InventoryItem, error) {
	if err := validateSettings(settings); err != nil {
		return domain.InventoryItem{}, err
	}
	if _, err := s.warehouses.GetWarehouseByID(ctx, warehouseID); err != nil {
		if apperror.IsWarehouseNotFound(err) || apperror.IsNotFound(err) {
			return domain.InventoryItem{}, apperror.NewWarehouseNotFoundError(warehouseID)
		}
		return domain.InventoryItem{}, s.internal("Falha ao consultar armazém.", err)
	}

	key := domain.ItemKey{ProductID: productID, WarehouseID: warehouseID}
	var result domain.InventoryItem
	err := s.store.WithItems(ctx, []domain.ItemKey{key}, func(tx domain.LedgerTx) error {
		now := s.now()
		item, found, err := tx.GetItem(ctx, key)
		if err != nil {
			return err
		}
		if !found {
			item = domain.NewInventoryItem(key, now)
		}
		if settings.ReorderPoint != nil {
			item.ReorderPoint = *settings.ReorderPoint
		}
		if settings.ReorderQuantity != nil {
			item.ReorderQuantity = *settings.ReorderQuantity
		}
		if settings.Location != nil {
			item.Location = *settings.Location
		}
		if settings.CostPerUnit != nil {
			item.CostPerUnit = *settings.CostPerUnit
		}
		if settings.UnitVolume != nil {
			item.UnitVolume = *settings.UnitVolume
		}
		item.RecomputeValue()
		item.Version++
		item.UpdatedAt = now
		result = item
		return tx.PutItem(ctx, item)
	})
	if err != nil {
		if _, ok := apperror.AsAppError(err); ok {
			return domain.InventoryItem{}, err
		}
		return domain.InventoryItem{}, s.internal("Falha interna ao configurar item.", err)
	}

	s.logger.Info("Item configurado.", map[string]interface{}{"product_id": productID, "warehouse_id": warehouseID, "version": result.Version})
	return result, nil
}

func validateSettings(settings domain.ItemSettings) error {
	if settings.ReorderPoint != nil && *settings.ReorderPoint < 0 {
		return apperror.NewValidationError("O ponto de reposição não pode ser negativo.")
	}
	if settings.ReorderQuantity != nil && *settings.ReorderQuantity < 0 {
		return apperror.NewValidationError("A quantidade de reposição não pode ser negativa.")
	}
	if settings.CostPerUnit != nil && settings.CostPerUnit.IsNegative() {
		return apperror.NewValidationError("O custo unitário não pode ser negativo.")
	}
	if settings.UnitVolume != nil && !settings.UnitVolume.IsPositive() {
		return apperror.NewValidationError("O volume unitário deve ser positivo.")
	}
	return nil
}

func (s *Service) internal(msg string, err error) error {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr
	}
	s.logger.Error(msg, err)
	return apperror.NewInternalError(msg, fmt.Errorf("ledger: %w", err))
}
