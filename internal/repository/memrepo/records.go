package memrepo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"stockflow/internal/domain"
	"stockflow/internal/errors"
)

// CreateWarehouse registra um armazém. Código duplicado é conflito.
func (s *Store) CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	s.logger.Debug("Iniciando CreateWarehouse no repositório em memória.", map[string]interface{}{"code": warehouse.Code})

	s.mu.Lock()
	defer s.mu.Unlock()

	if warehouse.ID == "" {
		warehouse.ID = uuid.New().String()
	}
	if _, exists := s.warehouses[warehouse.ID]; exists {
		return domain.Warehouse{}, errors.NewConflictError(fmt.Sprintf("Armazém com ID %s já existe.", warehouse.ID))
	}
	for _, w := range s.warehouses {
		if warehouse.Code != "" && strings.EqualFold(w.Code, warehouse.Code) {
			return domain.Warehouse{}, errors.NewConflictError(fmt.Sprintf("Código de armazém %s já está em uso.", warehouse.Code))
		}
	}

	now := s.now()
	warehouse.CreatedAt = now
	warehouse.UpdatedAt = now
	warehouse.ShippingZones = append([]string(nil), warehouse.ShippingZones...)
	warehouse.OperatingHours = append([]domain.OperatingHours(nil), warehouse.OperatingHours...)
	s.warehouses[warehouse.ID] = warehouse

	s.logger.Info("Armazém criado com sucesso.", map[string]interface{}{"id": warehouse.ID, "code": warehouse.Code})
	return warehouse, nil
}

func (s *Store) GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.warehouses[id]
	if !ok {
		return domain.Warehouse{}, errors.NewWarehouseNotFoundError(id)
	}
	return w, nil
}

// GetAllWarehouses lista por prioridade e depois por ID.
func (s *Store) GetAllWarehouses(ctx context.Context, filter domain.WarehouseFilter) ([]domain.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Warehouse, 0, len(s.warehouses))
	for _, w := range s.warehouses {
		if filter.Status != "" && w.Status != filter.Status {
			continue
		}
		if filter.Region != "" && !w.Covers(filter.Region) {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.warehouses[warehouse.ID]
	if !ok {
		return domain.Warehouse{}, errors.NewWarehouseNotFoundError(warehouse.ID)
	}
	for id, w := range s.warehouses {
		if id != warehouse.ID && warehouse.Code != "" && strings.EqualFold(w.Code, warehouse.Code) {
			return domain.Warehouse{}, errors.NewConflictError(fmt.Sprintf("Código de armazém %s já está em uso.", warehouse.Code))
		}
	}

	warehouse.CreatedAt = current.CreatedAt
	warehouse.UpdatedAt = s.now()
	warehouse.ShippingZones = append([]string(nil), warehouse.ShippingZones...)
	warehouse.OperatingHours = append([]domain.OperatingHours(nil), warehouse.OperatingHours...)
	s.warehouses[warehouse.ID] = warehouse
	return warehouse, nil
}

func (s *Store) GetTransfer(ctx context.Context, id string) (domain.StockTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transfers[id]
	if !ok {
		return domain.StockTransfer{}, errors.NewNotFoundError(fmt.Sprintf("Transferência %s não encontrada.", id))
	}
	return cloneTransfer(t), nil
}

func (s *Store) ListTransfers(ctx context.Context, filter domain.TransferFilter) ([]domain.StockTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StockTransfer, 0)
	for _, t := range s.transfers {
		if filter.WarehouseID != "" && t.FromWarehouseID != filter.WarehouseID && t.ToWarehouseID != filter.WarehouseID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, cloneTransfer(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].RequestedAt.Before(out[j].RequestedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetCount(ctx context.Context, id string) (domain.StockCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.counts[id]
	if !ok {
		return domain.StockCount{}, errors.NewNotFoundError(fmt.Sprintf("Contagem %s não encontrada.", id))
	}
	return cloneCount(c), nil
}

func (s *Store) ListCounts(ctx context.Context, filter domain.CountFilter) ([]domain.StockCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StockCount, 0)
	for _, c := range s.counts {
		if filter.WarehouseID != "" && c.WarehouseID != filter.WarehouseID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, cloneCount(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reservations[id]
	if !ok {
		return domain.Reservation{}, errors.NewNotFoundError(fmt.Sprintf("Reserva %s não encontrada.", id))
	}
	return r, nil
}

// ListReservations ordena por vencimento; ExpiresBefore inclui o próprio instante.
func (s *Store) ListReservations(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Reservation, 0)
	for _, r := range s.reservations {
		if filter.Reference != "" && r.Reference != filter.Reference {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.ExpiresBefore != nil && r.ExpiresAt.After(*filter.ExpiresBefore) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(out[j].ExpiresAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func cloneTransfer(t domain.StockTransfer) domain.StockTransfer {
	items := make([]domain.TransferItem, len(t.Items))
	for i, it := range t.Items {
		if it.Received != nil {
			v := *it.Received
			it.Received = &v
		}
		items[i] = it
	}
	t.Items = items
	return t
}

func cloneCount(c domain.StockCount) domain.StockCount {
	items := make([]domain.StockCountItem, len(c.Items))
	for i, it := range c.Items {
		if it.CountedQuantity != nil {
			v := *it.CountedQuantity
			it.CountedQuantity = &v
		}
		items[i] = it
	}
	c.Items = items
	return c
}
