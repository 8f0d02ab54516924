// Package memrepo implementa os repositórios em memória. Cada chave (produto, armazém)
// é protegida por um mutex próprio; registros de workflow usam compare-and-set de versão.
package memrepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"stockflow/internal/domain"
	"stockflow/internal/errors"
	"stockflow/internal/pkg/keylock"
	"stockflow/internal/pkg/logger"
)

// Store guarda todo o estado do serviço em memória.
type Store struct {
	locks  *keylock.Locker
	logger logger.Logger
	now    func() time.Time

	mu           sync.RWMutex
	warehouses   map[string]domain.Warehouse
	items        map[domain.ItemKey]domain.InventoryItem
	movements    []domain.StockMovement
	seq          int64
	transfers    map[string]domain.StockTransfer
	counts       map[string]domain.StockCount
	reservations map[string]domain.Reservation
}

// NewStore cria um Store vazio.
func NewStore(logger logger.Logger) *Store {
	return &Store{
		locks:        keylock.New(),
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		warehouses:   make(map[string]domain.Warehouse),
		items:        make(map[domain.ItemKey]domain.InventoryItem),
		transfers:    make(map[string]domain.StockTransfer),
		counts:       make(map[string]domain.StockCount),
		reservations: make(map[string]domain.Reservation),
	}
}

// WithItems executa fn com as chaves bloqueadas e aplica as escritas preparadas apenas se fn tiver sucesso.
func (s *Store) WithItems(ctx context.Context, keys []domain.ItemKey, fn func(tx domain.LedgerTx) error) error {
	sorted := domain.SortKeys(keys)
	names := make([]string, len(sorted))
	for i, k := range sorted {
		names[i] = k.LockName()
	}

	unlock := s.locks.LockOrdered(names)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return errors.NewInternalError("Operação cancelada antes de iniciar.", err)
	}

	tx := newTx(s, sorted)
	if err := fn(tx); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, expected := range tx.transferVersions {
		if current, ok := s.transfers[id]; versionOf(ok, current.Version) != expected {
			s.logger.Warn("Conflito de versão em transferência.", map[string]interface{}{"transfer_id": id, "expected": expected})
			return errors.NewConflictError(fmt.Sprintf("Transferência %s foi alterada concorrentemente.", id))
		}
	}
	for id, expected := range tx.countVersions {
		if current, ok := s.counts[id]; versionOf(ok, current.Version) != expected {
			s.logger.Warn("Conflito de versão em contagem.", map[string]interface{}{"count_id": id, "expected": expected})
			return errors.NewConflictError(fmt.Sprintf("Contagem %s foi alterada concorrentemente.", id))
		}
	}
	for id, expected := range tx.reservationVersions {
		if current, ok := s.reservations[id]; versionOf(ok, current.Version) != expected {
			s.logger.Warn("Conflito de versão em reserva.", map[string]interface{}{"reservation_id": id, "expected": expected})
			return errors.NewConflictError(fmt.Sprintf("Reserva %s foi alterada concorrentemente.", id))
		}
	}

	for key, item := range tx.items {
		s.items[key] = item
	}
	now := s.now()
	for _, m := range tx.movements {
		s.seq++
		m.Sequence = s.seq
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		s.movements = append(s.movements, m)
	}
	for id, t := range tx.transfers {
		t.Version = tx.transferVersions[id] + 1
		s.transfers[id] = t
	}
	for id, c := range tx.counts {
		c.Version = tx.countVersions[id] + 1
		s.counts[id] = c
	}
	for id, r := range tx.reservations {
		r.Version = tx.reservationVersions[id] + 1
		s.reservations[id] = r
	}
	return nil
}

func versionOf(found bool, version int) int {
	if !found {
		return 0
	}
	return version
}

// GetItem devolve uma cópia do item atual.
func (s *Store) GetItem(ctx context.Context, key domain.ItemKey) (domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok {
		return domain.InventoryItem{}, errors.NewNotFoundError(fmt.Sprintf("Item %s não encontrado.", key))
	}
	return item, nil
}

// ListItems devolve os itens em ordem de chave.
func (s *Store) ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var products map[string]struct{}
	if len(filter.ProductIDs) > 0 {
		products = make(map[string]struct{}, len(filter.ProductIDs))
		for _, p := range filter.ProductIDs {
			products[p] = struct{}{}
		}
	}

	out := make([]domain.InventoryItem, 0)
	for key, item := range s.items {
		if filter.WarehouseID != "" && key.WarehouseID != filter.WarehouseID {
			continue
		}
		if products != nil {
			if _, ok := products[key.ProductID]; !ok {
				continue
			}
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })
	return out, nil
}

// ListMovements devolve o log em ordem de sequência. Com Limit, mantém as mais recentes.
func (s *Store) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StockMovement, 0)
	for _, m := range s.movements {
		if filter.ProductID != "" && m.ProductID != filter.ProductID {
			continue
		}
		if filter.WarehouseID != "" && m.WarehouseID != filter.WarehouseID {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		if filter.Reference != "" && m.Reference != filter.Reference {
			continue
		}
		out = append(out, m)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	return out, nil
}
