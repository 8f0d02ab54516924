package memrepo

import (
	"context"
	"fmt"

	"stockflow/internal/domain"
	"stockflow/internal/errors"
)

// memTx prepara escritas que só são aplicadas em Store.commit.
type memTx struct {
	store *Store
	keys  map[domain.ItemKey]struct{}

	items     map[domain.ItemKey]domain.InventoryItem
	movements []domain.StockMovement

	transfers        map[string]domain.StockTransfer
	transferVersions map[string]int

	counts        map[string]domain.StockCount
	countVersions map[string]int

	reservations        map[string]domain.Reservation
	reservationVersions map[string]int
}

func newTx(s *Store, keys []domain.ItemKey) *memTx {
	held := make(map[domain.ItemKey]struct{}, len(keys))
	for _, k := range keys {
		held[k] = struct{}{}
	}
	return &memTx{
		store:               s,
		keys:                held,
		items:               make(map[domain.ItemKey]domain.InventoryItem),
		transfers:           make(map[string]domain.StockTransfer),
		transferVersions:    make(map[string]int),
		counts:              make(map[string]domain.StockCount),
		countVersions:       make(map[string]int),
		reservations:        make(map[string]domain.Reservation),
		reservationVersions: make(map[string]int),
	}
}

func (tx *memTx) checkHeld(key domain.ItemKey) error {
	if _, ok := tx.keys[key]; !ok {
		return errors.NewInternalError(fmt.Sprintf("Chave %s não foi adquirida nesta unidade de trabalho.", key), nil)
	}
	return nil
}

func (tx *memTx) GetItem(ctx context.Context, key domain.ItemKey) (domain.InventoryItem, bool, error) {
	if err := tx.checkHeld(key); err != nil {
		return domain.InventoryItem{}, false, err
	}
	if item, ok := tx.items[key]; ok {
		return item, true, nil
	}

	tx.store.mu.RLock()
	item, ok := tx.store.items[key]
	tx.store.mu.RUnlock()
	return item, ok, nil
}

func (tx *memTx) PutItem(ctx context.Context, item domain.InventoryItem) error {
	if err := tx.checkHeld(item.Key()); err != nil {
		return err
	}
	if !item.CheckInvariant() {
		return errors.NewCapacityViolationError(item.ProductID, item.WarehouseID, item.Quantity, item.Reserved)
	}
	tx.items[item.Key()] = item
	return nil
}

func (tx *memTx) AppendMovement(ctx context.Context, m domain.StockMovement) error {
	if err := tx.checkHeld(m.Key()); err != nil {
		return err
	}
	tx.movements = append(tx.movements, m)
	return nil
}

func (tx *memTx) SaveTransfer(ctx context.Context, t domain.StockTransfer) error {
	if _, staged := tx.transferVersions[t.ID]; !staged {
		tx.transferVersions[t.ID] = t.Version
	}
	tx.transfers[t.ID] = cloneTransfer(t)
	return nil
}

func (tx *memTx) SaveCount(ctx context.Context, c domain.StockCount) error {
	if _, staged := tx.countVersions[c.ID]; !staged {
		tx.countVersions[c.ID] = c.Version
	}
	tx.counts[c.ID] = cloneCount(c)
	return nil
}

func (tx *memTx) SaveReservation(ctx context.Context, r domain.Reservation) error {
	if _, staged := tx.reservationVersions[r.ID]; !staged {
		tx.reservationVersions[r.ID] = r.Version
	}
	tx.reservations[r.ID] = r
	return nil
}
