package memrepo_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/domain"
	apperror "stockflow/internal/errors"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/repository/memrepo"
)

func seedItem(t *testing.T, s *memrepo.Store, key domain.ItemKey, qty int) {
	t.Helper()
	err := s.WithItems(context.Background(), []domain.ItemKey{key}, func(tx domain.LedgerTx) error {
		item := domain.NewInventoryItem(key, time.Now())
		item.Quantity = qty
		if err := tx.PutItem(context.Background(), item); err != nil {
			return err
		}
		return tx.AppendMovement(context.Background(), domain.StockMovement{
			Type: domain.MovementPurchase, ProductID: key.ProductID, WarehouseID: key.WarehouseID,
			Delta: qty, NewQuantity: qty,
		})
	})
	require.NoError(t, err)
}

func TestWithItems_CommitsOnSuccess(t *testing.T) {
	s := memrepo.NewStore(logger.NewNop())
	key := domain.ItemKey{ProductID: "p1", WarehouseID: "w1"}

	seedItem(t, s, key, 10)

	item, err := s.GetItem(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, 10, item.Quantity)

	movements, err := s.ListMovements(context.Background(), domain.MovementFilter{ProductID: "p1"})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, int64(1), movements[0].Sequence)
	assert.NotEmpty(t, movements[0].ID)
	assert.False(t, movements[0].CreatedAt.IsZero())
}

func TestWithItems_RollsBackOnError(t *testing.T) {
	s := memrepo.NewStore(logger.NewNop())
	key := domain.ItemKey{ProductID: "p1", WarehouseID: "w1"}
	boom := stderrors.New("boom")

	err := s.WithItems(context.Background(), []domain.ItemKey{key}, func(tx domain.LedgerTx) error {
		item := domain.NewInventoryItem(key, time.Now())
		item.Quantity = 5
		require.NoError(t, tx.PutItem(context.Background(), item))
		require.NoError(t, tx.AppendMovement(context.Background(), domain.StockMovement{ProductID: "p1", WarehouseID: "w1", Delta: 5}))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	_, err = s.GetItem(context.Background(), key)
	assert.True(t, apperror.IsNotFound(err))
	movements, _ := s.ListMovements(context.Background(), domain.MovementFilter{})
	assert.Empty(t, movements)
}

func TestWithItems_RejectsUnheldKey(t *testing.T) {
	s := memrepo.NewStore(logger.NewNop())
	held := domain.ItemKey{ProductID: "p1", WarehouseID: "w1"}
	other := domain.ItemKey{ProductID: "p2", WarehouseID: "w1"}

	err := s.WithItems(context.Background(), []domain.ItemKey{held}, func(tx domain.LedgerTx) error {
		return tx.PutItem(context.Background(), domain.NewInventoryItem(other, time.Now()))
	})

	assert.Error(t, err)
	assert.IsType(t, &apperror.InternalError{}, err)
}

func TestWithItems_TxSeesStagedWrites(t *testing.T) {
	s := memrepo.NewStore(logger.NewNop())
	key := domain.ItemKey{ProductID: "p1", WarehouseID: "w1"}

	err := s.WithItems(context.Background(), []domain.ItemKey{key}, func(tx domain.LedgerTx) error {
		_, found, err := tx.GetItem(context.Background(), key)
		require.NoError(t, err)
		assert.False(t, found)

		item := domain.NewInventoryItem(key, time.Now())
		item.Quantity = 3
		require.NoError(t, tx.PutItem(context.Background(), item))

		got, found, err := tx.GetItem(context.Background(), key)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 3, got.Quantity)
		return nil
	})
	require.NoError(t, err)
}

func TestPutItem_RejectsBrokenInvariant(t *testing.T) {
	s := memrepo.NewStore(logger.NewNop())
	key := domain.ItemKey{ProductID: "p1", WarehouseID: "w1"}

	err := s.WithItems(context.Background(), []domain.ItemKey{key}, func(tx domain.LedgerTx) error {
		item := domain.NewInventoryItem(key, time.Now())
		item.Quantity = 1
		item.Reserved = 2
		return tx.PutItem(context.Background(), item)
	})

	assert.True(t, apperror.IsCapacityViolation(err))
}

func TestSaveTransfer_CompareAndSet(t *testing.T) {
	s := memrepo.NewStore(logger.NewNop())
	ctx := context.Background()

	transfer := domain.StockTransfer{ID: "t1", Status: domain.TransferPending, Items: []domain.TransferItem{{ProductID: "p1", Quantity: 1}}}
	require.NoError(t, s.WithItems(ctx, nil, func(tx domain.LedgerTx) error {
		return tx.SaveTransfer(ctx, transfer)
	}))

	stored, err := s.GetTransfer(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)

	// Duas escritas a partir da mesma versão: a segunda perde.
	first := stored
	first.Status = domain.TransferInTransit
	require.NoError(t, s.WithItems(ctx, nil, func(tx domain.LedgerTx) error {
		return tx.SaveTransfer(ctx, first)
	}))

	second := stored
	second.Status = domain.TransferCancelled
	err = s.WithItems(ctx, nil, func(tx domain.LedgerTx) error {
		return tx.SaveTransfer(ctx, second)
	})
	assert.True(t, apperror.IsConflict(err))

	stored, err = s.GetTransfer(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferInTransit, stored.Status)
	assert.Equal(t, 2, stored.Version)
}

func TestSaveTransfer_InsertTwiceConflicts(t *testing.T) {
	s := memrepo.NewStore(logger.NewNop())
	ctx := context.Background()

	save := func() error {
		return s.WithItems(ctx, nil, func(tx domain.LedgerTx) error {
			return tx.SaveReservation(ctx, domain.Reservation{ID: "r1", Status: domain.ReservationActive})
		})
	}
	require.NoError(t, save())
	assert.True(t, apperror.IsConflict(save()))
}

func TestConflictDiscardsItemWrites(t *testing.T) {
	s := memrepo.NewStore(logger.NewNop())
	ctx := context.Background()
	key := domain.ItemKey{ProductID: "p1", WarehouseID: "w1"}
	seedItem(t, s, key, 10)

	require.NoError(t, s.WithItems(ctx, nil, func(tx domain.LedgerTx) error {
		return tx.SaveCount(ctx, domain.StockCount{ID: "c1", Status: domain.CountPlanned})
	}))

	err := s.WithItems(ctx, []domain.ItemKey{key}, func(tx domain.LedgerTx) error {
		item, _, _ := tx.GetItem(ctx, key)
		item.Quantity = 99
		require.NoError(t, tx.PutItem(ctx, item))
		// Versão 0 tenta inserir um registro que já existe.
		return tx.SaveCount(ctx, domain.StockCount{ID: "c1", Status: domain.CountCompleted})
	})
	require.True(t, apperror.IsConflict(err))

	item, err := s.GetItem(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 10, item.Quantity)
}

func TestWithItems_SlashInIDsDoesNotCollide(t *testing.T) {
	s := memrepo.NewStore(logger.NewNop())
	a := domain.ItemKey{ProductID: "c", WarehouseID: "a/b"}
	b := domain.ItemKey{ProductID: "b/c", WarehouseID: "a"}
	seedItem(t, s, a, 3)
	seedItem(t, s, b, 4)

	done := make(chan error, 1)
	go func() {
		done <- s.WithItems(context.Background(), []domain.ItemKey{a, b}, func(tx domain.LedgerTx) error {
			for _, k := range []domain.ItemKey{a, b} {
				item, found, err := tx.GetItem(context.Background(), k)
				if err != nil {
					return err
				}
				if !found {
					return stderrors.New("item ausente")
				}
				item.Quantity++
				item.Version++
				if err := tx.PutItem(context.Background(), item); err != nil {
					return err
				}
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WithItems travou com chaves distintas")
	}

	item, err := s.GetItem(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)
	item, err = s.GetItem(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
}

func TestWithItems_ConcurrentIncrementsAreSerialized(t *testing.T) {
	s := memrepo.NewStore(logger.NewNop())
	ctx := context.Background()
	key := domain.ItemKey{ProductID: "p1", WarehouseID: "w1"}
	seedItem(t, s, key, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithItems(ctx, []domain.ItemKey{key}, func(tx domain.LedgerTx) error {
				item, _, err := tx.GetItem(ctx, key)
				if err != nil {
					return err
				}
				item.Quantity++
				return tx.PutItem(ctx, item)
			})
		}()
	}
	wg.Wait()

	item, err := s.GetItem(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 50, item.Quantity)
}

func TestWarehouses_CreateFilterAndUpdate(t *testing.T) {
	s := memrepo.NewStore(logger.NewNop())
	ctx := context.Background()

	_, err := s.CreateWarehouse(ctx, domain.Warehouse{ID: "w2", Code: "SP", Priority: 2, Status: domain.WarehouseActive, ShippingZones: []string{"south"}})
	require.NoError(t, err)
	_, err = s.CreateWarehouse(ctx, domain.Warehouse{ID: "w1", Code: "RJ", Priority: 1, Status: domain.WarehouseInactive, ShippingZones: []string{"south"}})
	require.NoError(t, err)

	_, err = s.CreateWarehouse(ctx, domain.Warehouse{Code: "sp"})
	assert.True(t, apperror.IsConflict(err))

	all, err := s.GetAllWarehouses(ctx, domain.WarehouseFilter{Region: "south"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "w1", all[0].ID)

	active, err := s.GetAllWarehouses(ctx, domain.WarehouseFilter{Status: domain.WarehouseActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "w2", active[0].ID)

	_, err = s.UpdateWarehouse(ctx, domain.Warehouse{ID: "missing"})
	assert.True(t, apperror.IsWarehouseNotFound(err))

	_, err = s.GetWarehouseByID(ctx, "missing")
	assert.True(t, apperror.IsWarehouseNotFound(err))
}

func TestListReservations_Filters(t *testing.T) {
	s := memrepo.NewStore(logger.NewNop())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.WithItems(ctx, nil, func(tx domain.LedgerTx) error {
		require.NoError(t, tx.SaveReservation(ctx, domain.Reservation{ID: "r1", Reference: "o1", Status: domain.ReservationActive, ExpiresAt: now.Add(-time.Minute)}))
		require.NoError(t, tx.SaveReservation(ctx, domain.Reservation{ID: "r2", Reference: "o1", Status: domain.ReservationActive, ExpiresAt: now.Add(time.Hour)}))
		return tx.SaveReservation(ctx, domain.Reservation{ID: "r3", Reference: "o2", Status: domain.ReservationReleased, ExpiresAt: now.Add(-time.Hour)})
	}))

	expired, err := s.ListReservations(ctx, domain.ReservationFilter{Status: domain.ReservationActive, ExpiresBefore: &now})
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "r1", expired[0].ID)

	byRef, err := s.ListReservations(ctx, domain.ReservationFilter{Reference: "o1"})
	require.NoError(t, err)
	assert.Len(t, byRef, 2)
}
