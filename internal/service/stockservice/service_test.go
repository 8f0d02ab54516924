package stockservice_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stockflow/internal/domain"
	apperror "stockflow/internal/errors"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/repository/memrepo"
	"stockflow/internal/service/stockservice"
)

// MockWarehouseReader é uma implementação mock da interface WarehouseReader
type MockWarehouseReader struct {
	mock.Mock
}

func (m *MockWarehouseReader) GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Warehouse), args.Error(1)
}

func newLedger(t *testing.T) (*stockservice.Service, *memrepo.Store) {
	t.Helper()
	store := memrepo.NewStore(logger.NewNop())
	for _, id := range []string{"w1", "w2"} {
		_, err := store.CreateWarehouse(context.Background(), domain.Warehouse{
			ID: id, Code: id, Name: "Armazém " + id, Status: domain.WarehouseActive,
			TotalCapacity: decimal.NewFromInt(1000),
		})
		require.NoError(t, err)
	}
	return stockservice.NewService(store, store, logger.NewNop()), store
}

func stock(t *testing.T, svc *stockservice.Service, productID, warehouseID string, qty int) {
	t.Helper()
	_, err := svc.Adjust(context.Background(), stockservice.AdjustRequest{
		ProductID: productID, WarehouseID: warehouseID, Delta: qty, Type: domain.MovementPurchase, Reason: "entrada inicial",
	})
	require.NoError(t, err)
}

func TestAdjust_CreatesItemOnFirstStocking(t *testing.T) {
	svc, _ := newLedger(t)

	item, err := svc.Adjust(context.Background(), stockservice.AdjustRequest{ProductID: "p1", WarehouseID: "w1", Delta: 100, Reason: "recebimento"})

	require.NoError(t, err)
	assert.Equal(t, 100, item.Quantity)
	assert.Equal(t, 0, item.Reserved)
	assert.Equal(t, 1, item.Version)
	assert.NotNil(t, item.LastRestocked)

	movements, err := svc.ListMovements(context.Background(), domain.MovementFilter{ProductID: "p1", WarehouseID: "w1"})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, domain.MovementAdjustment, movements[0].Type)
	assert.Equal(t, 100, movements[0].Delta)
	assert.Equal(t, 0, movements[0].PreviousQuantity)
	assert.Equal(t, 100, movements[0].NewQuantity)
}

func TestAdjust_UnknownWarehouse(t *testing.T) {
	svc, store := newLedger(t)

	_, err := svc.Adjust(context.Background(), stockservice.AdjustRequest{ProductID: "p1", WarehouseID: "nope", Delta: 5})

	assert.True(t, apperror.IsWarehouseNotFound(err))
	movements, _ := store.ListMovements(context.Background(), domain.MovementFilter{})
	assert.Empty(t, movements)
}

func TestAdjust_ZeroDeltaIsValidation(t *testing.T) {
	mockReader := new(MockWarehouseReader)
	svc := stockservice.NewService(memrepo.NewStore(logger.NewNop()), mockReader, logger.NewNop())

	_, err := svc.Adjust(context.Background(), stockservice.AdjustRequest{ProductID: "p1", WarehouseID: "w1", Delta: 0})

	assert.IsType(t, &apperror.ValidationError{}, err)
	mockReader.AssertNotCalled(t, "GetWarehouseByID", mock.Anything, mock.Anything)
}

func TestAdjust_RegistryFailureIsInternal(t *testing.T) {
	mockReader := new(MockWarehouseReader)
	mockReader.On("GetWarehouseByID", mock.Anything, "w1").Return(domain.Warehouse{}, errors.New("conexão recusada"))
	svc := stockservice.NewService(memrepo.NewStore(logger.NewNop()), mockReader, logger.NewNop())

	_, err := svc.Adjust(context.Background(), stockservice.AdjustRequest{ProductID: "p1", WarehouseID: "w1", Delta: 1})

	assert.IsType(t, &apperror.InternalError{}, err)
	mockReader.AssertExpectations(t)
}

func TestAdjust_BelowReservedIsCapacityViolation(t *testing.T) {
	svc, _ := newLedger(t)
	stock(t, svc, "p1", "w1", 10)
	_, err := svc.Reserve(context.Background(), "p1", "w1", 8, "order-1", "checkout")
	require.NoError(t, err)

	_, err = svc.Adjust(context.Background(), stockservice.AdjustRequest{ProductID: "p1", WarehouseID: "w1", Delta: -3, Type: domain.MovementDamage})

	assert.True(t, apperror.IsCapacityViolation(err))
	item, _ := svc.GetItem(context.Background(), "p1", "w1")
	assert.Equal(t, 10, item.Quantity)
	assert.Equal(t, 8, item.Reserved)
}

func TestAdjust_NegativeOnUnknownKey(t *testing.T) {
	svc, _ := newLedger(t)

	_, err := svc.Adjust(context.Background(), stockservice.AdjustRequest{ProductID: "p1", WarehouseID: "w1", Delta: -1})

	assert.True(t, apperror.IsCapacityViolation(err))
}

func TestAdjust_RejectsReserveMovementType(t *testing.T) {
	svc, _ := newLedger(t)

	_, err := svc.Adjust(context.Background(), stockservice.AdjustRequest{ProductID: "p1", WarehouseID: "w1", Delta: 1, Type: domain.MovementReserve})

	assert.True(t, apperror.IsValidation(err))
}

func TestReserve_InsufficientStock(t *testing.T) {
	svc, _ := newLedger(t)
	stock(t, svc, "p1", "w1", 5)

	_, err := svc.Reserve(context.Background(), "p1", "w1", 6, "order-1", "checkout")

	var insufficient *apperror.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Available)
	assert.Equal(t, 6, insufficient.Requested)
}

func TestReserve_MissingItemIsInsufficientStock(t *testing.T) {
	svc, _ := newLedger(t)

	_, err := svc.Reserve(context.Background(), "p1", "w1", 1, "order-1", "checkout")

	assert.True(t, apperror.IsInsufficientStock(err))
}

func TestReserve_NonPositiveQuantity(t *testing.T) {
	svc, _ := newLedger(t)

	for _, qty := range []int{0, -1} {
		_, err := svc.Reserve(context.Background(), "p1", "w1", qty, "", "")
		assert.True(t, apperror.IsValidation(err), "qty %d", qty)
	}
}

func TestReserveAndConfirm(t *testing.T) {
	svc, _ := newLedger(t)
	stock(t, svc, "p1", "w1", 100)

	item, err := svc.Reserve(context.Background(), "p1", "w1", 30, "order-1", "checkout")
	require.NoError(t, err)
	assert.Equal(t, 100, item.Quantity)
	assert.Equal(t, 30, item.Reserved)
	assert.Equal(t, 70, item.Available())

	item, err = svc.ConfirmDeduction(context.Background(), "p1", "w1", 30, "order-1", "checkout")
	require.NoError(t, err)
	assert.Equal(t, 70, item.Quantity)
	assert.Equal(t, 0, item.Reserved)

	sales, err := svc.ListMovements(context.Background(), domain.MovementFilter{ProductID: "p1", Type: domain.MovementSale})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, -30, sales[0].Delta)
	assert.Equal(t, -30, sales[0].ReservedDelta)
	assert.Equal(t, "order-1", sales[0].Reference)

	reserves, err := svc.ListMovements(context.Background(), domain.MovementFilter{ProductID: "p1", Type: domain.MovementReserve})
	require.NoError(t, err)
	require.Len(t, reserves, 1)
	assert.Equal(t, 0, reserves[0].Delta)
	assert.Equal(t, 30, reserves[0].ReservedDelta)
}

func TestRelease_OverReleaseLeavesReservedUnchanged(t *testing.T) {
	svc, _ := newLedger(t)
	stock(t, svc, "p1", "w1", 10)
	_, err := svc.Reserve(context.Background(), "p1", "w1", 4, "order-1", "checkout")
	require.NoError(t, err)

	_, err = svc.Release(context.Background(), "p1", "w1", 5, "order-1", "checkout")

	assert.True(t, apperror.IsOverRelease(err))
	item, _ := svc.GetItem(context.Background(), "p1", "w1")
	assert.Equal(t, 4, item.Reserved)

	releases, _ := svc.ListMovements(context.Background(), domain.MovementFilter{Type: domain.MovementRelease})
	assert.Empty(t, releases)
}

func TestConfirm_OverRelease(t *testing.T) {
	svc, _ := newLedger(t)
	stock(t, svc, "p1", "w1", 10)

	_, err := svc.ConfirmDeduction(context.Background(), "p1", "w1", 1, "order-1", "checkout")

	assert.True(t, apperror.IsOverRelease(err))
}

func TestApply_AllOrNothing(t *testing.T) {
	svc, _ := newLedger(t)
	stock(t, svc, "p1", "w1", 10)
	stock(t, svc, "p2", "w1", 1)

	_, err := svc.Apply(context.Background(),
		stockservice.Mutation{Kind: stockservice.KindReserve, ProductID: "p1", WarehouseID: "w1", Quantity: 5},
		stockservice.Mutation{Kind: stockservice.KindReserve, ProductID: "p2", WarehouseID: "w1", Quantity: 2},
	)

	assert.True(t, apperror.IsInsufficientStock(err))
	item, _ := svc.GetItem(context.Background(), "p1", "w1")
	assert.Equal(t, 0, item.Reserved)
	reserves, _ := svc.ListMovements(context.Background(), domain.MovementFilter{Type: domain.MovementReserve})
	assert.Empty(t, reserves)
}

func TestApply_SameKeyTwiceSeesPreviousMutation(t *testing.T) {
	svc, _ := newLedger(t)
	stock(t, svc, "p1", "w1", 10)

	items, err := svc.Apply(context.Background(),
		stockservice.Mutation{Kind: stockservice.KindReserve, ProductID: "p1", WarehouseID: "w1", Quantity: 6},
		stockservice.Mutation{Kind: stockservice.KindReserve, ProductID: "p1", WarehouseID: "w1", Quantity: 4},
	)

	require.NoError(t, err)
	assert.Equal(t, 10, items[1].Reserved)
}

func TestApplyWith_CallbackErrorRollsBack(t *testing.T) {
	svc, _ := newLedger(t)
	stock(t, svc, "p1", "w1", 10)

	_, err := svc.ApplyWith(context.Background(),
		[]stockservice.Mutation{{Kind: stockservice.KindReserve, ProductID: "p1", WarehouseID: "w1", Quantity: 5}},
		func(tx domain.LedgerTx) error { return apperror.NewConflictError("registro alterado") },
	)

	assert.True(t, apperror.IsConflict(err))
	item, _ := svc.GetItem(context.Background(), "p1", "w1")
	assert.Equal(t, 0, item.Reserved)
}

func TestReserve_NoOversellUnderConcurrency(t *testing.T) {
	svc, _ := newLedger(t)
	stock(t, svc, "p1", "w1", 7)

	var ok, insufficient int32
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(context.Background(), "p1", "w1", 1, "order", "checkout")
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case apperror.IsInsufficientStock(err):
				atomic.AddInt32(&insufficient, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(7), ok)
	assert.Equal(t, int32(33), insufficient)
	item, _ := svc.GetItem(context.Background(), "p1", "w1")
	assert.Equal(t, 7, item.Reserved)
	assert.Equal(t, 0, item.Available())
}

func TestReplay_ReconstructsQuantityAndReserved(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()
	stock(t, svc, "p1", "w1", 50)
	_, err := svc.Reserve(ctx, "p1", "w1", 20, "order-1", "checkout")
	require.NoError(t, err)
	_, err = svc.Release(ctx, "p1", "w1", 5, "order-1", "checkout")
	require.NoError(t, err)
	_, err = svc.ConfirmDeduction(ctx, "p1", "w1", 10, "order-1", "checkout")
	require.NoError(t, err)
	_, err = svc.Adjust(ctx, stockservice.AdjustRequest{ProductID: "p1", WarehouseID: "w1", Delta: -3, Type: domain.MovementTheft})
	require.NoError(t, err)

	result, err := svc.Replay(ctx, "p1", "w1")

	require.NoError(t, err)
	assert.True(t, result.Consistent)
	assert.Equal(t, 37, result.Quantity)
	assert.Equal(t, 5, result.Reserved)
	assert.Equal(t, 5, result.Movements)
}

func TestCapacity_SumsUnitVolume(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()
	volume := decimal.RequireFromString("2.5")
	_, err := svc.ConfigureItem(ctx, "p1", "w1", domain.ItemSettings{UnitVolume: &volume})
	require.NoError(t, err)
	stock(t, svc, "p1", "w1", 10)
	stock(t, svc, "p2", "w1", 5)

	capacity, err := svc.Capacity(ctx, "w1")

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(30).Equal(capacity.Used), capacity.Used.String())
	assert.True(t, decimal.NewFromInt(970).Equal(capacity.Available), capacity.Available.String())
}

func TestConfigureItem_DoesNotWriteMovement(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()
	stock(t, svc, "p1", "w1", 4)
	reorder := 10
	cost := decimal.RequireFromString("12.50")

	item, err := svc.ConfigureItem(ctx, "p1", "w1", domain.ItemSettings{ReorderPoint: &reorder, CostPerUnit: &cost})

	require.NoError(t, err)
	assert.Equal(t, 10, item.ReorderPoint)
	assert.True(t, decimal.NewFromInt(50).Equal(item.TotalValue))
	movements, _ := svc.ListMovements(ctx, domain.MovementFilter{ProductID: "p1"})
	assert.Len(t, movements, 1)
}

func TestConfigureItem_Validation(t *testing.T) {
	svc, _ := newLedger(t)
	zero := decimal.Zero

	_, err := svc.ConfigureItem(context.Background(), "p1", "w1", domain.ItemSettings{UnitVolume: &zero})

	assert.True(t, apperror.IsValidation(err))
}
