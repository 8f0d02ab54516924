package reservationservice_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"stockflow/internal/domain"
	apperror "stockflow/internal/errors"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/repository/memrepo"
	"stockflow/internal/service/reservationservice"
	"stockflow/internal/service/selectorservice"
	"stockflow/internal/service/stockservice"
)

type ReservationSuite struct {
	suite.Suite
	ctx    context.Context
	store  *memrepo.Store
	ledger *stockservice.Service
	svc    *reservationservice.Service
}

func (s *ReservationSuite) SetupTest() {
	s.ctx = context.Background()
	log := logger.NewNop()
	s.store = memrepo.NewStore(log)

	for _, w := range []domain.Warehouse{
		{ID: "w1", Code: "W1", Name: "Norte", Priority: 1, Status: domain.WarehouseActive, ShippingZones: []string{"north"}},
		{ID: "w2", Code: "W2", Name: "Backup", Priority: 2, Status: domain.WarehouseActive, ShippingZones: []string{"north"}},
	} {
		_, err := s.store.CreateWarehouse(s.ctx, w)
		s.Require().NoError(err)
	}

	s.ledger = stockservice.NewService(s.store, s.store, log)
	selector := selectorservice.NewService(s.store, s.store, log)
	s.svc = reservationservice.NewService(s.ledger, s.store, selector, 15*time.Minute, log)
}

func (s *ReservationSuite) stock(warehouseID string, qty int) {
	_, err := s.ledger.Adjust(s.ctx, stockservice.AdjustRequest{ProductID: "p1", WarehouseID: warehouseID, Delta: qty, Type: domain.MovementPurchase})
	s.Require().NoError(err)
}

func (s *ReservationSuite) item(warehouseID string) domain.InventoryItem {
	item, err := s.ledger.GetItem(s.ctx, "p1", warehouseID)
	s.Require().NoError(err)
	return item
}

func (s *ReservationSuite) TestHold_ExplicitWarehouse() {
	s.stock("w2", 10)

	r, err := s.svc.Hold(s.ctx, reservationservice.HoldRequest{ProductID: "p1", WarehouseID: "w2", Quantity: 4, Reference: "order-1"})

	s.Require().NoError(err)
	s.Equal(domain.ReservationActive, r.Status)
	s.Equal("w2", r.WarehouseID)
	s.WithinDuration(time.Now().Add(15*time.Minute), r.ExpiresAt, 5*time.Second)
	s.Equal(4, s.item("w2").Reserved)

	stored, err := s.svc.GetReservation(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(1, stored.Version)
}

func (s *ReservationSuite) TestHold_SelectsByPriority() {
	s.stock("w1", 5)
	s.stock("w2", 50)

	r, err := s.svc.Hold(s.ctx, reservationservice.HoldRequest{ProductID: "p1", Region: "north", Quantity: 5, Reference: "order-1"})

	s.Require().NoError(err)
	s.Equal("w1", r.WarehouseID)

	r, err = s.svc.Hold(s.ctx, reservationservice.HoldRequest{ProductID: "p1", Region: "north", Quantity: 5, Reference: "order-2"})
	s.Require().NoError(err)
	s.Equal("w2", r.WarehouseID)
}

func (s *ReservationSuite) TestHold_NoStockAnywhere() {
	_, err := s.svc.Hold(s.ctx, reservationservice.HoldRequest{ProductID: "p1", Region: "north", Quantity: 1, Reference: "order-1"})

	s.True(apperror.IsInsufficientStock(err))
}

func (s *ReservationSuite) TestHold_Validation() {
	_, err := s.svc.Hold(s.ctx, reservationservice.HoldRequest{ProductID: "p1", Quantity: 1, Reference: "order-1"})
	s.True(apperror.IsValidation(err))

	_, err = s.svc.Hold(s.ctx, reservationservice.HoldRequest{ProductID: "p1", WarehouseID: "w1", Quantity: 1})
	s.True(apperror.IsValidation(err))
}

func (s *ReservationSuite) TestConfirm_DeductsStock() {
	s.stock("w1", 10)
	r, err := s.svc.Hold(s.ctx, reservationservice.HoldRequest{ProductID: "p1", WarehouseID: "w1", Quantity: 3, Reference: "order-1"})
	s.Require().NoError(err)

	confirmed, err := s.svc.Confirm(s.ctx, r.ID, "checkout")

	s.Require().NoError(err)
	s.Equal(domain.ReservationConfirmed, confirmed.Status)
	s.Equal(2, confirmed.Version)
	item := s.item("w1")
	s.Equal(7, item.Quantity)
	s.Equal(0, item.Reserved)

	_, err = s.svc.Release(s.ctx, r.ID, "checkout")
	s.True(apperror.IsInvalidStateTransition(err))
}

func (s *ReservationSuite) TestRelease_ReturnsStock() {
	s.stock("w1", 10)
	r, err := s.svc.Hold(s.ctx, reservationservice.HoldRequest{ProductID: "p1", WarehouseID: "w1", Quantity: 3, Reference: "order-1"})
	s.Require().NoError(err)

	released, err := s.svc.Release(s.ctx, r.ID, "checkout")

	s.Require().NoError(err)
	s.Equal(domain.ReservationReleased, released.Status)
	s.Equal(10, s.item("w1").Available())
}

func (s *ReservationSuite) TestExpireStale_ReleasesOnlyExpired() {
	s.stock("w1", 10)
	short, err := s.svc.Hold(s.ctx, reservationservice.HoldRequest{ProductID: "p1", WarehouseID: "w1", Quantity: 2, Reference: "order-1", TTL: time.Minute})
	s.Require().NoError(err)
	long, err := s.svc.Hold(s.ctx, reservationservice.HoldRequest{ProductID: "p1", WarehouseID: "w1", Quantity: 3, Reference: "order-2", TTL: time.Hour})
	s.Require().NoError(err)

	count, err := s.svc.ExpireStale(s.ctx, time.Now().Add(2*time.Minute))

	s.Require().NoError(err)
	s.Equal(1, count)
	s.Equal(3, s.item("w1").Reserved)

	got, _ := s.svc.GetReservation(s.ctx, short.ID)
	s.Equal(domain.ReservationExpired, got.Status)
	got, _ = s.svc.GetReservation(s.ctx, long.ID)
	s.Equal(domain.ReservationActive, got.Status)

	releases, _ := s.ledger.ListMovements(s.ctx, domain.MovementFilter{Type: domain.MovementRelease})
	s.Require().Len(releases, 1)
	s.Equal("reservation expired", releases[0].Reason)

	// Segunda varredura não encontra nada.
	count, err = s.svc.ExpireStale(s.ctx, time.Now().Add(2*time.Minute))
	s.Require().NoError(err)
	s.Equal(0, count)
}

func (s *ReservationSuite) TestExpireStale_ReservedDrainedElsewhere() {
	s.stock("w1", 10)
	res, err := s.svc.Hold(s.ctx, reservationservice.HoldRequest{ProductID: "p1", WarehouseID: "w1", Quantity: 2, Reference: "order-1", TTL: time.Minute})
	s.Require().NoError(err)
	_, err = s.ledger.Release(s.ctx, "p1", "w1", 2, "manual", "ana")
	s.Require().NoError(err)

	count, err := s.svc.ExpireStale(s.ctx, time.Now().Add(2*time.Minute))

	s.Require().NoError(err)
	s.Equal(1, count)
	got, _ := s.svc.GetReservation(s.ctx, res.ID)
	s.Equal(domain.ReservationExpired, got.Status)
	s.Equal("system", got.ClosedBy)
	s.Equal(0, s.item("w1").Reserved)
	s.Equal(10, s.item("w1").Quantity)

	releases, _ := s.ledger.ListMovements(s.ctx, domain.MovementFilter{Type: domain.MovementRelease})
	s.Len(releases, 1, "apenas o release manual")

	count, err = s.svc.ExpireStale(s.ctx, time.Now().Add(2*time.Minute))
	s.Require().NoError(err)
	s.Equal(0, count)
}

func (s *ReservationSuite) TestConfirm_AfterExpiryIsRejected() {
	s.stock("w1", 10)
	r, err := s.svc.Hold(s.ctx, reservationservice.HoldRequest{ProductID: "p1", WarehouseID: "w1", Quantity: 2, Reference: "order-1", TTL: time.Nanosecond})
	s.Require().NoError(err)
	time.Sleep(time.Millisecond)

	_, err = s.svc.Confirm(s.ctx, r.ID, "checkout")

	s.True(apperror.IsInvalidStateTransition(err))
}

func (s *ReservationSuite) TestConcurrentConfirmAndRelease_OneWins() {
	s.stock("w1", 10)
	r, err := s.svc.Hold(s.ctx, reservationservice.HoldRequest{ProductID: "p1", WarehouseID: "w1", Quantity: 4, Reference: "order-1"})
	s.Require().NoError(err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); _, errs[0] = s.svc.Confirm(s.ctx, r.ID, "a") }()
	go func() { defer wg.Done(); _, errs[1] = s.svc.Release(s.ctx, r.ID, "b") }()
	wg.Wait()

	failures := 0
	for _, e := range errs {
		if e != nil {
			s.True(apperror.IsInvalidStateTransition(e), e.Error())
			failures++
		}
	}
	s.Equal(1, failures)
	s.Equal(0, s.item("w1").Reserved)
}

func TestReservationSuite(t *testing.T) {
	suite.Run(t, new(ReservationSuite))
}

func TestHold_DefaultTTLWhenUnset(t *testing.T) {
	store := memrepo.NewStore(logger.NewNop())
	_, err := store.CreateWarehouse(context.Background(), domain.Warehouse{ID: "w1", Code: "W1", Status: domain.WarehouseActive})
	require.NoError(t, err)
	ledger := stockservice.NewService(store, store, logger.NewNop())
	_, err = ledger.Adjust(context.Background(), stockservice.AdjustRequest{ProductID: "p1", WarehouseID: "w1", Delta: 1})
	require.NoError(t, err)
	svc := reservationservice.NewService(ledger, store, selectorservice.NewService(store, store, logger.NewNop()), time.Hour, logger.NewNop())

	r, err := svc.Hold(context.Background(), reservationservice.HoldRequest{ProductID: "p1", WarehouseID: "w1", Quantity: 1, Reference: "o"})

	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), r.ExpiresAt, 5*time.Second)
}
