package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"stockflow/internal/api/alert"
	"stockflow/internal/api/auth"
	"stockflow/internal/api/count"
	"stockflow/internal/api/fulfillment"
	"stockflow/internal/api/inventory"
	"stockflow/internal/api/reservation"
	"stockflow/internal/api/router"
	"stockflow/internal/api/transfer"
	"stockflow/internal/api/warehouse"
	"stockflow/internal/domain"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/token"
	"stockflow/internal/repository/memrepo"
	"stockflow/internal/service/alertservice"
	"stockflow/internal/service/authservice"
	"stockflow/internal/service/countservice"
	"stockflow/internal/service/reservationservice"
	"stockflow/internal/service/selectorservice"
	"stockflow/internal/service/stockservice"
	"stockflow/internal/service/transferservice"
	"stockflow/internal/service/warehouseservice"
)

type RouterSuite struct {
	suite.Suite
	handler  http.Handler
	admin    string
	operator string
	service  string
}

func (s *RouterSuite) SetupTest() {
	log := logger.NewNop()
	store := memrepo.NewStore(log)

	tokens := token.NewService("segredo-de-teste", time.Hour)
	hash, err := bcrypt.GenerateFromPassword([]byte("segredo-do-checkout"), bcrypt.MinCost)
	s.Require().NoError(err)
	clients, err := authservice.ParseClients(map[string]string{"checkout": "service:" + string(hash)})
	s.Require().NoError(err)

	ledger := stockservice.NewService(store, store, log)
	selector := selectorservice.NewService(store, store, log)
	handlers := router.Handlers{
		Auth:        auth.NewHandler(authservice.NewService(clients, tokens, log), log),
		Warehouse:   warehouse.NewHandler(warehouseservice.NewService(store, log), ledger, log),
		Fulfillment: fulfillment.NewHandler(selector, log),
		Inventory:   inventory.NewHandler(ledger, log),
		Reservation: reservation.NewHandler(reservationservice.NewService(ledger, store, selector, 15*time.Minute, log), log),
		Transfer:    transfer.NewHandler(transferservice.NewService(ledger, store, store, log), log),
		Count:       count.NewHandler(countservice.NewService(ledger, store, store, log), log),
		Alert:       alert.NewHandler(alertservice.NewService(store, nil, log), log),
	}

	s.handler = router.NewRouter(handlers, tokens, nil)

	s.admin, err = tokens.GenerateToken("admin", string(domain.RoleAdmin))
	s.Require().NoError(err)
	s.operator, err = tokens.GenerateToken("ana", string(domain.RoleOperator))
	s.Require().NoError(err)
	s.service, err = tokens.GenerateToken("checkout", string(domain.RoleService))
	s.Require().NoError(err)
}

func (s *RouterSuite) do(method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) decode(rec *httptest.ResponseRecorder, dst interface{}) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func (s *RouterSuite) createWarehouse(id string, priority int) {
	rec := s.do(http.MethodPost, "/v1/warehouses", s.admin, map[string]interface{}{
		"id": id, "code": id, "name": "Armazém " + id, "total_capacity": 1000,
		"shipping_zones": []string{"sudeste"}, "priority": priority,
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *RouterSuite) adjust(productID, warehouseID string, delta int) {
	rec := s.do(http.MethodPost, "/v1/inventory/adjust", s.operator, map[string]interface{}{
		"product_id": productID, "warehouse_id": warehouseID, "delta": delta, "type": "purchase", "reason": "recebimento",
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
}

func (s *RouterSuite) TestPingNeedsNoToken() {
	rec := s.do(http.MethodGet, "/ping", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("pong", rec.Body.String())
}

func (s *RouterSuite) TestTokenExchange() {
	rec := s.do(http.MethodPost, "/v1/auth/token", "", map[string]string{"client_id": "checkout", "client_secret": "segredo-do-checkout"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]string
	s.decode(rec, &resp)
	s.NotEmpty(resp["token"])

	s.Equal(http.StatusOK, s.do(http.MethodGet, "/v1/reservations", resp["token"], nil).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodPost, "/v1/counts", resp["token"], map[string]string{}).Code)

	rec = s.do(http.MethodPost, "/v1/auth/token", "", map[string]string{"client_id": "checkout", "client_secret": "outro"})
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestAuthorization() {
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/v1/warehouses", "", nil).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodPost, "/v1/warehouses", s.operator, map[string]interface{}{"code": "x"}).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodPost, "/v1/inventory/adjust", s.service, map[string]interface{}{}).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/v1/warehouses", s.service, nil).Code)
}

func (s *RouterSuite) TestMethodNotAllowed() {
	rec := s.do(http.MethodDelete, "/v1/warehouses/w1", s.admin, nil)
	s.Equal(http.StatusMethodNotAllowed, rec.Code)
}

func (s *RouterSuite) TestReserveAndConfirmRecordActor() {
	s.createWarehouse("w1", 1)
	s.adjust("p1", "w1", 10)

	body := map[string]interface{}{"product_id": "p1", "warehouse_id": "w1", "quantity": 4, "reference": "pedido-1"}
	rec := s.do(http.MethodPost, "/v1/inventory/reserve", s.service, body)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var item domain.InventoryItem
	s.decode(rec, &item)
	s.Equal(4, item.Reserved)

	rec = s.do(http.MethodPost, "/v1/inventory/reserve", s.service, map[string]interface{}{"product_id": "p1", "warehouse_id": "w1", "quantity": 7, "reference": "pedido-2"})
	s.Equal(http.StatusConflict, rec.Code)
	var errResp domain.ErrorResponse
	s.decode(rec, &errResp)
	s.Equal("INSUFFICIENT_STOCK", errResp.Category)

	rec = s.do(http.MethodPost, "/v1/inventory/confirm", s.service, body)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/v1/movements?product_id=p1&type=sale", s.admin, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var movements []domain.StockMovement
	s.decode(rec, &movements)
	s.Require().Len(movements, 1)
	s.Equal("checkout", movements[0].Actor)
	s.Equal(-4, movements[0].Delta)

	rec = s.do(http.MethodGet, "/v1/inventory/w1/p1/replay", s.operator, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var replay stockservice.ReplayResult
	s.decode(rec, &replay)
	s.True(replay.Consistent)
	s.Equal(6, replay.Quantity)
}

func (s *RouterSuite) TestUnknownFieldIsValidation() {
	rec := s.do(http.MethodPost, "/v1/inventory/reserve", s.service, map[string]interface{}{"sku": "p1"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestHoldPicksWarehouseBySelector() {
	s.createWarehouse("w1", 2)
	s.createWarehouse("w2", 1)
	s.adjust("p1", "w1", 10)
	s.adjust("p1", "w2", 3)

	rec := s.do(http.MethodGet, "/v1/fulfillment/warehouse?product_id=p1&quantity=2&region=sudeste", s.service, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var best domain.Warehouse
	s.decode(rec, &best)
	s.Equal("w2", best.ID)

	rec = s.do(http.MethodPost, "/v1/reservations", s.service, map[string]interface{}{
		"product_id": "p1", "region": "sudeste", "quantity": 5, "reference": "pedido-9", "ttl_seconds": 60,
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var res domain.Reservation
	s.decode(rec, &res)
	s.Equal("w1", res.WarehouseID)
	s.Equal(domain.ReservationActive, res.Status)

	rec = s.do(http.MethodPost, "/v1/reservations/"+res.ID+"/release", s.service, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.decode(rec, &res)
	s.Equal(domain.ReservationReleased, res.Status)
	s.Equal("checkout", res.ClosedBy)

	rec = s.do(http.MethodPost, "/v1/reservations/"+res.ID+"/confirm", s.service, nil)
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *RouterSuite) TestTransferFlow() {
	s.createWarehouse("w1", 1)
	s.createWarehouse("w2", 1)
	s.adjust("p1", "w1", 10)

	rec := s.do(http.MethodPost, "/v1/transfers", s.operator, map[string]interface{}{
		"from_warehouse_id": "w1", "to_warehouse_id": "w2",
		"items": []map[string]interface{}{{"product_id": "p1", "quantity": 6}},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var tr domain.StockTransfer
	s.decode(rec, &tr)
	s.Equal("ana", tr.RequestedBy)

	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/v1/transfers/"+tr.ID+"/approve", s.operator, nil).Code)
	rec = s.do(http.MethodPost, "/v1/transfers/"+tr.ID+"/complete", s.operator, map[string]interface{}{"received": map[string]int{"p1": 5}})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.decode(rec, &tr)
	s.Equal(domain.TransferCompleted, tr.Status)

	rec = s.do(http.MethodGet, "/v1/inventory?product_id=p1", s.admin, nil)
	var items []domain.InventoryItem
	s.decode(rec, &items)
	s.Require().Len(items, 2)
	s.Equal(4, items[0].Quantity)
	s.Equal(5, items[1].Quantity)

	rec = s.do(http.MethodGet, "/v1/transfers?warehouse_id=w2&status=completed", s.service, nil)
	var list []domain.StockTransfer
	s.decode(rec, &list)
	s.Len(list, 1)
}

func (s *RouterSuite) TestCountFlowAndAlerts() {
	s.createWarehouse("w1", 1)
	s.adjust("p1", "w1", 10)

	rec := s.do(http.MethodPut, "/v1/inventory/w1/p1/settings", s.operator, map[string]interface{}{"reorder_point": 8})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/v1/counts", s.operator, map[string]interface{}{"warehouse_id": "w1", "type": "cycle", "product_ids": []string{"p1"}})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var c domain.StockCount
	s.decode(rec, &c)

	rec = s.do(http.MethodPost, "/v1/counts/"+c.ID+"/lines", s.operator, map[string]interface{}{"product_id": "p1", "counted": 3})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/v1/counts/"+c.ID+"/complete", s.operator, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.decode(rec, &c)
	s.Equal(domain.CountCompleted, c.Status)

	rec = s.do(http.MethodGet, "/v1/alerts/low-stock?warehouse_id=w1", s.service, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Alerts  []domain.LowStockAlert       `json:"alerts"`
		Summary map[domain.AlertSeverity]int `json:"summary"`
	}
	s.decode(rec, &resp)
	s.Require().Len(resp.Alerts, 1)
	s.Equal(domain.SeverityCritical, resp.Alerts[0].Severity)
	s.Equal(1, resp.Summary[domain.SeverityCritical])

	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/v1/alerts/low-stock?min_severity=grave", s.service, nil).Code)
}

func (s *RouterSuite) TestWarehouseStatusAndCapacity() {
	s.createWarehouse("w1", 1)

	rec := s.do(http.MethodPatch, "/v1/warehouses/w1/status", s.admin, map[string]string{"status": "maintenance"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var wh domain.Warehouse
	s.decode(rec, &wh)
	s.Equal(domain.WarehouseMaintenance, wh.Status)

	rec = s.do(http.MethodGet, "/v1/warehouses?status=active", s.admin, nil)
	var list []domain.Warehouse
	s.decode(rec, &list)
	s.Empty(list)

	rec = s.do(http.MethodGet, "/v1/warehouses/w1/capacity", s.admin, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var capacity domain.WarehouseCapacity
	s.decode(rec, &capacity)
	s.True(capacity.Total.IntPart() == 1000)

	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/v1/warehouses/nope", s.admin, nil).Code)
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}
