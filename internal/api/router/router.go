package router

import (
	"net/http"

	"stockflow/internal/api/alert"
	"stockflow/internal/api/auth"
	"stockflow/internal/api/count"
	"stockflow/internal/api/fulfillment"
	"stockflow/internal/api/inventory"
	"stockflow/internal/api/reservation"
	"stockflow/internal/api/transfer"
	"stockflow/internal/api/warehouse"
	"stockflow/internal/domain"
	"stockflow/internal/pkg/middleware"
)

// Handlers reúne os handlers já inicializados por injeção de dependências.
type Handlers struct {
	Auth        *auth.Handler
	Warehouse   *warehouse.Handler
	Fulfillment *fulfillment.Handler
	Inventory   *inventory.Handler
	Reservation *reservation.Handler
	Transfer    *transfer.Handler
	Count       *count.Handler
	Alert       *alert.Handler
}

// NewRouter configura e retorna o roteador HTTP principal.
// limiter é opcional; sem Redis o serviço sobe sem rate limiting.
func NewRouter(h Handlers, tokenSvc middleware.TokenService, limiter func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	authn := middleware.NewAuthMiddleware(tokenSvc)

	anyone := func(next http.HandlerFunc) http.HandlerFunc {
		return authn(middleware.PermissionMiddleware(domain.RoleAdmin, domain.RoleOperator, domain.RoleService)(next))
	}
	operators := func(next http.HandlerFunc) http.HandlerFunc {
		return authn(middleware.PermissionMiddleware(domain.RoleAdmin, domain.RoleOperator)(next))
	}
	admins := func(next http.HandlerFunc) http.HandlerFunc {
		return authn(middleware.PermissionMiddleware(domain.RoleAdmin)(next))
	}

	// --- Health Check ---
	mux.HandleFunc("GET /ping", PingHandler)
	mux.HandleFunc("POST /v1/auth/token", h.Auth.TokenHandler)

	// --- Armazéns ---
	mux.HandleFunc("POST /v1/warehouses", admins(h.Warehouse.CreateWarehouseHandler))
	mux.HandleFunc("GET /v1/warehouses", anyone(h.Warehouse.GetAllWarehousesHandler))
	mux.HandleFunc("GET /v1/warehouses/{id}", anyone(h.Warehouse.GetWarehouseByIDHandler))
	mux.HandleFunc("PUT /v1/warehouses/{id}", admins(h.Warehouse.UpdateWarehouseHandler))
	mux.HandleFunc("PATCH /v1/warehouses/{id}/status", admins(h.Warehouse.SetStatusHandler))
	mux.HandleFunc("GET /v1/warehouses/{id}/capacity", anyone(h.Warehouse.CapacityHandler))

	// --- Seleção de armazém ---
	mux.HandleFunc("GET /v1/fulfillment/warehouse", anyone(h.Fulfillment.BestWarehouseHandler))
	mux.HandleFunc("GET /v1/fulfillment/candidates", anyone(h.Fulfillment.CandidatesHandler))

	// --- Ledger ---
	mux.HandleFunc("GET /v1/inventory", anyone(h.Inventory.ListItemsHandler))
	mux.HandleFunc("GET /v1/inventory/{warehouseID}/{productID}", anyone(h.Inventory.GetItemHandler))
	mux.HandleFunc("GET /v1/inventory/{warehouseID}/{productID}/replay", operators(h.Inventory.ReplayHandler))
	mux.HandleFunc("PUT /v1/inventory/{warehouseID}/{productID}/settings", operators(h.Inventory.ConfigureItemHandler))
	mux.HandleFunc("POST /v1/inventory/reserve", anyone(h.Inventory.ReserveHandler))
	mux.HandleFunc("POST /v1/inventory/release", anyone(h.Inventory.ReleaseHandler))
	mux.HandleFunc("POST /v1/inventory/confirm", anyone(h.Inventory.ConfirmHandler))
	mux.HandleFunc("POST /v1/inventory/adjust", operators(h.Inventory.AdjustStockHandler))
	mux.HandleFunc("GET /v1/movements", anyone(h.Inventory.ListMovementsHandler))

	// --- Reservas com TTL ---
	mux.HandleFunc("POST /v1/reservations", anyone(h.Reservation.HoldHandler))
	mux.HandleFunc("GET /v1/reservations", anyone(h.Reservation.ListHandler))
	mux.HandleFunc("GET /v1/reservations/{id}", anyone(h.Reservation.GetHandler))
	mux.HandleFunc("POST /v1/reservations/{id}/confirm", anyone(h.Reservation.ConfirmHandler))
	mux.HandleFunc("POST /v1/reservations/{id}/release", anyone(h.Reservation.ReleaseHandler))

	// --- Transferências ---
	mux.HandleFunc("POST /v1/transfers", operators(h.Transfer.RequestHandler))
	mux.HandleFunc("GET /v1/transfers", anyone(h.Transfer.ListHandler))
	mux.HandleFunc("GET /v1/transfers/{id}", anyone(h.Transfer.GetHandler))
	mux.HandleFunc("POST /v1/transfers/{id}/approve", operators(h.Transfer.ApproveHandler))
	mux.HandleFunc("POST /v1/transfers/{id}/complete", operators(h.Transfer.CompleteHandler))
	mux.HandleFunc("POST /v1/transfers/{id}/cancel", operators(h.Transfer.CancelHandler))

	// --- Contagens ---
	mux.HandleFunc("POST /v1/counts", operators(h.Count.CreateHandler))
	mux.HandleFunc("GET /v1/counts", anyone(h.Count.ListHandler))
	mux.HandleFunc("GET /v1/counts/{id}", anyone(h.Count.GetHandler))
	mux.HandleFunc("POST /v1/counts/{id}/lines", operators(h.Count.RecordLineHandler))
	mux.HandleFunc("POST /v1/counts/{id}/complete", operators(h.Count.CompleteHandler))
	mux.HandleFunc("POST /v1/counts/{id}/cancel", operators(h.Count.CancelHandler))

	// --- Alertas ---
	mux.HandleFunc("GET /v1/alerts/low-stock", anyone(h.Alert.LowStockHandler))

	if limiter == nil {
		return mux
	}
	return limiter(mux)
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
