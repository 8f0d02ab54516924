package domain

import "time"

// ReservationStatus é o ciclo de vida de uma reserva.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationReleased  ReservationStatus = "released"
	ReservationExpired   ReservationStatus = "expired"
)

// Reservation é o registro durável de uma reserva feita por um pedido.
type Reservation struct {
	ID          string            `json:"id" db:"id"`
	ProductID   string            `json:"product_id" db:"product_id"`
	WarehouseID string            `json:"warehouse_id" db:"warehouse_id"`
	Quantity    int               `json:"quantity" db:"quantity"`
	Reference   string            `json:"reference" db:"reference"`
	Status      ReservationStatus `json:"status" db:"status"`
	ExpiresAt   time.Time         `json:"expires_at" db:"expires_at"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	ClosedAt    *time.Time        `json:"closed_at,omitempty" db:"closed_at"`
	ClosedBy    string            `json:"closed_by,omitempty" db:"closed_by"`
	Version     int               `json:"version" db:"version"`
}

func (r Reservation) Key() ItemKey {
	return ItemKey{ProductID: r.ProductID, WarehouseID: r.WarehouseID}
}

// Expired informa se a reserva ativa passou do prazo.
func (r Reservation) Expired(now time.Time) bool {
	return r.Status == ReservationActive && !r.ExpiresAt.After(now)
}

// ReservationFilter restringe listagens de reservas.
type ReservationFilter struct {
	Reference     string
	Status        ReservationStatus
	ExpiresBefore *time.Time
	Limit         int
}
