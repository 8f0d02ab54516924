package domain

import "time"

// MovementType classifica uma entrada do log de movimentações.
type MovementType string

const (
	MovementPurchase   MovementType = "purchase"
	MovementSale       MovementType = "sale"
	MovementTransfer   MovementType = "transfer"
	MovementAdjustment MovementType = "adjustment"
	MovementReturn     MovementType = "return"
	MovementDamage     MovementType = "damage"
	MovementTheft      MovementType = "theft"
	MovementCount      MovementType = "count"
	// Alteram apenas Reserved.
	MovementReserve MovementType = "reserve"
	MovementRelease MovementType = "release"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementPurchase, MovementSale, MovementTransfer, MovementAdjustment, MovementReturn,
		MovementDamage, MovementTheft, MovementCount, MovementReserve, MovementRelease:
		return true
	}
	return false
}

// StockMovement é uma entrada imutável do log. Uma por mutação bem-sucedida de InventoryItem.
// A soma de Delta reconstrói Quantity; a soma de ReservedDelta reconstrói Reserved.
type StockMovement struct {
	ID               string       `json:"id" db:"id"`
	Sequence         int64        `json:"sequence" db:"sequence"`
	Type             MovementType `json:"type" db:"movement_type"`
	ProductID        string       `json:"product_id" db:"product_id"`
	WarehouseID      string       `json:"warehouse_id" db:"warehouse_id"`
	Delta            int          `json:"delta" db:"delta"`
	PreviousQuantity int          `json:"previous_quantity" db:"previous_quantity"`
	NewQuantity      int          `json:"new_quantity" db:"new_quantity"`
	ReservedDelta    int          `json:"reserved_delta" db:"reserved_delta"`
	Reference        string       `json:"reference,omitempty" db:"reference"`
	Reason           string       `json:"reason,omitempty" db:"reason"`
	Actor            string       `json:"actor,omitempty" db:"actor"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
}

func (m StockMovement) Key() ItemKey {
	return ItemKey{ProductID: m.ProductID, WarehouseID: m.WarehouseID}
}

// MovementFilter restringe consultas ao log. Resultados sempre em ordem de Sequence.
type MovementFilter struct {
	ProductID   string
	WarehouseID string
	Type        MovementType
	Reference   string
	Limit       int
}

// Replay reconstrói quantity e reserved a partir de movimentações de uma mesma chave.
func Replay(movements []StockMovement) (quantity int, reserved int) {
	for _, m := range movements {
		quantity += m.Delta
		reserved += m.ReservedDelta
	}
	return quantity, reserved
}
