package stockrepo

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"

	"stockflow/internal/domain"
)

const (
	itemColumns        = `warehouse_id, product_id, quantity, reserved, reorder_point, reorder_quantity, zone, aisle, shelf, bin, cost_per_unit, total_value, unit_volume, last_restocked, last_counted, version, created_at, updated_at`
	movementColumns    = `sequence, id, movement_type, warehouse_id, product_id, delta, previous_quantity, new_quantity, reserved_delta, reference, reason, actor, created_at`
	transferColumns    = `id, from_warehouse_id, to_warehouse_id, items, status, notes, requested_by, requested_at, approved_by, approved_at, received_by, received_at, cancelled_by, cancelled_at, version, updated_at`
	countColumns       = `id, warehouse_id, count_type, status, items, created_by, created_at, started_at, completed_by, completed_at, cancelled_by, cancelled_at, version, updated_at`
	reservationColumns = `id, warehouse_id, product_id, quantity, reference, status, expires_at, created_at, closed_at, closed_by, version`
)

type itemRow struct {
	WarehouseID     string          `db:"warehouse_id"`
	ProductID       string          `db:"product_id"`
	Quantity        int             `db:"quantity"`
	Reserved        int             `db:"reserved"`
	ReorderPoint    int             `db:"reorder_point"`
	ReorderQuantity int             `db:"reorder_quantity"`
	Zone            string          `db:"zone"`
	Aisle           string          `db:"aisle"`
	Shelf           string          `db:"shelf"`
	Bin             string          `db:"bin"`
	CostPerUnit     decimal.Decimal `db:"cost_per_unit"`
	TotalValue      decimal.Decimal `db:"total_value"`
	UnitVolume      decimal.Decimal `db:"unit_volume"`
	LastRestocked   *time.Time      `db:"last_restocked"`
	LastCounted     *time.Time      `db:"last_counted"`
	Version         int             `db:"version"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func itemToRow(i domain.InventoryItem) itemRow {
	return itemRow{
		WarehouseID:     i.WarehouseID,
		ProductID:       i.ProductID,
		Quantity:        i.Quantity,
		Reserved:        i.Reserved,
		ReorderPoint:    i.ReorderPoint,
		ReorderQuantity: i.ReorderQuantity,
		Zone:            i.Location.Zone,
		Aisle:           i.Location.Aisle,
		Shelf:           i.Location.Shelf,
		Bin:             i.Location.Bin,
		CostPerUnit:     i.CostPerUnit,
		TotalValue:      i.TotalValue,
		UnitVolume:      i.UnitVolume,
		LastRestocked:   i.LastRestocked,
		LastCounted:     i.LastCounted,
		Version:         i.Version,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}
}

func (r itemRow) toDomain() domain.InventoryItem {
	return domain.InventoryItem{
		ProductID:       r.ProductID,
		WarehouseID:     r.WarehouseID,
		Quantity:        r.Quantity,
		Reserved:        r.Reserved,
		ReorderPoint:    r.ReorderPoint,
		ReorderQuantity: r.ReorderQuantity,
		Location:        domain.BinLocation{Zone: r.Zone, Aisle: r.Aisle, Shelf: r.Shelf, Bin: r.Bin},
		CostPerUnit:     r.CostPerUnit,
		TotalValue:      r.TotalValue,
		UnitVolume:      r.UnitVolume,
		LastRestocked:   r.LastRestocked,
		LastCounted:     r.LastCounted,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type transferRow struct {
	ID              string         `db:"id"`
	FromWarehouseID string         `db:"from_warehouse_id"`
	ToWarehouseID   string         `db:"to_warehouse_id"`
	Items           types.JSONText `db:"items"`
	Status          string         `db:"status"`
	Notes           string         `db:"notes"`
	RequestedBy     string         `db:"requested_by"`
	RequestedAt     time.Time      `db:"requested_at"`
	ApprovedBy      string         `db:"approved_by"`
	ApprovedAt      *time.Time     `db:"approved_at"`
	ReceivedBy      string         `db:"received_by"`
	ReceivedAt      *time.Time     `db:"received_at"`
	CancelledBy     string         `db:"cancelled_by"`
	CancelledAt     *time.Time     `db:"cancelled_at"`
	Version         int            `db:"version"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func transferToRow(t domain.StockTransfer) (transferRow, error) {
	items := t.Items
	if items == nil {
		items = []domain.TransferItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return transferRow{}, err
	}
	return transferRow{
		ID:              t.ID,
		FromWarehouseID: t.FromWarehouseID,
		ToWarehouseID:   t.ToWarehouseID,
		Items:           types.JSONText(raw),
		Status:          string(t.Status),
		Notes:           t.Notes,
		RequestedBy:     t.RequestedBy,
		RequestedAt:     t.RequestedAt,
		ApprovedBy:      t.ApprovedBy,
		ApprovedAt:      t.ApprovedAt,
		ReceivedBy:      t.ReceivedBy,
		ReceivedAt:      t.ReceivedAt,
		CancelledBy:     t.CancelledBy,
		CancelledAt:     t.CancelledAt,
		Version:         t.Version,
		UpdatedAt:       t.UpdatedAt,
	}, nil
}

func (r transferRow) toDomain() (domain.StockTransfer, error) {
	t := domain.StockTransfer{
		ID:              r.ID,
		FromWarehouseID: r.FromWarehouseID,
		ToWarehouseID:   r.ToWarehouseID,
		Status:          domain.TransferStatus(r.Status),
		Notes:           r.Notes,
		RequestedBy:     r.RequestedBy,
		RequestedAt:     r.RequestedAt,
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      r.ApprovedAt,
		ReceivedBy:      r.ReceivedBy,
		ReceivedAt:      r.ReceivedAt,
		CancelledBy:     r.CancelledBy,
		CancelledAt:     r.CancelledAt,
		Version:         r.Version,
		UpdatedAt:       r.UpdatedAt,
	}
	if err := r.Items.Unmarshal(&t.Items); err != nil {
		return domain.StockTransfer{}, err
	}
	return t, nil
}

type countRow struct {
	ID          string         `db:"id"`
	WarehouseID string         `db:"warehouse_id"`
	Type        string         `db:"count_type"`
	Status      string         `db:"status"`
	Items       types.JSONText `db:"items"`
	CreatedBy   string         `db:"created_by"`
	CreatedAt   time.Time      `db:"created_at"`
	StartedAt   *time.Time     `db:"started_at"`
	CompletedBy string         `db:"completed_by"`
	CompletedAt *time.Time     `db:"completed_at"`
	CancelledBy string         `db:"cancelled_by"`
	CancelledAt *time.Time     `db:"cancelled_at"`
	Version     int            `db:"version"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func countToRow(c domain.StockCount) (countRow, error) {
	items := c.Items
	if items == nil {
		items = []domain.StockCountItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return countRow{}, err
	}
	return countRow{
		ID:          c.ID,
		WarehouseID: c.WarehouseID,
		Type:        string(c.Type),
		Status:      string(c.Status),
		Items:       types.JSONText(raw),
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt,
		StartedAt:   c.StartedAt,
		CompletedBy: c.CompletedBy,
		CompletedAt: c.CompletedAt,
		CancelledBy: c.CancelledBy,
		CancelledAt: c.CancelledAt,
		Version:     c.Version,
		UpdatedAt:   c.UpdatedAt,
	}, nil
}

func (r countRow) toDomain() (domain.StockCount, error) {
	c := domain.StockCount{
		ID:          r.ID,
		WarehouseID: r.WarehouseID,
		Type:        domain.CountType(r.Type),
		Status:      domain.CountStatus(r.Status),
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		StartedAt:   r.StartedAt,
		CompletedBy: r.CompletedBy,
		CompletedAt: r.CompletedAt,
		CancelledBy: r.CancelledBy,
		CancelledAt: r.CancelledAt,
		Version:     r.Version,
		UpdatedAt:   r.UpdatedAt,
	}
	if err := r.Items.Unmarshal(&c.Items); err != nil {
		return domain.StockCount{}, err
	}
	return c, nil
}
