package stockrepo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"stockflow/internal/domain"
	"stockflow/internal/errors"
	"stockflow/internal/pkg/database"
)

// pgTx escreve direto na transação; o commit acontece em WithItems.
type pgTx struct {
	repo *StockRepository
	tx   *sqlx.Tx
	keys map[domain.ItemKey]struct{}

	// versões já gravadas nesta transação, por "entidade:id"
	versions map[string]int
}

func newTx(repo *StockRepository, tx *sqlx.Tx, keys []domain.ItemKey) *pgTx {
	held := make(map[domain.ItemKey]struct{}, len(keys))
	for _, k := range keys {
		held[k] = struct{}{}
	}
	return &pgTx{repo: repo, tx: tx, keys: held, versions: make(map[string]int)}
}

func (t *pgTx) checkHeld(key domain.ItemKey) error {
	if _, ok := t.keys[key]; !ok {
		return errors.NewInternalError(fmt.Sprintf("Chave %s não foi adquirida nesta unidade de trabalho.", key), nil)
	}
	return nil
}

func (t *pgTx) GetItem(ctx context.Context, key domain.ItemKey) (domain.InventoryItem, bool, error) {
	if err := t.checkHeld(key); err != nil {
		return domain.InventoryItem{}, false, err
	}
	item, found, err := getItem(ctx, t.tx, key)
	if err != nil {
		t.repo.logger.Error("Falha ao ler item na transação.", err)
		return domain.InventoryItem{}, false, errors.NewDBError("Falha ao ler item", err)
	}
	return item, found, nil
}

func (t *pgTx) PutItem(ctx context.Context, item domain.InventoryItem) error {
	if err := t.checkHeld(item.Key()); err != nil {
		return err
	}
	if !item.CheckInvariant() {
		return errors.NewCapacityViolationError(item.ProductID, item.WarehouseID, item.Quantity, item.Reserved)
	}

	query := `
        INSERT INTO inventory_items (` + itemColumns + `)
        VALUES (:warehouse_id, :product_id, :quantity, :reserved, :reorder_point, :reorder_quantity, :zone, :aisle, :shelf, :bin,
                :cost_per_unit, :total_value, :unit_volume, :last_restocked, :last_counted, :version, :created_at, :updated_at)
        ON CONFLICT (warehouse_id, product_id)
        DO UPDATE SET
            quantity = EXCLUDED.quantity,
            reserved = EXCLUDED.reserved,
            reorder_point = EXCLUDED.reorder_point,
            reorder_quantity = EXCLUDED.reorder_quantity,
            zone = EXCLUDED.zone,
            aisle = EXCLUDED.aisle,
            shelf = EXCLUDED.shelf,
            bin = EXCLUDED.bin,
            cost_per_unit = EXCLUDED.cost_per_unit,
            total_value = EXCLUDED.total_value,
            unit_volume = EXCLUDED.unit_volume,
            last_restocked = EXCLUDED.last_restocked,
            last_counted = EXCLUDED.last_counted,
            version = EXCLUDED.version,
            updated_at = EXCLUDED.updated_at`

	if _, err := t.tx.NamedExecContext(ctx, query, itemToRow(item)); err != nil {
		if database.IsCheckViolation(err) {
			return errors.NewCapacityViolationError(item.ProductID, item.WarehouseID, item.Quantity, item.Reserved)
		}
		t.repo.logger.Error("Falha ao gravar item.", err)
		return errors.NewDBError("Falha ao gravar item", err)
	}
	return nil
}

func (t *pgTx) AppendMovement(ctx context.Context, m domain.StockMovement) error {
	if err := t.checkHeld(m.Key()); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = t.repo.now()
	}

	query := `
        INSERT INTO stock_movements (id, movement_type, warehouse_id, product_id, delta, previous_quantity, new_quantity, reserved_delta, reference, reason, actor, created_at)
        VALUES (:id, :movement_type, :warehouse_id, :product_id, :delta, :previous_quantity, :new_quantity, :reserved_delta, :reference, :reason, :actor, :created_at)`

	if _, err := t.tx.NamedExecContext(ctx, query, m); err != nil {
		t.repo.logger.Error("Falha ao registrar movimentação.", err)
		return errors.NewDBError("Falha ao registrar movimentação", err)
	}
	return nil
}

// casVersions devolve a versão esperada no banco e a nova versão.
// Uma segunda gravação do mesmo registro na transação mantém a versão já escrita.
func (t *pgTx) casVersions(entity, id string, version int) (expected, next int, insert bool) {
	if written, ok := t.versions[entity+":"+id]; ok {
		return written, written, false
	}
	return version, version + 1, version == 0
}

func (t *pgTx) applyCAS(ctx context.Context, entity, id, query string, arg interface{}, next int) error {
	res, err := t.tx.NamedExecContext(ctx, query, arg)
	if err != nil {
		t.repo.logger.Error(fmt.Sprintf("Falha ao gravar %s.", entity), err)
		return errors.NewDBError(fmt.Sprintf("Falha ao gravar %s", entity), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if n == 0 {
		t.repo.logger.Warn("Conflito de versão.", map[string]interface{}{"entity": entity, "id": id})
		return errors.NewConflictError(fmt.Sprintf("%s %s foi alterada concorrentemente.", entity, id))
	}
	t.versions[entity+":"+id] = next
	return nil
}

type transferCAS struct {
	transferRow
	Expected int `db:"expected"`
}

func (t *pgTx) SaveTransfer(ctx context.Context, tr domain.StockTransfer) error {
	expected, next, insert := t.casVersions("transferência", tr.ID, tr.Version)
	row, err := transferToRow(tr)
	if err != nil {
		return errors.NewInternalError("Falha ao serializar transferência.", err)
	}
	row.Version = next

	query := `
        UPDATE stock_transfers
        SET items = :items, status = :status, notes = :notes,
            approved_by = :approved_by, approved_at = :approved_at,
            received_by = :received_by, received_at = :received_at,
            cancelled_by = :cancelled_by, cancelled_at = :cancelled_at,
            version = :version, updated_at = :updated_at
        WHERE id = :id AND version = :expected`
	if insert {
		query = `
        INSERT INTO stock_transfers (` + transferColumns + `)
        VALUES (:id, :from_warehouse_id, :to_warehouse_id, :items, :status, :notes, :requested_by, :requested_at,
                :approved_by, :approved_at, :received_by, :received_at, :cancelled_by, :cancelled_at, :version, :updated_at)
        ON CONFLICT (id) DO NOTHING`
	}
	return t.applyCAS(ctx, "transferência", tr.ID, query, transferCAS{transferRow: row, Expected: expected}, next)
}

type countCAS struct {
	countRow
	Expected int `db:"expected"`
}

func (t *pgTx) SaveCount(ctx context.Context, c domain.StockCount) error {
	expected, next, insert := t.casVersions("contagem", c.ID, c.Version)
	row, err := countToRow(c)
	if err != nil {
		return errors.NewInternalError("Falha ao serializar contagem.", err)
	}
	row.Version = next

	query := `
        UPDATE stock_counts
        SET status = :status, items = :items, started_at = :started_at,
            completed_by = :completed_by, completed_at = :completed_at,
            cancelled_by = :cancelled_by, cancelled_at = :cancelled_at,
            version = :version, updated_at = :updated_at
        WHERE id = :id AND version = :expected`
	if insert {
		query = `
        INSERT INTO stock_counts (` + countColumns + `)
        VALUES (:id, :warehouse_id, :count_type, :status, :items, :created_by, :created_at, :started_at,
                :completed_by, :completed_at, :cancelled_by, :cancelled_at, :version, :updated_at)
        ON CONFLICT (id) DO NOTHING`
	}
	return t.applyCAS(ctx, "contagem", c.ID, query, countCAS{countRow: row, Expected: expected}, next)
}

type reservationCAS struct {
	domain.Reservation
	Expected int `db:"expected"`
}

func (t *pgTx) SaveReservation(ctx context.Context, r domain.Reservation) error {
	expected, next, insert := t.casVersions("reserva", r.ID, r.Version)
	r.Version = next

	query := `
        UPDATE reservations
        SET status = :status, closed_at = :closed_at, closed_by = :closed_by, version = :version
        WHERE id = :id AND version = :expected`
	if insert {
		query = `
        INSERT INTO reservations (` + reservationColumns + `)
        VALUES (:id, :warehouse_id, :product_id, :quantity, :reference, :status, :expires_at, :created_at, :closed_at, :closed_by, :version)
        ON CONFLICT (id) DO NOTHING`
	}
	return t.applyCAS(ctx, "reserva", r.ID, query, reservationCAS{Reservation: r, Expected: expected}, next)
}
