// Package stockrepo implementa o ledger sobre PostgreSQL. Cada unidade de trabalho é uma
// transação; as chaves (armazém, produto) são serializadas com advisory locks em ordem global.
package stockrepo

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"stockflow/internal/domain"
	"stockflow/internal/errors"
	"stockflow/internal/pkg/logger"
)

// StockRepository implementa domain.LedgerStore e os repositórios de leitura dos workflows.
type StockRepository struct {
	DB        *sqlx.DB
	DBTimeout time.Duration
	logger    logger.Logger
	now       func() time.Time
}

// NewStockRepository cria e retorna uma nova instância do Repositório de Estoque.
func NewStockRepository(db *sqlx.DB, dbTimeout time.Duration, logger logger.Logger) *StockRepository {
	return &StockRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithItems abre uma transação, adquire as chaves em ordem e executa fn. Erro em fn faz rollback.
func (r *StockRepository) WithItems(ctx context.Context, keys []domain.ItemKey, fn func(tx domain.LedgerTx) error) error {
	sorted := domain.SortKeys(keys)

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTxx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação do ledger.", err)
		return errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback() // Rollback em caso de erro

	for _, k := range sorted {
		if _, err := tx.ExecContext(ctxTimeout, `SELECT pg_advisory_xact_lock(hashtext($1))`, k.LockName()); err != nil {
			r.logger.Error("Falha ao adquirir lock da chave.", err)
			return errors.NewDBError(fmt.Sprintf("Falha ao bloquear %s", k), err)
		}
	}

	ptx := newTx(r, tx, sorted)
	if err := fn(ptx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Falha ao commitar transação do ledger.", err)
		return errors.NewDBError("Falha ao commitar transação", err)
	}
	return nil
}

// GetItem busca o item atual fora de qualquer unidade de trabalho.
func (r *StockRepository) GetItem(ctx context.Context, key domain.ItemKey) (domain.InventoryItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	item, found, err := getItem(ctxTimeout, r.DB, key)
	if err != nil {
		r.logger.Error("Falha ao buscar item no DB.", err)
		return domain.InventoryItem{}, errors.NewDBError("Falha ao buscar item", err)
	}
	if !found {
		return domain.InventoryItem{}, errors.NewNotFoundError(fmt.Sprintf("Item %s não encontrado.", key))
	}
	return item, nil
}

// ListItems devolve os itens em ordem de chave.
func (r *StockRepository) ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.InventoryItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE 1 = 1`
	args := []interface{}{}
	if filter.WarehouseID != "" {
		query += ` AND warehouse_id = ?`
		args = append(args, filter.WarehouseID)
	}
	if len(filter.ProductIDs) > 0 {
		query += ` AND product_id IN (?)`
		args = append(args, filter.ProductIDs)
	}
	query += ` ORDER BY warehouse_id, product_id`

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, errors.NewInternalError("Falha ao montar consulta de itens.", err)
	}
	query = r.DB.Rebind(query)

	var rows []itemRow
	if err := r.DB.SelectContext(ctxTimeout, &rows, query, args...); err != nil {
		r.logger.Error("Falha ao listar itens no DB.", err)
		return nil, errors.NewDBError("Falha ao listar itens", err)
	}

	items := make([]domain.InventoryItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, nil
}

// ListMovements devolve o log em ordem de sequência. Com Limit, mantém as mais recentes.
func (r *StockRepository) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.StockMovement, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE 1 = 1`
	args := []interface{}{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		query += fmt.Sprintf(" AND %s = $%d", cond, len(args))
	}
	if filter.ProductID != "" {
		add("product_id", filter.ProductID)
	}
	if filter.WarehouseID != "" {
		add("warehouse_id", filter.WarehouseID)
	}
	if filter.Type != "" {
		add("movement_type", string(filter.Type))
	}
	if filter.Reference != "" {
		add("reference", filter.Reference)
	}

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query = fmt.Sprintf(`SELECT * FROM (%s ORDER BY sequence DESC LIMIT $%d) recent ORDER BY sequence`, query, len(args))
	} else {
		query += ` ORDER BY sequence`
	}

	movements := make([]domain.StockMovement, 0)
	if err := r.DB.SelectContext(ctxTimeout, &movements, query, args...); err != nil {
		r.logger.Error("Falha ao listar movimentações no DB.", err)
		return nil, errors.NewDBError("Falha ao listar movimentações", err)
	}
	return movements, nil
}

func getItem(ctx context.Context, q sqlx.QueryerContext, key domain.ItemKey) (domain.InventoryItem, bool, error) {
	var row itemRow
	err := sqlx.GetContext(ctx, q, &row,
		`SELECT `+itemColumns+` FROM inventory_items WHERE warehouse_id = $1 AND product_id = $2`,
		key.WarehouseID, key.ProductID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return domain.InventoryItem{}, false, nil
	}
	if err != nil {
		return domain.InventoryItem{}, false, err
	}
	return row.toDomain(), true, nil
}
