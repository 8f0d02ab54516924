package warehouserepo

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"stockflow/internal/domain"
	"stockflow/internal/errors"
	"stockflow/internal/pkg/database"
	"stockflow/internal/pkg/logger"
)

const warehouseColumns = `id, code, name, type, address, operating_hours, total_capacity, shipping_zones, priority, status, created_at, updated_at`

// warehouseRow é a forma persistida de domain.Warehouse.
type warehouseRow struct {
	ID             string          `db:"id"`
	Code           string          `db:"code"`
	Name           string          `db:"name"`
	Type           string          `db:"type"`
	Address        types.JSONText  `db:"address"`
	OperatingHours types.JSONText  `db:"operating_hours"`
	TotalCapacity  decimal.Decimal `db:"total_capacity"`
	ShippingZones  pq.StringArray  `db:"shipping_zones"`
	Priority       int             `db:"priority"`
	Status         string          `db:"status"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func toRow(w domain.Warehouse) (warehouseRow, error) {
	address, err := json.Marshal(w.Address)
	if err != nil {
		return warehouseRow{}, err
	}
	hours := w.OperatingHours
	if hours == nil {
		hours = []domain.OperatingHours{}
	}
	hoursJSON, err := json.Marshal(hours)
	if err != nil {
		return warehouseRow{}, err
	}
	zones := pq.StringArray(w.ShippingZones)
	if zones == nil {
		zones = pq.StringArray{}
	}
	return warehouseRow{
		ID:             w.ID,
		Code:           w.Code,
		Name:           w.Name,
		Type:           string(w.Type),
		Address:        types.JSONText(address),
		OperatingHours: types.JSONText(hoursJSON),
		TotalCapacity:  w.TotalCapacity,
		ShippingZones:  zones,
		Priority:       w.Priority,
		Status:         string(w.Status),
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}, nil
}

func (r warehouseRow) toDomain() (domain.Warehouse, error) {
	w := domain.Warehouse{
		ID:            r.ID,
		Code:          r.Code,
		Name:          r.Name,
		Type:          domain.WarehouseType(r.Type),
		TotalCapacity: r.TotalCapacity,
		ShippingZones: []string(r.ShippingZones),
		Priority:      r.Priority,
		Status:        domain.WarehouseStatus(r.Status),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if len(r.Address) > 0 {
		if err := r.Address.Unmarshal(&w.Address); err != nil {
			return domain.Warehouse{}, err
		}
	}
	if len(r.OperatingHours) > 0 {
		if err := r.OperatingHours.Unmarshal(&w.OperatingHours); err != nil {
			return domain.Warehouse{}, err
		}
	}
	return w, nil
}

// WarehouseRepository implementa domain.WarehouseRepository sobre PostgreSQL.
type WarehouseRepository struct {
	DB        *sqlx.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewWarehouseRepository cria e retorna uma nova instância do Repositório de Armazéns.
func NewWarehouseRepository(db *sqlx.DB, dbTimeout time.Duration, logger logger.Logger) *WarehouseRepository {
	return &WarehouseRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// CreateWarehouse insere um novo armazém. Código duplicado vira ConflictError.
func (r *WarehouseRepository) CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	r.logger.Debug("Iniciando CreateWarehouse no repositório.", map[string]interface{}{"code": warehouse.Code})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if warehouse.ID == "" {
		warehouse.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	warehouse.CreatedAt = now
	warehouse.UpdatedAt = now

	row, err := toRow(warehouse)
	if err != nil {
		return domain.Warehouse{}, errors.NewInternalError("Falha ao serializar armazém.", err)
	}

	query := `
        INSERT INTO warehouses (` + warehouseColumns + `)
        VALUES (:id, :code, :name, :type, :address, :operating_hours, :total_capacity, :shipping_zones, :priority, :status, :created_at, :updated_at)`

	if _, err := r.DB.NamedExecContext(ctxTimeout, query, row); err != nil {
		if database.IsUniqueViolation(err) {
			r.logger.Warn("Armazém duplicado.", map[string]interface{}{"id": warehouse.ID, "code": warehouse.Code})
			return domain.Warehouse{}, errors.NewConflictError(fmt.Sprintf("Armazém %s ou código %s já existe.", warehouse.ID, warehouse.Code))
		}
		r.logger.Error("Falha ao inserir armazém no DB.", err)
		return domain.Warehouse{}, errors.NewDBError("Falha ao criar armazém", err)
	}

	r.logger.Info("Armazém criado com sucesso.", map[string]interface{}{"id": warehouse.ID, "code": warehouse.Code})
	return warehouse, nil
}

// GetWarehouseByID busca um armazém pelo ID.
func (r *WarehouseRepository) GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error) {
	r.logger.Debug("Iniciando GetWarehouseByID no repositório.", map[string]interface{}{"id": id})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var row warehouseRow
	err := r.DB.GetContext(ctxTimeout, &row, `SELECT `+warehouseColumns+` FROM warehouses WHERE id = $1`, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return domain.Warehouse{}, errors.NewWarehouseNotFoundError(id)
	}
	if err != nil {
		r.logger.Error("Falha ao buscar armazém no DB.", err)
		return domain.Warehouse{}, errors.NewDBError("Falha ao buscar armazém", err)
	}

	w, err := row.toDomain()
	if err != nil {
		return domain.Warehouse{}, errors.NewInternalError("Falha ao decodificar armazém.", err)
	}
	return w, nil
}

// GetAllWarehouses lista por prioridade e ID, aplicando os filtros de status e região.
func (r *WarehouseRepository) GetAllWarehouses(ctx context.Context, filter domain.WarehouseFilter) ([]domain.Warehouse, error) {
	r.logger.Debug("Iniciando GetAllWarehouses no repositório.", map[string]interface{}{"status": filter.Status, "region": filter.Region})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	conditions := []string{}
	args := []interface{}{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Region != "" {
		args = append(args, filter.Region)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(shipping_zones)", len(args)))
	}

	query := `SELECT ` + warehouseColumns + ` FROM warehouses`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY priority, id"

	var rows []warehouseRow
	if err := r.DB.SelectContext(ctxTimeout, &rows, query, args...); err != nil {
		r.logger.Error("Falha ao executar GetAllWarehouses query.", err)
		return nil, errors.NewDBError("Falha ao buscar todos os armazéns", err)
	}

	warehouses := make([]domain.Warehouse, 0, len(rows))
	for _, row := range rows {
		w, err := row.toDomain()
		if err != nil {
			return nil, errors.NewInternalError("Falha ao decodificar armazém.", err)
		}
		warehouses = append(warehouses, w)
	}

	r.logger.Debug("GetAllWarehouses concluído com sucesso.", map[string]interface{}{"total_warehouses": len(warehouses)})
	return warehouses, nil
}

// UpdateWarehouse substitui os dados do armazém, preservando created_at.
func (r *WarehouseRepository) UpdateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	r.logger.Debug("Iniciando UpdateWarehouse no repositório.", map[string]interface{}{"id": warehouse.ID})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	warehouse.UpdatedAt = time.Now().UTC()
	row, err := toRow(warehouse)
	if err != nil {
		return domain.Warehouse{}, errors.NewInternalError("Falha ao serializar armazém.", err)
	}

	query := `
        UPDATE warehouses
        SET code = :code, name = :name, type = :type, address = :address, operating_hours = :operating_hours,
            total_capacity = :total_capacity, shipping_zones = :shipping_zones, priority = :priority,
            status = :status, updated_at = :updated_at
        WHERE id = :id
        RETURNING created_at`

	rows, err := r.DB.NamedQueryContext(ctxTimeout, query, row)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.Warehouse{}, errors.NewConflictError(fmt.Sprintf("Código de armazém %s já está em uso.", warehouse.Code))
		}
		r.logger.Error("Falha ao atualizar armazém no DB.", err)
		return domain.Warehouse{}, errors.NewDBError("Falha ao atualizar armazém", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			if database.IsUniqueViolation(err) {
				return domain.Warehouse{}, errors.NewConflictError(fmt.Sprintf("Código de armazém %s já está em uso.", warehouse.Code))
			}
			r.logger.Error("Falha ao atualizar armazém no DB.", err)
			return domain.Warehouse{}, errors.NewDBError("Falha ao atualizar armazém", err)
		}
		return domain.Warehouse{}, errors.NewWarehouseNotFoundError(warehouse.ID)
	}
	if err := rows.Scan(&warehouse.CreatedAt); err != nil {
		return domain.Warehouse{}, errors.NewDBError("Falha ao ler armazém atualizado", err)
	}

	r.logger.Info("Armazém atualizado com sucesso.", map[string]interface{}{"id": warehouse.ID, "status": warehouse.Status})
	return warehouse, nil
}
