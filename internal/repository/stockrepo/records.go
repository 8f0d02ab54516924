package stockrepo

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"stockflow/internal/domain"
	"stockflow/internal/errors"
)

// where acumula condições posicionais ($1, $2...).
type where struct {
	conditions []string
	args       []interface{}
}

func (w *where) add(format string, v interface{}) {
	w.args = append(w.args, v)
	w.conditions = append(w.conditions, fmt.Sprintf(format, len(w.args)))
}

func (w *where) String() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

func (r *StockRepository) GetTransfer(ctx context.Context, id string) (domain.StockTransfer, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var row transferRow
	err := r.DB.GetContext(ctxTimeout, &row, `SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1`, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return domain.StockTransfer{}, errors.NewNotFoundError(fmt.Sprintf("Transferência %s não encontrada.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar transferência no DB.", err)
		return domain.StockTransfer{}, errors.NewDBError("Falha ao buscar transferência", err)
	}
	t, err := row.toDomain()
	if err != nil {
		return domain.StockTransfer{}, errors.NewInternalError("Falha ao decodificar transferência.", err)
	}
	return t, nil
}

func (r *StockRepository) ListTransfers(ctx context.Context, filter domain.TransferFilter) ([]domain.StockTransfer, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	w := &where{}
	if filter.WarehouseID != "" {
		w.args = append(w.args, filter.WarehouseID)
		n := len(w.args)
		w.conditions = append(w.conditions, fmt.Sprintf("(from_warehouse_id = $%d OR to_warehouse_id = $%d)", n, n))
	}
	if filter.Status != "" {
		w.add("status = $%d", string(filter.Status))
	}

	var rows []transferRow
	query := `SELECT ` + transferColumns + ` FROM stock_transfers` + w.String() + ` ORDER BY requested_at, id`
	if err := r.DB.SelectContext(ctxTimeout, &rows, query, w.args...); err != nil {
		r.logger.Error("Falha ao listar transferências no DB.", err)
		return nil, errors.NewDBError("Falha ao listar transferências", err)
	}

	out := make([]domain.StockTransfer, 0, len(rows))
	for _, row := range rows {
		t, err := row.toDomain()
		if err != nil {
			return nil, errors.NewInternalError("Falha ao decodificar transferência.", err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *StockRepository) GetCount(ctx context.Context, id string) (domain.StockCount, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var row countRow
	err := r.DB.GetContext(ctxTimeout, &row, `SELECT `+countColumns+` FROM stock_counts WHERE id = $1`, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return domain.StockCount{}, errors.NewNotFoundError(fmt.Sprintf("Contagem %s não encontrada.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar contagem no DB.", err)
		return domain.StockCount{}, errors.NewDBError("Falha ao buscar contagem", err)
	}
	c, err := row.toDomain()
	if err != nil {
		return domain.StockCount{}, errors.NewInternalError("Falha ao decodificar contagem.", err)
	}
	return c, nil
}

func (r *StockRepository) ListCounts(ctx context.Context, filter domain.CountFilter) ([]domain.StockCount, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	w := &where{}
	if filter.WarehouseID != "" {
		w.add("warehouse_id = $%d", filter.WarehouseID)
	}
	if filter.Status != "" {
		w.add("status = $%d", string(filter.Status))
	}

	var rows []countRow
	query := `SELECT ` + countColumns + ` FROM stock_counts` + w.String() + ` ORDER BY created_at, id`
	if err := r.DB.SelectContext(ctxTimeout, &rows, query, w.args...); err != nil {
		r.logger.Error("Falha ao listar contagens no DB.", err)
		return nil, errors.NewDBError("Falha ao listar contagens", err)
	}

	out := make([]domain.StockCount, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, errors.NewInternalError("Falha ao decodificar contagem.", err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *StockRepository) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var res domain.Reservation
	err := r.DB.GetContext(ctxTimeout, &res, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return domain.Reservation{}, errors.NewNotFoundError(fmt.Sprintf("Reserva %s não encontrada.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar reserva no DB.", err)
		return domain.Reservation{}, errors.NewDBError("Falha ao buscar reserva", err)
	}
	return res, nil
}

// ListReservations ordena por vencimento; ExpiresBefore inclui o próprio instante.
func (r *StockRepository) ListReservations(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	w := &where{}
	if filter.Reference != "" {
		w.add("reference = $%d", filter.Reference)
	}
	if filter.Status != "" {
		w.add("status = $%d", string(filter.Status))
	}
	if filter.ExpiresBefore != nil {
		w.add("expires_at <= $%d", *filter.ExpiresBefore)
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations` + w.String() + ` ORDER BY expires_at, id`
	args := w.args
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	out := make([]domain.Reservation, 0)
	if err := r.DB.SelectContext(ctxTimeout, &out, query, args...); err != nil {
		r.logger.Error("Falha ao listar reservas no DB.", err)
		return nil, errors.NewDBError("Falha ao listar reservas", err)
	}
	return out, nil
}
