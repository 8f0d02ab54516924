package reservationservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"stockflow/internal/domain"
	apperror "stockflow/internal/errors"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/service/selectorservice"
	"stockflow/internal/service/stockservice"
)

// Ledger é o subconjunto do Inventory Ledger usado pelas reservas.
type Ledger interface {
	ApplyWith(ctx context.Context, mutations []stockservice.Mutation, fn func(tx domain.LedgerTx) error) ([]domain.InventoryItem, error)
}

// Selector escolhe armazéns quando o chamador não informa um.
type Selector interface {
	Candidates(ctx context.Context, productID string, qty int, region string) ([]selectorservice.Candidate, error)
}

// HoldRequest é o pedido de reserva de uma linha de pedido.
type HoldRequest struct {
	ProductID   string        `json:"product_id"`
	WarehouseID string        `json:"warehouse_id,omitempty"`
	Region      string        `json:"region,omitempty"`
	Quantity    int           `json:"quantity"`
	Reference   string        `json:"reference"`
	TTL         time.Duration `json:"-"`
	Actor       string        `json:"-"`
}

// Service gerencia o ciclo de vida das reservas: active -> confirmed | released | expired.
type Service struct {
	ledger     Ledger
	repo       domain.ReservationRepository
	selector   Selector
	defaultTTL time.Duration
	logger     logger.Logger
	now        func() time.Time
}

func NewService(ledger Ledger, repo domain.ReservationRepository, selector Selector, defaultTTL time.Duration, logger logger.Logger) *Service {
	return &Service{
		ledger:     ledger,
		repo:       repo,
		selector:   selector,
		defaultTTL: defaultTTL,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Hold reserva estoque e grava a reserva na mesma unidade de trabalho.
// Sem armazém informado, tenta os candidatos do seletor em ordem.
func (s *Service) Hold(ctx context.Context, req HoldRequest) (domain.Reservation, error) {
	s.logger.Debug("Iniciando reserva.", map[string]interface{}{"product_id": req.ProductID, "quantity": req.Quantity, "reference": req.Reference})

	if strings.TrimSpace(req.ProductID) == "" {
		return domain.Reservation{}, apperror.NewValidationError("O produto é obrigatório.")
	}
	if req.Quantity <= 0 {
		return domain.Reservation{}, apperror.NewValidationError("A quantidade reservada deve ser positiva.")
	}
	if strings.TrimSpace(req.Reference) == "" {
		return domain.Reservation{}, apperror.NewValidationError("A referência do pedido é obrigatória.")
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	if req.WarehouseID != "" {
		return s.hold(ctx, req, req.WarehouseID, ttl)
	}
	if strings.TrimSpace(req.Region) == "" {
		return domain.Reservation{}, apperror.NewValidationError("Informe o armazém ou a região de destino.")
	}

	candidates, err := s.selector.Candidates(ctx, req.ProductID, req.Quantity, req.Region)
	if err != nil {
		return domain.Reservation{}, err
	}
	for _, c := range candidates {
		r, err := s.hold(ctx, req, c.Warehouse.ID, ttl)
		if apperror.IsInsufficientStock(err) {
			// Outro pedido levou o estoque entre a seleção e a reserva.
			continue
		}
		return r, err
	}
	return domain.Reservation{}, apperror.NewInsufficientStockError(req.ProductID, "", req.Quantity, 0)
}

func (s *Service) hold(ctx context.Context, req HoldRequest, warehouseID string, ttl time.Duration) (domain.Reservation, error) {
	now := s.now()
	r := domain.Reservation{
		ID:          uuid.New().String(),
		ProductID:   req.ProductID,
		WarehouseID: warehouseID,
		Quantity:    req.Quantity,
		Reference:   req.Reference,
		Status:      domain.ReservationActive,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}

	mutation := stockservice.Mutation{
		Kind: stockservice.KindReserve, ProductID: r.ProductID, WarehouseID: r.WarehouseID,
		Quantity: r.Quantity, Reference: r.Reference, Actor: req.Actor,
	}
	_, err := s.ledger.ApplyWith(ctx, []stockservice.Mutation{mutation}, func(tx domain.LedgerTx) error {
		return tx.SaveReservation(ctx, r)
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	r.Version = 1
	s.logger.Info("Reserva criada.", map[string]interface{}{"reservation_id": r.ID, "warehouse_id": warehouseID, "expires_at": r.ExpiresAt})
	return r, nil
}

// Confirm converte a reserva em baixa de estoque.
func (s *Service) Confirm(ctx context.Context, id, actor string) (domain.Reservation, error) {
	return s.close(ctx, id, actor, domain.ReservationConfirmed, s.now())
}

// Release devolve a reserva ao disponível.
func (s *Service) Release(ctx context.Context, id, actor string) (domain.Reservation, error) {
	return s.close(ctx, id, actor, domain.ReservationReleased, s.now())
}

func (s *Service) close(ctx context.Context, id, actor string, to domain.ReservationStatus, now time.Time) (domain.Reservation, error) {
	r, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if r.Status != domain.ReservationActive {
		return domain.Reservation{}, apperror.NewInvalidStateTransitionError("reservation", id, string(r.Status), string(to))
	}
	if to == domain.ReservationConfirmed && r.Expired(now) {
		return domain.Reservation{}, apperror.NewInvalidStateTransitionError("reservation", id, string(domain.ReservationExpired), string(to))
	}

	mutation := stockservice.Mutation{
		ProductID: r.ProductID, WarehouseID: r.WarehouseID, Quantity: r.Quantity,
		Reference: r.Reference, Actor: actor,
	}
	switch to {
	case domain.ReservationConfirmed:
		mutation.Kind = stockservice.KindConfirm
	default:
		mutation.Kind = stockservice.KindRelease
	}
	if to == domain.ReservationExpired {
		mutation.Reason = "reservation expired"
	}

	updated := r
	updated.Status = to
	updated.ClosedAt = &now
	updated.ClosedBy = actor

	_, err = s.ledger.ApplyWith(ctx, []stockservice.Mutation{mutation}, func(tx domain.LedgerTx) error {
		return tx.SaveReservation(ctx, updated)
	})
	if err != nil {
		if apperror.IsConflict(err) || apperror.IsOverRelease(err) {
			if current, getErr := s.repo.GetReservation(ctx, id); getErr == nil && current.Status != domain.ReservationActive {
				return domain.Reservation{}, apperror.NewInvalidStateTransitionError("reservation", id, string(current.Status), string(to))
			}
		}
		return domain.Reservation{}, err
	}

	updated.Version = r.Version + 1
	s.logger.Info("Reserva encerrada.", map[string]interface{}{"reservation_id": id, "status": string(to), "actor": actor})
	return updated, nil
}

// ExpireStale libera todas as reservas ativas vencidas em now. Reservas encerradas
// concorrentemente são ignoradas. Retorna quantas foram expiradas.
func (s *Service) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.repo.ListReservations(ctx, domain.ReservationFilter{Status: domain.ReservationActive, ExpiresBefore: &now})
	if err != nil {
		s.logger.Error("Falha ao listar reservas vencidas.", err)
		return 0, apperror.NewInternalError("Falha ao listar reservas vencidas.", err)
	}

	expired := 0
	for _, r := range stale {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		_, err := s.close(ctx, r.ID, "system", domain.ReservationExpired, now)
		switch {
		case err == nil:
			expired++
		case apperror.IsInvalidStateTransition(err):
			s.logger.Debug("Reserva encerrada antes da expiração.", map[string]interface{}{"reservation_id": r.ID})
		case apperror.IsOverRelease(err):
			// O reservado já foi devolvido por fora (ex.: release direto no ledger).
			if err := s.abandon(ctx, r.ID, now); err != nil {
				s.logger.Error(fmt.Sprintf("Falha ao abandonar reserva %s.", r.ID), err)
				continue
			}
			expired++
		default:
			s.logger.Error(fmt.Sprintf("Falha ao expirar reserva %s.", r.ID), err)
		}
	}

	if expired > 0 {
		s.logger.Info("Reservas expiradas.", map[string]interface{}{"count": expired})
	}
	return expired, nil
}

// abandon marca como expirada uma reserva cujo reservado não existe mais no item,
// sem movimentar o ledger.
func (s *Service) abandon(ctx context.Context, id string, now time.Time) error {
	r, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if r.Status != domain.ReservationActive {
		return nil
	}

	updated := r
	updated.Status = domain.ReservationExpired
	updated.ClosedAt = &now
	updated.ClosedBy = "system"
	if _, err := s.ledger.ApplyWith(ctx, nil, func(tx domain.LedgerTx) error {
		return tx.SaveReservation(ctx, updated)
	}); err != nil {
		return err
	}

	s.logger.Warn("Reserva expirada sem devolução: reservado já liberado.", map[string]interface{}{
		"reservation_id": id, "product_id": r.ProductID, "warehouse_id": r.WarehouseID, "quantity": r.Quantity,
	})
	return nil
}

func (s *Service) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	return s.repo.GetReservation(ctx, id)
}

func (s *Service) ListReservations(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	reservations, err := s.repo.ListReservations(ctx, filter)
	if err != nil {
		return nil, apperror.NewInternalError("Falha ao listar reservas.", err)
	}
	return reservations, nil
}
