package transferservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"stockflow/internal/domain"
	apperror "stockflow/internal/errors"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/service/stockservice"
)

// Ledger é o subconjunto do Inventory Ledger usado pelas transferências.
type Ledger interface {
	ApplyWith(ctx context.Context, mutations []stockservice.Mutation, fn func(tx domain.LedgerTx) error) ([]domain.InventoryItem, error)
}

// WarehouseReader valida a existência dos armazéns de origem e destino.
type WarehouseReader interface {
	GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error)
}

// TransferLine é uma linha solicitada.
type TransferLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// TransferRequest é o payload de criação de uma transferência.
type TransferRequest struct {
	FromWarehouseID string         `json:"from_warehouse_id"`
	ToWarehouseID   string         `json:"to_warehouse_id"`
	Items           []TransferLine `json:"items"`
	Notes           string         `json:"notes,omitempty"`
	RequestedBy     string         `json:"-"`
}

// Service conduz a máquina de estados pending -> in_transit -> completed, ou -> cancelled.
// A origem perde a quantidade solicitada e o destino ganha a recebida; a diferença não volta à origem.
type Service struct {
	ledger     Ledger
	repo       domain.TransferRepository
	warehouses WarehouseReader
	logger     logger.Logger
	now        func() time.Time
}

func NewService(ledger Ledger, repo domain.TransferRepository, warehouses WarehouseReader, logger logger.Logger) *Service {
	return &Service{
		ledger:     ledger,
		repo:       repo,
		warehouses: warehouses,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Request cria a transferência em pending. Nenhum estoque é tocado.
func (s *Service) Request(ctx context.Context, req TransferRequest) (domain.StockTransfer, error) {
	s.logger.Debug("Iniciando solicitação de transferência.", map[string]interface{}{"from": req.FromWarehouseID, "to": req.ToWarehouseID, "lines": len(req.Items)})

	if err := s.validateRequest(ctx, req); err != nil {
		s.logger.Warn("Solicitação de transferência inválida.", map[string]interface{}{"error": err.Error()})
		return domain.StockTransfer{}, err
	}

	now := s.now()
	t := domain.StockTransfer{
		ID:              uuid.New().String(),
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		Status:          domain.TransferPending,
		Notes:           req.Notes,
		RequestedBy:     req.RequestedBy,
		RequestedAt:     now,
		UpdatedAt:       now,
	}
	for _, line := range req.Items {
		t.Items = append(t.Items, domain.TransferItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	if _, err := s.ledger.ApplyWith(ctx, nil, func(tx domain.LedgerTx) error {
		return tx.SaveTransfer(ctx, t)
	}); err != nil {
		return domain.StockTransfer{}, err
	}

	t.Version = 1
	s.logger.Info("Transferência solicitada.", map[string]interface{}{"transfer_id": t.ID, "from": t.FromWarehouseID, "to": t.ToWarehouseID})
	return t, nil
}

func (s *Service) validateRequest(ctx context.Context, req TransferRequest) error {
	if strings.TrimSpace(req.FromWarehouseID) == "" || strings.TrimSpace(req.ToWarehouseID) == "" {
		return apperror.NewValidationError("Armazéns de origem e destino são obrigatórios.")
	}
	if req.FromWarehouseID == req.ToWarehouseID {
		return apperror.NewValidationError("Origem e destino devem ser armazéns diferentes.")
	}
	if len(req.Items) == 0 {
		return apperror.NewValidationError("A transferência precisa de ao menos uma linha.")
	}
	seen := make(map[string]struct{}, len(req.Items))
	for _, line := range req.Items {
		if strings.TrimSpace(line.ProductID) == "" {
			return apperror.NewValidationError("Toda linha precisa de um produto.")
		}
		if line.Quantity <= 0 {
			return apperror.NewValidationError(fmt.Sprintf("Quantidade inválida para %s: deve ser positiva.", line.ProductID))
		}
		if _, dup := seen[line.ProductID]; dup {
			return apperror.NewValidationError(fmt.Sprintf("Produto %s repetido na transferência.", line.ProductID))
		}
		seen[line.ProductID] = struct{}{}
	}
	for _, id := range []string{req.FromWarehouseID, req.ToWarehouseID} {
		if _, err := s.warehouses.GetWarehouseByID(ctx, id); err != nil {
			if apperror.IsWarehouseNotFound(err) || apperror.IsNotFound(err) {
				return apperror.NewWarehouseNotFoundError(id)
			}
			return apperror.NewInternalError("Falha ao consultar armazém.", err)
		}
	}
	return nil
}

// Approve reserva todas as linhas na origem de uma vez e move para in_transit.
func (s *Service) Approve(ctx context.Context, id, approvedBy string) (domain.StockTransfer, error) {
	t, err := s.load(ctx, id, "approve", domain.TransferPending)
	if err != nil {
		return domain.StockTransfer{}, err
	}

	mutations := make([]stockservice.Mutation, 0, len(t.Items))
	for _, line := range t.Items {
		mutations = append(mutations, stockservice.Mutation{
			Kind: stockservice.KindReserve, ProductID: line.ProductID, WarehouseID: t.FromWarehouseID,
			Quantity: line.Quantity, Reference: t.ID, Actor: approvedBy,
		})
	}

	now := s.now()
	updated := t
	updated.Status = domain.TransferInTransit
	updated.ApprovedBy = approvedBy
	updated.ApprovedAt = &now
	updated.UpdatedAt = now

	return s.transition(ctx, t, updated, "approve", mutations)
}

// Complete baixa a quantidade solicitada na origem e credita a recebida no destino.
// Linhas ausentes em received são consideradas recebidas por completo.
func (s *Service) Complete(ctx context.Context, id, receivedBy string, received map[string]int) (domain.StockTransfer, error) {
	t, err := s.load(ctx, id, "complete", domain.TransferInTransit)
	if err != nil {
		return domain.StockTransfer{}, err
	}

	lines := make(map[string]int, len(t.Items))
	for _, line := range t.Items {
		lines[line.ProductID] = line.Quantity
	}
	for productID, qty := range received {
		requested, ok := lines[productID]
		if !ok {
			return domain.StockTransfer{}, apperror.NewValidationError(fmt.Sprintf("Produto %s não faz parte da transferência.", productID))
		}
		if qty < 0 || qty > requested {
			return domain.StockTransfer{}, apperror.NewValidationError(fmt.Sprintf("Quantidade recebida de %s deve estar entre 0 e %d.", productID, requested))
		}
	}

	now := s.now()
	updated := t
	updated.Items = make([]domain.TransferItem, len(t.Items))
	mutations := make([]stockservice.Mutation, 0, 2*len(t.Items))
	for i, line := range t.Items {
		got, ok := received[line.ProductID]
		if !ok {
			got = line.Quantity
		}
		r := got
		line.Received = &r
		updated.Items[i] = line

		source := domain.ItemKey{ProductID: line.ProductID, WarehouseID: t.FromWarehouseID}
		mutations = append(mutations, stockservice.Mutation{
			Kind: stockservice.KindConfirm, ProductID: line.ProductID, WarehouseID: t.FromWarehouseID,
			Quantity: line.Quantity, Type: domain.MovementTransfer, Reference: t.ID, Actor: receivedBy,
			Reason: "transfer dispatch",
		})
		if got > 0 {
			mutations = append(mutations, stockservice.Mutation{
				Kind: stockservice.KindAdjust, ProductID: line.ProductID, WarehouseID: t.ToWarehouseID,
				Quantity: got, Type: domain.MovementTransfer, Reference: t.ID, Actor: receivedBy,
				Reason: "transfer receipt", InheritCostFrom: &source,
			})
		}
	}
	updated.Status = domain.TransferCompleted
	updated.ReceivedBy = receivedBy
	updated.ReceivedAt = &now
	updated.UpdatedAt = now

	result, err := s.transition(ctx, t, updated, "complete", mutations)
	if err != nil {
		return domain.StockTransfer{}, err
	}
	if v := result.TotalVariance(); v != 0 {
		s.logger.Warn("Transferência concluída com divergência.", map[string]interface{}{"transfer_id": id, "variance": v})
	}
	return result, nil
}

// Cancel é permitido em pending ou in_transit; em in_transit libera as reservas da origem.
func (s *Service) Cancel(ctx context.Context, id, cancelledBy string) (domain.StockTransfer, error) {
	t, err := s.load(ctx, id, "cancel", domain.TransferPending, domain.TransferInTransit)
	if err != nil {
		return domain.StockTransfer{}, err
	}

	var mutations []stockservice.Mutation
	if t.Status == domain.TransferInTransit {
		for _, line := range t.Items {
			mutations = append(mutations, stockservice.Mutation{
				Kind: stockservice.KindRelease, ProductID: line.ProductID, WarehouseID: t.FromWarehouseID,
				Quantity: line.Quantity, Reference: t.ID, Actor: cancelledBy, Reason: "transfer cancelled",
			})
		}
	}

	now := s.now()
	updated := t
	updated.Status = domain.TransferCancelled
	updated.CancelledBy = cancelledBy
	updated.CancelledAt = &now
	updated.UpdatedAt = now

	return s.transition(ctx, t, updated, "cancel", mutations)
}

func (s *Service) load(ctx context.Context, id, action string, allowed ...domain.TransferStatus) (domain.StockTransfer, error) {
	t, err := s.repo.GetTransfer(ctx, id)
	if err != nil {
		return domain.StockTransfer{}, err
	}
	for _, st := range allowed {
		if t.Status == st {
			return t, nil
		}
	}
	s.logger.Warn("Transição de transferência inválida.", map[string]interface{}{"transfer_id": id, "status": string(t.Status), "action": action})
	return domain.StockTransfer{}, apperror.NewInvalidStateTransitionError("transfer", id, string(t.Status), action)
}

// transition aplica as mutações e grava o novo estado com compare-and-set. Se outra operação
// mudou o estado no meio do caminho, o perdedor recebe InvalidStateTransition.
func (s *Service) transition(ctx context.Context, current, updated domain.StockTransfer, action string, mutations []stockservice.Mutation) (domain.StockTransfer, error) {
	_, err := s.ledger.ApplyWith(ctx, mutations, func(tx domain.LedgerTx) error {
		return tx.SaveTransfer(ctx, updated)
	})
	if err != nil {
		if latest, getErr := s.repo.GetTransfer(ctx, current.ID); getErr == nil && latest.Version != current.Version {
			s.logger.Warn("Transferência alterada concorrentemente.", map[string]interface{}{"transfer_id": current.ID, "status": string(latest.Status), "action": action})
			return domain.StockTransfer{}, apperror.NewInvalidStateTransitionError("transfer", current.ID, string(latest.Status), action)
		}
		return domain.StockTransfer{}, err
	}

	updated.Version = current.Version + 1
	s.logger.Info("Transferência atualizada.", map[string]interface{}{"transfer_id": updated.ID, "status": string(updated.Status), "action": action})
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.StockTransfer, error) {
	return s.repo.GetTransfer(ctx, id)
}

func (s *Service) List(ctx context.Context, filter domain.TransferFilter) ([]domain.StockTransfer, error) {
	transfers, err := s.repo.ListTransfers(ctx, filter)
	if err != nil {
		return nil, apperror.NewInternalError("Falha ao listar transferências.", err)
	}
	return transfers, nil
}
