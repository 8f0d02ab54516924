package stockservice

import (
	"fmt"
	"strings"

	"stockflow/internal/domain"
	apperror "stockflow/internal/errors"
)

// MutationKind é a operação primitiva do ledger.
type MutationKind string

const (
	KindReserve MutationKind = "reserve"
	KindRelease MutationKind = "release"
	KindConfirm MutationKind = "confirm"
	KindAdjust  MutationKind = "adjust"
)

// Mutation descreve uma alteração de um InventoryItem.
// Quantity é positiva para reserve/release/confirm e com sinal para adjust.
type Mutation struct {
	Kind        MutationKind
	ProductID   string
	WarehouseID string
	Quantity    int
	// Type sobrescreve o tipo de movimentação padrão (sale para confirm, adjustment para adjust).
	Type      domain.MovementType
	Reference string
	Reason    string
	Actor     string

	// StampCounted marca LastCounted no item ajustado.
	StampCounted bool
	// InheritCostFrom copia o custo unitário de outro item quando o ajuste cria o item.
	// A chave de origem precisa fazer parte da mesma unidade de trabalho.
	InheritCostFrom *domain.ItemKey
}

func (m Mutation) Key() domain.ItemKey {
	return domain.ItemKey{ProductID: m.ProductID, WarehouseID: m.WarehouseID}
}

func (m Mutation) movementType() domain.MovementType {
	if m.Type != "" {
		return m.Type
	}
	switch m.Kind {
	case KindReserve:
		return domain.MovementReserve
	case KindRelease:
		return domain.MovementRelease
	case KindConfirm:
		return domain.MovementSale
	}
	return domain.MovementAdjustment
}

func (m Mutation) validate() error {
	if strings.TrimSpace(m.ProductID) == "" || strings.TrimSpace(m.WarehouseID) == "" {
		return apperror.NewValidationError("Produto e armazém são obrigatórios.")
	}
	switch m.Kind {
	case KindReserve, KindRelease:
		if m.Quantity <= 0 {
			return apperror.NewValidationError(fmt.Sprintf("A quantidade para %s deve ser positiva.", m.Kind))
		}
		if m.Type != "" && m.Type != m.movementType() {
			return apperror.NewValidationError(fmt.Sprintf("Tipo de movimentação %s não é permitido para %s.", m.Type, m.Kind))
		}
	case KindConfirm:
		if m.Quantity <= 0 {
			return apperror.NewValidationError("A quantidade para confirmação deve ser positiva.")
		}
		if t := m.movementType(); t != domain.MovementSale && t != domain.MovementTransfer {
			return apperror.NewValidationError(fmt.Sprintf("Tipo de movimentação %s não é permitido para confirmação.", t))
		}
	case KindAdjust:
		if m.Quantity == 0 {
			return apperror.NewValidationError("O ajuste de estoque (delta) não pode ser zero.")
		}
		t := m.movementType()
		if !t.Valid() || t == domain.MovementReserve || t == domain.MovementRelease {
			return apperror.NewValidationError(fmt.Sprintf("Tipo de movimentação %s não é permitido para ajuste.", t))
		}
	default:
		return apperror.NewValidationError(fmt.Sprintf("Operação desconhecida: %s.", m.Kind))
	}
	return nil
}
