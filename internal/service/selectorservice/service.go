package selectorservice

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"stockflow/internal/domain"
	apperror "stockflow/internal/errors"
	"stockflow/internal/pkg/logger"
)

// WarehouseLister é o que o seletor precisa do registro.
type WarehouseLister interface {
	GetAllWarehouses(ctx context.Context, filter domain.WarehouseFilter) ([]domain.Warehouse, error)
}

// ItemLister é o que o seletor precisa do ledger.
type ItemLister interface {
	ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.InventoryItem, error)
}

// Candidate é um armazém apto a atender o pedido, com o disponível no momento da consulta.
type Candidate struct {
	Warehouse domain.Warehouse `json:"warehouse"`
	Available int              `json:"available"`
}

// Service escolhe o armazém que atende uma linha de pedido.
type Service struct {
	warehouses WarehouseLister
	items      ItemLister
	logger     logger.Logger
}

func NewService(warehouses WarehouseLister, items ItemLister, logger logger.Logger) *Service {
	return &Service{warehouses: warehouses, items: items, logger: logger}
}

// Candidates devolve todos os armazéns ativos que cobrem a região e têm disponível >= qty,
// ordenados por prioridade (menor primeiro), maior disponível e ID.
func (s *Service) Candidates(ctx context.Context, productID string, qty int, region string) ([]Candidate, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, apperror.NewValidationError("O produto é obrigatório.")
	}
	if qty <= 0 {
		return nil, apperror.NewValidationError("A quantidade deve ser positiva.")
	}
	if strings.TrimSpace(region) == "" {
		return nil, apperror.NewValidationError("A região de destino é obrigatória.")
	}

	warehouses, err := s.warehouses.GetAllWarehouses(ctx, domain.WarehouseFilter{Status: domain.WarehouseActive, Region: region})
	if err != nil {
		s.logger.Error("Falha ao listar armazéns para seleção.", err)
		return nil, apperror.NewInternalError("Falha interna ao selecionar armazém.", err)
	}

	items, err := s.items.ListItems(ctx, domain.ItemFilter{ProductIDs: []string{productID}})
	if err != nil {
		s.logger.Error("Falha ao listar itens para seleção.", err)
		return nil, apperror.NewInternalError("Falha interna ao selecionar armazém.", err)
	}
	available := make(map[string]int, len(items))
	for _, it := range items {
		available[it.WarehouseID] = it.Available()
	}

	candidates := make([]Candidate, 0, len(warehouses))
	for _, w := range warehouses {
		// O registro já filtra, mas a regra é do seletor.
		if !w.IsActive() || !w.Covers(region) {
			continue
		}
		if avail := available[w.ID]; avail >= qty {
			candidates = append(candidates, Candidate{Warehouse: w, Available: avail})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Warehouse.Priority != b.Warehouse.Priority {
			return a.Warehouse.Priority < b.Warehouse.Priority
		}
		if a.Available != b.Available {
			return a.Available > b.Available
		}
		return a.Warehouse.ID < b.Warehouse.ID
	})
	return candidates, nil
}

// FindBestWarehouse devolve o primeiro candidato ou NotFound.
func (s *Service) FindBestWarehouse(ctx context.Context, productID string, qty int, region string) (domain.Warehouse, error) {
	candidates, err := s.Candidates(ctx, productID, qty, region)
	if err != nil {
		return domain.Warehouse{}, err
	}
	if len(candidates) == 0 {
		s.logger.Info("Nenhum armazém atende o pedido.", map[string]interface{}{"product_id": productID, "quantity": qty, "region": region})
		return domain.Warehouse{}, apperror.NewNotFoundError(fmt.Sprintf("Nenhum armazém ativo em %s com %d unidades de %s.", region, qty, productID))
	}

	best := candidates[0]
	s.logger.Debug("Armazém selecionado.", map[string]interface{}{"product_id": productID, "warehouse_id": best.Warehouse.ID, "available": best.Available})
	return best.Warehouse, nil
}
