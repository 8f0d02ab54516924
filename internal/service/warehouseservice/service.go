package warehouseservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockflow/internal/domain"
	apperror "stockflow/internal/errors"
	"stockflow/internal/pkg/logger"
)

// Service é o Warehouse Registry. Armazéns nunca são removidos, apenas desativados.
type Service struct {
	repo   domain.WarehouseRepository
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Armazéns.
func NewService(repo domain.WarehouseRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateWarehouse cria um novo armazém após validações de negócio.
func (s *Service) CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	s.logger.Debug("Iniciando criação de armazém no serviço.", map[string]interface{}{"name": warehouse.Name, "code": warehouse.Code})

	if warehouse.Status == "" {
		warehouse.Status = domain.WarehouseActive
	}
	if warehouse.Type == "" {
		warehouse.Type = domain.WarehouseMain
	}
	warehouse.Code = strings.ToUpper(strings.TrimSpace(warehouse.Code))

	if err := s.validateWarehouse(warehouse); err != nil {
		s.logger.Warn("Falha na validação do armazém.", map[string]interface{}{"name": warehouse.Name, "error": err.Error()})
		return domain.Warehouse{}, err
	}

	createdWarehouse, err := s.repo.CreateWarehouse(ctx, warehouse)
	if err != nil {
		if apperror.IsConflict(err) {
			return domain.Warehouse{}, err
		}
		s.logger.Error("Falha ao criar armazém no repositório.", err)
		return domain.Warehouse{}, apperror.NewInternalError("Falha interna ao criar armazém.", err)
	}

	s.logger.Info("Armazém criado com sucesso.", map[string]interface{}{"id": createdWarehouse.ID, "code": createdWarehouse.Code})
	return createdWarehouse, nil
}

// GetWarehouseByID busca um armazém pelo ID.
func (s *Service) GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Warehouse{}, apperror.NewValidationError("O ID do armazém é obrigatório.")
	}

	warehouse, err := s.repo.GetWarehouseByID(ctx, id)
	if err != nil {
		s.logger.Error("Falha ao buscar armazém no repositório.", err)
		return domain.Warehouse{}, err // Erros do repositório já são WarehouseNotFoundError ou DBError
	}
	return warehouse, nil
}

// GetAllWarehouses lista armazéns, opcionalmente filtrando por status e região.
func (s *Service) GetAllWarehouses(ctx context.Context, filter domain.WarehouseFilter) ([]domain.Warehouse, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperror.NewValidationError(fmt.Sprintf("Status de armazém inválido: %s.", filter.Status))
	}

	warehouses, err := s.repo.GetAllWarehouses(ctx, filter)
	if err != nil {
		s.logger.Error("Falha ao buscar todos os armazéns no repositório.", err)
		return nil, apperror.NewInternalError("Falha interna ao buscar armazéns.", err)
	}

	s.logger.Debug("Armazéns encontrados.", map[string]interface{}{"count": len(warehouses)})
	return warehouses, nil
}

// UpdateWarehouse atualiza os metadados de um armazém existente.
func (s *Service) UpdateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	s.logger.Debug("Iniciando atualização de armazém no serviço.", map[string]interface{}{"id": warehouse.ID})

	if strings.TrimSpace(warehouse.ID) == "" {
		return domain.Warehouse{}, apperror.NewValidationError("O ID do armazém é obrigatório.")
	}
	warehouse.Code = strings.ToUpper(strings.TrimSpace(warehouse.Code))
	if err := s.validateWarehouse(warehouse); err != nil {
		s.logger.Warn("Falha na validação do armazém para atualização.", map[string]interface{}{"id": warehouse.ID, "error": err.Error()})
		return domain.Warehouse{}, err
	}

	updatedWarehouse, err := s.repo.UpdateWarehouse(ctx, warehouse)
	if err != nil {
		s.logger.Error("Falha ao atualizar armazém no repositório.", err)
		return domain.Warehouse{}, err
	}

	s.logger.Info("Armazém atualizado com sucesso.", map[string]interface{}{"id": updatedWarehouse.ID, "status": string(updatedWarehouse.Status)})
	return updatedWarehouse, nil
}

// SetStatus ativa, desativa ou coloca o armazém em manutenção.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.WarehouseStatus) (domain.Warehouse, error) {
	if !status.Valid() {
		return domain.Warehouse{}, apperror.NewValidationError(fmt.Sprintf("Status de armazém inválido: %s.", status))
	}

	warehouse, err := s.GetWarehouseByID(ctx, id)
	if err != nil {
		return domain.Warehouse{}, err
	}
	if warehouse.Status == status {
		return warehouse, nil
	}
	warehouse.Status = status
	return s.UpdateWarehouse(ctx, warehouse)
}

// validateWarehouse é uma função auxiliar para validar os campos do armazém.
func (s *Service) validateWarehouse(w domain.Warehouse) error {
	if strings.TrimSpace(w.Name) == "" {
		return apperror.NewValidationError("O nome do armazém não pode ser vazio.")
	}
	if len(w.Name) < 3 || len(w.Name) > 100 {
		return apperror.NewValidationError("O nome do armazém deve ter entre 3 e 100 caracteres.")
	}
	if w.Code == "" {
		return apperror.NewValidationError("O código do armazém não pode ser vazio.")
	}
	if !w.Type.Valid() {
		return apperror.NewValidationError(fmt.Sprintf("Tipo de armazém inválido: %s.", w.Type))
	}
	if !w.Status.Valid() {
		return apperror.NewValidationError(fmt.Sprintf("Status de armazém inválido: %s.", w.Status))
	}
	if w.TotalCapacity.IsNegative() {
		return apperror.NewValidationError("A capacidade total não pode ser negativa.")
	}
	if w.Priority < 0 {
		return apperror.NewValidationError("A prioridade não pode ser negativa.")
	}
	for _, zone := range w.ShippingZones {
		if strings.TrimSpace(zone) == "" {
			return apperror.NewValidationError("Zonas de entrega não podem ser vazias.")
		}
	}
	for _, h := range w.OperatingHours {
		opens, err1 := time.Parse("15:04", h.Opens)
		closes, err2 := time.Parse("15:04", h.Closes)
		if err1 != nil || err2 != nil {
			return apperror.NewValidationError(fmt.Sprintf("Horário inválido para %s: use HH:MM.", h.Day))
		}
		if !closes.After(opens) {
			return apperror.NewValidationError(fmt.Sprintf("Horário de fechamento deve ser após a abertura (%s).", h.Day))
		}
	}
	return nil
}
