package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError é a interface central para todos os erros customizados do serviço.
// Ela permite que o código externo (Handler, workflows) acesse a Categoria e a Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria do erro (e.g., "INSUFFICIENT_STOCK", "NOT_FOUND", "INTERNAL")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// --- Erros do Ledger de Estoque ---

// InsufficientStockError indica que a quantidade disponível é menor que a solicitada.
type InsufficientStockError struct {
	ProductID   string
	WarehouseID string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Estoque insuficiente: produto %s no armazém %s (disponível %d, solicitado %d)",
		e.ProductID, e.WarehouseID, e.Available, e.Requested)
}
func (e *InsufficientStockError) Category() string { return "INSUFFICIENT_STOCK" }
func (e *InsufficientStockError) HTTPStatus() int  { return http.StatusConflict }
func (e *InsufficientStockError) Unwrap() error    { return nil }

// NewInsufficientStockError cria um erro de estoque insuficiente.
func NewInsufficientStockError(productID, warehouseID string, requested, available int) AppError {
	return &InsufficientStockError{ProductID: productID, WarehouseID: warehouseID, Requested: requested, Available: available}
}

// OverReleaseError indica uma liberação/baixa maior que a quantidade reservada.
type OverReleaseError struct {
	ProductID   string
	WarehouseID string
	Requested   int
	Reserved    int
}

func (e *OverReleaseError) Error() string {
	return fmt.Sprintf("Liberação acima do reservado: produto %s no armazém %s (reservado %d, solicitado %d)",
		e.ProductID, e.WarehouseID, e.Reserved, e.Requested)
}
func (e *OverReleaseError) Category() string { return "OVER_RELEASE" }
func (e *OverReleaseError) HTTPStatus() int  { return http.StatusConflict }
func (e *OverReleaseError) Unwrap() error    { return nil }

// NewOverReleaseError cria um erro de liberação acima do reservado.
func NewOverReleaseError(productID, warehouseID string, requested, reserved int) AppError {
	return &OverReleaseError{ProductID: productID, WarehouseID: warehouseID, Requested: requested, Reserved: reserved}
}

// CapacityViolationError indica um ajuste que deixaria reserved > quantity.
type CapacityViolationError struct {
	ProductID   string
	WarehouseID string
	NewQuantity int
	Reserved    int
}

func (e *CapacityViolationError) Error() string {
	return fmt.Sprintf("Ajuste inválido: produto %s no armazém %s ficaria com quantidade %d abaixo do reservado %d",
		e.ProductID, e.WarehouseID, e.NewQuantity, e.Reserved)
}
func (e *CapacityViolationError) Category() string { return "CAPACITY_VIOLATION" }
func (e *CapacityViolationError) HTTPStatus() int  { return http.StatusConflict }
func (e *CapacityViolationError) Unwrap() error    { return nil }

// NewCapacityViolationError cria um erro de violação de capacidade.
func NewCapacityViolationError(productID, warehouseID string, newQuantity, reserved int) AppError {
	return &CapacityViolationError{ProductID: productID, WarehouseID: warehouseID, NewQuantity: newQuantity, Reserved: reserved}
}

// WarehouseNotFoundError indica um armazém inexistente no registro.
type WarehouseNotFoundError struct {
	WarehouseID string
}

func (e *WarehouseNotFoundError) Error() string {
	return fmt.Sprintf("Armazém %s não encontrado.", e.WarehouseID)
}
func (e *WarehouseNotFoundError) Category() string { return "WAREHOUSE_NOT_FOUND" }
func (e *WarehouseNotFoundError) HTTPStatus() int  { return http.StatusNotFound }
func (e *WarehouseNotFoundError) Unwrap() error    { return nil }

// NewWarehouseNotFoundError cria um erro de armazém não encontrado.
func NewWarehouseNotFoundError(warehouseID string) AppError {
	return &WarehouseNotFoundError{WarehouseID: warehouseID}
}

// InvalidStateTransitionError indica uma ação de workflow a partir de um estado que não a permite.
type InvalidStateTransitionError struct {
	Entity string
	ID     string
	From   string
	Action string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("Transição inválida: %s %s no estado '%s' não aceita '%s'", e.Entity, e.ID, e.From, e.Action)
}
func (e *InvalidStateTransitionError) Category() string { return "INVALID_STATE_TRANSITION" }
func (e *InvalidStateTransitionError) HTTPStatus() int  { return http.StatusConflict }
func (e *InvalidStateTransitionError) Unwrap() error    { return nil }

// NewInvalidStateTransitionError cria um erro de transição de estado inválida.
func NewInvalidStateTransitionError(entity, id, from, action string) AppError {
	return &InvalidStateTransitionError{Entity: entity, ID: id, From: from, Action: action}
}

// --- Tipos de Erro Genéricos ---

// ValidationError representa falhas de validação de dados de entrada.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string    { return fmt.Sprintf("Erro de Validação: %s", e.Msg) }
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *ValidationError) Unwrap() error    { return nil }

// NewValidationError cria um novo erro de validação.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// NotFoundError representa a ausência de um recurso solicitado.
// O seletor de armazéns também o usa quando nenhum armazém é elegível.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Recurso não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound } // 404
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de recurso não encontrado.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// ConflictError representa um conflito de concorrência (versão desatualizada, registro duplicado).
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("Conflito de estado: %s", e.Msg) }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *ConflictError) Unwrap() error    { return nil }

// NewConflictError cria um novo erro de conflito (usado em OCC).
func NewConflictError(msg string) AppError {
	return &ConflictError{Msg: msg}
}

// UnauthorizedError representa falhas de autenticação/autorização.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autorizado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized }
func (e *UnauthorizedError) Unwrap() error    { return nil }

// NewUnauthorizedError cria um erro de autorização.
func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// RateLimitedError indica que o chamador excedeu o limite de requisições.
type RateLimitedError struct {
	Msg string
}

func (e *RateLimitedError) Error() string    { return fmt.Sprintf("Limite excedido: %s", e.Msg) }
func (e *RateLimitedError) Category() string { return "RATE_LIMITED" }
func (e *RateLimitedError) HTTPStatus() int  { return http.StatusTooManyRequests }
func (e *RateLimitedError) Unwrap() error    { return nil }

func NewRateLimitedError(msg string) AppError {
	return &RateLimitedError{Msg: msg}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// InternalError representa falhas inesperadas no servidor, serviço ou repositório.
type InternalError struct {
	Msg string
	Err error // Erro original subjacente (e.g., erro do driver SQL)
}

func (e *InternalError) Error() string    { return fmt.Sprintf("Erro Interno: %s", e.Msg) }
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// NewDBError é um atalho para criar um InternalError específico de falhas no DB.
func NewDBError(msg string, err error) AppError {
	return NewInternalError(fmt.Sprintf("%s (DB): %s", msg, err.Error()), err)
}

// --- Predicados ---

func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return stderrors.As(err, &target)
}

func IsOverRelease(err error) bool {
	var target *OverReleaseError
	return stderrors.As(err, &target)
}

func IsCapacityViolation(err error) bool {
	var target *CapacityViolationError
	return stderrors.As(err, &target)
}

func IsWarehouseNotFound(err error) bool {
	var target *WarehouseNotFoundError
	return stderrors.As(err, &target)
}

func IsInvalidStateTransition(err error) bool {
	var target *InvalidStateTransitionError
	return stderrors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return stderrors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return stderrors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return stderrors.As(err, &target)
}

// AsAppError devolve o AppError da cadeia de erros, se houver.
func AsAppError(err error) (AppError, bool) {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// --- Helper para o Handler (Tradução Final) ---

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP e corpo de resposta.
func MapToHTTPStatus(err error) (int, string, string) {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado: tratado como erro interno genérico.
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}
