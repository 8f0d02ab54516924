package domain

import "context"

// LedgerStore é a unidade de trabalho do ledger. WithItems adquire as chaves em ordem global
// (SortKeys), executa fn e confirma tudo de uma vez. Se fn retornar erro nada é aplicado.
type LedgerStore interface {
	WithItems(ctx context.Context, keys []ItemKey, fn func(tx LedgerTx) error) error

	GetItem(ctx context.Context, key ItemKey) (InventoryItem, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]InventoryItem, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, error)
}

// LedgerTx só enxerga as chaves adquiridas em WithItems.
// Os Save* fazem compare-and-set em Version: Version 0 insere, qualquer outro valor precisa
// coincidir com o armazenado. Versão desatualizada resulta em ConflictError.
type LedgerTx interface {
	// GetItem retorna found=false quando o item ainda não existe.
	GetItem(ctx context.Context, key ItemKey) (item InventoryItem, found bool, err error)
	PutItem(ctx context.Context, item InventoryItem) error
	AppendMovement(ctx context.Context, m StockMovement) error

	SaveTransfer(ctx context.Context, t StockTransfer) error
	SaveCount(ctx context.Context, c StockCount) error
	SaveReservation(ctx context.Context, r Reservation) error
}

// WarehouseRepository é o contrato de persistência do registro de armazéns.
type WarehouseRepository interface {
	CreateWarehouse(ctx context.Context, warehouse Warehouse) (Warehouse, error)
	GetWarehouseByID(ctx context.Context, id string) (Warehouse, error)
	GetAllWarehouses(ctx context.Context, filter WarehouseFilter) ([]Warehouse, error)
	UpdateWarehouse(ctx context.Context, warehouse Warehouse) (Warehouse, error)
}

// TransferRepository lê transferências; escritas passam por LedgerTx.SaveTransfer.
type TransferRepository interface {
	GetTransfer(ctx context.Context, id string) (StockTransfer, error)
	ListTransfers(ctx context.Context, filter TransferFilter) ([]StockTransfer, error)
}

// CountRepository lê contagens; escritas passam por LedgerTx.SaveCount.
type CountRepository interface {
	GetCount(ctx context.Context, id string) (StockCount, error)
	ListCounts(ctx context.Context, filter CountFilter) ([]StockCount, error)
}

// ReservationRepository lê reservas; escritas passam por LedgerTx.SaveReservation.
type ReservationRepository interface {
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
}
