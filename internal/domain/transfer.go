package domain

import "time"

// TransferStatus é o estado do workflow de transferência.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferInTransit TransferStatus = "in_transit"
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
)

// Terminal informa se o estado não aceita mais transições.
func (s TransferStatus) Terminal() bool {
	return s == TransferCompleted || s == TransferCancelled
}

// TransferItem é uma linha da transferência.
type TransferItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Received  *int   `json:"received,omitempty"`
}

// Variance é recebido - solicitado; zero enquanto não recebido.
func (i TransferItem) Variance() int {
	if i.Received == nil {
		return 0
	}
	return *i.Received - i.Quantity
}

// StockTransfer move quantidades entre dois armazéns.
type StockTransfer struct {
	ID              string         `json:"id"`
	FromWarehouseID string         `json:"from_warehouse_id"`
	ToWarehouseID   string         `json:"to_warehouse_id"`
	Items           []TransferItem `json:"items"`
	Status          TransferStatus `json:"status"`
	Notes           string         `json:"notes,omitempty"`
	RequestedBy     string         `json:"requested_by"`
	RequestedAt     time.Time      `json:"requested_at"`
	ApprovedBy      string         `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	ReceivedBy      string         `json:"received_by,omitempty"`
	ReceivedAt      *time.Time     `json:"received_at,omitempty"`
	CancelledBy     string         `json:"cancelled_by,omitempty"`
	CancelledAt     *time.Time     `json:"cancelled_at,omitempty"`
	Version         int            `json:"version"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TotalVariance soma as variâncias de todas as linhas.
func (t StockTransfer) TotalVariance() int {
	total := 0
	for _, it := range t.Items {
		total += it.Variance()
	}
	return total
}

// TransferFilter restringe listagens de transferências.
type TransferFilter struct {
	WarehouseID string // origem ou destino
	Status      TransferStatus
}
