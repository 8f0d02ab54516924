package domain

import "time"

// CountType define o escopo da contagem.
type CountType string

const (
	CountFull  CountType = "full"
	CountCycle CountType = "cycle"
	CountSpot  CountType = "spot"
)

func (t CountType) Valid() bool {
	return t == CountFull || t == CountCycle || t == CountSpot
}

// CountStatus é o estado do workflow de contagem.
type CountStatus string

const (
	CountPlanned    CountStatus = "planned"
	CountInProgress CountStatus = "in_progress"
	CountCompleted  CountStatus = "completed"
	CountCancelled  CountStatus = "cancelled"
)

func (s CountStatus) Terminal() bool {
	return s == CountCompleted || s == CountCancelled
}

// StockCountItem guarda o snapshot do sistema e a contagem física.
type StockCountItem struct {
	ProductID       string     `json:"product_id"`
	SystemQuantity  int        `json:"system_quantity"`
	CountedQuantity *int       `json:"counted_quantity,omitempty"`
	Variance        int        `json:"variance"`
	CountedBy       string     `json:"counted_by,omitempty"`
	CountedAt       *time.Time `json:"counted_at,omitempty"`
}

// Counted informa se a linha já foi contada.
func (i StockCountItem) Counted() bool {
	return i.CountedQuantity != nil
}

// StockCount é uma sessão de reconciliação em um armazém.
type StockCount struct {
	ID          string           `json:"id"`
	WarehouseID string           `json:"warehouse_id"`
	Type        CountType        `json:"type"`
	Status      CountStatus      `json:"status"`
	Items       []StockCountItem `json:"items"`
	CreatedBy   string           `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedBy string           `json:"completed_by,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	CancelledBy string           `json:"cancelled_by,omitempty"`
	CancelledAt *time.Time       `json:"cancelled_at,omitempty"`
	Version     int              `json:"version"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Summary resume a contagem: linhas, linhas contadas, linhas com diferença e a diferença líquida.
func (c StockCount) Summary() (total, counted, discrepancies, netVariance int) {
	total = len(c.Items)
	for _, it := range c.Items {
		if !it.Counted() {
			continue
		}
		counted++
		if it.Variance != 0 {
			discrepancies++
			netVariance += it.Variance
		}
	}
	return total, counted, discrepancies, netVariance
}

// CountFilter restringe listagens de contagens.
type CountFilter struct {
	WarehouseID string
	Status      CountStatus
}
