package domain

// AlertSeverity classifica alertas de estoque baixo.
type AlertSeverity string

const (
	SeverityOutOfStock AlertSeverity = "out_of_stock"
	SeverityCritical   AlertSeverity = "critical"
	SeverityWarning    AlertSeverity = "warning"
)

// Rank ordena severidades; maior é mais grave. Desconhecida = 0.
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityOutOfStock:
		return 3
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	}
	return 0
}

// LowStockAlert é uma visão derivada, calculada sob demanda e nunca persistida.
type LowStockAlert struct {
	ProductID        string        `json:"product_id"`
	WarehouseID      string        `json:"warehouse_id"`
	Severity         AlertSeverity `json:"severity"`
	Quantity         int           `json:"quantity"`
	Reserved         int           `json:"reserved"`
	Available        int           `json:"available"`
	ReorderPoint     int           `json:"reorder_point"`
	SuggestedReorder int           `json:"suggested_reorder"`
	AverageDailySale *float64      `json:"average_daily_sales,omitempty"`
	DaysRemaining    *float64      `json:"days_remaining,omitempty"`
}

// AlertFilter restringe o feed de alertas.
type AlertFilter struct {
	WarehouseID string
	MinSeverity AlertSeverity
}
