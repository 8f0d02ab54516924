package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WarehouseType classifica o armazém.
type WarehouseType string

const (
	WarehouseMain       WarehouseType = "main"
	WarehouseRegional   WarehouseType = "regional"
	WarehouseDropship   WarehouseType = "dropship"
	WarehouseThirdParty WarehouseType = "third_party"
)

// Valid informa se o tipo é conhecido.
func (t WarehouseType) Valid() bool {
	switch t {
	case WarehouseMain, WarehouseRegional, WarehouseDropship, WarehouseThirdParty:
		return true
	}
	return false
}

// WarehouseStatus é o estado operacional do armazém. Armazéns nunca são removidos, apenas desativados.
type WarehouseStatus string

const (
	WarehouseActive      WarehouseStatus = "active"
	WarehouseInactive    WarehouseStatus = "inactive"
	WarehouseMaintenance WarehouseStatus = "maintenance"
)

func (s WarehouseStatus) Valid() bool {
	switch s {
	case WarehouseActive, WarehouseInactive, WarehouseMaintenance:
		return true
	}
	return false
}

// Address é o endereço físico com coordenadas.
type Address struct {
	Street     string  `json:"street"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// OperatingHours descreve a janela de funcionamento de um dia da semana ("08:00" - "18:00").
type OperatingHours struct {
	Day    time.Weekday `json:"day"`
	Opens  string       `json:"opens"`
	Closes string       `json:"closes"`
}

// Warehouse representa um local de armazenagem físico ou lógico.
type Warehouse struct {
	ID             string           `json:"id"`
	Code           string           `json:"code"`
	Name           string           `json:"name"`
	Type           WarehouseType    `json:"type"`
	Address        Address          `json:"address"`
	OperatingHours []OperatingHours `json:"operating_hours"`
	TotalCapacity  decimal.Decimal  `json:"total_capacity"` // medida cúbica
	ShippingZones  []string         `json:"shipping_zones"`
	Priority       int              `json:"priority"` // menor = preferido
	Status         WarehouseStatus  `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// IsActive informa se o armazém pode atender pedidos.
func (w Warehouse) IsActive() bool {
	return w.Status == WarehouseActive
}

// Covers informa se o armazém atende a região de destino.
func (w Warehouse) Covers(region string) bool {
	for _, z := range w.ShippingZones {
		if z == region {
			return true
		}
	}
	return false
}

// WarehouseCapacity é a visão derivada de ocupação de um armazém.
type WarehouseCapacity struct {
	WarehouseID string          `json:"warehouse_id"`
	Total       decimal.Decimal `json:"total"`
	Used        decimal.Decimal `json:"used"`
	Available   decimal.Decimal `json:"available"`
}

// WarehouseFilter restringe listagens do registro.
type WarehouseFilter struct {
	Status WarehouseStatus
	Region string
}
