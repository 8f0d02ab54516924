package domain

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ItemKey identifica unicamente um InventoryItem.
type ItemKey struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
}

func (k ItemKey) String() string {
	return k.WarehouseID + "/" + k.ProductID
}

// LockName é o nome usado nos locks por chave. Os IDs vão entre aspas para que
// ("a/b", "c") e ("a", "b/c") não gerem o mesmo nome.
func (k ItemKey) LockName() string {
	return strconv.Quote(k.WarehouseID) + "/" + strconv.Quote(k.ProductID)
}

// Less define a ordem global de aquisição de locks: armazém, depois produto.
func (k ItemKey) Less(other ItemKey) bool {
	if k.WarehouseID != other.WarehouseID {
		return k.WarehouseID < other.WarehouseID
	}
	return k.ProductID < other.ProductID
}

// SortKeys devolve as chaves sem duplicatas, na ordem global de locks.
func SortKeys(keys []ItemKey) []ItemKey {
	seen := make(map[ItemKey]struct{}, len(keys))
	out := make([]ItemKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// BinLocation é o endereço do item dentro do armazém.
type BinLocation struct {
	Zone  string `json:"zone"`
	Aisle string `json:"aisle"`
	Shelf string `json:"shelf"`
	Bin   string `json:"bin"`
}

// InventoryItem é o estado de estoque de um produto em um armazém.
// Invariante: 0 <= Reserved <= Quantity. Available é sempre derivado.
// Version é incrementada a cada mutação (controle de concorrência otimista).
type InventoryItem struct {
	ProductID       string          `json:"product_id"`
	WarehouseID     string          `json:"warehouse_id"`
	Quantity        int             `json:"quantity"`
	Reserved        int             `json:"reserved"`
	ReorderPoint    int             `json:"reorder_point"`
	ReorderQuantity int             `json:"reorder_quantity"`
	Location        BinLocation     `json:"location"`
	CostPerUnit     decimal.Decimal `json:"cost_per_unit"`
	TotalValue      decimal.Decimal `json:"total_value"`
	UnitVolume      decimal.Decimal `json:"unit_volume"`
	LastRestocked   *time.Time      `json:"last_restocked,omitempty"`
	LastCounted     *time.Time      `json:"last_counted,omitempty"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewInventoryItem cria um item vazio para a chave, com volume unitário 1.
func NewInventoryItem(key ItemKey, now time.Time) InventoryItem {
	return InventoryItem{
		ProductID:   key.ProductID,
		WarehouseID: key.WarehouseID,
		CostPerUnit: decimal.Zero,
		TotalValue:  decimal.Zero,
		UnitVolume:  decimal.NewFromInt(1),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (i InventoryItem) Key() ItemKey {
	return ItemKey{ProductID: i.ProductID, WarehouseID: i.WarehouseID}
}

// Available é a quantidade livre para venda.
func (i InventoryItem) Available() int {
	return i.Quantity - i.Reserved
}

// RecomputeValue atualiza TotalValue = Quantity * CostPerUnit.
func (i *InventoryItem) RecomputeValue() {
	i.TotalValue = i.CostPerUnit.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Volume é o espaço ocupado pelo item (Quantity * UnitVolume).
func (i InventoryItem) Volume() decimal.Decimal {
	return i.UnitVolume.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CheckInvariant informa se 0 <= Reserved <= Quantity.
func (i InventoryItem) CheckInvariant() bool {
	return i.Reserved >= 0 && i.Reserved <= i.Quantity
}

// MarshalJSON inclui o campo derivado "available".
func (i InventoryItem) MarshalJSON() ([]byte, error) {
	type alias InventoryItem
	return json.Marshal(struct {
		alias
		Available int `json:"available"`
	}{alias: alias(i), Available: i.Available()})
}

// ItemSettings são atributos configuráveis que não alteram quantidades.
// Campos nil não são alterados.
type ItemSettings struct {
	ReorderPoint    *int             `json:"reorder_point,omitempty"`
	ReorderQuantity *int             `json:"reorder_quantity,omitempty"`
	Location        *BinLocation     `json:"location,omitempty"`
	CostPerUnit     *decimal.Decimal `json:"cost_per_unit,omitempty"`
	UnitVolume      *decimal.Decimal `json:"unit_volume,omitempty"`
}

// ItemFilter restringe listagens de itens.
type ItemFilter struct {
	WarehouseID string
	ProductIDs  []string
}
