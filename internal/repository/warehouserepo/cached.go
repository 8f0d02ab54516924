package warehouserepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stockflow/internal/domain"
	"stockflow/internal/pkg/cache"
	"stockflow/internal/pkg/logger"
)

// Define a chave de cache para armazéns.
const warehouseCacheKey = "warehouse:%s"

// CachedRepository aplica Cache-Aside sobre GetWarehouseByID, consultado a cada mutação do ledger.
// Falhas do Redis são registradas e a leitura segue para o repositório.
type CachedRepository struct {
	domain.WarehouseRepository
	Cache  cache.Client
	TTL    time.Duration
	logger logger.Logger
}

func NewCachedRepository(repo domain.WarehouseRepository, cacheClient cache.Client, ttl time.Duration, logger logger.Logger) *CachedRepository {
	return &CachedRepository{WarehouseRepository: repo, Cache: cacheClient, TTL: ttl, logger: logger}
}

func (r *CachedRepository) GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error) {
	key := fmt.Sprintf(warehouseCacheKey, id)

	cached, err := r.Cache.Get(ctx, key)
	if err == nil {
		var w domain.Warehouse
		if json.Unmarshal([]byte(cached), &w) == nil {
			return w, nil
		}
	} else if err != cache.ErrCacheMiss {
		r.logger.Warn("Falha ao ler armazém do cache.", map[string]interface{}{"id": id, "error": err.Error()})
	}

	w, err := r.WarehouseRepository.GetWarehouseByID(ctx, id)
	if err != nil {
		return domain.Warehouse{}, err
	}

	if data, marshalErr := json.Marshal(w); marshalErr == nil {
		if setErr := r.Cache.Set(ctx, key, data, r.TTL); setErr != nil {
			r.logger.Warn("Falha ao gravar armazém no cache.", map[string]interface{}{"id": id, "error": setErr.Error()})
		}
	}
	return w, nil
}

// UpdateWarehouse invalida a entrada depois de gravar; a próxima leitura repopula.
func (r *CachedRepository) UpdateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	updated, err := r.WarehouseRepository.UpdateWarehouse(ctx, warehouse)
	if err != nil {
		return domain.Warehouse{}, err
	}
	if delErr := r.Cache.Delete(ctx, fmt.Sprintf(warehouseCacheKey, warehouse.ID)); delErr != nil {
		r.logger.Warn("Falha ao invalidar armazém no cache.", map[string]interface{}{"id": warehouse.ID, "error": delErr.Error()})
	}
	return updated, nil
}
