package alertservice

import (
	"context"
	stderrors "errors"
	"fmt"

	"stockflow/internal/pkg/cache"
)

// VelocitySource fornece a média diária de vendas de um produto em um armazém.
// ok=false significa que a média é desconhecida.
type VelocitySource interface {
	AverageDailySales(ctx context.Context, productID, warehouseID string) (value float64, ok bool, err error)
}

// VelocityKey é a chave onde o serviço de analytics publica a média diária.
func VelocityKey(productID, warehouseID string) string {
	return fmt.Sprintf("velocity:%s:%s", productID, warehouseID)
}

// RedisVelocitySource lê médias publicadas no Redis por um processo externo.
type RedisVelocitySource struct {
	client cache.Client
}

func NewRedisVelocitySource(client cache.Client) *RedisVelocitySource {
	return &RedisVelocitySource{client: client}
}

func (s *RedisVelocitySource) AverageDailySales(ctx context.Context, productID, warehouseID string) (float64, bool, error) {
	v, err := s.client.GetFloat(ctx, VelocityKey(productID, warehouseID))
	if stderrors.Is(err, cache.ErrCacheMiss) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}
