// Package redis implementa el almacén de secuenciales sobre Redis (SEQUENCE_BACKEND=redis).
package redis

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

var _ repository.SequenceRepository = (*SequenceStore)(nil)

// reserveScript incrementa solo si el contador no superó el máximo; INCR a secas
// dejaría el contador por encima del rango tras un fallo.
var reserveScript = goredis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
  return -1
end
return redis.call('INCR', KEYS[1])
`)

// SequenceStore reserva secuenciales con un script atómico por clave
// sri:seq:{emisor}:{estab}:{ptoEmi}:{codDoc}.
type SequenceStore struct {
	client goredis.UniversalClient
}

func NewSequenceStore(client goredis.UniversalClient) *SequenceStore {
	return &SequenceStore{client: client}
}

// NewClient abre un cliente a partir de REDIS_URL y verifica la conexión.
func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse REDIS_URL")
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

func redisKey(key entity.SequenceKey) string {
	return fmt.Sprintf("sri:seq:%s:%s:%s:%s", key.CompanyID, key.Establishment, key.EmissionPoint, key.DocType)
}

func (s *SequenceStore) Reserve(ctx context.Context, key entity.SequenceKey) (int64, error) {
	n, err := reserveScript.Run(ctx, s.client, []string{redisKey(key)}, pkgsri.MaxSequence).Int64()
	if err != nil {
		return 0, errors.Wrap(err, "reserve sequence")
	}
	if n < 0 {
		return 0, domain.InvalidInput("redis.Reserve",
			"secuencial agotado para %s-%s tipo %s (máximo %d)", key.Establishment, key.EmissionPoint, key.DocType, pkgsri.MaxSequence)
	}
	return n, nil
}

func (s *SequenceStore) Current(ctx context.Context, key entity.SequenceKey) (int64, error) {
	n, err := s.client.Get(ctx, redisKey(key)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "current sequence")
	}
	return n, nil
}
