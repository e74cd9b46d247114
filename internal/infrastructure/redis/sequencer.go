// Package redis implementa el secuenciador de consecutivos diarios sobre Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

const (
	sequenceKeyPrefix = "seq:"
	sequenceTTL       = 48 * time.Hour
)

// nextScript incrementa y fija la expiración en la primera llamada del día, de forma atómica.
var nextScript = goredis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('EXPIRE', KEYS[1], tonumber(ARGV[1]))
end
return n
`)

var _ repository.Sequencer = (*Sequencer)(nil)

// Sequencer consecutivos por tienda, ámbito y día.
type Sequencer struct {
	client goredis.UniversalClient
}

// NewSequencer construye el secuenciador sobre un cliente ya conectado.
func NewSequencer(client goredis.UniversalClient) *Sequencer {
	return &Sequencer{client: client}
}

// Next devuelve el siguiente consecutivo (1, 2, ...) de la clave del día.
func (s *Sequencer) Next(ctx context.Context, shopID, scope string, day time.Time) (int64, error) {
	n, err := nextScript.Run(ctx, s.client, []string{Key(shopID, scope, day)}, int(sequenceTTL.Seconds())).Int64()
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return n, nil
}

// Key clave Redis del contador.
func Key(shopID, scope string, day time.Time) string {
	return sequenceKeyPrefix + shopID + ":" + scope + ":" + day.UTC().Format("20060102")
}

// NewClient conecta y verifica con PING.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
