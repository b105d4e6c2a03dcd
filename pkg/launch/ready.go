package launch

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// WaitBroker polls the broker at addr with a Redis PING until it answers or
// ctx expires. The composite launch uses this instead of a blind sleep so
// dependents only start once the broker actually accepts connections.
func WaitBroker(ctx context.Context, addr string) error {
	if addr == "" {
		return errors.New("missing broker address")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 250 * time.Millisecond,
		// Probe connections only; no retries, the outer loop is the retry.
		MaxRetries: -1,
	})
	defer func() { _ = client.Close() }()

	t := time.NewTicker(250 * time.Millisecond)
	defer t.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "broker %s not ready", addr)
		case <-t.C:
		}
	}
}
