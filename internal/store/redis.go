package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultEpisodeTTL = 48 * time.Hour

// EpisodeDeduper suppresses repeat alerts for the same PC episode across
// runs. An episode is identified by (driver id, pc start time); the key
// carries a TTL only as hygiene since a new episode gets a new start time.
type EpisodeDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEpisodeDeduper connects to redis and verifies the connection.
func NewEpisodeDeduper(ctx context.Context, addr, password string, db int, ttl time.Duration) (*EpisodeDeduper, error) {
	if addr == "" {
		return nil, errors.New("episode deduper: empty redis addr")
	}
	if ttl <= 0 {
		ttl = defaultEpisodeTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("episode deduper: redis ping failed: %w", err)
	}
	return &EpisodeDeduper{client: client, ttl: ttl}, nil
}

// Claim atomically claims the episode for alerting. It returns true when
// this caller is the first to alert for the episode; later callers get
// false until the key expires.
func (d *EpisodeDeduper) Claim(ctx context.Context, driverID string, pcStart time.Time) (bool, error) {
	if d == nil || d.client == nil {
		return false, errors.New("episode deduper: nil client")
	}
	if driverID == "" || pcStart.IsZero() {
		// Unidentifiable episodes are never deduped.
		return true, nil
	}
	key := episodeKey(driverID, pcStart)
	ok, err := d.client.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("episode deduper: setnx failed: %w", err)
	}
	return ok, nil
}

// Close releases the redis connection.
func (d *EpisodeDeduper) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func episodeKey(driverID string, pcStart time.Time) string {
	return fmt.Sprintf("pcalert:episode:%s:%d", driverID, pcStart.UTC().Unix())
}
