// Package cache holds Redis-backed helpers that speed up, but never decide,
// settlement outcomes.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/config"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "settlement:"

// ReplayGuard remembers delivery events that already settled an order so
// carrier redeliveries skip the store and the provider.
type ReplayGuard struct {
	client *redis.Client
	ttl    time.Duration
}

var _ application.DeliveryReplayGuard = (*ReplayGuard)(nil)

func NewReplayGuard(cfg config.RedisConfig) *ReplayGuard {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &ReplayGuard{client: rdb, ttl: cfg.ReplayTTL}
}

func (g *ReplayGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

func (g *ReplayGuard) Seen(ctx context.Context, key string) (bool, error) {
	n, err := g.client.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("replay lookup: %w", err)
	}
	return n > 0, nil
}

func (g *ReplayGuard) Remember(ctx context.Context, key string) error {
	err := g.client.Set(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), g.ttl).Err()
	if err != nil {
		return fmt.Errorf("replay remember: %w", err)
	}
	return nil
}

func (g *ReplayGuard) Close() error {
	return g.client.Close()
}
