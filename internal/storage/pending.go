package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// PendingKey is the sorted set of uploads whose profile record is not yet
// committed, scored by upload time.
const PendingKey = "storefront:uploads:pending"

// PendingUploads tracks blobs between upload and profile update so orphans
// can be swept.
type PendingUploads interface {
	Track(ctx context.Context, key string) error
	Resolve(ctx context.Context, key string) error
	Stale(ctx context.Context, olderThan time.Time, limit int64) ([]string, error)
}

type redisPendingUploads struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisPendingUploads returns a ledger backed by a Redis sorted set.
func NewRedisPendingUploads(client *redis.Client) PendingUploads {
	return &redisPendingUploads{client: client, now: time.Now}
}

func (p *redisPendingUploads) Track(ctx context.Context, key string) error {
	return p.client.ZAdd(ctx, PendingKey, redis.Z{
		Score:  float64(p.now().Unix()),
		Member: key,
	}).Err()
}

func (p *redisPendingUploads) Resolve(ctx context.Context, key string) error {
	return p.client.ZRem(ctx, PendingKey, key).Err()
}

func (p *redisPendingUploads) Stale(ctx context.Context, olderThan time.Time, limit int64) ([]string, error) {
	return p.client.ZRangeByScore(ctx, PendingKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(olderThan.Unix(), 10),
		Count: limit,
	}).Result()
}
