package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dgallion1/docsift/internal/metrics"
)

const redisKeyPrefix = "docsift:emb:"

// RedisCache shares vectors between processes. Redis failures are logged
// and treated as misses; they never fail an Encode call.
type RedisCache struct {
	inner  Encoder
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

var _ Encoder = (*RedisCache)(nil)

func NewRedisCache(inner Encoder, client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisCache {
	if log == nil {
		log = slog.Default()
	}
	return &RedisCache{inner: inner, client: client, ttl: ttl, log: log}
}

func (c *RedisCache) Version() string { return c.inner.Version() }

func (c *RedisCache) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	version := c.inner.Version()
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = redisKey(version, t)
	}

	out := make([][]float32, len(texts))
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.log.Warn("redis embedding cache read failed", "error", err)
		vals = nil
	}

	var missIdx []int
	var missTexts []string
	for i := range texts {
		if i < len(vals) {
			if s, ok := vals[i].(string); ok {
				if v, derr := decodeVector([]byte(s)); derr == nil {
					out[i] = v
					metrics.RecordCache("redis", true)
					continue
				}
			}
		}
		metrics.RecordCache("redis", false)
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, texts[i])
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Encode(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", ErrEmbeddingUnavailable, len(missTexts), len(vecs))
	}

	pipe := c.client.Pipeline()
	for j, i := range missIdx {
		out[i] = vecs[j]
		pipe.Set(ctx, keys[i], encodeVector(vecs[j]), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("redis embedding cache write failed", "error", err, "vectors", len(missIdx))
	}
	return out, nil
}

func redisKey(version, text string) string {
	h := sha256.Sum256([]byte(version + "\x00" + text))
	return redisKeyPrefix + hex.EncodeToString(h[:])
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.New("corrupt cached vector")
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
