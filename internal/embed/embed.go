// Package embed turns text into fixed-length vectors. Backends sit behind the
// Encoder interface so ranking code and tests never depend on a real model.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dgallion1/docsift/internal/textnorm"
)

// ErrEmbeddingUnavailable means a vector could not be produced for some
// input: blank text, or a backend that failed after retries.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

// Encoder embeds a batch of texts, one vector per input, in order.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}

// RetryableError indicates a transient backend failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	msg := e.Message
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, msg)
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3

// Options selects and tunes the encoder built by New.
type Options struct {
	URL        string // Ollama base URL; empty selects the offline HashEncoder
	Model      string
	Dim        int
	CacheSize  int
	RatePerSec float64
	Timeout    time.Duration
	Tokenizer  *textnorm.Tokenizer

	// Redis, when set, adds a shared vector cache between the in-process
	// LRU and the backend.
	Redis    *redis.Client
	RedisTTL time.Duration
	Log      *slog.Logger
}

// New builds the configured encoder stack: backend, latency instrumentation,
// the optional Redis tier, then an LRU cache in front.
func New(opts Options) (Encoder, *Stats, error) {
	var base Encoder
	if opts.URL == "" {
		base = NewHashEncoder(opts.Dim, opts.Tokenizer)
	} else {
		base = NewOllamaEncoder(opts.URL, opts.Model, opts.Timeout, opts.RatePerSec)
	}

	stats := NewStats(time.Hour)
	enc := Instrument(base, stats)
	if opts.Redis != nil {
		enc = NewRedisCache(enc, opts.Redis, opts.RedisTTL, opts.Log)
	}
	if opts.CacheSize > 0 {
		cached, err := NewCached(enc, opts.CacheSize)
		if err != nil {
			return nil, nil, err
		}
		enc = cached
	}
	return enc, stats, nil
}

// EncodeOne embeds a single text.
func EncodeOne(ctx context.Context, enc Encoder, text string) ([]float32, error) {
	vecs, err := enc.Encode(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("%w: backend returned no vector", ErrEmbeddingUnavailable)
	}
	return vecs[0], nil
}

// Normalize returns a unit-length copy of v. A zero vector stays zero.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// Cosine returns the cosine similarity of a and b, 0 when either is zero or
// the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
