package pipeline

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/mafadubu/google-docs-resizer/internal/config"
	"github.com/mafadubu/google-docs-resizer/internal/docs"
)

// IsRetryable checks if an error is worth retrying with the same payload.
func IsRetryable(err error) bool {
	var retryErr *docs.RetryableError
	return errors.As(err, &retryErr)
}

// RetryPolicy bounds chunking and retries for one execution.
type RetryPolicy struct {
	ChunkSize   int
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// PolicyFromPreset converts a config preset.
func PolicyFromPreset(p config.Preset) RetryPolicy {
	return RetryPolicy{
		ChunkSize:   p.ChunkSize,
		MaxRetries:  p.MaxRetries,
		BackoffBase: p.BackoffBase,
		BackoffMax:  p.BackoffMax,
	}
}

// DefaultPolicy is the micro preset.
func DefaultPolicy() RetryPolicy {
	return PolicyFromPreset(config.DefaultPresets()[config.PresetMicro])
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	unit := p.BackoffBase
	if unit <= 0 {
		unit = time.Second
	}
	limit := p.BackoffMax
	if limit <= 0 {
		limit = 30 * time.Second
	}
	base := unit << uint(min(attempt, 20))
	if base > limit || base <= 0 {
		base = limit
	}
	jitter := time.Duration(rand.Int64N(int64(base)/2 + 1))
	return base + jitter
}
