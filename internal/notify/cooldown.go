package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore decides whether a deduplication key may fire again.
type CooldownStore interface {
	// Allow returns true if key has not fired within the window, and marks
	// it as fired.
	Allow(ctx context.Context, key string, window time.Duration) bool
}

// MemoryCooldown is a process-local cooldown store.
type MemoryCooldown struct {
	mu       sync.Mutex
	lastSent map[string]time.Time
	now      func() time.Time
}

var _ CooldownStore = (*MemoryCooldown)(nil)

func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (m *MemoryCooldown) Allow(_ context.Context, key string, window time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.lastSent[key]; ok && m.now().Sub(last) < window {
		return false
	}
	m.lastSent[key] = m.now()
	return true
}

// RedisCooldown shares cooldown state across replicas via SET NX with TTL.
// Errors fail open: a broken redis must not silence operator notifications.
type RedisCooldown struct {
	client *redis.Client
	logger *slog.Logger
}

var _ CooldownStore = (*RedisCooldown)(nil)

func NewRedisCooldown(url string, logger *slog.Logger) (*RedisCooldown, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisCooldown{
		client: client,
		logger: logger.With("component", "notify_cooldown"),
	}, nil
}

func (r *RedisCooldown) Allow(ctx context.Context, key string, window time.Duration) bool {
	ok, err := r.client.SetNX(ctx, "spender:cooldown:"+key, 1, window).Result()
	if err != nil {
		r.logger.Warn("cooldown check failed, allowing", "error", err)
		return true
	}
	return ok
}

func (r *RedisCooldown) Close() error {
	return r.client.Close()
}

// Throttled wraps a Notifier, suppressing repeated plain notifications with
// identical text within the cooldown window. Confirmation messages and
// acknowledgments always pass: they carry actionable state.
type Throttled struct {
	next   Notifier
	store  CooldownStore
	window time.Duration
	logger *slog.Logger
}

var _ Notifier = (*Throttled)(nil)

func NewThrottled(next Notifier, store CooldownStore, window time.Duration, logger *slog.Logger) *Throttled {
	return &Throttled{
		next:   next,
		store:  store,
		window: window,
		logger: logger.With("component", "notifier"),
	}
}

func (t *Throttled) Notify(ctx context.Context, text string) error {
	sum := sha256.Sum256([]byte(text))
	if !t.store.Allow(ctx, hex.EncodeToString(sum[:8]), t.window) {
		t.logger.Debug("notification suppressed by cooldown")
		return nil
	}
	return t.next.Notify(ctx, text)
}

func (t *Throttled) NotifyWithConfirmation(ctx context.Context, text, reference string) error {
	return t.next.NotifyWithConfirmation(ctx, text, reference)
}

func (t *Throttled) Acknowledge(ctx context.Context, eventID, text string) error {
	return t.next.Acknowledge(ctx, eventID, text)
}
