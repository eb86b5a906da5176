package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"Tasmeem/lib/sl"

	"golang.org/x/sync/singleflight"
)

// ErrSourceUnavailable wraps any failure to fetch or parse the style sheet.
var ErrSourceUnavailable = errors.New("style source unavailable")

// Provider selects which image-generation backend handles a style.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// Row is one line of the style sheet as delivered by a RowSource.
type Row struct {
	Code     string
	Prompt   string
	Provider string
}

type RowSource interface {
	FetchRows(ctx context.Context) ([]Row, error)
}

// Entry is one resolvable style.
type Entry struct {
	Code     string
	Prompt   string
	Provider Provider
}

// Snapshot is a complete view of the catalog as of one refresh.
// It is never mutated after being built.
type Snapshot struct {
	entries map[string]Entry
	builtAt time.Time
}

func (s *Snapshot) Size() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

func (s *Snapshot) BuiltAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.builtAt
}

// Cache keeps the current catalog snapshot in memory so lookups never
// touch the sheet. The snapshot is replaced wholesale on refresh.
type Cache struct {
	source RowSource
	log    *slog.Logger

	mu      sync.RWMutex
	current *Snapshot

	group singleflight.Group
}

func NewCache(source RowSource, log *slog.Logger) *Cache {
	return &Cache{
		source: source,
		log:    log.With(sl.Module("catalog")),
	}
}

// Refresh fetches the sheet and swaps in a new snapshot. Concurrent
// callers attach to the refresh already in flight and observe its
// outcome; a failed refresh is not retried here.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	v, err, shared := c.group.Do("refresh", func() (interface{}, error) {
		rows, err := c.source.FetchRows(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		snap := buildSnapshot(rows, time.Now())

		c.mu.Lock()
		c.current = snap
		c.mu.Unlock()

		c.log.With(
			slog.Int("rows", len(rows)),
			slog.Int("styles", snap.Size()),
		).Info("catalog refreshed")
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	snap := v.(*Snapshot)
	if shared {
		c.log.Debug("refresh shared with concurrent caller")
	}
	return snap, nil
}

func buildSnapshot(rows []Row, at time.Time) *Snapshot {
	entries := make(map[string]Entry, len(rows))
	for _, row := range rows {
		code := strings.TrimSpace(row.Code)
		prompt := strings.TrimSpace(row.Prompt)
		if code == "" || prompt == "" {
			continue
		}
		entries[code] = Entry{
			Code:     code,
			Prompt:   prompt,
			Provider: parseProvider(row.Provider),
		}
	}
	return &Snapshot{entries: entries, builtAt: at}
}

// parseProvider maps the free-form sheet marker to a backend.
// Anything unrecognized lands on Gemini.
func parseProvider(marker string) Provider {
	switch strings.ToLower(strings.TrimSpace(marker)) {
	case "openai", "dalle", "dall-e":
		return ProviderOpenAI
	default:
		return ProviderGemini
	}
}

// EnsureWarm refreshes once if the cache holds no styles yet.
func (c *Cache) EnsureWarm(ctx context.Context) error {
	if c.Size() > 0 {
		return nil
	}
	_, err := c.Refresh(ctx)
	return err
}

func (c *Cache) snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *Cache) lookup(code string) (Entry, bool) {
	snap := c.snapshot()
	if snap == nil {
		return Entry{}, false
	}
	entry, ok := snap.entries[strings.TrimSpace(code)]
	return entry, ok
}

// Prompt returns the prompt text for a style code. It reads the current
// snapshot only; a miss never triggers a refresh.
func (c *Cache) Prompt(code string) (string, bool) {
	entry, ok := c.lookup(code)
	if !ok {
		return "", false
	}
	return entry.Prompt, true
}

// ProviderFor returns the backend routing decision for a style code.
func (c *Cache) ProviderFor(code string) (Provider, bool) {
	entry, ok := c.lookup(code)
	if !ok {
		return "", false
	}
	return entry.Provider, true
}

func (c *Cache) Size() int {
	return c.snapshot().Size()
}

func (c *Cache) BuiltAt() time.Time {
	return c.snapshot().BuiltAt()
}

// StartAutoRefresh refreshes the catalog on a fixed interval until ctx
// is cancelled. Failures are logged and the ticker keeps going.
func (c *Cache) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := c.Refresh(ctx); err != nil {
					c.log.Error("auto refresh failed", sl.Err(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
