package lookup

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/taxonomy"
)

// Resolution names the state of the Static→Cache→Fetch resolution machine
// that produced a lookup result
type Resolution string

const (
	ResolutionStatic Resolution = "STATIC"
	ResolutionCache  Resolution = "CACHE"
	ResolutionFetch  Resolution = "FETCH"
	ResolutionEmpty  Resolution = "EMPTY"
)

// DefaultTTL is how long a fetched instrument mapping stays valid
const DefaultTTL = 90 * 24 * time.Hour

// staticMatchThreshold is how many endpoint labels must hit the static
// instrument table before the store short-circuits without consulting the
// cache or the fetch collaborator
const staticMatchThreshold = 2

// Cache is a TTL'd mapping of normalized disease name to instrument scores.
// Entries are immutable for their TTL window; an expired entry reads as
// absent.
type Cache interface {
	Get(ctx context.Context, key string) (map[string]float64, bool, error)
	Set(ctx context.Context, key string, scores map[string]float64) error
}

// Fetcher is the external instrument-discovery collaborator. Failures are
// caught by the store and degrade to an empty mapping, never into the scorer.
type Fetcher interface {
	FetchInstruments(ctx context.Context, disease string) (map[string]float64, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, disease string) (map[string]float64, error)

// FetchInstruments implements Fetcher
func (f FetcherFunc) FetchInstruments(ctx context.Context, disease string) (map[string]float64, error) {
	return f(ctx, disease)
}

// Store resolves disease names to instrument score mappings. It is the one
// stateful component of the engine: cache writes are its only side effect,
// and it guarantees at most one in-flight fetch per disease key.
type Store struct {
	cache   Cache
	fetcher Fetcher
	log     *logrus.Logger

	mu       sync.Mutex
	inflight map[string]*fetchCall
}

type fetchCall struct {
	done   chan struct{}
	scores map[string]float64
}

// NewStore creates a lookup store over the given cache and fetch collaborator
func NewStore(cache Cache, fetcher Fetcher, logger *logrus.Logger) *Store {
	return &Store{
		cache:    cache,
		fetcher:  fetcher,
		log:      logger,
		inflight: make(map[string]*fetchCall),
	}
}

// NormalizeDisease canonicalizes a disease name for cache keying
func NormalizeDisease(disease string) string {
	return strings.Join(strings.Fields(strings.ToLower(disease)), " ")
}

// Lookup resolves the instrument score mapping for a disease. Resolution
// order: the static instrument table matched against the record's endpoint
// labels, then the cache, then the external fetcher. Every failure path
// degrades to an empty mapping; the scorer falls back to its ad-hoc default.
func (s *Store) Lookup(ctx context.Context, disease string, endpointLabels []string) (map[string]float64, Resolution) {
	if static := s.resolveStatic(endpointLabels); static != nil {
		return static, ResolutionStatic
	}

	key := NormalizeDisease(disease)

	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.WithError(err).WithField("disease", key).Warn("Instrument cache read failed, falling through to fetch")
		} else if hit {
			return cached, ResolutionCache
		}
	}

	scores := s.fetchOnce(ctx, key)
	if len(scores) == 0 {
		return map[string]float64{}, ResolutionEmpty
	}
	return scores, ResolutionFetch
}

// resolveStatic matches every endpoint label against the static instrument
// table and returns the mapping when at least two labels match
func (s *Store) resolveStatic(endpointLabels []string) map[string]float64 {
	matched := make(map[string]float64)
	for _, label := range endpointLabels {
		if score, _, ok := taxonomy.InstrumentScore(label); ok {
			matched[label] = score
		}
	}
	if len(matched) >= staticMatchThreshold {
		return matched
	}
	return nil
}

// fetchOnce invokes the fetch collaborator, deduplicating concurrent calls
// for the same disease key: the first caller fetches, everyone else waits on
// its result.
func (s *Store) fetchOnce(ctx context.Context, key string) map[string]float64 {
	s.mu.Lock()
	if call, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.scores
		case <-ctx.Done():
			return map[string]float64{}
		}
	}

	call := &fetchCall{done: make(chan struct{})}
	s.inflight[key] = call
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
		close(call.done)
	}()

	scores, err := s.fetcher.FetchInstruments(ctx, key)
	if err != nil {
		s.log.WithError(err).WithField("disease", key).Warn("Instrument fetch failed, degrading to empty mapping")
		scores = map[string]float64{}
	}
	if scores == nil {
		scores = map[string]float64{}
	}
	call.scores = scores

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, scores); err != nil {
			s.log.WithError(err).WithField("disease", key).Warn("Instrument cache write failed")
		}
	}

	return scores
}
