// Package peers implements the peer registry (C5): address-to-health
// bookkeeping, periodic probing, and the selectors C6/C7 use to pick
// peers to talk to.
package peers

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/validexlabs/sensorledger/internal/clock"
)

// Health is a peer's current state.
type Health string

const (
	Unknown   Health = "unknown"
	Healthy   Health = "healthy"
	Unhealthy Health = "unhealthy"
)

const (
	defaultDiscoveryInterval = 60 * time.Second
	defaultHealthTimeout     = 10 * time.Second
	defaultUnhealthyTTL      = 5 * time.Minute
)

// Record is one peer's bookkeeping entry. Owned exclusively by Registry.
type Record struct {
	Address        string
	Health         Health
	LastSeen       time.Time
	ChainLength    int64
	ResponseTime   time.Duration
	unhealthySince time.Time
}

// Prober calls GetChain on a remote peer and reports how long its chain
// is. internal/rpc provides the concrete implementation; Registry only
// needs this narrow slice of it.
type Prober interface {
	Probe(ctx context.Context, address string) (chainLength int64, err error)
}

// HealthGauge receives the current healthy-peer count after each probe
// cycle. internal/metrics.Peers satisfies it.
type HealthGauge interface {
	SetHealthyCount(n int)
}

// Registry tracks peer addresses and health. Seed once at startup, then
// call Run in its own goroutine to keep probing.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record

	selfAddress string
	prober      Prober
	gauge       HealthGauge
	logger      *zap.Logger

	discoveryInterval time.Duration
	healthTimeout     time.Duration
	unhealthyTTL      time.Duration

	sleep func(context.Context, time.Duration) error
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithDiscoveryInterval overrides the default 60s probe cadence.
func WithDiscoveryInterval(d time.Duration) Option {
	return func(r *Registry) { r.discoveryInterval = d }
}

// WithHealthTimeout overrides the default 10s per-probe timeout.
func WithHealthTimeout(d time.Duration) Option {
	return func(r *Registry) { r.healthTimeout = d }
}

// WithUnhealthyTTL overrides the default 5m sustained-unhealthy eviction
// window.
func WithUnhealthyTTL(d time.Duration) Option {
	return func(r *Registry) { r.unhealthyTTL = d }
}

// New builds a Registry seeded from seeds, excluding selfAddress.
func New(selfAddress string, seeds []string, prober Prober, gauge HealthGauge, logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		records:           make(map[string]*Record),
		selfAddress:       selfAddress,
		prober:            prober,
		gauge:             gauge,
		logger:            logger,
		discoveryInterval: defaultDiscoveryInterval,
		healthTimeout:     defaultHealthTimeout,
		unhealthyTTL:      defaultUnhealthyTTL,
		sleep:             clock.SleepWithContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Seed(seeds)
	return r
}

// Seed adds addresses not already known and not equal to selfAddress.
func (r *Registry) Seed(addresses []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, addr := range addresses {
		if addr == "" || addr == r.selfAddress {
			continue
		}
		if _, ok := r.records[addr]; ok {
			continue
		}
		r.records[addr] = &Record{Address: addr, Health: Unknown}
	}
}

// Run probes every known peer every discoveryInterval until ctx is
// canceled.
func (r *Registry) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.probeAll(ctx)
		if err := r.sleep(ctx, r.discoveryInterval); err != nil {
			return err
		}
	}
}

func (r *Registry) probeAll(ctx context.Context) {
	for _, addr := range r.addresses() {
		r.probeOne(ctx, addr)
	}
	r.evictStale()
	if r.gauge != nil {
		r.gauge.SetHealthyCount(len(r.Healthy()))
	}
}

func (r *Registry) addresses() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addrs := make([]string, 0, len(r.records))
	for addr := range r.records {
		addrs = append(addrs, addr)
	}
	return addrs
}

func (r *Registry) probeOne(ctx context.Context, addr string) {
	probeCtx, cancel := context.WithTimeout(ctx, r.healthTimeout)
	defer cancel()

	started := time.Now()
	chainLength, err := r.prober.Probe(probeCtx, addr)
	elapsed := time.Since(started)

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[addr]
	if !ok {
		return
	}
	if err != nil {
		if rec.Health != Unhealthy {
			rec.unhealthySince = time.Now()
		}
		rec.Health = Unhealthy
		r.logger.Warn("peer probe failed", zap.String("address", addr), zap.Error(err))
		return
	}

	rec.Health = Healthy
	rec.unhealthySince = time.Time{}
	rec.LastSeen = time.Now()
	rec.ChainLength = chainLength
	rec.ResponseTime = elapsed
}

func (r *Registry) evictStale() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for addr, rec := range r.records {
		if rec.Health == Unhealthy && !rec.unhealthySince.IsZero() && now.Sub(rec.unhealthySince) > r.unhealthyTTL {
			delete(r.records, addr)
			r.logger.Info("evicted unhealthy peer", zap.String("address", addr))
		}
	}
}

// Healthy returns a snapshot of all currently healthy peer records.
func (r *Registry) Healthy() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Record
	for _, rec := range r.records {
		if rec.Health == Healthy {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// All returns a snapshot of every known peer record.
func (r *Registry) All() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Best returns the healthy peer with the lowest observed response time.
func (r *Registry) Best() (Record, bool) {
	healthy := r.Healthy()
	if len(healthy) == 0 {
		return Record{}, false
	}
	best := healthy[0]
	for _, rec := range healthy[1:] {
		if rec.ResponseTime < best.ResponseTime {
			best = rec
		}
	}
	return best, true
}

// Info returns the record for addr, if known.
func (r *Registry) Info(addr string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[addr]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}
