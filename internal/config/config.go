// Package config defines the static configuration shared by every
// cmd/* entrypoint: seed peer list, listening addresses, mTLS material,
// scheduling cadences, and thresholds (spec.md §6 "Static
// configuration").
package config

import (
	"time"

	"github.com/jessevdk/go-flags"
)

// Config is parsed once at process startup from flags and environment
// variables (flags take precedence).
type Config struct {
	ListenAddr  string `long:"listen-addr" env:"LEDGER_LISTEN_ADDR" description:"gRPC peer service listen address" default:":9443"`
	AdminAddr   string `long:"admin-addr" env:"LEDGER_ADMIN_ADDR" description:"admin HTTP listen address (peer table, metrics, archive search)" default:":9080"`
	SelfAddress string `long:"self-address" env:"LEDGER_SELF_ADDRESS" description:"this node's externally reachable gRPC address, excluded from its own peer list" required:"true"`

	SeedPeers []string `long:"seed-peer" env:"LEDGER_SEED_PEERS" env-delim:"," description:"peer gRPC addresses to seed the peer registry with"`

	TLSCertFile     string `long:"tls-cert" env:"LEDGER_TLS_CERT" description:"this node's TLS certificate" required:"true"`
	TLSKeyFile      string `long:"tls-key" env:"LEDGER_TLS_KEY" description:"this node's TLS private key" required:"true"`
	TLSClientCAFile string `long:"tls-client-ca" env:"LEDGER_TLS_CLIENT_CA" description:"CA bundle trusted to authenticate inbound peer connections" required:"true"`
	TLSCAFile       string `long:"tls-ca" env:"LEDGER_TLS_CA" description:"CA bundle trusted when this node dials peers" required:"true"`

	ClickhouseDSN string `long:"clickhouse-dsn" env:"LEDGER_CLICKHOUSE_DSN" description:"ClickHouse DSN for the block store and archive table" required:"true"`

	DiscoveryInterval time.Duration `long:"discovery-interval" env:"LEDGER_DISCOVERY_INTERVAL" description:"peer probe cadence" default:"60s"`
	HealthTimeout     time.Duration `long:"health-timeout" env:"LEDGER_HEALTH_TIMEOUT" description:"per-peer probe timeout" default:"10s"`
	UnhealthyTTL      time.Duration `long:"unhealthy-ttl" env:"LEDGER_UNHEALTHY_TTL" description:"sustained-unhealthy window before a peer is evicted" default:"5m"`

	BroadcastCooldown time.Duration `long:"broadcast-cooldown" env:"LEDGER_BROADCAST_COOLDOWN" description:"minimum interval between broadcasts" default:"1s"`
	BroadcastTimeout  time.Duration `long:"broadcast-timeout" env:"LEDGER_BROADCAST_TIMEOUT" description:"per-peer broadcast timeout" default:"4s"`
	BroadcastWorkers  int           `long:"broadcast-workers" env:"LEDGER_BROADCAST_WORKERS" description:"bounded fan-out width for broadcast" default:"8"`

	SyncFetchWorkers int           `long:"sync-fetch-workers" env:"LEDGER_SYNC_FETCH_WORKERS" description:"bounded fan-out width for sync chain collection" default:"8"`
	SyncPeerTimeout  time.Duration `long:"sync-peer-timeout" env:"LEDGER_SYNC_PEER_TIMEOUT" description:"per-peer GetChain timeout during sync" default:"5s"`
	SyncLockTimeout  time.Duration `long:"sync-lock-timeout" env:"LEDGER_SYNC_LOCK_TIMEOUT" description:"single-flight sync watchdog" default:"5s"`

	PruningThreshold   int64         `long:"pruning-threshold" env:"LEDGER_PRUNING_THRESHOLD" description:"chain length above which pruning becomes eligible" default:"1000"`
	ArchiveInterval    time.Duration `long:"archive-interval" env:"LEDGER_ARCHIVE_INTERVAL" description:"minimum spacing between pruning runs" default:"24h"`
	PruneCheckInterval time.Duration `long:"prune-check-interval" env:"LEDGER_PRUNE_CHECK_INTERVAL" description:"pruning eligibility check cadence" default:"6h"`
	PruneChunkSize     int           `long:"prune-chunk-size" env:"LEDGER_PRUNE_CHUNK_SIZE" description:"archive migration chunk size" default:"500"`
	PruneChunkRPS      int           `long:"prune-chunk-rps" env:"LEDGER_PRUNE_CHUNK_RPS" description:"archive migration chunks/second throttle" default:"5"`
}

// Parse parses args (typically os.Args) into a Config, applying env
// overrides and defaults per the struct tags above.
func Parse(args []string) (*Config, error) {
	cfg := &Config{}
	if _, err := flags.ParseArgs(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
