package nanogit

import (
	"time"

	"github.com/tordoze/nanogit/cas"
	"github.com/tordoze/nanogit/transport/pool"
)

// Config is the root configuration object, binding every key the CLI's
// viper layer recognizes under the "pool.*", "security.*", and
// "store.*" sections, plus the top-level anonymized-transport switch.
// Zero-value Config fields are filled in by DefaultConfig; callers that
// unmarshal a partial config file should start from DefaultConfig and
// overlay onto it, not build a Config from scratch.
type Config struct {
	// UseAnonTransport forces every repository URL through the
	// anonymized transport factory, regardless of what transport.Router
	// would otherwise decide from the URL's scheme/host.
	UseAnonTransport bool

	Pool     PoolConfig
	Security SecurityConfig
	Store    StoreConfig
}

// PoolConfig mirrors the "pool.*" configuration keys.
type PoolConfig struct {
	MaxPerDest         int
	ConnectionTimeoutS int
	IsolateStreams     bool
}

// SecurityConfig mirrors the "security.*" configuration keys.
type SecurityConfig struct {
	StrictOnionValidation bool
	VerifyFingerprint     bool
	TrustedFingerprints   map[string]string
}

// StoreConfig mirrors the "store.*" configuration keys.
type StoreConfig struct {
	UseDedup               bool
	HashAlgo               string // "sha256" | "blake3"
	UseChunking            bool
	ChunkingThresholdBytes int64
	Chunker                ChunkerConfig
	BackgroundUploads      bool
	MaxCacheBytes          int64
	OpTimeoutS             int
}

// ChunkerConfig mirrors the "store.chunker" configuration sub-object.
type ChunkerConfig struct {
	Kind   string // "fixed" | "fastcdc"
	Min    int
	Target int
	Max    int
}

// DefaultConfig returns the spec-mandated defaults for every key.
func DefaultConfig() Config {
	return Config{
		UseAnonTransport: false,
		Pool: PoolConfig{
			MaxPerDest:         5,
			ConnectionTimeoutS: 60,
			IsolateStreams:     true,
		},
		Security: SecurityConfig{
			StrictOnionValidation: true,
			VerifyFingerprint:     true,
		},
		Store: StoreConfig{
			UseDedup:               true,
			HashAlgo:               "sha256",
			UseChunking:            true,
			ChunkingThresholdBytes: 1 << 20,
			Chunker: ChunkerConfig{
				Kind:   "fastcdc",
				Min:    16 * 1024,
				Target: 256 * 1024,
				Max:    4 * 1024 * 1024,
			},
			BackgroundUploads: false,
			MaxCacheBytes:     0,
			OpTimeoutS:        30,
		},
	}
}

// poolConfig converts to the transport/pool package's own Config shape.
func (c PoolConfig) poolConfig(sec SecurityConfig) pool.Config {
	return pool.Config{
		MaxPerDest:            c.MaxPerDest,
		AcquisitionTimeout:    time.Duration(c.ConnectionTimeoutS) * time.Second,
		IsolateStreams:        c.IsolateStreams,
		VerifyFingerprint:     sec.VerifyFingerprint,
		TrustedFingerprints:   sec.TrustedFingerprints,
		StrictOnionValidation: sec.StrictOnionValidation,
	}
}

// PoolConfig builds the pool.Config this configuration describes,
// folding in the security-section fingerprint settings the pool
// enforces at acquisition time.
func (c Config) PoolConfig() pool.Config {
	return c.Pool.poolConfig(c.Security)
}

// CASConfig builds the cas.Config this configuration describes.
func (c Config) CASConfig() cas.Config {
	return cas.Config{
		UseDedup:               c.Store.UseDedup,
		HashAlgo:               cas.HashAlgo(c.Store.HashAlgo),
		UseChunking:            c.Store.UseChunking,
		ChunkingThresholdBytes: c.Store.ChunkingThresholdBytes,
		Chunker:                c.Store.Chunker.chunkerConfig(),
		BackgroundUploads:      c.Store.BackgroundUploads,
		MaxCacheBytes:          c.Store.MaxCacheBytes,
		BatchConcurrency:       4,
		UploadConcurrency:      4,
	}
}

func (c ChunkerConfig) chunkerConfig() cas.ChunkerConfig {
	kind := cas.ChunkerFastCDC
	if c.Kind == "fixed" {
		kind = cas.ChunkerFixed
	}
	return cas.ChunkerConfig{
		Kind:       kind,
		MinSize:    c.Min,
		TargetSize: c.Target,
		MaxSize:    c.Max,
	}
}

// OpTimeout returns the configured per-operation timeout as a
// time.Duration, for callers that set up a context.WithTimeout around a
// store or transport call.
func (c StoreConfig) OpTimeout() time.Duration {
	return time.Duration(c.OpTimeoutS) * time.Second
}
