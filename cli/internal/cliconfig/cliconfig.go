// Package cliconfig binds the root nanogit.Config's §6 keys onto
// viper, so the CLI can load them from a config file, environment
// variables (NANOGIT_ prefix), or be left at their defaults.
package cliconfig

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/tordoze/nanogit"
)

// Load reads configFile (if non-empty) plus any NANOGIT_-prefixed
// environment variables into a nanogit.Config, starting from
// nanogit.DefaultConfig and overlaying whatever the file/environment
// sets.
func Load(configFile string) (nanogit.Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NANOGIT")
	v.AutomaticEnv()

	bindDefaults(v, nanogit.DefaultConfig())

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nanogit.Config{}, fmt.Errorf("cliconfig: read %s: %w", configFile, err)
		}
	}

	cfg := nanogit.DefaultConfig()
	if err := v.UnmarshalKey("pool", &cfg.Pool); err != nil {
		return nanogit.Config{}, fmt.Errorf("cliconfig: unmarshal pool config: %w", err)
	}
	if err := v.UnmarshalKey("security", &cfg.Security); err != nil {
		return nanogit.Config{}, fmt.Errorf("cliconfig: unmarshal security config: %w", err)
	}
	if err := v.UnmarshalKey("store", &cfg.Store); err != nil {
		return nanogit.Config{}, fmt.Errorf("cliconfig: unmarshal store config: %w", err)
	}
	cfg.UseAnonTransport = v.GetBool("use_anon_transport")

	return cfg, nil
}

// bindDefaults seeds viper's own default layer from def, so a key absent
// from both the config file and the environment still resolves to the
// spec-mandated default rather than a zero value.
func bindDefaults(v *viper.Viper, def nanogit.Config) {
	v.SetDefault("use_anon_transport", def.UseAnonTransport)
	v.SetDefault("pool.maxperdest", def.Pool.MaxPerDest)
	v.SetDefault("pool.connectiontimeouts", def.Pool.ConnectionTimeoutS)
	v.SetDefault("pool.isolatestreams", def.Pool.IsolateStreams)
	v.SetDefault("security.strictonionvalidation", def.Security.StrictOnionValidation)
	v.SetDefault("security.verifyfingerprint", def.Security.VerifyFingerprint)
	v.SetDefault("store.usededup", def.Store.UseDedup)
	v.SetDefault("store.hashalgo", def.Store.HashAlgo)
	v.SetDefault("store.usechunking", def.Store.UseChunking)
	v.SetDefault("store.chunkingthresholdbytes", def.Store.ChunkingThresholdBytes)
	v.SetDefault("store.backgrounduploads", def.Store.BackgroundUploads)
	v.SetDefault("store.maxcachebytes", def.Store.MaxCacheBytes)
	v.SetDefault("store.optimeouts", def.Store.OpTimeoutS)
	v.SetDefault("store.chunker.kind", def.Store.Chunker.Kind)
	v.SetDefault("store.chunker.min", def.Store.Chunker.Min)
	v.SetDefault("store.chunker.target", def.Store.Chunker.Target)
	v.SetDefault("store.chunker.max", def.Store.Chunker.Max)
}
