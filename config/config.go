// Package config loads the deployment defaults the core needs but does not
// own: pagination bounds, the fallback shard routing value, and datastore
// cluster endpoints (SPEC_FULL.md §2 AMBIENT STACK). Mirrors the teacher's
// direct dependency on godotenv for example-app bootstrapping; values are
// otherwise passed as explicit struct fields, never a global singleton.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the set of operator-configured defaults the assembler and
// routing picker need (spec.md §4.3, §4.6).
type Config struct {
	DefaultPageSize           int
	MaxPageSize               int
	DefaultAggregationSize    int
	FallbackShardRoutingValue string
	ClusterEndpoints          map[string]string
}

const (
	envDefaultPageSize    = "DEFAULT_PAGE_SIZE"
	envMaxPageSize        = "MAX_PAGE_SIZE"
	envDefaultAggSize     = "DEFAULT_AGGREGATION_SIZE"
	envFallbackShardValue = "FALLBACK_SHARD_ROUTING_VALUE"
	envClusterPrefix      = "CLUSTER_ENDPOINT_"
)

// defaults mirror spec.md's own worked examples (default agg size 50,
// spec.md §4.5) where the env file doesn't override them.
var defaults = Config{
	DefaultPageSize:        50,
	MaxPageSize:            500,
	DefaultAggregationSize: 50,
}

// LoadFromEnv loads a .env file at path (if present — LoadFromEnv ignores
// the not-exist error godotenv.Load returns for a missing file, so
// production can set env vars directly) and layers environment variables
// over the package defaults.
func LoadFromEnv(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: loading %q: %w", path, err)
		}
	}

	cfg := defaults
	cfg.ClusterEndpoints = map[string]string{}

	if v, ok := os.LookupEnv(envDefaultPageSize); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", envDefaultPageSize, err)
		}
		cfg.DefaultPageSize = n
	}
	if v, ok := os.LookupEnv(envMaxPageSize); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", envMaxPageSize, err)
		}
		cfg.MaxPageSize = n
	}
	if v, ok := os.LookupEnv(envDefaultAggSize); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", envDefaultAggSize, err)
		}
		cfg.DefaultAggregationSize = n
	}
	if v, ok := os.LookupEnv(envFallbackShardValue); ok {
		cfg.FallbackShardRoutingValue = v
	}

	for _, kv := range os.Environ() {
		name, value, ok := splitEnv(kv)
		if !ok || len(name) <= len(envClusterPrefix) || name[:len(envClusterPrefix)] != envClusterPrefix {
			continue
		}
		cluster := name[len(envClusterPrefix):]
		cfg.ClusterEndpoints[cluster] = value
	}

	return cfg, nil
}

func splitEnv(kv string) (name, value string, ok bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return "", "", false
}
