package config

import "time"

// PoolConfig holds WorkerPool tuning extracted from a Config.
type PoolConfig struct {
	// Workers is the fixed number of worker goroutines the pool runs.
	Workers int
	// MaxIdle bounds how long a worker blocks in popWait before re-checking
	// the running flag.
	MaxIdle time.Duration
}

// DefaultPoolConfig returns the pool defaults used when a key is absent.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers: 4,
		MaxIdle: time.Millisecond,
	}
}

// Pool extracts WorkerPool settings from keys "workers" and "max_idle",
// falling back to def for any key that is missing or malformed.
func (c Config) Pool(def PoolConfig) PoolConfig {
	return PoolConfig{
		Workers: c.Int("workers", def.Workers),
		MaxIdle: c.Duration("max_idle", def.MaxIdle),
	}
}

// GraphConfig holds Graph/Scheduler tuning extracted from a Config.
type GraphConfig struct {
	// RunTimeout bounds how long Graph.Run waits for all nodes to fire
	// before giving up. Zero means wait indefinitely.
	RunTimeout time.Duration
	// Pool is the WorkerPool configuration backing the graph's scheduler.
	Pool PoolConfig
}

// DefaultGraphConfig returns the graph defaults used when a key is absent.
func DefaultGraphConfig() GraphConfig {
	return GraphConfig{
		RunTimeout: 0,
		Pool:       DefaultPoolConfig(),
	}
}

// Graph extracts Graph settings from keys "run_timeout" and "pool",
// falling back to def for any key that is missing or malformed.
func (c Config) Graph(def GraphConfig) GraphConfig {
	poolDef := def.Pool
	if sub := c.Any("pool", nil); sub != nil {
		if m, ok := sub.(map[string]any); ok {
			poolDef = New(m).Pool(def.Pool)
		}
	}
	return GraphConfig{
		RunTimeout: c.Duration("run_timeout", def.RunTimeout),
		Pool:       poolDef,
	}
}
