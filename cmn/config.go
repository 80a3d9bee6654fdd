package cmn

import "sync/atomic"

// Config holds the process-wide tunables constructed once at startup, in
// the spirit of the teacher's global-config-owner (cmn.GCO): a single value
// loaded once and read everywhere, with no hot-reload machinery since this
// core has no external config source in scope.
type Config struct {
	// LatticeUnit records the anchor spacing of the reference lattice (§4.A:
	// "anchors are enumerated on integer lattice points spaced by 1 unit").
	// The spatial index does not read it: its scans always step by 1.
	LatticeUnit int
	// WriterLockTimeoutMS bounds how long a request waits to be admitted onto
	// the exclusive writer lock of §5 before failing with Internal (§5
	// "Timeouts are advisory and apply only at request ingress, never
	// mid-mutation").
	WriterLockTimeoutMS int64
	// WorkerPoolSize bounds concurrency of the outermost request handler
	// (§5: "the outermost request handler may run them on a worker pool").
	WorkerPoolSize int
}

func DefaultConfig() *Config {
	return &Config{
		LatticeUnit:         1,
		WriterLockTimeoutMS: 30000,
		WorkerPoolSize:      4,
	}
}

var global atomic.Value

// InitGCO installs the process-wide config, the global-config-owner idiom.
func InitGCO(c *Config) { global.Store(c) }

// GCO returns the current process-wide config, defaulting it if InitGCO was
// never called (keeps package tests self-contained).
func GCO() *Config {
	v := global.Load()
	if v == nil {
		c := DefaultConfig()
		global.Store(c)
		return c
	}
	return v.(*Config)
}
