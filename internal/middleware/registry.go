package middleware

import (
	"io"
	"os"
	"strings"
	"sync"
)

// DisabledEnv lists middleware ids, comma separated, left out of chains built
// from the registry.
const DisabledEnv = "WASSISTANT_DISABLED_MIDDLEWARES"

var (
	registryMu sync.Mutex
	registry   []Middleware
)

// Register is called by middleware packages, usually from init.
func Register(m Middleware) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, m)
}

func Registered() []Middleware {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]Middleware, len(registry))
	copy(out, registry)
	return out
}

// NewChainFromRegistry builds a chain from every registered middleware not
// named in DisabledEnv. It returns nil when nothing is left. A non-nil
// debugWriter receives JSONL dispatch records.
func NewChainFromRegistry(debugWriter io.Writer) *Chain {
	mws := filterDisabled(Registered(), os.Getenv(DisabledEnv))
	if len(mws) == 0 {
		return nil
	}
	c := NewChain(mws...)
	if debugWriter != nil {
		c.SetDebugWriter(debugWriter)
	}
	return c
}

func filterDisabled(mws []Middleware, disabled string) []Middleware {
	if strings.TrimSpace(disabled) == "" {
		return mws
	}
	off := make(map[string]struct{})
	for _, id := range strings.Split(disabled, ",") {
		off[strings.TrimSpace(id)] = struct{}{}
	}
	kept := make([]Middleware, 0, len(mws))
	for _, mw := range mws {
		if _, ok := off[mw.ID()]; !ok {
			kept = append(kept, mw)
		}
	}
	return kept
}
