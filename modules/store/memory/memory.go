// Package memory registers the in-memory store as the "store.memory"
// server module, for demos and tests that need no database file.
package memory

import (
	"github.com/flemzord/coffee/internal/core"
	"github.com/flemzord/coffee/internal/store"
)

func init() {
	core.RegisterModule(&Module{})
}

var _ core.Provisioner = (*Module)(nil)

// Module publishes a store.InMemoryStore. Data is lost on shutdown.
type Module struct {
	store *store.InMemoryStore
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.memory",
		New: func() core.Module { return &Module{} },
	}
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.store = store.NewInMemoryStore()
	ctx.RegisterService(store.ServiceName, m.store)
	ctx.Logger.Warn("in-memory store provisioned, data will not survive a restart")
	return nil
}
