package core

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
)

// moduleIDPattern is "<namespace>.<name>" or a bare name, lowercase.
var moduleIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)?$`)

// registry is the process-wide table of compiled-in modules.
type registry struct {
	mu    sync.RWMutex
	infos map[ModuleID]ModuleInfo
}

var modules = &registry{infos: make(map[ModuleID]ModuleInfo)}

// RegisterModule adds a compiled-in module. It is meant for init functions
// and panics on an invalid or duplicate ID.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if !moduleIDPattern.MatchString(string(info.ID)) {
		panic(fmt.Sprintf("core: invalid module ID %q", info.ID))
	}
	if info.New == nil {
		panic(fmt.Sprintf("core: module %s has no constructor", info.ID))
	}

	modules.mu.Lock()
	defer modules.mu.Unlock()

	if _, dup := modules.infos[info.ID]; dup {
		panic(fmt.Sprintf("core: module %s registered twice", info.ID))
	}
	modules.infos[info.ID] = info
}

// GetModule looks up a compiled-in module by ID.
func GetModule(id string) (ModuleInfo, bool) {
	modules.mu.RLock()
	defer modules.mu.RUnlock()
	info, ok := modules.infos[ModuleID(id)]
	return info, ok
}

// GetModules lists compiled-in modules sorted by ID.
func GetModules() []ModuleInfo {
	return modules.filter(func(ModuleID) bool { return true })
}

// GetModulesByNamespace lists the modules of one namespace, e.g. "store"
// yields store.memory and store.sqlite.
func GetModulesByNamespace(namespace string) []ModuleInfo {
	prefix := namespace + "."
	return modules.filter(func(id ModuleID) bool {
		return strings.HasPrefix(string(id), prefix)
	})
}

// Namespace returns the part of id before the first dot.
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

func (r *registry) filter(keep func(ModuleID) bool) []ModuleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ModuleInfo
	for id, info := range r.infos {
		if keep(id) {
			out = append(out, info)
		}
	}
	slices.SortFunc(out, func(a, b ModuleInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	modules.mu.Lock()
	defer modules.mu.Unlock()
	modules.infos = make(map[ModuleID]ModuleInfo)
}
