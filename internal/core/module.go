package core

// ModuleID is a dotted, namespaced module identifier such as "store.sqlite".
type ModuleID string

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	// ID is the unique module identifier.
	ID ModuleID

	// New returns a fresh, unconfigured instance of the module.
	New func() Module
}

// Module is implemented by every server component loaded by App.
// Lifecycle hooks are optional and discovered through the interfaces in
// lifecycle.go.
type Module interface {
	ModuleInfo() ModuleInfo
}
