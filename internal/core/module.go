// Package core provides the module system foundation for emotewall.
// Catalog providers, chat channels, storage backends and the HTTP gateway
// are all modules registered from init() and loaded from configuration.
package core

import "strings"

// ModuleID is a namespaced module identifier, e.g. "catalog.bttv".
type ModuleID string

// Namespace returns the part of the ID before the first dot.
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	// ID uniquely identifies the module.
	ID ModuleID

	// New returns a fresh, unconfigured instance of the module.
	New func() Module
}

// Module is implemented by every pluggable component.
type Module interface {
	ModuleInfo() ModuleInfo
}
