package core

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

var (
	registry   = make(map[ModuleID]ModuleInfo)
	registryMu sync.RWMutex
)

// RegisterModule adds a module to the registry. IDs are "namespace.name",
// for example "catalog.7tv" or "store.sqlite". It panics on a malformed or
// duplicate ID and is meant to be called from init().
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if err := checkID(info.ID); err != nil {
		panic(err.Error())
	}
	if info.New == nil {
		panic(fmt.Sprintf("module %s: New function must not be nil", info.ID))
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[info.ID]; exists {
		panic(fmt.Sprintf("module already registered: %s", info.ID))
	}
	registry[info.ID] = info
}

func checkID(id ModuleID) error {
	ns, name, ok := strings.Cut(string(id), ".")
	if !ok || ns == "" || name == "" {
		return fmt.Errorf("module ID %q must be namespace.name", id)
	}
	return nil
}

// GetModule returns the ModuleInfo for the given ID, or false if not found.
func GetModule(id string) (ModuleInfo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, ok := registry[ModuleID(id)]
	return info, ok
}

// GetModules returns all registered modules sorted by ID.
func GetModules() []ModuleInfo {
	return filterModules(func(ModuleID) bool { return true })
}

// GetModulesByNamespace returns the modules of one namespace, e.g. every
// "catalog" provider, sorted by ID.
func GetModulesByNamespace(namespace string) []ModuleInfo {
	return filterModules(func(id ModuleID) bool { return id.Namespace() == namespace })
}

// Namespaces returns the distinct namespaces of registered modules.
func Namespaces() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]struct{})
	for id := range registry {
		seen[id.Namespace()] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

func filterModules(keep func(ModuleID) bool) []ModuleInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var out []ModuleInfo
	for id, info := range registry {
		if keep(id) {
			out = append(out, info)
		}
	}
	slices.SortFunc(out, func(a, b ModuleInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[ModuleID]ModuleInfo)
}
