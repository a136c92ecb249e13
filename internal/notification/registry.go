package notification

import (
	"fmt"
	"sync"
)

var (
	registryMu    sync.RWMutex
	notifierTypes = make(map[string]NotifierType)
)

// Register adds a notifier type to the registry.
// Called from init() functions in the packages under internal/notifiers.
func Register(nt NotifierType) {
	registryMu.Lock()
	defer registryMu.Unlock()
	notifierTypes[nt.Name()] = nt
}

// TypeNames returns all registered notifier type names
func TypeNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(notifierTypes))
	for name := range notifierTypes {
		names = append(names, name)
	}
	return names
}

// CreateNotifier creates a notifier instance from type and options
func CreateNotifier(typeName, name string, options map[string]string) (Notifier, error) {
	registryMu.RLock()
	nt, ok := notifierTypes[typeName]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown notifier type: %s (available: %v)", typeName, TypeNames())
	}
	return nt.Create(name, options)
}
