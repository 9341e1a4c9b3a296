package refinery

import (
	"fmt"
	"sort"
	"sync"
)

// RefineryFactory is a function type that creates a refinery instance
type RefineryFactory func(config map[string]interface{}) (BaseRefinery, error)

// Registry manages all available refinery implementations
type Registry struct {
	mu         sync.RWMutex
	refineries map[string]RefineryFactory
	aliases    map[string]string
}

// Global registry instance
var globalRegistry = &Registry{
	refineries: make(map[string]RefineryFactory),
	aliases:    make(map[string]string),
}

// Register adds a refinery to the registry with optional aliases
func Register(version string, factory RefineryFactory, aliases ...string) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	globalRegistry.refineries[version] = factory

	for _, alias := range aliases {
		globalRegistry.aliases[alias] = version
	}
}

// Get retrieves a refinery factory by version or alias
func Get(identifier string) (RefineryFactory, error) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	// Check if it's an alias first
	if version, exists := globalRegistry.aliases[identifier]; exists {
		identifier = version
	}

	factory, exists := globalRegistry.refineries[identifier]
	if !exists {
		return nil, fmt.Errorf("refinery '%s' not found. Available: %v", identifier, globalRegistry.versionsLocked())
	}

	return factory, nil
}

// Create creates a new refinery instance
func Create(identifier string, config map[string]interface{}) (BaseRefinery, error) {
	factory, err := Get(identifier)
	if err != nil {
		return nil, err
	}

	return factory(config)
}

// ListAvailable returns the registered refinery versions, sorted
func ListAvailable() []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	return globalRegistry.versionsLocked()
}

func (r *Registry) versionsLocked() []string {
	versions := make([]string, 0, len(r.refineries))
	for version := range r.refineries {
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return versions
}

// ListAvailableWithMetadata returns detailed information about all refineries
func ListAvailableWithMetadata() map[string]map[string]interface{} {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	result := make(map[string]map[string]interface{})

	for version, factory := range globalRegistry.refineries {
		var versionAliases []string
		for alias, v := range globalRegistry.aliases {
			if v == version {
				versionAliases = append(versionAliases, alias)
			}
		}
		sort.Strings(versionAliases)

		// Emoji loading is irrelevant for metadata
		instance, err := factory(map[string]interface{}{"keep_emojis": false})
		if err != nil {
			result[version] = map[string]interface{}{
				"aliases": versionAliases,
				"error":   err.Error(),
			}
			continue
		}

		result[version] = map[string]interface{}{
			"name":        instance.GetName(),
			"description": instance.GetDescription(),
			"aliases":     versionAliases,
			"steps":       instance.GetPipelineSteps(),
			"defaults":    instance.GetDefaultConfig(),
		}
	}

	return result
}

// init registers the default refineries
func init() {
	Register("v1", func(config map[string]interface{}) (BaseRefinery, error) {
		r, err := NewRefineryV1Arabic(config)
		if err != nil {
			return nil, err
		}
		return r, nil
	}, "arabic", "ar", "arabert")
}
