// Package registry provides a global registry for policy factories.
// Policies register themselves in init() functions, allowing the CLI and the
// terminal front end to discover and instantiate them by id.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vovakirdan/flappy-rl/internal/games/flappy"
)

// ErrUnknownPolicy is returned by Create for ids nobody registered.
var ErrUnknownPolicy = errors.New("registry: unknown policy")

// Policy maps an observation to an action. Implementations must not retain
// the observation.
type Policy interface {
	// ID returns a unique identifier for this policy (e.g. "hover").
	// Used for CLI flags and stored runs.
	ID() string

	// Description returns a one-line summary for listings.
	Description() string

	// Act picks the action for the given observation.
	Act(obs flappy.Observation) flappy.Action
}

// PolicyInfo contains metadata about a registered policy.
type PolicyInfo struct {
	ID          string
	Description string
}

// Factory creates a new policy instance. Stochastic policies draw from a
// source seeded with seed.
type Factory func(seed int64) Policy

var (
	factories    = make(map[string]Factory)
	descriptions = make(map[string]string)
	mu           sync.RWMutex
)

// Register adds a policy factory to the registry.
// Typically called from an init() function.
// Panics if a policy with the same ID is already registered.
func Register(id string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[id]; exists {
		panic(fmt.Sprintf("registry: policy %q already registered", id))
	}

	factories[id] = f

	// Get description by creating a temporary instance
	descriptions[id] = f(0).Description()
}

// List returns information about all registered policies, sorted by ID.
func List() []PolicyInfo {
	mu.RLock()
	defer mu.RUnlock()

	result := make([]PolicyInfo, 0, len(factories))
	for id := range factories {
		result = append(result, PolicyInfo{
			ID:          id,
			Description: descriptions[id],
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result
}

// Create instantiates a new policy by its ID.
func Create(id string, seed int64) (Policy, error) {
	mu.RLock()
	defer mu.RUnlock()

	f, ok := factories[id]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownPolicy, id)
	}

	return f(seed), nil
}

// Exists checks if a policy with the given ID is registered.
func Exists(id string) bool {
	mu.RLock()
	defer mu.RUnlock()

	_, ok := factories[id]
	return ok
}
