// Package locations resolves the municipalities neighboring a city. The
// resolvers here satisfy valuation.NeighborResolver and can be stacked:
// a static adjacency table, a model-backed lookup, a TTL cache and a chain
// that tries each in turn.
package locations

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// StaticResolver answers from an in-memory adjacency table. Adjacency is
// symmetric: if A lists B then B also neighbors A.
type StaticResolver struct {
	// state -> lower(city) -> neighbor display names
	adjacency map[string]map[string][]string
}

// NewStaticResolver builds a resolver from {"UF": {"City": ["Neighbor", ...]}}
func NewStaticResolver(table map[string]map[string][]string) *StaticResolver {
	r := &StaticResolver{adjacency: make(map[string]map[string][]string)}
	for state, cities := range table {
		for city, neighbors := range cities {
			for _, n := range neighbors {
				r.link(state, city, n)
				r.link(state, n, city)
			}
		}
	}
	for _, cities := range r.adjacency {
		for key := range cities {
			sort.Strings(cities[key])
		}
	}
	return r
}

// LoadStaticResolver reads the adjacency table from a JSON file
func LoadStaticResolver(path string) (*StaticResolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read neighbors file: %w", err)
	}
	var table map[string]map[string][]string
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse neighbors file: %w", err)
	}
	return NewStaticResolver(table), nil
}

// NeighboringLocations returns the known neighbors of city, or an empty list
func (r *StaticResolver) NeighboringLocations(ctx context.Context, city, state string) ([]string, error) {
	cities := r.adjacency[strings.ToUpper(strings.TrimSpace(state))]
	neighbors := cities[strings.ToLower(strings.TrimSpace(city))]
	out := make([]string, len(neighbors))
	copy(out, neighbors)
	return out, nil
}

func (r *StaticResolver) link(state, city, neighbor string) {
	state = strings.ToUpper(strings.TrimSpace(state))
	city = strings.TrimSpace(city)
	neighbor = strings.TrimSpace(neighbor)
	if city == "" || neighbor == "" || strings.EqualFold(city, neighbor) {
		return
	}

	cities, ok := r.adjacency[state]
	if !ok {
		cities = make(map[string][]string)
		r.adjacency[state] = cities
	}
	key := strings.ToLower(city)
	for _, existing := range cities[key] {
		if strings.EqualFold(existing, neighbor) {
			return
		}
	}
	cities[key] = append(cities[key], neighbor)
}
