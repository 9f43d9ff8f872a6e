package refdata

import (
	"context"
	"fmt"
	"sync"
)

// Static serves reference values from in-memory sets. It backs dry runs
// and tests where no lookup database is available.
type Static struct {
	mu     sync.RWMutex
	tables map[string]map[string]struct{}
}

// NewStatic returns an empty provider.
func NewStatic() *Static {
	return &Static{tables: make(map[string]map[string]struct{})}
}

// NewDemoStatic returns a provider seeded with the demo product master, so
// dry runs against the sample mapping config resolve lookups offline.
func NewDemoStatic() *Static {
	s := NewStatic()
	s.Add("ProductMaster", "ProductCode", "PROD-A1", "PROD-B2", "PROD-C3", "PROD-D4")
	return s
}

// Add registers values for table.column, merging with any already present.
func (s *Static) Add(table, column string, values ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := table + "." + column
	set, ok := s.tables[key]
	if !ok {
		set = make(map[string]struct{}, len(values))
		s.tables[key] = set
	}
	for _, v := range values {
		set[v] = struct{}{}
	}
}

// ReferenceValues returns a copy of the set for table.column. An
// unregistered pair is an error, surfacing per record the same way a
// failed database query would.
func (s *Static) ReferenceValues(_ context.Context, table, column string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.tables[table+"."+column]
	if !ok {
		return nil, fmt.Errorf("no reference data registered for %s.%s", table, column)
	}

	out := make(map[string]struct{}, len(set))
	for v := range set {
		out[v] = struct{}{}
	}
	return out, nil
}
