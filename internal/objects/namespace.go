package objects

import (
	"sort"
	"sync"
)

// Namespace is a layer of name bindings over an optional parent. Lookups
// walk outwards; bindings always go to the innermost layer.
type Namespace struct {
	parent *Namespace

	mu   sync.RWMutex
	vars map[string]Instance
}

// NewNamespace creates a layer over parent, which may be nil.
func NewNamespace(parent *Namespace) *Namespace {
	return &Namespace{parent: parent, vars: make(map[string]Instance)}
}

// Parent returns the enclosing layer.
func (n *Namespace) Parent() *Namespace { return n.parent }

// Child creates a new layer over n.
func (n *Namespace) Child() *Namespace { return NewNamespace(n) }

// Get resolves name in n or its ancestors.
func (n *Namespace) Get(name string) (Instance, bool) {
	for cur := n; cur != nil; cur = cur.parent {
		if v, ok := cur.GetLocal(name); ok {
			return v, true
		}
	}
	return nil, false
}

// GetLocal resolves name in n only.
func (n *Namespace) GetLocal(name string) (Instance, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := n.vars[name]
	return v, ok
}

// Set binds name in n.
func (n *Namespace) Set(name string, v Instance) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.vars[name] = v
}

// Names returns every visible name, sorted.
func (n *Namespace) Names() []string {
	seen := map[string]bool{}
	for cur := n; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		for k := range cur.vars {
			seen[k] = true
		}
		cur.mu.RUnlock()
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
