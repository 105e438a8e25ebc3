// Package passes resolves the external references embedded in stored markup
// at send time.
package passes

import (
	"context"
	"fmt"
)

// Pass rewrites one class of embedded token. Apply never fails: tokens it
// cannot resolve are left in place.
type Pass interface {
	Name() string
	Apply(ctx context.Context, markup string) string
}

// Registry keeps a mapping from pass names to their implementations.
type Registry struct {
	passes map[string]Pass
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{passes: map[string]Pass{}}
}

// Register adds or replaces a pass implementation.
func (r *Registry) Register(pass Pass) {
	if r.passes == nil {
		r.passes = map[string]Pass{}
	}
	r.passes[pass.Name()] = pass
}

// Resolve returns a pass by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Pass, error) {
	if pass, ok := r.passes[name]; ok {
		return pass, nil
	}
	return nil, fmt.Errorf("pass %s is not registered", name)
}
