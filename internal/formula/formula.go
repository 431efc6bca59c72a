// Package formula holds the per-scope formula registries and the seed
// catalog of formulas the engine resolves by name (spec §4.4, §6 "the
// engine consults four per-scope registries ... that are static at process
// start"; catalog entries per SPEC_FULL.md §4.4A).
package formula

import (
	"context"
	"fmt"

	"github.com/noahsaso/argus-sub001/internal/query"
)

// Scope names the four formula domains the engine supports.
type Scope string

const (
	ScopeAccount   Scope = "account"
	ScopeContract  Scope = "contract"
	ScopeValidator Scope = "validator"
	ScopeGeneric   Scope = "generic"
)

// Func computes a named formula's value against a computation and
// caller-supplied args (already parsed from the HTTP layer's query
// string).
type Func func(ctx context.Context, c *query.Computation, address string, args map[string]string) (any, error)

// Formula pairs a computation function with its caching behavior.
type Formula struct {
	Name    string
	Scope   Scope
	Dynamic bool // spec §4.4 "Dynamic formulas": never cached by output alone.
	Compute Func
}

// Registry is a static, per-scope lookup table built at process start.
type Registry struct {
	scope    Scope
	formulas map[string]Formula
}

// NewRegistry constructs an empty registry for scope.
func NewRegistry(scope Scope) *Registry {
	return &Registry{scope: scope, formulas: make(map[string]Formula)}
}

// Register adds f to the registry. f.Scope must match the registry's
// scope.
func (r *Registry) Register(f Formula) error {
	if f.Scope != r.scope {
		return fmt.Errorf("formula: %s is scoped %s, cannot register in %s registry", f.Name, f.Scope, r.scope)
	}
	r.formulas[f.Name] = f
	return nil
}

// Resolve looks up a formula by name.
func (r *Registry) Resolve(name string) (Formula, bool) {
	f, ok := r.formulas[name]
	return f, ok
}

// Registries holds the engine's four static per-scope registries (spec §6).
type Registries struct {
	Account   *Registry
	Contract  *Registry
	Validator *Registry
	Generic   *Registry
}

// Resolve looks up a formula by scope and name.
func (rs Registries) Resolve(scope Scope, name string) (Formula, bool) {
	var r *Registry
	switch scope {
	case ScopeAccount:
		r = rs.Account
	case ScopeContract:
		r = rs.Contract
	case ScopeValidator:
		r = rs.Validator
	case ScopeGeneric:
		r = rs.Generic
	default:
		return Formula{}, false
	}
	if r == nil {
		return Formula{}, false
	}
	return r.Resolve(name)
}

// NewDefaultRegistries builds the engine's registries seeded with the
// catalog in catalog.go.
func NewDefaultRegistries() (Registries, error) {
	rs := Registries{
		Account:   NewRegistry(ScopeAccount),
		Contract:  NewRegistry(ScopeContract),
		Validator: NewRegistry(ScopeValidator),
		Generic:   NewRegistry(ScopeGeneric),
	}
	for _, f := range SeedCatalog() {
		var r *Registry
		switch f.Scope {
		case ScopeAccount:
			r = rs.Account
		case ScopeContract:
			r = rs.Contract
		case ScopeValidator:
			r = rs.Validator
		case ScopeGeneric:
			r = rs.Generic
		}
		if err := r.Register(f); err != nil {
			return Registries{}, err
		}
	}
	return rs, nil
}
