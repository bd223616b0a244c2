// Package resolver reads semantic attributes from objects whose concrete
// shape is not known in advance.
//
// Selection elements arrive from several object models. Known models
// implement the small capability interfaces below (Named, Sourced, Owned,
// Contained, Schema). Anything else is probed: TryAccessors calls candidate
// zero-argument methods by name in order, and TryFeatures reads candidate
// fields from a declared schema or a generic property map. Every probe is
// total: missing methods, failing calls and panics all count as "no value".
package resolver

// Named is implemented by elements that know their own name.
type Named interface {
	Name() string
}

// Sourced is implemented by elements that carry their source text.
type Sourced interface {
	Source() string
}

// Owned is implemented by elements that can return the object owning them,
// typically a module. A nil owner means none.
type Owned interface {
	Owner() any
}

// Contained is implemented by elements of a containment tree. Container
// returns nil at the root.
type Contained interface {
	Container() any
}

// Schema is implemented by model objects that expose named structural
// features. declared reports whether the object's schema has a feature of
// that name, independently of its current value.
type Schema interface {
	Feature(name string) (value any, declared bool)
}
