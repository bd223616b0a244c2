package selection

import (
	"bslnav/internal/resolver"
)

// Candidate accessor and feature names, tried in order.
var (
	nameAccessors   = []string{"name", "methodName", "method"}
	nameFeatures    = []string{"name", "methodName"}
	sourceAccessors = []string{"source", "sourceCode", "body", "text"}
	sourceFeatures  = []string{"source", "text", "body"}
	ownerAccessors  = []string{"module", "owner", "parent", "moduleOwner"}
	moduleFeatures  = []string{"name", "fullName", "moduleName"}
	moduleAccessors = []string{"name", "fullName"}
)

// Adapter builds descriptors from structured model elements whose concrete
// types are unknown at compile time. Typed capabilities are consulted first,
// then accessor methods, then schema features.
type Adapter struct {
	// MaxDepth bounds the container walk; zero means resolver.DefaultMaxDepth.
	MaxDepth int
}

// Adapt returns a structured-origin descriptor for element. It reports
// false when no function name can be found; a missing module or body leaves
// the attribute empty.
func (a *Adapter) Adapt(element any) (*Descriptor, bool) {
	if element == nil {
		return nil, false
	}
	functionName := elementName(element)
	if functionName == "" {
		return nil, false
	}
	body := elementSource(element)
	moduleName := a.moduleName(element)
	return newDescriptor(moduleName, functionName, body, OriginStructured), true
}

func elementName(element any) string {
	if n, ok := element.(resolver.Named); ok {
		if s, ok := resolver.Guard(n.Name); ok && s != "" {
			return s
		}
	}
	if s, ok := resolver.TryAccessorString(element, nameAccessors...); ok {
		return s
	}
	s, _ := resolver.TryFeatures(element, nameFeatures...)
	return s
}

func elementSource(element any) string {
	if src, ok := element.(resolver.Sourced); ok {
		if s, ok := resolver.Guard(src.Source); ok && s != "" {
			return s
		}
	}
	if s, ok := resolver.TryAccessorString(element, sourceAccessors...); ok {
		return s
	}
	s, _ := resolver.TryFeatures(element, sourceFeatures...)
	return s
}

// moduleName looks for the owning module first through the element's owner
// and then through its chain of containers.
func (a *Adapter) moduleName(element any) string {
	if owner, ok := ownerOf(element); ok {
		if s := ownerName(owner); s != "" {
			return s
		}
	}

	var found string
	resolver.WalkContainers(element, a.MaxDepth, func(ancestor any) bool {
		if s, ok := resolver.TryFeatures(ancestor, moduleFeatures...); ok {
			found = s
			return true
		}
		return false
	})
	return found
}

func ownerOf(element any) (any, bool) {
	if o, ok := element.(resolver.Owned); ok {
		if owner, ok := resolver.Guard(o.Owner); ok && owner != nil {
			return owner, true
		}
	}
	if owner, ok := resolver.TryAccessors(element, ownerAccessors...); ok {
		return owner, true
	}
	for _, name := range ownerAccessors {
		if owner, ok := resolver.FeatureValue(element, name); ok && owner != nil {
			return owner, true
		}
	}
	return nil, false
}

// ownerName prefers the owner's schema features and falls back to its
// accessors. An owner given as a plain string is taken as the name itself.
func ownerName(owner any) string {
	if s, ok := owner.(string); ok {
		return s
	}
	if resolver.HasSchema(owner) {
		if s, ok := resolver.TryFeatures(owner, moduleFeatures...); ok {
			return s
		}
	}
	if n, ok := owner.(resolver.Named); ok {
		if s, ok := resolver.Guard(n.Name); ok && s != "" {
			return s
		}
	}
	s, _ := resolver.TryAccessorString(owner, moduleAccessors...)
	return s
}
