package resolver

import "reflect"

// DefaultMaxDepth bounds containment walks.
const DefaultMaxDepth = 64

// ContainerFeature is the property-map key holding a parent object.
const ContainerFeature = "container"

// ContainerOf returns the parent of obj, through Contained or the
// ContainerFeature of a property map.
func ContainerOf(obj any) (parent any, ok bool) {
	defer func() {
		if recover() != nil {
			parent, ok = nil, false
		}
	}()

	if c, is := obj.(Contained); is {
		parent = c.Container()
		return parent, !isNil(parent)
	}
	return FeatureValue(obj, ContainerFeature)
}

// WalkContainers visits the ancestors of obj, nearest first, until visit
// returns true, the root is reached, an ancestor repeats, or maxDepth
// ancestors were visited. It reports whether visit returned true.
func WalkContainers(obj any, maxDepth int, visit func(ancestor any) bool) bool {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	seen := visitSet{}
	seen.add(obj)

	current := obj
	for depth := 0; depth < maxDepth; depth++ {
		parent, ok := ContainerOf(current)
		if !ok {
			return false
		}
		if !seen.add(parent) {
			return false
		}
		if visit(parent) {
			return true
		}
		current = parent
	}
	return false
}

type identity struct {
	t reflect.Type
	p uintptr
}

// visitSet tracks reference-typed objects by address. Values of other kinds
// cannot close a cycle on their own, so the depth bound covers them.
type visitSet map[identity]struct{}

func (s visitSet) add(obj any) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
	default:
		return true
	}
	id := identity{t: v.Type(), p: v.Pointer()}
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}
