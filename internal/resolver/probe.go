package resolver

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// TryAccessors calls the accessor for each candidate name in order and
// returns the first non-empty result. A candidate "name" is looked up as the
// methods Name and GetName. Accessors must take no arguments; a second result
// of type error or bool is honoured (non-nil error or false means failure).
// Missing methods, failed calls and panics move on to the next candidate.
func TryAccessors(obj any, names ...string) (any, bool) {
	if isNil(obj) {
		return nil, false
	}
	v := reflect.ValueOf(obj)
	for _, name := range names {
		for _, method := range accessorNames(name) {
			if out, ok := callAccessor(v, method); ok {
				return out, true
			}
		}
	}
	return nil, false
}

// TryAccessorString is TryAccessors keeping only results whose string form
// is non-empty.
func TryAccessorString(obj any, names ...string) (string, bool) {
	for _, name := range names {
		value, ok := TryAccessors(obj, name)
		if !ok {
			continue
		}
		if s := Stringify(value); s != "" {
			return s, true
		}
	}
	return "", false
}

// TryFeatures returns the string form of the first candidate feature that
// the object declares and whose value is non-empty.
func TryFeatures(obj any, names ...string) (string, bool) {
	for _, name := range names {
		value, ok := FeatureValue(obj, name)
		if !ok {
			continue
		}
		if s := Stringify(value); s != "" {
			return s, true
		}
	}
	return "", false
}

// HasSchema reports whether obj exposes named features, either through
// Schema or as a generic property map.
func HasSchema(obj any) bool {
	switch obj.(type) {
	case Schema, map[string]any, map[string]string:
		return true
	}
	return false
}

// FeatureValue reads a single feature. ok is false when the feature is not
// declared, holds nil, or reading it panicked.
func FeatureValue(obj any, name string) (value any, ok bool) {
	defer func() {
		if recover() != nil {
			value, ok = nil, false
		}
	}()

	switch o := obj.(type) {
	case Schema:
		v, declared := o.Feature(name)
		if !declared || isNil(v) {
			return nil, false
		}
		return v, true
	case map[string]any:
		v, present := o[name]
		if !present || isNil(v) {
			return nil, false
		}
		return v, true
	case map[string]string:
		v, present := o[name]
		if !present {
			return nil, false
		}
		return v, true
	}
	return nil, false
}

// Stringify renders a probed value the way the resolver compares it.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case []byte:
		return string(v)
	case fmt.Stringer:
		if isNil(v) {
			return ""
		}
		return safeString(v)
	}
	return fmt.Sprint(value)
}

func safeString(s fmt.Stringer) (out string) {
	defer func() {
		if recover() != nil {
			out = ""
		}
	}()
	return s.String()
}

func accessorNames(name string) []string {
	if name == "" {
		return nil
	}
	r, size := utf8.DecodeRuneInString(name)
	exported := string(unicode.ToUpper(r)) + name[size:]
	if strings.HasPrefix(exported, "Get") && len(exported) > 3 {
		return []string{exported}
	}
	return []string{exported, "Get" + exported}
}

func callAccessor(v reflect.Value, name string) (out any, ok bool) {
	method := v.MethodByName(name)
	if !method.IsValid() {
		return nil, false
	}
	t := method.Type()
	if t.NumIn() != 0 || t.NumOut() == 0 || t.NumOut() > 2 {
		return nil, false
	}

	defer func() {
		if recover() != nil {
			out, ok = nil, false
		}
	}()

	results := method.Call(nil)
	if len(results) == 2 && !secondResultOK(results[1]) {
		return nil, false
	}
	if isEmptyValue(results[0]) {
		return nil, false
	}
	return results[0].Interface(), true
}

func secondResultOK(second reflect.Value) bool {
	switch {
	case second.Type().Implements(errorType):
		switch second.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return second.IsNil()
		}
		return false
	case second.Kind() == reflect.Bool:
		return second.Bool()
	}
	return false
}

func isEmptyValue(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return true
		}
		return isEmptyValue(v.Elem())
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return v.IsNil()
	case reflect.String:
		return v.Len() == 0
	}
	return false
}

func isNil(obj any) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	}
	return false
}

// Guard runs f and reports false instead of propagating a panic. Host
// capability methods go through it so a misbehaving element cannot take
// down the caller.
func Guard[T any](f func() T) (out T, ok bool) {
	defer func() {
		if recover() != nil {
			var zero T
			out, ok = zero, false
		}
	}()
	return f(), true
}
