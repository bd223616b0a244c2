// Package selection turns a host selection into a function descriptor: the
// module, function name, body text and configuration of the method the user
// is pointing at.
package selection

import (
	"errors"

	"bslnav/internal/parser"
)

var (
	// ErrUnresolvableSelection is returned when no function could be
	// determined from the selection.
	ErrUnresolvableSelection = errors.New("could not determine function info")
	// ErrIncompleteDescriptor accompanies a descriptor that lacks a module
	// or function name.
	ErrIncompleteDescriptor = errors.New("function descriptor is incomplete")
	// ErrDocumentAccess wraps a failed read of the editor buffer.
	ErrDocumentAccess = errors.New("document access failed")
)

// Origin records which resolution path produced a descriptor.
type Origin string

const (
	OriginStructured Origin = "structured"
	OriginText       Origin = "text"
)

// Descriptor identifies a function. An empty string means the attribute is
// absent.
type Descriptor struct {
	ModuleName    string         `json:"module_name,omitempty"`
	FunctionName  string         `json:"function_name,omitempty"`
	FunctionBody  string         `json:"function_body,omitempty"`
	Configuration string         `json:"configuration,omitempty"`
	Origin        Origin         `json:"origin"`
	Region        *parser.Region `json:"region,omitempty"`
}

// Usable reports whether both the module and function names are present.
func (d *Descriptor) Usable() bool {
	return d != nil && d.ModuleName != "" && d.FunctionName != ""
}

// QualifiedName returns "module.function", or just the function name when
// the module is absent.
func (d *Descriptor) QualifiedName() string {
	if d == nil {
		return ""
	}
	if d.ModuleName == "" {
		return d.FunctionName
	}
	return d.ModuleName + "." + d.FunctionName
}

func newDescriptor(moduleName, functionName, body string, origin Origin) *Descriptor {
	return &Descriptor{
		ModuleName:    moduleName,
		FunctionName:  functionName,
		FunctionBody:  body,
		Configuration: ConfigurationOf(moduleName),
		Origin:        origin,
	}
}
