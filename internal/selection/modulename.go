package selection

import (
	"path"
	"strings"
)

// ModuleNameFromPath derives a dotted module name from a project-relative
// file path: the extension is dropped and path separators become dots, so
// "CommonModules/Foo/Ext/Module.bsl" yields "CommonModules.Foo.Ext.Module".
func ModuleNameFromPath(relPath string) string {
	p := strings.ReplaceAll(strings.TrimSpace(relPath), "\\", "/")
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	p = strings.TrimSuffix(p, path.Ext(p))
	return strings.ReplaceAll(p, "/", ".")
}

// ConfigurationOf returns the part of a module name before its first dot.
// A name without a dot, or one starting with a dot, is returned whole.
func ConfigurationOf(moduleName string) string {
	if idx := strings.Index(moduleName, "."); idx > 0 {
		return moduleName[:idx]
	}
	return moduleName
}
