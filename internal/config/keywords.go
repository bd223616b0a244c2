package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bslnav/internal/parser"
)

// KeywordFile is the YAML layout of extra method keywords.
//
//	procedure: [Процедура]
//	function: [Функция]
//	end_procedure: [КонецПроцедуры]
//	end_function: [КонецФункции]
//	modifiers: [Асинх]
//	export: [Экспорт]
//	annotation_marker: "&"
type KeywordFile struct {
	Procedure        []string `yaml:"procedure"`
	Function         []string `yaml:"function"`
	EndProcedure     []string `yaml:"end_procedure"`
	EndFunction      []string `yaml:"end_function"`
	Modifiers        []string `yaml:"modifiers"`
	Export           []string `yaml:"export"`
	AnnotationMarker string   `yaml:"annotation_marker"`
}

func (f KeywordFile) keywordSet() parser.KeywordSet {
	return parser.KeywordSet{
		Procedure:        f.Procedure,
		Function:         f.Function,
		EndProcedure:     f.EndProcedure,
		EndFunction:      f.EndFunction,
		Modifiers:        f.Modifiers,
		Export:           f.Export,
		AnnotationMarker: f.AnnotationMarker,
	}
}

// LoadKeywords reads a keyword YAML file and merges it onto the built-in
// spellings. An empty path returns the defaults.
func LoadKeywords(path string) (parser.KeywordSet, error) {
	defaults := parser.DefaultKeywords()
	if path == "" {
		return defaults, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return parser.KeywordSet{}, fmt.Errorf("read keywords: %w", err)
	}
	var f KeywordFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return parser.KeywordSet{}, fmt.Errorf("parse keywords %s: %w", path, err)
	}
	return defaults.Merge(f.keywordSet()), nil
}

// Locator builds the method locator from BSLNAV_KEYWORDS, or the defaults
// when it is unset.
func Locator() (*parser.Locator, error) {
	ks, err := LoadKeywords(Get("BSLNAV_KEYWORDS"))
	if err != nil {
		return nil, err
	}
	return parser.NewLocator(ks)
}
