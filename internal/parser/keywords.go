package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind classifies a method header. Each kind has its own terminator keywords
// and a terminator of the other kind never closes it.
type Kind string

const (
	KindProcedure Kind = "procedure"
	KindFunction  Kind = "function"
)

// KeywordSet lists the spellings recognised by the scanner. Matching is
// case-insensitive.
type KeywordSet struct {
	Procedure        []string
	Function         []string
	EndProcedure     []string
	EndFunction      []string
	Modifiers        []string // optional words allowed before the keyword, e.g. Async
	Export           []string
	AnnotationMarker string // first character of annotation and directive lines
}

// DefaultKeywords returns the Russian and English spellings of the
// 1C:Enterprise language.
func DefaultKeywords() KeywordSet {
	return KeywordSet{
		Procedure:        []string{"Процедура", "Procedure"},
		Function:         []string{"Функция", "Function"},
		EndProcedure:     []string{"КонецПроцедуры", "EndProcedure"},
		EndFunction:      []string{"КонецФункции", "EndFunction"},
		Modifiers:        []string{"Асинх", "Async"},
		Export:           []string{"Экспорт", "Export"},
		AnnotationMarker: "&",
	}
}

// Merge returns ks extended with the spellings of extra. Duplicates are
// dropped case-insensitively; a non-empty extra marker replaces the current one.
func (ks KeywordSet) Merge(extra KeywordSet) KeywordSet {
	out := KeywordSet{
		Procedure:        mergeWords(ks.Procedure, extra.Procedure),
		Function:         mergeWords(ks.Function, extra.Function),
		EndProcedure:     mergeWords(ks.EndProcedure, extra.EndProcedure),
		EndFunction:      mergeWords(ks.EndFunction, extra.EndFunction),
		Modifiers:        mergeWords(ks.Modifiers, extra.Modifiers),
		Export:           mergeWords(ks.Export, extra.Export),
		AnnotationMarker: ks.AnnotationMarker,
	}
	if marker := strings.TrimSpace(extra.AnnotationMarker); marker != "" {
		out.AnnotationMarker = marker
	}
	return out
}

func (ks KeywordSet) validate() error {
	switch {
	case len(ks.Procedure) == 0:
		return fmt.Errorf("keyword set has no procedure keywords")
	case len(ks.Function) == 0:
		return fmt.Errorf("keyword set has no function keywords")
	case len(ks.EndProcedure) == 0:
		return fmt.Errorf("keyword set has no procedure terminators")
	case len(ks.EndFunction) == 0:
		return fmt.Errorf("keyword set has no function terminators")
	}
	return nil
}

func mergeWords(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, word := range list {
			word = strings.TrimSpace(word)
			if word == "" || containsFold(out, word) {
				continue
			}
			out = append(out, word)
		}
	}
	return out
}

func containsFold(words []string, word string) bool {
	for _, w := range words {
		if strings.EqualFold(w, word) {
			return true
		}
	}
	return false
}

// identifierChars are the characters allowed in a method name.
const identifierChars = `[\p{L}\p{N}_.]+`

// wordEnd is a word boundary that also understands non-ASCII letters; the
// regexp \b assertion only knows ASCII word characters.
const wordEnd = `(?:[^\p{L}\p{N}_]|$)`

type patterns struct {
	header       *regexp.Regexp
	endProcedure *regexp.Regexp
	endFunction  *regexp.Regexp
	export       *regexp.Regexp
	functions    []string
	marker       string
}

func compilePatterns(ks KeywordSet) (*patterns, error) {
	if err := ks.validate(); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(`(?i)^`)
	if ks.AnnotationMarker != "" {
		b.WriteString(`(?:` + regexp.QuoteMeta(ks.AnnotationMarker) + `.*\s+)*`)
	}
	b.WriteString(`\s*`)
	if len(ks.Modifiers) > 0 {
		b.WriteString(`(?:(?:` + alternation(ks.Modifiers) + `)\s+)?`)
	}
	keywords := append(append([]string(nil), ks.Procedure...), ks.Function...)
	b.WriteString(`(` + alternation(keywords) + `)\s+(` + identifierChars + `)`)

	header, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("failed to compile header pattern: %w", err)
	}

	p := &patterns{
		header:       header,
		endProcedure: regexp.MustCompile(terminatorPattern(ks.EndProcedure)),
		endFunction:  regexp.MustCompile(terminatorPattern(ks.EndFunction)),
		functions:    ks.Function,
		marker:       ks.AnnotationMarker,
	}
	if len(ks.Export) > 0 {
		p.export = regexp.MustCompile(`(?i)\)\s*(?:` + alternation(ks.Export) + `)` + wordEnd)
	}
	return p, nil
}

func terminatorPattern(words []string) string {
	return `(?i)^\s*(?:` + alternation(words) + `)` + wordEnd
}

func alternation(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	return strings.Join(quoted, "|")
}

func (p *patterns) classify(keyword string) Kind {
	if containsFold(p.functions, keyword) {
		return KindFunction
	}
	return KindProcedure
}

func (p *patterns) terminator(kind Kind) *regexp.Regexp {
	if kind == KindFunction {
		return p.endFunction
	}
	return p.endProcedure
}

func (p *patterns) isAnnotation(trimmed string) bool {
	return p.marker != "" && strings.HasPrefix(trimmed, p.marker)
}

func (p *patterns) isTerminator(trimmed string) bool {
	return p.endProcedure.MatchString(trimmed) || p.endFunction.MatchString(trimmed)
}
