// Package analysis turns text into the terms a text mapper indexes and a
// text condition searches for.
package analysis

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/colindex/colindex/colindex/errs"
)

// Analyzer converts a text value into an ordered list of terms.
// Implementations are immutable and safe for concurrent use.
type Analyzer interface {
	Name() string
	Analyze(text string) []string
}

type tokenizerKind int

const (
	tokenizeWords      tokenizerKind = iota // letters and digits
	tokenizeLetters                         // letters only
	tokenizeWhitespace                      // split on white space
	tokenizeNone                            // whole input is one term
)

// pipeline is a tokenizer followed by an optional fold, a stop filter and a
// stemmer, in that order.
type pipeline struct {
	name      string
	tokenizer tokenizerKind
	normalize bool
	fold      bool
	stopwords map[string]struct{}
	language  string
}

func (p *pipeline) Name() string { return p.name }

func (p *pipeline) Analyze(text string) []string {
	if p.normalize {
		text = norm.NFKC.String(text)
	}
	var tokens []string
	switch p.tokenizer {
	case tokenizeNone:
		if text == "" {
			return nil
		}
		return []string{text}
	case tokenizeWhitespace:
		tokens = strings.Fields(text)
	case tokenizeLetters:
		tokens = strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) })
	default:
		tokens = strings.FieldsFunc(text, func(r rune) bool {
			return !(unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r))
		})
	}

	var caser cases.Caser
	if p.fold {
		caser = cases.Fold()
	}
	out := tokens[:0]
	for _, tok := range tokens {
		if p.fold {
			tok = caser.String(tok)
		}
		if _, stop := p.stopwords[tok]; stop {
			continue
		}
		if p.language != "" {
			if stemmed, err := snowball.Stem(tok, p.language, true); err == nil && stemmed != "" {
				tok = stemmed
			}
		}
		out = append(out, tok)
	}
	return out
}

// Config describes a custom analyzer declared in a schema.
type Config struct {
	Type      string   `yaml:"type" json:"type"`
	Language  string   `yaml:"language,omitempty" json:"language,omitempty"`
	Stopwords []string `yaml:"stopwords,omitempty" json:"stopwords,omitempty"`
}

// Build creates the analyzer described by cfg and registers it under name.
// Type "snowball" requires a supported language; any prebuilt analyzer name
// is also accepted as a type, optionally with extra stop words.
func Build(name string, cfg Config) (Analyzer, error) {
	switch strings.ToLower(cfg.Type) {
	case "snowball":
		lang := strings.ToLower(cfg.Language)
		if !SupportsLanguage(lang) {
			return nil, errs.Configuration("Analyzer '%s' uses unsupported snowball language '%s'", name, cfg.Language)
		}
		stop := defaultStopwords(lang)
		if len(cfg.Stopwords) > 0 {
			stop = stopSet(cfg.Stopwords)
		}
		return &pipeline{
			name:      name,
			tokenizer: tokenizeWords,
			normalize: true,
			fold:      true,
			stopwords: stop,
			language:  lang,
		}, nil
	case "":
		return nil, errs.Configuration("Analyzer '%s' requires a type", name)
	}

	base, ok := Prebuilt(cfg.Type)
	if !ok {
		return nil, errs.Configuration("Analyzer '%s' has unknown type '%s'", name, cfg.Type)
	}
	p := *base.(*pipeline)
	p.name = name
	if len(cfg.Stopwords) > 0 {
		merged := stopSet(cfg.Stopwords)
		for w := range p.stopwords {
			merged[w] = struct{}{}
		}
		p.stopwords = merged
	}
	return &p, nil
}

func stopSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	caser := cases.Fold()
	for _, w := range words {
		set[caser.String(w)] = struct{}{}
	}
	return set
}
