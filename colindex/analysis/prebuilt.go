package analysis

import "strings"

const (
	Standard   = "standard"
	Keyword    = "keyword"
	Whitespace = "whitespace"
	Simple     = "simple"
	Stop       = "stop"
)

// Default is the analyzer used when a schema names none.
const Default = Standard

var languages = []string{"english", "spanish", "french", "russian", "swedish"}

// SupportsLanguage reports whether a snowball stemmer exists for lang.
func SupportsLanguage(lang string) bool {
	for _, l := range languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Prebuilt returns one of the built-in analyzers by name. Every snowball
// language is also available under its own name.
func Prebuilt(name string) (Analyzer, bool) {
	name = strings.ToLower(name)
	switch name {
	case Standard:
		return &pipeline{name: name, tokenizer: tokenizeWords, normalize: true, fold: true}, true
	case Keyword:
		return &pipeline{name: name, tokenizer: tokenizeNone}, true
	case Whitespace:
		return &pipeline{name: name, tokenizer: tokenizeWhitespace}, true
	case Simple:
		return &pipeline{name: name, tokenizer: tokenizeLetters, fold: true}, true
	case Stop:
		return &pipeline{name: name, tokenizer: tokenizeLetters, fold: true, stopwords: englishStopwords}, true
	}
	if SupportsLanguage(name) {
		return &pipeline{
			name:      name,
			tokenizer: tokenizeWords,
			normalize: true,
			fold:      true,
			stopwords: defaultStopwords(name),
			language:  name,
		}, true
	}
	return nil, false
}

func defaultStopwords(lang string) map[string]struct{} {
	if lang == "english" {
		return englishStopwords
	}
	return nil
}

var englishStopwords = stopSet([]string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "if", "in",
	"into", "is", "it", "no", "not", "of", "on", "or", "such", "that", "the",
	"their", "then", "there", "these", "they", "this", "to", "was", "will", "with",
})
