// Package parser converts raw command strings into Intent structs using the
// locale's verb-synonym table. Intentionally dumb: no NLP, just token
// matching — free-text understanding is the normalizer's LLM path.
package parser

import (
	"sort"
	"strings"

	"github.com/nathoo/talespin/types"
)

// Parser is a fixed-grammar tokenizer for one locale.
type Parser struct {
	phrases  []phrase // verb phrases, longest first
	articles map[string]bool
	linkers  map[string]bool
}

// phrase maps a (possibly multi-word) synonym to its canonical verb.
type phrase struct {
	words []string
	verb  string
}

// New builds a parser from the locale's verb table, articles and linkers.
func New(loc *types.Locale) *Parser {
	p := &Parser{
		articles: map[string]bool{},
		linkers:  map[string]bool{},
	}
	for verb, synonyms := range loc.Verbs {
		// The canonical verb itself always parses.
		p.phrases = append(p.phrases, phrase{words: strings.Fields(strings.ToLower(verb)), verb: verb})
		for _, syn := range synonyms {
			words := strings.Fields(strings.ToLower(syn))
			if len(words) == 0 {
				continue
			}
			p.phrases = append(p.phrases, phrase{words: words, verb: verb})
		}
	}
	// Longest phrase first so "pick up" wins over "pick".
	sort.SliceStable(p.phrases, func(i, j int) bool {
		return len(p.phrases[i].words) > len(p.phrases[j].words)
	})
	for _, a := range loc.Articles {
		p.articles[strings.ToLower(a)] = true
	}
	for _, l := range loc.Linkers {
		p.linkers[strings.ToLower(l)] = true
	}
	return p
}

// Parse converts a raw command string into an Intent. An unrecognized verb
// yields an Intent with the raw first token as Verb; the resolver reports
// it as unknown.
func (p *Parser) Parse(input string) types.Intent {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(input)))
	if len(words) == 0 {
		return types.Intent{}
	}

	verb, rest := p.matchVerb(words)
	if verb == "" {
		verb, rest = words[0], words[1:]
	}

	rest = p.stripArticles(rest)
	object, object2 := p.splitOnLinker(rest)

	return types.Intent{Verb: verb, Object: object, Object2: object2}
}

// KnownVerb reports whether the canonical verb exists in this locale.
func (p *Parser) KnownVerb(verb string) bool {
	for _, ph := range p.phrases {
		if ph.verb == verb {
			return true
		}
	}
	return false
}

// matchVerb matches the longest verb phrase at the start of words.
func (p *Parser) matchVerb(words []string) (string, []string) {
	for _, ph := range p.phrases {
		if len(ph.words) > len(words) {
			continue
		}
		match := true
		for i, w := range ph.words {
			if words[i] != w {
				match = false
				break
			}
		}
		if match {
			return ph.verb, words[len(ph.words):]
		}
	}
	return "", nil
}

func (p *Parser) stripArticles(words []string) []string {
	result := make([]string, 0, len(words))
	for _, w := range words {
		if !p.articles[w] {
			result = append(result, w)
		}
	}
	return result
}

// splitOnLinker splits words on the first linking word ("with", "mit").
// Words before it become the object, words after become the second object.
func (p *Parser) splitOnLinker(words []string) (object, object2 string) {
	for i, w := range words {
		if p.linkers[w] {
			return strings.Join(words[:i], " "), strings.Join(words[i+1:], " ")
		}
	}
	return strings.Join(words, " "), ""
}
