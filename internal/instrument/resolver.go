package instrument

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Lister supplies the instrument rows the resolver indexes. Satisfied by
// *Store; tests use a fixed slice.
type Lister interface {
	All() []Instrument
}

// Resolver maps a fuzzy text fragment to exactly one Instrument, or reports
// ambiguity / not-found. Matching is a pure function over the index:
//
//  1. exact alias hit (alias table, yaml) — a multi-target alias is ambiguous
//     by definition;
//  2. exact match on normalized symbol or name;
//  3. lowest Levenshtein distance among candidates clearing both the distance
//     cap and the similarity score floor; ties at the top are ambiguous.
type Resolver struct {
	source      Lister
	aliases     map[string][]string
	maxDistance int
	minScore    float64

	mu       sync.RWMutex
	bySymbol map[string]Instrument
	exact    map[string][]Instrument
	entries  []indexEntry
}

type indexEntry struct {
	key  string
	inst Instrument
}

func NewResolver(source Lister, aliasPath string, maxDistance int, minScore float64) (*Resolver, error) {
	aliases, err := loadAliases(aliasPath)
	if err != nil {
		return nil, err
	}
	r := &Resolver{
		source:      source,
		aliases:     aliases,
		maxDistance: maxDistance,
		minScore:    minScore,
	}
	r.Rebuild()
	return r, nil
}

func loadAliases(path string) (map[string][]string, error) {
	if strings.TrimSpace(path) == "" {
		return map[string][]string{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading alias table failed: %w", err)
	}
	var doc struct {
		Aliases map[string][]string `yaml:"aliases"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing alias table failed: %w", err)
	}
	out := make(map[string][]string, len(doc.Aliases))
	for alias, targets := range doc.Aliases {
		out[Normalize(alias)] = targets
	}
	return out, nil
}

// Rebuild re-indexes from the source. Called once at startup and again after
// each master reload.
func (r *Resolver) Rebuild() {
	rows := r.source.All()
	bySymbol := make(map[string]Instrument, len(rows))
	exact := make(map[string][]Instrument)
	entries := make([]indexEntry, 0, len(rows)*2)
	for _, inst := range rows {
		bySymbol[strings.ToUpper(inst.Symbol)] = inst
		for _, key := range []string{Normalize(inst.Symbol), Normalize(inst.Name)} {
			if key == "" {
				continue
			}
			exact[key] = appendUniqueInst(exact[key], inst)
			entries = append(entries, indexEntry{key: key, inst: inst})
		}
	}
	r.mu.Lock()
	r.bySymbol = bySymbol
	r.exact = exact
	r.entries = entries
	r.mu.Unlock()
}

func (r *Resolver) Resolve(fragment string) (Instrument, error) {
	norm := Normalize(fragment)
	if norm == "" {
		return Instrument{}, ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if targets, ok := r.aliases[norm]; ok {
		return r.resolveAlias(fragment, targets)
	}
	if insts, ok := r.exact[norm]; ok {
		return pickExact(fragment, insts)
	}
	return r.resolveFuzzy(fragment, norm)
}

func (r *Resolver) resolveAlias(fragment string, targets []string) (Instrument, error) {
	var found []Instrument
	for _, t := range targets {
		if inst, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(t))]; ok {
			found = appendUniqueInst(found, inst)
		}
	}
	switch len(found) {
	case 0:
		return Instrument{}, ErrNotFound
	case 1:
		return found[0], nil
	default:
		return Instrument{}, &AmbiguousError{Fragment: fragment, Candidates: found}
	}
}

func pickExact(fragment string, insts []Instrument) (Instrument, error) {
	if len(insts) == 1 {
		return insts[0], nil
	}
	// Same symbol listed on several segments: prefer NSE, otherwise ambiguous.
	var nse []Instrument
	for _, inst := range insts {
		if strings.EqualFold(inst.Exchange, "NSE") {
			nse = append(nse, inst)
		}
	}
	if len(nse) == 1 {
		return nse[0], nil
	}
	return Instrument{}, &AmbiguousError{Fragment: fragment, Candidates: insts}
}

func (r *Resolver) resolveFuzzy(fragment, norm string) (Instrument, error) {
	best := r.maxDistance + 1
	var candidates []Instrument
	for _, e := range r.entries {
		d := levenshtein(norm, e.key)
		if d > r.maxDistance || similarity(norm, e.key, d) < r.minScore {
			continue
		}
		switch {
		case d < best:
			best = d
			candidates = candidates[:0]
			candidates = append(candidates, e.inst)
		case d == best:
			candidates = appendUniqueInst(candidates, e.inst)
		}
	}
	switch len(candidates) {
	case 0:
		return Instrument{}, ErrNotFound
	case 1:
		return candidates[0], nil
	default:
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Symbol < candidates[j].Symbol })
		return Instrument{}, &AmbiguousError{Fragment: fragment, Candidates: candidates}
	}
}

func appendUniqueInst(list []Instrument, inst Instrument) []Instrument {
	for _, have := range list {
		if have.Token == inst.Token && have.Exchange == inst.Exchange {
			return list
		}
	}
	return append(list, inst)
}

// Normalize case-folds, strips punctuation and the common "-EQ" series
// suffix, and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	s = strings.TrimSuffix(s, "-EQ")
	var b strings.Builder
	lastSpace := false
	for _, ch := range s {
		switch {
		case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			b.WriteRune(ch)
			lastSpace = false
		default:
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func similarity(a, b string, dist int) float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	return 1 - float64(dist)/float64(n)
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = minInt(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
