// Package normal contains small string normalizers, which can be chained in a
// pipeline. They are used to derive lookup keys and to clean up values before
// they are written to a table.
package normal

import "strings"

// Pipeline applies normalizers in order.
type Pipeline struct {
	Normalizer []Normalizer
}

func (p *Pipeline) Normalize(s string) string {
	for _, n := range p.Normalizer {
		s = n.Normalize(s)
	}
	return s
}

type Normalizer interface {
	Normalize(string) string
}

// NormalizerFunc adapts a plain function.
type NormalizerFunc func(string) string

func (f NormalizerFunc) Normalize(s string) string {
	return f(s)
}

// TrailingPeriodNormalizer removes exactly one trailing period, so "Univ A."
// and "Univ A" end up the same, but "Inc.." only loses one dot.
type TrailingPeriodNormalizer struct{}

func (s *TrailingPeriodNormalizer) Normalize(v string) string {
	return strings.TrimSuffix(v, ".")
}

var (
	// DOIKey folds a DOI into a lookup key. DOI are case insensitive, but
	// we do not attempt any other cleanup here.
	DOIKey = &Pipeline{Normalizer: []Normalizer{NormalizerFunc(strings.ToLower)}}
	// Affiliation cleans up an affiliation name.
	Affiliation = &Pipeline{Normalizer: []Normalizer{&TrailingPeriodNormalizer{}}}
)
