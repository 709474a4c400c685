package gas

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Composition maps species to mole fractions.
type Composition map[Species]float64

var (
	reCompoSeparator = regexp.MustCompile(`[\n,;]`)
	reCompoToken     = regexp.MustCompile(`^([A-Za-z0-9]+)\s*[:=]\s*([0-9.]+)%?$`)
)

// ParseComposition reads mole percentages written as NAME=VALUE, NAME:VALUE
// or NAME=VALUE% separated by newlines, commas or semicolons. Unrecognized
// tokens and names are skipped, repeated species accumulate, and the result
// is normalized to a unit sum. Nothing recognized gives an empty composition.
func ParseComposition(text string) Composition {
	c := make(Composition)
	for _, tok := range reCompoSeparator.Split(text, -1) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		m := reCompoToken.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		s, ok := LookupSpecies(m[1])
		if !ok {
			continue
		}
		c[s] += v
	}
	return c.Normalized()
}

// Normalized returns a copy of c scaled to a unit sum. Species with zero
// fraction are dropped; a non-positive total gives an empty composition.
func (c Composition) Normalized() Composition {
	sum := c.Sum()
	r := make(Composition, len(c))
	if !(sum > 0) {
		return r
	}
	for s, x := range c {
		if x > 0 {
			r[s] = x / sum
		}
	}
	return r
}

func (c Composition) Empty() bool {
	return len(c) == 0
}

func (c Composition) Sum() float64 {
	xs := make([]float64, 0, len(c))
	for _, s := range c.Species() {
		xs = append(xs, c[s])
	}
	return floats.Sum(xs)
}

// Species lists the species of c in table order.
func (c Composition) Species() []Species {
	xs := make([]Species, 0, len(c))
	for s := range c {
		xs = append(xs, s)
	}
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	return xs
}

// Mixture maps c onto the evaluator schema; every schema component is present
// and those without a counterpart are zero.
func (c Composition) Mixture() Mixture {
	m := make(Mixture)
	for _, k := range MixNames() {
		m[k] = 0
	}
	for s, x := range c {
		if k := s.MixName(); k != "" {
			m[k] = x
		}
	}
	return m
}

func (c Composition) String() string {
	var xs []string
	for _, s := range c.Species() {
		xs = append(xs, fmt.Sprintf("%s=%g%%", s, c[s]*100))
	}
	return strings.Join(xs, ", ")
}
