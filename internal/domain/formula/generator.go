package formula

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// ctxCheckInterval is the number of search nodes visited between context
// checks.
const ctxCheckInterval = 1 << 12

// GeneratorOption configures a MassToFormula.
type GeneratorOption func(*MassToFormula)

// WithTolerance sets the accepted absolute mass error in Da.
func WithTolerance(tol float64) GeneratorOption {
	return func(g *MassToFormula) { g.tolerance = tol }
}

// WithCharge sets the net charge of the generated formulas.
func WithCharge(charge int) GeneratorOption {
	return func(g *MassToFormula) { g.charge = charge }
}

// WithMaxResults caps the number of returned candidates.  Zero means no cap.
func WithMaxResults(n int) GeneratorOption {
	return func(g *MassToFormula) { g.maxResults = n }
}

// MassToFormula enumerates every formula inside a FormulaRange whose
// monoisotopic mass lies within tolerance of a target mass.
type MassToFormula struct {
	rng        *FormulaRange
	tolerance  float64
	charge     int
	maxResults int
}

// NewMassToFormula returns a generator over rng, or DefaultGeneratorRange
// when rng is nil or empty.
func NewMassToFormula(rng *FormulaRange, opts ...GeneratorOption) (*MassToFormula, error) {
	if rng.Len() == 0 {
		rng = DefaultGeneratorRange()
	}
	g := &MassToFormula{rng: rng, tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(g)
	}
	if !isFiniteNonNegative(g.tolerance) {
		return nil, errors.InvalidParam("tolerance must be finite and non-negative").
			WithDetail(fmt.Sprint(g.tolerance))
	}
	if g.maxResults < 0 {
		return nil, errors.InvalidParam("max results must be non-negative").
			WithDetail(fmt.Sprint(g.maxResults))
	}
	return g, nil
}

// Range returns the element window searched.
func (g *MassToFormula) Range() *FormulaRange { return g.rng }

// Tolerance returns the mass tolerance in Da.
func (g *MassToFormula) Tolerance() float64 { return g.tolerance }

// Charge returns the charge applied to generated formulas.
func (g *MassToFormula) Charge() int { return g.charge }

type searchElement struct {
	symbol   string
	mass     float64
	min, max int
}

type candidate struct {
	formula *MolecularFormula
	label   string
	err     float64
}

// worse orders candidates by mass error, then by Hill string.
func (c candidate) worse(o candidate) bool {
	if c.err != o.err {
		return c.err > o.err
	}
	return c.label > o.label
}

// candidateHeap keeps the worst retained candidate at the root so a capped
// search holds at most maxResults formulas.
type candidateHeap []candidate

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return h[i].worse(h[j]) }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	c := old[len(old)-1]
	*h = old[:len(old)-1]
	return c
}

// Generate returns the candidates for targetMass ordered by absolute mass
// error, then by Hill string.  With a result cap only the best maxResults
// candidates are kept while searching.
func (g *MassToFormula) Generate(ctx context.Context, targetMass float64) ([]*MolecularFormula, error) {
	if math.IsNaN(targetMass) || math.IsInf(targetMass, 0) || targetMass <= 0 {
		return nil, errors.New(errors.ErrCodeMassInvalid, "target mass must be a positive finite number").
			WithDetail(fmt.Sprint(targetMass))
	}

	elems := make([]searchElement, 0, g.rng.Len())
	for _, sym := range g.rng.Elements() {
		er, _ := g.rng.Range(sym)
		e, _ := LookupElement(sym)
		elems = append(elems, searchElement{symbol: sym, mass: e.Mass, min: er.Min, max: er.Max})
	}
	sort.Slice(elems, func(i, j int) bool {
		if elems[i].mass != elems[j].mass {
			return elems[i].mass > elems[j].mass
		}
		return elems[i].symbol < elems[j].symbol
	})

	// Suffix sums bound the mass still reachable from element i onwards.
	n := len(elems)
	minRest := make([]float64, n+1)
	maxRest := make([]float64, n+1)
	for i := n - 1; i >= 0; i-- {
		minRest[i] = minRest[i+1] + float64(elems[i].min)*elems[i].mass
		maxRest[i] = maxRest[i+1] + float64(elems[i].max)*elems[i].mass
	}

	neutral := targetMass + float64(g.charge)*ElectronMass
	lo, hi := neutral-g.tolerance, neutral+g.tolerance

	var (
		found   candidateHeap
		counts  = make([]int, n)
		visited int
		ctxErr  error
	)

	var search func(i int, mass float64) bool
	search = func(i int, mass float64) bool {
		visited++
		if visited%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				ctxErr = err
				return false
			}
		}
		if i == n {
			if mass < lo || mass > hi {
				return true
			}
			errMass := math.Abs(mass - neutral)
			full := g.maxResults > 0 && len(found) == g.maxResults
			if full && errMass > found[0].err {
				return true
			}
			m := make(map[string]int, n)
			for k, c := range counts {
				if c > 0 {
					m[elems[k].symbol] = c
				}
			}
			if len(m) == 0 {
				return true
			}
			f, err := NewMolecularFormula(m, g.charge)
			if err != nil {
				return true
			}
			c := candidate{formula: f, label: f.String(), err: errMass}
			switch {
			case g.maxResults == 0:
				found = append(found, c)
			case !full:
				heap.Push(&found, c)
			case found[0].worse(c):
				found[0] = c
				heap.Fix(&found, 0)
			}
			return true
		}

		e := elems[i]
		for c := e.min; c <= e.max; c++ {
			m := mass + float64(c)*e.mass
			if m+minRest[i+1] > hi {
				break
			}
			if m+maxRest[i+1] < lo {
				continue
			}
			counts[i] = c
			if !search(i+1, m) {
				return false
			}
		}
		counts[i] = 0
		return true
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGenerationFailed, "generation cancelled")
	}
	search(0, 0)
	if ctxErr != nil {
		return nil, errors.Wrap(ctxErr, errors.ErrCodeGenerationFailed, "generation cancelled")
	}

	sort.Slice(found, func(i, j int) bool { return found[j].worse(found[i]) })

	out := make([]*MolecularFormula, len(found))
	for i, c := range found {
		out[i] = c.formula
	}
	return out, nil
}

//Personal.AI order the ending
