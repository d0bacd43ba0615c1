package formula

import (
	"fmt"
	"math"
	"strings"

	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// RatioType selects which element/carbon ratios ElementRatioRule evaluates.
// The zero value is deliberately invalid so an unset parameter is detected.
type RatioType int

const (
	// RatioHydrogenCarbon evaluates H/C only.
	RatioHydrogenCarbon RatioType = iota + 1
	// RatioHeteroatomsCarbon evaluates F, Cl, Br, N, O, P, S, Si against C.
	RatioHeteroatomsCarbon
	// RatioAll evaluates every tracked element except C, H included.
	RatioAll
)

// String returns the canonical upper-case name.
func (t RatioType) String() string {
	switch t {
	case RatioHydrogenCarbon:
		return "HYDROGEN_CARBON"
	case RatioHeteroatomsCarbon:
		return "HETERATOMS_CARBON"
	case RatioAll:
		return "ALL"
	default:
		return fmt.Sprintf("RatioType(%d)", int(t))
	}
}

// IsValid reports whether t is a declared ratio type.
func (t RatioType) IsValid() bool {
	return t >= RatioHydrogenCarbon && t <= RatioAll
}

// ParseRatioType accepts the canonical names case-insensitively, with "-" or
// "_" separators, plus the short forms "hc" and "hetero".
func ParseRatioType(s string) (RatioType, error) {
	switch normalizeEnumName(s) {
	case "HYDROGEN_CARBON", "HC":
		return RatioHydrogenCarbon, nil
	case "HETERATOMS_CARBON", "HETEROATOMS_CARBON", "HETERO":
		return RatioHeteroatomsCarbon, nil
	case "ALL":
		return RatioAll, nil
	}
	return 0, errors.InvalidConfiguration("unsupported ratio type").WithDetail(s)
}

// RatioRange selects one of three increasingly permissive bound tables.
type RatioRange int

const (
	RangeCommon RatioRange = iota + 1
	RangeExtended
	RangeExtreme
)

// String returns the canonical upper-case name.
func (r RatioRange) String() string {
	switch r {
	case RangeCommon:
		return "COMMON"
	case RangeExtended:
		return "EXTENDED"
	case RangeExtreme:
		return "EXTREME"
	default:
		return fmt.Sprintf("RatioRange(%d)", int(r))
	}
}

// IsValid reports whether r is a declared ratio range.
func (r RatioRange) IsValid() bool {
	return r >= RangeCommon && r <= RangeExtreme
}

// ParseRatioRange accepts the canonical names case-insensitively.
func ParseRatioRange(s string) (RatioRange, error) {
	switch normalizeEnumName(s) {
	case "COMMON":
		return RangeCommon, nil
	case "EXTENDED":
		return RangeExtended, nil
	case "EXTREME":
		return RangeExtreme, nil
	}
	return 0, errors.InvalidConfiguration("unsupported ratio range").WithDetail(s)
}

func normalizeEnumName(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
}

// BoundKind tags the shape of a Bound.
type BoundKind int

const (
	// BoundInterval is a closed interval [Lo, Hi]; Hi may be +Inf.
	BoundInterval BoundKind = iota
	// BoundExtremeBand is two acceptance bands: [Lo, Hi) and (Lo2, Hi2].
	BoundExtremeBand
)

// Bound is the acceptance region for one element/carbon ratio.
type Bound struct {
	Kind BoundKind `json:"kind"`
	Lo   float64   `json:"lo"`
	Hi   float64   `json:"hi"`
	Lo2  float64   `json:"lo2,omitempty"`
	Hi2  float64   `json:"hi2,omitempty"`
}

// Interval returns a closed [lo, hi] bound.
func Interval(lo, hi float64) Bound {
	return Bound{Kind: BoundInterval, Lo: lo, Hi: hi}
}

// ExtremeBand returns a two-band bound.
func ExtremeBand(lo1, hi1, lo2, hi2 float64) Bound {
	return Bound{Kind: BoundExtremeBand, Lo: lo1, Hi: hi1, Lo2: lo2, Hi2: hi2}
}

// Rejects applies the shape-aware predicate.  A band rejects when the ratio
// is below Lo, or at/above Hi without falling in (Lo2, Hi2].
func (b Bound) Rejects(ratio float64) bool {
	if b.Kind == BoundExtremeBand {
		return ratio < b.Lo || (ratio >= b.Hi && !(ratio > b.Lo2 && ratio <= b.Hi2))
	}
	return b.outsideInterval(ratio)
}

// outsideInterval reads only Lo and Hi, whatever the shape.
func (b Bound) outsideInterval(ratio float64) bool {
	return ratio < b.Lo || ratio > b.Hi
}

// String renders the bound for tables and logs.
func (b Bound) String() string {
	if b.Kind == BoundExtremeBand {
		return fmt.Sprintf("[%g, %g) ∪ (%g, %g]", b.Lo, b.Hi, b.Lo2, b.Hi2)
	}
	if math.IsInf(b.Hi, 1) {
		return fmt.Sprintf("[%g, +Inf)", b.Lo)
	}
	return fmt.Sprintf("[%g, %g]", b.Lo, b.Hi)
}

// trackedElements is the evaluation order of every bound table.
var trackedElements = []string{"H", "F", "Cl", "Br", "N", "O", "P", "S", "Si"}

// RatioBoundsTable maps element symbols to their ratio bound.  It is built
// once per rule configuration and never mutated.
type RatioBoundsTable struct {
	ratioRange RatioRange
	bounds     map[string]Bound
}

// NewRatioBoundsTable builds the fixed table for r.
func NewRatioBoundsTable(r RatioRange) (*RatioBoundsTable, error) {
	inf := math.Inf(1)
	var bounds map[string]Bound
	switch r {
	case RangeCommon:
		bounds = map[string]Bound{
			"H":  Interval(0.2, 3.1),
			"F":  Interval(0, 1.5),
			"Cl": Interval(0, 0.8),
			"Br": Interval(0, 0.8),
			"N":  Interval(0, 1.3),
			"O":  Interval(0, 1.2),
			"P":  Interval(0, 0.3),
			"S":  Interval(0, 0.8),
			"Si": Interval(0, 0.5),
		}
	case RangeExtended:
		bounds = map[string]Bound{
			"H":  Interval(0.1, 6),
			"F":  Interval(0, 6),
			"Cl": Interval(0, 2),
			"Br": Interval(0, 2),
			"N":  Interval(0, 4),
			"O":  Interval(0, 3),
			"P":  Interval(0, 2),
			"S":  Interval(0, 3),
			"Si": Interval(0, 1),
		}
	case RangeExtreme:
		bounds = map[string]Bound{
			"H":  ExtremeBand(math.SmallestNonzeroFloat64, 0.1, 6, 9),
			"F":  Interval(1.5, inf),
			"Cl": Interval(0.8, inf),
			"Br": Interval(0.8, inf),
			"N":  Interval(1.3, inf),
			"O":  Interval(1.2, inf),
			"P":  Interval(0.3, inf),
			"S":  Interval(0.8, inf),
			"Si": Interval(0.5, inf),
		}
	default:
		return nil, errors.InvalidConfiguration("unrecognized ratio range").WithDetail(r.String())
	}
	return &RatioBoundsTable{ratioRange: r, bounds: bounds}, nil
}

// Lookup returns the bound for symbol.
func (t *RatioBoundsTable) Lookup(symbol string) (Bound, bool) {
	b, ok := t.bounds[symbol]
	return b, ok
}

// Range returns the range this table was built for.
func (t *RatioBoundsTable) Range() RatioRange {
	return t.ratioRange
}

// Elements returns the tracked symbols in evaluation order.
func (t *RatioBoundsTable) Elements() []string {
	out := make([]string, len(trackedElements))
	copy(out, trackedElements)
	return out
}

//Personal.AI order the ending
