package formula

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// Database names the compound library an MMElementRule maximum table was
// derived from.
type Database int

const (
	DatabaseWiley Database = iota + 1
	DatabaseDNP
)

func (d Database) String() string {
	switch d {
	case DatabaseWiley:
		return "WILEY"
	case DatabaseDNP:
		return "DNP"
	default:
		return fmt.Sprintf("Database(%d)", int(d))
	}
}

// ParseDatabase accepts "wiley" or "dnp" in any case.
func ParseDatabase(s string) (Database, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WILEY":
		return DatabaseWiley, nil
	case "DNP":
		return DatabaseDNP, nil
	}
	return 0, errors.InvalidConfiguration("unsupported database").WithDetail(s)
}

// RangeMass is the upper mass bound, in Da, a maximum table applies to.
type RangeMass int

const (
	RangeMass500  RangeMass = 500
	RangeMass1000 RangeMass = 1000
	RangeMass2000 RangeMass = 2000
	RangeMass3000 RangeMass = 3000
)

func (m RangeMass) String() string { return fmt.Sprintf("<%d", int(m)) }

// ParseRangeMass accepts 500, 1000, 2000 or 3000.
func ParseRangeMass(v int) (RangeMass, error) {
	switch RangeMass(v) {
	case RangeMass500, RangeMass1000, RangeMass2000, RangeMass3000:
		return RangeMass(v), nil
	}
	return 0, errors.InvalidConfiguration("unsupported mass range").WithDetail(fmt.Sprint(v))
}

type mmKey struct {
	db Database
	rm RangeMass
}

// Element maxima observed in each library below the given mass.
var mmMaxima = map[mmKey]map[string]int{
	{DatabaseDNP, RangeMass500}: {
		"C": 29, "H": 72, "N": 10, "O": 18, "P": 4, "S": 7, "F": 15, "Cl": 8, "Br": 5,
	},
	{DatabaseDNP, RangeMass1000}: {
		"C": 66, "H": 126, "N": 25, "O": 27, "P": 6, "S": 8, "F": 16, "Cl": 11, "Br": 8,
	},
	{DatabaseDNP, RangeMass2000}: {
		"C": 115, "H": 236, "N": 32, "O": 63, "P": 6, "S": 8, "F": 16, "Cl": 11, "Br": 8,
	},
	{DatabaseDNP, RangeMass3000}: {
		"C": 162, "H": 208, "N": 48, "O": 78, "P": 6, "S": 9, "F": 16, "Cl": 11, "Br": 8,
	},
	{DatabaseWiley, RangeMass500}: {
		"C": 39, "H": 72, "N": 20, "O": 20, "P": 9, "S": 10, "F": 16, "Cl": 10, "Br": 4, "Si": 8,
	},
	{DatabaseWiley, RangeMass1000}: {
		"C": 78, "H": 126, "N": 20, "O": 27, "P": 9, "S": 14, "F": 34, "Cl": 12, "Br": 8, "Si": 14,
	},
	{DatabaseWiley, RangeMass2000}: {
		"C": 156, "H": 180, "N": 20, "O": 40, "P": 9, "S": 14, "F": 48, "Cl": 12, "Br": 10, "Si": 15,
	},
	{DatabaseWiley, RangeMass3000}: {
		"C": 162, "H": 208, "N": 48, "O": 78, "P": 6, "S": 9, "F": 48, "Cl": 12, "Br": 10, "Si": 15,
	},
}

type mmConfig struct {
	db     Database
	rm     RangeMass
	maxima map[string]int
}

// MMElementRule restricts element counts to the maxima seen in a reference
// library for compounds under a given mass.  Elements without a maximum are
// ignored.
type MMElementRule struct {
	cfg atomic.Pointer[mmConfig]
}

// NewMMElementRule returns a rule for db and rm.
func NewMMElementRule(db Database, rm RangeMass) (*MMElementRule, error) {
	r := &MMElementRule{}
	if err := r.SetParameters(db, rm); err != nil {
		return nil, err
	}
	return r, nil
}

// Name implements Rule.
func (r *MMElementRule) Name() string { return RuleNameMMElement }

// SetParameters expects (Database, RangeMass).
func (r *MMElementRule) SetParameters(params ...interface{}) error {
	if len(params) != 2 {
		return errors.InvalidConfiguration("mm element rule expects exactly 2 parameters").
			WithDetail(fmt.Sprintf("got %d", len(params)))
	}
	db, ok1 := params[0].(Database)
	rm, ok2 := params[1].(RangeMass)
	if !ok1 || !ok2 {
		return errors.InvalidConfiguration("mm element rule parameters must be (Database, RangeMass)").
			WithDetail(fmt.Sprintf("%T, %T", params[0], params[1]))
	}
	maxima, ok := mmMaxima[mmKey{db, rm}]
	if !ok {
		return errors.InvalidConfiguration("no maxima for database and mass range").
			WithDetail(db.String() + " " + rm.String())
	}
	r.cfg.Store(&mmConfig{db: db, rm: rm, maxima: maxima})
	return nil
}

// Parameters implements ConfigurableRule.
func (r *MMElementRule) Parameters() []interface{} {
	cfg := r.config()
	return []interface{}{cfg.db, cfg.rm}
}

func (r *MMElementRule) config() *mmConfig {
	if cfg := r.cfg.Load(); cfg != nil {
		return cfg
	}
	return &mmConfig{db: DatabaseWiley, rm: RangeMass500, maxima: mmMaxima[mmKey{DatabaseWiley, RangeMass500}]}
}

// Validate implements Rule.
func (r *MMElementRule) Validate(f *MolecularFormula) float64 {
	if f == nil {
		return ScoreFail
	}
	maxima := r.config().maxima
	for _, sym := range f.Elements() {
		if max, ok := maxima[sym]; ok && f.Count(sym) > max {
			return ScoreFail
		}
	}
	return ScorePass
}

//Personal.AI order the ending
