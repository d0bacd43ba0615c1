package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

func TestParseFormula(t *testing.T) {
	tests := []struct {
		in     string
		hill   string
		charge int
		counts map[string]int
	}{
		{"C6H6", "C6H6", 0, map[string]int{"C": 6, "H": 6}},
		{"CH3COOH", "C2H4O2", 0, map[string]int{"C": 2, "H": 4, "O": 2}},
		{"H2O", "H2O", 0, map[string]int{"H": 2, "O": 1}},
		{"NaCl", "ClNa", 0, map[string]int{"Na": 1, "Cl": 1}},
		{" C2H5Cl ", "C2H5Cl", 0, map[string]int{"C": 2, "H": 5, "Cl": 1}},
		{"[C6H7N]+", "[C6H7N]+", 1, map[string]int{"C": 6, "H": 7, "N": 1}},
		{"[C5H5]2-", "[C5H5]2-", -2, map[string]int{"C": 5, "H": 5}},
		{"C0H4", "H4", 0, map[string]int{"H": 4}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, err := ParseFormula(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.hill, f.String())
			assert.Equal(t, tt.charge, f.Charge())
			assert.Equal(t, tt.counts, f.Counts())

			again, err := ParseFormula(f.String())
			require.NoError(t, err)
			assert.True(t, f.Equal(again))
		})
	}
}

func TestParseFormula_Errors(t *testing.T) {
	tests := []struct {
		in   string
		code errors.ErrorCode
	}{
		{"", errors.ErrCodeFormulaParseFailed},
		{"   ", errors.ErrCodeFormulaParseFailed},
		{"c6h6", errors.ErrCodeFormulaParseFailed},
		{"C6-H6", errors.ErrCodeFormulaParseFailed},
		{"[C6H6]", errors.ErrCodeFormulaParseFailed},
		{"Xx2", errors.ErrCodeElementUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, err := ParseFormula(tt.in)
			assert.Nil(t, f)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestNewMolecularFormula(t *testing.T) {
	f, err := NewMolecularFormula(map[string]int{"C": 1, "H": 4, "N": 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "H"}, f.Elements())
	assert.Equal(t, 5, f.AtomCount())

	_, err = NewMolecularFormula(map[string]int{"C": -1}, 0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFormulaParseFailed))

	_, err = NewMolecularFormula(map[string]int{"Zz": 1}, 0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeElementUnsupported))
}

func TestMolecularFormula_Counts_IsCopy(t *testing.T) {
	f := MustParseFormula("C6H6")
	c := f.Counts()
	c["C"] = 100
	assert.Equal(t, 6, f.Count("C"))
}

func TestMolecularFormula_Mass(t *testing.T) {
	benzene := MustParseFormula("C6H6")
	assert.InDelta(t, 78.04695, benzene.MonoisotopicMass(), 1e-5)
	assert.Equal(t, 78, benzene.NominalMass())

	cation := MustParseFormula("[C6H7N]+")
	neutral := MustParseFormula("C6H7N")
	assert.InDelta(t, neutral.MonoisotopicMass()-ElectronMass, cation.MonoisotopicMass(), 1e-12)
}

func TestMolecularFormula_NilSafe(t *testing.T) {
	var f *MolecularFormula
	assert.Equal(t, 0, f.Count("C"))
	assert.Equal(t, 0, f.Charge())
	assert.True(t, f.IsEmpty())
	assert.Equal(t, 0, f.AtomCount())
	assert.Equal(t, 0.0, f.MonoisotopicMass())
	assert.Equal(t, "", f.String())
	assert.Empty(t, f.Counts())
	assert.True(t, f.Equal(nil))
	assert.False(t, f.Equal(MustParseFormula("C")))
}

func TestMolecularFormula_Equal(t *testing.T) {
	assert.True(t, MustParseFormula("CH4").Equal(MustParseFormula("H4C")))
	assert.False(t, MustParseFormula("CH4").Equal(MustParseFormula("[CH4]+")))
	assert.False(t, MustParseFormula("CH4").Equal(MustParseFormula("CH3")))
}

func TestFormulaRange(t *testing.T) {
	r := NewFormulaRange()
	require.NoError(t, r.Add("C", 0, 10))
	require.NoError(t, r.Add("H", 2, 20))
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, "C[0-10] H[2-20]", r.String())

	er, ok := r.Range("H")
	require.True(t, ok)
	assert.Equal(t, ElementRange{Min: 2, Max: 20}, er)

	assert.True(t, errors.IsCode(r.Add("C", 5, 1), errors.CodeInvalidParam))
	assert.True(t, errors.IsCode(r.Add("C", -1, 1), errors.CodeInvalidParam))
	assert.True(t, errors.IsCode(r.Add("Qq", 0, 1), errors.ErrCodeElementUnsupported))

	_, err := FormulaRangeFromMap(map[string]ElementRange{"N": {Min: 3, Max: 1}})
	assert.Error(t, err)

	var nilRange *FormulaRange
	assert.Equal(t, 0, nilRange.Len())
	assert.Empty(t, nilRange.Elements())
}

func TestFormulaRangeFromMap_CanonicalisesSymbols(t *testing.T) {
	r, err := FormulaRangeFromMap(map[string]ElementRange{"cl": {Min: 0, Max: 2}, "C": {Min: 1, Max: 3}})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "Cl"}, r.Elements())
	assert.Equal(t, "Br", CanonicalSymbol(" BR "))
	assert.Equal(t, "", CanonicalSymbol(""))
}

func TestDefaultRanges(t *testing.T) {
	g := DefaultGeneratorRange()
	assert.Equal(t, []string{"C", "H", "N", "O", "P", "S"}, g.Elements())
	h, _ := g.Range("H")
	assert.Equal(t, 100, h.Max)

	e := DefaultElementRuleRange()
	assert.Equal(t, []string{"C", "H", "N", "O"}, e.Elements())
}

//Personal.AI order the ending
