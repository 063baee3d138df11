package uom

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"distro/internal/core/types"
)

func TestToTotalBase(t *testing.T) {
	tests := []struct {
		name                  string
		primary, base, factor int64
		want                  int64
	}{
		{"packs and pieces", 5, 3, 10, 53},
		{"pieces only", 0, 7, 12, 7},
		{"zero factor behaves as one", 4, 2, 0, 6},
		{"negative factor behaves as one", 4, 2, -3, 6},
		{"negative total floors at zero", -2, 1, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToTotalBase(tt.primary, tt.base, tt.factor))
		})
	}
}

func TestSplitFromTotalBase(t *testing.T) {
	assert.Equal(t, Pair{Primary: 7, Base: 0}, SplitFromTotalBase(70, 10))
	assert.Equal(t, Pair{Primary: 5, Base: 3}, SplitFromTotalBase(53, 10))
	assert.Equal(t, Pair{Primary: 9, Base: 0}, SplitFromTotalBase(9, 1))
	assert.Equal(t, Pair{}, SplitFromTotalBase(-4, 10))
}

func TestRoundTripIsValuePreserving(t *testing.T) {
	for f := int64(1); f <= 13; f++ {
		for p := int64(0); p <= 12; p++ {
			for b := int64(0); b <= 30; b++ {
				total := ToTotalBase(p, b, f)
				split := SplitFromTotalBase(total, f)
				assert.Equal(t, total, split.TotalBase(f), "p=%d b=%d f=%d", p, b, f)
				assert.Less(t, split.Base, f)
			}
		}
	}
}

func TestRoundTripIsNotPairPreserving(t *testing.T) {
	// 2 packs + 15 pieces and 3 packs + 5 pieces are the same stock.
	split := SplitFromTotalBase(ToTotalBase(2, 15, 10), 10)
	assert.Equal(t, Pair{Primary: 3, Base: 5}, split)
}

func TestSolveMax(t *testing.T) {
	// primary=5 held, cap 53, factor 10 -> 3 loose pieces left
	assert.Equal(t, int64(3), SolveMax(FieldBase, Pair{Primary: 5, Base: 4}, 10, 53))
	// base=4 held, cap 53 -> floor(49/10)=4 packs
	assert.Equal(t, int64(4), SolveMax(FieldPrimary, Pair{Primary: 9, Base: 4}, 10, 53))
	// nothing left
	assert.Equal(t, int64(0), SolveMax(FieldPrimary, Pair{Base: 80}, 10, 53))
	assert.Equal(t, int64(0), SolveMax(FieldBase, Pair{Primary: 9}, 10, 53))
}

func TestItem_Factor(t *testing.T) {
	assert.Equal(t, int64(1), Item{PrimaryUOM: "box", FactorToBase: 24}.Factor())
	assert.Equal(t, int64(24), Item{PrimaryUOM: "box", BaseUOM: "pc", FactorToBase: 24}.Factor())
	assert.Error(t, Item{PrimaryUOM: "box", BaseUOM: "pc"}.Validate())
	assert.Error(t, Item{}.Validate())
	assert.NoError(t, Item{PrimaryUOM: "bottle"}.Validate())
}

func TestFromLegacy(t *testing.T) {
	assert.Equal(t, Pair{Primary: 12}, FromLegacy(12, false))
	assert.Equal(t, Pair{}, FromLegacy(12, true))
}

func TestNewPair_Truncates(t *testing.T) {
	p, _ := types.ParseQuantity("2.9")
	b, _ := types.ParseQuantity("4.2")
	assert.Equal(t, Pair{Primary: 2, Base: 4}, NewPair(p, b))
}
