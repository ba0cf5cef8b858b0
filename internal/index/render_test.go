package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/veriscope/internal/frontend"
)

func TestRenderType(t *testing.T) {
	t.Parallel()
	logic := &frontend.Type{Kind: frontend.TypeIntegral, Name: "logic"}
	packed := &frontend.Type{Kind: frontend.TypePackedArray, Elem: logic, Left: 7, Right: 0}
	word := &frontend.Type{Kind: frontend.TypeAlias, Name: "word_t", Target: packed}
	rec := &frontend.Type{Kind: frontend.TypeStruct}

	tests := []struct {
		name string
		typ  *frontend.Type
		want string
	}{
		{"nil", nil, ""},
		{"named", logic, "logic"},
		{"packed", packed, "logic [7:0]"},
		{"unpacked of packed", &frontend.Type{Kind: frontend.TypeFixedArray, Elem: packed, Left: 0, Right: 3}, "logic [0:3][7:0]"},
		{"queue", &frontend.Type{Kind: frontend.TypeQueue, Elem: logic}, "logic []"},
		{"stops at alias", &frontend.Type{Kind: frontend.TypeFixedArray, Elem: word, Left: 1, Right: 0}, "word_t [1:0]"},
		{"anonymous struct", rec, "struct"},
		{"anonymous union", &frontend.Type{Kind: frontend.TypeUnion}, "union"},
		{"array of anonymous struct", &frontend.Type{Kind: frontend.TypeDynamicArray, Elem: rec}, "struct []"},
		{"unnamed other", &frontend.Type{Kind: frontend.TypeOther}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, RenderType(tt.typ))
		})
	}
}

func TestParseRendered_RoundTrip(t *testing.T) {
	t.Parallel()
	elem := &frontend.Type{Kind: frontend.TypeIntegral, Name: "T"}
	typ := &frontend.Type{Kind: frontend.TypeFixedArray, Elem: elem, Left: 7, Right: 0}

	rendered := RenderType(typ)
	assert.Equal(t, "T [7:0]", rendered)

	base, dims, err := ParseRendered(rendered)
	require.NoError(t, err)
	assert.Equal(t, "T", base)
	assert.Equal(t, []Dim{{Fixed: true, Left: 7, Right: 0}}, dims)

	base, dims, err = ParseRendered("logic [0:3][][-1:2]")
	require.NoError(t, err)
	assert.Equal(t, "logic", base)
	assert.Equal(t, []Dim{
		{Fixed: true, Left: 0, Right: 3},
		{},
		{Fixed: true, Left: -1, Right: 2},
	}, dims)

	base, dims, err = ParseRendered("pkt")
	require.NoError(t, err)
	assert.Equal(t, "pkt", base)
	assert.Nil(t, dims)
}

func TestParseRendered_Errors(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"a [7:0", "a [x:0]", "a [7]", "a [1:0]x"} {
		_, _, err := ParseRendered(in)
		assert.Error(t, err, in)
	}
}

func TestStripArrays(t *testing.T) {
	t.Parallel()
	rec := &frontend.Type{Kind: frontend.TypeStruct, Name: "pkt"}
	inner := &frontend.Type{Kind: frontend.TypeFixedArray, Elem: rec, Left: 1, Right: 0}
	alias := &frontend.Type{Kind: frontend.TypeAlias, Name: "pair_t", Target: inner}
	outer := &frontend.Type{Kind: frontend.TypeQueue, Elem: alias}

	base, levels := stripArrays(outer)
	assert.Same(t, rec, base)
	assert.Equal(t, 2, levels)
	assert.Equal(t, "pair_t []", RenderType(outer))
}
