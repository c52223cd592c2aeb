package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFenFromFilename(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"8-8-8-8-8-8-8-8.jpeg", "8-8-8-8-8-8-8-8"},
		{"/data/boards/" + sampleFEN + ".jpeg", sampleFEN},
		{`C:\boards\` + sampleFEN + ".jpeg", sampleFEN},
		{"rel/dir/" + sampleFEN, sampleFEN},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FenFromFilename(tt.path), tt.path)
	}
}

func TestCompare(t *testing.T) {
	truth, err := ParseFEN(sampleFEN)
	require.NoError(t, err)

	predicted := truth
	predicted[1] = WhiteKnight // B -> N
	predicted[9] = Empty       // p -> _
	predicted[63] = BlackKing  // _ -> k

	d := Compare(truth, predicted)
	assert.Equal(t, 3, d.ErrorCount)
	assert.Equal(t, []int{1, 9, 63}, d.ErrorPositions)
	assert.Equal(t, []string{"BN", "p_", "_k"}, d.ErrorPieces)
	assert.Equal(t, truth.String(), d.Truth)
	assert.Equal(t, predicted.String(), d.Predicted)

	perfect := Compare(truth, truth)
	assert.Zero(t, perfect.ErrorCount)
	assert.Empty(t, perfect.ErrorPositions)
	assert.Empty(t, perfect.ErrorPieces)
}
