package board

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sampleFEN = "1B1K4-1p5N-7p-1qp5-n1P5-8-6k1-b7"
	sampleSeq = "_B_K_____p_____N_______p_qp_____n_P___________________k_b_______"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		want string
	}{
		{"sample position", sampleFEN, sampleSeq},
		{"empty board", "8-8-8-8-8-8-8-8", strings.Repeat("_", 64)},
		{
			"starting position",
			"rnbqkbnr-pppppppp-8-8-8-8-PPPPPPPP-RNBQKBNR",
			"rnbqkbnrpppppppp" + strings.Repeat("_", 32) + "PPPPPPPPRNBQKBNR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.fen)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, NumSquares)
		})
	}
}

func TestEncodeRejectsWrongLength(t *testing.T) {
	for _, fen := range []string{"", "8-8-8", "8-8-8-8-8-8-8-8-1", "9-8-8-8-8-8-8-8"} {
		_, err := Encode(fen)
		assert.Truef(t, errors.Is(err, ErrSequenceLength), "Encode(%q) = %v", fen, err)
	}
}

func TestDecode(t *testing.T) {
	got, err := Decode(sampleSeq)
	require.NoError(t, err)
	assert.Equal(t, sampleFEN, got)

	got, err = Decode(strings.Repeat("_", 64))
	require.NoError(t, err)
	assert.Equal(t, "8-8-8-8-8-8-8-8", got)

	full := strings.Repeat("PNBRQKpn", 8)
	got, err = Decode(full)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSuffix(strings.Repeat("PNBRQKpn-", 8), "-"), got)

	_, err = Decode("___")
	assert.ErrorIs(t, err, ErrSequenceLength)
}

func TestRoundTripSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		var seq Sequence
		for j := range seq {
			// bias towards empty squares so runs of every length show up
			if rng.Intn(2) == 0 {
				seq[j] = Empty
			} else {
				seq[j] = Piece(rng.Intn(NumPieces))
			}
		}
		s := seq.String()

		fen, err := Decode(s)
		require.NoError(t, err)
		back, err := Encode(fen)
		require.NoError(t, err)
		require.Equal(t, s, back)

		again, err := Decode(back)
		require.NoError(t, err)
		require.Equal(t, fen, again)
		require.NoError(t, ValidatePlacement(fen))
	}
}

func TestParseSequence(t *testing.T) {
	seq, err := ParseSequence(sampleSeq)
	require.NoError(t, err)
	assert.Equal(t, WhiteBishop, seq[1])
	assert.Equal(t, WhiteKing, seq[3])
	assert.Equal(t, BlackBishop, seq[56])
	assert.Equal(t, sampleSeq, seq.String())
	assert.Equal(t, sampleFEN, seq.FEN())

	_, err = ParseSequence(strings.Repeat("x", 64))
	assert.ErrorIs(t, err, ErrInvalidPiece)

	_, err = ParseSequence("P")
	assert.ErrorIs(t, err, ErrSequenceLength)
}

func TestParseFENCounts(t *testing.T) {
	seq, err := ParseFEN("rnbqkbnr-pppppppp-8-8-8-8-PPPPPPPP-RNBQKBNR")
	require.NoError(t, err)

	counts := seq.Counts()
	assert.Equal(t, 32, counts[Empty])
	assert.Equal(t, 8, counts[WhitePawn])
	assert.Equal(t, 8, counts[BlackPawn])
	assert.Equal(t, 1, counts[WhiteKing])
	assert.Equal(t, 2, counts[BlackRook])
}

func TestMustEncodePanics(t *testing.T) {
	assert.Panics(t, func() { MustEncode("8") })
	assert.NotPanics(t, func() { MustEncode(sampleFEN) })
}
