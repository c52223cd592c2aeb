package board

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Size is the number of ranks and files on the board
	Size = 8

	// NumSquares is the length of a sequence
	NumSquares = Size * Size

	// RankDelimiter separates ranks in file-name FEN strings. '/' cannot
	// appear in a file name, so '-' takes its place.
	RankDelimiter = '-'
)

// ErrSequenceLength is returned when a board does not cover exactly 64 squares
var ErrSequenceLength = errors.New("sequence must have exactly 64 squares")

// Encode converts a '-' delimited FEN placement into a 64 character sequence.
// Digits expand to runs of EmptyChar, every other character is copied.
// Ranks are not validated individually; only the final length is checked.
func Encode(fen string) (string, error) {
	var sb strings.Builder
	sb.Grow(NumSquares)

	for i := 0; i < len(fen); i++ {
		c := fen[i]
		switch {
		case c == RankDelimiter:
			continue
		case c >= '0' && c <= '9':
			for n := 0; n < int(c-'0'); n++ {
				sb.WriteByte(EmptyChar)
			}
		default:
			sb.WriteByte(c)
		}
	}

	if sb.Len() != NumSquares {
		return "", fmt.Errorf("%w: %q encodes to %d squares", ErrSequenceLength, fen, sb.Len())
	}
	return sb.String(), nil
}

// MustEncode is like Encode but panics on malformed input
func MustEncode(fen string) string {
	seq, err := Encode(fen)
	if err != nil {
		panic(err)
	}
	return seq
}

// Decode converts a 64 character sequence back to a '-' delimited FEN placement
func Decode(seq string) (string, error) {
	if len(seq) != NumSquares {
		return "", fmt.Errorf("%w: got %d", ErrSequenceLength, len(seq))
	}

	var sb strings.Builder
	for row := 0; row < Size; row++ {
		run := 0
		for col := 0; col < Size; col++ {
			c := seq[row*Size+col]
			if c == EmptyChar {
				run++
				continue
			}
			if run > 0 {
				sb.WriteByte(byte('0' + run))
				run = 0
			}
			sb.WriteByte(c)
		}
		if run > 0 {
			sb.WriteByte(byte('0' + run))
		}
		if row < Size-1 {
			sb.WriteByte(RankDelimiter)
		}
	}

	return sb.String(), nil
}

// Sequence is a parsed board in row-major order, index 0 being the top-left square
type Sequence [NumSquares]Piece

// ParseSequence converts a sequence string into pieces, rejecting unknown characters
func ParseSequence(s string) (Sequence, error) {
	var seq Sequence
	if len(s) != NumSquares {
		return seq, fmt.Errorf("%w: got %d", ErrSequenceLength, len(s))
	}
	for i := 0; i < NumSquares; i++ {
		p, err := ParsePiece(s[i])
		if err != nil {
			return seq, fmt.Errorf("square %d: %w", i, err)
		}
		seq[i] = p
	}
	return seq, nil
}

// ParseFEN encodes and parses a '-' delimited FEN placement in one step
func ParseFEN(fen string) (Sequence, error) {
	s, err := Encode(fen)
	if err != nil {
		return Sequence{}, err
	}
	return ParseSequence(s)
}

// String returns the sequence text form
func (s Sequence) String() string {
	b := make([]byte, NumSquares)
	for i, p := range s {
		b[i] = p.Char()
	}
	return string(b)
}

// FEN returns the '-' delimited FEN placement of the sequence
func (s Sequence) FEN() string {
	// length is fixed by the array type, Decode cannot fail here
	fen, _ := Decode(s.String())
	return fen
}

// Counts returns how many times each piece occurs
func (s Sequence) Counts() map[Piece]int {
	counts := make(map[Piece]int)
	for _, p := range s {
		counts[p]++
	}
	return counts
}
