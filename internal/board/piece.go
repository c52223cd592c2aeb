package board

import (
	"errors"
	"fmt"
)

// EmptyChar marks an empty square in a sequence
const EmptyChar = '_'

// ErrInvalidPiece is returned for characters outside the piece alphabet
var ErrInvalidPiece = errors.New("invalid piece character")

// Piece represents the content of a single square
type Piece int

const (
	Empty Piece = iota
	WhitePawn
	WhiteKnight
	WhiteBishop
	WhiteRook
	WhiteQueen
	WhiteKing
	BlackPawn
	BlackKnight
	BlackBishop
	BlackRook
	BlackQueen
	BlackKing
)

// NumPieces is the number of distinct square contents, empty included
const NumPieces = int(BlackKing) + 1

var pieceChars = [NumPieces]byte{
	Empty:       EmptyChar,
	WhitePawn:   'P',
	WhiteKnight: 'N',
	WhiteBishop: 'B',
	WhiteRook:   'R',
	WhiteQueen:  'Q',
	WhiteKing:   'K',
	BlackPawn:   'p',
	BlackKnight: 'n',
	BlackBishop: 'b',
	BlackRook:   'r',
	BlackQueen:  'q',
	BlackKing:   'k',
}

// ParsePiece converts a sequence character to a Piece
func ParsePiece(c byte) (Piece, error) {
	for i, pc := range pieceChars {
		if pc == c {
			return Piece(i), nil
		}
	}
	return Empty, fmt.Errorf("%w: %q", ErrInvalidPiece, c)
}

// Char returns the sequence character for the piece
func (p Piece) Char() byte {
	if !p.Valid() {
		return '?'
	}
	return pieceChars[p]
}

// Valid reports whether p is one of the defined pieces
func (p Piece) Valid() bool {
	return p >= Empty && int(p) < NumPieces
}

// IsWhite reports whether the piece belongs to white
func (p Piece) IsWhite() bool {
	return p >= WhitePawn && p <= WhiteKing
}

// IsBlack reports whether the piece belongs to black
func (p Piece) IsBlack() bool {
	return p >= BlackPawn && p <= BlackKing
}

func (p Piece) String() string {
	return string(p.Char())
}
