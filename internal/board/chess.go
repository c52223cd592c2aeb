package board

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

var chessPieces = [NumPieces]chess.Piece{
	Empty:       chess.NoPiece,
	WhitePawn:   chess.WhitePawn,
	WhiteKnight: chess.WhiteKnight,
	WhiteBishop: chess.WhiteBishop,
	WhiteRook:   chess.WhiteRook,
	WhiteQueen:  chess.WhiteQueen,
	WhiteKing:   chess.WhiteKing,
	BlackPawn:   chess.BlackPawn,
	BlackKnight: chess.BlackKnight,
	BlackBishop: chess.BlackBishop,
	BlackRook:   chess.BlackRook,
	BlackQueen:  chess.BlackQueen,
	BlackKing:   chess.BlackKing,
}

// ChessPiece converts to the chess library piece
func (p Piece) ChessPiece() chess.Piece {
	if !p.Valid() {
		return chess.NoPiece
	}
	return chessPieces[p]
}

// ChessSquare maps a sequence index (0 = a8, 63 = h1) to a chess square
func ChessSquare(index int) chess.Square {
	row := index / Size
	col := index % Size
	return chess.Square((Size-1-row)*Size + col)
}

// ChessBoard builds a chess library board holding the same placement
func (s Sequence) ChessBoard() *chess.Board {
	m := make(map[chess.Square]chess.Piece)
	for i, p := range s {
		if p == Empty {
			continue
		}
		m[ChessSquare(i)] = p.ChessPiece()
	}
	return chess.NewBoard(m)
}

// Draw renders the sequence as a text diagram
func (s Sequence) Draw() string {
	return s.ChessBoard().Draw()
}

// ValidatePlacement checks a '-' delimited FEN placement rank by rank.
// Unlike Encode it rejects ranks that do not sum to 8 and unknown letters.
func ValidatePlacement(fen string) error {
	placement := strings.ReplaceAll(fen, string(RankDelimiter), "/")
	var b chess.Board
	if err := b.UnmarshalText([]byte(placement)); err != nil {
		return fmt.Errorf("invalid placement %q: %w", fen, err)
	}
	return nil
}
