// Package game holds the tic-tac-toe rules. Everything here is pure: no I/O,
// no shared state, safe to call from any goroutine.
package game

import "tictactoe/internal/domain"

// lines lists every three-in-a-row on a 3x3 board.
var lines = [8][3]int{
	{0, 1, 2}, // top row
	{3, 4, 5}, // middle row
	{6, 7, 8}, // bottom row
	{0, 3, 6}, // left column
	{1, 4, 7}, // middle column
	{2, 5, 8}, // right column
	{0, 4, 8}, // diagonal
	{2, 4, 6}, // anti-diagonal
}

// IsLegalMove reports whether index is on the board and empty.
// Boards that are not exactly 9 cells are never legal.
func IsLegalMove(board domain.Board, index int) bool {
	if len(board) != domain.BoardSize {
		return false
	}
	if index < 0 || index >= domain.BoardSize {
		return false
	}
	return board[index] == domain.MarkNone
}

// ApplyMove returns a new board with mark placed at index. The input is not
// modified. Callers validate with IsLegalMove first.
func ApplyMove(board domain.Board, index int, mark domain.Mark) domain.Board {
	next := board.Clone()
	next[index] = mark
	return next
}

// Evaluate returns the winner, OutcomeDraw for a full board without a line,
// or OutcomeNone while the game can continue.
func Evaluate(board domain.Board) domain.Outcome {
	if len(board) != domain.BoardSize {
		return domain.OutcomeNone
	}
	for _, l := range lines {
		a, b, c := board[l[0]], board[l[1]], board[l[2]]
		if a != domain.MarkNone && a == b && b == c {
			return domain.Outcome(a)
		}
	}
	for _, cell := range board {
		if cell == domain.MarkNone {
			return domain.OutcomeNone
		}
	}
	return domain.OutcomeDraw
}

// NextTurn returns the other mark.
func NextTurn(mark domain.Mark) domain.Mark {
	if mark == domain.MarkX {
		return domain.MarkO
	}
	return domain.MarkX
}
