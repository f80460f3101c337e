package compiler

import "github.com/sarchlab/bfasm/bf"

// IsValid reports whether every loop in src is balanced: no ']' closes a
// loop that was never opened and no '[' is left open. Bytes outside the
// command alphabet are comments and never affect the result.
func IsValid(src []byte) bool {
	counter := 0
	for _, b := range src {
		switch bf.FromByte(b) {
		case bf.LoopOpen:
			counter++
		case bf.LoopClose:
			if counter == 0 {
				return false
			}
			counter--
		}
	}

	return counter == 0
}

// Validate performs the same scan as IsValid and reports where the first
// failure is. It returns nil exactly when IsValid returns true.
func Validate(src []byte) error {
	// Offsets of open brackets. Only the innermost open one matters for
	// reporting, but the stack keeps the top correct after a close.
	var open []int
	for i, b := range src {
		switch bf.FromByte(b) {
		case bf.LoopOpen:
			open = append(open, i)
		case bf.LoopClose:
			if len(open) == 0 {
				return newMalformed(src, UnmatchedClose, i)
			}
			open = open[:len(open)-1]
		}
	}

	if len(open) > 0 {
		return newMalformed(src, UnclosedOpen, open[len(open)-1])
	}

	return nil
}
