package compiler

import "github.com/sarchlab/bfasm/bf"

// Stats summarizes a source program.
type Stats struct {
	Bytes    int
	Commands map[bf.Command]int
	Comments int
	Loops    int
	MaxDepth int
}

// Analyze counts the commands of src. Loops is the number of opening
// brackets, which for a valid program equals the number of label ids.
func Analyze(src []byte) Stats {
	s := Stats{
		Bytes:    len(src),
		Commands: make(map[bf.Command]int),
	}

	depth := 0
	for _, b := range src {
		cmd := bf.FromByte(b)
		if cmd == bf.None {
			s.Comments++
			continue
		}
		s.Commands[cmd]++

		switch cmd {
		case bf.LoopOpen:
			s.Loops++
			depth++
			if depth > s.MaxDepth {
				s.MaxDepth = depth
			}
		case bf.LoopClose:
			if depth > 0 {
				depth--
			}
		}
	}

	return s
}

// Total returns the number of command symbols.
func (s Stats) Total() int {
	n := 0
	for _, c := range s.Commands {
		n += c
	}
	return n
}
