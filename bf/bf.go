// Package bf defines the command alphabet of the Brainfuck language.
package bf

// Command is one recognized Brainfuck instruction symbol.
type Command int

// The eight commands. None marks a byte outside the alphabet.
const (
	None Command = iota
	IncPtr
	DecPtr
	IncData
	DecData
	Output
	Input
	LoopOpen
	LoopClose
)

// Commands lists every recognized command in a fixed order.
var Commands = []Command{
	IncPtr, DecPtr, IncData, DecData, Output, Input, LoopOpen, LoopClose,
}

// FromByte maps a source byte to its command. Any byte outside the
// alphabet yields None and is treated as a comment by every consumer.
func FromByte(b byte) Command {
	switch b {
	case '>':
		return IncPtr
	case '<':
		return DecPtr
	case '+':
		return IncData
	case '-':
		return DecData
	case '.':
		return Output
	case ',':
		return Input
	case '[':
		return LoopOpen
	case ']':
		return LoopClose
	default:
		return None
	}
}

// IsCommand reports whether b belongs to the alphabet.
func IsCommand(b byte) bool {
	return FromByte(b) != None
}

// IsLoop reports whether the command is one of the two brackets. Brackets
// are handled structurally and have no flat template.
func (c Command) IsLoop() bool {
	return c == LoopOpen || c == LoopClose
}

// Name returns the name of the command.
func (c Command) Name() string {
	switch c {
	case IncPtr:
		return "move-pointer-forward"
	case DecPtr:
		return "move-pointer-backward"
	case IncData:
		return "increment-cell"
	case DecData:
		return "decrement-cell"
	case Output:
		return "output-cell"
	case Input:
		return "input-cell"
	case LoopOpen:
		return "loop-open"
	case LoopClose:
		return "loop-close"
	default:
		return "none"
	}
}

// Symbol returns the source symbol of the command.
func (c Command) Symbol() byte {
	switch c {
	case IncPtr:
		return '>'
	case DecPtr:
		return '<'
	case IncData:
		return '+'
	case DecData:
		return '-'
	case Output:
		return '.'
	case Input:
		return ','
	case LoopOpen:
		return '['
	case LoopClose:
		return ']'
	default:
		panic("invalid command")
	}
}

func (c Command) String() string {
	return c.Name()
}

// Strip returns src with every byte outside the alphabet removed.
func Strip(src []byte) []byte {
	out := make([]byte, 0, len(src))
	for _, b := range src {
		if IsCommand(b) {
			out = append(out, b)
		}
	}
	return out
}
