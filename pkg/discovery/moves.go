package discovery

import "fmt"

// MoveKind is the kind of a single-edge change.
type MoveKind uint8

const (
	Add MoveKind = iota
	Remove
	Reverse
)

func (k MoveKind) String() string {
	switch k {
	case Add:
		return "add"
	case Remove:
		return "remove"
	case Reverse:
		return "reverse"
	}
	return fmt.Sprintf("MoveKind(%d)", k)
}

// Move is a candidate or accepted change of edge From→To. Delta is the
// change in total score it causes.
type Move struct {
	Kind  MoveKind
	From  int
	To    int
	Delta float64
}

// affected returns the variables whose parent set the move changes.
func (m Move) affected() []int {
	if m.Kind == Reverse {
		return []int{m.To, m.From}
	}
	return []int{m.To}
}

// Step is an accepted move in a search history.
type Step struct {
	Move
	// Label names the edge, "A -> B", as it was before the move.
	Label string
	// Score is the total score after the move.
	Score float64
}

// with returns parents plus v.
func with(parents []int, v int) []int {
	out := make([]int, 0, len(parents)+1)
	out = append(out, parents...)
	return append(out, v)
}

// without returns parents minus v.
func without(parents []int, v int) []int {
	out := make([]int, 0, len(parents))
	for _, p := range parents {
		if p != v {
			out = append(out, p)
		}
	}
	return out
}
