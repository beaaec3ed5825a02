package ir

import (
	"fmt"
	"sort"

	"github.com/gobrainfuck/bfvm/internal/stack"
)

// Optimize rewrites a well-formed, already-linked Program (IR₁) into IR₂:
// every loop is examined bottom-up as its LoopClose is reached, and
// recognized idioms are replaced by a single Zero/Copy/MulAdd/Scan op.
// Processing bottom-up (inner loops finalized before outer ones) is what
// keeps LoopOpen/LoopClose operands correct after a nested loop collapses
// (spec §4.B).
func Optimize(p *Program) (*Program, error) {
	ops := make([]Op, 0, len(p.Ops))
	openStack := stack.NewStack()

	for _, o := range p.Ops {
		switch o.Kind {
		case LoopOpen:
			openStack.Push(len(ops))
			ops = append(ops, Op{Kind: LoopOpen})
		case LoopClose:
			openIdx, err := openStack.Pop()
			if err != nil {
				return nil, fmt.Errorf("ir: Optimize given a Program with an unmatched LoopClose")
			}
			body := ops[openIdx+1:]
			if rewritten, ok := RecognizeLoop(body); ok {
				ops = append(ops[:openIdx], rewritten)
			} else {
				ops[openIdx].Operand = len(ops)
				ops = append(ops, Op{Kind: LoopClose, Operand: openIdx})
			}
		default:
			ops = append(ops, o)
		}
	}
	if !openStack.IsEmpty() {
		return nil, fmt.Errorf("ir: Optimize given a Program with an unmatched LoopOpen")
	}
	return &Program{Ops: ops, Source: p.Source}, nil
}

// RecognizeLoop attempts to replace a loop body with a single high-level
// op, trying, in order, the Zero, balanced-decrement-loop, and Scan
// recognizers of the loop optimizer. It is exported so the hot-loop
// interpreter can run the same analysis lazily against a live body once a
// LoopOpen crosses the hotness threshold.
func RecognizeLoop(body []Op) (Op, bool) {
	if op, ok := recognizeZero(body); ok {
		return op, true
	}
	if op, ok := recognizeBalancedDecrement(body); ok {
		return op, true
	}
	if op, ok := recognizeScan(body); ok {
		return op, true
	}
	return Op{}, false
}

// recognizeZero matches "[-]" / "[+]": a body that is exactly one Add or
// Sub of run-length 1.
func recognizeZero(body []Op) (Op, bool) {
	if len(body) != 1 {
		return Op{}, false
	}
	o := body[0]
	if (o.Kind == Add || o.Kind == Sub) && o.Operand == 1 {
		return Op{Kind: Zero}, true
	}
	return Op{}, false
}

// recognizeScan matches "[>]" / "[<]" and their multi-step generalizations:
// a body that is exactly one MoveLeft or MoveRight.
func recognizeScan(body []Op) (Op, bool) {
	if len(body) != 1 {
		return Op{}, false
	}
	o := body[0]
	switch o.Kind {
	case MoveLeft:
		return Op{Kind: ScanLeft, Operand: -o.Operand}, true
	case MoveRight:
		return Op{Kind: ScanRight, Operand: o.Operand}, true
	default:
		return Op{}, false
	}
}

// recognizeBalancedDecrement matches loops like "[->+<]" or
// "[->+>+<<]": the body decrements the current cell by exactly one,
// returns the cursor to its start, and changes every other visited cell by
// a fixed per-iteration delta. It covers Copy and MulAdd, and degenerates
// to Zero when every other cell nets to no change.
func recognizeBalancedDecrement(body []Op) (Op, bool) {
	if len(body) == 0 || body[0].Kind != Sub || body[0].Operand != 1 {
		return Op{}, false
	}

	pos := 0
	deltas := map[int]int{0: -1}
	for _, o := range body[1:] {
		switch o.Kind {
		case MoveLeft:
			pos -= o.Operand
		case MoveRight:
			pos += o.Operand
		case Add:
			deltas[pos] += o.Operand
		case Sub:
			deltas[pos] -= o.Operand
		default:
			return Op{}, false
		}
	}
	if pos != 0 {
		return Op{}, false
	}

	delete(deltas, 0)

	offsets := make([]int, 0, len(deltas))
	for off, d := range deltas {
		if d != 0 {
			offsets = append(offsets, off)
		}
	}
	if len(offsets) == 0 {
		return Op{Kind: Zero}, true
	}
	sort.Ints(offsets)

	if len(offsets) == 1 && deltas[offsets[0]] == 1 {
		return Op{Kind: Copy, Operand: offsets[0]}, true
	}

	targets := make([]MulAddTarget, len(offsets))
	for i, off := range offsets {
		targets[i] = MulAddTarget{Offset: off, Factor: deltas[off]}
	}
	return Op{Kind: MulAdd, Targets: targets}, true
}
