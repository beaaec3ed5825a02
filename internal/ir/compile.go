package ir

import (
	"github.com/gobrainfuck/bfvm/internal/stack"
)

// CompileLinked lexes, folds, and links src into IR₁: brackets are matched
// by index and unmatched brackets are silently dropped, but no loop-idiom
// rewriting has happened yet. This is what the hot-loop interpreter wants
// so it can perform its own lazy pattern recognition against live loop
// bodies (spec §4.E: mode E "consumes IR₁ or IR₂").
func CompileLinked(src []byte) (*Program, error) {
	tokens := filterTokens(src)
	ops := make([]Op, 0, len(tokens))
	openStack := stack.NewStack()

	for i := 0; i < len(tokens); {
		b := tokens[i]
		switch b {
		case '[':
			openStack.Push(len(ops))
			ops = append(ops, Op{Kind: LoopOpen})
			i++
		case ']':
			openIdx, err := openStack.Pop()
			if err != nil {
				// Unmatched ']': drop it silently.
				i++
				continue
			}
			ops[openIdx].Operand = len(ops)
			ops = append(ops, Op{Kind: LoopClose, Operand: openIdx})
			i++
		default:
			if kind, ok := fusibleKind(b); ok {
				start := i
				i++
				for i < len(tokens) && tokens[i] == b {
					i++
				}
				ops = append(ops, Op{Kind: kind, Operand: i - start})
			} else {
				ops = append(ops, Op{Kind: ioKind(b)})
				i++
			}
		}
	}

	ops = dropUnmatchedOpens(ops, openStack.Values())
	return &Program{Ops: ops, Source: src}, nil
}

// Compile produces IR₂: CompileLinked followed by Optimize. This is what
// most callers want, and what the AOT specializer always requires.
func Compile(src []byte) (*Program, error) {
	p, err := CompileLinked(src)
	if err != nil {
		return nil, err
	}
	return Optimize(p)
}

// filterTokens reduces src to only the eight recognized operator bytes,
// dropping whitespace and comment bytes. Because fusion runs against this
// already-whitespace-free stream, a run like "+  +" folds exactly as a
// literal "++" would.
func filterTokens(src []byte) []byte {
	out := make([]byte, 0, len(src))
	for _, b := range src {
		switch b {
		case '>', '<', '+', '-', '.', ',', '[', ']':
			out = append(out, b)
		}
	}
	return out
}

func fusibleKind(b byte) (OpKind, bool) {
	switch b {
	case '>':
		return MoveRight, true
	case '<':
		return MoveLeft, true
	case '+':
		return Add, true
	case '-':
		return Sub, true
	default:
		return 0, false
	}
}

func ioKind(b byte) OpKind {
	switch b {
	case '.':
		return Output
	case ',':
		return Input
	default:
		panic("ir: filterTokens produced an unrecognized byte")
	}
}

// dropUnmatchedOpens removes the LoopOpen ops left on the stack at
// end-of-input (unmatched '[') while preserving the body ops between each
// stray '[' and end of input, and re-resolving every remaining
// LoopOpen/LoopClose operand against the compacted indices.
func dropUnmatchedOpens(ops []Op, unmatched []int) []Op {
	if len(unmatched) == 0 {
		return ops
	}
	remove := make(map[int]bool, len(unmatched))
	for _, idx := range unmatched {
		remove[idx] = true
	}

	newIndex := make([]int, len(ops))
	compacted := make([]Op, 0, len(ops)-len(unmatched))
	shift := 0
	for i, op := range ops {
		if remove[i] {
			shift++
			newIndex[i] = -1
			continue
		}
		newIndex[i] = i - shift
		compacted = append(compacted, op)
	}
	for i := range compacted {
		if compacted[i].Kind == LoopOpen || compacted[i].Kind == LoopClose {
			compacted[i].Operand = newIndex[compacted[i].Operand]
		}
	}

	// Dropping a LoopOpen can leave two runs of the same fusible kind
	// directly adjacent (e.g. "+[+" compacts to two separate Add ops), so
	// re-fuse before returning to preserve the no-unfused-run invariant.
	fused, fuseIndex := fuseAdjacent(compacted)
	for i := range fused {
		if fused[i].Kind == LoopOpen || fused[i].Kind == LoopClose {
			fused[i].Operand = fuseIndex[fused[i].Operand]
		}
	}
	return fused
}

// fuseAdjacent merges consecutive ops of the same fusible kind, returning
// the fused slice along with a mapping from each index in ops to its index
// in the result (used to re-resolve LoopOpen/LoopClose links afterward).
func fuseAdjacent(ops []Op) ([]Op, []int) {
	fused := make([]Op, 0, len(ops))
	index := make([]int, len(ops))
	for i := 0; i < len(ops); {
		op := ops[i]
		j := i + 1
		if isFusible(op.Kind) {
			for j < len(ops) && ops[j].Kind == op.Kind {
				op.Operand += ops[j].Operand
				j++
			}
		}
		for k := i; k < j; k++ {
			index[k] = len(fused)
		}
		fused = append(fused, op)
		i = j
	}
	return fused, index
}
