// Package interp is the hot-loop interpreter (component E): it walks the
// IR directly, and once a LoopOpen's execution count crosses a hotness
// threshold, it lazily attempts the same idiom recognition as the loop
// optimizer against the live body and substitutes the recognized effect.
package interp

import (
	"fmt"
	"io"

	"github.com/gobrainfuck/bfvm/internal/ir"
	"github.com/gobrainfuck/bfvm/internal/tape"
)

// hotThreshold is the per-LoopOpen execution count that triggers a
// pattern-recognition attempt (spec §4.E).
const hotThreshold = 10

// RunOptions carries the explicit I/O sinks the core is required to accept
// for testability (spec §6).
type RunOptions struct {
	In  io.Reader
	Out io.Writer
}

// Run interprets p against t, applying opts.In/opts.Out for the program's
// ',' and '.' operators.
func Run(p *ir.Program, t *tape.Tape, opts RunOptions) error {
	m := &machine{
		prog:      p,
		tape:      t,
		opts:      opts,
		hotCount:  make(map[int]int),
		noPattern: make(map[int]bool),
	}
	return m.run()
}

type machine struct {
	prog      *ir.Program
	tape      *tape.Tape
	opts      RunOptions
	hotCount  map[int]int
	noPattern map[int]bool
}

func (m *machine) run() error {
	ops := m.prog.Ops
	pc := 0
	for pc < len(ops) {
		op := ops[pc]
		switch op.Kind {
		case ir.MoveLeft:
			m.tape.MoveLeft(op.Operand)
		case ir.MoveRight:
			m.tape.MoveRight(op.Operand)
		case ir.Add:
			m.tape.Add(op.Operand)
		case ir.Sub:
			m.tape.Sub(op.Operand)
		case ir.Output:
			if err := m.tape.WriteByte(m.opts.Out); err != nil {
				return fmt.Errorf("interp: output at pc=%d: %w", pc, err)
			}
		case ir.Input:
			if err := m.tape.ReadByte(m.opts.In); err != nil {
				return fmt.Errorf("interp: input at pc=%d: %w", pc, err)
			}
		case ir.Zero, ir.Copy, ir.MulAdd, ir.ScanLeft, ir.ScanRight:
			applyRecognized(m.tape, op)
		case ir.LoopOpen:
			if target, jumped := m.maybeSpecialize(pc, op); jumped {
				pc = target
				continue
			}
			if m.tape.Current() == 0 {
				pc = op.Operand + 1
				continue
			}
		case ir.LoopClose:
			if m.tape.Current() != 0 {
				if target, jumped := m.maybeSpecialize(op.Operand, ops[op.Operand]); jumped {
					pc = target
					continue
				}
				pc = op.Operand + 1
				continue
			}
		default:
			panic(fmt.Sprintf("interp: unhandled op kind %v at pc=%d", op.Kind, pc))
		}
		pc++
	}
	return nil
}

// maybeSpecialize increments the LoopOpen's hot count and, once it crosses
// hotThreshold, attempts pattern recognition against the live body. On a
// recognized pattern it applies the effect once and reports the pc to jump
// to (the op after the matching LoopClose). It runs each time the loop is
// entered at its LoopOpen and each time its LoopClose jumps back, so every
// iteration counts, regardless of the current cell's value: the recognized
// ops are equivalent to running the loop to completion from the current
// state, and if the current cell is already zero that completion is a
// no-op, matching normal interpretation falling straight through.
func (m *machine) maybeSpecialize(pc int, op ir.Op) (int, bool) {
	if m.noPattern[pc] {
		return 0, false
	}
	m.hotCount[pc]++
	if m.hotCount[pc] < hotThreshold {
		return 0, false
	}
	body := m.prog.Ops[pc+1 : op.Operand]
	rewritten, ok := ir.RecognizeLoop(body)
	if !ok {
		m.noPattern[pc] = true
		return 0, false
	}
	applyRecognized(m.tape, rewritten)
	return op.Operand + 1, true
}

// applyRecognized executes the tape effect of a Zero/Copy/MulAdd/Scan op.
func applyRecognized(t *tape.Tape, op ir.Op) {
	switch op.Kind {
	case ir.Zero:
		t.SetCurrent(0)
	case ir.Copy:
		cur := t.Cursor()
		v := t.Current()
		t.AddAt(cur+op.Operand, int(v))
		t.SetCurrent(0)
	case ir.MulAdd:
		cur := t.Cursor()
		v := int(t.Current())
		for _, tg := range op.Targets {
			t.AddAt(cur+tg.Offset, v*tg.Factor)
		}
		t.SetCurrent(0)
	case ir.ScanLeft, ir.ScanRight:
		t.ScanUntilZero(op.Operand)
	}
}
