// Package aot is the specializer (component D): it lowers an already
// loop-idiom-optimized ir.Program (IR₂) into a reduced instruction list with
// cursor movement pre-batched into each step's embedded offset, then
// executes that list with a tight switch-dispatch loop. Non-goals forbid
// native machine-code emission, so this is a Go-native analogue of the
// teacher's mmap'd amd64 JIT: same translate -> optimize -> specialize ->
// execute shape, no unsafe/syscall.
package aot

import (
	"fmt"
	"io"

	"github.com/gobrainfuck/bfvm/internal/ir"
	"github.com/gobrainfuck/bfvm/internal/stack"
	"github.com/gobrainfuck/bfvm/internal/tape"
)

// stepKind identifies the operation a step performs. It mirrors ir.OpKind
// but folds MoveLeft/MoveRight out entirely: their effect is absorbed into
// the offset carried by every other step (spec §4.D offset batching).
type stepKind int

const (
	stepAdd stepKind = iota
	stepOutput
	stepInput
	stepLoopOpen
	stepLoopClose
	stepZero
	stepCopy
	stepMulAdd
	stepScanLeft
	stepScanRight
)

// step is one lowered instruction. offset is the cursor displacement,
// cumulative since the last flush point (Input, Output, Scan, or a loop
// boundary), that must be applied before the step's effect; delta is the
// operand for stepAdd; targets carries stepMulAdd's (offset, factor) pairs,
// already expressed relative to the step's own offset; match is the paired
// step's index for stepLoopOpen/stepLoopClose, exactly as ir.Op.Operand
// links LoopOpen/Close.
type step struct {
	kind    stepKind
	offset  int
	delta   int
	targets []ir.MulAddTarget
	match   int
}

// Routine is a compiled, ready-to-run program.
type Routine struct {
	steps []step
}

// Compile lowers an IR₂ program into a Routine. It requires p to already be
// loop-idiom-optimized (ir.Compile's output, not ir.CompileLinked's): the
// AOT path never performs its own pattern recognition, matching spec §4.D's
// "D always consumes IR₂".
func Compile(p *ir.Program) (*Routine, error) {
	steps := make([]step, 0, len(p.Ops))
	openStack := stack.NewStack()
	staticOff := 0

	flushBoundary := func() {
		staticOff = 0
	}
	// seekOnly emits an Add of 0, a step whose only effect is moving the
	// cursor to staticOff. It is placed where moves reverse direction and
	// after trailing moves, so every seek covers moves that all go one way.
	seekOnly := func() {
		steps = append(steps, step{kind: stepAdd, offset: staticOff})
	}

	for i, o := range p.Ops {
		switch o.Kind {
		case ir.MoveLeft:
			if i > 0 && p.Ops[i-1].Kind == ir.MoveRight {
				seekOnly()
			}
			staticOff -= o.Operand
		case ir.MoveRight:
			if i > 0 && p.Ops[i-1].Kind == ir.MoveLeft {
				seekOnly()
			}
			staticOff += o.Operand
		case ir.Add:
			steps = append(steps, step{kind: stepAdd, offset: staticOff, delta: o.Operand})
		case ir.Sub:
			steps = append(steps, step{kind: stepAdd, offset: staticOff, delta: -o.Operand})
		case ir.Output:
			steps = append(steps, step{kind: stepOutput, offset: staticOff})
			flushBoundary()
		case ir.Input:
			steps = append(steps, step{kind: stepInput, offset: staticOff})
			flushBoundary()
		case ir.Zero:
			steps = append(steps, step{kind: stepZero, offset: staticOff})
		case ir.Copy:
			steps = append(steps, step{kind: stepCopy, offset: staticOff, delta: o.Operand})
		case ir.MulAdd:
			steps = append(steps, step{kind: stepMulAdd, offset: staticOff, targets: o.Targets})
		case ir.ScanLeft:
			steps = append(steps, step{kind: stepScanLeft, offset: staticOff, delta: o.Operand})
			flushBoundary()
		case ir.ScanRight:
			steps = append(steps, step{kind: stepScanRight, offset: staticOff, delta: o.Operand})
			flushBoundary()
		case ir.LoopOpen:
			openStack.Push(len(steps))
			steps = append(steps, step{kind: stepLoopOpen, offset: staticOff})
			flushBoundary()
		case ir.LoopClose:
			openIdx, err := openStack.Pop()
			if err != nil {
				return nil, fmt.Errorf("aot: Compile given a Program with an unmatched LoopClose")
			}
			steps[openIdx].match = len(steps)
			steps = append(steps, step{kind: stepLoopClose, offset: staticOff, match: openIdx})
			flushBoundary()
		default:
			return nil, fmt.Errorf("aot: Compile given an unexpected op kind %v (did you pass IR1?)", o.Kind)
		}
	}
	if !openStack.IsEmpty() {
		return nil, fmt.Errorf("aot: Compile given a Program with an unmatched LoopOpen")
	}
	if n := len(p.Ops); n > 0 && (p.Ops[n-1].Kind == ir.MoveLeft || p.Ops[n-1].Kind == ir.MoveRight) {
		seekOnly()
	}
	return &Routine{steps: steps}, nil
}

// RunOptions carries the I/O sinks the routine reads and writes through.
type RunOptions struct {
	In  io.Reader
	Out io.Writer
}

// Run executes r against t. Each step's offset is cumulative since the last
// flush point, not relative to the previous step, so Run tracks curOff (the
// portion of the current window's offset already applied to the cursor) and
// seeks by the remainder; curOff resets to 0 at every flush point (Input,
// Output, Scan, and loop boundaries), matching where Compile reset
// staticOff when it emitted these steps.
func (r *Routine) Run(t *tape.Tape, opts RunOptions) error {
	pc := 0
	curOff := 0
	for pc < len(r.steps) {
		s := r.steps[pc]
		seek(t, s.offset-curOff)
		curOff = s.offset
		switch s.kind {
		case stepAdd:
			t.Add(s.delta)
		case stepOutput:
			if err := t.WriteByte(opts.Out); err != nil {
				return fmt.Errorf("aot: output at pc=%d: %w", pc, err)
			}
			curOff = 0
		case stepInput:
			if err := t.ReadByte(opts.In); err != nil {
				return fmt.Errorf("aot: input at pc=%d: %w", pc, err)
			}
			curOff = 0
		case stepZero:
			t.SetCurrent(0)
		case stepCopy:
			applyCopy(t, s.delta)
		case stepMulAdd:
			applyMulAdd(t, s.targets)
		case stepScanLeft:
			t.ScanUntilZero(s.delta)
			curOff = 0
		case stepScanRight:
			t.ScanUntilZero(s.delta)
			curOff = 0
		case stepLoopOpen:
			curOff = 0
			if t.Current() == 0 {
				pc = s.match + 1
				continue
			}
		case stepLoopClose:
			curOff = 0
			if t.Current() != 0 {
				pc = s.match + 1
				continue
			}
		default:
			panic(fmt.Sprintf("aot: unhandled step kind %v at pc=%d", s.kind, pc))
		}
		pc++
	}
	return nil
}

// seek moves the cursor by delta, the distance not yet covered since the
// last seek within the current flush window. Compile places a step wherever
// moves reverse direction, so the moves one seek covers all go the same way
// and clamping their net sum once gives the same cursor as clamping each
// unit step (see DESIGN.md).
func seek(t *tape.Tape, delta int) {
	if delta > 0 {
		t.MoveRight(delta)
	} else if delta < 0 {
		t.MoveLeft(-delta)
	}
}

func applyCopy(t *tape.Tape, targetOffset int) {
	cur := t.Cursor()
	v := t.Current()
	t.AddAt(cur+targetOffset, int(v))
	t.SetCurrent(0)
}

func applyMulAdd(t *tape.Tape, targets []ir.MulAddTarget) {
	cur := t.Cursor()
	v := int(t.Current())
	for _, tg := range targets {
		t.AddAt(cur+tg.Offset, v*tg.Factor)
	}
	t.SetCurrent(0)
}
