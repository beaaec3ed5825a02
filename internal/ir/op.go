// Package ir builds the intermediate representation the runtime executes:
// lexing, run-length folding and bracket linking happen in one pass over the
// source bytes (CompileLinked), and loop-idiom recognition in a second pass
// over the linked ops (Optimize).
package ir

// OpKind identifies the operation an Op performs.
type OpKind int

const (
	MoveLeft OpKind = iota
	MoveRight
	Add
	Sub
	Output
	Input
	LoopOpen
	LoopClose
	Zero
	Copy
	MulAdd
	ScanLeft
	ScanRight
)

func (k OpKind) String() string {
	switch k {
	case MoveLeft:
		return "MoveLeft"
	case MoveRight:
		return "MoveRight"
	case Add:
		return "Add"
	case Sub:
		return "Sub"
	case Output:
		return "Output"
	case Input:
		return "Input"
	case LoopOpen:
		return "LoopOpen"
	case LoopClose:
		return "LoopClose"
	case Zero:
		return "Zero"
	case Copy:
		return "Copy"
	case MulAdd:
		return "MulAdd"
	case ScanLeft:
		return "ScanLeft"
	case ScanRight:
		return "ScanRight"
	default:
		return "invalid"
	}
}

// MulAddTarget is one (offset, factor) pair of a MulAdd op.
type MulAddTarget struct {
	Offset int
	Factor int
}

// Op is a single element of the IR. Operand holds the run-length for
// Move/Add/Sub, the matching op's index for LoopOpen/LoopClose, the
// destination offset for Copy, or the stride for ScanLeft/ScanRight.
// Targets is populated only for MulAdd.
type Op struct {
	Kind    OpKind
	Operand int
	Targets []MulAddTarget
}

// isFusible reports whether adjacent ops of this kind are merged by the
// run-length folder.
func isFusible(k OpKind) bool {
	switch k {
	case MoveLeft, MoveRight, Add, Sub:
		return true
	default:
		return false
	}
}

// Program is the ordered sequence of ops produced by Compile.
type Program struct {
	Ops []Op
	// Source is the source text the program was compiled from; Optimize
	// carries it over unchanged. Validate, the CLI's -verify flag and the
	// AOT specializer's error messages do not read it.
	Source []byte
}
