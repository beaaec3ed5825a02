package ir

import "testing"

func Test_Compile_EmptyInput(t *testing.T) {
	p, err := Compile(nil)
	if err != nil {
		t.Fatalf("Compile(nil) returned error: %v", err)
	}
	if len(p.Ops) != 0 {
		t.Errorf("expected empty IR, got %d ops", len(p.Ops))
	}
}

func Test_Compile_WhitespaceAndCommentsOnly(t *testing.T) {
	p, err := Compile([]byte("  \t\n hello world \r\n "))
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if len(p.Ops) != 0 {
		t.Errorf("expected empty IR, got %d ops", len(p.Ops))
	}
}

func Test_Compile_FusesRunsAcrossWhitespace(t *testing.T) {
	p, err := Compile([]byte("+ + \n +"))
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if len(p.Ops) != 1 {
		t.Fatalf("expected 1 fused op, got %d", len(p.Ops))
	}
	if p.Ops[0].Kind != Add || p.Ops[0].Operand != 3 {
		t.Errorf("got %v/%d, want Add/3", p.Ops[0].Kind, p.Ops[0].Operand)
	}
}

func Test_Compile_DoesNotFuseAcrossDifferentKinds(t *testing.T) {
	p, err := Compile([]byte("++>>--"))
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	want := []Op{
		{Kind: Add, Operand: 2},
		{Kind: MoveRight, Operand: 2},
		{Kind: Sub, Operand: 2},
	}
	assertOps(t, p.Ops, want)
}

func Test_Compile_UnmatchedCloseIsDropped(t *testing.T) {
	p, err := Compile([]byte("]"))
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if len(p.Ops) != 0 {
		t.Errorf("expected unmatched ']' to vanish, got %d ops", len(p.Ops))
	}
}

func Test_Compile_UnmatchedOpenPreservesBody(t *testing.T) {
	// The stray '[' is dropped; the '+' and '.' after it survive.
	p, err := Compile([]byte("[+."))
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	want := []Op{
		{Kind: Add, Operand: 1},
		{Kind: Output},
	}
	assertOps(t, p.Ops, want)
}

func Test_Compile_UnmatchedOpenAtStartIsNoOp(t *testing.T) {
	// From spec §8 Boundaries: "Unmatched ']' at start of program runs as
	// no-op program." A leading unmatched '[' with no body also produces
	// an empty program.
	p, err := Compile([]byte("["))
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if len(p.Ops) != 0 {
		t.Errorf("expected empty IR, got %d ops", len(p.Ops))
	}
}

func Test_Compile_UnmatchedOpenReindexesInnerLoop(t *testing.T) {
	// "[+[]" : the inner "[]" is a real, matched (if pointless) loop; the
	// outer '[' is unmatched and must be dropped without breaking the
	// inner loop's linkage.
	p, err := Compile([]byte("[+[]"))
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	want := []Op{
		{Kind: Add, Operand: 1},
		{Kind: LoopOpen, Operand: 2},
		{Kind: LoopClose, Operand: 1},
	}
	assertOps(t, p.Ops, want)
	if err := Validate(p); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func Test_Compile_RefusesAcrossDroppedOpen(t *testing.T) {
	// "+[+" drops the unmatched '[', which would otherwise leave two
	// adjacent Add ops uncombined; Compile must re-fuse them into one.
	p, err := Compile([]byte("+[+"))
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	want := []Op{
		{Kind: Add, Operand: 2},
	}
	assertOps(t, p.Ops, want)
	if err := Validate(p); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func Test_Compile_BracketLinking(t *testing.T) {
	p, err := Compile([]byte("+[-]+"))
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	// "[-]" collapses to a single Zero op, so no LoopOpen/LoopClose
	// survives; verify via a program that keeps its loop intact instead.
	p2, err := Compile([]byte("+[>+]"))
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if err := Validate(p2); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
	var opens, closes int
	for i, op := range p2.Ops {
		switch op.Kind {
		case LoopOpen:
			opens++
			if p2.Ops[op.Operand].Kind != LoopClose || p2.Ops[op.Operand].Operand != i {
				t.Errorf("LoopOpen at %d is not correctly linked", i)
			}
		case LoopClose:
			closes++
		}
	}
	if opens != 1 || closes != 1 {
		t.Errorf("expected exactly one linked loop, got %d opens %d closes", opens, closes)
	}
	if len(p.Ops) != 3 {
		t.Errorf("expected Zero-collapsed program to have 3 ops (Add, Zero, Add), got %d", len(p.Ops))
	}
}

func Test_Compile_IsIdempotentUnderRefolding(t *testing.T) {
	// Run-length folding is idempotent: compiling an already-folded IR's
	// source representation again yields the same op sequence.
	src := []byte("+++>>>---<[->+<]")
	p1, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	p2, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	assertOps(t, p2.Ops, p1.Ops)
}

func assertOps(t *testing.T, got, want []Op) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("op count mismatch: got %d, want %d (%+v vs %+v)", len(got), len(want), got, want)
	}
	for i := range got {
		if got[i].Kind != want[i].Kind || got[i].Operand != want[i].Operand {
			t.Errorf("op %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}
