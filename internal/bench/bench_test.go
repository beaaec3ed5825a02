package bench

import (
	"strings"
	"testing"
	"time"
)

func withFixedClock(t *testing.T, times ...time.Time) {
	t.Helper()
	i := 0
	orig := nowFunc
	nowFunc = func() time.Time {
		v := times[i]
		if i < len(times)-1 {
			i++
		}
		return v
	}
	t.Cleanup(func() { nowFunc = orig })
}

func Test_CountingReader_TalliesBytesRead(t *testing.T) {
	cr := &CountingReader{R: strings.NewReader("hello")}
	buf := make([]byte, 3)
	n, err := cr.Read(buf)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if n != 3 || cr.N != 3 {
		t.Errorf("n=%d cr.N=%d, want 3/3", n, cr.N)
	}
}

func Test_CountingWriter_TalliesBytesWritten(t *testing.T) {
	var sb strings.Builder
	cw := &CountingWriter{W: &sb}
	if _, err := cw.Write([]byte("abcde")); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if cw.N != 5 {
		t.Errorf("cw.N = %d, want 5", cw.N)
	}
}

func Test_Tracker_FinishReportsElapsedAndCounts(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(250 * time.Millisecond)
	withFixedClock(t, start, end)

	tr := Track("aot", strings.NewReader("input"), &strings.Builder{})
	if _, err := tr.In.Read(make([]byte, 5)); err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if _, err := tr.Out.Write([]byte("output!!")); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	res := tr.Finish()
	if res.Mode != "aot" {
		t.Errorf("Mode = %q, want %q", res.Mode, "aot")
	}
	if res.Elapsed != 250*time.Millisecond {
		t.Errorf("Elapsed = %v, want 250ms", res.Elapsed)
	}
	if res.BytesIn != 5 || res.BytesOut != 8 {
		t.Errorf("BytesIn=%d BytesOut=%d, want 5/8", res.BytesIn, res.BytesOut)
	}
	if res.ID == "" {
		t.Errorf("ID should not be empty")
	}
}

func Test_Result_StringIncludesModeAndID(t *testing.T) {
	res := Result{ID: "abc-123", Mode: "jit", Elapsed: time.Second, BytesIn: 10, BytesOut: 20}
	s := res.String()
	if !strings.Contains(s, "abc-123") || !strings.Contains(s, "jit") {
		t.Errorf("String() = %q, want it to contain ID and mode", s)
	}
}
