package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/arith/compiler"
)

func newTestLSP() *LspServer {
	return NewLSP()
}

// ---------------------------------------------------------------------------
// Text helpers
// ---------------------------------------------------------------------------

func TestFirstLine(t *testing.T) {
	tests := map[string]string{
		"1+2":          "1+2",
		"1+2\nnotes":   "1+2",
		"1+2\r\nnotes": "1+2",
		"":             "",
		"\nsecond":     "",
	}
	for in, want := range tests {
		if got := firstLine(in); got != want {
			t.Errorf("firstLine(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTokenAt(t *testing.T) {
	line := "12 + 345*6"
	tests := []struct {
		character int
		want      string
		ok        bool
	}{
		{0, "12", true},
		{1, "12", true},
		{2, "", false},
		{3, "+", true},
		{5, "345", true},
		{7, "345", true},
		{8, "*", true},
		{9, "6", true},
		{10, "", false},
		{50, "", false},
	}
	for _, tc := range tests {
		tok, ok := tokenAt(line, tc.character)
		if ok != tc.ok || tok.Text != tc.want {
			t.Errorf("tokenAt(%d) = %q, %v; want %q, %v", tc.character, tok.Text, ok, tc.want, tc.ok)
		}
	}
}

func TestSpanRange(t *testing.T) {
	tests := []struct {
		line           string
		offset, length int
		start, end     protocol.UInteger
	}{
		{"1 + 234", 4, 3, 4, 7},
		{"1+", 2, 0, 2, 3},
		// A rune outside the BMP is two UTF-16 units; é is one.
		{"1+\U0001F600", 2, 4, 2, 4},
		{"\U0001F600+#", 5, 1, 3, 4},
		{"é+#", 3, 1, 2, 3},
		{"1", 9, 1, 1, 2},
	}
	for _, tc := range tests {
		r := spanRange(tc.line, tc.offset, tc.length)
		if r.Start.Character != tc.start || r.End.Character != tc.end || r.Start.Line != 0 {
			t.Errorf("spanRange(%q, %d, %d) = %d-%d, want %d-%d", tc.line, tc.offset, tc.length,
				r.Start.Character, r.End.Character, tc.start, tc.end)
		}
	}
}

func TestTokenAtCountsUTF16(t *testing.T) {
	line := "\U0001F600 12"
	if tok, ok := tokenAt(line, 0); !ok || tok.Kind != compiler.TokenIllegal {
		t.Errorf("tokenAt(0) = %v, %v; want the illegal rune", tok, ok)
	}
	if tok, ok := tokenAt(line, 1); !ok || tok.Kind != compiler.TokenIllegal {
		t.Errorf("tokenAt(1) = %v, %v; want the illegal rune's low surrogate", tok, ok)
	}
	if _, ok := tokenAt(line, 2); ok {
		t.Errorf("tokenAt(2) found a token on the space")
	}
	if tok, ok := tokenAt(line, 3); !ok || tok.Text != "12" {
		t.Errorf("tokenAt(3) = %v, %v; want 12", tok, ok)
	}
}

func TestNodeAnchoredAt(t *testing.T) {
	root, err := compiler.Parse("1+2*3")
	if err != nil {
		t.Fatal(err)
	}
	if n := nodeAnchoredAt(root, 3); n == nil || n.Kind != compiler.KindMul {
		t.Errorf("node at '*' = %v, want Mul", n)
	}
	if n := nodeAnchoredAt(root, 0); n == nil || n.Kind != compiler.KindLiteral {
		t.Errorf("node at '1' = %v, want Literal", n)
	}
	if n := nodeAnchoredAt(root, 99); n != nil {
		t.Errorf("node past end = %v, want nil", n)
	}
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestDiagnose_Valid(t *testing.T) {
	if d := newTestLSP().diagnose("(1+2)*3"); len(d) != 0 {
		t.Errorf("diagnostics for valid input: %+v", d)
	}
}

func TestDiagnose_SyntaxError(t *testing.T) {
	d := newTestLSP().diagnose("1 + \U0001F600")
	if len(d) != 1 {
		t.Fatalf("diagnostics = %+v, want one", d)
	}
	if *d[0].Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v, want error", *d[0].Severity)
	}
	if d[0].Range.Start.Character != 4 || d[0].Range.End.Character != 6 {
		t.Errorf("range = %+v, want characters 4-6", d[0].Range)
	}
	if *d[0].Source != lspName {
		t.Errorf("source = %q", *d[0].Source)
	}
}

func TestDiagnose_Overflow(t *testing.T) {
	d := newTestLSP().diagnose("65536*65536")
	if len(d) != 1 || *d[0].Severity != protocol.DiagnosticSeverityWarning {
		t.Fatalf("diagnostics = %+v, want one warning", d)
	}
	if d[0].Range.Start.Character != 5 || d[0].Range.End.Character != 6 {
		t.Errorf("warning range = %+v, want characters 5-6", d[0].Range)
	}
}

// ---------------------------------------------------------------------------
// Hover
// ---------------------------------------------------------------------------

func TestHover_WholeProgram(t *testing.T) {
	got, ok := hover("(1+2)*3", 0)
	if !ok {
		t.Fatal("no hover for valid program")
	}
	if !strings.Contains(got, "`(* (+ 1 2) 3)`") || !strings.Contains(got, "= 9") {
		t.Errorf("hover = %q", got)
	}
}

func TestHover_Subexpression(t *testing.T) {
	got, ok := hover("(1+2)*3", 2)
	if !ok {
		t.Fatal("no hover")
	}
	if !strings.HasPrefix(got, "**Add** `(+ 1 2)`\n\n= 3\n") {
		t.Errorf("hover = %q", got)
	}
}

func TestHover_InvalidProgram(t *testing.T) {
	if got, ok := hover("1+", 0); ok {
		t.Errorf("hover on malformed input = %q", got)
	}
}
