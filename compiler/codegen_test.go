package compiler

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSExpr(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"5", "5"},
		{"1+2", "(+ 1 2)"},
		{"1+2*3", "(+ 1 (* 2 3))"},
		{"2^3^2", "(expt 2 (expt 3 2))"},
		{"(1+2)^(3*4)", "(expt (+ 1 2) (* 3 4))"},
	}
	for _, tc := range tests {
		if got := SExpr(mustParse(t, tc.input)); got != tc.want {
			t.Errorf("SExpr(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestTranslateC(t *testing.T) {
	got := TranslateC(mustParse(t, "1+2*3^4"))
	want := `#include <stdio.h>
#include <math.h>

int main(void) {
    printf("%d\n", (1+(2*(int) pow(3,4))));
    return 0;
}
`
	if got != want {
		t.Errorf("TranslateC =\n%s\nwant\n%s", got, want)
	}
}

func TestTranslateCLiteralOnly(t *testing.T) {
	got := TranslateC(mustParse(t, "(7)"))
	if !strings.Contains(got, `printf("%d\n", 7);`) {
		t.Errorf("TranslateC body missing literal:\n%s", got)
	}
	if !strings.HasSuffix(got, "}\n") {
		t.Errorf("TranslateC does not end with a newline")
	}
}

func TestEmitCIL(t *testing.T) {
	got := EmitCIL(mustParse(t, "1+2^3"))
	want := `.assembly 'output' { }

.assembly extern int64lib { }

.class public 'Test' extends ['mscorlib']'System'.'Object' {
  .method public static void 'whatever'() {
  .entrypoint
    ldc.i4 1
    ldc.i4 2
    conv.i8
    ldc.i4 3
    conv.i8
    call int64 class ['int64lib']'Int64'.'Utils'::'Pow'(int64, int64)
    conv.i4
    add.ovf
    call void class ['mscorlib']'System'.'Console'::'WriteLine'(int32)
    ret
  }
}
`
	if got != want {
		t.Errorf("EmitCIL =\n%s\nwant\n%s", got, want)
	}
}

func TestEmitCILOperandOrder(t *testing.T) {
	got := EmitCIL(mustParse(t, "(4*5)+6"))
	body := got[strings.Index(got, ".entrypoint")+len(".entrypoint\n"):]
	want := "    ldc.i4 4\n    ldc.i4 5\n    mul.ovf\n    ldc.i4 6\n    add.ovf\n"
	if !strings.HasPrefix(body, want) {
		t.Errorf("body =\n%s\nwant prefix\n%s", body, want)
	}
}

func TestStackDepth(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"1", 1},
		{"1+2", 2},
		{"1+2+3", 2},
		{"1+(2+3)", 3},
		{"2^3^2", 3},
		{"1*(2*(3*(4*5)))", 5},
	}
	for _, tc := range tests {
		if got := StackDepth(mustParse(t, tc.input)); got != tc.want {
			t.Errorf("StackDepth(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestEmitCILMaxStack(t *testing.T) {
	shallow := EmitCIL(mustParse(t, "1+(2+(3+4))"))
	if strings.Contains(shallow, ".maxstack") {
		t.Errorf("shallow program got a .maxstack directive")
	}

	input := strings.Repeat("1+(", 9) + "1" + strings.Repeat(")", 9)
	deep := EmitCIL(mustParse(t, input))
	if !strings.Contains(deep, "  .entrypoint\n    .maxstack 10\n") {
		t.Errorf("deep program missing .maxstack 10:\n%s", deep)
	}
	depth, err := VerifyCIL(deep)
	if err != nil {
		t.Fatalf("VerifyCIL: %v", err)
	}
	if depth != 10 {
		t.Errorf("verified depth = %d, want 10", depth)
	}
}

// Every emitted program keeps the stack balanced, and the depth the
// simulator observes matches StackDepth.
func TestEmitCILStackBalance(t *testing.T) {
	inputs := []string{
		"1",
		"1+2",
		"1+2*3",
		"2^3^2",
		"(1+2)*(3+4)^(5*6)",
		"1^2^3^4^5",
		"((1+2)+(3+4))*((5+6)+(7+8))",
		strings.Repeat("2*", 30) + "2",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			root := mustParse(t, input)
			depth, err := VerifyCIL(EmitCIL(root))
			if err != nil {
				t.Fatalf("VerifyCIL: %v", err)
			}
			if want := StackDepth(root); depth != want {
				t.Errorf("max depth = %d, want %d", depth, want)
			}
		})
	}
}

func TestVerifyCILRejectsBrokenListings(t *testing.T) {
	good := EmitCIL(mustParse(t, "1+2"))
	tests := []struct {
		name string
		edit func(string) string
		msg  string
	}{
		{"missing operand", func(s string) string {
			return strings.Replace(s, "    ldc.i4 2\n", "", 1)
		}, "stack underflow"},
		{"extra value", func(s string) string {
			return strings.Replace(s, "    add.ovf\n", "    add.ovf\n    ldc.i4 9\n", 1)
		}, "print needs exactly one value"},
		{"unknown instruction", func(s string) string {
			return strings.Replace(s, "add.ovf", "sub.ovf", 1)
		}, "unknown instruction"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := VerifyCIL(tc.edit(good))
			var se *StackError
			if !errors.As(err, &se) {
				t.Fatalf("VerifyCIL error = %v, want *StackError", err)
			}
			if se.Msg != tc.msg {
				t.Errorf("msg = %q, want %q", se.Msg, tc.msg)
			}
		})
	}

	if _, err := VerifyCIL("ldc.i4 1\n"); err == nil {
		t.Errorf("listing without .entrypoint accepted")
	}
}

func TestBackendsAreIdempotent(t *testing.T) {
	root := mustParse(t, "(1+2)*3^2+4")
	for _, b := range Backends() {
		first, err := b.Emit(root)
		if err != nil {
			t.Fatalf("%s: %v", b.Name(), err)
		}
		// Interleave another backend between the two runs.
		SExpr(root)
		second, _ := b.Emit(root)
		if first != second {
			t.Errorf("%s output changed between runs", b.Name())
		}
	}
}

func TestBackendsDoNotMutateTree(t *testing.T) {
	root := mustParse(t, "2^3^2+1*4")
	before := root.StringTree()
	for _, b := range Backends() {
		if _, err := b.Emit(root); err != nil {
			t.Fatalf("%s: %v", b.Name(), err)
		}
	}
	if after := root.StringTree(); after != before {
		t.Errorf("tree changed:\n%s\nwas\n%s", after, before)
	}
}

func TestLookupBackend(t *testing.T) {
	for _, name := range append(DefaultBackendNames(), BackendTree) {
		b, err := LookupBackend(name)
		if err != nil {
			t.Errorf("LookupBackend(%q): %v", name, err)
			continue
		}
		if b.Name() != name {
			t.Errorf("LookupBackend(%q).Name() = %q", name, b.Name())
		}
	}
	if _, err := LookupBackend("llvm"); err == nil {
		t.Errorf("LookupBackend(llvm) succeeded")
	}
	if got := fmt.Sprint(DefaultBackendNames()); got != "[eval sexpr c cil]" {
		t.Errorf("DefaultBackendNames = %s", got)
	}
}

func TestEvalBackendReportsOverflow(t *testing.T) {
	b, _ := LookupBackend(BackendEval)
	if _, err := b.Emit(mustParse(t, "2^40")); !errors.Is(err, ErrOverflow) {
		t.Errorf("eval backend error = %v, want ErrOverflow", err)
	}
}

// A leading zero means octal to C, and 09 is not a C constant at all, so
// every target renders literals without them.
func TestLeadingZeroLiterals(t *testing.T) {
	tests := []struct {
		input string
		sexpr string
		cBody string
		loads []string
	}{
		{"010", "10", `printf("%d\n", 10);`, []string{"ldc.i4 10"}},
		{"09+1", "(+ 9 1)", `printf("%d\n", (9+1));`, []string{"ldc.i4 9", "ldc.i4 1"}},
		{"000^007", "(expt 0 7)", `printf("%d\n", (int) pow(0,7));`, []string{"ldc.i4 0", "ldc.i4 7"}},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			root := mustParse(t, tc.input)
			if got := SExpr(root); got != tc.sexpr {
				t.Errorf("SExpr = %q, want %q", got, tc.sexpr)
			}
			if c := TranslateC(root); !strings.Contains(c, tc.cBody) {
				t.Errorf("TranslateC missing %q:\n%s", tc.cBody, c)
			}
			cil := EmitCIL(root)
			for _, load := range tc.loads {
				if !strings.Contains(cil, "    "+load+"\n") {
					t.Errorf("EmitCIL missing %q:\n%s", load, cil)
				}
			}
		})
	}
}

func TestTargetsRejectOutOfRangeLiterals(t *testing.T) {
	root := mustParse(t, "1+99999999999")
	for _, name := range []string{BackendC, BackendCIL, BackendEval} {
		b, _ := LookupBackend(name)
		_, err := b.Emit(root)
		var ee *EvalError
		if !errors.As(err, &ee) || !errors.Is(err, ErrOverflow) || ee.Op != KindLiteral {
			t.Errorf("%s error = %v, want literal overflow", name, err)
			continue
		}
		if ee.Pos.Column != 3 {
			t.Errorf("%s error column = %d, want 3", name, ee.Pos.Column)
		}
	}

	b, _ := LookupBackend(BackendSExpr)
	if out, err := b.Emit(root); err != nil || out != "(+ 1 99999999999)" {
		t.Errorf("sexpr = %q, %v", out, err)
	}

	if err := CheckLiterals(mustParse(t, "2147483647*0002147483647")); err != nil {
		t.Errorf("CheckLiterals(in range) = %v", err)
	}
}

func TestCacheable(t *testing.T) {
	for _, name := range DefaultBackendNames() {
		if !Cacheable(name) {
			t.Errorf("%s not cacheable", name)
		}
	}
	if Cacheable(BackendTree) {
		t.Errorf("tree dump marked cacheable")
	}
}
