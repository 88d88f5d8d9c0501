package hash

import (
	"testing"

	"github.com/chazu/arith/compiler"
)

// Kinds are dense from KindProgram; the first kind with no arity ends
// the list.
func nodeKinds() []compiler.NodeKind {
	var kinds []compiler.NodeKind
	for k := compiler.KindProgram; k.Arity() >= 0; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func TestEveryNodeKindHasATag(t *testing.T) {
	fixed := map[compiler.NodeKind]byte{
		compiler.KindProgram: TagProgram,
		compiler.KindLiteral: TagLiteral,
	}
	kinds := nodeKinds()
	if len(kinds) != 5 {
		t.Fatalf("found %d node kinds, want 5", len(kinds))
	}
	for _, k := range kinds {
		_, isFixed := fixed[k]
		_, isBinary := binaryTags[k]
		switch {
		case isFixed && isBinary:
			t.Errorf("%s tagged twice", k)
		case !isFixed && !isBinary:
			t.Errorf("%s has no tag", k)
		case isBinary && k.Arity() != 2:
			t.Errorf("%s in binaryTags with arity %d", k, k.Arity())
		}
	}
}

func TestTagsDistinctAndOutsideReserved(t *testing.T) {
	seen := map[byte]compiler.NodeKind{}
	check := func(k compiler.NodeKind, tag byte) {
		if tag == TagReservedZero || tag >= 0xFE {
			t.Errorf("%s uses reserved tag 0x%02X", k, tag)
		}
		if prev, ok := seen[tag]; ok {
			t.Errorf("%s and %s share tag 0x%02X", k, prev, tag)
		}
		seen[tag] = k
	}
	check(compiler.KindProgram, TagProgram)
	check(compiler.KindLiteral, TagLiteral)
	for k, tag := range binaryTags {
		check(k, tag)
	}
	if len(seen) != len(allTags)-1 {
		t.Errorf("allTags lists %d tags, kinds use %d", len(allTags)-1, len(seen))
	}
}

func TestHashVersionIsFirstByte(t *testing.T) {
	if HashVersion == TagReservedZero {
		t.Fatal("HashVersion collides with the reserved zero tag")
	}
	data := Serialize(mustParse(t, "1"))
	if data[0] != HashVersion || data[1] != TagProgram {
		t.Errorf("prefix = % X, want %02X %02X", data[:2], HashVersion, TagProgram)
	}
}

// A shared key lets the driver hand one program's cached output to
// another, so every cacheable backend must render same-key programs alike.
func TestSameKeySameArtifacts(t *testing.T) {
	groups := [][]string{
		{"7+10", "007+010", "(7)+(0010)"},
		{"0^0", "000^00"},
		{"9*1", "09*001"},
	}
	for _, g := range groups {
		base := mustParse(t, g[0])
		for _, src := range g[1:] {
			other := mustParse(t, src)
			if Key(base) != Key(other) {
				t.Fatalf("Key(%q) != Key(%q)", src, g[0])
			}
			for _, b := range compiler.Backends() {
				if !compiler.Cacheable(b.Name()) {
					continue
				}
				want, _ := b.Emit(base)
				got, _ := b.Emit(other)
				if got != want {
					t.Errorf("%s(%q) = %q, want %q as for %q", b.Name(), src, got, want, g[0])
				}
			}
		}
	}
}
