package store

import (
	"math"
	"testing"

	"github.com/obsidianstack/contexthub/pkg/value"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	// Build the same sequence twice from scratch so no Values are shared.
	mk := func() []value.Value {
		return []value.Value{
			value.String("user"),
			value.Int(42),
			value.Object(map[string]value.Value{
				"region": value.String("eu"),
				"tags":   value.Array(value.Bool(true), value.Null()),
			}),
		}
	}
	k1 := DeriveKey(mk())
	k2 := DeriveKey(mk())
	if k1 != k2 {
		t.Errorf("equal sequences: got %d and %d, want same key", k1, k2)
	}
}

func TestDeriveKey_OrderSensitive(t *testing.T) {
	ab := DeriveKey([]value.Value{value.String("a"), value.String("b")})
	ba := DeriveKey([]value.Value{value.String("b"), value.String("a")})
	if ab == ba {
		t.Error("swapped elements derived the same key")
	}
}

func TestDeriveKey_PrefixFree(t *testing.T) {
	joined := DeriveKey([]value.Value{value.String("ab")})
	split := DeriveKey([]value.Value{value.String("a"), value.String("b")})
	if joined == split {
		t.Error(`["ab"] and ["a","b"] derived the same key`)
	}
}

func TestDeriveKey_KindMatters(t *testing.T) {
	cases := map[string]uint64{
		"int":    DeriveKey([]value.Value{value.Int(1)}),
		"float":  DeriveKey([]value.Value{value.Float(1)}),
		"string": DeriveKey([]value.Value{value.String("1")}),
		"bool":   DeriveKey([]value.Value{value.Bool(true)}),
	}
	seen := make(map[uint64]string)
	for name, k := range cases {
		if prev, dup := seen[k]; dup {
			t.Errorf("%s and %s derived the same key %d", name, prev, k)
		}
		seen[k] = name
	}
}

func TestDeriveKey_NegativeZeroFloat(t *testing.T) {
	pos := value.Float(0)
	neg := value.Float(math.Copysign(0, -1))
	if !pos.Equal(neg) {
		t.Fatal("0.0 and -0.0 compare unequal")
	}
	k1 := DeriveKey([]value.Value{pos})
	k2 := DeriveKey([]value.Value{neg})
	if k1 != k2 {
		t.Errorf("0.0 and -0.0 derived different keys: %d and %d", k1, k2)
	}
}

func TestDeriveKey_NestingMatters(t *testing.T) {
	flat := DeriveKey([]value.Value{value.Int(1), value.Int(2)})
	nested := DeriveKey([]value.Value{value.Array(value.Int(1)), value.Int(2)})
	other := DeriveKey([]value.Value{value.Int(1), value.Array(value.Int(2))})
	if flat == nested || flat == other || nested == other {
		t.Errorf("nesting variants collided: %d %d %d", flat, nested, other)
	}
}

func TestDeriveKey_ObjectFieldOrderIrrelevant(t *testing.T) {
	// Maps have no construction order; assert two separately-built objects
	// with the same fields hash alike.
	a := value.Object(map[string]value.Value{"x": value.Int(1), "y": value.Int(2)})
	b := value.Object(map[string]value.Value{"y": value.Int(2), "x": value.Int(1)})
	if DeriveKey([]value.Value{a}) != DeriveKey([]value.Value{b}) {
		t.Error("equal objects derived different keys")
	}
}

func TestDeriveKey_EmptyVariants(t *testing.T) {
	empty := DeriveKey(nil)
	nullOne := DeriveKey([]value.Value{value.Null()})
	emptyStr := DeriveKey([]value.Value{value.String("")})
	if empty == nullOne || empty == emptyStr || nullOne == emptyStr {
		t.Errorf("empty variants collided: %d %d %d", empty, nullOne, emptyStr)
	}
}
