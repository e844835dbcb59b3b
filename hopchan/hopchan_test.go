package hopchan

import (
	"testing"

	"pgregory.net/rapid"
)

// S1: channel table determinism.
func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(10, 50, 42)
	b := Generate(10, 50, 42)

	if a != b {
		t.Fatalf("two generators with the same seed produced different tables:\n%v\n%v", a, b)
	}
	if a[0] != 125 {
		t.Fatalf("table[0] = %d, want 125", a[0])
	}

	seen := map[byte]bool{}
	for _, ch := range a[1:] {
		if ch < 10 || ch > 50 {
			t.Fatalf("channel %d out of bounds [10,50]", ch)
		}
		if seen[ch] {
			t.Fatalf("channel %d repeated in table[1:]", ch)
		}
		seen[ch] = true
	}
	if len(seen) != 39 {
		t.Fatalf("got %d distinct channels in table[1:], want 39", len(seen))
	}
}

func TestGenerate_DifferentSeedsDiffer(t *testing.T) {
	a := Generate(10, 50, 1)
	b := Generate(10, 50, 2)
	if a == b {
		t.Fatal("different seeds produced identical tables (statistically implausible)")
	}
}

func TestGenerate_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		low := rapid.Byte().Draw(t, "low")
		span := rapid.IntRange(39, 255).Draw(t, "span")
		high := low
		if int(low)+span <= 255 {
			high = low + byte(span)
		} else {
			// keep the pairing's channel span representable in a byte
			t.Skip("span does not fit above low")
		}
		seed := rapid.Int64().Draw(t, "seed")

		a := Generate(low, high, seed)
		b := Generate(low, high, seed)
		if a != b {
			t.Fatalf("same (low=%d,high=%d,seed=%d) produced different tables", low, high, seed)
		}
		if a[0] != 125 {
			t.Fatalf("table[0] = %d, want 125", a[0])
		}
	})
}
