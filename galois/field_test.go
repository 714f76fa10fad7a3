package galois

import (
	"math/rand"
	"testing"
)

// TestFieldAxioms checks the axioms required by spec.md section 8 property 2
// for every supported field width.
func TestFieldAxioms(t *testing.T) {
	for power := 1; power <= 8; power++ {
		f, err := ConstructField(power)
		if err != nil {
			t.Fatalf("ConstructField(%d): %v", power, err)
		}
		r := rand.New(rand.NewSource(int64(power)))
		for i := 0; i < 200; i++ {
			a := byte(r.Intn(f.Size))
			b := byte(r.Intn(f.Size))
			c := byte(r.Intn(f.Size))

			if f.Add(a, b) != f.Add(b, a) {
				t.Fatalf("power=%d: add not commutative for %d,%d", power, a, b)
			}
			if f.Multiply(a, 1) != a {
				t.Fatalf("power=%d: %d*1 != %d", power, a, a)
			}
			if f.Multiply(a, 0) != 0 {
				t.Fatalf("power=%d: %d*0 != 0", power, a)
			}
			lhs := f.Multiply(f.Multiply(a, b), c)
			rhs := f.Multiply(a, f.Multiply(b, c))
			if lhs != rhs {
				t.Fatalf("power=%d: (%d*%d)*%d=%d != %d*(%d*%d)=%d", power, a, b, c, lhs, a, b, c, rhs)
			}
			if a != 0 {
				inv, err := f.Invert(a)
				if err != nil {
					t.Fatalf("power=%d: Invert(%d): %v", power, a, err)
				}
				if f.Multiply(a, inv) != 1 {
					t.Fatalf("power=%d: %d * (1/%d)=%d != 1", power, a, a, f.Multiply(a, inv))
				}
			}
		}
	}
}

func TestDivideByZero(t *testing.T) {
	f, err := ConstructField(8)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Divide(5, 0); err != ErrDivideByZero {
		t.Fatalf("expected ErrDivideByZero, got %v", err)
	}
}

func TestConstructFieldRejectsUnsupportedPower(t *testing.T) {
	for _, power := range []int{0, 9, -1, 100} {
		if _, err := ConstructField(power); err == nil {
			t.Fatalf("expected error for gfpower=%d", power)
		}
	}
}

func TestMultiplyAddRegionFastPaths(t *testing.T) {
	f, _ := ConstructField(8)
	src := []byte{1, 2, 3, 4, 5}
	dst := make([]byte, len(src))
	orig := append([]byte(nil), dst...)

	f.MultiplyAddRegion(dst, src, 0, len(src))
	for i := range dst {
		if dst[i] != orig[i] {
			t.Fatalf("c=0 should be a no-op, got %v", dst)
		}
	}

	f.MultiplyAddRegion(dst, src, 1, len(src))
	for i := range dst {
		if dst[i] != src[i] {
			t.Fatalf("c=1 should XOR src into dst, got %v want %v", dst, src)
		}
	}
}

func TestMultiplyAddRegionMatchesScalarMultiply(t *testing.T) {
	f, _ := ConstructField(8)
	r := rand.New(rand.NewSource(1))
	n := 64
	src := make([]byte, n)
	dst := make([]byte, n)
	want := make([]byte, n)
	for i := range src {
		src[i] = byte(r.Intn(256))
		dst[i] = byte(r.Intn(256))
		want[i] = dst[i]
	}
	c := byte(r.Intn(256))
	for i := range want {
		want[i] ^= f.Multiply(c, src[i])
	}
	f.MultiplyAddRegion(dst, src, c, n)
	for i := range dst {
		if dst[i] != want[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, dst[i], want[i])
		}
	}
}

func TestBitPackRoundTrip(t *testing.T) {
	for _, power := range []int{2, 3, 4, 5, 6, 7} {
		f, _ := ConstructField(power)
		n := 20
		buf := make([]byte, (n*power+7)/8)
		values := make([]byte, n)
		r := rand.New(rand.NewSource(int64(power) * 7))
		for i := range values {
			values[i] = byte(r.Intn(f.Size))
			f.PackBits(buf, values[i], i)
		}
		for i := range values {
			got := f.ReadBits(buf, i)
			if got != values[i] {
				t.Fatalf("power=%d idx=%d: got %d want %d", power, i, got, values[i])
			}
		}
	}
}

func TestMultiply2NAddRegionRoundTrip(t *testing.T) {
	power := 4
	f, _ := ConstructField(power)
	nelem := 10
	src := make([]byte, (nelem*power+7)/8)
	dst := make([]byte, (nelem*power+7)/8)
	r := rand.New(rand.NewSource(42))
	srcVals := make([]byte, nelem)
	dstVals := make([]byte, nelem)
	for i := 0; i < nelem; i++ {
		srcVals[i] = byte(r.Intn(f.Size))
		dstVals[i] = byte(r.Intn(f.Size))
		f.PackBits(src, srcVals[i], i)
		f.PackBits(dst, dstVals[i], i)
	}
	c := byte(r.Intn(f.Size))
	f.Multiply2NAddRegion(dst, src, c, nelem)
	for i := 0; i < nelem; i++ {
		want := dstVals[i] ^ f.Multiply(c, srcVals[i])
		got := f.ReadBits(dst, i)
		if got != want {
			t.Fatalf("idx=%d: got %d want %d", i, got, want)
		}
	}
}
