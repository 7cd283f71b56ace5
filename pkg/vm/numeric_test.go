package vm

import (
	"math"
	"testing"
)

func TestFloatToInt(t *testing.T) {
	cases := []struct {
		name string
		in   float32
		want int32
	}{
		{"NaN", float32(math.NaN()), 0},
		{"positive overflow", 1e30, math.MaxInt32},
		{"negative overflow", -1e30, math.MinInt32},
		{"in range", 42.9, 42},
		{"negative in range", -42.9, -42},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := floatToInt(c.in); got != c.want {
				t.Errorf("floatToInt(%v): got %d, want %d", c.in, got, c.want)
			}
		})
	}
}

func TestDoubleToLong(t *testing.T) {
	cases := []struct {
		name string
		in   float64
		want int64
	}{
		{"NaN", math.NaN(), 0},
		{"positive overflow", 1e300, math.MaxInt64},
		{"negative overflow", -1e300, math.MinInt64},
		{"in range", 123.9, 123},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := doubleToLong(c.in); got != c.want {
				t.Errorf("doubleToLong(%v): got %d, want %d", c.in, got, c.want)
			}
		})
	}
}

func TestFcmp(t *testing.T) {
	t.Run("nan returns l variant result", func(t *testing.T) {
		if got := fcmp(math.NaN(), 1.0, -1); got != -1 {
			t.Errorf("got %d, want -1", got)
		}
	})
	t.Run("nan returns g variant result", func(t *testing.T) {
		if got := fcmp(1.0, math.NaN(), 1); got != 1 {
			t.Errorf("got %d, want 1", got)
		}
	})
	t.Run("ordered comparisons", func(t *testing.T) {
		if got := fcmp(1.0, 2.0, -1); got != -1 {
			t.Errorf("1<2: got %d, want -1", got)
		}
		if got := fcmp(2.0, 1.0, -1); got != 1 {
			t.Errorf("2>1: got %d, want 1", got)
		}
		if got := fcmp(1.0, 1.0, -1); got != 0 {
			t.Errorf("1==1: got %d, want 0", got)
		}
	})
}

func TestCmp64(t *testing.T) {
	cases := []struct {
		a, b int64
		want int32
	}{
		{1, 2, -1},
		{2, 1, 1},
		{5, 5, 0},
	}
	for _, c := range cases {
		if got := cmp64(c.a, c.b); got != c.want {
			t.Errorf("cmp64(%d,%d): got %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestUnaryAndBinaryIntTest(t *testing.T) {
	if !unaryTest(OpIfeq, 0) || unaryTest(OpIfeq, 1) {
		t.Error("OpIfeq semantics wrong")
	}
	if !binaryIntTest(OpIfIcmplt, -1, 0) || binaryIntTest(OpIfIcmplt, 0, -1) {
		t.Error("OpIfIcmplt semantics wrong")
	}
}
