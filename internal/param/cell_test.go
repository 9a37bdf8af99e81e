package param

import (
	"math"
	"sync"
	"testing"
)

func TestFloatCellRoundTripsBitPattern(t *testing.T) {
	var c Float
	for _, v := range []float32{0, 1, 0.5, -0.25, float32(math.Inf(1)), math.SmallestNonzeroFloat32} {
		c.Store(v)
		if got := c.Load(); got != v {
			t.Fatalf("Load() = %v, want %v", got, v)
		}
	}
	c.Store(float32(math.NaN()))
	if got := c.Load(); !math.IsNaN(float64(got)) {
		t.Fatalf("Load() = %v, want NaN", got)
	}
}

func TestBoolCellZeroValueIsFalse(t *testing.T) {
	var c Bool
	if c.Load() {
		t.Fatal("zero cell should read false")
	}
	c.Store(true)
	if !c.Load() {
		t.Fatal("expected true after Store(true)")
	}
	if got := NewCell[bool, BoolCodec](true).Load(); !got {
		t.Fatal("NewCell should store its initial value")
	}
}

func TestFloatCellNeverTears(t *testing.T) {
	// Two distinct bit patterns; any other value read back would be a torn write.
	const a, b = float32(0.123456), float32(-98765.4)
	c := NewCell[float32, Float32Codec](a)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				c.Store(a)
			} else {
				c.Store(b)
			}
		}
	}()
	for i := 0; i < 100000; i++ {
		if v := c.Load(); v != a && v != b {
			close(stop)
			wg.Wait()
			t.Fatalf("observed torn value %v", v)
		}
	}
	close(stop)
	wg.Wait()
}

func TestUnitClampsAndRejectsNaN(t *testing.T) {
	for _, tc := range []struct {
		in   float32
		want float64
	}{
		{0.25, 0.25},
		{-1, 0},
		{3, 1},
		{float32(math.NaN()), 0},
	} {
		if got := Unit(tc.in); got != tc.want {
			t.Errorf("Unit(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSecondsRejectsNegativeAndNonFinite(t *testing.T) {
	for _, tc := range []struct {
		in   float32
		want float64
	}{
		{0.1, float64(float32(0.1))},
		{-0.5, 0},
		{float32(math.Inf(1)), 0},
		{float32(math.NaN()), 0},
	} {
		if got := Seconds(tc.in); got != tc.want {
			t.Errorf("Seconds(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
