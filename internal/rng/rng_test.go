package rng

import (
	"math"
	"testing"

	"github.com/san-kum/brownwork/internal/dynamo"
)

var (
	_ dynamo.NormalSource = Constant(0)
	_ dynamo.NormalSource = (*Sequence)(nil)
)

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	rng1 := NewPartitionedRNG(42)
	rng2 := NewPartitionedRNG(42)

	for i := 0; i < 5; i++ {
		a := rng1.ForStream(StreamNoise).NormFloat64()
		b := rng2.ForStream(StreamNoise).NormFloat64()
		if a != b {
			t.Errorf("draw %d: got %v and %v, want identical", i, a, b)
		}
	}
}

func TestPartitionedRNG_StreamIsolation(t *testing.T) {
	rngA := NewPartitionedRNG(42)
	rngB := NewPartitionedRNG(42)

	// Draining A's noise stream must not shift A's start stream.
	for i := 0; i < 10; i++ {
		rngA.ForStream(StreamNoise).Float64()
	}

	if a, b := rngA.ForStream(StreamStart).Float64(), rngB.ForStream(StreamStart).Float64(); a != b {
		t.Errorf("start stream perturbed by noise draws: %v != %v", a, b)
	}
}

func TestPartitionedRNG_StreamsDiffer(t *testing.T) {
	p := NewPartitionedRNG(7)
	if p.ForStream(StreamNoise).Uint64() == p.ForStream(StreamStart).Uint64() {
		t.Error("noise and start streams produced the same first value")
	}
}

func TestPartitionedRNG_Caching(t *testing.T) {
	p := NewPartitionedRNG(1)
	if p.ForStream(StreamNoise) != p.ForStream(StreamNoise) {
		t.Error("ForStream should return the cached instance")
	}
	if p.Key() != 1 {
		t.Errorf("Key() = %d, want 1", p.Key())
	}
}

func TestPartitionedRNG_Indexed(t *testing.T) {
	p := NewPartitionedRNG(99)
	name := TrajectoryStream("forward", "noise")

	if name != "forward/noise" {
		t.Errorf("TrajectoryStream() = %q", name)
	}

	a := p.Indexed(name, 3).Float64()
	b := p.Indexed(name, 3).Float64()
	if a != b {
		t.Errorf("same index gave different draws: %v vs %v", a, b)
	}
	if p.Indexed(name, 4).Float64() == a {
		t.Error("neighbouring indices share a stream")
	}
	if p.Indexed(TrajectoryStream("backward", "noise"), 3).Float64() == a {
		t.Error("different names share a stream")
	}
}

func TestPartitionedRNG_DifferentKeys(t *testing.T) {
	a := NewPartitionedRNG(1).ForStream(StreamNoise).Float64()
	b := NewPartitionedRNG(2).ForStream(StreamNoise).Float64()
	if a == b {
		t.Error("different keys produced identical first draws")
	}
}

func TestNormalDrawsLookStandard(t *testing.T) {
	r := NewPartitionedRNG(2024).ForStream(StreamNoise)
	n := 50000
	sum, sumSq := 0.0, 0.0
	for i := 0; i < n; i++ {
		v := r.NormFloat64()
		sum += v
		sumSq += v * v
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean

	if math.Abs(mean) > 0.03 {
		t.Errorf("mean %v too far from 0", mean)
	}
	if math.Abs(variance-1) > 0.05 {
		t.Errorf("variance %v too far from 1", variance)
	}
}

func TestSequence(t *testing.T) {
	s := NewSequence(1, -2)
	got := []float64{s.NormFloat64(), s.NormFloat64(), s.NormFloat64()}
	want := []float64{1, -2, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("draw %d = %v, want %v", i, got[i], want[i])
		}
	}
	if NewSequence().NormFloat64() != 0 {
		t.Error("empty sequence should yield 0")
	}
}
