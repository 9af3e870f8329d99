package core

import (
	"math"
	"testing"
)

func TestVec3IsValid(t *testing.T) {
	tests := []struct {
		name  string
		v     Vec3
		valid bool
	}{
		{"black", Vec3{}, true},
		{"positive", NewVec3(1, 2, 3), true},
		{"negative component", NewVec3(1, -0.1, 3), false},
		{"NaN", NewVec3(math.NaN(), 0, 0), false},
		{"Inf", NewVec3(0, math.Inf(1), 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsValid(); got != tt.valid {
				t.Errorf("IsValid(%v) = %t, expected %t", tt.v, got, tt.valid)
			}
		})
	}
}

func TestFrameRoundTrip(t *testing.T) {
	normals := []Vec3{
		NewVec3(0, 0, 1),
		NewVec3(0, 1, 0),
		NewVec3(-1, 0, 0),
		NewVec3(0.3, -0.5, 0.8).Normalize(),
	}
	v := NewVec3(0.2, -0.7, 0.4)
	for _, n := range normals {
		f := NewFrame(n)
		if math.Abs(f.X.Dot(f.Y)) > 1e-9 || math.Abs(f.X.Dot(f.Z)) > 1e-9 || math.Abs(f.Y.Dot(f.Z)) > 1e-9 {
			t.Errorf("Frame around %v is not orthogonal", n)
		}
		back := f.ToWorld(f.ToLocal(v))
		if back.Subtract(v).Length() > 1e-9 {
			t.Errorf("Expected %v after round trip, got %v", v, back)
		}
		if local := f.ToLocal(n); math.Abs(local.Z-1) > 1e-9 {
			t.Errorf("Expected normal to map to +Z, got %v", local)
		}
	}
}

func TestNewSegmentShortensFarEnd(t *testing.T) {
	ray := NewSegment(NewVec3(0, 0, 0), NewVec3(1, 0, 0), 10)
	if ray.MaxT >= 10 {
		t.Errorf("Expected shortened segment, got MaxT %f", ray.MaxT)
	}
	if ray.MinT <= 0 {
		t.Errorf("Expected positive MinT, got %f", ray.MinT)
	}
}

func TestDivideVecByZero(t *testing.T) {
	got := NewVec3(1, 2, 3).DivideVec(NewVec3(2, 0, 3))
	if got != NewVec3(0.5, 0, 1) {
		t.Errorf("Expected (0.5, 0, 1), got %v", got)
	}
}
