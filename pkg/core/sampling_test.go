package core

import (
	"math"
	"math/rand"
	"testing"
)

func TestSampleCosineHemisphereLocal(t *testing.T) {
	random := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		dir, pdf := SampleCosineHemisphereLocal(NewVec2(random.Float64(), random.Float64()))
		if math.Abs(dir.Length()-1) > 1e-9 {
			t.Fatalf("Expected unit direction, got length %f", dir.Length())
		}
		if dir.Z < 0 {
			t.Fatalf("Expected direction in upper hemisphere, got %v", dir)
		}
		if math.Abs(pdf-dir.Z/math.Pi) > 1e-12 {
			t.Fatalf("Expected pdf cos/π, got %f for cos %f", pdf, dir.Z)
		}
	}
}

func TestSampleCosineHemisphereAroundNormal(t *testing.T) {
	normals := []Vec3{
		NewVec3(0, 1, 0),
		NewVec3(1, 0, 0),
		NewVec3(0, 0, -1),
		NewVec3(1, 1, 1).Normalize(),
	}
	random := rand.New(rand.NewSource(3))
	for _, n := range normals {
		for i := 0; i < 200; i++ {
			dir := SampleCosineHemisphere(n, NewVec2(random.Float64(), random.Float64()))
			if dir.Dot(n) < -1e-9 {
				t.Errorf("Direction %v below hemisphere of %v", dir, n)
			}
		}
	}
}

func TestSampleTriangleInside(t *testing.T) {
	random := rand.New(rand.NewSource(11))
	for i := 0; i < 1000; i++ {
		b0, b1 := SampleTriangle(NewVec2(random.Float64(), random.Float64()))
		if b0 < 0 || b1 < 0 || b0+b1 > 1+1e-12 {
			t.Fatalf("Barycentric (%f, %f) outside triangle", b0, b1)
		}
	}
}

func TestSamplePointInUnitDisk(t *testing.T) {
	random := rand.New(rand.NewSource(5))
	for i := 0; i < 1000; i++ {
		p := SamplePointInUnitDisk(NewVec2(random.Float64(), random.Float64()))
		if p.X*p.X+p.Y*p.Y > 1+1e-9 {
			t.Fatalf("Point %v outside unit disk", p)
		}
	}
	if p := SamplePointInUnitDisk(NewVec2(0.5, 0.5)); p.X != 0 || p.Y != 0 {
		t.Errorf("Expected disk center for centered sample, got %v", p)
	}
}

func TestPdfConversionsRoundTrip(t *testing.T) {
	pdfW := 0.37
	distance := 2.5
	cosThere := 0.6
	pdfA := PdfWtoA(pdfW, distance, cosThere)
	if back := PdfAtoW(pdfA, distance, cosThere); math.Abs(back-pdfW) > 1e-12 {
		t.Errorf("Expected round trip %f, got %f", pdfW, back)
	}
	if PdfAtoW(1, 1, 0) != 0 {
		t.Errorf("Expected zero solid-angle pdf for grazing cosine")
	}
}

func TestPowerHeuristic(t *testing.T) {
	tests := []struct {
		name     string
		fPdf     float64
		gPdf     float64
		expected float64
	}{
		{"equal pdfs", 1, 1, 0.5},
		{"dominant f", 3, 1, 0.9},
		{"zero g", 2, 0, 1},
		{"both zero", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PowerHeuristic(1, tt.fPdf, 1, tt.gPdf)
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("Expected %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestHeuristicsPartitionOfUnity(t *testing.T) {
	random := rand.New(rand.NewSource(13))
	for i := 0; i < 100; i++ {
		a, b := random.Float64()*10, random.Float64()*10
		if s := PowerHeuristic(1, a, 1, b) + PowerHeuristic(1, b, 1, a); math.Abs(s-1) > 1e-12 {
			t.Fatalf("Power heuristic weights sum to %f", s)
		}
		if s := BalanceHeuristic(1, a, 1, b) + BalanceHeuristic(1, b, 1, a); math.Abs(s-1) > 1e-12 {
			t.Fatalf("Balance heuristic weights sum to %f", s)
		}
	}
}
