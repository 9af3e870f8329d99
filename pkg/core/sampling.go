package core

import "math"

const (
	// InvPi is 1/π
	InvPi = 1.0 / math.Pi
	// Inv4Pi is 1/(4π), the pdf of uniform sphere sampling
	Inv4Pi = 1.0 / (4.0 * math.Pi)
)

// SampleCosineHemisphereLocal returns a cosine-weighted direction around +Z and its solid-angle pdf
func SampleCosineHemisphereLocal(sample Vec2) (Vec3, float64) {
	a := 2.0 * math.Pi * sample.X
	r := math.Sqrt(sample.Y)
	z := math.Sqrt(math.Max(0, 1.0-sample.Y))
	return NewVec3(r*math.Cos(a), r*math.Sin(a), z), z * InvPi
}

// SampleCosineHemisphere generates a cosine-weighted random direction in hemisphere around normal
func SampleCosineHemisphere(normal Vec3, sample Vec2) Vec3 {
	local, _ := SampleCosineHemisphereLocal(sample)
	return NewFrame(normal).ToWorld(local)
}

// CosineHemispherePDF returns the pdf of a local direction under cosine-weighted sampling
func CosineHemispherePDF(cosTheta float64) float64 {
	return math.Max(0, cosTheta) * InvPi
}

// SampleOnUnitSphere generates a uniform random direction on the unit sphere
func SampleOnUnitSphere(sample Vec2) Vec3 {
	z := 1.0 - 2.0*sample.X // z ∈ [-1, 1]
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * sample.Y
	return NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)
}

// SamplePointInUnitDisk generates a random point in a unit disk using concentric mapping
// This avoids rejection sampling by mapping a square uniformly to a disk
func SamplePointInUnitDisk(sample Vec2) Vec2 {
	// Map sample to [-1,1]² and handle degeneracy at the origin
	ox, oy := 2*sample.X-1, 2*sample.Y-1
	if ox == 0 && oy == 0 {
		return Vec2{}
	}

	var theta, r float64
	if math.Abs(ox) > math.Abs(oy) {
		r = ox
		theta = math.Pi / 4 * (oy / ox)
	} else {
		r = oy
		theta = math.Pi/2 - math.Pi/4*(ox/oy)
	}

	return NewVec2(r*math.Cos(theta), r*math.Sin(theta))
}

// SampleTriangle returns barycentric coordinates (b0, b1) uniformly distributed over a triangle
func SampleTriangle(sample Vec2) (float64, float64) {
	su := math.Sqrt(sample.X)
	return 1 - su, sample.Y * su
}

// SampleCone samples a direction uniformly within a cone around direction
func SampleCone(direction Vec3, cosTotalWidth float64, sample Vec2) Vec3 {
	cosTheta := 1.0 - sample.X*(1.0-cosTotalWidth)
	sinTheta := math.Sqrt(math.Max(0, 1.0-cosTheta*cosTheta))
	phi := 2.0 * math.Pi * sample.Y
	local := NewVec3(sinTheta*math.Cos(phi), sinTheta*math.Sin(phi), cosTheta)
	return NewFrame(direction).ToWorld(local)
}

// PdfWtoA converts a solid-angle pdf into an area pdf at distance with cosine at the far point
func PdfWtoA(pdfW, distance, cosThere float64) float64 {
	return pdfW * math.Abs(cosThere) / (distance * distance)
}

// PdfAtoW converts an area pdf into a solid-angle pdf
func PdfAtoW(pdfA, distance, cosThere float64) float64 {
	absCos := math.Abs(cosThere)
	if absCos == 0 {
		return 0
	}
	return pdfA * distance * distance / absCos
}

// PowerHeuristic calculates the power heuristic for multiple importance sampling
func PowerHeuristic(nf int, fPdf float64, ng int, gPdf float64) float64 {
	f := float64(nf) * fPdf
	g := float64(ng) * gPdf
	if f == 0 && g == 0 {
		return 0
	}
	return (f * f) / (f*f + g*g)
}

// BalanceHeuristic calculates the balance heuristic for multiple importance sampling
func BalanceHeuristic(nf int, fPdf float64, ng int, gPdf float64) float64 {
	f := float64(nf) * fPdf
	g := float64(ng) * gPdf
	if f+g == 0 {
		return 0
	}
	return f / (f + g)
}

// MIS is the per-technique weight transform used across the bidirectional
// integrators. Squaring the densities gives the power heuristic (β = 2).
func MIS(pdf float64) float64 {
	return pdf * pdf
}
