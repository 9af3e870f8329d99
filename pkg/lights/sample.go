package lights

import (
	"math"

	"github.com/df07/lightpath/pkg/core"
)

// minCosine keeps emitted particles off the tangent plane of area lights
const minCosine = 1e-4

// EmitSample is a particle leaving a light
type EmitSample struct {
	Radiance     core.Vec3 // Emitted radiance times the cosine at the light
	Origin       core.Vec3
	Dir          core.Vec3
	Normal       core.Vec3 // Light surface normal, zero for point lights
	EmissionPdfW float64   // Pdf of origin and direction, area times solid angle measure
	DirectPdfA   float64   // Pdf of picking the origin by direct light sampling
	CosAtLight   float64
}

// IlluminateSample is a direct lighting connection from a receiving point
type IlluminateSample struct {
	Radiance     core.Vec3
	DirToLight   core.Vec3
	Distance     float64 // +Inf for infinite lights
	DirectPdfW   float64 // Solid angle pdf at the receiving point
	EmissionPdfW float64 // Pdf that the light would have emitted this particle
	CosAtLight   float64
}

// Emit samples an emitted particle. u0 and u1 pick the position, u2 and u3
// the direction (for point lights the direction uses u0 and u1).
func (l *Light) Emit(u0, u1, u2, u3 float64) (EmitSample, bool) {
	var s EmitSample
	switch l.Kind {
	case Triangle:
		b0, b1 := core.SampleTriangle(core.NewVec2(u0, u1))
		s.Origin = l.pointAt(b0, b1)
		local, pdfW := core.SampleCosineHemisphereLocal(core.NewVec2(u2, u3))
		local.Z = max(local.Z, minCosine)
		s.Dir = core.NewFrame(l.Normal).ToWorld(local).Normalize()
		s.Normal = l.Normal
		s.EmissionPdfW = max(pdfW, minCosine*core.InvPi) * l.invArea
		s.DirectPdfA = l.invArea
		s.CosAtLight = local.Z
		s.Radiance = l.Le.Multiply(local.Z)

	case Point:
		s.Origin = l.Position
		s.Dir = core.SampleOnUnitSphere(core.NewVec2(u0, u1))
		s.EmissionPdfW = core.Inv4Pi
		s.DirectPdfA = 1
		s.CosAtLight = 1
		s.Radiance = l.Le

	case Sky:
		s.Dir = core.SampleOnUnitSphere(core.NewVec2(u2, u3)).Negate()
		s.Origin = l.diskOrigin(s.Dir, u0, u1)
		s.Normal = s.Dir
		s.EmissionPdfW = core.Inv4Pi * l.diskPdfA()
		s.DirectPdfA = core.Inv4Pi
		s.CosAtLight = 1
		s.Radiance = l.Le

	case Sun:
		s.Dir = l.Direction.Negate()
		s.Origin = l.diskOrigin(s.Dir, u0, u1)
		s.Normal = s.Dir
		s.EmissionPdfW = l.diskPdfA()
		s.DirectPdfA = 1
		s.CosAtLight = 1
		s.Radiance = l.Le
	}
	if !(s.EmissionPdfW > 0) || s.Radiance.IsBlack() {
		return EmitSample{}, false
	}
	return s, true
}

// Illuminate samples a point or direction on the light as seen from p
func (l *Light) Illuminate(p core.Vec3, u0, u1 float64) (IlluminateSample, bool) {
	var s IlluminateSample
	switch l.Kind {
	case Triangle:
		b0, b1 := core.SampleTriangle(core.NewVec2(u0, u1))
		toLight := l.pointAt(b0, b1).Subtract(p)
		distSqr := toLight.LengthSquared()
		s.Distance = math.Sqrt(distSqr)
		if s.Distance == 0 {
			return IlluminateSample{}, false
		}
		s.DirToLight = toLight.Multiply(1 / s.Distance)
		cos := -l.Normal.Dot(s.DirToLight)
		if cos < minCosine {
			return IlluminateSample{}, false
		}
		s.DirectPdfW = l.invArea * distSqr / cos
		s.EmissionPdfW = l.invArea * cos * core.InvPi
		s.CosAtLight = cos
		s.Radiance = l.Le

	case Point:
		toLight := l.Position.Subtract(p)
		distSqr := toLight.LengthSquared()
		s.Distance = math.Sqrt(distSqr)
		if s.Distance == 0 {
			return IlluminateSample{}, false
		}
		s.DirToLight = toLight.Multiply(1 / s.Distance)
		s.DirectPdfW = distSqr
		s.EmissionPdfW = core.Inv4Pi
		s.CosAtLight = 1
		s.Radiance = l.Le

	case Sky:
		s.DirToLight = core.SampleOnUnitSphere(core.NewVec2(u0, u1))
		s.Distance = math.Inf(1)
		s.DirectPdfW = core.Inv4Pi
		s.EmissionPdfW = core.Inv4Pi * l.diskPdfA()
		s.CosAtLight = 1
		s.Radiance = l.Le

	case Sun:
		s.DirToLight = l.Direction
		s.Distance = math.Inf(1)
		s.DirectPdfW = 1
		s.EmissionPdfW = l.diskPdfA()
		s.CosAtLight = 1
		s.Radiance = l.Le
	}
	if !(s.DirectPdfW > 0) || !(s.EmissionPdfW > 0) || s.Radiance.IsBlack() {
		return IlluminateSample{}, false
	}
	return s, true
}

// GetRadiance returns the radiance carried back along a ray with direction
// rayDir that hit the light (area lights) or escaped the scene (sky), with the
// pdfs the other techniques would have used to produce the same connection.
// Delta lights always return black.
func (l *Light) GetRadiance(rayDir core.Vec3) (radiance core.Vec3, directPdfA, emissionPdfW float64) {
	switch l.Kind {
	case Triangle:
		cos := -l.Normal.Dot(rayDir)
		if cos <= 0 {
			return core.Vec3{}, 0, 0
		}
		return l.Le, l.invArea, cos * core.InvPi * l.invArea
	case Sky:
		if l.sceneRadius <= 0 {
			return core.Vec3{}, 0, 0
		}
		return l.Le, core.Inv4Pi, core.Inv4Pi * l.diskPdfA()
	}
	return core.Vec3{}, 0, 0
}

func (l *Light) pointAt(b0, b1 float64) core.Vec3 {
	return l.V0.Multiply(b0).Add(l.V1.Multiply(b1)).Add(l.V2.Multiply(1 - b0 - b1))
}

// diskOrigin starts an infinite light particle on a disk tangent to the scene
// bounding sphere, on the side opposite to dir
func (l *Light) diskOrigin(dir core.Vec3, u0, u1 float64) core.Vec3 {
	frame := core.NewFrame(dir)
	d := core.SamplePointInUnitDisk(core.NewVec2(u0, u1))
	offset := dir.Negate().Add(frame.X.Multiply(d.X)).Add(frame.Y.Multiply(d.Y))
	return l.sceneCenter.Add(offset.Multiply(l.sceneRadius))
}

func (l *Light) diskPdfA() float64 {
	if l.sceneRadius <= 0 {
		return 0
	}
	return core.InvPi / (l.sceneRadius * l.sceneRadius)
}
