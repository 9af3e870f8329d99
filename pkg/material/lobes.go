package material

import (
	"math"

	"github.com/df07/lightpath/pkg/core"
)

// Directions below are in the local shading frame. fixed is the direction the
// path arrived from (pointing away from the surface), gen is the direction
// being evaluated or sampled. Returned values exclude the cosine term.

// Evaluate returns f(fixed, gen), the solid angle pdf of sampling gen given
// fixed and the reverse pdf of sampling fixed given gen. Delta lobes evaluate to zero.
func (m *Material) Evaluate(uv core.Vec2, fixed, gen core.Vec3) (f core.Vec3, directPdfW, reversePdfW float64, event Event) {
	switch m.Kind {
	case Matte:
		if fixed.Z*gen.Z <= 0 {
			return
		}
		kd := m.Kd.Evaluate(uv).Clamp(0, 1)
		return kd.Multiply(core.InvPi), math.Abs(gen.Z) * core.InvPi, math.Abs(fixed.Z) * core.InvPi, Diffuse | Reflect
	case GlossyKind:
		if fixed.Z*gen.Z <= 0 {
			return
		}
		kd := m.Kd.Evaluate(uv).Clamp(0, 1)
		ks := m.Kr.Clamp(0, 1)
		pd := diffuseProbability(kd, ks)
		lobe := phongCos(fixed, gen, m.Exponent)
		phongPdf := (m.Exponent + 1) / (2 * math.Pi) * lobe

		f = kd.Multiply(core.InvPi).Add(ks.Multiply((m.Exponent + 2) / (2 * math.Pi) * lobe))
		directPdfW = pd*math.Abs(gen.Z)*core.InvPi + (1-pd)*phongPdf
		reversePdfW = pd*math.Abs(fixed.Z)*core.InvPi + (1-pd)*phongPdf
		return f, directPdfW, reversePdfW, Glossy | Reflect
	}
	return
}

// Sample draws gen given fixed with two uniform numbers. fromLight selects
// importance transport, which skips the radiance scaling at refractive boundaries.
func (m *Material) Sample(uv core.Vec2, fixed core.Vec3, u0, u1 float64, fromLight bool) (f, gen core.Vec3, pdfW float64, event Event, ok bool) {
	if fixed.Z == 0 {
		return
	}
	switch m.Kind {
	case Matte:
		gen, pdfW = core.SampleCosineHemisphereLocal(core.NewVec2(u0, u1))
		if fixed.Z < 0 {
			gen.Z = -gen.Z
		}
		if pdfW <= 0 {
			return
		}
		return m.Kd.Evaluate(uv).Clamp(0, 1).Multiply(core.InvPi), gen, pdfW, Diffuse | Reflect, true

	case Mirror:
		gen = reflectLocal(fixed)
		return m.Kr.Multiply(1 / math.Abs(gen.Z)), gen, 1, Specular | Reflect, true

	case Glass:
		return m.sampleGlass(fixed, u0, fromLight)

	case GlossyKind:
		kd := m.Kd.Evaluate(uv).Clamp(0, 1)
		pd := diffuseProbability(kd, m.Kr.Clamp(0, 1))
		if u0 < pd {
			gen, _ = core.SampleCosineHemisphereLocal(core.NewVec2(u0/pd, u1))
			if fixed.Z < 0 {
				gen.Z = -gen.Z
			}
		} else {
			gen = samplePhong(fixed, (u0-pd)/(1-pd), u1, m.Exponent)
		}
		f, pdfW, _, event = m.Evaluate(uv, fixed, gen)
		if pdfW <= 0 {
			return core.Vec3{}, core.Vec3{}, 0, EventNone, false
		}
		return f, gen, pdfW, event, true

	case Null:
		gen = fixed.Negate()
		return m.Kt.Multiply(1 / math.Abs(gen.Z)), gen, 1, Specular | Transmit, true
	}
	return
}

// Pdf returns the forward and reverse solid angle pdfs of a non-delta lobe
func (m *Material) Pdf(uv core.Vec2, fixed, gen core.Vec3) (directPdfW, reversePdfW float64) {
	_, directPdfW, reversePdfW, _ = m.Evaluate(uv, fixed, gen)
	return
}

func (m *Material) sampleGlass(fixed core.Vec3, u0 float64, fromLight bool) (f, gen core.Vec3, pdfW float64, event Event, ok bool) {
	entering := fixed.Z > 0
	etaI, etaT := 1.0, m.IOR
	if !entering {
		etaI, etaT = etaT, etaI
	}
	cosI := math.Abs(fixed.Z)
	fr := FresnelDielectric(cosI, etaI, etaT)

	if u0 < fr {
		gen = reflectLocal(fixed)
		return m.Kr.Multiply(fr / cosI), gen, fr, Specular | Reflect, true
	}

	eta := etaI / etaT
	sin2T := eta * eta * (1 - cosI*cosI)
	if sin2T >= 1 {
		return
	}
	cosT := math.Sqrt(1 - sin2T)
	if entering {
		cosT = -cosT
	}
	gen = core.NewVec3(-eta*fixed.X, -eta*fixed.Y, cosT)
	f = m.Kt.Multiply((1 - fr) / math.Abs(cosT))
	if !fromLight {
		f = f.Multiply(eta * eta)
	}
	return f, gen, 1 - fr, Specular | Transmit, true
}

// FresnelDielectric returns the unpolarized Fresnel reflectance at a smooth
// boundary. cosI is the absolute incident cosine.
func FresnelDielectric(cosI, etaI, etaT float64) float64 {
	cosI = math.Min(1, math.Abs(cosI))
	sinI := math.Sqrt(math.Max(0, 1-cosI*cosI))
	sinT := etaI / etaT * sinI
	if sinT >= 1 {
		return 1
	}
	cosT := math.Sqrt(math.Max(0, 1-sinT*sinT))
	rParl := (etaT*cosI - etaI*cosT) / (etaT*cosI + etaI*cosT)
	rPerp := (etaI*cosI - etaT*cosT) / (etaI*cosI + etaT*cosT)
	return (rParl*rParl + rPerp*rPerp) / 2
}

// reflectLocal mirrors a local direction about the shading normal
func reflectLocal(v core.Vec3) core.Vec3 {
	return core.NewVec3(-v.X, -v.Y, v.Z)
}

// phongCos returns cos^n of the angle between gen and the mirror direction of fixed
func phongCos(fixed, gen core.Vec3, exponent float64) float64 {
	c := reflectLocal(fixed).Dot(gen)
	if c <= 0 {
		return 0
	}
	return math.Pow(c, exponent)
}

func samplePhong(fixed core.Vec3, u0, u1, exponent float64) core.Vec3 {
	cosA := math.Pow(u0, 1/(exponent+1))
	sinA := math.Sqrt(math.Max(0, 1-cosA*cosA))
	phi := 2 * math.Pi * u1
	frame := core.NewFrame(reflectLocal(fixed))
	return frame.ToWorld(core.NewVec3(sinA*math.Cos(phi), sinA*math.Sin(phi), cosA))
}

// diffuseProbability picks the diffuse lobe in proportion to its luminance
func diffuseProbability(kd, ks core.Vec3) float64 {
	d, s := kd.Luminance(), ks.Luminance()
	if d+s <= 0 {
		return 0.5
	}
	return d / (d + s)
}
