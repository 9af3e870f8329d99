package bsdf

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/lightpath/pkg/core"
	"github.com/df07/lightpath/pkg/lights"
	"github.com/df07/lightpath/pkg/material"
)

// newBSDF builds a BSDF at the origin with the path arriving from fixedDir
func newBSDF(mat *material.Material, fixedDir, ng, ns core.Vec3, fromLight bool) *BSDF {
	hp := NewHitPoint(fixedDir.Negate(), core.Vec3{}, core.Vec2{}, ng, ns, fromLight, 0.5)
	return New(hp, mat, nil)
}

func TestLambertianAdjointSymmetry(t *testing.T) {
	mat := material.NewMatte(core.NewVec3(0.8, 0.5, 0.2))
	ng := core.NewVec3(0, 0, 1)

	tests := []struct {
		name string
		ns   core.Vec3
	}{
		{"shading equals geometry", ng},
		{"perturbed shading normal", core.NewVec3(0.2, -0.1, 1).Normalize()},
		{"strongly perturbed", core.NewVec3(0.6, 0.3, 1).Normalize()},
	}
	eyeDir := core.NewVec3(0.3, 0.4, 0.8).Normalize()
	lightDir := core.NewVec3(-0.5, 0.1, 0.6).Normalize()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eyeSide := newBSDF(&mat, eyeDir, ng, tt.ns, false)
			lightSide := newBSDF(&mat, lightDir, ng, tt.ns, true)

			fEye, _, _, _ := eyeSide.Evaluate(lightDir)
			fLight, _, _, _ := lightSide.Evaluate(eyeDir)
			require.False(t, fEye.IsBlack())
			require.False(t, fLight.IsBlack())

			lhs := fLight.Multiply(1 / eyeDir.AbsDot(ng))
			rhs := fEye.Multiply(1 / lightDir.AbsDot(ng))
			assert.InDelta(t, lhs.X, rhs.X, 1e-12)
			assert.InDelta(t, lhs.Y, rhs.Y, 1e-12)
			assert.InDelta(t, lhs.Z, rhs.Z, 1e-12)
		})
	}

	t.Run("correction is one without bump", func(t *testing.T) {
		lightSide := newBSDF(&mat, lightDir, ng, ng, true)
		fLight, _, _, _ := lightSide.Evaluate(eyeDir)
		want := 0.8 / math.Pi * eyeDir.Z
		assert.InDelta(t, want, fLight.X, 1e-12)
	})
}

func TestEvaluateSideTest(t *testing.T) {
	ng := core.NewVec3(0, 0, 1)
	above := core.NewVec3(0.1, 0.2, 0.9).Normalize()
	below := core.NewVec3(0.3, -0.2, -0.8).Normalize()

	matte := material.NewMatte(core.Splat(1))
	b := newBSDF(&matte, above, ng, ng, false)
	f, _, _, _ := b.Evaluate(below)
	assert.True(t, f.IsBlack(), "matte must not transmit")
	f, event, pdf, _ := b.Evaluate(above)
	assert.False(t, f.IsBlack())
	assert.True(t, event.Has(material.Diffuse|material.Reflect))
	assert.Greater(t, pdf, 0.0)

	// Shading normal tilted so that a geometrically transmitted direction is
	// above the shading hemisphere: the geometric side test still rejects it
	ns := core.NewVec3(0.9, 0, 0.3).Normalize()
	tilted := newBSDF(&matte, above, ng, ns, false)
	leak := core.NewVec3(0.9, 0, -0.05).Normalize()
	require.Greater(t, leak.Dot(ns), 0.0)
	f, _, _, _ = tilted.Evaluate(leak)
	assert.True(t, f.IsBlack(), "light leak through the geometric surface")

	// Grazing geometric directions are rejected
	f, _, _, _ = b.Evaluate(core.NewVec3(1, 0, 0))
	assert.True(t, f.IsBlack())
}

func TestSampleMatchesEvaluate(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	ng := core.NewVec3(0, 1, 0)
	ns := core.NewVec3(0.1, 1, 0).Normalize()
	mats := []material.Material{
		material.NewMatte(core.Splat(0.7)),
		material.NewGlossy(core.Splat(0.3), core.Splat(0.5), 15),
	}
	for _, mat := range mats {
		for _, fromLight := range []bool{false, true} {
			b := newBSDF(&mat, core.NewVec3(0.3, 0.7, 0.2).Normalize(), ng, ns, fromLight)
			for i := 0; i < 200; i++ {
				value, dir, pdf, cos, _, ok := b.Sample(rng.Float64(), rng.Float64())
				if !ok {
					continue
				}
				assert.InDelta(t, math.Abs(dir.Dot(b.ShadeN)), cos, 1e-9)
				f, _, directPdf, _ := b.Evaluate(dir)
				require.Greater(t, directPdf, 0.0)
				assert.InDelta(t, pdf, directPdf, 1e-9)
				want := f.Multiply(1 / pdf)
				assert.InDelta(t, want.X, value.X, 1e-9*math.Max(1, want.X))

				fwd, rev := b.Pdf(dir)
				assert.InDelta(t, directPdf, fwd, 1e-12)
				assert.GreaterOrEqual(t, rev, 0.0)
			}
		}
	}
}

func TestSpecularSample(t *testing.T) {
	mirror := material.NewMirror(core.NewVec3(0.9, 0.9, 0.9))
	ng := core.NewVec3(0, 0, 1)
	fixed := core.NewVec3(0.6, 0, 0.8)
	b := newBSDF(&mirror, fixed, ng, ng, false)
	require.True(t, b.IsDelta())

	value, dir, pdf, _, event, ok := b.Sample(0.5, 0.5)
	require.True(t, ok)
	assert.True(t, event.IsSpecular())
	assert.Equal(t, 1.0, pdf)
	assert.InDelta(t, 0.9, value.X, 1e-12)
	assert.InDelta(t, -0.6, dir.X, 1e-12)
	assert.InDelta(t, 0.8, dir.Z, 1e-12)

	f, _, _, _ := b.Evaluate(dir)
	assert.True(t, f.IsBlack(), "delta lobes cannot be evaluated")
}

func TestDegenerateNormals(t *testing.T) {
	nan := core.NewVec3(math.NaN(), 0, 0)
	hp := NewHitPoint(core.NewVec3(0, 0, -1), core.Vec3{}, core.Vec2{}, core.NewVec3(0, 0, 2), nan, false, 0)
	assert.Equal(t, core.NewVec3(0, 0, 1), hp.ShadeN)
	assert.True(t, hp.IntoObject)

	hp = NewHitPoint(core.NewVec3(0, -1, 0), core.Vec3{}, core.Vec2{}, core.Vec3{}, core.Vec3{}, false, 0)
	assert.Equal(t, core.NewVec3(0, 1, 0), hp.GeometryN)
	assert.Equal(t, hp.GeometryN, hp.ShadeN)

	// Shading normal flipped into the geometric hemisphere
	hp = NewHitPoint(core.NewVec3(0, 0, -1), core.Vec3{}, core.Vec2{}, core.NewVec3(0, 0, 1), core.NewVec3(0, 0, -1), false, 0)
	assert.Equal(t, core.NewVec3(0, 0, 1), hp.ShadeN)
}

func TestPassThrough(t *testing.T) {
	null := material.NewNull(core.NewVec3(1, 0.5, 0.5))
	b := newBSDF(&null, core.NewVec3(0, 0, 1), core.NewVec3(0, 0, 1), core.NewVec3(0, 0, 1), false)
	assert.True(t, b.IsPassThrough())
	assert.Equal(t, core.NewVec3(1, 0.5, 0.5), b.PassThroughTransparency())

	matte := material.NewMatte(core.Splat(1))
	b = newBSDF(&matte, core.NewVec3(0, 0, 1), core.NewVec3(0, 0, 1), core.NewVec3(0, 0, 1), false)
	assert.False(t, b.IsPassThrough())
	b.Alpha = 0.25 // vertex alpha, pass-through event is 0.5
	assert.True(t, b.IsPassThrough())
	assert.Equal(t, core.Splat(1), b.PassThroughTransparency())
}

func TestEmittedRadiance(t *testing.T) {
	light, err := lights.NewTriangleLight(core.NewVec3(-1, -1, 0), core.NewVec3(1, -1, 0), core.NewVec3(0, 1, 0), core.Splat(5))
	require.NoError(t, err)
	mat := material.NewEmitter(core.Splat(5))

	front := New(NewHitPoint(core.NewVec3(0, 0, -1), core.Vec3{}, core.Vec2{}, light.Normal, light.Normal, false, 0), &mat, light)
	le, directPdfA, emissionPdfW := front.EmittedRadiance()
	assert.Equal(t, core.Splat(5), le)
	assert.InDelta(t, 1/light.Area(), directPdfA, 1e-12)
	assert.InDelta(t, 1/(math.Pi*light.Area()), emissionPdfW, 1e-12)

	back := New(NewHitPoint(core.NewVec3(0, 0, 1), core.Vec3{}, core.Vec2{}, light.Normal, light.Normal, false, 0), &mat, light)
	le, _, _ = back.EmittedRadiance()
	assert.True(t, le.IsBlack())

	plain := newBSDF(&mat, core.NewVec3(0, 0, 1), core.NewVec3(0, 0, 1), core.NewVec3(0, 0, 1), false)
	assert.False(t, plain.IsLightSource())
}
