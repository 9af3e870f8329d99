package scene

import (
	"fmt"
	"sort"
	"strings"

	"github.com/df07/lightpath/pkg/core"
	"github.com/df07/lightpath/pkg/lights"
	"github.com/df07/lightpath/pkg/material"
)

// SceneInfo describes a built-in scene
type SceneInfo struct {
	ID          string
	DisplayName string
	Description string
}

type builtinScene struct {
	info  SceneInfo
	build func(width, height int) (*Scene, error)
}

var builtins = map[string]builtinScene{
	"cornell": {
		info:  SceneInfo{ID: "cornell", DisplayName: "Cornell Box", Description: "Quad walls, area light, mirror and glass spheres"},
		build: NewCornellScene,
	},
	"cornell-diffuse": {
		info:  SceneInfo{ID: "cornell-diffuse", DisplayName: "Diffuse Cornell Box", Description: "Cornell box with only Lambertian surfaces"},
		build: NewDiffuseCornellScene,
	},
	"furnace": {
		info:  SceneInfo{ID: "furnace", DisplayName: "Furnace", Description: "Lambertian sphere inside a uniform white sky"},
		build: func(width, height int) (*Scene, error) { return NewFurnaceScene(width, height, 0.5) },
	},
	"caustic": {
		info:  SceneInfo{ID: "caustic", DisplayName: "Caustic", Description: "Glass sphere over a checkered floor lit by a point light"},
		build: NewCausticScene,
	},
	"outdoor": {
		info:  SceneInfo{ID: "outdoor", DisplayName: "Outdoor", Description: "Glossy and alpha-masked objects under sky and sun"},
		build: NewOutdoorScene,
	},
}

// ListBuiltins returns the built-in scenes sorted by ID
func ListBuiltins() []SceneInfo {
	infos := make([]SceneInfo, 0, len(builtins))
	for _, b := range builtins {
		infos = append(infos, b.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Builtin constructs a built-in scene by ID. The returned scene still needs Preprocess.
func Builtin(id string, width, height int) (*Scene, error) {
	b, ok := builtins[strings.ToLower(id)]
	if !ok {
		return nil, fmt.Errorf("unknown scene %q", id)
	}
	return b.build(width, height)
}

// cornellCamera is the camera looking into the 555 unit box from the open side
var cornellCamera = CameraConfig{
	Center: core.NewVec3(278, 278, -800),
	LookAt: core.NewVec3(278, 278, 0),
	Up:     core.NewVec3(0, 1, 0),
	VFov:   40.0,
}

// cornellBox adds the walls and the ceiling light shared by the Cornell variants
func cornellBox(s *Scene) {
	white := s.AddMaterial(material.NewMatte(core.NewVec3(0.73, 0.73, 0.73)))
	red := s.AddMaterial(material.NewMatte(core.NewVec3(0.65, 0.05, 0.05)))
	green := s.AddMaterial(material.NewMatte(core.NewVec3(0.12, 0.45, 0.15)))
	light := s.AddMaterial(material.NewEmitter(core.NewVec3(15, 15, 15)))

	boxSize := 555.0
	s.AddQuad(core.NewVec3(0, 0, 0), core.NewVec3(boxSize, 0, 0), core.NewVec3(0, 0, boxSize), white)       // floor
	s.AddQuad(core.NewVec3(0, boxSize, 0), core.NewVec3(boxSize, 0, 0), core.NewVec3(0, 0, boxSize), white) // ceiling
	s.AddQuad(core.NewVec3(0, 0, boxSize), core.NewVec3(boxSize, 0, 0), core.NewVec3(0, boxSize, 0), white) // back
	s.AddQuad(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, boxSize), core.NewVec3(0, boxSize, 0), red)         // left
	s.AddQuad(core.NewVec3(boxSize, 0, 0), core.NewVec3(0, boxSize, 0), core.NewVec3(0, 0, boxSize), green) // right

	// Ceiling light, slightly below the ceiling and facing down
	lightSize := 130.0
	lightOffset := (boxSize - lightSize) / 2.0
	s.AddQuad(
		core.NewVec3(lightOffset, boxSize-1, lightOffset),
		core.NewVec3(lightSize, 0, 0),
		core.NewVec3(0, 0, lightSize),
		light,
	)
}

// NewCornellScene creates the classic Cornell box with a mirror and a glass sphere
func NewCornellScene(width, height int) (*Scene, error) {
	camera, err := NewCamera(cornellCamera, width, height)
	if err != nil {
		return nil, err
	}
	s := New("cornell")
	s.Camera = camera
	cornellBox(s)

	mirror := s.AddMaterial(material.NewMirror(core.NewVec3(0.8, 0.8, 0.9)))
	glass := s.AddMaterial(material.NewGlass(core.Splat(1), core.Splat(1), 1.5))
	s.AddSphere(core.NewVec3(185, 82.5, 169), 82.5, mirror)
	s.AddSphere(core.NewVec3(370, 90, 351), 90, glass)
	return s, nil
}

// NewDiffuseCornellScene creates the Cornell box with two Lambertian spheres
func NewDiffuseCornellScene(width, height int) (*Scene, error) {
	camera, err := NewCamera(cornellCamera, width, height)
	if err != nil {
		return nil, err
	}
	s := New("cornell-diffuse")
	s.Camera = camera
	cornellBox(s)

	grey := s.AddMaterial(material.NewMatte(core.NewVec3(0.6, 0.6, 0.6)))
	s.AddSphere(core.NewVec3(185, 82.5, 169), 82.5, grey)
	s.AddSphere(core.NewVec3(370, 90, 351), 90, grey)
	return s, nil
}

// NewFurnaceScene places a Lambertian sphere of the given albedo in a uniform
// unit sky. Every pixel covering the sphere converges to albedo, the
// background to 1.
func NewFurnaceScene(width, height int, albedo float64) (*Scene, error) {
	camera, err := NewCamera(CameraConfig{
		Center: core.NewVec3(0, 0, -4),
		LookAt: core.NewVec3(0, 0, 0),
		Up:     core.NewVec3(0, 1, 0),
		VFov:   40,
	}, width, height)
	if err != nil {
		return nil, err
	}
	s := New("furnace")
	s.Camera = camera
	s.AddSphere(core.Vec3{}, 1, s.AddMaterial(material.NewMatte(core.Splat(albedo))))
	s.AddLight(lights.NewSkyLight(core.Splat(1)))
	return s, nil
}

// NewCausticScene creates a glass sphere focusing a point light on a checkered floor
func NewCausticScene(width, height int) (*Scene, error) {
	camera, err := NewCamera(CameraConfig{
		Center: core.NewVec3(0, 3, -6),
		LookAt: core.NewVec3(0, 0.8, 0),
		Up:     core.NewVec3(0, 1, 0),
		VFov:   45,
	}, width, height)
	if err != nil {
		return nil, err
	}
	s := New("caustic")
	s.Camera = camera

	floor := s.AddMaterial(material.NewTexturedMatte(material.Checkerboard(
		core.NewVec3(0.8, 0.8, 0.8), core.NewVec3(0.3, 0.3, 0.3), 8)))
	glass := s.AddMaterial(material.NewGlass(core.Splat(1), core.Splat(1), 1.5))
	s.AddQuad(core.NewVec3(-5, 0, -5), core.NewVec3(0, 0, 10), core.NewVec3(10, 0, 0), floor)
	s.AddSphere(core.NewVec3(0, 1, 0), 1, glass)
	s.AddLight(lights.NewPointLight(core.NewVec3(0, 5, 0), core.Splat(60)))
	return s, nil
}

// NewOutdoorScene creates a ground plane with glossy, tinted glass and
// alpha-masked objects lit by sky and sun
func NewOutdoorScene(width, height int) (*Scene, error) {
	camera, err := NewCamera(CameraConfig{
		Center:        core.NewVec3(0, 1.5, -6),
		LookAt:        core.NewVec3(0, 0.75, 0),
		Up:            core.NewVec3(0, 1, 0),
		VFov:          40,
		Aperture:      0.05,
		FocusDistance: 6,
	}, width, height)
	if err != nil {
		return nil, err
	}
	s := New("outdoor")
	s.Camera = camera

	ground := s.AddMaterial(material.NewMatte(core.NewVec3(0.5, 0.45, 0.4)))
	glossy := s.AddMaterial(material.NewGlossy(core.NewVec3(0.2, 0.3, 0.6), core.Splat(0.3), 80))
	absorber := s.Materials.AddVolume(material.Volume{Absorption: core.NewVec3(0.1, 0.6, 0.9)})
	tinted := s.AddMaterial(material.NewGlass(core.Splat(1), core.Splat(1), 1.33).WithVolumes(absorber, material.NoVolume))
	leaf := material.NewMatte(core.NewVec3(0.2, 0.6, 0.15))
	leaf.Alpha = 0.5
	masked := s.AddMaterial(leaf)

	s.AddQuad(core.NewVec3(-20, 0, -20), core.NewVec3(0, 0, 40), core.NewVec3(40, 0, 0), ground)
	s.AddSphere(core.NewVec3(-1.2, 0.75, 0), 0.75, glossy)
	s.AddSphere(core.NewVec3(1.2, 0.75, 0.5), 0.75, tinted)
	s.AddQuad(core.NewVec3(-0.5, 0, -1.5), core.NewVec3(1, 0, 0), core.NewVec3(0, 1.2, 0), masked)

	s.AddLight(lights.NewSkyLight(core.NewVec3(0.4, 0.5, 0.7)))
	s.AddLight(lights.NewSunLight(core.NewVec3(0.4, 1, -0.3), core.NewVec3(3, 2.8, 2.5)))
	return s, nil
}
