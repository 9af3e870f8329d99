package material

import "strings"

// Event is a bit set describing a scattering event
type Event uint8

const (
	EventNone Event = 0
	Diffuse   Event = 1 << iota
	Glossy
	Specular
	Reflect
	Transmit
)

// IsSpecular reports whether the event has a delta distribution
func (e Event) IsSpecular() bool { return e&Specular != 0 }

// Has reports whether every bit of flags is set
func (e Event) Has(flags Event) bool { return e&flags == flags }

func (e Event) String() string {
	if e == EventNone {
		return "NONE"
	}
	var parts []string
	for _, f := range []struct {
		flag Event
		name string
	}{{Diffuse, "DIFFUSE"}, {Glossy, "GLOSSY"}, {Specular, "SPECULAR"}, {Reflect, "REFLECT"}, {Transmit, "TRANSMIT"}} {
		if e&f.flag != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}
