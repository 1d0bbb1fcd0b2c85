// Package metadata reads the per-avatar placement and keep-list written by the engine-side
// editor tool and maps its Y-up axes onto the scene's Z-up axes.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"

	"rig-merger/internal/mathutil"
)

// Vector is an engine-side (x, y, z) triple.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Avatar is one avatar's placement and the mesh names to keep. Missing position and rotation
// mean zero; a missing scale means one.
type Avatar struct {
	Position *Vector  `json:"position"`
	Rotation *Vector  `json:"rotation"`
	Scale    *Vector  `json:"scale"`
	Meshes   []string `json:"meshes"`
}

// Document is the metadata file.
type Document struct {
	Head Avatar `json:"headAvatarMetadata"`
	Body Avatar `json:"bodyAvatarMetadata"`
}

// Load reads and parses a metadata file.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("metadata: read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return Document{}, fmt.Errorf("metadata: parse %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a metadata document.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// ConvertToBlender maps an engine-side triple to scene axes. Positions go (x, y, z) to
// (x, -z, y); rotations and scales go to (x, z, y).
func ConvertToBlender(v Vector, isPosition bool) mathutil.Vec3 {
	if isPosition {
		return mathutil.Vec3{v.X, -v.Z, v.Y}
	}
	return mathutil.Vec3{v.X, v.Z, v.Y}
}

// RotationUnits says how rotation values in the file are to be read.
type RotationUnits int

const (
	Degrees RotationUnits = iota
	Radians
)

func (u RotationUnits) String() string {
	if u == Radians {
		return "radians"
	}
	return "degrees"
}

// ParseRotationUnits accepts "degrees" (or "") and "radians".
func ParseRotationUnits(s string) (RotationUnits, error) {
	switch s {
	case "", "degrees":
		return Degrees, nil
	case "radians":
		return Radians, nil
	}
	return Degrees, fmt.Errorf("metadata: unknown rotation units %q", s)
}

// Transform returns location, Euler XYZ rotation in radians and scale in scene axes.
func (a Avatar) Transform(units RotationUnits) (loc, rot, scale mathutil.Vec3) {
	scale = mathutil.Vec3{1, 1, 1}
	if a.Position != nil {
		loc = ConvertToBlender(*a.Position, true)
	}
	if a.Rotation != nil {
		rot = ConvertToBlender(*a.Rotation, false)
		if units == Degrees {
			for i := range rot {
				rot[i] = mathutil.Deg2Rad(rot[i])
			}
		}
	}
	if a.Scale != nil {
		scale = ConvertToBlender(*a.Scale, false)
	}
	return loc, rot, scale
}
