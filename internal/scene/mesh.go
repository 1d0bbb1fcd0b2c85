package scene

import (
	"gonum.org/v1/gonum/spatial/r3"

	"rig-merger/internal/mathutil"
)

// GroupWeight is one vertex-group influence on a vertex.
type GroupWeight struct {
	Group  int
	Weight float64
}

// Vertex is a mesh-local position plus its group weights.
type Vertex struct {
	Co     mathutil.Vec3
	Groups []GroupWeight
}

// Weight names a bone-named vertex group and an influence, for AddVertex.
type Weight struct {
	Bone   string
	Weight float64
}

// Mesh holds skinned geometry. Vertex groups are named after the bones that drive them;
// Armature is the object the mesh is skinned to, if any.
type Mesh struct {
	Vertices []Vertex
	Armature *Object

	groups     []string
	groupIndex map[string]int
}

func NewMesh() *Mesh {
	return &Mesh{groupIndex: make(map[string]int)}
}

// AddGroup returns the index of the named vertex group, creating it if needed.
func (m *Mesh) AddGroup(name string) int {
	if i, ok := m.groupIndex[name]; ok {
		return i
	}
	m.groups = append(m.groups, name)
	m.groupIndex[name] = len(m.groups) - 1
	return len(m.groups) - 1
}

// Groups returns vertex group names by index.
func (m *Mesh) Groups() []string {
	out := make([]string, len(m.groups))
	copy(out, m.groups)
	return out
}

// AddVertex appends a vertex, creating any vertex groups its weights name.
func (m *Mesh) AddVertex(co mathutil.Vec3, weights ...Weight) {
	v := Vertex{Co: co}
	for _, w := range weights {
		v.Groups = append(v.Groups, GroupWeight{Group: m.AddGroup(w.Bone), Weight: w.Weight})
	}
	m.Vertices = append(m.Vertices, v)
}

// HasPositiveWeight reports whether any vertex carries a weight above zero in the named group.
func (m *Mesh) HasPositiveWeight(group string) bool {
	idx, ok := m.groupIndex[group]
	if !ok {
		return false
	}
	for _, v := range m.Vertices {
		for _, g := range v.Groups {
			if g.Group == idx && g.Weight > 0 {
				return true
			}
		}
	}
	return false
}

// LocalBounds returns the axis-aligned box of the vertices. ok is false for an empty mesh.
func (m *Mesh) LocalBounds() (lo, hi mathutil.Vec3, ok bool) {
	if len(m.Vertices) == 0 {
		return lo, hi, false
	}
	lo, hi = m.Vertices[0].Co, m.Vertices[0].Co
	for _, v := range m.Vertices[1:] {
		lo = lo.Min(v.Co)
		hi = hi.Max(v.Co)
	}
	return lo, hi, true
}

func (m *Mesh) transform(t mathutil.Mat4) {
	for i := range m.Vertices {
		m.Vertices[i].Co = t.MulPoint(m.Vertices[i].Co)
	}
}

// WorldBounds returns the world-space axis-aligned box around the eight corners of the mesh's
// local box. ok is false when the object has no mesh or the mesh has no vertices.
func (o *Object) WorldBounds() (box r3.Box, ok bool) {
	if o.Mesh == nil {
		return box, false
	}
	lo, hi, ok := o.Mesh.LocalBounds()
	if !ok {
		return box, false
	}

	world := o.World()
	var wlo, whi mathutil.Vec3
	for c := 0; c < 8; c++ {
		corner := mathutil.Vec3{lo[0], lo[1], lo[2]}
		if c&1 != 0 {
			corner[0] = hi[0]
		}
		if c&2 != 0 {
			corner[1] = hi[1]
		}
		if c&4 != 0 {
			corner[2] = hi[2]
		}
		p := world.MulPoint(corner)
		if c == 0 {
			wlo, whi = p, p
			continue
		}
		wlo = wlo.Min(p)
		whi = whi.Max(p)
	}
	return r3.Box{Min: ToR3(wlo), Max: ToR3(whi)}, true
}

// ToR3 converts to gonum's vector type.
func ToR3(v mathutil.Vec3) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}
