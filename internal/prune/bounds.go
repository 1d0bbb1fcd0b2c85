package prune

import (
	"gonum.org/v1/gonum/spatial/r3"

	"rig-merger/internal/scene"
)

// nearMeshes reports whether either endpoint lies inside the world box of any kept mesh.
func nearMeshes(head, tail r3.Vec, kept []*scene.Object) bool {
	for _, m := range kept {
		box, ok := m.WorldBounds()
		if !ok {
			continue
		}
		if contains(box, head) || contains(box, tail) {
			return true
		}
	}
	return false
}

// contains is inclusive on every face, so a flat box (a single-plane mesh) still contains the
// points on its plane.
func contains(b r3.Box, v r3.Vec) bool {
	return b.Min.X <= v.X && v.X <= b.Max.X &&
		b.Min.Y <= v.Y && v.Y <= b.Max.Y &&
		b.Min.Z <= v.Z && v.Z <= b.Max.Z
}
