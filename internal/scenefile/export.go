package scenefile

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"rig-merger/internal/mathutil"
	"rig-merger/internal/scene"
)

var ErrNothingToExport = errors.New("scenefile: nothing to export")

// Profile records the axis and scale conventions the exported file is written for.
type Profile struct {
	GlobalScale        float64 `json:"global_scale" yaml:"global_scale"`
	ApplyScaleOptions  string  `json:"apply_scale_options" yaml:"apply_scale_options"`
	ApplyUnitScale     bool    `json:"apply_unit_scale" yaml:"apply_unit_scale"`
	BakeSpaceTransform bool    `json:"bake_space_transform" yaml:"bake_space_transform"`
	AddLeafBones       bool    `json:"add_leaf_bones" yaml:"add_leaf_bones"`
	PrimaryBoneAxis    string  `json:"primary_bone_axis" yaml:"primary_bone_axis"`
	SecondaryBoneAxis  string  `json:"secondary_bone_axis" yaml:"secondary_bone_axis"`
	AxisForward        string  `json:"axis_forward" yaml:"axis_forward"`
	AxisUp             string  `json:"axis_up" yaml:"axis_up"`
}

// UnityProfile is the profile game-engine importers expect.
var UnityProfile = Profile{
	GlobalScale:       1.0,
	ApplyScaleOptions: "FBX_SCALE_ALL",
	ApplyUnitScale:    true,
	PrimaryBoneAxis:   "Y",
	SecondaryBoneAxis: "X",
	AxisForward:       "-Z",
	AxisUp:            "Y",
}

// Exporter writes the merged armature and its meshes to Path.
type Exporter struct {
	Path    string
	Profile Profile
	DryRun  bool
	Log     zerolog.Logger
}

// NewExporter returns an exporter using UnityProfile.
func NewExporter(path string, log zerolog.Logger) *Exporter {
	return &Exporter{Path: path, Profile: UnityProfile, Log: log}
}

// Export selects arm and every mesh beneath it and writes them. It returns the output path.
func (e *Exporter) Export(sc *scene.Scene, arm *scene.Object) (string, error) {
	doc, err := Selection(arm, e.Profile)
	if err != nil {
		return "", err
	}

	if e.DryRun {
		e.Log.Info().Str("path", e.Path).Int("meshes", len(doc.Objects[0].Children)).
			Msg("dry run, skipping export")
		return e.Path, nil
	}
	if err := Save(e.Path, doc); err != nil {
		return "", err
	}
	e.Log.Info().Str("path", e.Path).Int("meshes", len(doc.Objects[0].Children)).Msg("exported")
	return e.Path, nil
}

// Selection builds the export document for arm: the armature at its world placement with its
// mesh descendants as direct children, placed relative to it.
func Selection(arm *scene.Object, profile Profile) (*Document, error) {
	if arm == nil || arm.Kind != scene.KindArmature {
		return nil, ErrNothingToExport
	}

	world := arm.World()
	root := ObjectDoc{
		Name:   arm.Name,
		Type:   "armature",
		Matrix: matrix(world),
		Bones:  boneDocs(arm.Armature),
	}

	inv := world.Inverse()
	for _, child := range arm.ChildrenRecursive() {
		if child.Kind != scene.KindMesh {
			continue
		}
		md := meshDoc(child)
		md.Matrix = matrix(mathutil.Mat4Mul(inv, child.World()))
		if child.Mesh.Armature == arm {
			md.Armature = arm.Name
		}
		root.Children = append(root.Children, md)
	}
	if len(root.Children) == 0 {
		return nil, fmt.Errorf("%w: armature %s has no meshes", ErrNothingToExport, arm.Name)
	}

	p := profile
	return &Document{Export: &p, Objects: []ObjectDoc{root}}, nil
}

func matrix(m mathutil.Mat4) *[16]float64 {
	a := [16]float64(m)
	return &a
}

func boneDocs(a *scene.Armature) []BoneDoc {
	bones := a.Bones()
	out := make([]BoneDoc, len(bones))
	for i, b := range bones {
		deform := b.Deform
		out[i] = BoneDoc{
			Name:   b.Name,
			Head:   b.Head,
			Tail:   b.Tail,
			Roll:   b.Roll,
			Deform: &deform,
		}
		if b.Parent >= 0 {
			out[i].Parent = bones[b.Parent].Name
		}
	}
	return out
}

func meshDoc(obj *scene.Object) ObjectDoc {
	m := obj.Mesh
	groups := m.Groups()
	d := ObjectDoc{
		Name:         obj.Name,
		Type:         "mesh",
		VertexGroups: groups,
		Vertices:     make([]VertexDoc, len(m.Vertices)),
	}
	for i, v := range m.Vertices {
		vd := VertexDoc{Co: v.Co}
		for _, g := range v.Groups {
			vd.Weights = append(vd.Weights, WeightDoc{Group: groups[g.Group], Weight: g.Weight})
		}
		d.Vertices[i] = vd
	}
	return d
}
