package scenefile

import (
	"fmt"

	"rig-merger/internal/mathutil"
	"rig-merger/internal/scene"
)

// Import links every object of doc into sc and returns the first root object. Mesh bindings
// are resolved against the document's own object names before any disambiguation.
func Import(sc *scene.Scene, doc *Document) (*scene.Object, error) {
	if len(doc.Objects) == 0 {
		return nil, ErrEmptyDocument
	}

	im := importer{sc: sc, byName: make(map[string]*scene.Object)}
	var first *scene.Object
	for i := range doc.Objects {
		obj, err := im.object(&doc.Objects[i], nil)
		if err != nil {
			return nil, err
		}
		if first == nil {
			first = obj
		}
	}

	for _, b := range im.bindings {
		arm, ok := im.byName[b.armature]
		if !ok || arm.Kind != scene.KindArmature {
			return nil, fmt.Errorf("scenefile: mesh %s: armature %q not in document", b.mesh.Name, b.armature)
		}
		b.mesh.Mesh.Armature = arm
	}
	return first, nil
}

// ImportFile loads path and imports it into sc.
func ImportFile(sc *scene.Scene, path string) (*scene.Object, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	obj, err := Import(sc, doc)
	if err != nil {
		return nil, fmt.Errorf("scenefile: import %s: %w", path, err)
	}
	return obj, nil
}

type binding struct {
	mesh     *scene.Object
	armature string
}

type importer struct {
	sc       *scene.Scene
	byName   map[string]*scene.Object
	bindings []binding
}

func (im *importer) object(d *ObjectDoc, parent *scene.Object) (*scene.Object, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("scenefile: object without a name")
	}
	if _, dup := im.byName[d.Name]; dup {
		return nil, fmt.Errorf("scenefile: duplicate object name %s", d.Name)
	}

	var obj *scene.Object
	switch d.Type {
	case "", "empty":
		obj = scene.NewEmpty(d.Name)
	case "armature":
		arm, err := scene.NewArmature(boneSpecs(d.Bones))
		if err != nil {
			return nil, fmt.Errorf("scenefile: armature %s: %w", d.Name, err)
		}
		obj = scene.NewArmatureObject(d.Name, arm)
	case "mesh":
		obj = scene.NewMeshObject(d.Name, buildMesh(d))
		if d.Armature != "" {
			im.bindings = append(im.bindings, binding{mesh: obj, armature: d.Armature})
		}
	default:
		return nil, fmt.Errorf("scenefile: object %s: unknown type %q", d.Name, d.Type)
	}

	if d.Matrix != nil {
		obj.Basis = mathutil.Mat4(*d.Matrix)
	} else {
		scale := mathutil.Vec3{1, 1, 1}
		if d.Scale != nil {
			scale = *d.Scale
		}
		obj.SetTransform(d.Location, d.Rotation, scale)
	}

	if err := im.sc.Link(obj, parent); err != nil {
		return nil, fmt.Errorf("scenefile: link %s: %w", d.Name, err)
	}
	im.byName[d.Name] = obj

	for i := range d.Children {
		if _, err := im.object(&d.Children[i], obj); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func boneSpecs(bones []BoneDoc) []scene.BoneSpec {
	specs := make([]scene.BoneSpec, len(bones))
	for i, b := range bones {
		deform := true
		if b.Deform != nil {
			deform = *b.Deform
		}
		specs[i] = scene.BoneSpec{
			Name:   b.Name,
			Parent: b.Parent,
			Head:   b.Head,
			Tail:   b.Tail,
			Roll:   b.Roll,
			Deform: deform,
		}
	}
	return specs
}

func buildMesh(d *ObjectDoc) *scene.Mesh {
	m := scene.NewMesh()
	for _, g := range d.VertexGroups {
		m.AddGroup(g)
	}
	for _, v := range d.Vertices {
		weights := make([]scene.Weight, len(v.Weights))
		for i, w := range v.Weights {
			weights[i] = scene.Weight{Bone: w.Group, Weight: w.Weight}
		}
		m.AddVertex(v.Co, weights...)
	}
	return m
}
