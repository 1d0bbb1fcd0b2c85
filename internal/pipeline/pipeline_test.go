package pipeline

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"rig-merger/internal/mathutil"
	"rig-merger/internal/metadata"
	"rig-merger/internal/scene"
)

func v(x, y, z float64) mathutil.Vec3 { return mathutil.Vec3{x, y, z} }

type fakeExporter struct {
	calls    int
	armature *scene.Object
	err      error
}

func (f *fakeExporter) Export(sc *scene.Scene, arm *scene.Object) (string, error) {
	f.calls++
	f.armature = arm
	if f.err != nil {
		return "", f.err
	}
	return "Temp/merged_avatar.json", nil
}

func link(t *testing.T, sc *scene.Scene, obj, parent *scene.Object) *scene.Object {
	t.Helper()
	if err := sc.Link(obj, parent); err != nil {
		t.Fatalf("link %s: %v", obj.Name, err)
	}
	return obj
}

func armature(t *testing.T, name string, specs []scene.BoneSpec) *scene.Object {
	t.Helper()
	a, err := scene.NewArmature(specs)
	if err != nil {
		t.Fatalf("armature %s: %v", name, err)
	}
	return scene.NewArmatureObject(name, a)
}

// headAvatar is an empty holding a rig and two meshes, modelled at the origin.
func headAvatar(t *testing.T, sc *scene.Scene) *scene.Object {
	root := link(t, sc, scene.NewEmpty("Head"), nil)
	arm := link(t, sc, armature(t, "HeadArmature", []scene.BoneSpec{
		{Name: "Hips", Head: v(0, 0, 0), Tail: v(0, 0, 0.1), Deform: true},
		{Name: "Spine", Parent: "Hips", Head: v(0, 0, 0.1), Tail: v(0, 0, 0.3), Deform: true},
		{Name: "Neck", Parent: "Spine", Head: v(0, 0, 0.3), Tail: v(0, 0, 0.4), Deform: true},
		{Name: "Head", Parent: "Neck", Head: v(0, 0, 0.4), Tail: v(0, 0, 0.6), Deform: true},
		{Name: "Hair", Parent: "Head", Head: v(0, 0, 0.6), Tail: v(0, 0, 0.7), Deform: true},
	}), root)

	face := scene.NewMesh()
	face.Armature = arm
	face.AddVertex(v(0, 0, 0.5), scene.Weight{Bone: "Head", Weight: 1}, scene.Weight{Bone: "Neck", Weight: 0.5})
	face.AddVertex(v(0, 0, 0.65), scene.Weight{Bone: "Hair", Weight: 1})
	link(t, sc, scene.NewMeshObject("Face", face), root)

	stub := scene.NewMesh()
	stub.Armature = arm
	stub.AddVertex(v(0, 0, 0.2), scene.Weight{Bone: "Spine", Weight: 1})
	link(t, sc, scene.NewMeshObject("HeadBody", stub), root)
	return root
}

// bodyAvatar is a bare rig with a disambiguated name, as a second import would produce.
func bodyAvatar(t *testing.T, sc *scene.Scene) *scene.Object {
	arm := link(t, sc, armature(t, "Body.001", []scene.BoneSpec{
		{Name: "Hips", Head: v(0, 0, 1), Tail: v(0, 0, 1.1), Deform: true},
		{Name: "Spine", Parent: "Hips", Head: v(0, 0, 1.1), Tail: v(0, 0, 1.3), Deform: true},
		{Name: "Chest", Parent: "Spine", Head: v(0, 0, 1.3), Tail: v(0, 0, 1.45), Deform: true},
		{Name: "Neck", Parent: "Chest", Head: v(0, 0, 1.45), Tail: v(0, 0, 1.55), Deform: true},
		{Name: "Head", Parent: "Neck", Head: v(0, 0, 1.55), Tail: v(0, 0, 1.75), Deform: true},
	}), nil)

	body := scene.NewMesh()
	body.Armature = arm
	for _, b := range []string{"Hips", "Spine", "Chest", "Neck", "Head"} {
		bone, _ := arm.Armature.BoneByName(b)
		body.AddVertex(bone.Head, scene.Weight{Bone: b, Weight: 1})
	}
	link(t, sc, scene.NewMeshObject("BodyMesh", body), arm)

	shoes := scene.NewMesh()
	shoes.AddVertex(v(0, 0, 0))
	link(t, sc, scene.NewMeshObject("Shoes", shoes), arm)
	return arm
}

func meta() metadata.Document {
	return metadata.Document{
		Head: metadata.Avatar{Position: &metadata.Vector{Y: 1.5}, Meshes: []string{"Face"}},
		Body: metadata.Avatar{Meshes: []string{"BodyMesh"}},
	}
}

func TestRun(t *testing.T) {
	sc := scene.New()
	head := headAvatar(t, sc)
	body := bodyAvatar(t, sc)
	exp := &fakeExporter{}

	res, err := Run(sc, head, body, meta(), exp, Options{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if exp.calls != 1 || exp.armature != body {
		t.Fatalf("exporter called %d times with %v", exp.calls, exp.armature)
	}
	if res.Merged != "Body" || body.Name != "Body" {
		t.Errorf("merged name = %s, want Body", res.Merged)
	}
	if res.Output != "Temp/merged_avatar.json" {
		t.Errorf("Output = %s", res.Output)
	}

	if got := res.Source.RemovedMeshes; len(got) != 1 || got[0] != "HeadBody" {
		t.Errorf("source removed meshes = %v", got)
	}
	if got := res.Source.RemovedBones; len(got) != 2 || got[0] != "Hips" || got[1] != "Spine" {
		t.Errorf("source removed bones = %v, want [Hips Spine]", got)
	}
	if got := res.Target.RemovedMeshes; len(got) != 1 || got[0] != "Shoes" {
		t.Errorf("target removed meshes = %v", got)
	}
	if len(res.Target.RemovedBones) != 0 {
		t.Errorf("target removed bones = %v", res.Target.RemovedBones)
	}
	if len(res.Aligned) != 2 {
		t.Errorf("aligned = %+v, want Neck and Head", res.Aligned)
	}

	if sc.Object("HeadArmature") != nil {
		t.Error("source armature still in the scene")
	}

	arm := body.Armature
	if res.BoneCount != 6 || arm.Len() != 6 {
		t.Errorf("bone count = %d, want 6 (%v)", res.BoneCount, arm.Names())
	}
	parents := map[string]string{"Spine": "Hips", "Chest": "Spine", "Neck": "Chest", "Head": "Neck", "Hair": "Head"}
	for child, want := range parents {
		if got, _ := arm.ParentName(child); got != want {
			t.Errorf("parent(%s) = %q, want %q", child, got, want)
		}
	}

	// The head rig's Head bone was aligned onto the body's, then copied in.
	headBone, _ := arm.BoneByName("Head")
	if !headBone.Head.ApproxEqual(v(0, 0, 1.55), 1e-9) || !headBone.Tail.ApproxEqual(v(0, 0, 1.75), 1e-9) {
		t.Errorf("Head bone = %v -> %v", headBone.Head, headBone.Tail)
	}
	// Hair kept its place relative to the avatar placement.
	hair, _ := arm.BoneByName("Hair")
	if !hair.Head.ApproxEqual(v(0, 0, 2.1), 1e-9) {
		t.Errorf("Hair head = %v, want [0 0 2.1]", hair.Head)
	}

	face := sc.Object("Face")
	if face == nil || face.Mesh.Armature != body || face.Parent() != body {
		t.Fatalf("Face not rebound to the merged armature")
	}
	lo, _, _ := face.Mesh.LocalBounds()
	if got := face.World().MulPoint(lo); !got.ApproxEqual(v(0, 0, 2.0), 1e-9) {
		t.Errorf("Face moved: lowest vertex at %v, want [0 0 2]", got)
	}
}

func TestRunMissingArmature(t *testing.T) {
	sc := scene.New()
	head := link(t, sc, scene.NewEmpty("Head"), nil)
	body := bodyAvatar(t, sc)
	exp := &fakeExporter{}

	_, err := Run(sc, head, body, meta(), exp, Options{}, zerolog.Nop())
	if !errors.Is(err, ErrArmatureNotFound) {
		t.Fatalf("err = %v, want ErrArmatureNotFound", err)
	}
	if exp.calls != 0 {
		t.Error("exporter called after a missing armature")
	}
	if sc.Object("Body.001") == nil {
		t.Error("body renamed or removed despite the abort")
	}
}

func TestRunExportError(t *testing.T) {
	sc := scene.New()
	boom := errors.New("disk full")
	exp := &fakeExporter{err: boom}

	res, err := Run(sc, headAvatar(t, sc), bodyAvatar(t, sc), meta(), exp, Options{}, zerolog.Nop())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if res.Merged != "Body" {
		t.Errorf("partial result lost the merge: %+v", res)
	}
}
