package prune

import (
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"rig-merger/internal/mathutil"
	"rig-merger/internal/scene"
)

type fixture struct {
	sc   *scene.Scene
	arm  *scene.Object
	body *scene.Object
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	sc := scene.New()
	arm, err := scene.NewArmature([]scene.BoneSpec{
		{Name: "Hips", Head: mathutil.Vec3{0, 0, 1}, Tail: mathutil.Vec3{0, 0, 1.2}, Deform: true},
		{Name: "Hand", Parent: "Hips", Head: mathutil.Vec3{10, 0, 0}, Tail: mathutil.Vec3{11, 0, 0}, Deform: true},
		{Name: "HatBone", Parent: "Hips", Head: mathutil.Vec3{0, 0, 5}, Tail: mathutil.Vec3{0, 0, 6}, Deform: true},
		{Name: "ZeroWeight", Parent: "Hips", Head: mathutil.Vec3{20, 0, 0}, Tail: mathutil.Vec3{21, 0, 0}, Deform: true},
		{Name: "Control", Head: mathutil.Vec3{30, 0, 0}, Tail: mathutil.Vec3{31, 0, 0}},
	})
	if err != nil {
		t.Fatalf("armature: %v", err)
	}
	armObj := scene.NewArmatureObject("Armature", arm)
	mustLink(t, sc, armObj, nil)

	body := scene.NewMesh()
	body.Armature = armObj
	body.AddVertex(mathutil.Vec3{-1, -1, 0}, scene.Weight{Bone: "Hips", Weight: 1})
	body.AddVertex(mathutil.Vec3{1, 1, 2}, scene.Weight{Bone: "Hand", Weight: 0.5}, scene.Weight{Bone: "ZeroWeight", Weight: 0})
	bodyObj := scene.NewMeshObject("Body", body)
	mustLink(t, sc, bodyObj, armObj)

	hat := scene.NewMesh()
	hat.Armature = armObj
	hat.AddVertex(mathutil.Vec3{0, 0, 5}, scene.Weight{Bone: "HatBone", Weight: 1})
	hat.AddVertex(mathutil.Vec3{0.5, 0.5, 6})
	mustLink(t, sc, scene.NewMeshObject("Hat", hat), armObj)

	mustLink(t, sc, scene.NewEmpty("Anchor"), armObj)

	return fixture{sc: sc, arm: armObj, body: bodyObj}
}

func TestCleanUpMeshesRemovesUnkeptMeshesAndUnusedBones(t *testing.T) {
	f := newFixture(t)

	res, err := CleanUpMeshes(f.sc, f.arm, []string{"Body"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("CleanUpMeshes: %v", err)
	}

	if !reflect.DeepEqual(res.RemovedMeshes, []string{"Hat"}) || !reflect.DeepEqual(res.KeptMeshes, []string{"Body"}) {
		t.Errorf("meshes kept %v removed %v", res.KeptMeshes, res.RemovedMeshes)
	}
	if f.sc.Object("Hat") != nil {
		t.Errorf("Hat still in scene")
	}
	if f.sc.Object("Anchor") == nil {
		t.Errorf("non-mesh child removed")
	}
	if res.Armature != "Armature" {
		t.Errorf("armature = %q", res.Armature)
	}
	if !reflect.DeepEqual(res.RemovedBones, []string{"HatBone", "ZeroWeight"}) {
		t.Errorf("removed bones = %v", res.RemovedBones)
	}

	a := f.arm.Armature
	for _, name := range []string{"Hips", "Hand", "Control"} {
		if !a.Has(name) {
			t.Errorf("%s pruned", name)
		}
	}
	if f.sc.Editing() {
		t.Errorf("edit session left open")
	}
}

func TestWeightedBoneKeptWhereverItIs(t *testing.T) {
	f := newFixture(t)
	f.body.Basis = mathutil.Compose(mathutil.Vec3{0, 100, 0}, mathutil.Vec3{}, mathutil.Vec3{1, 1, 1})

	got := Candidates(f.arm, []*scene.Object{f.body})

	// With the mesh moved away, Hips loses its spatial claim but keeps its weights.
	want := []string{"HatBone", "ZeroWeight"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("candidates = %v, want %v", got, want)
	}
}

func TestSpatialPresenceKeepsUnweightedBone(t *testing.T) {
	f := newFixture(t)
	f.body.Mesh.AddVertex(mathutil.Vec3{0, 0, 6})

	got := Candidates(f.arm, []*scene.Object{f.body})
	if !reflect.DeepEqual(got, []string{"ZeroWeight"}) {
		t.Fatalf("candidates = %v, want [ZeroWeight]", got)
	}
}

func TestBonesWithoutArmatureIsNoop(t *testing.T) {
	sc := scene.New()
	loose := scene.NewMeshObject("Loose", scene.NewMesh())
	mustLink(t, sc, loose, nil)

	arm, removed, err := Bones(sc, []*scene.Object{loose}, zerolog.Nop())
	if arm != nil || removed != nil || err != nil {
		t.Fatalf("Bones = %v, %v, %v", arm, removed, err)
	}
}

func TestDeletionOrderMostChildrenFirst(t *testing.T) {
	arm, err := scene.NewArmature([]scene.BoneSpec{
		{Name: "Leaf"},
		{Name: "Fork"},
		{Name: "Link"},
		{Name: "ForkA", Parent: "Fork"},
		{Name: "ForkB", Parent: "Fork"},
		{Name: "LinkA", Parent: "Link"},
	})
	if err != nil {
		t.Fatalf("armature: %v", err)
	}

	got := DeletionOrder(arm, []string{"Leaf", "Fork", "Link", "Missing"})
	want := []string{"Fork", "Link", "Leaf"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestBonesReparentsOrphansOfDeletedBones(t *testing.T) {
	sc := scene.New()
	arm, err := scene.NewArmature([]scene.BoneSpec{
		{Name: "Hips", Tail: mathutil.Vec3{0, 0, 0.1}, Deform: true},
		{Name: "Tail", Parent: "Hips", Head: mathutil.Vec3{0, -5, 0}, Tail: mathutil.Vec3{0, -6, 0}, Deform: true},
		{Name: "TailTip", Parent: "Tail", Head: mathutil.Vec3{0, -6, 0}, Tail: mathutil.Vec3{0, -7, 0}},
	})
	if err != nil {
		t.Fatalf("armature: %v", err)
	}
	armObj := scene.NewArmatureObject("Armature", arm)
	mustLink(t, sc, armObj, nil)
	mesh := scene.NewMesh()
	mesh.AddVertex(mathutil.Vec3{-1, -1, -1}, scene.Weight{Bone: "Hips", Weight: 1})
	mesh.AddVertex(mathutil.Vec3{1, 1, 1})
	body := scene.NewMeshObject("Body", mesh)
	mustLink(t, sc, body, armObj)

	_, removed, err := Bones(sc, []*scene.Object{body}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Bones: %v", err)
	}
	if !reflect.DeepEqual(removed, []string{"Tail"}) {
		t.Fatalf("removed = %v", removed)
	}
	if p, _ := arm.ParentName("TailTip"); p != "Hips" {
		t.Errorf("TailTip parent = %q, want Hips", p)
	}
}

func mustLink(t *testing.T, sc *scene.Scene, obj, parent *scene.Object) {
	t.Helper()
	if err := sc.Link(obj, parent); err != nil {
		t.Fatalf("link %s: %v", obj.Name, err)
	}
}
