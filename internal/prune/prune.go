// Package prune trims an imported avatar down to the meshes the user kept and then drops the
// deform bones none of those meshes still depend on.
package prune

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"rig-merger/internal/scene"
)

// Result records what CleanUpMeshes removed.
type Result struct {
	Object        string   `json:"object"`
	Armature      string   `json:"armature,omitempty"`
	KeptMeshes    []string `json:"kept_meshes"`
	RemovedMeshes []string `json:"removed_meshes"`
	RemovedBones  []string `json:"removed_bones"`
}

// CleanUpMeshes deletes every direct child mesh of obj whose name is not in keep, then prunes
// the bones of the armature the kept meshes are skinned to.
func CleanUpMeshes(sc *scene.Scene, obj *scene.Object, keep []string, log zerolog.Logger) (Result, error) {
	res := Result{Object: obj.Name}
	keepSet := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		keepSet[name] = struct{}{}
	}

	var kept []*scene.Object
	for _, child := range obj.Children() {
		if child.Kind != scene.KindMesh {
			continue
		}
		if _, ok := keepSet[child.Name]; ok {
			kept = append(kept, child)
			res.KeptMeshes = append(res.KeptMeshes, child.Name)
			continue
		}
		if err := sc.Remove(child); err != nil {
			return res, fmt.Errorf("prune: remove mesh %s: %w", child.Name, err)
		}
		res.RemovedMeshes = append(res.RemovedMeshes, child.Name)
		log.Debug().Str("object", obj.Name).Str("mesh", child.Name).Msg("removed mesh")
	}

	arm, removed, err := Bones(sc, kept, log)
	if arm != nil {
		res.Armature = arm.Name
	}
	res.RemovedBones = removed
	return res, err
}

// Bones deletes the deform bones of the kept meshes' armature that carry no positive weight in
// any kept mesh and whose head and tail both lie outside every kept mesh's world bounds.
// Returns the armature examined (nil if none) and the deleted bone names in deletion order.
func Bones(sc *scene.Scene, kept []*scene.Object, log zerolog.Logger) (*scene.Object, []string, error) {
	var armObj *scene.Object
	for _, m := range kept {
		if armObj = sc.FindArmature(m); armObj != nil {
			break
		}
	}
	if armObj == nil {
		return nil, nil, nil
	}

	candidates := Candidates(armObj, kept)
	if len(candidates) == 0 {
		return armObj, nil, nil
	}

	edit, err := sc.BeginEdit(armObj)
	if err != nil {
		return armObj, nil, fmt.Errorf("prune: %w", err)
	}
	defer edit.Close()

	order := DeletionOrder(armObj.Armature, candidates)
	removed := make([]string, 0, len(order))
	for _, name := range order {
		if !edit.Armature().Has(name) {
			continue
		}
		if err := edit.RemoveBone(name); err != nil {
			return armObj, removed, fmt.Errorf("prune: remove bone %s: %w", name, err)
		}
		removed = append(removed, name)
	}
	log.Info().Str("armature", armObj.Name).Int("bones", len(removed)).Msg("pruned unused bones")
	return armObj, removed, nil
}

// Candidates lists, in declaration order, the deform bones with neither weights nor spatial
// presence in the kept meshes.
func Candidates(armObj *scene.Object, kept []*scene.Object) []string {
	world := armObj.World()
	var out []string
	for _, b := range armObj.Armature.Bones() {
		if !b.Deform {
			continue
		}
		if hasWeights(b.Name, kept) {
			continue
		}
		if nearMeshes(scene.ToR3(world.MulPoint(b.Head)), scene.ToR3(world.MulPoint(b.Tail)), kept) {
			continue
		}
		out = append(out, b.Name)
	}
	return out
}

// DeletionOrder sorts names by direct-child count, most children first. Ties keep their
// input order. Counts are taken once, before any deletion.
func DeletionOrder(arm *scene.Armature, names []string) []string {
	counts := make(map[string]int, len(names))
	var order []string
	for _, n := range names {
		i, ok := arm.Lookup(n)
		if !ok {
			continue
		}
		counts[n] = arm.ChildCount(i)
		order = append(order, n)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return counts[order[a]] > counts[order[b]]
	})
	return order
}

func hasWeights(bone string, kept []*scene.Object) bool {
	for _, m := range kept {
		if m.Mesh != nil && m.Mesh.HasPositiveWeight(bone) {
			return true
		}
	}
	return false
}
