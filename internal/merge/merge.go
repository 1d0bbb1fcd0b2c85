// Package merge folds one armature into another: every source bone is copied into the target,
// the target keeps its own hierarchy, the source's meshes are re-skinned to the target and the
// source armature is deleted.
package merge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"rig-merger/internal/scene"
)

// ErrArmatureNotFound is returned when either side of the merge is not an armature.
var ErrArmatureNotFound = errors.New("merge: armature not found")

// Armatures copies all bones of source into target and consumes source. Both objects' bases
// are expected to be identity already: bone endpoints are copied in local space verbatim.
// Returns target, renamed without a ".NNN" suffix.
func Armatures(sc *scene.Scene, source, target *scene.Object, log zerolog.Logger) (*scene.Object, error) {
	if source == nil || source.Armature == nil || target == nil || target.Armature == nil {
		return nil, ErrArmatureNotFound
	}
	if !source.Basis.IsIdentity() || !target.Basis.IsIdentity() {
		log.Warn().Str("source", source.Name).Str("target", target.Name).
			Msg("armature transforms not applied, merged bones will be misplaced")
	}

	if err := copyBones(sc, source, target, log); err != nil {
		return nil, err
	}
	if err := rebind(sc, source, target, log); err != nil {
		return nil, err
	}
	if err := sc.Remove(source); err != nil {
		return nil, fmt.Errorf("merge: remove %s: %w", source.Name, err)
	}

	if stem, _, found := strings.Cut(target.Name, "."); found {
		if _, err := sc.Rename(target, stem); err != nil {
			return nil, fmt.Errorf("merge: rename %s: %w", target.Name, err)
		}
	}
	log.Info().Str("armature", target.Name).Int("bones", target.Armature.Len()).Msg("merged armatures")
	return target, nil
}

func copyBones(sc *scene.Scene, source, target *scene.Object, log zerolog.Logger) error {
	src := source.Armature
	dst := target.Armature

	// Snapshot before anything moves: name -> parent name, "" for roots.
	targetOrder := dst.Names()
	originalParents := make(map[string]string, len(targetOrder))
	for _, name := range targetOrder {
		originalParents[name], _ = dst.ParentName(name)
	}

	edit, err := sc.BeginEdit(target)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	defer edit.Close()

	sourceBones := src.Bones()
	for _, b := range sourceBones {
		if !dst.Has(b.Name) {
			continue
		}
		if err := edit.RemoveBone(b.Name); err != nil {
			return fmt.Errorf("merge: replace %s: %w", b.Name, err)
		}
	}

	for _, b := range sourceBones {
		if err := edit.NewBone(b.Name, b.Head, b.Tail); err != nil {
			return fmt.Errorf("merge: copy %s: %w", b.Name, err)
		}
		if err := edit.SetDeform(b.Name, b.Deform); err != nil {
			return fmt.Errorf("merge: copy %s: %w", b.Name, err)
		}
	}

	// Pass 1 for the copied bones: a bone the target already had keeps the target's recorded
	// parent (or stays a root); only bones new to the target take the source's parent.
	chosen := make(map[string]string, len(sourceBones))
	for _, b := range sourceBones {
		if p, inTarget := originalParents[b.Name]; inTarget {
			if p != "" && dst.Has(p) {
				chosen[b.Name] = p
			}
			continue
		}
		if b.Parent >= 0 {
			if p := src.Bone(b.Parent).Name; dst.Has(p) {
				chosen[b.Name] = p
			}
		}
	}

	// Pass 2: every recorded target relationship whose ends both survived wins. These are
	// applied first; they come from one tree so they cannot loop among themselves.
	for _, name := range targetOrder {
		p := originalParents[name]
		if p == "" || !dst.Has(name) || !dst.Has(p) {
			continue
		}
		if err := edit.SetParent(name, p); err != nil {
			return fmt.Errorf("merge: restore %s -> %s: %w", name, p, err)
		}
		delete(chosen, name)
	}

	for _, b := range sourceBones {
		p, ok := chosen[b.Name]
		if !ok {
			continue
		}
		err := edit.SetParent(b.Name, p)
		if errors.Is(err, scene.ErrCycle) {
			log.Warn().Str("bone", b.Name).Str("parent", p).Msg("source parent would loop the target hierarchy, leaving bone at root")
			continue
		}
		if err != nil {
			return fmt.Errorf("merge: parent %s -> %s: %w", b.Name, p, err)
		}
	}
	return nil
}

// rebind moves the source's skinned meshes over to the target.
func rebind(sc *scene.Scene, source, target *scene.Object, log zerolog.Logger) error {
	meshes := sc.MeshesBoundTo(source)
	for _, c := range source.Children() {
		if c.Kind == scene.KindMesh && !contains(meshes, c) {
			meshes = append(meshes, c)
		}
	}

	for _, m := range meshes {
		if m.Mesh.Armature == source {
			m.Mesh.Armature = target
		}
		if err := sc.SetParent(m, target); err != nil {
			return fmt.Errorf("merge: reparent %s: %w", m.Name, err)
		}
		log.Debug().Str("mesh", m.Name).Str("armature", target.Name).Msg("rebound mesh")
	}
	return nil
}

func contains(objs []*scene.Object, o *scene.Object) bool {
	for _, x := range objs {
		if x == o {
			return true
		}
	}
	return false
}
