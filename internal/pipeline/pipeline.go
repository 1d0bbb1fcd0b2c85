// Package pipeline runs a head-on-body merge end to end: place and prune both avatars, align the
// head rig's spine onto the body's, bake transforms, fuse the armatures and export the result.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"rig-merger/internal/align"
	"rig-merger/internal/humanoid"
	"rig-merger/internal/merge"
	"rig-merger/internal/metadata"
	"rig-merger/internal/prune"
	"rig-merger/internal/scene"
)

// ErrArmatureNotFound is returned when either avatar has no armature. Nothing is exported.
var ErrArmatureNotFound = errors.New("pipeline: armature not found")

// Exporter writes the merged armature and its meshes somewhere, returning where.
type Exporter interface {
	Export(sc *scene.Scene, armature *scene.Object) (string, error)
}

type Options struct {
	RotationUnits metadata.RotationUnits
}

// Result summarises a run.
type Result struct {
	Source    prune.Result   `json:"source"`
	Target    prune.Result   `json:"target"`
	Aligned   humanoid.Pairs `json:"aligned"`
	Merged    string         `json:"merged_armature"`
	BoneCount int            `json:"bone_count"`
	Output    string         `json:"output"`

	// Armature is the merged armature object, for previews.
	Armature *scene.Object `json:"-"`
}

// Run merges source (the head avatar) into target (the body avatar) inside sc and exports the
// merged armature. Steps stop at the first error; the partial Result is returned with it.
func Run(sc *scene.Scene, source, target *scene.Object, meta metadata.Document, exp Exporter, opts Options, log zerolog.Logger) (Result, error) {
	var res Result
	var err error

	res.Source, err = place(sc, source, meta.Head, opts, log)
	if err != nil {
		return res, err
	}
	res.Target, err = place(sc, target, meta.Body, opts, log)
	if err != nil {
		return res, err
	}

	srcArm := scene.ArmatureIn(source)
	dstArm := scene.ArmatureIn(target)
	if srcArm == nil || dstArm == nil {
		log.Error().Bool("source", srcArm != nil).Bool("target", dstArm != nil).
			Msg("armature not found, merge aborted")
		return res, ErrArmatureNotFound
	}

	res.Aligned, err = align.Vertebrae(sc, srcArm, dstArm, log)
	if err != nil {
		return res, fmt.Errorf("pipeline: align: %w", err)
	}
	log.Info().Int("pairs", len(res.Aligned)).Msg("aligned spine")

	for _, obj := range []*scene.Object{source, srcArm, target, dstArm} {
		if err := bake(sc, obj); err != nil {
			return res, err
		}
	}

	merged, err := merge.Armatures(sc, srcArm, dstArm, log)
	if err != nil {
		return res, fmt.Errorf("pipeline: merge: %w", err)
	}
	res.Armature = merged
	res.Merged = merged.Name
	res.BoneCount = merged.Armature.Len()

	res.Output, err = exp.Export(sc, merged)
	if err != nil {
		return res, fmt.Errorf("pipeline: export: %w", err)
	}
	return res, nil
}

// place sets obj's transform from its metadata record and prunes it to the kept meshes.
func place(sc *scene.Scene, obj *scene.Object, meta metadata.Avatar, opts Options, log zerolog.Logger) (prune.Result, error) {
	if obj == nil {
		return prune.Result{}, ErrArmatureNotFound
	}
	loc, rot, scale := meta.Transform(opts.RotationUnits)
	obj.SetTransform(loc, rot, scale)

	res, err := prune.CleanUpMeshes(sc, obj, meta.Meshes, log)
	if err != nil {
		return res, fmt.Errorf("pipeline: prune %s: %w", obj.Name, err)
	}
	return res, nil
}

// bake applies obj's transform unless it is already identity.
func bake(sc *scene.Scene, obj *scene.Object) error {
	if obj.Basis.IsIdentity() {
		return nil
	}
	if err := sc.ApplyTransform(obj); err != nil {
		return fmt.Errorf("pipeline: apply transform %s: %w", obj.Name, err)
	}
	return nil
}
