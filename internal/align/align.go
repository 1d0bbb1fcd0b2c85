// Package align moves the head rig's spine landmarks onto the body rig's joint positions so the
// two skeletons meet before they are merged.
package align

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"rig-merger/internal/humanoid"
	"rig-merger/internal/mathutil"
	"rig-merger/internal/scene"
)

type target struct {
	pair       humanoid.Pair
	head, tail mathutil.Vec3
}

// Vertebrae rewrites the head armature's landmark bones so their world-space endpoints match
// the body armature's. Roll and parenting are left alone. Pairs whose body or head bone is
// missing are skipped. Returns the pairs actually applied.
func Vertebrae(sc *scene.Scene, head, body *scene.Object, log zerolog.Logger) (humanoid.Pairs, error) {
	if head == nil || head.Armature == nil || body == nil || body.Armature == nil {
		return nil, scene.ErrNotArmature
	}

	pairs := humanoid.BuildHeadToBodyMap(head.Armature, body.Armature)
	if len(pairs) == 0 {
		log.Debug().Str("head", head.Name).Str("body", body.Name).Msg("no shared landmarks, nothing to align")
		return nil, nil
	}

	bodyWorld := body.World()
	var targets []target
	for _, p := range pairs {
		b, ok := body.Armature.BoneByName(p.Body)
		if !ok {
			log.Warn().Str("bone", p.Body).Str("armature", body.Name).Msg("body bone missing, skipping pair")
			continue
		}
		targets = append(targets, target{
			pair: p,
			head: bodyWorld.MulPoint(b.Head),
			tail: bodyWorld.MulPoint(b.Tail),
		})
	}
	if len(targets) == 0 {
		return nil, nil
	}

	return apply(sc, head, targets, log)
}

func apply(sc *scene.Scene, head *scene.Object, targets []target, log zerolog.Logger) (humanoid.Pairs, error) {
	edit, err := sc.BeginEdit(head)
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}
	defer edit.Close()

	world := head.World()
	if det := world.Linear().Det(); math.Abs(det) < 1e-12 {
		log.Warn().Str("armature", head.Name).Float64("det", det).
			Msg("head armature transform is singular, aligned bones will be misplaced")
	}
	worldToLocal := world.Inverse()
	var applied humanoid.Pairs
	for _, t := range targets {
		err := edit.SetHeadTail(t.pair.Head, worldToLocal.MulPoint(t.head), worldToLocal.MulPoint(t.tail))
		if errors.Is(err, scene.ErrBoneNotFound) {
			log.Warn().Str("bone", t.pair.Head).Str("armature", head.Name).Msg("head bone missing, skipping pair")
			continue
		}
		if err != nil {
			return applied, fmt.Errorf("align: %s: %w", t.pair.Head, err)
		}
		log.Debug().Str("slot", t.pair.Slot.String()).Str("head", t.pair.Head).Str("body", t.pair.Body).Msg("aligned")
		applied = append(applied, t.pair)
	}
	return applied, nil
}
