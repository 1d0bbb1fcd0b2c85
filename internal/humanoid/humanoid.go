// Package humanoid classifies bone names into the spine landmarks both rigs share and pairs
// them up across two armatures.
package humanoid

import (
	"strings"

	"golang.org/x/text/cases"

	"rig-merger/internal/scene"
)

// Slot is a canonical landmark joint.
type Slot int

const (
	SlotNone Slot = iota
	Hips
	Spine
	Chest
	Neck
	Head
)

// Canonical lists the slots the cross-rig map is built from, in map order.
var Canonical = []Slot{Hips, Spine, Chest, Neck, Head}

func (s Slot) String() string {
	switch s {
	case Hips:
		return "Hips"
	case Spine:
		return "Spine"
	case Chest:
		return "Chest"
	case Neck:
		return "Neck"
	case Head:
		return "Head"
	}
	return "None"
}

// MarshalText writes the slot by name in reports.
func (s Slot) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// rules are checked in order; the first substring hit wins.
var rules = []struct {
	slot  Slot
	terms []string
}{
	{Chest, []string{"upperchest", "chest"}},
	{Spine, []string{"spine"}},
	{Hips, []string{"hips", "pelvis"}},
	{Neck, []string{"neck"}},
	{Head, []string{"head"}},
}

// Identify classifies a bone name, ignoring case. "UpperChest" is a Chest and "HeadTop" a Head.
func Identify(name string) Slot {
	n := cases.Fold().String(name)
	for _, r := range rules {
		for _, term := range r.terms {
			if strings.Contains(n, term) {
				return r.slot
			}
		}
	}
	return SlotNone
}

// IndexSlots maps each slot to the first bone, in declaration order, that classifies into it.
func IndexSlots(arm *scene.Armature) map[Slot]string {
	slots := make(map[Slot]string)
	for _, name := range arm.Names() {
		slot := Identify(name)
		if slot == SlotNone {
			continue
		}
		if _, taken := slots[slot]; !taken {
			slots[slot] = name
		}
	}
	return slots
}

// Pair links a head-rig bone to the body-rig bone filling the same slot.
type Pair struct {
	Slot Slot   `json:"slot"`
	Head string `json:"head"`
	Body string `json:"body"`
}

// Pairs is an ordered cross-rig correspondence.
type Pairs []Pair

// Map returns the head-name to body-name mapping.
func (p Pairs) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, pair := range p {
		m[pair.Head] = pair.Body
	}
	return m
}

// BuildHeadToBodyMap pairs the canonical slots present in both rigs. Slots either rig lacks
// are left out; an empty result is valid.
func BuildHeadToBodyMap(head, body *scene.Armature) Pairs {
	headSlots := IndexSlots(head)
	bodySlots := IndexSlots(body)

	var out Pairs
	for _, slot := range Canonical {
		h, okH := headSlots[slot]
		b, okB := bodySlots[slot]
		if okH && okB {
			out = append(out, Pair{Slot: slot, Head: h, Body: b})
		}
	}
	return out
}
