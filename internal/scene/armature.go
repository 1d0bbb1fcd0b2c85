package scene

import (
	"fmt"

	"rig-merger/internal/mathutil"
)

// OrphanPolicy decides what happens to the children of a removed bone.
type OrphanPolicy int

const (
	// OrphanReparent hands the children to the removed bone's parent, so each ends up under
	// its nearest surviving ancestor.
	OrphanReparent OrphanPolicy = iota
	// OrphanDetach turns the children into roots.
	OrphanDetach
)

func (p OrphanPolicy) String() string {
	if p == OrphanDetach {
		return "detach"
	}
	return "reparent"
}

// ParseOrphanPolicy accepts "reparent" (or "") and "detach".
func ParseOrphanPolicy(s string) (OrphanPolicy, error) {
	switch s {
	case "", "reparent":
		return OrphanReparent, nil
	case "detach":
		return OrphanDetach, nil
	}
	return OrphanReparent, fmt.Errorf("scene: unknown orphan policy %q", s)
}

// Bone is one joint segment. Head and Tail are in the armature's local space.
// Parent indexes the owning armature's bone slice, -1 for a root.
type Bone struct {
	Name   string
	Head   mathutil.Vec3
	Tail   mathutil.Vec3
	Roll   float64
	Parent int
	Deform bool
}

// BoneSpec describes a bone by name, for building an armature from loaded data.
type BoneSpec struct {
	Name   string
	Parent string
	Head   mathutil.Vec3
	Tail   mathutil.Vec3
	Roll   float64
	Deform bool
}

// Armature is an index-addressed bone arena. Bones keep their declaration order; the
// name index is rebuilt whenever indices shift.
type Armature struct {
	bones []Bone
	index map[string]int
}

// NewArmature builds an armature from specs. Parents may be declared after their children.
// Duplicate names, dangling parent names and parent cycles are errors.
func NewArmature(specs []BoneSpec) (*Armature, error) {
	a := &Armature{index: make(map[string]int, len(specs))}
	for _, sp := range specs {
		if _, err := a.add(Bone{
			Name:   sp.Name,
			Head:   sp.Head,
			Tail:   sp.Tail,
			Roll:   sp.Roll,
			Parent: -1,
			Deform: sp.Deform,
		}); err != nil {
			return nil, err
		}
	}
	for i, sp := range specs {
		if sp.Parent == "" {
			continue
		}
		p, ok := a.index[sp.Parent]
		if !ok {
			return nil, fmt.Errorf("scene: bone %s parent %s: %w", sp.Name, sp.Parent, ErrBoneNotFound)
		}
		if err := a.setParent(i, p); err != nil {
			return nil, fmt.Errorf("scene: bone %s parent %s: %w", sp.Name, sp.Parent, err)
		}
	}
	return a, nil
}

func (a *Armature) Len() int { return len(a.bones) }

// Bone returns a copy of the bone at index i.
func (a *Armature) Bone(i int) Bone { return a.bones[i] }

// Bones returns a copy of every bone in declaration order.
func (a *Armature) Bones() []Bone {
	out := make([]Bone, len(a.bones))
	copy(out, a.bones)
	return out
}

// Names returns bone names in declaration order.
func (a *Armature) Names() []string {
	out := make([]string, len(a.bones))
	for i, b := range a.bones {
		out[i] = b.Name
	}
	return out
}

func (a *Armature) Lookup(name string) (int, bool) {
	i, ok := a.index[name]
	return i, ok
}

func (a *Armature) Has(name string) bool {
	_, ok := a.index[name]
	return ok
}

func (a *Armature) BoneByName(name string) (Bone, bool) {
	i, ok := a.index[name]
	if !ok {
		return Bone{}, false
	}
	return a.bones[i], true
}

// ParentName returns the parent's name ("" for a root). ok is false when name is unknown.
func (a *Armature) ParentName(name string) (parent string, ok bool) {
	i, ok := a.index[name]
	if !ok {
		return "", false
	}
	if p := a.bones[i].Parent; p >= 0 {
		return a.bones[p].Name, true
	}
	return "", true
}

// Children returns the names of the direct children of name.
func (a *Armature) Children(name string) []string {
	i, ok := a.index[name]
	if !ok {
		return nil
	}
	var out []string
	for _, b := range a.bones {
		if b.Parent == i {
			out = append(out, b.Name)
		}
	}
	return out
}

// ChildCount returns the number of direct children of the bone at index i.
func (a *Armature) ChildCount(i int) int {
	n := 0
	for _, b := range a.bones {
		if b.Parent == i {
			n++
		}
	}
	return n
}

func (a *Armature) add(b Bone) (int, error) {
	if _, ok := a.index[b.Name]; ok {
		return -1, fmt.Errorf("scene: bone %s: %w", b.Name, ErrBoneExists)
	}
	a.bones = append(a.bones, b)
	i := len(a.bones) - 1
	a.index[b.Name] = i
	return i, nil
}

func (a *Armature) setParent(child, parent int) error {
	if parent < 0 {
		a.bones[child].Parent = -1
		return nil
	}
	for p := parent; p >= 0; p = a.bones[p].Parent {
		if p == child {
			return ErrCycle
		}
	}
	a.bones[child].Parent = parent
	return nil
}

func (a *Armature) remove(i int, policy OrphanPolicy) {
	heir := -1
	if policy == OrphanReparent {
		heir = a.bones[i].Parent
	}
	for j := range a.bones {
		if a.bones[j].Parent == i {
			a.bones[j].Parent = heir
		}
	}

	a.bones = append(a.bones[:i], a.bones[i+1:]...)
	for j := range a.bones {
		if a.bones[j].Parent > i {
			a.bones[j].Parent--
		}
	}
	a.reindex()
}

func (a *Armature) reindex() {
	a.index = make(map[string]int, len(a.bones))
	for i, b := range a.bones {
		a.index[b.Name] = i
	}
}

func (a *Armature) transform(m mathutil.Mat4) {
	for i := range a.bones {
		a.bones[i].Head = m.MulPoint(a.bones[i].Head)
		a.bones[i].Tail = m.MulPoint(a.bones[i].Tail)
	}
}
