// Package scene is the in-memory scene graph the merge pipeline mutates: objects with local
// bases and parent links, armature bone data, and skinned meshes.
//
// A Scene is passed explicitly to every operation. Structural bone edits happen only through an
// EditSession, and at most one session may be open per Scene; object-level operations are
// refused while it is.
package scene

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"rig-merger/internal/mathutil"
)

var (
	ErrEditSessionOpen = errors.New("scene: an edit session is already open")
	ErrSessionClosed   = errors.New("scene: edit session is closed")
	ErrNotArmature     = errors.New("scene: object is not an armature")
	ErrNotLinked       = errors.New("scene: object is not linked to this scene")
	ErrBoneExists      = errors.New("scene: bone already exists")
	ErrBoneNotFound    = errors.New("scene: bone not found")
	ErrCycle           = errors.New("scene: parent link would create a cycle")
)

// Kind is the object type.
type Kind int

const (
	KindEmpty Kind = iota
	KindArmature
	KindMesh
)

func (k Kind) String() string {
	switch k {
	case KindArmature:
		return "armature"
	case KindMesh:
		return "mesh"
	default:
		return "empty"
	}
}

// Object is a named node in the scene. Basis is relative to the parent.
type Object struct {
	Name     string
	Kind     Kind
	Basis    mathutil.Mat4
	Armature *Armature
	Mesh     *Mesh

	parent   *Object
	children []*Object
	scene    *Scene
}

func NewEmpty(name string) *Object {
	return &Object{Name: name, Kind: KindEmpty, Basis: mathutil.Mat4Identity()}
}

func NewArmatureObject(name string, arm *Armature) *Object {
	return &Object{Name: name, Kind: KindArmature, Basis: mathutil.Mat4Identity(), Armature: arm}
}

func NewMeshObject(name string, mesh *Mesh) *Object {
	return &Object{Name: name, Kind: KindMesh, Basis: mathutil.Mat4Identity(), Mesh: mesh}
}

// SetTransform replaces the basis with location × rotation (Euler XYZ, radians) × scale.
func (o *Object) SetTransform(loc, rot, scale mathutil.Vec3) {
	o.Basis = mathutil.Compose(loc, rot, scale)
}

func (o *Object) Parent() *Object { return o.parent }

// Children returns the direct children in link order.
func (o *Object) Children() []*Object {
	out := make([]*Object, len(o.children))
	copy(out, o.children)
	return out
}

// ChildrenRecursive returns all descendants, depth-first in link order.
func (o *Object) ChildrenRecursive() []*Object {
	var out []*Object
	for _, c := range o.children {
		out = append(out, c)
		out = append(out, c.ChildrenRecursive()...)
	}
	return out
}

// World chains the bases of o and its ancestors.
func (o *Object) World() mathutil.Mat4 {
	if o.parent == nil {
		return o.Basis
	}
	return mathutil.Mat4Mul(o.parent.World(), o.Basis)
}

// Scene owns every linked object. Object names are unique within a Scene.
type Scene struct {
	// OrphanPolicy decides where the children of a removed bone go.
	OrphanPolicy OrphanPolicy

	objects []*Object
	byName  map[string]*Object
	editing *EditSession
}

func New() *Scene {
	return &Scene{byName: make(map[string]*Object)}
}

// Link adds obj under parent (nil for a root). A name already taken gets a ".NNN" suffix;
// the name actually used is written back to obj.Name.
func (s *Scene) Link(obj, parent *Object) error {
	if s.editing != nil {
		return ErrEditSessionOpen
	}
	if obj.scene != nil {
		return fmt.Errorf("scene: object %s is already linked", obj.Name)
	}
	if parent != nil && parent.scene != s {
		return fmt.Errorf("scene: link %s under %s: %w", obj.Name, parent.Name, ErrNotLinked)
	}
	obj.Name = s.uniqueName(obj.Name, nil)
	obj.scene = s
	obj.parent = parent
	if parent != nil {
		parent.children = append(parent.children, obj)
	}
	s.objects = append(s.objects, obj)
	s.byName[obj.Name] = obj
	return nil
}

// Objects returns every linked object in link order.
func (s *Scene) Objects() []*Object {
	out := make([]*Object, len(s.objects))
	copy(out, s.objects)
	return out
}

// Object looks an object up by name.
func (s *Scene) Object(name string) *Object {
	return s.byName[name]
}

// Roots returns the parentless objects in link order.
func (s *Scene) Roots() []*Object {
	var out []*Object
	for _, o := range s.objects {
		if o.parent == nil {
			out = append(out, o)
		}
	}
	return out
}

// Remove unlinks obj. Its children become roots and keep their world placement, and mesh
// bindings that pointed at it are cleared.
func (s *Scene) Remove(obj *Object) error {
	if s.editing != nil {
		return ErrEditSessionOpen
	}
	if obj.scene != s {
		return fmt.Errorf("scene: remove %s: %w", obj.Name, ErrNotLinked)
	}

	for _, c := range obj.children {
		c.Basis = c.World()
		c.parent = nil
	}
	obj.children = nil
	s.detach(obj)

	for i, o := range s.objects {
		if o == obj {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			break
		}
	}
	delete(s.byName, obj.Name)
	for _, o := range s.objects {
		if o.Mesh != nil && o.Mesh.Armature == obj {
			o.Mesh.Armature = nil
		}
	}
	obj.scene = nil
	return nil
}

// SetParent moves obj under parent (nil for a root) keeping its world placement.
func (s *Scene) SetParent(obj, parent *Object) error {
	if s.editing != nil {
		return ErrEditSessionOpen
	}
	if obj.scene != s || (parent != nil && parent.scene != s) {
		return fmt.Errorf("scene: parent %s: %w", obj.Name, ErrNotLinked)
	}
	for p := parent; p != nil; p = p.parent {
		if p == obj {
			return fmt.Errorf("scene: parent %s under %s: %w", obj.Name, parent.Name, ErrCycle)
		}
	}

	world := obj.World()
	s.detach(obj)
	obj.parent = parent
	if parent != nil {
		parent.children = append(parent.children, obj)
		obj.Basis = mathutil.Mat4Mul(parent.World().Inverse(), world)
	} else {
		obj.Basis = world
	}
	return nil
}

// Rename gives obj a new name, disambiguated against the other objects, and returns it.
func (s *Scene) Rename(obj *Object, name string) (string, error) {
	if s.editing != nil {
		return "", ErrEditSessionOpen
	}
	if obj.scene != s {
		return "", fmt.Errorf("scene: rename %s: %w", obj.Name, ErrNotLinked)
	}
	delete(s.byName, obj.Name)
	obj.Name = s.uniqueName(name, obj)
	s.byName[obj.Name] = obj
	return obj.Name, nil
}

// ApplyTransform bakes obj's basis into its own data (bone endpoints or mesh vertices) and
// into its children's bases, then resets the basis to identity. Nothing moves in world space.
func (s *Scene) ApplyTransform(obj *Object) error {
	if s.editing != nil {
		return ErrEditSessionOpen
	}
	if obj.scene != s {
		return fmt.Errorf("scene: apply transform %s: %w", obj.Name, ErrNotLinked)
	}

	m := obj.Basis
	if m.IsIdentity() {
		return nil
	}
	if obj.Armature != nil {
		obj.Armature.transform(m)
	}
	if obj.Mesh != nil {
		obj.Mesh.transform(m)
	}
	for _, c := range obj.children {
		c.Basis = mathutil.Mat4Mul(m, c.Basis)
	}
	obj.Basis = mathutil.Mat4Identity()
	return nil
}

// FindArmature returns the armature a mesh object is skinned to: its binding when set,
// else its parent when that is an armature.
func (s *Scene) FindArmature(obj *Object) *Object {
	if obj.Mesh != nil && obj.Mesh.Armature != nil {
		return obj.Mesh.Armature
	}
	if obj.parent != nil && obj.parent.Kind == KindArmature {
		return obj.parent
	}
	return nil
}

// ArmatureIn returns obj itself when it is an armature, else its first armature descendant.
func ArmatureIn(obj *Object) *Object {
	if obj == nil {
		return nil
	}
	if obj.Kind == KindArmature {
		return obj
	}
	for _, c := range obj.ChildrenRecursive() {
		if c.Kind == KindArmature {
			return c
		}
	}
	return nil
}

// MeshesBoundTo returns the mesh objects whose binding is arm, in link order.
func (s *Scene) MeshesBoundTo(arm *Object) []*Object {
	var out []*Object
	for _, o := range s.objects {
		if o.Mesh != nil && o.Mesh.Armature == arm {
			out = append(out, o)
		}
	}
	return out
}

func (s *Scene) detach(obj *Object) {
	p := obj.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == obj {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	obj.parent = nil
}

func (s *Scene) uniqueName(name string, self *Object) string {
	if o, ok := s.byName[name]; !ok || o == self {
		return name
	}
	stem := name
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		if _, err := strconv.Atoi(name[i+1:]); err == nil {
			stem = name[:i]
		}
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s.%03d", stem, n)
		if o, ok := s.byName[candidate]; !ok || o == self {
			return candidate
		}
	}
}
