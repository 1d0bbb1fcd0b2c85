package scene

import (
	"fmt"

	"rig-merger/internal/mathutil"
)

// EditSession is exclusive structural access to one armature's bones. Open it with
// Scene.BeginEdit and always Close it, normally with defer; no other object-level operation
// runs while it is open.
type EditSession struct {
	scene  *Scene
	obj    *Object
	arm    *Armature
	closed bool
}

// BeginEdit opens an edit session on an armature object.
func (s *Scene) BeginEdit(obj *Object) (*EditSession, error) {
	if obj == nil || obj.Kind != KindArmature || obj.Armature == nil {
		return nil, ErrNotArmature
	}
	if obj.scene != s {
		return nil, fmt.Errorf("scene: edit %s: %w", obj.Name, ErrNotLinked)
	}
	if s.editing != nil {
		return nil, fmt.Errorf("scene: edit %s while %s is open: %w", obj.Name, s.editing.obj.Name, ErrEditSessionOpen)
	}
	e := &EditSession{scene: s, obj: obj, arm: obj.Armature}
	s.editing = e
	return e, nil
}

// Editing reports whether an edit session is open.
func (s *Scene) Editing() bool { return s.editing != nil }

// Close releases the session. Safe to call more than once.
func (e *EditSession) Close() {
	if e.closed {
		return
	}
	e.closed = true
	if e.scene.editing == e {
		e.scene.editing = nil
	}
}

// Armature gives read access to the bones being edited.
func (e *EditSession) Armature() *Armature { return e.arm }

// NewBone appends a parentless deform bone with roll 0.
func (e *EditSession) NewBone(name string, head, tail mathutil.Vec3) error {
	if e.closed {
		return ErrSessionClosed
	}
	_, err := e.arm.add(Bone{Name: name, Head: head, Tail: tail, Parent: -1, Deform: true})
	return err
}

// RemoveBone deletes a bone, handing its children over per the scene's orphan policy.
func (e *EditSession) RemoveBone(name string) error {
	i, err := e.lookup(name)
	if err != nil {
		return err
	}
	e.arm.remove(i, e.scene.OrphanPolicy)
	return nil
}

// SetHeadTail overwrites both endpoints. Roll and parenting are untouched.
func (e *EditSession) SetHeadTail(name string, head, tail mathutil.Vec3) error {
	i, err := e.lookup(name)
	if err != nil {
		return err
	}
	e.arm.bones[i].Head = head
	e.arm.bones[i].Tail = tail
	return nil
}

func (e *EditSession) SetDeform(name string, deform bool) error {
	i, err := e.lookup(name)
	if err != nil {
		return err
	}
	e.arm.bones[i].Deform = deform
	return nil
}

// SetParent links name under parent within this armature; an empty parent clears the link.
// Links that would close a loop fail with ErrCycle and change nothing.
func (e *EditSession) SetParent(name, parent string) error {
	i, err := e.lookup(name)
	if err != nil {
		return err
	}
	if parent == "" {
		return e.arm.setParent(i, -1)
	}
	p, err := e.lookup(parent)
	if err != nil {
		return err
	}
	if err := e.arm.setParent(i, p); err != nil {
		return fmt.Errorf("scene: parent %s under %s: %w", name, parent, err)
	}
	return nil
}

func (e *EditSession) lookup(name string) (int, error) {
	if e.closed {
		return -1, ErrSessionClosed
	}
	i, ok := e.arm.index[name]
	if !ok {
		return -1, fmt.Errorf("scene: %s in %s: %w", name, e.obj.Name, ErrBoneNotFound)
	}
	return i, nil
}
