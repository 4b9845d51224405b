package vtsmap

import (
	"reflect"
	"slices"
)

type opKind int

const (
	opAdd opKind = iota
	opAddComponents
	opRemoveComponents
	opRemove
)

type pendingOp struct {
	kind       opKind
	eid        EntityId
	components []any
}

// World is the registry of host objects and their facets. Mutations made
// while a query is iterating are buffered and applied, in order, when the
// outermost query returns. Render thread only.
type World struct {
	ecs       Ecs
	iterating int
	pending   []pendingOp
}

func NewWorld() *World {
	return &World{ecs: MakeEcs()}
}

// AddEntity returns the new id immediately, even when the insertion itself
// is buffered.
func (w *World) AddEntity(components ...any) EntityId {
	eid := w.ecs.nextEntityId()
	w.apply(pendingOp{kind: opAdd, eid: eid, components: components})
	return eid
}

func (w *World) AddComponents(eid EntityId, components ...any) {
	w.apply(pendingOp{kind: opAddComponents, eid: eid, components: components})
}

func (w *World) RemoveComponents(eid EntityId, components ...any) {
	w.apply(pendingOp{kind: opRemoveComponents, eid: eid, components: components})
}

func (w *World) RemoveEntity(eid EntityId) {
	w.apply(pendingOp{kind: opRemove, eid: eid})
}

func (w *World) Alive(eid EntityId) bool {
	_, ok := w.ecs.entityIndex[eid]
	return ok
}

func (w *World) Len() int {
	return len(w.ecs.entityIndex)
}

func (w *World) apply(op pendingOp) {
	if w.iterating > 0 {
		w.pending = append(w.pending, op)
		return
	}
	switch op.kind {
	case opAdd:
		w.ecs.insertEntity(op.eid, op.components...)
	case opAddComponents:
		w.ecs.addComponents(op.eid, op.components...)
	case opRemoveComponents:
		w.ecs.removeComponents(op.eid, op.components...)
	case opRemove:
		w.ecs.removeEntity(op.eid)
	}
}

func (w *World) begin() { w.iterating++ }

func (w *World) end() {
	w.iterating--
	if w.iterating > 0 {
		return
	}
	for len(w.pending) > 0 {
		ops := w.pending
		w.pending = nil
		for _, op := range ops {
			w.apply(op)
		}
	}
}

// GetComponent returns the entity's component of type T. The pointer is
// valid until the next mutation of the world.
func GetComponent[T any](w *World, eid EntityId) (*T, bool) {
	archId, ok := w.ecs.entityIndex[eid]
	if !ok {
		return nil, false
	}
	arch := w.ecs.archetypes[archId]
	data, ok := arch.componentData[identifyComponents1[T](&w.ecs)]
	if !ok {
		return nil, false
	}
	return &data.([]T)[arch.entities[eid]], true
}

type Query1[A any] struct{ w *World }
type Query2[A, B any] struct{ w *World }
type Query3[A, B, C any] struct{ w *World }

func MakeQuery1[A any](w *World) Query1[A]             { return Query1[A]{w: w} }
func MakeQuery2[A, B any](w *World) Query2[A, B]       { return Query2[A, B]{w: w} }
func MakeQuery3[A, B, C any](w *World) Query3[A, B, C] { return Query3[A, B, C]{w: w} }

// Map visits every entity carrying A until m returns false. Components named
// in optionals may be missing and are then passed as nil.
func (q Query1[A]) Map(m func(EntityId, *A) bool, optionals ...any) {
	ecs := &q.w.ecs
	id1 := identifyComponents1[A](ecs)
	opt := identifyOptionals(ecs, optionals...)

	q.w.begin()
	defer q.w.end()
	for _, arch := range ecs.archetypes {
		comps1, no_a, ok := columnOf[A](arch, id1, opt)
		if !ok {
			continue
		}
		for entityId, r := range arch.entities {
			if !m(entityId, pick(comps1, r, no_a)) {
				return
			}
		}
	}
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	ecs := &q.w.ecs
	id1, id2 := identifyComponents1[A](ecs), identifyComponents1[B](ecs)
	opt := identifyOptionals(ecs, optionals...)

	q.w.begin()
	defer q.w.end()
	for _, arch := range ecs.archetypes {
		comps1, no_a, ok := columnOf[A](arch, id1, opt)
		if !ok {
			continue
		}
		comps2, no_b, ok := columnOf[B](arch, id2, opt)
		if !ok {
			continue
		}
		for entityId, r := range arch.entities {
			if !m(entityId, pick(comps1, r, no_a), pick(comps2, r, no_b)) {
				return
			}
		}
	}
}

func (q Query3[A, B, C]) Map(m func(EntityId, *A, *B, *C) bool, optionals ...any) {
	ecs := &q.w.ecs
	id1, id2, id3 := identifyComponents1[A](ecs), identifyComponents1[B](ecs), identifyComponents1[C](ecs)
	opt := identifyOptionals(ecs, optionals...)

	q.w.begin()
	defer q.w.end()
	for _, arch := range ecs.archetypes {
		comps1, no_a, ok := columnOf[A](arch, id1, opt)
		if !ok {
			continue
		}
		comps2, no_b, ok := columnOf[B](arch, id2, opt)
		if !ok {
			continue
		}
		comps3, no_c, ok := columnOf[C](arch, id3, opt)
		if !ok {
			continue
		}
		for entityId, r := range arch.entities {
			if !m(entityId, pick(comps1, r, no_a), pick(comps2, r, no_b), pick(comps3, r, no_c)) {
				return
			}
		}
	}
}

// Entities lists the ids carrying A in creation order.
func (q Query1[A]) Entities() []EntityId {
	var ids []EntityId
	q.Map(func(eid EntityId, _ *A) bool {
		ids = append(ids, eid)
		return true
	})
	slices.Sort(ids)
	return ids
}

// columnOf returns the archetype's slice of T. missing is set when the
// archetype lacks T but T is optional; ok is false when it lacks a required T.
func columnOf[T any](arch *archetype, id componentId, opt set[componentId]) (comps []T, missing bool, ok bool) {
	if data, found := arch.componentData[id]; found {
		return data.([]T), false, true
	}
	if _, optional := opt[id]; optional {
		return nil, true, true
	}
	return nil, false, false
}

func pick[T any](comps []T, r row, missing bool) *T {
	if missing {
		return nil
	}
	return &comps[r]
}

func identifyOptionals(ecs *Ecs, components ...any) set[componentId] {
	res := make(set[componentId])
	for _, c := range components {
		res[ecs.getComponentId(componentType(c))] = struct{}{}
	}
	return res
}

func identifyComponents1[A any](ecs *Ecs) componentId {
	return ecs.getComponentId(reflect.TypeOf((*A)(nil)).Elem())
}
