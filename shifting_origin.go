package vtsmap

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gekko3d/vtsmap/vmath"
)

// ShiftParticipant is moved with the scene when the origin shifts.
type ShiftParticipant interface {
	// ShiftNode is the node moved on behalf of the participant.
	ShiftNode() *Node
	// BeforeOriginShift asks for consent. Refusing keeps the node in place.
	BeforeOriginShift(so *ShiftingOrigin) bool
	// AfterOriginShift is called once the move is complete.
	AfterOriginShift(so *ShiftingOrigin)
}

// OriginShiftListener drops position caches after a shift.
type OriginShiftListener interface {
	OriginShifted()
}

// ShiftingObject is the stock participant. It consents while enabled and,
// when bound to a coordinator, only for that coordinator.
type ShiftingObject struct {
	Node    *Node
	Origin  *ShiftingOrigin
	Enabled bool
	// OnAfterShift runs after every shift the object took part in.
	OnAfterShift func()
}

func NewShiftingObject(node *Node, origin *ShiftingOrigin) *ShiftingObject {
	return &ShiftingObject{Node: node, Origin: origin, Enabled: true}
}

func (o *ShiftingObject) ShiftNode() *Node { return o.Node }

func (o *ShiftingObject) BeforeOriginShift(so *ShiftingOrigin) bool {
	return o.Enabled && !o.Node.Destroyed() && (o.Origin == nil || o.Origin == so)
}

func (o *ShiftingObject) AfterOriginShift(so *ShiftingOrigin) {
	if o.OnAfterShift != nil {
		o.OnAfterShift()
	}
}

type ShiftState int

const (
	Stable ShiftState = iota
	Shifting
)

// Shift describes one completed origin shift.
type Shift struct {
	// Move is added to the local position of every moved node.
	Move mgl64.Vec3
	// Yaw in degrees about the host up axis through the origin.
	Yaw float64
	// From and To are the navigation points of the old and new origin.
	From, To mgl64.Vec3
	Moved    int
	Notified int
}

// ShiftingOrigin keeps the host origin near a focus node by re-anchoring
// the map and moving every consenting participant.
type ShiftingOrigin struct {
	ctx *Context
	Map *MapRoot
	// Focus is the node whose horizontal distance from the origin is watched.
	Focus             *Node
	DistanceThreshold float64
	// UpdateColliders also notifies collider probes, which is expensive.
	UpdateColliders bool

	state   ShiftState
	cameras []OriginShiftListener
	probes  []OriginShiftListener
	shifts  int
	last    Shift
}

func NewShiftingOrigin(ctx *Context, m *MapRoot, focus *Node) *ShiftingOrigin {
	return &ShiftingOrigin{
		ctx:               ctx,
		Map:               m,
		Focus:             focus,
		DistanceThreshold: ctx.Config.ShiftingOrigin.DistanceThreshold,
		UpdateColliders:   ctx.Config.ShiftingOrigin.UpdateColliders,
	}
}

func (so *ShiftingOrigin) State() ShiftState { return so.state }
func (so *ShiftingOrigin) Shifts() int       { return so.shifts }
func (so *ShiftingOrigin) LastShift() Shift  { return so.last }

// ShiftFacet marks an entity as a participant in the shifts of Origin.
type ShiftFacet struct {
	Origin      *ShiftingOrigin
	Participant ShiftParticipant
	// standalone entities carry nothing but the facet
	standalone bool
}

// Register adds p once; registering again is a no-op.
func (so *ShiftingOrigin) Register(p ShiftParticipant) {
	if slices.Contains(so.Participants(), p) {
		return
	}
	so.ctx.World.AddEntity(ShiftFacet{Origin: so, Participant: p, standalone: true})
}

// Attach makes an existing entity a participant through p.
func (so *ShiftingOrigin) Attach(eid EntityId, p ShiftParticipant) {
	so.ctx.World.AddComponents(eid, ShiftFacet{Origin: so, Participant: p})
}

func (so *ShiftingOrigin) Unregister(p ShiftParticipant) {
	w := so.ctx.World
	MakeQuery1[ShiftFacet](w).Map(func(eid EntityId, f *ShiftFacet) bool {
		if f.Origin != so || f.Participant != p {
			return true
		}
		if f.standalone {
			w.RemoveEntity(eid)
		} else {
			w.RemoveComponents(eid, ShiftFacet{})
		}
		return true
	})
}

// Participants lists this coordinator's participants in registration order.
func (so *ShiftingOrigin) Participants() []ShiftParticipant {
	type entry struct {
		eid EntityId
		p   ShiftParticipant
	}
	var entries []entry
	MakeQuery1[ShiftFacet](so.ctx.World).Map(func(eid EntityId, f *ShiftFacet) bool {
		if f.Origin == so {
			entries = append(entries, entry{eid, f.Participant})
		}
		return true
	})
	slices.SortFunc(entries, func(a, b entry) int { return cmp.Compare(a.eid, b.eid) })
	ps := make([]ShiftParticipant, len(entries))
	for i, e := range entries {
		ps[i] = e.p
	}
	return ps
}

func (so *ShiftingOrigin) RegisterCamera(l OriginShiftListener) {
	if !slices.Contains(so.cameras, l) {
		so.cameras = append(so.cameras, l)
	}
}

func (so *ShiftingOrigin) UnregisterCamera(l OriginShiftListener) {
	so.cameras = slices.DeleteFunc(so.cameras, func(q OriginShiftListener) bool { return q == l })
}

func (so *ShiftingOrigin) RegisterColliderProbe(l OriginShiftListener) {
	if !slices.Contains(so.probes, l) {
		so.probes = append(so.probes, l)
	}
}

func (so *ShiftingOrigin) UnregisterColliderProbe(l OriginShiftListener) {
	so.probes = slices.DeleteFunc(so.probes, func(q OriginShiftListener) bool { return q == l })
}

// FocusDistance is the horizontal distance of the focus node from the origin.
func (so *ShiftingOrigin) FocusDistance() float64 {
	if so.Focus == nil {
		return 0
	}
	return vmath.HorizontalDistance(vmath.UpcastVec3(so.Focus.WorldPosition()))
}

// Update checks the trigger and shifts when the focus is strictly farther
// than the threshold. A shift that cannot run yet is retried next tick.
func (so *ShiftingOrigin) Update() bool {
	if so.Focus == nil || !so.Map.Ready() {
		return false
	}
	if so.FocusDistance() <= so.DistanceThreshold {
		return false
	}
	if _, err := so.PerformShift(); err != nil {
		so.ctx.Logger().Debugf("origin shift postponed: %v", err)
		return false
	}
	return true
}

// PerformShift re-anchors the map under the focus node and moves the scene.
func (so *ShiftingOrigin) PerformShift() (Shift, error) {
	if so.state == Shifting {
		return Shift{}, fmt.Errorf("origin shift already in progress")
	}
	if so.Focus == nil {
		return Shift{}, fmt.Errorf("origin shift without focus")
	}
	so.state = Shifting
	defer func() { so.state = Stable }()

	so.ctx.Assert(so.focusCovered(), "focus node %q is not moved by any shift participant", so.Focus.Name)

	fp := so.Focus.WorldPosition()
	from, err := so.Map.HostToNavigation(mgl64.Vec3{})
	if err != nil {
		return Shift{}, err
	}
	to, err := so.Map.HostToNavigation(vmath.UpcastVec3(fp))
	if err != nil {
		return Shift{}, err
	}
	if err := MakeLocal(so.Map, to); err != nil {
		return Shift{}, err
	}

	move := fp.Mul(-1)
	shift := Shift{Move: vmath.UpcastVec3(move), From: from, To: to}
	if !so.Map.Engine.Projected() {
		shift.Yaw = (to[0] - from[0]) * vmath.Sign(from[1])
	}

	// collect consent first, snapshot so callbacks may (un)register
	participants := so.Participants()
	var consenting []ShiftParticipant
	consentingNodes := make(map[*Node]struct{})
	for _, p := range participants {
		if p.BeforeOriginShift(so) {
			consenting = append(consenting, p)
			consentingNodes[p.ShiftNode()] = struct{}{}
		}
	}

	// move only topmost consenting ancestors, each node once
	moved := make(map[*Node]struct{})
	for _, p := range consenting {
		n := p.ShiftNode()
		if _, done := moved[n]; done {
			continue
		}
		if hasAncestorIn(n, consentingNodes) {
			continue
		}
		n.Position = n.Position.Add(move)
		n.RotateAround(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, float32(shift.Yaw))
		moved[n] = struct{}{}
	}
	shift.Moved = len(moved)

	for _, p := range consenting {
		p.AfterOriginShift(so)
	}
	shift.Notified = len(consenting)

	for _, c := range slices.Clone(so.cameras) {
		c.OriginShifted()
	}
	if so.UpdateColliders {
		for _, c := range slices.Clone(so.probes) {
			c.OriginShifted()
		}
	}

	so.shifts++
	so.last = shift
	so.ctx.Logger().Infof("origin shifted: move %v yaw %.6f, moved %d of %d participants",
		shift.Move, shift.Yaw, shift.Moved, len(participants))
	return shift, nil
}

func (so *ShiftingOrigin) focusCovered() bool {
	for _, p := range so.Participants() {
		n := p.ShiftNode()
		if n == so.Focus || n.IsAncestorOf(so.Focus) {
			return true
		}
	}
	return false
}

func hasAncestorIn(n *Node, set map[*Node]struct{}) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if _, ok := set[p]; ok {
			return true
		}
	}
	return false
}
