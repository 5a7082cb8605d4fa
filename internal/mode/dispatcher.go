// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mode

import (
	"github.com/gogpu/oit/internal/fragment"
)

// State is the selection of one quadrant. The zero State is DepthTest/Less
// at tier 2.
type State struct {
	family Family
	// subs remembers the sub-mode of every family, so leaving a family and
	// coming back restores it.
	subs [familyCount]int
	tier fragment.Tier
}

// NewState returns a state on mode m at tier t.
func NewState(m Mode, t fragment.Tier) (State, error) {
	var s State
	if err := s.SetMode(m); err != nil {
		return State{}, err
	}
	if err := s.SetTier(t); err != nil {
		return State{}, err
	}
	return s, nil
}

// Mode returns the selected mode.
func (s State) Mode() Mode { return Mode{Family: s.family, Sub: s.subs[s.family]} }

// Tier returns the node capacity tier.
func (s State) Tier() fragment.Tier { return s.tier }

// SetMode selects m.
func (s *State) SetMode(m Mode) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.family = m.Family
	s.subs[m.Family] = m.Sub
	return nil
}

// SetTier selects tier t.
func (s *State) SetTier(t fragment.Tier) error {
	if !t.Valid() {
		return enumError("tier", t)
	}
	s.tier = t
	return nil
}

// CycleFamily moves step families forward, wrapping around.
func (s *State) CycleFamily(step int) {
	s.family = Family(wrap(int(s.family)+step, FamilyCount))
}

// CycleSub moves step sub-modes forward within the family, wrapping around.
func (s *State) CycleSub(step int) {
	s.subs[s.family] = wrap(s.subs[s.family]+step, s.family.SubModes())
}

// Action tells the caller what a key press changed.
type Action uint8

// Actions.
const (
	ActionNone Action = iota
	ActionControl
	ActionMode
	ActionTier
	ActionLayout
	ActionLock
	ActionScenePrev
	ActionSceneNext
	ActionToggle

	// ActionIgnored is returned for a quadrant key outside the active layout.
	ActionIgnored
)

var actionNames = [...]string{
	ActionNone:      "none",
	ActionControl:   "control",
	ActionMode:      "mode",
	ActionTier:      "tier",
	ActionLayout:    "layout",
	ActionLock:      "lock",
	ActionScenePrev: "scene-prev",
	ActionSceneNext: "scene-next",
	ActionToggle:    "toggle",
	ActionIgnored:   "ignored",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "action?"
}

// Dispatcher is the selection state of all quadrants plus the global
// toggles. It does not render; the caller maps the selected modes to
// executors every frame.
//
// Dispatcher is not safe for concurrent use.
type Dispatcher struct {
	quadrants [MaxQuadrants]State
	layout    Layout
	control   int
	locked    bool

	textured  bool
	depthTest bool
	immediate bool
}

// DefaultMode returns the initial mode of quadrant q: quadrant i starts on
// the i-th OIT technique.
func DefaultMode(q int) Mode {
	return Mode{Family: FamilyOIT, Sub: wrap(q, FamilyOIT.SubModes())}
}

// NewDispatcher returns a dispatcher in the single layout with every
// quadrant on its default mode at tier 2, texturing and the translucent
// depth test on, retained submission.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{textured: true, depthTest: true}
	for q := range d.quadrants {
		_ = d.quadrants[q].SetMode(DefaultMode(q))
	}
	return d
}

// Layout returns the active layout.
func (d *Dispatcher) Layout() Layout { return d.layout }

// SetLayout selects layout l. The quadrant in control falls back to 0 when
// l no longer shows it.
func (d *Dispatcher) SetLayout(l Layout) error {
	if !l.Valid() {
		return enumError("layout", uint8(l))
	}
	d.layout = l
	if d.control >= l.Quadrants() {
		d.control = 0
	}
	return nil
}

// Active returns the number of quadrants shown, which are quadrants
// 0 to Active()-1.
func (d *Dispatcher) Active() int { return d.layout.Quadrants() }

// Control returns the quadrant the mode keys apply to.
func (d *Dispatcher) Control() int { return d.control }

// Locked reports whether Left and Right cycle scenes instead of families.
func (d *Dispatcher) Locked() bool { return d.locked }

// Textured reports whether textures are sampled.
func (d *Dispatcher) Textured() bool { return d.textured }

// DepthTest reports whether translucent passes test against opaque depth.
func (d *Dispatcher) DepthTest() bool { return d.depthTest }

// Immediate reports whether meshes are re-uploaded for every draw.
func (d *Dispatcher) Immediate() bool { return d.immediate }

// SetToggles sets the global toggles.
func (d *Dispatcher) SetToggles(textured, depthTest, immediate bool) {
	d.textured, d.depthTest, d.immediate = textured, depthTest, immediate
}

// State returns the state of quadrant q.
func (d *Dispatcher) State(q int) (State, error) {
	if q < 0 || q >= MaxQuadrants {
		return State{}, enumError("quadrant", q+1)
	}
	return d.quadrants[q], nil
}

// SetState replaces the state of quadrant q.
func (d *Dispatcher) SetState(q int, s State) error {
	if q < 0 || q >= MaxQuadrants {
		return enumError("quadrant", q+1)
	}
	if err := s.Mode().Validate(); err != nil {
		return err
	}
	d.quadrants[q] = s
	return nil
}

// SetMode selects mode m on quadrant q.
func (d *Dispatcher) SetMode(q int, m Mode) error {
	if q < 0 || q >= MaxQuadrants {
		return enumError("quadrant", q+1)
	}
	return d.quadrants[q].SetMode(m)
}

// SetTier selects tier t on quadrant q.
func (d *Dispatcher) SetTier(q int, t fragment.Tier) error {
	if q < 0 || q >= MaxQuadrants {
		return enumError("quadrant", q+1)
	}
	return d.quadrants[q].SetTier(t)
}

// HandleKey applies a key press and reports what it changed.
func (d *Dispatcher) HandleKey(k Key) (Action, error) {
	ctl := &d.quadrants[d.control]
	switch k {
	case KeyQuadrant1, KeyQuadrant2, KeyQuadrant3, KeyQuadrant4:
		q := int(k - KeyQuadrant1)
		if q >= d.Active() {
			return ActionIgnored, nil
		}
		d.control = q
		return ActionControl, nil
	case KeyLeft, KeyRight:
		step := 1
		if k == KeyLeft {
			step = -1
		}
		if d.locked {
			if step < 0 {
				return ActionScenePrev, nil
			}
			return ActionSceneNext, nil
		}
		ctl.CycleFamily(step)
		return ActionMode, nil
	case KeyUp:
		ctl.CycleSub(1)
		return ActionMode, nil
	case KeyDown:
		ctl.CycleSub(-1)
		return ActionMode, nil
	case KeyN:
		return ActionLayout, d.SetLayout(d.layout.Next())
	case KeyL:
		d.locked = !d.locked
		return ActionLock, nil
	case KeyT:
		d.textured = !d.textured
		return ActionToggle, nil
	case KeyZ:
		d.depthTest = !d.depthTest
		return ActionToggle, nil
	case KeyV:
		d.immediate = !d.immediate
		return ActionToggle, nil
	case KeyJ:
		ctl.tier = ctl.tier.Next()
		return ActionTier, nil
	default:
		return ActionNone, enumError("key", uint8(k))
	}
}
