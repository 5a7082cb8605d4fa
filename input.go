// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package oit

import (
	"github.com/gogpu/oit/internal/mode"
)

// HandleKey applies a key press to the dispatcher and reports what it
// changed. With the mode lock on, Left and Right cycle the active scene.
func (tb *Testbed) HandleKey(k Key) (Action, error) {
	if tb.closed {
		return mode.ActionNone, ErrClosed
	}
	act, err := tb.dispatch.HandleKey(k)
	if err != nil {
		return act, err
	}

	log := Logger()
	switch act {
	case mode.ActionIgnored:
		log.Warn("oit: quadrant not shown by layout", "key", k, "layout", tb.dispatch.Layout())
	case mode.ActionScenePrev, mode.ActionSceneNext:
		step := 1
		if act == mode.ActionScenePrev {
			step = -1
		}
		tb.store.SelectIndex(tb.store.ActiveIndex() + step)
		log.Info("oit: scene selected", "scene", tb.store.Active().Name)
	case mode.ActionMode, mode.ActionTier:
		q := tb.dispatch.Control()
		s, _ := tb.dispatch.State(q)
		log.Debug("oit: quadrant selection changed", "quadrant", q+1,
			"mode", s.Mode(), "nodes", s.Tier().NodesPerPixel())
	case mode.ActionLayout:
		log.Debug("oit: layout changed", "layout", tb.dispatch.Layout(), "control", tb.dispatch.Control()+1)
	case mode.ActionLock, mode.ActionToggle:
		log.Debug("oit: toggles changed", "locked", tb.dispatch.Locked(),
			"textured", tb.dispatch.Textured(), "depth_test", tb.dispatch.DepthTest(),
			"immediate", tb.dispatch.Immediate())
	}
	return act, nil
}

// HandleKeys applies keys in order and stops at the first error.
func (tb *Testbed) HandleKeys(keys ...Key) error {
	for _, k := range keys {
		if _, err := tb.HandleKey(k); err != nil {
			return err
		}
	}
	return nil
}
