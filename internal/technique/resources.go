// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package technique

import (
	"errors"
	"fmt"

	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/fragment"
	"github.com/gogpu/oit/internal/mode"
)

// ErrResourceBusy is returned when a shared target set is acquired twice
// without a release in between.
var ErrResourceBusy = errors.New("technique: shared resource already in use")

// Formats of the quadrant and intermediate targets.
const (
	QuadrantFormat     = gpucore.FormatRGBA32Float
	IntermediateFormat = gpucore.FormatRGBA16Float
	AccumulationFormat = gpucore.FormatRGBA16Float
	RevealageFormat    = gpucore.FormatR16Float
)

// QuadrantTarget is the color and depth target pair of one quadrant.
type QuadrantTarget struct {
	Color gpucore.ResourceID
	Depth gpucore.DepthTarget
}

// Shared names a set of intermediate targets shared by all quadrants.
type Shared uint8

// Shared sets.
const (
	// SharedPeel is the pass color, pass depth, peeled-depth threshold and
	// ping-pong accumulation targets of depth peeling and virtual pixel maps.
	SharedPeel Shared = iota

	// SharedWeighted is the accumulation and revealage pair of weighted
	// blended OIT.
	SharedWeighted

	sharedCount
)

func (s Shared) String() string {
	switch s {
	case SharedPeel:
		return "peel"
	case SharedWeighted:
		return "weighted"
	default:
		return fmt.Sprintf("Shared(%d)", uint8(s))
	}
}

// peelTargets are the targets of SharedPeel.
type peelTargets struct {
	color     gpucore.ResourceID
	depth     gpucore.DepthTarget
	threshold gpucore.DepthTarget
	accum     [2]gpucore.ResourceID
}

// weightedTargets are the targets of SharedWeighted.
type weightedTargets struct {
	accum  gpucore.ResourceID
	reveal gpucore.ResourceID
}

// Resources owns the Quadrant Resource Set, the shared intermediate
// targets, the fragment stores and the program handles of one backend.
//
// Resources is not safe for concurrent use.
type Resources struct {
	backend       gpucore.Backend
	width, height int

	quadrants [mode.MaxQuadrants]QuadrantTarget
	peel      peelTargets
	weighted  weightedTargets
	busy      [sharedCount]bool

	stores   *fragment.Factory
	programs map[gpucore.ProgramName]gpucore.ProgramID
	created  []gpucore.ResourceID
}

// NewResources creates every window-sized target on b. Fragment stores
// are created on first use.
func NewResources(b gpucore.Backend) (*Resources, error) {
	w, h := b.Size()
	r := &Resources{
		backend:  b,
		width:    w,
		height:   h,
		stores:   fragment.NewFactory(b),
		programs: make(map[gpucore.ProgramName]gpucore.ProgramID),
	}
	if err := r.create(); err != nil {
		r.Close()
		return nil, err
	}
	slogger().Debug("technique: resources created", "width", w, "height", h)
	return r, nil
}

func (r *Resources) create() error {
	var err error
	for q := range r.quadrants {
		qt := &r.quadrants[q]
		if qt.Color, err = r.target(fmt.Sprintf("quadrant%d/color", q+1), QuadrantFormat); err != nil {
			return err
		}
		if qt.Depth, err = r.depth(fmt.Sprintf("quadrant%d/depth", q+1)); err != nil {
			return err
		}
	}

	if r.peel.color, err = r.target("peel/color", IntermediateFormat); err != nil {
		return err
	}
	if r.peel.depth, err = r.depth("peel/depth"); err != nil {
		return err
	}
	if r.peel.threshold, err = r.depth("peel/threshold"); err != nil {
		return err
	}
	for i := range r.peel.accum {
		if r.peel.accum[i], err = r.target(fmt.Sprintf("peel/accum%d", i), IntermediateFormat); err != nil {
			return err
		}
	}

	if r.weighted.accum, err = r.target("weighted/accumulation", AccumulationFormat); err != nil {
		return err
	}
	r.weighted.reveal, err = r.target("weighted/revealage", RevealageFormat)
	return err
}

func (r *Resources) target(label string, f gpucore.Format) (gpucore.ResourceID, error) {
	id, err := r.backend.CreateRenderTargetResource(label, f)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("technique: create %s: %w", label, err)
	}
	r.created = append(r.created, id)
	return id, nil
}

func (r *Resources) depth(label string) (gpucore.DepthTarget, error) {
	d, err := r.backend.CreateDepthResource(label)
	if err != nil {
		return gpucore.DepthTarget{}, fmt.Errorf("technique: create %s: %w", label, err)
	}
	r.created = append(r.created, d.Resource)
	return d, nil
}

// Backend returns the backend the resources live on.
func (r *Resources) Backend() gpucore.Backend { return r.backend }

// Size returns the size shared by every target.
func (r *Resources) Size() (width, height int) { return r.width, r.height }

// Quadrant returns the targets of quadrant q.
func (r *Resources) Quadrant(q int) (QuadrantTarget, error) {
	if q < 0 || q >= len(r.quadrants) {
		return QuadrantTarget{}, &mode.EnumError{Kind: "quadrant", Value: fmt.Sprint(q + 1)}
	}
	return r.quadrants[q], nil
}

// Stores returns the fragment store factory.
func (r *Resources) Stores() *fragment.Factory { return r.stores }

// Program returns the backend handle of a program, creating it on first use.
func (r *Resources) Program(name gpucore.ProgramName) (gpucore.ProgramID, error) {
	if id, ok := r.programs[name]; ok {
		return id, nil
	}
	id, err := r.backend.CreateProgram(name)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("technique: program %s: %w", name, err)
	}
	r.programs[name] = id
	return id, nil
}

// Acquire marks shared set s in use.
func (r *Resources) Acquire(s Shared) error {
	if s >= sharedCount {
		return &mode.EnumError{Kind: "shared set", Value: s.String()}
	}
	if r.busy[s] {
		return fmt.Errorf("%w: %s", ErrResourceBusy, s)
	}
	r.busy[s] = true
	return nil
}

// Release marks shared set s free. Releasing a free set is a no-op.
func (r *Resources) Release(s Shared) {
	if s < sharedCount {
		r.busy[s] = false
	}
}

// Busy reports whether shared set s is in use.
func (r *Resources) Busy(s Shared) bool {
	return s < sharedCount && r.busy[s]
}

// Close destroys every target and fragment store.
func (r *Resources) Close() {
	r.stores.Release()
	for _, id := range r.created {
		r.backend.DestroyResource(id)
	}
	r.created = nil
	clear(r.programs)
}
