// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/oit/gpucore"
)

// ErrUnknownMeshType is returned for a MeshInfo type the loader does not build.
var ErrUnknownMeshType = errors.New("scene: unknown mesh type")

// MeshType selects the geometry of an object.
type MeshType uint8

// Mesh types.
const (
	MeshQuad MeshType = iota + 1
	MeshCube
	MeshBillboard
)

func (t MeshType) String() string {
	switch t {
	case MeshQuad:
		return "Quad"
	case MeshCube:
		return "Cube"
	case MeshBillboard:
		return "Billboard"
	default:
		return fmt.Sprintf("MeshType(%d)", uint8(t))
	}
}

// ParseMeshType parses a case-insensitive mesh type name.
func ParseMeshType(s string) (MeshType, error) {
	for _, t := range []MeshType{MeshQuad, MeshCube, MeshBillboard} {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMeshType, s)
}

// Object is a drawable mesh instance.
//
// Everything but World is immutable after load. World of a billboard is
// recomputed every frame to face the camera.
type Object struct {
	Label string
	Type  MeshType

	// Color is the premultiplied tint.
	Color gpucore.Color

	Center      mgl32.Vec3
	Dimension   mgl32.Vec3
	Orientation mgl32.Vec3 // Euler angles in degrees, applied X then Y then Z

	World mgl32.Mat4

	// Texture is the first bound texture, nil when none is bound.
	Texture      *image.NRGBA
	TextureNames []string

	// Mesh is the uploaded geometry, InvalidID until Store.Upload.
	Mesh gpucore.MeshID
}

// NewObject returns an object with its world transform computed.
func NewObject(label string, typ MeshType, color gpucore.Color, center, dimension, orientation mgl32.Vec3) *Object {
	o := &Object{
		Label:       label,
		Type:        typ,
		Color:       color,
		Center:      center,
		Dimension:   dimension,
		Orientation: orientation,
	}
	o.World = o.baseTransform()
	return o
}

func (o *Object) baseTransform() mgl32.Mat4 {
	rx := mgl32.HomogRotate3DX(mgl32.DegToRad(o.Orientation.X()))
	ry := mgl32.HomogRotate3DY(mgl32.DegToRad(o.Orientation.Y()))
	rz := mgl32.HomogRotate3DZ(mgl32.DegToRad(o.Orientation.Z()))
	return mgl32.Translate3D(o.Center.X(), o.Center.Y(), o.Center.Z()).
		Mul4(rz.Mul4(ry).Mul4(rx)).
		Mul4(mgl32.Scale3D(o.Dimension.X(), o.Dimension.Y(), o.Dimension.Z()))
}

// Translucent reports whether the tint lets the background through.
func (o *Object) Translucent() bool { return o.Color.A < 1 }

// FaceCamera orients a billboard's quad towards the camera eye.
// Other object types are unchanged.
func (o *Object) FaceCamera(cam *Camera) {
	if o.Type != MeshBillboard {
		return
	}
	forward := cam.Eye.Sub(o.Center)
	if forward.Len() < 1e-6 {
		return
	}
	forward = forward.Normalize()
	up := cam.Up
	if c := up.Cross(forward); c.Len() < 1e-6 {
		up = mgl32.Vec3{0, 0, 1}
	}
	right := up.Cross(forward).Normalize()
	up = forward.Cross(right)

	rot := mgl32.Mat4{
		right.X(), right.Y(), right.Z(), 0,
		up.X(), up.Y(), up.Z(), 0,
		forward.X(), forward.Y(), forward.Z(), 0,
		0, 0, 0, 1,
	}
	o.World = mgl32.Translate3D(o.Center.X(), o.Center.Y(), o.Center.Z()).
		Mul4(rot).
		Mul4(mgl32.Scale3D(o.Dimension.X(), o.Dimension.Y(), o.Dimension.Z()))
}

// MeshDesc returns the geometry of the object in object space.
func (o *Object) MeshDesc() *gpucore.MeshDesc {
	var d *gpucore.MeshDesc
	switch o.Type {
	case MeshCube:
		d = Cube()
	default:
		d = Quad()
	}
	d.Label = o.Label
	d.Texture = o.Texture
	return d
}
