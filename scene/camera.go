// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

import "github.com/go-gl/mathgl/mgl32"

// Camera is a perspective camera looking at a target point.
type Camera struct {
	Eye    mgl32.Vec3
	Target mgl32.Vec3
	Up     mgl32.Vec3

	// FovY is the vertical field of view in degrees.
	FovY   float32
	Aspect float32
	Near   float32
	Far    float32
}

// DefaultCamera returns the camera used when no configuration overrides it.
func DefaultCamera(aspect float32) *Camera {
	return &Camera{
		Eye:    mgl32.Vec3{0, 0, 5},
		Target: mgl32.Vec3{0, 0, 0},
		Up:     mgl32.Vec3{0, 1, 0},
		FovY:   60,
		Aspect: aspect,
		Near:   0.1,
		Far:    100,
	}
}

// View returns the world-to-camera matrix.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye, c.Target, c.Up)
}

// Projection returns the camera-to-clip matrix.
func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FovY), c.Aspect, c.Near, c.Far)
}

// ViewProj returns the world-to-clip matrix.
func (c *Camera) ViewProj() mgl32.Mat4 {
	return c.Projection().Mul4(c.View())
}

// DistanceSq returns the squared camera-space distance of a world point.
func (c *Camera) DistanceSq(p mgl32.Vec3) float32 {
	v := c.View().Mul4x1(p.Vec4(1)).Vec3()
	return v.Dot(v)
}

// Orbit rotates the eye around the target by angle degrees about the up axis.
func (c *Camera) Orbit(angle float32) {
	rot := mgl32.HomogRotate3D(mgl32.DegToRad(angle), c.Up.Normalize())
	off := c.Eye.Sub(c.Target)
	c.Eye = c.Target.Add(rot.Mul4x1(off.Vec4(0)).Vec3())
}
