// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package oit

import (
	"errors"

	"github.com/gogpu/oit/internal/mode"
	"github.com/gogpu/oit/internal/technique"
)

// EnumError reports an enumerant outside its valid set: an unknown mode,
// sub-mode, layout, tier, key, quadrant or scene name.
type EnumError = mode.EnumError

var (
	// ErrInvalidEnum is wrapped by every EnumError.
	ErrInvalidEnum = mode.ErrInvalidEnum

	// ErrBadCommand is returned for an unknown console command or a
	// malformed argument.
	ErrBadCommand = errors.New("oit: bad console command")

	// ErrClosed is returned by a Testbed after Close.
	ErrClosed = errors.New("oit: testbed closed")

	// ErrResourceBusy is returned when two executors claim the same shared
	// targets within one pass sequence.
	ErrResourceBusy = technique.ErrResourceBusy
)
