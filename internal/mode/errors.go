// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mode

import (
	"errors"
	"fmt"
)

// ErrInvalidEnum is wrapped by every EnumError.
var ErrInvalidEnum = errors.New("oit: invalid enumerant")

// EnumError reports an enumerant outside its valid set: an unknown mode,
// layout, tier, key or scene name. It is fatal to the frame that meets it.
type EnumError struct {
	// Kind names the enumeration, e.g. "family" or "scene".
	Kind string
	// Value is the offending value as text.
	Value string
}

func (e *EnumError) Error() string {
	return fmt.Sprintf("oit: invalid %s %q", e.Kind, e.Value)
}

// Unwrap returns ErrInvalidEnum.
func (e *EnumError) Unwrap() error { return ErrInvalidEnum }

func enumError(kind string, value any) error {
	return &EnumError{Kind: kind, Value: fmt.Sprint(value)}
}
