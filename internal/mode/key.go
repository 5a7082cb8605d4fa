// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mode

import (
	"fmt"
	"strings"
)

// Key is an input event the dispatcher reacts to.
type Key uint8

// Keys.
const (
	KeyQuadrant1 Key = iota
	KeyQuadrant2
	KeyQuadrant3
	KeyQuadrant4
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyN
	KeyL
	KeyT
	KeyZ
	KeyV
	KeyJ

	keyCount
)

var keyNames = [keyCount]string{
	KeyQuadrant1: "1",
	KeyQuadrant2: "2",
	KeyQuadrant3: "3",
	KeyQuadrant4: "4",
	KeyLeft:      "Left",
	KeyRight:     "Right",
	KeyUp:        "Up",
	KeyDown:      "Down",
	KeyN:         "N",
	KeyL:         "L",
	KeyT:         "T",
	KeyZ:         "Z",
	KeyV:         "V",
	KeyJ:         "J",
}

func (k Key) String() string {
	if k < keyCount {
		return keyNames[k]
	}
	return fmt.Sprintf("Key(%d)", uint8(k))
}

// ParseKey returns the key named s, ignoring case. Quadrant keys are
// named "1" to "4".
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	for k, name := range keyNames {
		if strings.EqualFold(name, s) {
			return Key(k), nil
		}
	}
	return 0, enumError("key", s)
}

// ParseKeys parses a comma separated key list.
func ParseKeys(s string) ([]Key, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var keys []Key
	for _, f := range strings.Split(s, ",") {
		k, err := ParseKey(f)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}
