// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package mode holds the per-quadrant technique selection state machine.
//
// A quadrant's mode is a family and a sub-mode within it plus a node
// capacity tier. Families and sub-modes cycle with wraparound, so any run
// of Right presses is undone by the same number of Left presses.
package mode

import (
	"fmt"
	"strings"
)

// Family is a group of related techniques.
type Family uint8

// Families, in cycling order.
const (
	FamilyDepthTest Family = iota
	FamilyAlphaBlending
	FamilyOIT
	FamilyUAVWrites

	familyCount
)

// FamilyCount is the number of families.
const FamilyCount = int(familyCount)

var familyNames = [familyCount]string{
	FamilyDepthTest:     "DepthTest",
	FamilyAlphaBlending: "AlphaBlending",
	FamilyOIT:           "OIT",
	FamilyUAVWrites:     "UAVWrites",
}

// subNames lists the sub-modes of each family in cycling order.
var subNames = [familyCount][]string{
	FamilyDepthTest:     {"Less", "Greater"},
	FamilyAlphaBlending: {"WorstCase", "CPUSorted"},
	FamilyOIT:           {"DepthPeeling", "LinkedList", "WeightedBlended", "MLAB", "VirtualPixelMaps"},
	FamilyUAVWrites:     {"WithoutROV", "WithROV"},
}

func (f Family) String() string {
	if f < familyCount {
		return familyNames[f]
	}
	return fmt.Sprintf("Family(%d)", uint8(f))
}

// Valid reports whether f is a known family.
func (f Family) Valid() bool { return f < familyCount }

// SubModes returns the number of sub-modes of f, or 0 for an unknown family.
func (f Family) SubModes() int {
	if !f.Valid() {
		return 0
	}
	return len(subNames[f])
}

// ParseFamily returns the family named s, ignoring case.
func ParseFamily(s string) (Family, error) {
	for f, name := range familyNames {
		if strings.EqualFold(name, s) {
			return Family(f), nil
		}
	}
	return 0, enumError("family", s)
}

// Mode selects one technique.
type Mode struct {
	Family Family
	Sub    int
}

// Sub-mode indices of every family.
const (
	SubLess    = 0
	SubGreater = 1

	SubWorstCase = 0
	SubCPUSorted = 1

	SubDepthPeeling     = 0
	SubLinkedList       = 1
	SubWeightedBlended  = 2
	SubMLAB             = 3
	SubVirtualPixelMaps = 4

	SubWithoutROV = 0
	SubWithROV    = 1
)

// ParseMode returns the mode with the given family and sub-mode names,
// ignoring case.
func ParseMode(family, sub string) (Mode, error) {
	f, err := ParseFamily(family)
	if err != nil {
		return Mode{}, err
	}
	for i, name := range subNames[f] {
		if strings.EqualFold(name, sub) {
			return Mode{Family: f, Sub: i}, nil
		}
	}
	return Mode{}, enumError(f.String()+" sub-mode", sub)
}

// Valid reports whether m names an existing technique.
func (m Mode) Valid() bool {
	return m.Family.Valid() && m.Sub >= 0 && m.Sub < m.Family.SubModes()
}

// Validate returns an *EnumError for an invalid mode.
func (m Mode) Validate() error {
	if !m.Family.Valid() {
		return enumError("family", uint8(m.Family))
	}
	if !m.Valid() {
		return enumError(m.Family.String()+" sub-mode", m.Sub)
	}
	return nil
}

// SubName returns the name of m's sub-mode.
func (m Mode) SubName() string {
	if !m.Valid() {
		return fmt.Sprintf("Sub(%d)", m.Sub)
	}
	return subNames[m.Family][m.Sub]
}

func (m Mode) String() string {
	return m.Family.String() + "/" + m.SubName()
}

// NextSub returns m with its sub-mode moved step positions, wrapping
// around within the family.
func (m Mode) NextSub(step int) Mode {
	return Mode{Family: m.Family, Sub: wrap(m.Sub+step, m.Family.SubModes())}
}

// Technique returns the executor kind selected by m.
func (m Mode) Technique() (Technique, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	return techniques[m.Family][m.Sub], nil
}

func wrap(i, n int) int {
	if n <= 0 {
		return 0
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// Technique identifies a concrete executor.
type Technique uint8

// Techniques.
const (
	TechniqueDepthLess Technique = iota
	TechniqueDepthGreater
	TechniqueWorstCase
	TechniqueCPUSorted
	TechniqueDepthPeeling
	TechniqueLinkedList
	TechniqueWeightedBlended
	TechniqueMLAB
	TechniqueVirtualPixelMaps
	TechniqueUAVWithoutROV
	TechniqueUAVWithROV

	techniqueCount
)

var techniques = [familyCount][]Technique{
	FamilyDepthTest:     {TechniqueDepthLess, TechniqueDepthGreater},
	FamilyAlphaBlending: {TechniqueWorstCase, TechniqueCPUSorted},
	FamilyOIT: {TechniqueDepthPeeling, TechniqueLinkedList, TechniqueWeightedBlended,
		TechniqueMLAB, TechniqueVirtualPixelMaps},
	FamilyUAVWrites: {TechniqueUAVWithoutROV, TechniqueUAVWithROV},
}

var techniqueNames = [techniqueCount]string{
	TechniqueDepthLess:        "DepthLess",
	TechniqueDepthGreater:     "DepthGreater",
	TechniqueWorstCase:        "WorstCase",
	TechniqueCPUSorted:        "CPUSorted",
	TechniqueDepthPeeling:     "DepthPeeling",
	TechniqueLinkedList:       "LinkedList",
	TechniqueWeightedBlended:  "WeightedBlended",
	TechniqueMLAB:             "MLAB",
	TechniqueVirtualPixelMaps: "VirtualPixelMaps",
	TechniqueUAVWithoutROV:    "UAVWithoutROV",
	TechniqueUAVWithROV:       "UAVWithROV",
}

func (t Technique) String() string {
	if t < techniqueCount {
		return techniqueNames[t]
	}
	return fmt.Sprintf("Technique(%d)", uint8(t))
}

// UsesTier reports whether the technique's storage depends on the node
// capacity tier.
func (t Technique) UsesTier() bool {
	return t == TechniqueLinkedList || t == TechniqueMLAB
}
