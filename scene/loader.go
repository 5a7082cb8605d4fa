// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

import (
	"bytes"
	_ "embed"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/oit/internal/blend"
)

//go:embed scenes/builtin.xml
var builtinXML []byte

type xmlScenes struct {
	Scenes []xmlScene `xml:"Scene"`
}

type xmlScene struct {
	Name   string    `xml:"name,attr"`
	Meshes []xmlMesh `xml:"MeshInfo"`
}

type xmlMesh struct {
	Type        string       `xml:"type,attr"`
	Label       string       `xml:"label,attr"`
	Color       string       `xml:"color,attr"`
	Center      string       `xml:"center,attr"`
	Dimension   string       `xml:"dimension,attr"`
	Orientation string       `xml:"orientation,attr"`
	NumTextures int          `xml:"numOfTexturesBound,attr"`
	Translucent string       `xml:"translucent,attr"`
	Textures    []xmlTexture `xml:"TextureInfo"`
}

type xmlTexture struct {
	Texture string `xml:"texture,attr"`
	Debug   string `xml:"debugTextureName,attr"`
}

// Builtin returns the scenes compiled into the binary: TwoQuads,
// MultipleQuads, Interpenetrating and Billboards.
func Builtin() ([]*Scene, error) {
	return Load(bytes.NewReader(builtinXML), "")
}

// LoadFile parses a scene XML file. Texture paths resolve relative to the
// file's directory.
func LoadFile(path string) ([]*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, filepath.Dir(path))
}

// Load parses scene XML with either a <Scenes> or a single <Scene> root.
func Load(r io.Reader, dir string) ([]*Scene, error) {
	dec := xml.NewDecoder(r)
	var root xml.StartElement
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("scene: no root element: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			root = se
			break
		}
	}

	var doc xmlScenes
	switch root.Name.Local {
	case "Scenes":
		if err := dec.DecodeElement(&doc, &root); err != nil {
			return nil, fmt.Errorf("scene: %w", err)
		}
	case "Scene":
		var one xmlScene
		if err := dec.DecodeElement(&one, &root); err != nil {
			return nil, fmt.Errorf("scene: %w", err)
		}
		doc.Scenes = []xmlScene{one}
	default:
		return nil, fmt.Errorf("scene: unexpected root element <%s>", root.Name.Local)
	}
	if len(doc.Scenes) == 0 {
		return nil, errors.New("scene: document has no <Scene>")
	}

	textures := newTextureCache(dir)
	scenes := make([]*Scene, 0, len(doc.Scenes))
	for _, xs := range doc.Scenes {
		if xs.Name == "" {
			return nil, errors.New("scene: <Scene> without name")
		}
		sc := New(xs.Name)
		for i, xm := range xs.Meshes {
			o, err := xm.object(i, textures)
			if err != nil {
				return nil, fmt.Errorf("scene %q mesh %d: %w", xs.Name, i, err)
			}
			sc.Add(o)
		}
		scenes = append(scenes, sc)
	}
	return scenes, nil
}

func (xm *xmlMesh) object(index int, textures *textureCache) (*Object, error) {
	typ, err := ParseMeshType(xm.Type)
	if err != nil {
		return nil, err
	}
	rgba, err := parseFloats(xm.Color, 4, "color", []float32{1, 1, 1, 1})
	if err != nil {
		return nil, err
	}
	center, err := parseFloats(xm.Center, 3, "center", []float32{0, 0, 0})
	if err != nil {
		return nil, err
	}
	dim, err := parseFloats(xm.Dimension, 3, "dimension", []float32{1, 1, 1})
	if err != nil {
		return nil, err
	}
	orient, err := parseFloats(xm.Orientation, 3, "orientation", []float32{0, 0, 0})
	if err != nil {
		return nil, err
	}

	label := xm.Label
	if label == "" {
		label = fmt.Sprintf("%s#%d", typ, index)
	}
	color := blend.Premultiply(blend.Clamp01(rgba[0]), blend.Clamp01(rgba[1]), blend.Clamp01(rgba[2]), blend.Clamp01(rgba[3]))
	o := NewObject(label, typ, color,
		mgl32.Vec3{center[0], center[1], center[2]},
		mgl32.Vec3{dim[0], dim[1], dim[2]},
		mgl32.Vec3{orient[0], orient[1], orient[2]})

	switch strings.ToLower(xm.Translucent) {
	case "":
	case "true":
		if o.Color.A >= 1 {
			o.Color = blend.Scale(o.Color, 0.5)
		}
	case "false":
		o.Color = blend.Opaque(o.Color)
	default:
		return nil, fmt.Errorf("scene: translucent=%q is not true or false", xm.Translucent)
	}

	bound := min(max(xm.NumTextures, 0), len(xm.Textures))
	for _, xt := range xm.Textures[:bound] {
		name := xt.Debug
		if name == "" {
			name = xt.Texture
		}
		o.TextureNames = append(o.TextureNames, name)
	}
	if bound > 0 {
		tex, err := textures.load(xm.Textures[0].Texture)
		if err != nil {
			return nil, err
		}
		o.Texture = tex
	}
	return o, nil
}

func parseFloats(s string, n int, what string, def []float32) ([]float32, error) {
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(fields) == 0 {
		return def, nil
	}
	if len(fields) != n {
		return nil, fmt.Errorf("scene: %s %q has %d components, want %d", what, s, len(fields), n)
	}
	out := make([]float32, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("scene: %s %q: %w", what, s, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}
