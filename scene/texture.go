// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxTextureSize bounds the edge of a loaded texture; larger images are
// downscaled.
const MaxTextureSize = 256

// builtinPrefix names procedurally generated textures.
const builtinPrefix = "builtin:"

type textureCache struct {
	dir    string
	loaded map[string]*image.NRGBA
}

func newTextureCache(dir string) *textureCache {
	return &textureCache{dir: dir, loaded: make(map[string]*image.NRGBA)}
}

func (c *textureCache) load(name string) (*image.NRGBA, error) {
	if tex, ok := c.loaded[name]; ok {
		return tex, nil
	}

	var tex *image.NRGBA
	if gen, ok := strings.CutPrefix(name, builtinPrefix); ok {
		switch gen {
		case "checker":
			tex = Checker(64, 8)
		default:
			return nil, fmt.Errorf("scene: unknown built-in texture %q", name)
		}
	} else {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.dir, path)
		}
		img, err := decodeFile(path)
		if err != nil {
			return nil, err
		}
		tex = fitTexture(img)
	}
	c.loaded[name] = tex
	return tex, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scene: texture: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("scene: texture %s: %w", path, err)
	}
	return img, nil
}

// fitTexture converts img to NRGBA, downscaling it to MaxTextureSize.
func fitTexture(img image.Image) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > MaxTextureSize || h > MaxTextureSize {
		scale := float64(MaxTextureSize) / float64(max(w, h))
		w = max(1, int(float64(w)*scale))
		h = max(1, int(float64(h)*scale))
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	}
	return dst
}

// Checker returns a size x size checkerboard of cell-pixel squares.
func Checker(size, cell int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	light := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	dark := color.NRGBA{R: 96, G: 96, B: 96, A: 255}
	for y := range size {
		for x := range size {
			if (x/cell+y/cell)%2 == 0 {
				img.SetNRGBA(x, y, light)
			} else {
				img.SetNRGBA(x, y, dark)
			}
		}
	}
	return img
}
