// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command oitbench renders frames of the OIT testbed headlessly.
//
// It loads a configuration and scenes, replays key presses and console
// commands, renders the requested number of frames and writes the
// backbuffer as PNG with the quadrant selections labelled.
//
// Usage:
//
//	oitbench [options]
//
// Example:
//
//	oitbench -keys 2,right,right -exec "Layout Name=4-way; Tier Quadrant=1 Nodes=32" -out frame.png
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"log/slog"
	"os"
	"strings"

	_ "github.com/gogpu/wgpu/hal/vulkan"
	"github.com/mrjoshuak/go-openexr/exr"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/oit"
	_ "github.com/gogpu/oit/backend/wgpu"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML configuration file")
		scenes     = flag.String("scenes", "", "scene XML file (default: built-in scenes)")
		backend    = flag.String("backend", "", "backend name: software or wgpu (default: best available)")
		frames     = flag.Int("frames", 1, "frames to render")
		keys       = flag.String("keys", "", "comma separated keys pressed before rendering")
		exec       = flag.String("exec", "", "semicolon separated console commands run before rendering")
		output     = flag.String("out", "", "PNG file of the last backbuffer")
		exrOut     = flag.String("exr", "", "EXR file of the quadrant 1 target")
		width      = flag.Int("width", 0, "window width (overrides config)")
		height     = flag.Int("height", 0, "window height (overrides config)")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := oit.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = oit.LoadConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *scenes != "" {
		cfg.Scenes = *scenes
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *width > 0 {
		cfg.Width = *width
	}
	if *height > 0 {
		cfg.Height = *height
	}

	tb, err := oit.New(oit.WithConfig(cfg), oit.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create testbed: %v", err)
	}
	defer tb.Close()

	pressed, err := oit.ParseKeys(*keys)
	if err != nil {
		log.Fatalf("Invalid -keys: %v", err)
	}
	if err := tb.HandleKeys(pressed...); err != nil {
		log.Fatalf("Key input failed: %v", err)
	}
	for _, line := range strings.Split(*exec, ";") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out, err := tb.Exec(line)
		if err != nil {
			log.Fatalf("Command %q failed: %v", strings.TrimSpace(line), err)
		}
		if out != "" {
			fmt.Println(out)
		}
	}

	for range *frames {
		if err := tb.RenderFrame(); err != nil {
			log.Fatalf("Frame %d failed: %v", tb.Frames()+1, err)
		}
	}
	report(tb)

	if *output != "" {
		if err := writePNG(tb, *output); err != nil {
			log.Fatalf("Failed to save: %v", err)
		}
		log.Printf("Frame saved to %s\n", *output)
	}
	if *exrOut != "" {
		if err := writeEXR(tb, *exrOut); err != nil {
			log.Fatalf("Failed to save: %v", err)
		}
		log.Printf("Quadrant 1 saved to %s\n", *exrOut)
	}
}

// report prints the selection and statistics of every visible quadrant.
func report(tb *oit.Testbed) {
	fmt.Printf("backend %s, scene %s, layout %s, %d frame(s)\n",
		tb.Backend().Name(), tb.Scene().Name, tb.Layout(), tb.Frames())
	for q := range tb.Layout().Quadrants() {
		info, err := tb.Quadrant(q)
		if err != nil {
			log.Fatalf("Quadrant %d: %v", q+1, err)
		}
		st, _ := tb.Stats(q)
		fmt.Printf("  quadrant %d: %-28s nodes %-2d passes %-2d fragments %d dropped %d truncated %d\n",
			q+1, info.Mode, info.Nodes, st.Passes, st.Fragments, st.Dropped, st.TruncatedPixels)
	}
}

// writePNG saves the backbuffer with each quadrant labelled by its mode.
func writePNG(tb *oit.Testbed, path string) error {
	img, err := tb.Snapshot()
	if err != nil {
		return err
	}
	w, h := tb.Backend().Size()
	for q := range tb.Layout().Quadrants() {
		info, err := tb.Quadrant(q)
		if err != nil {
			return err
		}
		r := tb.Layout().Rect(q, w, h)
		label := fmt.Sprintf("%d: %s", q+1, info.Mode)
		if q == tb.Active() {
			label += " *"
		}
		drawLabel(img, r.Min, label)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// drawLabel draws text on a dark strip at the top-left corner of a
// quadrant.
func drawLabel(dst draw.Image, at image.Point, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
	}
	width := d.MeasureString(text).Ceil()
	strip := image.Rect(at.X, at.Y, at.X+width+8, at.Y+face.Height+4).Intersect(dst.Bounds())
	draw.Draw(dst, strip, image.NewUniform(color.RGBA{A: 160}), image.Point{}, draw.Over)

	d.Dot = fixed.P(at.X+4, at.Y+2+face.Ascent)
	d.DrawString(text)
}

// writeEXR saves the float target of quadrant 1 before it is composited to
// the backbuffer.
func writeEXR(tb *oit.Testbed, path string) error {
	px, err := tb.QuadrantPixels(0)
	if err != nil {
		return err
	}
	w, h := tb.Backend().Size()
	img := exr.NewRGBAImage(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			c := px[y*w+x]
			img.SetRGBA(x, y, c.R, c.G, c.B, c.A)
		}
	}
	return exr.EncodeFile(path, img)
}
