// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command oitshaderc validates the WGSL kernels of the wgpu backend by
// compiling each of them to SPIR-V.
//
// Usage:
//
//	oitshaderc [options] [program...]
//
// With no program names every kernel is compiled. With -o the assembled
// WGSL and the SPIR-V of each kernel are written to the directory.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gogpu/oit/backend/wgpu"
	"github.com/gogpu/oit/gpucore"
)

func main() {
	var (
		outDir  = flag.String("o", "", "directory for .wgsl and .spv output")
		verbose = flag.Bool("v", false, "print the size of every module")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: oitshaderc [options] [program...]\n\n")
		fmt.Fprintf(os.Stderr, "Programs:\n")
		for _, p := range wgpu.Programs() {
			fmt.Fprintf(os.Stderr, "  %s\n", p)
		}
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	names := wgpu.Programs()
	if flag.NArg() > 0 {
		names = names[:0]
		for _, a := range flag.Args() {
			names = append(names, gpucore.ProgramName(a))
		}
	}
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			log.Fatalf("Failed to create %s: %v", *outDir, err)
		}
	}

	failed := 0
	for _, name := range names {
		src, err := wgpu.Source(name)
		if err != nil {
			log.Printf("%s: %v", name, err)
			failed++
			continue
		}
		words, err := wgpu.CompileSPIRV(name)
		if err != nil {
			log.Printf("%v", err)
			failed++
			continue
		}
		if *verbose {
			fmt.Printf("%-16s %6d bytes WGSL %6d words SPIR-V\n", name, len(src), len(words))
		}
		if *outDir != "" {
			if err := write(*outDir, string(name), src, words); err != nil {
				log.Fatalf("Failed to save %s: %v", name, err)
			}
		}
	}
	if failed > 0 {
		log.Fatalf("%d of %d programs failed", failed, len(names))
	}
	fmt.Printf("%d programs compiled\n", len(names))
}

func write(dir, name, src string, words []uint32) error {
	if err := os.WriteFile(filepath.Join(dir, name+".wgsl"), []byte(src), 0o644); err != nil {
		return err
	}
	spv := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(spv[i*4:], w)
	}
	return os.WriteFile(filepath.Join(dir, name+".spv"), spv, 0o644)
}
