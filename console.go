// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package oit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/gogpu/oit/internal/mode"
)

// command is a console command taking Key=Value arguments.
type command struct {
	usage string
	args  []string
	run   func(tb *Testbed, args map[string]string) (string, error)
}

// commands is filled by init because help lists it.
var commands map[string]command

func init() {
	commands = map[string]command{
		"peelcount": {
			usage: "PeelCount Count=<1-64>",
			args:  []string{"count"},
			run:   (*Testbed).cmdPeelCount,
		},
		"scene": {
			usage: "Scene Name=<scene>",
			args:  []string{"name"},
			run:   (*Testbed).cmdScene,
		},
		"mode": {
			usage: "Mode Quadrant=<1-4> Family=<family> Sub=<sub-mode>",
			args:  []string{"quadrant", "family", "sub"},
			run:   (*Testbed).cmdMode,
		},
		"tier": {
			usage: "Tier Quadrant=<1-4> Nodes=<2|4|32>",
			args:  []string{"quadrant", "nodes"},
			run:   (*Testbed).cmdTier,
		},
		"layout": {
			usage: "Layout Name=<single|2-way|4-way>",
			args:  []string{"name"},
			run:   (*Testbed).cmdLayout,
		},
		"help": {
			usage: "Help",
			run:   (*Testbed).cmdHelp,
		},
	}
}

// Exec runs one console command and returns its output.
//
// The line is split like a shell command line; the first word names the
// command, ignoring case, and the others are Key=Value arguments:
//
//	PeelCount Count=4
//	Mode Quadrant=2 Family=OIT Sub=MLAB
//	Scene Name="TwoQuads"
//
// Unknown commands and malformed arguments return ErrBadCommand. Invalid
// enumerants return an *EnumError.
func (tb *Testbed) Exec(line string) (string, error) {
	if tb.closed {
		return "", ErrClosed
	}
	words, err := shellwords.Parse(line)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadCommand, err)
	}
	if len(words) == 0 {
		return "", nil
	}

	name := strings.ToLower(words[0])
	cmd, ok := commands[name]
	if !ok {
		Logger().Warn("oit: unknown console command", "command", words[0])
		return "", fmt.Errorf("%w: unknown command %q", ErrBadCommand, words[0])
	}
	args, err := parseArgs(words[1:], cmd.args)
	if err != nil {
		return "", fmt.Errorf("%w (usage: %s)", err, cmd.usage)
	}
	out, err := cmd.run(tb, args)
	if err != nil {
		return "", err
	}
	Logger().Debug("oit: console command", "command", name, "args", args)
	return out, nil
}

// parseArgs splits Key=Value words into a map keyed by the lower-case key.
// Every key in want is required and no other key is accepted.
func parseArgs(words, want []string) (map[string]string, error) {
	args := make(map[string]string, len(words))
	for _, w := range words {
		k, v, ok := strings.Cut(w, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: argument %q is not Key=Value", ErrBadCommand, w)
		}
		k = strings.ToLower(k)
		if !contains(want, k) {
			return nil, fmt.Errorf("%w: unknown argument %q", ErrBadCommand, k)
		}
		if _, dup := args[k]; dup {
			return nil, fmt.Errorf("%w: argument %q given twice", ErrBadCommand, k)
		}
		args[k] = v
	}
	for _, k := range want {
		if _, ok := args[k]; !ok {
			return nil, fmt.Errorf("%w: missing argument %q", ErrBadCommand, k)
		}
	}
	return args, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func intArg(args map[string]string, key string) (int, error) {
	n, err := strconv.Atoi(args[key])
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrBadCommand, key, args[key])
	}
	return n, nil
}

// quadrantArg returns the 0-based quadrant of a 1-based Quadrant argument.
func quadrantArg(args map[string]string) (int, error) {
	n, err := intArg(args, "quadrant")
	if err != nil {
		return 0, err
	}
	if n < 1 || n > MaxQuadrants {
		return 0, &EnumError{Kind: "quadrant", Value: args["quadrant"]}
	}
	return n - 1, nil
}

func (tb *Testbed) cmdPeelCount(args map[string]string) (string, error) {
	n, err := intArg(args, "count")
	if err != nil {
		return "", err
	}
	if err := tb.SetPeelCount(n); err != nil {
		return "", err
	}
	return fmt.Sprintf("peel count %d", n), nil
}

func (tb *Testbed) cmdScene(args map[string]string) (string, error) {
	if err := tb.SelectScene(args["name"]); err != nil {
		return "", err
	}
	return "scene " + tb.store.Active().Name, nil
}

func (tb *Testbed) cmdMode(args map[string]string) (string, error) {
	q, err := quadrantArg(args)
	if err != nil {
		return "", err
	}
	m, err := mode.ParseMode(args["family"], args["sub"])
	if err != nil {
		return "", err
	}
	if err := tb.dispatch.SetMode(q, m); err != nil {
		return "", err
	}
	return fmt.Sprintf("quadrant %d: %v", q+1, m), nil
}

func (tb *Testbed) cmdTier(args map[string]string) (string, error) {
	q, err := quadrantArg(args)
	if err != nil {
		return "", err
	}
	n, err := intArg(args, "nodes")
	if err != nil {
		return "", err
	}
	t, err := tierOf(n)
	if err != nil {
		return "", err
	}
	if err := tb.dispatch.SetTier(q, t); err != nil {
		return "", err
	}
	return fmt.Sprintf("quadrant %d: %d nodes per pixel", q+1, t.NodesPerPixel()), nil
}

func (tb *Testbed) cmdLayout(args map[string]string) (string, error) {
	l, err := mode.ParseLayout(args["name"])
	if err != nil {
		return "", err
	}
	if err := tb.dispatch.SetLayout(l); err != nil {
		return "", err
	}
	return "layout " + l.String(), nil
}

func (tb *Testbed) cmdHelp(map[string]string) (string, error) {
	usages := make([]string, 0, len(commands))
	for _, c := range commands {
		usages = append(usages, c.usage)
	}
	sort.Strings(usages)
	return strings.Join(usages, "\n"), nil
}
