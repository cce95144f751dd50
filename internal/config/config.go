// Package config holds the compiler's command-line-derived options
// (spec.md §6), built by cmd/cppc's Cobra flags and threaded through
// internal/driver. Keeping this as one plain struct — rather than
// reading flags ad hoc inside the driver — lets the driver run the same
// way whether it's invoked from the CLI or from a test.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-cppc/cppc/internal/diag"
)

// Target selects the emitted object-file format.
type Target int

const (
	TargetELF Target = iota
	TargetCOFF
)

func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(s) {
	case "elf":
		return TargetELF, nil
	case "coff", "pe", "coff-x64":
		return TargetCOFF, nil
	default:
		return TargetELF, fmt.Errorf("unknown target %q (want elf or coff)", s)
	}
}

func (t Target) String() string {
	if t == TargetCOFF {
		return "coff"
	}
	return "elf"
}

// CompatMode selects the name-mangling/ABI dialect (spec.md §6: default
// MSVC, -fgcc-compat / -fclang-compat select Itanium).
type CompatMode int

const (
	CompatMSVC CompatMode = iota
	CompatGCC
	CompatClang
)

// LogOverride is one parsed --log-level=<category>:<level> flag.
type LogOverride struct {
	Category string
	Level    diag.Level
}

// Options is the full set of compiler-visible flags (spec.md §6),
// independent of how they were parsed (Cobra flags in cmd/cppc, or
// built directly by a test).
type Options struct {
	InputPath  string
	OutputPath string

	Target Target
	Compat CompatMode

	NoAccessControl        bool
	EagerTemplateInstantiation bool

	LogLevels   []LogOverride
	LogFallback diag.Level

	Disassemble  bool
	DumpSections bool
	DumpIR       bool
}

// Default returns the compiler's baseline configuration: ELF output in
// the default MSVC compatibility mode (so MSVC name mangling), with
// warning-level logging as the fallback for every category.
func Default() Options {
	return Options{
		Target:      TargetELF,
		Compat:      CompatMSVC,
		LogFallback: diag.LevelWarn,
	}
}

// ParseLogLevelFlag parses one --log-level=<category>:<level> argument.
// A bare "<level>" with no category sets the fallback level for every
// category that has no explicit override.
func (o *Options) ParseLogLevelFlag(raw string) error {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) == 1 {
		lvl, err := diag.ParseLevel(parts[0])
		if err != nil {
			return err
		}
		o.LogFallback = lvl
		return nil
	}
	lvl, err := diag.ParseLevel(parts[1])
	if err != nil {
		return err
	}
	o.LogLevels = append(o.LogLevels, LogOverride{Category: parts[0], Level: lvl})
	return nil
}

// Logger builds the leveled internal/diag.Logger this configuration
// describes.
func (o *Options) Logger(out io.Writer) *diag.Logger {
	l := diag.NewLogger(out, o.LogFallback)
	for _, ov := range o.LogLevels {
		l.SetCategory(ov.Category, ov.Level)
	}
	return l
}

// ItaniumABI reports which mangling scheme Compat selects (spec.md §6:
// MSVC by default, Itanium under -fgcc-compat/-fclang-compat).
func (o *Options) ItaniumABI() bool { return o.Compat != CompatMSVC }
