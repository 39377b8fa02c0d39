// Package curated implements a lightweight, pattern-matchable error type
// used throughout the emulator core instead of ad-hoc fmt.Errorf chains.
//
// Curated errors are created with Errorf(). The Is() function checks
// whether an error was created from a particular pattern; Has() checks
// whether the pattern occurs anywhere in a wrapped chain.
//
//	e := curated.Errorf("bus: bad region %#08x", addr)
//	if curated.Is(e, "bus: bad region %#08x") { ... }
//
// A Kind further classifies an error along the taxonomy of guest bus
// errors, guest undefined instructions, I/O errors and version
// mismatches (see the emulator's error handling design). Kind is
// orthogonal to pattern matching: most callers only need Kind.
package curated

import (
	"fmt"
	"strings"
)

// Kind classifies a curated error for callers that don't care about the
// exact pattern, only the broad category of failure.
type Kind int

const (
	// KindUnspecified is the zero value; not every curated error needs a
	// Kind, only the ones the core facade surfaces to callers.
	KindUnspecified Kind = iota

	// KindIO covers BIOS/ROM attach and save-state read/write failures.
	KindIO

	// KindVersionMismatch covers a save-state whose layout version does
	// not match the running build.
	KindVersionMismatch

	// KindGuestUndefined covers a guest program executing an undefined
	// instruction. Never fatal to the host.
	KindGuestUndefined

	// KindFatal covers an Invariant recovered at the Run()/Step()
	// boundary: an internal invariant the core cannot continue past.
	// Non-fatal to the host process, but the Console that produced it
	// should be considered wedged and not stepped further.
	KindFatal
)

type curated struct {
	pattern string
	kind    Kind
	values  []interface{}
}

// Errorf creates a new curated error with Kind KindUnspecified.
func Errorf(pattern string, values ...interface{}) error {
	return curated{pattern: pattern, values: values}
}

// KindErrorf creates a new curated error tagged with the given Kind.
func KindErrorf(kind Kind, pattern string, values ...interface{}) error {
	return curated{pattern: pattern, kind: kind, values: values}
}

// Error implements the error interface. Adjacent duplicate parts of a
// wrapped chain (e.g. "cartridge: cartridge: bad header") are collapsed.
func (e curated) Error() string {
	s := fmt.Errorf(e.pattern, e.values...).Error()

	p := strings.SplitN(s, ": ", 3)
	if len(p) > 1 && p[0] == p[1] {
		return strings.Join(p[1:], ": ")
	}
	return strings.Join(p, ": ")
}

// IsAny reports whether err is a curated error of any pattern.
func IsAny(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(curated)
	return ok
}

// Is reports whether err is a curated error created with pattern.
func Is(err error, pattern string) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(curated); ok {
		return e.pattern == pattern
	}
	return false
}

// Has reports whether pattern occurs anywhere in err's wrapped chain.
func Has(err error, pattern string) bool {
	if err == nil || !IsAny(err) {
		return false
	}
	if Is(err, pattern) {
		return true
	}
	for _, v := range err.(curated).values {
		if e, ok := v.(curated); ok && Has(e, pattern) {
			return true
		}
	}
	return false
}

// KindOf returns the Kind of err, or KindUnspecified if err is not a
// curated error or was created without a Kind.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnspecified
	}
	if e, ok := err.(curated); ok {
		return e.kind
	}
	return KindUnspecified
}

// HasKind reports whether err (or anything in its wrapped chain) carries
// the given Kind.
func HasKind(err error, kind Kind) bool {
	if err == nil || !IsAny(err) {
		return false
	}
	e := err.(curated)
	if e.kind == kind {
		return true
	}
	for _, v := range e.values {
		if we, ok := v.(curated); ok && HasKind(we, kind) {
			return true
		}
	}
	return false
}

// Invariant is a violation of an internal invariant: a programmer error
// rather than a runtime condition. Panicking with an Invariant is the
// only sanctioned way for core code to signal that something has gone
// so wrong that continuing would produce meaningless results. The core
// facade recovers this panic at the Run()/Step() boundary and turns it
// into a typed, non-fatal-to-the-host result.
type Invariant struct {
	err error
}

func (i Invariant) Error() string { return "invariant violation: " + i.err.Error() }

// Unwrap supports errors.Is/As against the wrapped curated error.
func (i Invariant) Unwrap() error { return i.err }

// Fatal panics with an Invariant wrapping a curated error built from
// pattern and values. Use this for conditions the spec calls fatal:
// scheduler heap overflow, sentinel dispatch, an impossible decode-table
// slot.
func Fatal(pattern string, values ...interface{}) {
	panic(Invariant{err: Errorf(pattern, values...)})
}
