package autoprobe

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidVersion is returned when a release string is not a
	// MAJOR.MINOR.PATCH version.
	ErrInvalidVersion = errors.New("invalid version")
	// ErrNoOutDir is returned when no output directory is configured.
	// Cargo sets OUT_DIR for every build script.
	ErrNoOutDir = errors.New("no output directory")
	// ErrToolchainUnavailable is returned when rustc cannot be invoked.
	ErrToolchainUnavailable = errors.New("toolchain unavailable")
)

// ConfigError is returned when a [Prober] cannot be constructed.
// There is no degraded mode: either the toolchain is known or nothing is probed.
type ConfigError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("autoprobe %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("autoprobe %s: %s", e.Op, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ProbeError is returned by [Prober.Check] for the first unmet requirement.
type ProbeError struct {
	Probe  string
	Reason string
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("requirement %s: %s", e.Probe, e.Reason)
}

// ProbeKind selects the snippet template a payload is embedded into.
type ProbeKind int

const (
	// KindPath checks that a path resolves to an item: `pub use PATH;`.
	KindPath ProbeKind = iota
	// KindTrait checks that a bound can constrain a type.
	KindTrait
	// KindType checks that a type expression is well-formed.
	KindType
	// KindExpression checks that an expression type-checks in a function body.
	KindExpression
	// KindConstant checks that an expression is evaluable at compile time.
	KindConstant
	// KindSysrootCrate checks that a crate of the toolchain distribution
	// (core, alloc, std, ...) can be linked with `extern crate`.
	KindSysrootCrate
	// KindFeature checks that an unstable feature gate is accepted.
	KindFeature
	// KindRaw compiles the payload verbatim as a library crate.
	KindRaw
)

var kindNames = map[ProbeKind]string{
	KindPath:         "path",
	KindTrait:        "trait",
	KindType:         "type",
	KindExpression:   "expression",
	KindConstant:     "constant",
	KindSysrootCrate: "sysroot-crate",
	KindFeature:      "feature",
	KindRaw:          "raw",
}

func (k ProbeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ProbeKind(%d)", int(k))
}

// KindValues returns all probe kinds.
func KindValues() []ProbeKind {
	return []ProbeKind{KindPath, KindTrait, KindType, KindExpression, KindConstant, KindSysrootCrate, KindFeature, KindRaw}
}

// KindNames returns the names of all probe kinds.
func KindNames() []string {
	values := KindValues()
	names := make([]string, 0, len(values))
	for _, k := range values {
		names = append(names, k.String())
	}
	return names
}
