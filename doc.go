// Package autoprobe discovers what an installed rustc toolchain supports.
//
// Instead of consulting a table of versions, it compiles tiny synthetic
// crates against the real compiler and reports whether they compile. It is
// meant to be driven from a build step, before the main crate is compiled,
// to decide which cfg flags to set.
//
// # API Model
//
// autoprobe exposes three API families on a [Prober]:
//   - probes ([Prober.ProbePath], [Prober.ProbeTrait], [Prober.ProbeType],
//     [Prober.ProbeExpression], [Prober.ProbeConstant],
//     [Prober.ProbeSysrootCrate], [Prober.ProbeFeature], [Prober.ProbeRaw])
//     that answer yes/no by compiling a snippet
//   - version and channel queries ([Prober.VersionAtLeast],
//     [Prober.ChannelAtLeast], [Prober.IsChannel]) answered from memory
//   - [Prober.Check] for pass/fail gating on a list of [Requirement] items
//
// A probe never returns an error. Any compiler failure, including an
// internal compiler error, is reported as "not supported". Errors are
// reserved for construction: a toolchain that cannot be run, a version that
// cannot be parsed, or a scratch directory that cannot be written.
//
// # Quick Start
//
// From a build step whose environment carries RUSTC, TARGET and OUT_DIR:
//
//	p, err := autoprobe.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p.EmitHasType("i128")
//	p.EmitRustcVersion(1, 56)
//	if p.ProbeTrait(p.RootPath("iter::Sum<i32>")) {
//	    p.EmitCfg("has_sum")
//	}
//
// # Unstable Features
//
// [Prober.SetFeature] adds a `#![feature(...)]` gate to every later probe.
// Stable and beta toolchains reject such gates, so gated probes report false
// there instead of failing the run:
//
//	p.SetFeature("step_trait")
//	nightlyStep := p.ProbeTrait(p.RootPath("iter::Step"))
//	p.UnsetFeature("step_trait")
//
// # Caching
//
// Outcomes are cached for the lifetime of a [Prober], keyed by the full text
// of the generated crate. Enabling or disabling a feature changes that text,
// so every feature combination has its own entries. Nothing is cached
// across processes.
//
// # Scratch Directory
//
// Probe crates are written below OUT_DIR in a "probe-artifacts" directory,
// with one more level named after the target triple when the build is
// target-partitioned (OUT_DIR below <target-dir>/<triple>). File names are
// derived from the BLAKE3 hash of the crate text.
package autoprobe
