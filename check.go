package autoprobe

import (
	"fmt"
	"strings"
)

// Check validates the specified requirements and returns a *[ProbeError]
// for the first unsatisfied requirement, or nil if all are met.
// Version and channel requirements are checked first since they cost no
// compilation.
func (p *Prober) Check(required ...Requirement) error {
	rs := normalizeRequirements(required)

	for _, r := range rs.versions {
		if !p.VersionAtLeast(r.Major, r.Minor) {
			return &ProbeError{
				Probe:  r.String(),
				Reason: fmt.Sprintf("found rustc %s", p.version),
			}
		}
	}

	for _, r := range rs.channels {
		if !p.ChannelAtLeast(r.Channel) {
			return &ProbeError{
				Probe:  r.String(),
				Reason: fmt.Sprintf("toolchain is on the %s channel", p.channel),
			}
		}
	}

	for _, r := range rs.probes {
		if p.Probe(r.Kind, r.Payload) {
			continue
		}
		return &ProbeError{
			Probe:  r.String(),
			Reason: p.Diagnose(r),
		}
	}

	return nil
}

// Diagnose returns a reason string explaining why a probe requirement is
// likely unmet. It does not compile anything; the compiler's diagnostics are
// not retained, so the reason is inferred from the toolchain and probe state.
func (p *Prober) Diagnose(r ProbeRequirement) string {
	features := p.Features()

	switch r.Kind {
	case KindFeature:
		if !p.ChannelAtLeast(ChannelNightly) {
			return fmt.Sprintf("feature gates need a nightly toolchain; rustc %s is on the %s channel", p.release, p.channel)
		}
		return fmt.Sprintf("feature %s is unknown to rustc %s", r.Payload, p.release)
	case KindSysrootCrate:
		return fmt.Sprintf("crate %s is not in the sysroot of rustc %s", r.Payload, p.release)
	}

	if len(features) > 0 && !p.ChannelAtLeast(ChannelNightly) {
		return fmt.Sprintf("enabled features (%s) are rejected on the %s channel", strings.Join(features, ", "), p.channel)
	}
	if p.noStd && strings.Contains(r.Payload, "std::") {
		return fmt.Sprintf("does not compile with rustc %s in no_std mode", p.release)
	}
	return fmt.Sprintf("does not compile with rustc %s", p.release)
}
