package autoprobe

import "fmt"

// Requirement describes a gate condition consumable by [Prober.Check].
//
// Built-in implementations include:
//   - [VersionRequirement]
//   - [ChannelRequirement]
//   - [ProbeRequirement]
//   - [RequirementGroup]
type Requirement interface {
	isRequirement()
}

// RequirementGroup is a reusable set of [Requirement] items.
type RequirementGroup []Requirement

// VersionRequirement requires rustc Major.Minor.0 or newer.
type VersionRequirement struct {
	Major uint64
	Minor uint64
}

func (r VersionRequirement) String() string {
	return fmt.Sprintf("rustc >= %d.%d", r.Major, r.Minor)
}

// ChannelRequirement requires a channel at least as permissive as Channel.
type ChannelRequirement struct {
	Channel Channel
}

func (r ChannelRequirement) String() string {
	return fmt.Sprintf("channel >= %s", r.Channel)
}

// ProbeRequirement requires a probe of Kind with Payload to compile.
type ProbeRequirement struct {
	Kind    ProbeKind
	Payload string
}

func (r ProbeRequirement) String() string {
	return fmt.Sprintf("%s %s", r.Kind, r.Payload)
}

// RequireVersion creates a requirement for rustc major.minor or newer.
func RequireVersion(major, minor uint64) VersionRequirement {
	return VersionRequirement{Major: major, Minor: minor}
}

// RequireChannel creates a requirement for channel c or a less restrictive one.
func RequireChannel(c Channel) ChannelRequirement {
	return ChannelRequirement{Channel: c}
}

// RequireProbe creates a requirement for an arbitrary probe.
func RequireProbe(kind ProbeKind, payload string) ProbeRequirement {
	return ProbeRequirement{Kind: kind, Payload: payload}
}

// RequirePath creates a requirement for a resolvable path.
func RequirePath(path string) ProbeRequirement { return RequireProbe(KindPath, path) }

// RequireTrait creates a requirement for a usable trait bound.
func RequireTrait(bound string) ProbeRequirement { return RequireProbe(KindTrait, bound) }

// RequireType creates a requirement for a well-formed type.
func RequireType(typ string) ProbeRequirement { return RequireProbe(KindType, typ) }

// RequireExpression creates a requirement for a type-checking expression.
func RequireExpression(expr string) ProbeRequirement { return RequireProbe(KindExpression, expr) }

// RequireConstant creates a requirement for a compile-time evaluable expression.
func RequireConstant(expr string) ProbeRequirement { return RequireProbe(KindConstant, expr) }

// RequireSysrootCrate creates a requirement for a sysroot crate.
func RequireSysrootCrate(name string) ProbeRequirement { return RequireProbe(KindSysrootCrate, name) }

// RequireFeature creates a requirement for an accepted unstable feature gate.
func RequireFeature(name string) ProbeRequirement { return RequireProbe(KindFeature, name) }

func (RequirementGroup) isRequirement()   {}
func (VersionRequirement) isRequirement() {}
func (ChannelRequirement) isRequirement() {}
func (ProbeRequirement) isRequirement()   {}

type requirementSet struct {
	versions []VersionRequirement
	channels []ChannelRequirement
	probes   []ProbeRequirement

	seenVersions map[VersionRequirement]struct{}
	seenChannels map[ChannelRequirement]struct{}
	seenProbes   map[ProbeRequirement]struct{}
}

func normalizeRequirements(required []Requirement) requirementSet {
	rs := requirementSet{
		seenVersions: map[VersionRequirement]struct{}{},
		seenChannels: map[ChannelRequirement]struct{}{},
		seenProbes:   map[ProbeRequirement]struct{}{},
	}
	for _, req := range required {
		rs.add(req)
	}
	return rs
}

func (rs *requirementSet) add(req Requirement) {
	switch r := req.(type) {
	case VersionRequirement:
		if _, ok := rs.seenVersions[r]; ok {
			return
		}
		rs.seenVersions[r] = struct{}{}
		rs.versions = append(rs.versions, r)
	case ChannelRequirement:
		if _, ok := rs.seenChannels[r]; ok {
			return
		}
		rs.seenChannels[r] = struct{}{}
		rs.channels = append(rs.channels, r)
	case ProbeRequirement:
		if _, ok := rs.seenProbes[r]; ok {
			return
		}
		rs.seenProbes[r] = struct{}{}
		rs.probes = append(rs.probes, r)
	case RequirementGroup:
		for _, nested := range r {
			if nested == nil {
				continue
			}
			rs.add(nested)
		}
	}
}
