package autoprobe

import (
	"fmt"
	"strings"
)

// EmitCfg tells cargo to set the cfg flag name for the crate being built.
func (p *Prober) EmitCfg(name string) {
	fmt.Fprintf(p.out, "cargo:rustc-cfg=%s\n", name)
}

// EmitPossibility declares name as an expected cfg so the unexpected_cfgs
// lint stays quiet when it is not set. Toolchains before 1.80 do not know
// the directive and get nothing.
func (p *Prober) EmitPossibility(name string) {
	if p.VersionAtLeast(1, 80) {
		fmt.Fprintf(p.out, "cargo:rustc-check-cfg=cfg(%s)\n", name)
	}
}

// RerunPath asks cargo to rerun the build script when path changes.
func (p *Prober) RerunPath(path string) {
	fmt.Fprintf(p.out, "cargo:rerun-if-changed=%s\n", path)
}

// RerunEnv asks cargo to rerun the build script when the variable changes.
func (p *Prober) RerunEnv(name string) {
	fmt.Fprintf(p.out, "cargo:rerun-if-env-changed=%s\n", name)
}

// emitIf declares cfg and sets it when ok.
func (p *Prober) emitIf(cfg string, ok bool) bool {
	p.EmitPossibility(cfg)
	if ok {
		p.EmitCfg(cfg)
	}
	return ok
}

// EmitRustcVersion sets rustc_MAJOR_MINOR when the toolchain is at least
// that version.
func (p *Prober) EmitRustcVersion(major, minor uint64) bool {
	return p.emitIf(fmt.Sprintf("rustc_%d_%d", major, minor), p.VersionAtLeast(major, minor))
}

// EmitHasPath sets has_PATH (mangled) when path resolves.
func (p *Prober) EmitHasPath(path string) bool {
	return p.EmitPathCfg(path, "has_"+mangle(path))
}

// EmitPathCfg sets cfg when path resolves.
func (p *Prober) EmitPathCfg(path, cfg string) bool {
	return p.emitIf(cfg, p.ProbePath(path))
}

// EmitHasTrait sets has_TRAIT (mangled) when the bound is usable.
func (p *Prober) EmitHasTrait(bound string) bool {
	return p.EmitTraitCfg(bound, "has_"+mangle(bound))
}

// EmitTraitCfg sets cfg when the bound is usable.
func (p *Prober) EmitTraitCfg(bound, cfg string) bool {
	return p.emitIf(cfg, p.ProbeTrait(bound))
}

// EmitHasType sets has_TYPE (mangled) when the type is well-formed.
func (p *Prober) EmitHasType(typ string) bool {
	return p.EmitTypeCfg(typ, "has_"+mangle(typ))
}

// EmitTypeCfg sets cfg when the type is well-formed.
func (p *Prober) EmitTypeCfg(typ, cfg string) bool {
	return p.emitIf(cfg, p.ProbeType(typ))
}

// EmitExpressionCfg sets cfg when the expression type-checks.
func (p *Prober) EmitExpressionCfg(expr, cfg string) bool {
	return p.emitIf(cfg, p.ProbeExpression(expr))
}

// EmitConstantCfg sets cfg when the expression is compile-time evaluable.
func (p *Prober) EmitConstantCfg(expr, cfg string) bool {
	return p.emitIf(cfg, p.ProbeConstant(expr))
}

// EmitSysrootCrate sets has_NAME when the sysroot provides the crate.
func (p *Prober) EmitSysrootCrate(name string) bool {
	return p.emitIf("has_"+mangle(name), p.ProbeSysrootCrate(name))
}

// mangle turns arbitrary text into a cfg identifier.
func mangle(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
