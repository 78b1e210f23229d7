package autoprobe

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

// options holds the collaborators of a [Prober].
type options struct {
	runner    Runner
	fs        afero.Fs
	logger    *slog.Logger
	out       io.Writer
	cacheSize int
}

// Option configures a [Prober].
type Option func(*options)

// WithRunner sets the process runner used to invoke rustc.
// Tests use it to substitute a scripted toolchain.
func WithRunner(r Runner) Option {
	return func(o *options) {
		o.runner = r
	}
}

// WithFs sets the filesystem probe artifacts are written to.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithOutput sets where cargo directives are written. Defaults to stdout,
// which is where cargo reads them from.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// WithCacheSize bounds the number of cached probe outcomes.
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// Prober answers questions about a rustc toolchain by compiling small
// synthetic crates against it.
//
// The toolchain version, channel, scratch directory and no_std mode are fixed
// at construction. Only the set of unstable features changes afterwards, via
// [Prober.SetFeature] and [Prober.UnsetFeature]. A Prober is safe for
// concurrent use.
type Prober struct {
	loc       Locator
	host      string
	rustflags []string
	dir       string
	release   string
	version   Version
	channel   Channel
	noStd     bool

	runner Runner
	fs     afero.Fs
	logger *slog.Logger
	out    io.Writer

	mu       sync.RWMutex
	features map[string]struct{}

	cache *probeCache
	group singleflight.Group
}

// NewFromEnv builds a [Prober] from the build script environment.
func NewFromEnv(opts ...Option) (*Prober, error) {
	loc, err := LocatorFromEnv()
	if err != nil {
		return nil, &ConfigError{Op: "locate toolchain", Reason: "OUT_DIR not set", Err: err}
	}
	return New(loc, opts...)
}

// New inspects the toolchain described by loc and prepares the scratch
// directory. It fails with a *[ConfigError] when rustc cannot be run, its
// version cannot be parsed, or the scratch directory cannot be written.
func New(loc Locator, opts ...Option) (*Prober, error) {
	o := &options{cacheSize: defaultCacheSize}
	for _, opt := range opts {
		opt(o)
	}
	if o.runner == nil {
		o.runner = ExecRunner{}
	}
	if o.fs == nil {
		o.fs = afero.NewOsFs()
	}
	if o.logger == nil {
		o.logger = slog.Default().With(slog.String("component", "autoprobe"))
	}
	if o.out == nil {
		o.out = os.Stdout
	}

	if loc.Rustc == "" {
		loc.Rustc = "rustc"
	}
	if loc.OutDir == "" {
		return nil, &ConfigError{Op: "locate toolchain", Reason: "output directory is required", Err: ErrNoOutDir}
	}

	info, err := inspectToolchain(o.runner, loc)
	if err != nil {
		return nil, err
	}

	cache, err := newProbeCache(o.cacheSize)
	if err != nil {
		return nil, &ConfigError{Op: "configure", Reason: "invalid cache size", Err: err}
	}

	p := &Prober{
		loc:      loc,
		host:     loc.Host,
		release:  info.release,
		version:  info.version,
		channel:  info.channel,
		runner:   o.runner,
		fs:       o.fs,
		logger:   o.logger,
		out:      o.out,
		features: map[string]struct{}{},
		cache:    cache,
	}
	if p.host == "" {
		p.host = info.host
	}
	if p.host == "" {
		p.host = hostTriple()
	}
	p.rustflags = p.selectRustFlags()

	p.dir = scratchDir(loc.Target, loc.OutDir, loc.TargetDir)
	if err := ensureDir(p.fs, p.dir); err != nil {
		return nil, &ConfigError{Op: "create scratch directory", Reason: p.dir, Err: err}
	}

	if err := p.detectNoStd(); err != nil {
		return nil, err
	}

	p.logger.Info("toolchain discovered",
		slog.String("rustc", loc.Rustc),
		slog.String("release", p.release),
		slog.String("channel", p.channel.String()),
		slog.String("host", p.host),
		slog.String("target", loc.Target),
		slog.String("dir", p.dir),
		slog.Bool("no_std", p.noStd),
	)
	return p, nil
}

// selectRustFlags decides which configured flags apply to probes.
// Encoded flags always apply. Cargo only applies RUSTFLAGS to target
// artifacts in a cross build, and the environment cannot tell a host artifact
// of a cross build apart, so legacy flags apply when the target differs from
// the host or OUT_DIR is target-partitioned.
func (p *Prober) selectRustFlags() []string {
	if !p.loc.RustFlagsLegacy {
		return p.loc.RustFlags
	}
	target := p.loc.Target
	if target != p.host || dirContainsTarget(target, p.loc.OutDir, p.loc.TargetDir) {
		return p.loc.RustFlags
	}
	return nil
}

// detectNoStd compiles an empty crate. If that fails but a #![no_std] empty
// crate compiles, std is taken to be unavailable and every later snippet is
// generated for core. If both fail the toolchain is broken and std mode stays.
func (p *Prober) detectNoStd() error {
	ok, err := p.run(KindRaw, "")
	if err != nil {
		return &ConfigError{Op: "write probe artifact", Reason: p.dir, Err: err}
	}
	if ok {
		return nil
	}

	p.noStd = true
	ok, err = p.run(KindRaw, "")
	if err != nil {
		return &ConfigError{Op: "write probe artifact", Reason: p.dir, Err: err}
	}
	if !ok {
		p.noStd = false
		p.logger.Warn("empty crate fails to compile with and without std; keeping std mode",
			slog.String("rustc", p.loc.Rustc),
		)
	}
	return nil
}

// Probe compiles payload embedded in the template of kind and reports
// whether compilation succeeded. Identical snippets are compiled once.
func (p *Prober) Probe(kind ProbeKind, payload string) bool {
	ok, err := p.run(kind, payload)
	if err != nil {
		p.logger.Error("probe artifact not written",
			slog.String("kind", kind.String()),
			slog.String("dir", p.dir),
			slog.String("error", err.Error()),
		)
		return false
	}
	return ok
}

// ProbePath reports whether path resolves to an item, e.g. "std::ops::Add".
func (p *Prober) ProbePath(path string) bool {
	return p.Probe(KindPath, path)
}

// ProbeTrait reports whether bound can constrain a type, e.g. "std::ops::Add<i32>".
func (p *Prober) ProbeTrait(bound string) bool {
	return p.Probe(KindTrait, bound)
}

// ProbeType reports whether typ is a well-formed type, e.g. "i128".
func (p *Prober) ProbeType(typ string) bool {
	return p.Probe(KindType, typ)
}

// ProbeExpression reports whether expr type-checks inside a function body.
func (p *Prober) ProbeExpression(expr string) bool {
	return p.Probe(KindExpression, expr)
}

// ProbeConstant reports whether expr can be evaluated at compile time.
func (p *Prober) ProbeConstant(expr string) bool {
	return p.Probe(KindConstant, expr)
}

// ProbeSysrootCrate reports whether the sysroot provides the crate name,
// e.g. "alloc".
func (p *Prober) ProbeSysrootCrate(name string) bool {
	return p.Probe(KindSysrootCrate, name)
}

// ProbeFeature reports whether the unstable feature gate name is accepted.
// Stable and beta toolchains reject every feature gate.
func (p *Prober) ProbeFeature(name string) bool {
	return p.Probe(KindFeature, name)
}

// ProbeRaw reports whether code compiles as a library crate.
func (p *Prober) ProbeRaw(code string) bool {
	return p.Probe(KindRaw, code)
}

// run resolves one probe. The error is non-nil only when the artifact cannot
// be written; compiler failures of any kind are a false outcome.
func (p *Prober) run(kind ProbeKind, payload string) (bool, error) {
	code := p.snippet(kind, payload)
	if ok, hit := p.cache.get(code); hit {
		p.logger.Debug("probe", slog.String("kind", kind.String()), slog.String("payload", payload), slog.Bool("ok", ok), slog.Bool("cached", true))
		return ok, nil
	}

	v, err, _ := p.group.Do(code, func() (any, error) {
		if ok, hit := p.cache.get(code); hit {
			return ok, nil
		}
		ok, err := p.compile(code)
		if err != nil {
			return false, err
		}
		p.cache.add(code, ok)
		return ok, nil
	})
	if err != nil {
		return false, err
	}

	ok := v.(bool)
	p.logger.Debug("probe", slog.String("kind", kind.String()), slog.String("payload", payload), slog.Bool("ok", ok), slog.Bool("cached", false))
	return ok, nil
}

func (p *Prober) snippet(kind ProbeKind, payload string) string {
	return buildSnippet(p.Features(), p.noStd, kind, payload)
}

// compile writes code into the scratch directory and asks rustc to check it.
// Only metadata is emitted: no code generation and no linking.
func (p *Prober) compile(code string) (bool, error) {
	name := artifactName(code)
	src := filepath.Join(p.dir, name+".rs")
	if err := writeArtifact(p.fs, src, code); err != nil {
		return false, err
	}

	args := []string{
		"--crate-name", name,
		"--crate-type", "lib",
		"--emit=metadata",
		"--out-dir", p.dir,
	}
	if p.loc.Target != "" {
		args = append(args, "--target", p.loc.Target)
	}
	args = append(args, p.rustflags...)
	args = append(args, src)

	res, err := p.runner.Run(p.loc.command(p.dir, args...))
	if err != nil {
		p.logger.Debug("rustc not started", slog.String("crate", name), slog.String("error", err.Error()))
		return false, nil
	}
	return res.ExitCode == 0, nil
}

// Version returns the toolchain version.
func (p *Prober) Version() Version { return p.version }

// Release returns the release string reported by rustc, e.g. "1.70.0-nightly".
func (p *Prober) Release() string { return p.release }

// Channel returns the toolchain release channel.
func (p *Prober) Channel() Channel { return p.channel }

// Host returns the host triple.
func (p *Prober) Host() string { return p.host }

// Target returns the target triple, empty for host-only builds.
func (p *Prober) Target() string { return p.loc.Target }

// Dir returns the scratch directory probe artifacts are written to.
func (p *Prober) Dir() string { return p.dir }

// NoStd reports whether probes are generated for core instead of std.
func (p *Prober) NoStd() bool { return p.noStd }

// RootPath prefixes path with the root crate in use: "core::" in no_std
// mode, "std::" otherwise.
func (p *Prober) RootPath(path string) string {
	return rootNamespace(p.noStd) + "::" + path
}

// VersionAtLeast reports whether the toolchain is major.minor.0 or newer.
func (p *Prober) VersionAtLeast(major, minor uint64) bool {
	return p.version.AtLeast(major, minor)
}

// ChannelAtLeast reports whether the toolchain channel is c or less restrictive.
func (p *Prober) ChannelAtLeast(c Channel) bool {
	return p.channel.AtLeast(c)
}

// IsChannel reports whether the toolchain is exactly on channel c.
func (p *Prober) IsChannel(c Channel) bool {
	return p.channel == c
}
