package autoprobe

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// construct is something a fake rustc knows about.
type construct struct {
	since   Version
	feature string // unstable feature gate it sits behind
	std     bool   // needs the std crate
}

// fakeRustc is a scripted toolchain. It reads the probe crate from fs and
// decides the outcome from a table instead of compiling anything.
type fakeRustc struct {
	fs      afero.Fs
	release string
	host    string
	hasStd  bool

	knownFeatures map[string]bool
	sysroot       map[string]Version
	constructs    map[string]construct

	versionOutput string // overrides the generated -vV output
	versionExit   int
	startErr      error // returned for every invocation
	probeStartErr error // returned for probe invocations only

	mu       sync.Mutex
	compiles int
	commands []Command
}

func newFakeRustc(fs afero.Fs, release string) *fakeRustc {
	return &fakeRustc{
		fs:      fs,
		release: release,
		host:    testTriple,
		hasStd:  true,
		knownFeatures: map[string]bool{
			"rust1":      true,
			"step_trait": true,
		},
		sysroot: map[string]Version{
			"core":  NewVersion(1, 0, 0),
			"std":   NewVersion(1, 0, 0),
			"alloc": NewVersion(1, 36, 0),
		},
		constructs: map[string]construct{
			"std::ops::Add":                    {since: NewVersion(1, 0, 0)},
			"core::ops::Add":                   {since: NewVersion(1, 0, 0)},
			"std::ops::Add<i32>":               {since: NewVersion(1, 0, 0)},
			"std::convert::AsRef<str>":         {since: NewVersion(1, 0, 0)},
			"std::iter::Sum":                   {since: NewVersion(1, 12, 0)},
			"std::iter::Sum<i32>":              {since: NewVersion(1, 12, 0)},
			"dyn std::iter::Sum<i32>":          {since: NewVersion(1, 27, 0)},
			"i32":                              {since: NewVersion(1, 0, 0)},
			"[i32]":                            {since: NewVersion(1, 0, 0)},
			"i128":                             {since: NewVersion(1, 26, 0)},
			"Vec<i32>":                         {since: NewVersion(1, 0, 0), std: true},
			"std::iter::Step":                  {since: NewVersion(1, 0, 0), feature: "step_trait"},
			"core::iter::Step":                 {since: NewVersion(1, 0, 0), feature: "step_trait"},
			`"test".trim_left()`:               {since: NewVersion(1, 0, 0)},
			`"test".trim_start()`:              {since: NewVersion(1, 30, 0)},
			"[1, 2, 3].to_vec()":               {since: NewVersion(1, 0, 0), std: true},
			"1 + 2 + 3":                        {since: NewVersion(1, 0, 0)},
			"{ let x = 1 + 2 + 3; x * x }":     {since: NewVersion(1, 33, 0)},
			`"test".len()`:                     {since: NewVersion(1, 39, 0)},
			"std::ops::Add<i32, Output = i32>": {since: NewVersion(1, 0, 0)},
			"std::convert::AsRef":              {since: NewVersion(1, 0, 0)},
			"core::convert::AsRef":             {since: NewVersion(1, 0, 0)},
			"std::iter::Sum<i32> + Send":       {since: NewVersion(1, 12, 0)},
		},
	}
}

func (f *fakeRustc) Run(cmd Command) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.startErr != nil {
		return Result{}, f.startErr
	}
	if slices.Contains(cmd.Args, "--version") {
		return f.versionResult(), nil
	}

	f.compiles++
	f.commands = append(f.commands, cmd)
	if f.probeStartErr != nil {
		return Result{}, f.probeStartErr
	}
	if len(cmd.Args) == 0 {
		return Result{ExitCode: 1}, nil
	}

	src, err := afero.ReadFile(f.fs, cmd.Args[len(cmd.Args)-1])
	if err != nil {
		return Result{ExitCode: 1, Stderr: []byte(err.Error())}, nil
	}
	if f.accepts(string(src)) {
		return Result{}, nil
	}
	return Result{ExitCode: 1, Stderr: []byte("error: aborting due to previous error")}, nil
}

func (f *fakeRustc) versionResult() Result {
	if f.versionExit != 0 {
		return Result{ExitCode: f.versionExit, Stderr: []byte("error: unrecognized option")}
	}
	out := f.versionOutput
	if out == "" {
		out = fmt.Sprintf("rustc %s (90c541806 2023-05-31)\nbinary: rustc\ncommit-hash: 90c541806f23a127002de5b4038be731ba1458ca\nhost: %s\nrelease: %s\nLLVM version: 16.0.2\n",
			f.release, f.host, f.release)
	}
	return Result{Stdout: []byte(out)}
}

func (f *fakeRustc) compileCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.compiles
}

func (f *fakeRustc) lastCommand() Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.commands) == 0 {
		return Command{}
	}
	return f.commands[len(f.commands)-1]
}

var (
	featureLineRE = regexp.MustCompile(`^#!\[feature\((.+)\)\]$`)
	bodyRE        = []*regexp.Regexp{
		regexp.MustCompile(`^pub use (.+);$`),
		regexp.MustCompile(`^pub trait Probe: (.+) \+ Sized \{\}$`),
		regexp.MustCompile(`^pub fn probe\(_: (?:core|std)::marker::PhantomData<(.+)>\) \{\}$`),
		regexp.MustCompile(`^pub fn probe\(\) \{ let _ = (.+); \}$`),
		regexp.MustCompile(`^pub const PROBE: \(\) = \(\(\), (.+)\)\.0;$`),
	}
	externCrateRE = regexp.MustCompile(`^extern crate (\S+) as probe;$`)
)

// accepts plays the compiler.
func (f *fakeRustc) accepts(src string) bool {
	version, err := ParseVersion(f.release)
	if err != nil {
		return false
	}
	channel := channelFromRelease(f.release)

	var features []string
	var noStd bool
	var body []string
	for _, line := range strings.Split(strings.TrimSpace(src), "\n") {
		line = strings.TrimSpace(line)
		if m := featureLineRE.FindStringSubmatch(line); m != nil {
			features = append(features, m[1])
			continue
		}
		if line == "#![no_std]" {
			noStd = true
			continue
		}
		if line != "" {
			body = append(body, line)
		}
	}

	if len(features) > 0 && !channel.AtLeast(ChannelNightly) {
		return false // E0554
	}
	for _, name := range features {
		if !f.knownFeatures[name] {
			return false
		}
	}
	if !noStd && !f.hasStd {
		return false // E0463: can't find crate for `std`
	}
	if len(body) == 0 {
		return true
	}
	if len(body) > 1 {
		return false
	}

	line := body[0]
	if m := externCrateRE.FindStringSubmatch(line); m != nil {
		since, ok := f.sysroot[m[1]]
		if !ok || version.Less(since) {
			return false
		}
		return m[1] != "std" || f.hasStd
	}

	for _, re := range bodyRE {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		c, ok := f.constructs[m[1]]
		if !ok || version.Less(c.since) {
			return false
		}
		if c.feature != "" && !slices.Contains(features, c.feature) {
			return false
		}
		if (c.std || strings.Contains(m[1], "std::")) && noStd {
			return false
		}
		return true
	}
	return false
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
