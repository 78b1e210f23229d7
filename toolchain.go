package autoprobe

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Locator tells a [Prober] which compiler to run and where.
// Build scripts normally obtain one from [LocatorFromEnv].
type Locator struct {
	// Rustc is the compiler binary. Defaults to "rustc".
	Rustc string
	// Wrapper, if set, is executed instead of Rustc with Rustc as its first
	// argument (RUSTC_WRAPPER).
	Wrapper string
	// Host is the host triple. Discovered from rustc when empty.
	Host string
	// Target is the target triple. Empty for host-only builds.
	Target string
	// OutDir is the build script output directory (OUT_DIR). Required.
	OutDir string
	// TargetDir overrides the name of cargo's target directory (CARGO_TARGET_DIR).
	TargetDir string
	// RustFlags are extra flags passed to every probe compilation.
	RustFlags []string
	// RustFlagsLegacy marks RustFlags as read from RUSTFLAGS rather than
	// CARGO_ENCODED_RUSTFLAGS. Legacy flags only apply when cross compiling
	// or when OUT_DIR is target-partitioned, as cargo does.
	RustFlagsLegacy bool
}

// LocatorFromEnv reads a [Locator] from the environment cargo provides to
// build scripts. It returns the partially filled locator and [ErrNoOutDir]
// when OUT_DIR is unset.
func LocatorFromEnv() (Locator, error) {
	return locatorFromLookup(os.LookupEnv)
}

func locatorFromLookup(lookup func(string) (string, bool)) (Locator, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	loc := Locator{
		Rustc:     get("RUSTC"),
		Wrapper:   get("RUSTC_WRAPPER"),
		Host:      get("HOST"),
		Target:    get("TARGET"),
		OutDir:    get("OUT_DIR"),
		TargetDir: get("CARGO_TARGET_DIR"),
	}
	if loc.Rustc == "" {
		loc.Rustc = "rustc"
	}

	if encoded, ok := lookup("CARGO_ENCODED_RUSTFLAGS"); ok {
		for _, flag := range strings.Split(encoded, "\x1f") {
			if flag != "" {
				loc.RustFlags = append(loc.RustFlags, flag)
			}
		}
	} else if legacy, ok := lookup("RUSTFLAGS"); ok {
		loc.RustFlags = strings.Fields(legacy)
		loc.RustFlagsLegacy = true
	}

	if loc.OutDir == "" {
		return loc, ErrNoOutDir
	}
	return loc, nil
}

// command builds an invocation of the compiler, going through the wrapper
// when one is configured.
func (l Locator) command(dir string, args ...string) Command {
	rustc := l.Rustc
	if rustc == "" {
		rustc = "rustc"
	}
	if l.Wrapper != "" {
		return Command{Path: l.Wrapper, Args: append([]string{rustc}, args...), Dir: dir}
	}
	return Command{Path: rustc, Args: args, Dir: dir}
}

// Command is a single process invocation.
type Command struct {
	Path string
	Args []string
	Dir  string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// Result is the outcome of a process that ran to completion.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner executes processes.
//
// Run returns an error only when the process could not be started.
// A process that exits with a non-zero status yields a [Result] and a nil error.
type Runner interface {
	Run(cmd Command) (Result, error)
}

// ExecRunner is the [Runner] backed by os/exec.
type ExecRunner struct{}

// Run implements [Runner].
func (ExecRunner) Run(c Command) (Result, error) {
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}

// toolchainInfo is what `rustc --version --verbose` tells us.
type toolchainInfo struct {
	release string
	version Version
	channel Channel
	host    string
}

// inspectToolchain runs `rustc --version --verbose` and parses its output.
func inspectToolchain(runner Runner, loc Locator) (toolchainInfo, error) {
	cmd := loc.command("", "--version", "--verbose")
	res, err := runner.Run(cmd)
	if err != nil {
		return toolchainInfo{}, &ConfigError{
			Op:     "inspect toolchain",
			Reason: fmt.Sprintf("cannot run %s", cmd),
			Err:    fmt.Errorf("%w: %w", ErrToolchainUnavailable, err),
		}
	}
	if res.ExitCode != 0 {
		return toolchainInfo{}, &ConfigError{
			Op:     "inspect toolchain",
			Reason: fmt.Sprintf("%s exited with status %d", cmd, res.ExitCode),
			Err:    fmt.Errorf("%w: %s", ErrToolchainUnavailable, strings.TrimSpace(string(res.Stderr))),
		}
	}

	info, err := parseVersionOutput(string(res.Stdout))
	if err != nil {
		return toolchainInfo{}, &ConfigError{
			Op:     "inspect toolchain",
			Reason: "unrecognized version output",
			Err:    err,
		}
	}
	return info, nil
}

// parseVersionOutput parses the output of `rustc --version --verbose`:
//
//	rustc 1.70.0-nightly (f63ccaf25 2023-03-06)
//	binary: rustc
//	host: x86_64-unknown-linux-gnu
//	release: 1.70.0-nightly
//
// The release line wins over the banner; plain `rustc --version` output
// (banner only) is accepted too.
func parseVersionOutput(out string) (toolchainInfo, error) {
	var info toolchainInfo
	var banner string

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if banner == "" {
			banner = line
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "release":
			info.release = strings.TrimSpace(value)
		case "host":
			info.host = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return toolchainInfo{}, err
	}

	if info.release == "" {
		fields := strings.Fields(banner)
		if len(fields) < 2 {
			return toolchainInfo{}, fmt.Errorf("%w: no release in %q", ErrInvalidVersion, banner)
		}
		info.release = fields[1]
	}

	v, err := ParseVersion(info.release)
	if err != nil {
		return toolchainInfo{}, err
	}
	info.version = v
	info.channel = channelFromRelease(info.release)
	return info, nil
}
