package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/joho/godotenv"
	"github.com/leodido/autoprobe"
	"github.com/leodido/structcli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/enumflag/v2"
)

// Build metadata injected via ldflags.
// Plain `go build` leaves them empty and the version command says "dev".
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	if err := loadEnvFile(); err != nil {
		slog.Warn("ignoring env file", slog.String("error", err.Error()))
	}

	root := &cobra.Command{
		Use:   "autoprobe",
		Short: "Probe what a rustc toolchain supports",
		Long: `autoprobe compiles tiny synthetic crates against a rustc toolchain to find
out which paths, traits, types, expressions, constants, sysroot crates and
feature gates it supports.

It reads the environment cargo gives build scripts (RUSTC, RUSTC_WRAPPER,
TARGET, OUT_DIR, CARGO_ENCODED_RUSTFLAGS), so it can run from a build step,
a CI job, or an interactive shell.`,
		SilenceUsage: true,
	}

	root.AddCommand(infoCmd())
	root.AddCommand(probeCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEnvFile reads a .env next to the crate, which can pin RUSTC, TARGET
// and friends. A missing file is not an error.
func loadEnvFile(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ToolchainOptions selects the compiler shared by every subcommand.
type ToolchainOptions struct {
	Rustc   string `flag:"rustc" flagdescr:"Compiler binary (default $RUSTC, then rustc)"`
	Target  string `flag:"target" flagshort:"t" flagdescr:"Target triple (default $TARGET)"`
	OutDir  string `flag:"out-dir" flagshort:"o" flagdescr:"Directory for probe crates (default $OUT_DIR, then $TMPDIR/autoprobe)"`
	Verbose bool   `flag:"verbose" flagshort:"v" flagdescr:"Log every compiler invocation"`
}

func (o *ToolchainOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

// locator overlays the flags on what the environment provides.
// A missing OUT_DIR is not fatal on the command line.
func (o *ToolchainOptions) locator(loc autoprobe.Locator, err error) (autoprobe.Locator, error) {
	if err != nil && !errors.Is(err, autoprobe.ErrNoOutDir) {
		return loc, err
	}
	if o.Rustc != "" {
		loc.Rustc = o.Rustc
	}
	if o.Target != "" {
		loc.Target = o.Target
	}
	if o.OutDir != "" {
		loc.OutDir = o.OutDir
	}
	if loc.OutDir == "" {
		loc.OutDir = filepath.Join(os.TempDir(), "autoprobe")
	}
	return loc, nil
}

func (o *ToolchainOptions) prober() (*autoprobe.Prober, error) {
	loc, err := o.locator(autoprobe.LocatorFromEnv())
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return autoprobe.New(loc, autoprobe.WithLogger(logger), autoprobe.WithOutput(os.Stdout))
}

// InfoOptions defines flags for the info subcommand.
type InfoOptions struct {
	JSON bool `flag:"json" flagshort:"j" flagdescr:"Output in JSON format"`
}

func (o *InfoOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func infoCmd() *cobra.Command {
	opts := &InfoOptions{}
	tc := &ToolchainOptions{}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Display the toolchain version, channel and platform",
		PreRunE: func(c *cobra.Command, args []string) error {
			if err := structcli.Unmarshal(c, tc); err != nil {
				return err
			}
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			p, err := tc.prober()
			if err != nil {
				return err
			}

			if opts.JSON {
				return printJSON(p.Report())
			}

			fmt.Print(p)
			return nil
		},
	}

	mustAttach(cmd, tc, opts)
	return cmd
}

// ProbeOptions defines flags for the probe subcommand.
type ProbeOptions struct {
	Kind     autoprobe.ProbeKind `flag:"kind" flagshort:"k" flagdescr:"Probe kind" flagrequired:"true" flagcustom:"true"`
	Features featureList         `flag:"feature" flagshort:"f" flagdescr:"Unstable feature to enable, repeatable" flagcustom:"true"`
	Cfg      string              `flag:"cfg" flagdescr:"Print cargo:rustc-cfg=NAME when the probe succeeds"`
	JSON     bool                `flag:"json" flagshort:"j" flagdescr:"Output in JSON format"`
}

func (o *ProbeOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *ProbeOptions) DefineKind(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*autoprobe.ProbeKind)
	value := enumflag.New(fieldPtr, "kind", kindIdentifierMap, enumflag.EnumCaseInsensitive)
	return value, fmt.Sprintf("%s (%s)", descr, availableKinds())
}

func (o *ProbeOptions) DecodeKind(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}

	return parseKind(s)
}

func (o *ProbeOptions) DefineFeatures(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*featureList)
	*fieldPtr = nil
	return fieldPtr, descr
}

func (o *ProbeOptions) DecodeFeatures(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}

	var fl featureList
	if err := fl.Set(s); err != nil {
		return nil, err
	}
	return fl, nil
}

func probeCmd() *cobra.Command {
	opts := &ProbeOptions{}
	tc := &ToolchainOptions{}

	cmd := &cobra.Command{
		Use:   "probe --kind KIND PAYLOAD",
		Short: "Compile a single probe and report whether it succeeds",
		Example: `  autoprobe probe --kind type i128
  autoprobe probe --kind trait 'std::iter::Sum<i32>' --cfg has_sum
  autoprobe probe --kind trait --feature step_trait std::iter::Step`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(c *cobra.Command, args []string) error {
			if err := structcli.Unmarshal(c, tc); err != nil {
				return err
			}
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			p, err := tc.prober()
			if err != nil {
				return err
			}
			for _, f := range opts.Features {
				p.SetFeature(f)
			}

			payload := args[0]
			ok := p.Probe(opts.Kind, payload)

			switch {
			case opts.JSON:
				return printJSON(map[string]any{
					"kind":    opts.Kind.String(),
					"payload": payload,
					"ok":      ok,
				})
			case opts.Cfg != "":
				p.EmitPossibility(opts.Cfg)
				if ok {
					p.EmitCfg(opts.Cfg)
				}
			default:
				fmt.Printf("%s %s: %s\n", opts.Kind, payload, yesNo(ok))
			}
			return nil
		},
	}

	mustAttach(cmd, tc, opts)
	return cmd
}

// CheckOptions defines flags for the check subcommand.
type CheckOptions struct {
	Require requirementList `flag:"require" flagshort:"r" flagdescr:"Required KIND:PAYLOAD (see available kinds above)" flagrequired:"true" flagcustom:"true"`
	JSON    bool            `flag:"json" flagshort:"j" flagdescr:"Output in JSON format"`
}

func (o *CheckOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *CheckOptions) DefineRequire(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*requirementList)
	*fieldPtr = nil
	return fieldPtr, descr
}

func (o *CheckOptions) DecodeRequire(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}

	return parseRequirementList(s)
}

// CompleteRequire suggests requirement kinds, then channel names once the
// channel kind is typed.
func (o *CheckOptions) CompleteRequire(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	directive := cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace

	if kind, rest, ok := strings.Cut(toComplete, ":"); ok {
		if !strings.EqualFold(strings.TrimSpace(kind), "channel") {
			return nil, directive
		}
		var out []string
		for _, name := range autoprobe.ChannelNames() {
			if strings.HasPrefix(name, strings.ToLower(rest)) {
				out = append(out, kind+":"+name)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}

	var out []string
	for _, name := range requirementKinds() {
		if strings.HasPrefix(name, strings.ToLower(toComplete)) {
			out = append(out, name+":")
		}
	}
	return out, directive
}

func checkCmd() *cobra.Command {
	opts := &CheckOptions{}
	tc := &ToolchainOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the toolchain meets specific requirements",
		Long:  checkLongDescription(),
		Example: `  autoprobe check -r version:1.56 -r path:std::ops::Add
  autoprobe check -r channel:nightly -r feature:step_trait`,
		PreRunE: func(c *cobra.Command, args []string) error {
			if err := structcli.Unmarshal(c, tc); err != nil {
				return err
			}
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			if len(opts.Require) == 0 {
				return fmt.Errorf("no requirements specified")
			}

			p, err := tc.prober()
			if err != nil {
				return err
			}

			err = p.Check(opts.Require...)
			if err != nil {
				var pe *autoprobe.ProbeError
				if errors.As(err, &pe) {
					if opts.JSON {
						if err := printJSON(map[string]any{
							"ok":          false,
							"requirement": pe.Probe,
							"reason":      pe.Reason,
						}); err != nil {
							return err
						}
						os.Exit(1)
					}
					fmt.Fprintf(os.Stderr, "FAIL: %s: %s\n", pe.Probe, pe.Reason)
					os.Exit(1)
				}
				return err
			}

			if opts.JSON {
				return printJSON(map[string]any{"ok": true})
			}
			fmt.Println("OK: all requirements satisfied")
			return nil
		},
	}

	mustAttach(cmd, tc, opts)
	return cmd
}

func versionCmd() *cobra.Command {
	tc := &ToolchainOptions{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show tool and rustc version",
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, tc)
		},
		RunE: func(c *cobra.Command, args []string) error {
			if version != "" {
				fmt.Printf("autoprobe %s", version)
				if commit != "" {
					fmt.Printf(" (%s)", commit)
				}
				if date != "" {
					fmt.Printf(" built %s", date)
				}
				fmt.Println()
			} else {
				fmt.Println("autoprobe (dev)")
			}

			p, err := tc.prober()
			if err != nil {
				return err
			}
			fmt.Printf("rustc: %s\n", p.Release())
			return nil
		},
	}

	mustAttach(cmd, tc)
	return cmd
}

type attacher interface {
	Attach(c *cobra.Command) error
}

func mustAttach(c *cobra.Command, opts ...attacher) {
	for _, o := range opts {
		if err := o.Attach(c); err != nil {
			panic(err)
		}
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func availableKinds() string {
	return strings.Join(autoprobe.KindNames(), ", ")
}

// requirementKinds lists what may precede the colon in --require.
func requirementKinds() []string {
	return append([]string{"version", "channel"}, autoprobe.KindNames()...)
}

func checkLongDescription() string {
	return fmt.Sprintf(`Check that the toolchain meets all requirements.
Each requirement is KIND:PAYLOAD, split at the first colon, so payloads may
contain colons and commas. "version:1.56" needs rustc 1.56 or newer and
"channel:beta" needs a beta, nightly or dev toolchain.
Exits with code 0 if all requirements are met, 1 if any are missing.

Available kinds:
%s`, formatWrappedList(requirementKinds(), "  ", 80))
}

func formatWrappedList(items []string, indent string, maxWidth int) string {
	if len(items) == 0 {
		return indent + "(none)"
	}

	lines := make([]string, 0, len(items))
	line := indent
	for i, item := range items {
		token := item
		if i < len(items)-1 {
			token += ", "
		}

		if len(line)+len(token) > maxWidth && line != indent {
			lines = append(lines, strings.TrimRight(line, " "))
			line = indent + token
			continue
		}

		line += token
	}

	lines = append(lines, strings.TrimRight(line, " "))
	return strings.Join(lines, "\n")
}

var kindIdentifierMap = func() map[autoprobe.ProbeKind][]string {
	ids := make(map[autoprobe.ProbeKind][]string, len(autoprobe.KindValues()))
	for _, k := range autoprobe.KindValues() {
		ids[k] = []string{k.String()}
	}
	return ids
}()

var channelIdentifierMap = func() map[autoprobe.Channel][]string {
	ids := make(map[autoprobe.Channel][]string, len(autoprobe.ChannelValues()))
	for _, c := range autoprobe.ChannelValues() {
		ids[c] = []string{c.String()}
	}
	return ids
}()

func parseKind(input string) (autoprobe.ProbeKind, error) {
	var kind autoprobe.ProbeKind
	value := enumflag.New(&kind, "kind", kindIdentifierMap, enumflag.EnumCaseInsensitive)
	if err := value.Set(strings.TrimSpace(input)); err != nil {
		return 0, fmt.Errorf("unknown probe kind: %q (available: %s)", input, availableKinds())
	}
	return kind, nil
}

func parseChannel(input string) (autoprobe.Channel, error) {
	var ch autoprobe.Channel
	value := enumflag.New(&ch, "channel", channelIdentifierMap, enumflag.EnumCaseInsensitive)
	if err := value.Set(strings.TrimSpace(input)); err != nil {
		return 0, fmt.Errorf("unknown channel: %q (available: %s)", input, strings.Join(autoprobe.ChannelNames(), ", "))
	}
	return ch, nil
}

// parseMinorVersion accepts MAJOR.MINOR with an optional, ignored patch.
func parseMinorVersion(input string) (autoprobe.VersionRequirement, error) {
	input = strings.TrimSpace(input)
	if n := strings.Count(input, "."); n < 1 || n > 2 {
		return autoprobe.VersionRequirement{}, fmt.Errorf("%w: %q: want MAJOR.MINOR", autoprobe.ErrInvalidVersion, input)
	}
	v, err := semver.NewVersion(input)
	if err != nil {
		return autoprobe.VersionRequirement{}, fmt.Errorf("%w: %q: %w", autoprobe.ErrInvalidVersion, input, err)
	}
	return autoprobe.RequireVersion(v.Major(), v.Minor()), nil
}

func parseRequirement(input string) (autoprobe.Requirement, error) {
	kind, payload, ok := strings.Cut(strings.TrimSpace(input), ":")
	if !ok {
		return nil, fmt.Errorf("requirement %q is not KIND:PAYLOAD", input)
	}
	kind = strings.ToLower(strings.TrimSpace(kind))

	switch kind {
	case "version":
		return parseMinorVersion(payload)
	case "channel":
		ch, err := parseChannel(payload)
		if err != nil {
			return nil, err
		}
		return autoprobe.RequireChannel(ch), nil
	}

	pk, err := parseKind(kind)
	if err != nil {
		return nil, fmt.Errorf("unknown requirement kind: %q (available: %s)", kind, strings.Join(requirementKinds(), ", "))
	}
	if pk != autoprobe.KindRaw {
		payload = strings.TrimSpace(payload)
	}
	if payload == "" {
		return nil, fmt.Errorf("requirement %q has an empty payload", input)
	}
	return autoprobe.RequireProbe(pk, payload), nil
}

// requirementList collects repeated --require flags. Its string form puts
// one requirement per line since payloads may contain commas.
type requirementList []autoprobe.Requirement

func (r *requirementList) String() string {
	lines := make([]string, 0, len(*r))
	for _, req := range *r {
		lines = append(lines, formatRequirement(req))
	}
	return strings.Join(lines, "\n")
}

func (r *requirementList) Set(input string) error {
	req, err := parseRequirement(input)
	if err != nil {
		return err
	}

	*r = append(*r, req)
	return nil
}

func (r *requirementList) Type() string {
	return "requirement"
}

func parseRequirementList(input string) (requirementList, error) {
	var list requirementList
	for _, line := range strings.Split(input, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := list.Set(line); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func formatRequirement(req autoprobe.Requirement) string {
	switch r := req.(type) {
	case autoprobe.VersionRequirement:
		return fmt.Sprintf("version:%d.%d", r.Major, r.Minor)
	case autoprobe.ChannelRequirement:
		return "channel:" + r.Channel.String()
	case autoprobe.ProbeRequirement:
		return r.Kind.String() + ":" + r.Payload
	default:
		return fmt.Sprint(req)
	}
}

// featureList collects repeated --feature flags. Feature names never
// contain commas, so a single flag may also carry a comma-separated list.
type featureList []string

func (f *featureList) String() string {
	return strings.Join(*f, ",")
}

func (f *featureList) Set(input string) error {
	for _, part := range strings.Split(input, ",") {
		if name := strings.TrimSpace(part); name != "" {
			*f = append(*f, name)
		}
	}
	return nil
}

func (f *featureList) Type() string {
	return "feature"
}
