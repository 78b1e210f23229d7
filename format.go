package autoprobe

import (
	"fmt"
	"strings"
)

// Report is a snapshot of what a [Prober] knows about its toolchain.
type Report struct {
	Rustc    string   `json:"rustc"`
	Release  string   `json:"release"`
	Version  string   `json:"version"`
	Channel  string   `json:"channel"`
	Host     string   `json:"host"`
	Target   string   `json:"target,omitempty"`
	Dir      string   `json:"scratch_dir"`
	NoStd    bool     `json:"no_std"`
	Features []string `json:"features,omitempty"`
}

// Report returns the current toolchain snapshot.
func (p *Prober) Report() Report {
	return Report{
		Rustc:    p.loc.Rustc,
		Release:  p.release,
		Version:  p.version.String(),
		Channel:  p.channel.String(),
		Host:     p.host,
		Target:   p.loc.Target,
		Dir:      p.dir,
		NoStd:    p.noStd,
		Features: p.Features(),
	}
}

// String returns a human-readable summary of the toolchain.
func (p *Prober) String() string {
	r := p.Report()
	var b strings.Builder

	fmt.Fprintf(&b, "Toolchain: %s\n", r.Rustc)
	fmt.Fprintf(&b, "  Release: %s\n", r.Release)
	fmt.Fprintf(&b, "  Version: %s\n", r.Version)
	fmt.Fprintf(&b, "  Channel: %s\n", r.Channel)
	b.WriteString("\n")

	b.WriteString("Platform:\n")
	writeField(&b, "  Host", r.Host)
	writeField(&b, "  Target", r.Target)
	b.WriteString("\n")

	b.WriteString("Probing:\n")
	writeField(&b, "  Scratch dir", r.Dir)
	writeFlag(&b, "  no_std", r.NoStd)
	if len(r.Features) > 0 {
		fmt.Fprintf(&b, "  Features: %s\n", strings.Join(r.Features, ", "))
	}

	return b.String()
}

func writeField(b *strings.Builder, name, value string) {
	if value == "" {
		value = "(none)"
	}
	fmt.Fprintf(b, "%s: %s\n", name, value)
}

func writeFlag(b *strings.Builder, name string, v bool) {
	status := "no"
	if v {
		status = "yes"
	}
	fmt.Fprintf(b, "%s: %s\n", name, status)
}
