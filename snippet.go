package autoprobe

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
)

// rootNamespace is the crate every generated path is rooted at.
func rootNamespace(noStd bool) string {
	if noStd {
		return "core"
	}
	return "std"
}

// buildSnippet renders the source of a probe crate. The output is a pure
// function of its inputs; it doubles as the cache key.
func buildSnippet(features []string, noStd bool, kind ProbeKind, payload string) string {
	var b strings.Builder
	for _, f := range features {
		fmt.Fprintf(&b, "#![feature(%s)]\n", f)
	}
	if noStd {
		b.WriteString("#![no_std]\n")
	}

	switch kind {
	case KindPath:
		fmt.Fprintf(&b, "pub use %s;\n", payload)
	case KindTrait:
		fmt.Fprintf(&b, "pub trait Probe: %s + Sized {}\n", payload)
	case KindType:
		fmt.Fprintf(&b, "pub fn probe(_: %s::marker::PhantomData<%s>) {}\n", rootNamespace(noStd), payload)
	case KindExpression:
		fmt.Fprintf(&b, "pub fn probe() { let _ = %s; }\n", payload)
	case KindConstant:
		fmt.Fprintf(&b, "pub const PROBE: () = ((), %s).0;\n", payload)
	case KindSysrootCrate:
		fmt.Fprintf(&b, "extern crate %s as probe;\n", payload)
	case KindFeature:
		// Declaring a feature twice is an error of its own.
		if !slices.Contains(features, payload) {
			fmt.Fprintf(&b, "#![feature(%s)]\n", payload)
		}
	default:
		b.WriteString(payload)
		if payload != "" && !strings.HasSuffix(payload, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// artifactName derives the crate and file name of a snippet from its
// content, so identical snippets always land on the same file.
func artifactName(code string) string {
	sum := blake3.Sum256([]byte(code))
	return "probe_" + hex.EncodeToString(sum[:8])
}

// writeArtifact writes code to path unless the file already exists.
// The content is written to a temporary file and renamed into place, so a
// file at path is always complete.
func writeArtifact(fs afero.Fs, path, code string) error {
	if _, err := fs.Stat(path); err == nil {
		return nil
	}

	tmp, err := afero.TempFile(fs, filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(code); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmp.Name())
		return err
	}
	return fs.Rename(tmp.Name(), path)
}
