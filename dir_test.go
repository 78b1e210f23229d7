package autoprobe

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

const testTriple = "x86_64-unknown-linux-gnu"

func TestDirContainsTarget(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		dir       string
		targetDir string
		want      bool
	}{
		{
			name:   "host build",
			target: testTriple,
			dir:    "/project/target/debug/build/project-ea75983148559682/out",
			want:   false,
		},
		{
			name:   "target partitioned build",
			target: testTriple,
			dir:    "/project/target/x86_64-unknown-linux-gnu/debug/build/project-0147aca016480b9d/out",
			want:   true,
		},
		{
			name:      "custom target dir, host build",
			target:    testTriple,
			dir:       "/project/custom/debug/build/project-ea75983148559682/out",
			targetDir: "custom",
			want:      false,
		},
		{
			name:      "custom target dir, target partitioned build",
			target:    testTriple,
			dir:       "/project/custom/x86_64-unknown-linux-gnu/debug/build/project-0147aca016480b9d/out",
			targetDir: "custom",
			want:      true,
		},
		{
			name:      "custom target dir with trailing slash",
			target:    testTriple,
			dir:       "/project/custom/x86_64-unknown-linux-gnu/debug/build/project-0147aca016480b9d/out",
			targetDir: "custom/",
			want:      true,
		},
		{
			name:      "absolute custom target dir",
			target:    testTriple,
			dir:       "/project/custom/x86_64-unknown-linux-gnu/debug/build/project-0147aca016480b9d/out",
			targetDir: "/project/custom",
			want:      true,
		},
		{
			name:      "custom target dir does not match default name",
			target:    testTriple,
			dir:       "/project/target/x86_64-unknown-linux-gnu/debug/build/project-0147aca016480b9d/out",
			targetDir: "custom",
			want:      false,
		},
		{
			name:   "no target triple",
			target: "",
			dir:    "/project/target/x86_64-unknown-linux-gnu/debug/build/project-0147aca016480b9d/out",
			want:   false,
		},
		{
			name:   "triple as a suffix of another segment",
			target: testTriple,
			dir:    "/project/target/my-x86_64-unknown-linux-gnu/debug/out",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dirContainsTarget(tt.target, tt.dir, tt.targetDir); got != tt.want {
				t.Errorf("dirContainsTarget(%q, %q, %q) = %v, want %v", tt.target, tt.dir, tt.targetDir, got, tt.want)
			}
		})
	}
}

func TestScratchDir(t *testing.T) {
	t.Run("host build", func(t *testing.T) {
		out := "/project/target/debug/build/pkg-1/out"
		got := scratchDir(testTriple, out, "")
		if want := filepath.Join(out, scratchDirName); got != want {
			t.Errorf("scratchDir() = %q, want %q", got, want)
		}
	})

	t.Run("target partitioned build", func(t *testing.T) {
		out := "/project/target/x86_64-unknown-linux-gnu/debug/build/pkg-1/out"
		got := scratchDir(testTriple, out, "")
		if want := filepath.Join(out, scratchDirName, testTriple); got != want {
			t.Errorf("scratchDir() = %q, want %q", got, want)
		}
	})

	t.Run("no target", func(t *testing.T) {
		out := "/tmp/out"
		got := scratchDir("", out, "")
		if want := filepath.Join(out, scratchDirName); got != want {
			t.Errorf("scratchDir() = %q, want %q", got, want)
		}
	})
}

func TestEnsureDir_Idempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/out/probe-artifacts/x86_64-unknown-linux-gnu"

	for i := 0; i < 3; i++ {
		if err := ensureDir(fs, dir); err != nil {
			t.Fatalf("ensureDir() call %d error = %v", i, err)
		}
	}

	info, err := fs.Stat(dir)
	if err != nil {
		t.Fatalf("Stat(%q) error = %v", dir, err)
	}
	if !info.IsDir() {
		t.Errorf("%q is not a directory", dir)
	}
}

func TestEnsureDir_ReadOnly(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	if err := ensureDir(fs, "/out/probe-artifacts"); err == nil {
		t.Error("ensureDir() on a read-only filesystem expected error")
	}
}
