package autoprobe

import (
	"errors"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    Version
		wantErr bool
	}{
		{"1.70.0", NewVersion(1, 70, 0), false},
		{"1.70.0-nightly", NewVersion(1, 70, 0), false},
		{"1.71.0-beta.3", NewVersion(1, 71, 0), false},
		{"1.72.1-dev", NewVersion(1, 72, 1), false},
		{"1.0.0+build.7", NewVersion(1, 0, 0), false},
		{" 1.2.3\n", NewVersion(1, 2, 3), false},
		{"1.70.0-beta.01", NewVersion(1, 70, 0), false},
		{"1.70.0-nightly_2023", NewVersion(1, 70, 0), false},
		{"1.2.3.4", NewVersion(1, 2, 3), false},
		{"01.2.3", NewVersion(1, 2, 3), false},
		{"1.68.0 (local build)", NewVersion(1, 68, 0), false},
		{"1.70", Version{}, true},
		{"1..0", Version{}, true},
		{"1.x.0", Version{}, true},
		{"-1.0.0", Version{}, true},
		{"", Version{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseVersion(%q) expected error, got %v", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidVersion) {
					t.Errorf("ParseVersion(%q) error = %v, want ErrInvalidVersion", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVersion(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseVersion(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestVersionCompare(t *testing.T) {
	v123 := NewVersion(1, 2, 3)

	if !NewVersion(1, 0, 0).Less(v123) {
		t.Error("1.0.0 should be less than 1.2.3")
	}
	if !NewVersion(1, 2, 2).Less(v123) {
		t.Error("1.2.2 should be less than 1.2.3")
	}
	if NewVersion(1, 2, 3).Compare(v123) != 0 {
		t.Error("1.2.3 should equal 1.2.3")
	}
	if NewVersion(1, 2, 4).Compare(v123) <= 0 {
		t.Error("1.2.4 should be greater than 1.2.3")
	}
	if NewVersion(1, 10, 0).Compare(v123) <= 0 {
		t.Error("1.10.0 should be greater than 1.2.3")
	}
	if NewVersion(2, 0, 0).Compare(v123) <= 0 {
		t.Error("2.0.0 should be greater than 1.2.3")
	}
}

func TestVersionCompare_TotalOrder(t *testing.T) {
	versions := []Version{
		NewVersion(0, 9, 9),
		NewVersion(1, 0, 0),
		NewVersion(1, 0, 1),
		NewVersion(1, 9, 0),
		NewVersion(1, 10, 0),
		NewVersion(2, 0, 0),
	}

	for i := range versions {
		for j := range versions {
			got := versions[i].Compare(versions[j])
			switch {
			case i < j && got >= 0:
				t.Errorf("%v.Compare(%v) = %d, want < 0", versions[i], versions[j], got)
			case i == j && got != 0:
				t.Errorf("%v.Compare(%v) = %d, want 0", versions[i], versions[j], got)
			case i > j && got <= 0:
				t.Errorf("%v.Compare(%v) = %d, want > 0", versions[i], versions[j], got)
			}
			if -got != versions[j].Compare(versions[i]) {
				t.Errorf("Compare is not antisymmetric for %v and %v", versions[i], versions[j])
			}
		}
	}
}

func TestVersionAtLeast(t *testing.T) {
	v := NewVersion(1, 26, 3)

	tests := []struct {
		major, minor uint64
		want         bool
	}{
		{1, 0, true},
		{1, 25, true},
		{1, 26, true},
		{1, 27, false},
		{2, 0, false},
		{0, 99, true},
	}

	for _, tt := range tests {
		if got := v.AtLeast(tt.major, tt.minor); got != tt.want {
			t.Errorf("%v.AtLeast(%d, %d) = %v, want %v", v, tt.major, tt.minor, got, tt.want)
		}
	}
}

func TestVersionString(t *testing.T) {
	if got, want := NewVersion(1, 70, 2).String(), "1.70.2"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
