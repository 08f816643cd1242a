package manifest

import "testing"

func TestParseVersion(t *testing.T) {
	cases := []struct {
		in   string
		want Version
	}{
		{"1.0", Version{1, 0, 0}},
		{"2.3.10", Version{2, 3, 10}},
		{"0.0.0", Version{0, 0, 0}},
		{" 1.2.3 ", Version{1, 2, 3}},
	}
	for _, c := range cases {
		got, err := ParseVersion(c.in)
		if err != nil {
			t.Fatalf("parse %q: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("parse %q: got %+v want %+v", c.in, got, c.want)
		}
	}
}

func TestParseVersionRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "1", "1.x", "x.1", "1.2.3.4", "1.-2", "1.2.beta"} {
		if _, err := ParseVersion(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestVersionCompare(t *testing.T) {
	if (Version{2, 3, 11}).Compare(Version{2, 3, 10}) != 1 {
		t.Fatal("patch ordering")
	}
	if (Version{2, 4, 0}).Compare(Version{2, 3, 99}) != 1 {
		t.Fatal("minor dominates patch")
	}
	if (Version{3, 0, 0}).Compare(Version{2, 9, 9}) != 1 {
		t.Fatal("major dominates minor")
	}
	if (Version{1, 2, 3}).Compare(Version{1, 2, 3}) != 0 {
		t.Fatal("equal")
	}
}

func TestSameTrack(t *testing.T) {
	if !(Version{2, 3, 10}).SameTrack(Version{2, 3, 15}) {
		t.Fatal("same track expected")
	}
	if (Version{2, 3, 10}).SameTrack(Version{3, 0, 2}) {
		t.Fatal("differing major is a different track")
	}
}
