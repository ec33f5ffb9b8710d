package buildinfo

import "testing"

func stamp(t *testing.T, version, commit string) {
	t.Helper()
	prevVersion, prevCommit := Version, Commit
	Version, Commit = version, commit
	t.Cleanup(func() { Version, Commit = prevVersion, prevCommit })
}

func TestUserAgent(t *testing.T) {
	tests := []struct {
		version, commit, want string
	}{
		{"dev", "none", "esmstat/dev"},
		{"v1.2.0", "", "esmstat/v1.2.0"},
		{"v1.2.0", "3f9c2ab1d4e5f60718293a4b5c6d7e8f90a1b2c3", "esmstat/v1.2.0 (3f9c2ab)"},
		{"v1.2.0", "abc", "esmstat/v1.2.0 (abc)"},
	}
	for _, tt := range tests {
		stamp(t, tt.version, tt.commit)
		if got := UserAgent(); got != tt.want {
			t.Errorf("UserAgent() with %q/%q = %q, want %q", tt.version, tt.commit, got, tt.want)
		}
	}
}

func TestCurrent(t *testing.T) {
	stamp(t, "v0.3.1", "deadbeef")
	got := Current()
	if got.Version != "v0.3.1" || got.Commit != "deadbeef" || got.Date != Date {
		t.Errorf("Current() = %+v", got)
	}
}
