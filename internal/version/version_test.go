package version

import "testing"

func TestStringWithoutCommit(t *testing.T) {
	if got := String(); got != Version {
		t.Errorf("String() = %q, want %q", got, Version)
	}
}

func TestStringWithBuildInfo(t *testing.T) {
	oldVersion, oldCommit, oldTime := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldVersion, oldCommit, oldTime })

	Version, GitCommit, BuildTime = "v1.2.3", "abc123", "2026-01-02"
	if got, want := String(), "v1.2.3 (abc123, built 2026-01-02)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
