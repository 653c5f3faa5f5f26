package version

import "testing"

func TestVersionNeverEmpty(t *testing.T) {
	if Version == "" {
		t.Fatal("Version must have a value for the CLI and /version endpoint")
	}
}
