package tail

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"testing"
)

func TestLatestPicksNewestTeamsLog(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"MSTeams_2024-02-06_23-59-59.99.log",
		"MSTeams_2024-02-07_10-15-01.23.log",
		"MSTeams_2024-02-07_09-00-00.00.log",
		"Zebra_2099-01-01_00-00-00.00.log",
		"MSTeams_2099-01-01_00-00-00.00.txt",
	} {
		writeFile(t, filepath.Join(dir, name), "")
	}
	if err := os.Mkdir(filepath.Join(dir, "MSTeams_2100-01-01_00-00-00.00.log"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := Latest(dir, DefaultPattern)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	want := filepath.Join(dir, "MSTeams_2024-02-07_10-15-01.23.log")
	if got != want {
		t.Errorf("Latest() = %q, want %q", got, want)
	}
}

func TestLatestNoMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "other.log"), "")

	_, err := Latest(dir, DefaultPattern)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Latest() error = %v, want fs.ErrNotExist", err)
	}
}

func TestLatestMissingDir(t *testing.T) {
	_, err := Latest(filepath.Join(t.TempDir(), "nope"), DefaultPattern)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Latest() error = %v, want fs.ErrNotExist", err)
	}
}

func TestLatestInSwitchesFileAsRotation(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "app-001.log")
	writeFile(t, first, "first file line\n")

	tl := New(LatestIn(dir, regexp.MustCompile(`^app-\d+\.log$`)), Position{})
	if got := mustPoll(t, tl); !reflect.DeepEqual(got, []string{"first file line"}) {
		t.Fatalf("got %q", got)
	}

	writeFile(t, filepath.Join(dir, "app-002.log"), "second\n")
	appendFile(t, first, "late write to old file\n")

	if got := mustPoll(t, tl); !reflect.DeepEqual(got, []string{"second"}) {
		t.Errorf("got %q", got)
	}
	if tl.Resets() != 1 {
		t.Errorf("Resets = %d, want 1", tl.Resets())
	}
}

func TestLocatorErrorIsUnavailable(t *testing.T) {
	tl := New(LatestIn(t.TempDir(), nil), Position{})
	if _, err := tl.Poll(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Poll() error = %v, want ErrUnavailable", err)
	}
}
