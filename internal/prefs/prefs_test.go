package prefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p != Default() {
		t.Fatalf("Load = %#v, want defaults %#v", p, Default())
	}
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	prefsDir := filepath.Join(home, ".config", "scrapedeck")
	if err := os.MkdirAll(prefsDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	prefsFile := filepath.Join(prefsDir, "prefs.toml")
	body := "theme = \"Slate\"\nsite_filter = \"news\"\npage_size = 50\npage = 3\nmax_visible_logs = 300\n"
	if err := os.WriteFile(prefsFile, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := Prefs{Theme: "Slate", SiteFilter: "news", PageSize: 50, Page: 3, MaxVisibleLogs: 300}
	if p != want {
		t.Fatalf("Load = %#v, want %#v", p, want)
	}
}

func TestSave_CreatesFileAndDirs(t *testing.T) {
	tmp := t.TempDir()
	prefsFile := filepath.Join(tmp, "subdir", "prefs.toml")

	p := Prefs{Theme: "Kanagawa", SiteFilter: "shop", PageSize: 10, Page: 2}
	if err := Save(prefsFile, p); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := Load(prefsFile)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Theme != "Kanagawa" || loaded.SiteFilter != "shop" || loaded.PageSize != 10 || loaded.Page != 2 {
		t.Fatalf("round trip = %#v", loaded)
	}
	if loaded.MaxVisibleLogs != defaultMaxVisibleLogs {
		t.Fatalf("MaxVisibleLogs = %d, want default", loaded.MaxVisibleLogs)
	}

	entries, err := os.ReadDir(filepath.Dir(prefsFile))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Save left temp files behind: %v", entries)
	}
}

func TestNormalize_ClampsValues(t *testing.T) {
	p := Prefs{Theme: "  ", PageSize: 10_000, Page: -4, MaxVisibleLogs: -1, SiteFilter: "  x "}.Normalize()
	if p.Theme != defaultTheme || p.PageSize != maxPageSize || p.Page != 1 || p.MaxVisibleLogs != defaultMaxVisibleLogs || p.SiteFilter != "x" {
		t.Fatalf("Normalize = %#v", p)
	}
}

func TestLoad_InvalidTOMLFallsBackToDefault(t *testing.T) {
	tmp := t.TempDir()
	prefsFile := filepath.Join(tmp, "prefs.toml")
	if err := os.WriteFile(prefsFile, []byte("not valid toml {{{\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := Load(prefsFile)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p != Default() {
		t.Fatalf("Load = %#v, want defaults", p)
	}
}

func TestWatch_ReloadsOnExternalEdit(t *testing.T) {
	prefsFile := filepath.Join(t.TempDir(), "prefs.toml")
	require.NoError(t, Save(prefsFile, Prefs{Theme: "Slate"}))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	got := make(chan Prefs, 8)
	require.NoError(t, Watch(ctx, prefsFile, func(p Prefs) { got <- p }))

	require.NoError(t, Save(prefsFile, Prefs{Theme: "Kanagawa", Page: 4}))

	require.Eventually(t, func() bool {
		select {
		case p := <-got:
			return p.Theme == "Kanagawa" && p.Page == 4
		default:
			return false
		}
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	prefsFile := filepath.Join(dir, "prefs.toml")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	got := make(chan Prefs, 8)
	require.NoError(t, Watch(ctx, prefsFile, func(p Prefs) { got <- p }))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("theme = \"Slate\"\n"), 0o644))

	require.Never(t, func() bool { return len(got) > 0 }, 400*time.Millisecond, 20*time.Millisecond)
}
