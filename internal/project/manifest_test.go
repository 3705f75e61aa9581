package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(tb testing.TB, dir, body string) string {
	tb.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		tb.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[project]
name = "shapes"
snapshots = ["build/sig", "/abs/std.tsig"]

[vet]
jobs = 4
max-diagnostics = 50
task = "Future"
attach-sources = true
format = "json"
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Project.Name != "shapes" || m.Path != path {
		t.Fatalf("identity mangled: name=%q path=%q", m.Project.Name, m.Path)
	}
	if m.Vet.Jobs != 4 || m.Vet.MaxDiagnostics != 50 || m.Vet.Task != "Future" {
		t.Fatalf("vet section mangled: %+v", m.Vet)
	}
	if !m.Vet.AttachSources || m.Vet.Format != "json" {
		t.Fatalf("vet section mangled: %+v", m.Vet)
	}

	got := m.SnapshotPaths()
	want := []string{filepath.Join(dir, "build", "sig"), filepath.Clean("/abs/std.tsig")}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("SnapshotPaths = %v, want %v", got, want)
	}
}

func TestLoadManifestEmptyIsValid(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "")
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.SnapshotPaths()) != 0 || m.Vet.Jobs != 0 {
		t.Fatalf("empty manifest produced defaults: %+v", m)
	}
}

func TestLoadManifestRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "broken toml",
			body: "[project\nname=",
			want: "failed to parse TOML",
		},
		{
			name: "unknown key",
			body: "[vet]\nmax_diagnostics = 5\n",
			want: "unknown manifest key",
		},
		{
			name: "negative jobs",
			body: "[vet]\njobs = -1\n",
			want: "[vet].jobs",
		},
		{
			name: "negative cap",
			body: "[vet]\nmax-diagnostics = -5\n",
			want: "[vet].max-diagnostics",
		},
		{
			name: "bad format",
			body: "[vet]\nformat = \"xml\"\n",
			want: "[vet].format",
		},
		{
			name: "bad project name",
			body: "[project]\nname = \"9lives\"\n",
			want: "[project].name",
		},
		{
			name: "bad task name",
			body: "[vet]\ntask = \"Task<T>\"\n",
			want: "[vet].task",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.body)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestIsValidProjectName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"shapes", true},
		{"_internal", true},
		{"my-project", true},
		{"Task2", true},
		{"", false},
		{"-lead", false},
		{"9lives", false},
		{"тарн", false},
		{"a b", false},
	}
	for _, tt := range tests {
		if got := IsValidProjectName(tt.name); got != tt.valid {
			t.Errorf("IsValidProjectName(%q) = %v, want %v", tt.name, got, tt.valid)
		}
	}
}

func TestFindTarnToml(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	want := writeManifest(t, root, "[project]\nname = \"shapes\"\n")

	got, ok, err := FindTarnToml(nested)
	if err != nil || !ok {
		t.Fatalf("FindTarnToml: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("FindTarnToml = %q, want %q", got, want)
	}

	gotRoot, ok, err := FindProjectRoot(nested)
	if err != nil || !ok {
		t.Fatalf("FindProjectRoot: ok=%v err=%v", ok, err)
	}
	if gotRoot != root {
		t.Fatalf("FindProjectRoot = %q, want %q", gotRoot, root)
	}
}

func TestFromDirWithoutManifest(t *testing.T) {
	m, ok, err := FromDir(t.TempDir())
	if err != nil {
		t.Fatalf("FromDir: %v", err)
	}
	if ok || m != nil {
		t.Fatalf("expected no manifest, got ok=%v m=%+v", ok, m)
	}
}
