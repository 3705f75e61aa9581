// Package project locates and parses the tarn.toml manifest. Манифест —
// удобство, а не требование: vet работает и по явным путям, а флаги CLI
// всегда перекрывают значения из манифеста.
package project

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
)

// Manifest mirrors tarn.toml.
//
//	[project]
//	name = "shapes"
//	snapshots = ["build/sig", "vendor/std.tsig"]
//
//	[vet]
//	jobs = 4
//	max-diagnostics = 50
//	task = "Future"
//	attach-sources = true
//	format = "pretty"
type Manifest struct {
	Project ProjectSection `toml:"project"`
	Vet     VetSection     `toml:"vet"`

	// Path the manifest was loaded from; snapshot entries resolve
	// relative to its directory.
	Path string `toml:"-"`
}

// ProjectSection is the [project] table.
type ProjectSection struct {
	Name      string   `toml:"name"`
	Snapshots []string `toml:"snapshots"` // files or directories to scan for .tsig
}

// VetSection is the [vet] table: defaults for the vet command.
type VetSection struct {
	Jobs           int    `toml:"jobs"`
	MaxDiagnostics int    `toml:"max-diagnostics"`
	Task           string `toml:"task"` // intrinsic awaitable wrapper override
	AttachSources  bool   `toml:"attach-sources"`
	Format         string `toml:"format"` // pretty | json | short
}

// Load parses and validates a manifest file. Typos are rejected: ключ,
// которого нет в схеме, почти всегда опечатка в настройке vet.
func Load(path string) (*Manifest, error) {
	var m Manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown manifest key %q", path, undecoded[0].String())
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	return &m, nil
}

// FromDir finds and loads the nearest manifest at or above startDir.
// ok=false without an error means no manifest exists.
func FromDir(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindTarnToml(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := Load(path)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

func (m *Manifest) validate() error {
	if name := strings.TrimSpace(m.Project.Name); name != "" && !IsValidProjectName(name) {
		return fmt.Errorf("invalid [project].name %q", m.Project.Name)
	}
	if m.Vet.Jobs < 0 {
		return fmt.Errorf("invalid [vet].jobs %d: must not be negative", m.Vet.Jobs)
	}
	if m.Vet.MaxDiagnostics < 0 {
		return fmt.Errorf("invalid [vet].max-diagnostics %d: must not be negative", m.Vet.MaxDiagnostics)
	}
	if task := strings.TrimSpace(m.Vet.Task); task != "" && !IsValidProjectName(task) {
		return fmt.Errorf("invalid [vet].task %q", m.Vet.Task)
	}
	switch m.Vet.Format {
	case "", "pretty", "json", "short":
	default:
		return fmt.Errorf("invalid [vet].format %q: want pretty, json or short", m.Vet.Format)
	}
	return nil
}

// SnapshotPaths resolves the manifest's snapshot entries against the
// manifest directory; absolute entries pass through unchanged.
func (m *Manifest) SnapshotPaths() []string {
	base := filepath.Dir(m.Path)
	out := make([]string, 0, len(m.Project.Snapshots))
	for _, p := range m.Project.Snapshots {
		if filepath.IsAbs(p) {
			out = append(out, filepath.Clean(p))
			continue
		}
		out = append(out, filepath.Join(base, p))
	}
	return out
}

// IsValidProjectName accepts ASCII identifiers with '-' allowed after the
// first rune: имена проектов и классов из манифеста.
func IsValidProjectName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r > unicode.MaxASCII {
			return false
		}
		if i == 0 && r != '_' && !unicode.IsLetter(r) {
			return false
		}
		if i > 0 && r != '_' && r != '-' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
