package snapshot

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// Summary is what `tarn snapshot` prints: raw counts straight from the
// payload, no module rebuild. Schema is reported as-is so the command can
// describe snapshots this build cannot otherwise read.
type Summary struct {
	Path       string   `json:"path"`
	Schema     uint16   `json:"schema"`
	Module     string   `json:"module"`
	Classes    int      `json:"classes"`
	Typedefs   int      `json:"typedefs"`
	TypeParams int      `json:"type_params"` // class- and typedef-level only
	TypeNodes  int      `json:"type_nodes"`
	Strings    int      `json:"strings"`
	Files      []string `json:"files,omitempty"`
}

// Inspect decodes just enough of a snapshot file to summarize it.
func Inspect(path string) (*Summary, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from argv
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var p payload
	if err := msgpack.NewDecoder(f).Decode(&p); err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", path, err)
	}

	s := &Summary{
		Path:      path,
		Schema:    p.Schema,
		Module:    p.Module,
		Classes:   len(p.Classes),
		Typedefs:  len(p.Typedefs),
		TypeNodes: len(p.Types),
		Strings:   len(p.Strings),
	}
	for _, c := range p.Classes {
		s.TypeParams += len(c.TypeParams)
	}
	for _, td := range p.Typedefs {
		s.TypeParams += len(td.TypeParams)
	}
	for _, file := range p.Files {
		s.Files = append(s.Files, file.Path)
	}
	return s, nil
}
