package source

type (
	// FileID uniquely identifies a source file within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about a source file.
	FileFlags uint8
)

// NoFileID is the zero FileID; spans carrying it cannot be resolved.
const NoFileID FileID = 0

func (id FileID) IsValid() bool { return id != NoFileID }

const (
	// FileVirtual indicates the file was added from memory (test, stdin, etc.).
	FileVirtual FileFlags = 1 << iota
	// FileFromSnapshot indicates the file was registered from a signature
	// snapshot table and may carry no content.
	FileFromSnapshot
	FileHadBOM
	FileNormalizedCRLF
)

// File captures metadata and, when available, content for a single source file.
// Files registered from snapshot tables start without content; AttachContent
// fills it in later so diagnostics can render excerpts.
type File struct {
	ID      FileID
	Path    string
	Content []byte // nil for snapshot-registered files until attached
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// HasContent reports whether the file's text is available for excerpts.
func (f *File) HasContent() bool { return f.Content != nil }

// LineCol represents a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}
