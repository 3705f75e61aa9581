package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"fortio.org/safecast"
)

// FileSet manages the files referenced by signature snapshots and resolves
// spans into line/column positions when content is available.
type FileSet struct {
	files   []File
	index   map[string]FileID // path -> id
	baseDir string            // базовая директория для относительных путей
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 0),
		index: make(map[string]FileID),
	}
}

// SetBaseDir устанавливает базовую директорию для относительных путей.
func (fileSet *FileSet) SetBaseDir(dir string) {
	fileSet.baseDir = dir
}

// BaseDir возвращает текущую базовую директорию.
func (fileSet *FileSet) BaseDir() string {
	if fileSet.baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}
	return fileSet.baseDir
}

// Add stores a file from normalized bytes, computes LineIdx and Hash, and
// returns a new FileID. It always creates a new FileID even if a file with
// the same path already exists.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	hash := sha256.Sum256(content)
	id := fileSet.push(File{
		Path:    normalizePath(path),
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    hash,
		Flags:   flags,
	})
	return id
}

// Register stores a file table entry from a snapshot: a path and the hash of
// the source the snapshot was produced from, without the content itself.
func (fileSet *FileSet) Register(path string, hash [32]byte) FileID {
	return fileSet.push(File{
		Path:  normalizePath(path),
		Hash:  hash,
		Flags: FileFromSnapshot,
	})
}

func (fileSet *FileSet) push(f File) FileID {
	next, err := safecast.Conv[uint32](len(fileSet.files) + 1)
	if err != nil {
		panic(fmt.Errorf("file set overflow: %w", err))
	}
	f.ID = FileID(next) // 1-based, NoFileID остаётся свободным
	fileSet.files = append(fileSet.files, f)
	fileSet.index[f.Path] = f.ID
	return f.ID
}

// Load reads a file from disk, normalizes CRLF/BOM, and calls Add.
func (fileSet *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return NoFileID, err
	}

	content, hadBOM := removeBOM(content)
	content, hadCRLF := normalizeCRLF(content)

	flags := FileFlags(0)
	if hadBOM {
		flags |= FileHadBOM
	}
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}
	return fileSet.Add(path, content, flags), nil
}

// AddVirtual adds a virtual file (stdin, test, or generated) with the
// FileVirtual flag.
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	return fileSet.Add(name, content, FileVirtual)
}

// AttachContent fills in the content of a snapshot-registered file so
// diagnostics can render excerpts. Returns false if the content does not
// match the hash recorded in the snapshot (the source drifted since the
// snapshot was produced).
func (fileSet *FileSet) AttachContent(id FileID, content []byte) bool {
	f := fileSet.Get(id)
	if f == nil {
		return false
	}
	content, _ = removeBOM(content)
	content, _ = normalizeCRLF(content)
	if sha256.Sum256(content) != f.Hash {
		return false
	}
	f.Content = content
	f.LineIdx = buildLineIndex(content)
	return true
}

// Get returns the file metadata for the given ID, or nil for NoFileID and
// out-of-range IDs.
func (fileSet *FileSet) Get(id FileID) *File {
	if id == NoFileID || int(id) > len(fileSet.files) {
		return nil
	}
	return &fileSet.files[id-1]
}

// GetByPath возвращает *File по пути, если он известен этому FileSet.
func (fileSet *FileSet) GetByPath(path string) (*File, bool) {
	if id, ok := fileSet.index[normalizePath(path)]; ok {
		return fileSet.Get(id), true
	}
	return nil, false
}

// Len returns the number of files in the set.
func (fileSet *FileSet) Len() int {
	return len(fileSet.files)
}

// Files returns the files in registration order. READONLY.
func (fileSet *FileSet) Files() []File {
	return fileSet.files
}

// Resolve converts a span into line and column positions. It requires the
// file's content to be attached; otherwise ok is false.
func (fileSet *FileSet) Resolve(span Span) (start, end LineCol, ok bool) {
	f := fileSet.Get(span.File)
	if f == nil || !f.HasContent() {
		return LineCol{}, LineCol{}, false
	}
	return toLineCol(f.LineIdx, span.Start), toLineCol(f.LineIdx, span.End), true
}

// GetLine возвращает строку с заданным номером (1-based) из файла.
// Если строка не существует, возвращает пустую строку.
func (f *File) GetLine(lineNum uint32) string {
	if lineNum == 0 || !f.HasContent() {
		return ""
	}

	var start, end, lenLineIdx, lenContent uint32
	var err error
	lenLineIdx, err = safecast.Conv[uint32](len(f.LineIdx))
	if err != nil {
		panic(fmt.Errorf("line index length overflow: %w", err))
	}
	lenContent, err = safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("content length overflow: %w", err))
	}

	switch {
	case lineNum == 1:
		start = 0
	case (lineNum - 2) < lenLineIdx:
		start = f.LineIdx[lineNum-2] + 1
	default:
		return ""
	}

	if (lineNum - 1) < lenLineIdx {
		end = f.LineIdx[lineNum-1]
	} else {
		end = lenContent
	}

	if start >= lenContent {
		return ""
	}
	if end > lenContent {
		end = lenContent
	}

	return string(f.Content[start:end])
}

// FormatPath форматирует путь к файлу в зависимости от режима.
// mode: "absolute", "relative", "basename", "auto"
func (f *File) FormatPath(mode, baseDir string) string {
	switch mode {
	case "absolute":
		if abs, err := filepath.Abs(f.Path); err == nil {
			return filepath.ToSlash(abs)
		}
		return f.Path

	case "relative":
		if baseDir == "" {
			if wd, err := os.Getwd(); err == nil {
				baseDir = wd
			}
		}
		if rel, err := filepath.Rel(baseDir, f.Path); err == nil {
			return filepath.ToSlash(rel)
		}
		return f.Path

	case "basename":
		return filepath.Base(f.Path)

	case "auto":
		// короткие и относительные пути показываем как есть
		if len(f.Path) < 40 || !filepath.IsAbs(f.Path) {
			return f.Path
		}
		return filepath.Base(f.Path)

	default:
		return f.Path
	}
}
