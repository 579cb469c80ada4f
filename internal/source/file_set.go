package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

// FileSet holds the configuration files read during one generation run
// and resolves byte spans into line/column positions.
type FileSet struct {
	files   []File
	byPath  map[string]FileID // последняя версия файла по пути
	baseDir string
}

func NewFileSet() *FileSet {
	return &FileSet{byPath: map[string]FileID{}}
}

// SetBaseDir sets the directory relative paths are printed against.
func (fs *FileSet) SetBaseDir(dir string) { fs.baseDir = dir }

// BaseDir falls back to the working directory when no base was set.
func (fs *FileSet) BaseDir() string {
	if fs.baseDir != "" {
		return fs.baseDir
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

func (fs *FileSet) Len() int { return len(fs.files) }

// Add stores content as is under a fresh FileID, even when path was added
// before; GetLatest then resolves path to the new ID.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	n, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("too many files in set: %w", err))
	}
	id := FileID(n)
	path = normalizePath(path)
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    path,
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	})
	fs.byPath[path] = id
	return id
}

// Load reads path from disk and adds it through AddNormalized.
func (fs *FileSet) Load(path string) (FileID, error) {
	content, err := os.ReadFile(path) // #nosec G304 -- path is provided by the caller
	if err != nil {
		return 0, err
	}
	return fs.AddNormalized(path, content, 0), nil
}

// contentPasses run in order over every loaded file; the flag is set when
// the pass changed something.
var contentPasses = []struct {
	flag FileFlags
	fn   func([]byte) ([]byte, bool)
}{
	{FileHadBOM, removeBOM},
	{FileNormalizedCRLF, normalizeCRLF},
	{FileNormalizedNFC, normalizeNFC},
}

// AddNormalized strips a UTF-8 BOM, turns CRLF into LF and applies Unicode
// NFC before adding content.
func (fs *FileSet) AddNormalized(path string, content []byte, flags FileFlags) FileID {
	for _, p := range contentPasses {
		var changed bool
		if content, changed = p.fn(content); changed {
			flags |= p.flag
		}
	}
	return fs.Add(path, content, flags)
}

// AddVirtual adds in-memory content (tests, stdin) flagged FileVirtual.
func (fs *FileSet) AddVirtual(name string, content []byte) FileID {
	return fs.AddNormalized(name, content, FileVirtual)
}

func (fs *FileSet) Get(id FileID) *File {
	if int(id) >= len(fs.files) {
		return nil
	}
	return &fs.files[id]
}

func (fs *FileSet) GetLatest(path string) (FileID, bool) {
	id, ok := fs.byPath[normalizePath(path)]
	return id, ok
}

// Resolve converts a span into 1-based line/column pairs; unknown files
// resolve to 1:1.
func (fs *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fs.Get(span.File)
	if f == nil {
		return LineCol{Line: 1, Col: 1}, LineCol{Line: 1, Col: 1}
	}
	return toLineCol(f.LineIdx, span.Start), toLineCol(f.LineIdx, span.End)
}

func (f *File) size() uint32 {
	n, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("file %s too large: %w", f.Path, err))
	}
	return n
}

// Text returns the bytes covered by span, clamped to the file content.
func (f *File) Text(span Span) string {
	n := f.size()
	end := min(span.End, n)
	start := min(span.Start, end)
	return string(f.Content[start:end])
}

// GetLine returns line lineNum (1-based) without its newline; "" when the
// file has no such line.
func (f *File) GetLine(lineNum uint32) string {
	if lineNum == 0 || int(lineNum) > len(f.LineIdx)+1 {
		return ""
	}
	var start uint32
	if lineNum > 1 {
		start = f.LineIdx[lineNum-2] + 1
	}
	end := f.size()
	if int(lineNum) <= len(f.LineIdx) {
		end = f.LineIdx[lineNum-1]
	}
	if start >= end {
		return ""
	}
	return string(f.Content[start:end])
}

// FormatPath renders the path as "absolute", "relative" (to baseDir,
// default the working directory), "basename" or "auto". Auto keeps short
// or relative paths and shortens long absolute ones to the base name.
func (f *File) FormatPath(mode, baseDir string) string {
	switch mode {
	case "absolute":
		if abs, err := filepath.Abs(f.Path); err == nil {
			return filepath.ToSlash(abs)
		}
	case "relative":
		if baseDir == "" {
			baseDir, _ = os.Getwd()
		}
		abs, err := filepath.Abs(f.Path)
		if err != nil {
			break
		}
		if rel, err := filepath.Rel(baseDir, abs); err == nil {
			return filepath.ToSlash(rel)
		}
	case "basename":
		return filepath.Base(f.Path)
	case "auto":
		if len(f.Path) >= 40 && filepath.IsAbs(f.Path) {
			return filepath.Base(f.Path)
		}
	}
	return f.Path
}

func normalizeNFC(content []byte) ([]byte, bool) {
	if norm.NFC.IsNormal(content) {
		return content, false
	}
	return norm.NFC.Bytes(content), true
}
