package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	// ErrGenerateSectionMissing indicates that [generate] is missing in kerngen.toml.
	ErrGenerateSectionMissing = errors.New("missing [generate]")
	// ErrNoConfigs indicates that [generate].configs is missing or empty.
	ErrNoConfigs = errors.New("missing [generate].configs")
	// ErrNoMatches indicates that no configs pattern matched a file.
	ErrNoMatches = errors.New("configs patterns match no files")
	// ErrOutsideRoot indicates a manifest path that escapes the project root.
	ErrOutsideRoot = errors.New("path escapes project root")
)

// DefaultSourceDir is used when [generate].source_dir is not set.
const DefaultSourceDir = "gen"

// GenerateSection mirrors [generate] in kerngen.toml.
type GenerateSection struct {
	Configs    []string `toml:"configs"`
	SourceDir  string   `toml:"source_dir"`
	SupportDir string   `toml:"support_dir"`
	Jobs       int      `toml:"jobs"`
	Cache      bool     `toml:"cache"`
}

type manifestFile struct {
	Generate GenerateSection `toml:"generate"`
}

// Manifest is a decoded kerngen.toml with paths resolved against Root.
type Manifest struct {
	Path       string
	Root       string
	Configs    []string // configs patterns as written
	SourceDir  string   // absolute
	SupportDir string   // absolute or empty
	Jobs       int
	Cache      bool
}

// Load finds kerngen.toml starting at startDir and decodes it.
func Load(startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := LoadFile(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// LoadFile decodes the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	var cfg manifestFile
	meta, err := toml.DecodeFile(abs, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("generate") {
		return nil, fmt.Errorf("%s: %w", path, ErrGenerateSectionMissing)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	gen := cfg.Generate
	var patterns []string
	for _, p := range gen.Configs {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	if !meta.IsDefined("generate", "configs") || len(patterns) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoConfigs)
	}
	if gen.Jobs < 0 {
		return nil, fmt.Errorf("%s: [generate].jobs must not be negative, got %d", path, gen.Jobs)
	}

	root := filepath.Dir(abs)
	m := &Manifest{
		Path:    abs,
		Root:    root,
		Configs: patterns,
		Jobs:    gen.Jobs,
		Cache:   gen.Cache,
	}
	sourceDir := strings.TrimSpace(gen.SourceDir)
	if sourceDir == "" {
		sourceDir = DefaultSourceDir
	}
	if m.SourceDir, err = resolveDir(root, sourceDir); err != nil {
		return nil, fmt.Errorf("%s: [generate].source_dir: %w", path, err)
	}
	if supportDir := strings.TrimSpace(gen.SupportDir); supportDir != "" {
		if m.SupportDir, err = resolveDir(root, supportDir); err != nil {
			return nil, fmt.Errorf("%s: [generate].support_dir: %w", path, err)
		}
	}
	return m, nil
}

// ConfigFiles expands the configs patterns relative to Root. The result is
// sorted and free of duplicates.
func (m *Manifest) ConfigFiles() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range m.Configs {
		full := pattern
		if !filepath.IsAbs(full) {
			full = filepath.Join(m.Root, filepath.FromSlash(pattern))
		}
		matches, err := filepath.Glob(full)
		if err != nil {
			return nil, fmt.Errorf("%s: bad pattern %q: %w", m.Path, pattern, err)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || info.IsDir() || seen[match] {
				continue
			}
			seen[match] = true
			files = append(files, match)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w: %s", m.Path, ErrNoMatches, strings.Join(m.Configs, ", "))
	}
	sort.Strings(files)
	return files, nil
}

// resolveDir makes a relative dir absolute under root and rejects escapes.
func resolveDir(root, dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir), nil
	}
	full := filepath.Join(root, filepath.FromSlash(dir))
	if !pathWithin(root, full) {
		return "", fmt.Errorf("%q: %w", dir, ErrOutsideRoot)
	}
	return full, nil
}

// Within reports whether path lies inside the project root.
func (m *Manifest) Within(path string) bool {
	return pathWithin(m.Root, path)
}

func pathWithin(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
