// Package script loads Skald source files. Sources are stored in
// Windows-1252, the encoding the original tooling wrote, and are decoded to
// UTF-8 on load.
package script

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/skald-lang/skald/pkg/fileutil"
)

// Ext is the source file extension, matched case-insensitively.
const Ext = ".sks"

// Script is one loaded source file with its content decoded to UTF-8.
type Script struct {
	FileName string
	Path     string
	Content  string
	Size     int64
}

// Loader reads source files relative to a base directory. An empty base
// resolves paths as given.
type Loader struct {
	basePath string
}

// NewLoader creates a Loader rooted at basePath.
func NewLoader(basePath string) *Loader {
	return &Loader{basePath: basePath}
}

// LoadAll loads every source file under the base directory, walking
// subdirectories. The extension match ignores case.
func (l *Loader) LoadAll() ([]Script, error) {
	paths, err := l.findSourceFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to find source files: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", Ext, l.basePath)
	}

	scripts := make([]Script, 0, len(paths))
	for _, path := range paths {
		s, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, *s)
	}
	return scripts, nil
}

// LoadFile loads a single source file. When the exact path does not exist,
// the file name is retried case-insensitively within its directory.
func (l *Loader) LoadFile(path string) (*Script, error) {
	full := l.resolve(path)
	if _, err := os.Stat(full); err != nil {
		found, ferr := fileutil.FindFileCaseInsensitive(filepath.Dir(full), filepath.Base(full))
		if ferr != nil {
			return nil, fmt.Errorf("cannot open %s: %w", path, err)
		}
		full = found
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("cannot stat %s: %w", full, err)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", full, err)
	}

	content, err := decodeWindows1252(data)
	if err != nil {
		return nil, fmt.Errorf("cannot decode %s: %w", full, err)
	}

	return &Script{
		FileName: filepath.Base(full),
		Path:     full,
		Content:  content,
		Size:     info.Size(),
	}, nil
}

// Find locates fileName in dir, ignoring case, and returns the real path.
func (l *Loader) Find(dir, fileName string) (string, error) {
	return fileutil.FindFileCaseInsensitive(l.resolve(dir), fileName)
}

func (l *Loader) resolve(path string) string {
	if l.basePath == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.basePath, path)
}

func (l *Loader) findSourceFiles() ([]string, error) {
	root := l.basePath
	if root == "" {
		root = "."
	}

	var paths []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), Ext) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// decodeWindows1252 converts raw file bytes to UTF-8.
func decodeWindows1252(data []byte) (string, error) {
	decoder := charmap.Windows1252.NewDecoder()
	reader := transform.NewReader(strings.NewReader(string(data)), decoder)
	utf8Data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(utf8Data), nil
}
