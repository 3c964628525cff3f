// Package fileutil provides unified file system access for both real and embedded file systems.
package fileutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSystem abstracts over the real file system and embedded file systems.
type FileSystem interface {
	// Open opens a file, matching the name case-insensitively.
	Open(name string) (fs.File, error)
	// ReadFile reads a file's contents, matching the name case-insensitively.
	ReadFile(name string) ([]byte, error)
	// ReadDir reads a directory's entries.
	ReadDir(name string) ([]fs.DirEntry, error)
	// FindFile searches for a file case-insensitively and returns its actual path.
	FindFile(dir, filename string) (string, error)
	// BasePath returns the base path.
	BasePath() string
	// IsEmbedded reports whether this is an embedded file system.
	IsEmbedded() bool
}

// RealFS provides access to the real file system.
type RealFS struct {
	basePath string
}

// NewRealFS creates a FileSystem backed by the real file system.
func NewRealFS(basePath string) *RealFS {
	return &RealFS{basePath: basePath}
}

func (r *RealFS) Open(name string) (fs.File, error) {
	path := r.resolvePath(name)
	actualPath, err := r.findFileCaseInsensitive(path)
	if err != nil {
		return nil, err
	}
	return os.Open(actualPath)
}

func (r *RealFS) ReadFile(name string) ([]byte, error) {
	path := r.resolvePath(name)
	actualPath, err := r.findFileCaseInsensitive(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(actualPath)
}

func (r *RealFS) ReadDir(name string) ([]fs.DirEntry, error) {
	path := r.resolvePath(name)
	return os.ReadDir(path)
}

func (r *RealFS) FindFile(dir, filename string) (string, error) {
	searchDir := dir
	if r.basePath != "" && !filepath.IsAbs(dir) {
		searchDir = filepath.Join(r.basePath, dir)
	}
	return FindFileCaseInsensitive(searchDir, filename)
}

func (r *RealFS) BasePath() string {
	return r.basePath
}

func (r *RealFS) IsEmbedded() bool {
	return false
}

func (r *RealFS) resolvePath(name string) string {
	// strip a leading "/" or "\"
	cleanName := strings.TrimPrefix(strings.TrimPrefix(name, "/"), "\\")
	if r.basePath != "" {
		return filepath.Join(r.basePath, cleanName)
	}
	return cleanName
}

func (r *RealFS) findFileCaseInsensitive(path string) (string, error) {
	// try direct access first
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)
	return FindFileCaseInsensitive(dir, filename)
}

// EmbedFS provides access to an embedded file system.
type EmbedFS struct {
	fsys     fs.FS
	basePath string
}

// NewEmbedFS creates a FileSystem backed by an embedded file system.
func NewEmbedFS(fsys fs.FS, basePath string) *EmbedFS {
	return &EmbedFS{fsys: fsys, basePath: basePath}
}

func (e *EmbedFS) Open(name string) (fs.File, error) {
	path := e.resolvePath(name)
	actualPath, err := e.findFileCaseInsensitive(path)
	if err != nil {
		return nil, err
	}
	return e.fsys.Open(actualPath)
}

func (e *EmbedFS) ReadFile(name string) ([]byte, error) {
	path := e.resolvePath(name)
	actualPath, err := e.findFileCaseInsensitive(path)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(e.fsys, actualPath)
}

func (e *EmbedFS) ReadDir(name string) ([]fs.DirEntry, error) {
	path := e.resolvePath(name)
	return fs.ReadDir(e.fsys, path)
}

func (e *EmbedFS) FindFile(dir, filename string) (string, error) {
	searchDir := dir
	if e.basePath != "" {
		searchDir = e.basePath + "/" + dir
	}
	return FindFileCaseInsensitiveFS(e.fsys, searchDir, filename)
}

func (e *EmbedFS) BasePath() string {
	return e.basePath
}

func (e *EmbedFS) IsEmbedded() bool {
	return true
}

func (e *EmbedFS) resolvePath(name string) string {
	// strip a leading "/" or "\"
	cleanName := strings.TrimPrefix(strings.TrimPrefix(name, "/"), "\\")
	// "." means the base path itself
	if cleanName == "." || cleanName == "" {
		if e.basePath != "" {
			return e.basePath
		}
		return "."
	}
	if e.basePath != "" {
		return e.basePath + "/" + cleanName
	}
	return cleanName
}

func (e *EmbedFS) findFileCaseInsensitive(path string) (string, error) {
	// try direct access first
	if f, err := e.fsys.Open(path); err == nil {
		f.Close()
		return path, nil
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)
	// embed.FS always uses "/"
	dir = strings.ReplaceAll(dir, "\\", "/")
	return FindFileCaseInsensitiveFS(e.fsys, dir, filename)
}

// GetUnderlyingFS returns the wrapped fs.FS.
func (e *EmbedFS) GetUnderlyingFS() fs.FS {
	return e.fsys
}

// ReadFileWithReader opens a file and returns it as a reader.
// The caller must close it.
func ReadFileWithReader(fsys FileSystem, name string) (io.ReadCloser, error) {
	return fsys.Open(name)
}

// WalkDir walks a directory tree recursively.
// Paths passed to fn are relative to the base path.
func WalkDir(fsys FileSystem, root string, fn fs.WalkDirFunc) error {
	if embedFS, ok := fsys.(*EmbedFS); ok {
		path := root
		if embedFS.basePath != "" {
			if root == "." || root == "" {
				path = embedFS.basePath
			} else if !strings.HasPrefix(root, embedFS.basePath) {
				path = embedFS.basePath + "/" + root
			}
		}
		basePath := embedFS.basePath
		return fs.WalkDir(embedFS.fsys, path, func(walkPath string, d fs.DirEntry, err error) error {
			relPath := walkPath
			if basePath != "" && strings.HasPrefix(walkPath, basePath+"/") {
				relPath = strings.TrimPrefix(walkPath, basePath+"/")
			} else if basePath != "" && walkPath == basePath {
				relPath = "."
			}
			return fn(relPath, d, err)
		})
	}

	if realFS, ok := fsys.(*RealFS); ok {
		path := root
		if realFS.basePath != "" && !filepath.IsAbs(root) {
			path = filepath.Join(realFS.basePath, root)
		}
		basePath := realFS.basePath
		return filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, err error) error {
			relPath := walkPath
			if basePath != "" {
				rel, relErr := filepath.Rel(basePath, walkPath)
				if relErr == nil {
					relPath = rel
				}
			}
			return fn(relPath, d, err)
		})
	}

	return fmt.Errorf("unsupported file system type")
}
