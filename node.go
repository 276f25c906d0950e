package main

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Node is a file in the build graph. Builder is empty for files that exist on
// disk without being produced by a registered step (sources, prebuilt objects).
type Node struct {
	Path    string
	Builder string
	Sources []*Node
}

func NewNode(path string) *Node {
	return &Node{Path: filepath.Clean(path)}
}

func (n *Node) String() string {
	return n.Path
}

func (n *Node) HasBuilder() bool {
	return n.Builder != ""
}

// Source returns the first source the node was built from, or nil.
func (n *Node) Source() *Node {
	if len(n.Sources) == 0 {
		return nil
	}
	return n.Sources[0]
}

func (n *Node) Dir() string {
	return filepath.Dir(n.Path)
}

func (n *Node) Base() string {
	return filepath.Base(n.Path)
}

func (n *Node) Ext() string {
	_, ext := splitExt(n.Base())
	return ext
}

// Stem is the base name without its extension.
func (n *Node) Stem() string {
	stem, _ := splitExt(n.Base())
	return stem
}

// splitExt treats a leading dot as part of the name, so ".hidden" has no
// extension.
func splitExt(name string) (string, string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return name, ""
	}
	return name[:i], name[i:]
}

// ContentProvider reads file text for scanners and the automoc planner.
type ContentProvider interface {
	Exists(path string) bool
	Contents(path string) (string, error)
}

type cachedContent struct {
	modTime time.Time
	size    int64
	text    string
}

// FileContents reads from disk and keeps recently read files in an LRU
// cache. An entry is reused only while the file's mtime and size match.
type FileContents struct {
	cache *lru.Cache[string, cachedContent]
}

const defaultContentCacheSize = 512

func NewFileContents(size int) (*FileContents, error) {
	if size <= 0 {
		size = defaultContentCacheSize
	}
	cache, err := lru.New[string, cachedContent](size)
	if err != nil {
		return nil, err
	}
	return &FileContents{cache: cache}, nil
}

func (f *FileContents) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (f *FileContents) Contents(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", wrapError(err, ErrCodeContentUnavailable, "cannot read %s", path)
	}
	if c, ok := f.cache.Get(path); ok && c.modTime.Equal(info.ModTime()) && c.size == info.Size() {
		return c.text, nil
	}
	// #nosec G304 - reading build inputs named by the project configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return "", wrapError(err, ErrCodeContentUnavailable, "cannot read %s", path)
	}
	f.cache.Add(path, cachedContent{modTime: info.ModTime(), size: info.Size(), text: string(data)})
	return string(data), nil
}

// Invalidate drops cached text, e.g. after a step rewrote the file.
func (f *FileContents) Invalidate(paths ...string) {
	for _, p := range paths {
		f.cache.Remove(p)
	}
}
