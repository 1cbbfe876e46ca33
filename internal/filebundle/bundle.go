package filebundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ErrUnsafePath is returned by Write for names that would land outside the
// target directory.
var ErrUnsafePath = errors.New("filebundle: unsafe file path")

const fence = "```"

var blockPattern = regexp.MustCompile(`(?s)### filename: (.*?) ###\s*(.*?)\s*### end ###`)

// File is one named entry of a bundle.
type File struct {
	Name    string
	Content string
}

// Parse extracts every block from text in order of appearance. A later block
// with the same name replaces the earlier one at the earlier position.
func Parse(text string) []File {
	var files []File
	index := make(map[string]int)
	for _, match := range blockPattern.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(match[1])
		content := strings.TrimSpace(unfence(match[2]))
		if pos, ok := index[name]; ok {
			files[pos].Content = content
			continue
		}
		index[name] = len(files)
		files = append(files, File{Name: name, Content: content})
	}
	return files
}

// unfence drops the first and last lines when both are a bare fence.
func unfence(content string) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if len(lines) >= 2 && strings.TrimSpace(lines[0]) == fence && strings.TrimSpace(lines[len(lines)-1]) == fence {
		lines = lines[1 : len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// Format renders files in the bundle format.
func Format(files []File) string {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "### filename: %s ###\n%s\n### end ###\n", f.Name, f.Content)
	}
	return b.String()
}

// Assemble formats every regular file directly inside dir, sorted by name.
// A missing directory yields an empty bundle.
func Assemble(dir string) (string, error) {
	files, err := Read(dir)
	if err != nil {
		return "", err
	}
	return Format(files), nil
}

// Read loads every regular file directly inside dir, sorted by name, with
// content trimmed.
func Read(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read bundle dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		files = append(files, File{Name: entry.Name(), Content: strings.TrimSpace(string(data))})
	}
	return files, nil
}

// Write stores files under dir, creating intermediate directories. Every name
// is checked before anything is written.
func Write(files []File, dir string) ([]string, error) {
	targets := make([]string, len(files))
	for i, f := range files {
		target, err := resolve(dir, f.Name)
		if err != nil {
			return nil, err
		}
		targets[i] = target
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	written := make([]string, 0, len(files))
	for i, f := range files {
		if err := os.MkdirAll(filepath.Dir(targets[i]), 0o755); err != nil {
			return written, fmt.Errorf("create dir for %s: %w", f.Name, err)
		}
		if err := os.WriteFile(targets[i], []byte(f.Content), 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", f.Name, err)
		}
		written = append(written, targets[i])
	}
	return written, nil
}

func resolve(dir, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return filepath.Join(dir, clean), nil
}

var fencedExtensions = map[string]bool{".html": true, ".js": true, ".css": true}

// StripFenceLines walks dir and removes every line containing a Markdown
// fence from .html, .js, and .css files. It returns the paths it rewrote.
func StripFenceLines(dir string) ([]string, error) {
	var changed []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !fencedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		lines := strings.SplitAfter(string(data), "\n")
		kept := lines[:0]
		for _, line := range lines {
			if !strings.Contains(line, fence) {
				kept = append(kept, line)
			}
		}
		if len(kept) == len(lines) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(strings.Join(kept, "")), info.Mode().Perm()); err != nil {
			return err
		}
		changed = append(changed, path)
		return nil
	})
	if err != nil {
		return changed, fmt.Errorf("strip fences: %w", err)
	}
	return changed, nil
}
