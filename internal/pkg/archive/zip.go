// Package archive builds downloadable zip exports of a project workspace.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
)

var ErrExport = errors.New("failed to assemble project archive")

const (
	manifestPath = "package.json"
	readmePath   = "README.md"
)

type manifest struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Private bool              `json:"private"`
	Scripts map[string]string `json:"scripts"`
}

// Filename derives the suggested download name from the project title:
// lowercased, spaces replaced with dashes.
func Filename(title string) string {
	name := strings.ToLower(strings.TrimSpace(title))
	name = strings.Join(strings.Fields(name), "-")
	if name == "" {
		name = "project"
	}
	return name + ".zip"
}

// Export renders the file map into a zip archive. A package.json manifest is
// synthesized when the project does not carry one, as is a README listing
// every file. The archive is built fully in memory so a failed
// export never produces a partial download.
func Export(files map[string]string, title string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	cleaned := make(map[string]string, len(files))
	hasManifest := false
	for path, content := range files {
		clean := strings.TrimLeft(path, "/")
		if clean == "" {
			continue
		}
		if clean == manifestPath {
			hasManifest = true
		}
		cleaned[clean] = content
	}

	names := make([]string, 0, len(cleaned))
	for name := range cleaned {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := writeEntry(w, name, []byte(cleaned[name])); err != nil {
			return nil, err
		}
	}

	if !hasManifest {
		m := manifest{
			Name:    strings.TrimSuffix(Filename(title), ".zip"),
			Version: "0.1.0",
			Private: true,
			Scripts: map[string]string{"start": "npx serve ."},
		}
		b, err := sonic.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("%w: marshal manifest: %v", ErrExport, err)
		}
		if err := writeEntry(w, manifestPath, b); err != nil {
			return nil, err
		}
	}

	if _, ok := cleaned[readmePath]; !ok {
		if err := writeEntry(w, readmePath, renderReadme(title, names)); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExport, err)
	}
	return buf.Bytes(), nil
}

func writeEntry(w *zip.Writer, name string, content []byte) error {
	f, err := w.Create(name)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrExport, name, err)
	}
	if _, err := f.Write(content); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrExport, name, err)
	}
	return nil
}

func renderReadme(title string, names []string) []byte {
	var b strings.Builder
	if title == "" {
		title = "Project"
	}
	fmt.Fprintf(&b, "# %s\n\nExported from CodeCraft.\n\n## Files\n\n", title)
	for _, name := range names {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	return []byte(b.String())
}
