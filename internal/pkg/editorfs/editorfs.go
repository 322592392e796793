// Package editorfs converts between stored project files and the file map
// shape the in-browser editor works with. Stored paths have no leading slash;
// editor paths always have exactly one.
package editorfs

import (
	"strings"

	"github.com/codecraft-io/codecraft/internal/modules/model"
)

// EditorFile is one entry in the editor-facing file set.
type EditorFile struct {
	Code     string `json:"code"`
	Language string `json:"language"`

	// ReadOnly marks files under dependency or VCS directories. They are
	// still shipped to the editor so previews resolve imports, but the
	// editor must not let the user modify them.
	ReadOnly bool `json:"read_only,omitempty"`
	Hidden   bool `json:"hidden,omitempty"`
}

var languageByExt = map[string]string{
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".css":  "css",
	".html": "html",
	".json": "json",
	".md":   "markdown",
	".py":   "python",
	".java": "java",
	".cpp":  "cpp",
	".c":    "c",
}

// InferLanguage maps a file path to an editor language id, defaulting to
// "text" for unknown extensions.
func InferLanguage(path string) string {
	dot := strings.LastIndex(path, ".")
	if dot == -1 {
		return "text"
	}
	if lang, ok := languageByExt[strings.ToLower(path[dot:])]; ok {
		return lang
	}
	return "text"
}

// NormalizePath collapses any number of leading slashes into exactly one.
func NormalizePath(path string) string {
	return "/" + strings.TrimLeft(path, "/")
}

// StorePath strips the editor's leading slash for persistence.
func StorePath(path string) string {
	return strings.TrimLeft(path, "/")
}

func isProtectedPath(path string) bool {
	for _, seg := range strings.Split(strings.TrimLeft(path, "/"), "/") {
		if seg == "node_modules" || seg == ".git" {
			return true
		}
	}
	return false
}

// ToEditorFileSet produces the editor file map from stored files. Later
// entries win when stored paths collide after normalization.
func ToEditorFileSet(files []model.ProjectFile) map[string]EditorFile {
	out := make(map[string]EditorFile, len(files))
	for _, f := range files {
		p := NormalizePath(f.Path)
		lang := f.Language
		if lang == "" {
			lang = InferLanguage(p)
		}
		protected := isProtectedPath(p)
		out[p] = EditorFile{
			Code:     f.Content,
			Language: lang,
			ReadOnly: protected,
			Hidden:   protected,
		}
	}
	return out
}

// FromEditorFileSet converts an editor file map back into storable files,
// inferring the language of every entry from its extension.
func FromEditorFileSet(files map[string]string) []model.ProjectFile {
	out := make([]model.ProjectFile, 0, len(files))
	for path, code := range files {
		stored := StorePath(path)
		out = append(out, model.ProjectFile{
			Path:     stored,
			Content:  code,
			Language: InferLanguage(stored),
		})
	}
	return out
}
