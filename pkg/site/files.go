package site

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"arkadia-host/janus/pkg/store"
)

// maxUploadBytes caps a single ~ plane upload.
const maxUploadBytes = 32 << 20

// handleFile serves the ~ plane: GET downloads and POST uploads files
// under a recipe-declared root. Reports whether the request was
// handled; an unknown recipe falls through.
//
// All path construction is sandboxed: ".." segments are stripped
// before resolution and resolution is always relative to the recipe's
// root, never to a caller-supplied absolute path.
func (s *Site) handleFile(w http.ResponseWriter, r *http.Request, name string, params []string, authCtx store.AuthContext) bool {
	recipe, ok := s.store.Recipe(name)
	if !ok {
		return false
	}
	if !authCtx.Permits(recipe.Auth) {
		writeError(w, http.StatusUnauthorized, "")
		return true
	}
	if recipe.Root == "" || len(params) == 0 {
		writeError(w, http.StatusNotFound, "")
		return true
	}

	path := resolvePath(recipe.Root, params)

	switch r.Method {
	case http.MethodGet:
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			writeError(w, http.StatusNotFound, "")
			return true
		}
		http.ServeFile(w, r, path)

	case http.MethodPost:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			writeError(w, http.StatusInternalServerError, "")
			return true
		}
		f, err := os.Create(path)
		if err != nil {
			s.logger.Error("file upload failed", "recipe", name, "error", err)
			writeError(w, http.StatusInternalServerError, "")
			return true
		}
		defer f.Close()

		n, err := io.Copy(f, io.LimitReader(r.Body, maxUploadBytes))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "")
			return true
		}
		writeJSON(w, map[string]any{"stored": filepath.ToSlash(filepath.Join(params...)), "bytes": n})
	}
	return true
}

// resolvePath joins sanitized path segments under a root directory.
// Traversal segments are dropped, not normalized, so no combination of
// inputs can escape the root.
func resolvePath(root string, segments []string) string {
	cleaned := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		cleaned = append(cleaned, filepath.Base(filepath.Clean(seg)))
	}
	return filepath.Join(append([]string{root}, cleaned...)...)
}
