package rest

import (
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"yesod/internal/clients"
)

// FilePaths resolves stored keys to files on disk.
type FilePaths interface {
	Path(key string) string
}

// LocalFiles serves files saved by a local StorageClient under their
// original name.
func LocalFiles(store FilePaths) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file := chi.URLParam(r, "file")
		path := store.Path(file)

		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "failed to access file", http.StatusInternalServerError)
			return
		}
		if info.IsDir() {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", clients.OriginalName(file)))
		http.ServeFile(w, r, path)
	}
}
