package api

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pixfetch/pixfetch/internal/api/shared"
)

// FilesHandler serves the downloaded artifacts of finished jobs: per-job
// folder listings and zip archives.
type FilesHandler struct {
	downloadsDir string
	logger       *slog.Logger
}

// NewFilesHandler creates a FilesHandler rooted at downloadsDir.
func NewFilesHandler(downloadsDir string, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		downloadsDir: downloadsDir,
		logger:       logger.With("component", "files_handler"),
	}
}

// FileInfo describes one downloaded file.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// List handles GET /api/files/{folder} requests.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	dir, ok := h.resolveFolder(w, r)
	if !ok {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Folder not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to read folder", err)
		return
	}

	folder := chi.URLParam(r, "folder")
	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name: entry.Name(),
			Size: info.Size(),
			URL:  fmt.Sprintf("/downloads/%s/%s", url.PathEscape(folder), url.PathEscape(entry.Name())),
		})
	}
	shared.RespondWithJSON(w, r, http.StatusOK, files)
}

// Zip handles GET /api/zip/{folder} requests, streaming the folder's
// contents as a zip archive.
func (h *FilesHandler) Zip(w http.ResponseWriter, r *http.Request) {
	dir, ok := h.resolveFolder(w, r)
	if !ok {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Folder not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to read folder", err)
		return
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		shared.RespondWithError(w, r, http.StatusNotFound, "No images in folder")
		return
	}

	folder := chi.URLParam(r, "folder")
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", folder+".zip"))
	w.WriteHeader(http.StatusOK)

	zw := zip.NewWriter(w)
	for _, name := range names {
		if err := h.addToZip(zw, dir, name); err != nil {
			// Headers are already sent; log and stop the stream.
			h.logger.Warn("zip stream aborted",
				"folder", folder,
				"file", name,
				"error", err)
			return
		}
	}
	if err := zw.Close(); err != nil {
		h.logger.Warn("failed to finalize zip stream", "folder", folder, "error", err)
	}
}

func (h *FilesHandler) addToZip(zw *zip.Writer, dir, name string) error {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	entry, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, f)
	return err
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// isImageFile reports whether the filename carries a known image
// extension. Non-image files in a job folder are never exposed.
func isImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range imageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// resolveFolder validates the folder path parameter and resolves it
// under the downloads root. Rejects anything that could escape the root.
func (h *FilesHandler) resolveFolder(w http.ResponseWriter, r *http.Request) (string, bool) {
	folder := chi.URLParam(r, "folder")
	if folder == "" || strings.ContainsAny(folder, "/\\") || strings.Contains(folder, "..") {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid folder name")
		return "", false
	}
	return filepath.Join(h.downloadsDir, folder), true
}
