package web

import (
	"bytes"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/digi-assistant/digi/backend/pkg/utils"
)

const (
	indexFile     = "index.html"
	livenessText  = "Digi Assistant API is running!"
	apiNotFound   = "API endpoint not found"
	notFoundText  = "not found"
	apiPathPrefix = "/api/"
)

// Liveness is the body of GET / when no UI build is deployed.
type Liveness struct {
	Message string `json:"message"`
}

// Handler serves the liveness check, the browser UI and the catch-all.
type Handler struct {
	files    fs.FS
	fromDisk bool
	logger   *zap.Logger
}

// New serves files from staticDir when it exists and from embedded otherwise.
func New(staticDir string, embedded fs.FS, logger *zap.Logger) *Handler {
	h := &Handler{files: embedded, logger: logger.Named("web")}

	if staticDir != "" {
		if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
			h.files = os.DirFS(staticDir)
			h.fromDisk = true
		}
	}

	h.logger.Info("serving ui",
		zap.String("static_dir", staticDir),
		zap.Bool("from_disk", h.fromDisk),
	)
	return h
}

// RegisterRoutes installs the root route and the catch-all. Call it on the
// top-level router so mounted sub-routers inherit the not-found handler.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleRoot)
	r.NotFound(h.handleNotFound)
}

// handleRoot serves a deployed UI build, or the liveness message.
func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if h.fromDisk && h.serveFile(w, r, indexFile) {
		return
	}
	utils.RespondJSON(w, http.StatusOK, Liveness{Message: livenessText})
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, apiPathPrefix) || r.URL.Path == "/api" {
		utils.RespondError(w, http.StatusNotFound, apiNotFound)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		utils.RespondError(w, http.StatusNotFound, notFoundText)
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name != "" && h.serveFile(w, r, name) {
		return
	}
	if h.serveFile(w, r, indexFile) {
		return
	}
	utils.RespondError(w, http.StatusNotFound, notFoundText)
}

// serveFile writes a regular file from the UI tree. It reports false when
// the file does not exist or is a directory.
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, name string) bool {
	if !fs.ValidPath(name) {
		return false
	}

	f, err := h.files.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	content, ok := f.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(f)
		if err != nil {
			h.logger.Warn("failed to read ui file", zap.String("name", name), zap.Error(err))
			return false
		}
		content = bytes.NewReader(data)
	}

	http.ServeContent(w, r, name, info.ModTime(), content)
	return true
}
