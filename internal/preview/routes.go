package preview

import (
	"bytes"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/jsdocpreview/internal/foundation/errors"
	"git.home.luguber.info/inful/jsdocpreview/internal/logfields"
	"git.home.luguber.info/inful/jsdocpreview/internal/metrics"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+StylePath, serveAsset("text/css; charset=utf-8", styleAsset))
	mux.HandleFunc("GET "+ScriptPath, serveAsset("application/javascript; charset=utf-8", scriptAsset))
	mux.Handle("GET "+SocketPath, s.hub)
	if s.registry != nil {
		mux.Handle("GET /metrics", metrics.HTTPHandler(s.registry))
	}
	mux.HandleFunc("GET /", s.serveFile)
	return mux
}

func serveAsset(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(body)
	}
}

var errNotFound = ferrors.NotFoundError("Not Found").Build()

// serveFile maps the request path onto the current root. Directories resolve
// to their index.html and HTML files get the preview assets injected.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	root := s.Root()

	file, ok := resolve(root, r.URL)
	if !ok {
		s.errs.WriteError(w, r, errNotFound)
		return
	}

	info, err := os.Stat(file)
	if err == nil && info.IsDir() {
		file = filepath.Join(file, "index.html")
		info, err = os.Stat(file)
	}
	if err != nil || info.IsDir() {
		if r.URL.Path == "/" && errors.Is(err, fs.ErrNotExist) {
			s.servePlaceholder(w, r)
			return
		}
		s.errs.WriteError(w, r, errNotFound)
		return
	}

	if strings.EqualFold(filepath.Ext(file), ".html") || strings.EqualFold(filepath.Ext(file), ".htm") {
		s.serveHTML(w, r, file)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, file)
}

// resolve returns the absolute file for u below root. Paths that would
// leave root are rejected.
func resolve(root string, u *url.URL) (string, bool) {
	if root == "" {
		return "", false
	}
	cleaned := path.Clean("/" + u.Path)
	if strings.Contains(cleaned, "\x00") {
		return "", false
	}
	full := filepath.Join(root, filepath.FromSlash(cleaned))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func (s *Server) serveHTML(w http.ResponseWriter, r *http.Request, file string) {
	data, err := os.ReadFile(file) //nolint:gosec // path is confined to the preview root
	if err != nil {
		s.errs.WriteError(w, r, errNotFound)
		return
	}
	page, err := InjectAssets(bytes.NewReader(data))
	if err != nil {
		s.logger.Warn("Serving HTML without preview assets", logfields.Path(file), logfields.Error(err))
		page = data
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(page)
}

func (s *Server) servePlaceholder(w http.ResponseWriter, r *http.Request) {
	page, err := placeholderPage()
	if err != nil {
		s.errs.WriteError(w, r, ferrors.InternalError("placeholder unavailable").WithCause(err).Build())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(page)
}
