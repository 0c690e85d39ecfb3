package static

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"catalogservice/pkg/catalog/domain/model"
)

const Prefix = "/static/"

var contentTypes = map[string]string{
	".css": "text/css; charset=utf-8",
	".js":  "application/javascript",
}

const defaultContentType = "text/plain"

type Asset struct {
	Body        []byte
	ContentType string
}

// Server reads assets from a single root directory.
type Server struct {
	root string
}

func NewServer(root string) (*Server, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve static root %q", root)
	}
	return &Server{root: abs}, nil
}

func (s *Server) Root() string { return s.root }

// Resolve maps a request path to a file under the root. Paths without the
// prefix or escaping the root resolve to model.ErrNotFound.
func (s *Server) Resolve(requestPath string) (string, error) {
	if !strings.HasPrefix(requestPath, Prefix) {
		return "", model.ErrNotFound
	}
	rel := strings.TrimPrefix(requestPath, Prefix)
	if rel == "" || strings.ContainsRune(rel, 0) {
		return "", model.ErrNotFound
	}

	full := filepath.Join(s.root, filepath.FromSlash(rel))
	inside, err := filepath.Rel(s.root, full)
	if err != nil || inside == "." || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", model.ErrNotFound
	}
	return full, nil
}

// Open reads an asset through an os.Root, so symlinks pointing outside the
// root are refused as well.
func (s *Server) Open(requestPath string) (Asset, error) {
	full, err := s.Resolve(requestPath)
	if err != nil {
		return Asset{}, err
	}
	rel, err := filepath.Rel(s.root, full)
	if err != nil {
		return Asset{}, model.ErrNotFound
	}

	root, err := os.OpenRoot(s.root)
	if err != nil {
		return Asset{}, model.ErrNotFound
	}
	defer root.Close()

	file, err := root.Open(rel)
	if err != nil {
		return Asset{}, model.ErrNotFound
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		return Asset{}, model.ErrNotFound
	}
	body, err := io.ReadAll(file)
	if err != nil {
		return Asset{}, model.ErrNotFound
	}
	return Asset{Body: body, ContentType: ContentType(full)}, nil
}

func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(filepath.ToSlash(name)))]; ok {
		return ct
	}
	return defaultContentType
}
