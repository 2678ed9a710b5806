// Package files stores uploaded files on local disk. Stored names are
// timestamp-prefixed so re-uploads of the same filename never collide.
package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

type Store struct {
	dir     string
	baseURL string
}

func NewStore(conf *core.Config) (*Store, error) {
	if err := os.MkdirAll(conf.Upload.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &Store{
		dir:     conf.Upload.Dir,
		baseURL: strings.TrimRight(conf.Upload.BaseURL, "/"),
	}, nil
}

// Dir is the absolute directory uploads are written to.
func (s *Store) Dir() string { return s.dir }

// Save writes r to disk and returns the stored filename.
func (s *Store) Save(filename string, r io.Reader) (string, error) {
	name := fmt.Sprintf("%d-%s", time.Now().UnixNano()/int64(time.Millisecond), sanitize(filename))
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", errors.Wrap(err, "creating upload file")
	}
	defer func() { _ = f.Close() }()

	if _, err = io.Copy(f, r); err != nil {
		return "", errors.Wrap(err, "writing upload file")
	}
	return name, nil
}

// URL resolves a stored filename to its public URL; empty in, empty out.
func (s *Store) URL(name string) string {
	if name == "" {
		return ""
	}
	return s.baseURL + "/uploads/" + name
}

func sanitize(filename string) string {
	name := filepath.Base(filename)
	name = unsafeChars.ReplaceAllString(name, "_")
	if name == "" || name == "." {
		name = "file"
	}
	return name
}
