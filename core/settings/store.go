package settings

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// ParseError reports a settings file that exists but does not parse as a JSON
// object. Loads still succeed with defaults; the broken file is left in place
// for the operator to inspect.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("settings file %s is malformed: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err (or its cause) is a *ParseError.
func IsParseError(err error) bool {
	_, ok := errors.Cause(err).(*ParseError)
	return ok
}

type Store interface {
	// Load returns the current document. A missing file yields Defaults()
	// and a nil error; a malformed file yields Defaults() and a *ParseError
	// the caller should surface as a warning. Load never fails hard.
	Load() (Document, error)
	Save(doc Document) error
	// Invalidate drops the in-memory cache; the next Load re-reads the file.
	Invalidate()
}

// FileStore persists the document as one JSON file. It caches the parsed
// document and serializes writers, so concurrent saves cannot interleave
// partial writes (the original implementation left this to luck).
type FileStore struct {
	path string

	mu     sync.Mutex
	cached *Document
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return *s.cached, nil
	}

	raw, err := ioutil.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			doc := Defaults()
			return doc, nil
		}
		// unreadable file is treated like a malformed one: defaults + warning
		return Defaults(), &ParseError{Path: s.path, Err: err}
	}

	doc := Defaults()
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Defaults(), &ParseError{Path: s.path, Err: err}
	}
	doc.Normalize()

	s.cached = &doc
	return doc, nil
}

func (s *FileStore) Save(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.Normalize()
	// keep the legacy mirror in sync for older readers
	email := doc.Email
	doc.LegacyEmail = &email

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling settings")
	}

	// write-then-rename so readers never observe a partial file
	tmp, err := ioutil.TempFile(filepath.Dir(s.path), ".site_settings-*")
	if err != nil {
		return errors.Wrap(err, "creating temp settings file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing settings")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing settings file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, "replacing settings file")
	}

	doc.LegacyEmail = nil
	s.cached = &doc
	return nil
}

func (s *FileStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
}
