package cachestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"

	_ "embed"

	"github.com/retracehq/retrace/internal/trajectory"
)

//go:embed schema.cue
var schemaCUE string

// ErrNotFound indicates the cache file does not exist. Strategy "both"
// treats this as a miss and falls back to recording; "execute" surfaces it.
var ErrNotFound = errors.New("cache document not found")

// InvalidDocumentError indicates the cache file exists but violates the
// schema or a data-model invariant. Invalid documents are never partially
// trusted: Load returns no document alongside this error.
type InvalidDocumentError struct {
	Path   string
	Reason string
}

func (e *InvalidDocumentError) Error() string {
	return fmt.Sprintf("invalid cache document %s: %s", e.Path, e.Reason)
}

// IsNotFound reports whether err indicates a missing cache file.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalid reports whether err indicates a cache file that failed
// validation. Uses errors.As to handle wrapped errors.
func IsInvalid(err error) bool {
	var ie *InvalidDocumentError
	return errors.As(err, &ie)
}

var (
	schemaOnce  sync.Once
	schemaValue cue.Value
	schemaErr   error
)

// documentSchema compiles the embedded CUE schema once.
func documentSchema() (cue.Value, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile document schema: %w", err)
			return
		}
		schemaValue = v.LookupPath(cue.ParsePath("#Document"))
		if err := schemaValue.Err(); err != nil {
			schemaErr = fmt.Errorf("resolve #Document: %w", err)
		}
	})
	return schemaValue, schemaErr
}

// Load reads, schema-checks, and invariant-checks a cache document.
// Returns ErrNotFound for a missing file and InvalidDocumentError for any
// validation failure; a non-nil document always passed every check.
func Load(path string) (*trajectory.Document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read cache document: %w", err)
	}

	schema, err := documentSchema()
	if err != nil {
		return nil, err
	}
	if err := cuejson.Validate(data, schema); err != nil {
		return nil, &InvalidDocumentError{Path: path, Reason: err.Error()}
	}

	var doc trajectory.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &InvalidDocumentError{Path: path, Reason: fmt.Sprintf("decode: %v", err)}
	}

	if err := doc.Validate(); err != nil {
		return nil, &InvalidDocumentError{Path: path, Reason: err.Error()}
	}

	return &doc, nil
}

// Save atomically writes a cache document: validate, marshal, write to a
// temporary file in the destination directory, rename over the target.
// An existing file at path is fully replaced on success and untouched on
// failure.
func Save(path string, doc *trajectory.Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid document: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache document: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".retrace-*.json")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temporary file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cache document: %w", err)
	}

	return nil
}
