package qbank

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rsharan/examgate/internal/model"
)

// Reader loads question pools from a directory of per-stream JSON documents.
// Each document is named <stream>.json (lowercase) and maps subject name to
// an array of question objects.
//
// The base directory is resolved once at construction. A missing or unusable
// directory does not fail construction: the reader marks itself degraded and
// the service reports unhealthy until the directory is fixed and re-validated.
type Reader struct {
	baseDir string

	mu             sync.Mutex
	degraded       bool
	degradedDetail string
}

// NewReader creates a Reader rooted at baseDir and validates it once.
func NewReader(baseDir string) *Reader {
	r := &Reader{baseDir: baseDir}
	if ok, detail := r.ValidateDirectory(); !ok {
		slog.Warn("question bank directory validation failed, fallback degraded",
			"dir", baseDir, "detail", detail)
	}
	return r
}

// Degraded reports whether the last directory validation failed.
func (r *Reader) Degraded() (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degraded, r.degradedDetail
}

// ValidateDirectory re-checks the base directory on demand and updates the
// degraded flag either way. Safe to call while Degraded is being read.
func (r *Reader) ValidateDirectory() (bool, string) {
	ok, detail := r.checkDirectory()
	r.mu.Lock()
	r.degraded = !ok
	r.degradedDetail = detail
	r.mu.Unlock()
	return ok, detail
}

func (r *Reader) checkDirectory() (bool, string) {
	info, err := os.Stat(r.baseDir)
	if err != nil {
		return false, fmt.Sprintf("stat %s: %v", r.baseDir, err)
	}
	if !info.IsDir() {
		return false, fmt.Sprintf("%s is not a directory", r.baseDir)
	}
	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		return false, fmt.Sprintf("read %s: %v", r.baseDir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			return true, ""
		}
	}
	return false, fmt.Sprintf("no question documents (*.json) in %s", r.baseDir)
}

func (r *Reader) streamPath(stream string) string {
	return filepath.Join(r.baseDir, strings.ToLower(stream)+".json")
}

// LoadPool reads and partitions the question set for one (stream, subject)
// pair. It returns NotFoundError if the stream document or subject key is
// absent, FormatError if the document cannot be parsed, and ValidationError
// if a record carries an unknown question type. Structural validation of the
// records themselves is ValidatePool's job.
func (r *Reader) LoadPool(stream, subject string) (*model.QuestionPool, error) {
	path := r.streamPath(stream)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path, Stream: stream}
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc map[string][]model.QuestionRecord
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}

	records, ok := doc[subject]
	if !ok {
		return nil, &NotFoundError{Path: path, Stream: stream, Subject: subject}
	}

	pool := &model.QuestionPool{Stream: stream, Subject: subject}
	for i, q := range records {
		switch q.Kind {
		case model.KindMultipleChoice:
			pool.MultipleChoice = append(pool.MultipleChoice, q)
		case model.KindDescriptive:
			pool.Descriptive = append(pool.Descriptive, q)
		default:
			return nil, &ValidationError{Kind: q.Kind, Index: i, Field: "type", Reason: "is not a known question type"}
		}
	}
	return pool, nil
}

// SubjectsByStream lists the subject keys available in every stream document.
// Unreadable or malformed documents are skipped with a warning; this feeds
// the status endpoint and must not fail the whole report.
func (r *Reader) SubjectsByStream() map[string][]string {
	out := make(map[string][]string)
	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		stream := strings.TrimSuffix(e.Name(), ".json")
		data, err := os.ReadFile(filepath.Join(r.baseDir, e.Name()))
		if err != nil {
			slog.Warn("skipping unreadable bank document", "file", e.Name(), "error", err)
			continue
		}
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			slog.Warn("skipping malformed bank document", "file", e.Name(), "error", err)
			continue
		}
		subjects := make([]string, 0, len(doc))
		for subject := range doc {
			subjects = append(subjects, subject)
		}
		sort.Strings(subjects)
		out[stream] = subjects
	}
	return out
}
