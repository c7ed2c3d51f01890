// Package export assembles KML and GPX documents from processed
// activities and starred segments.
package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/jpravetz/stravaexport/internal/errs"
	"github.com/jpravetz/stravaexport/internal/models"
	"github.com/jpravetz/stravaexport/internal/track"
)

// ActivityDoc is one activity prepared for document assembly: filtered
// coordinates plus the optional lap waypoints and curated efforts.
type ActivityDoc struct {
	Activity  models.Activity
	BikeLabel string
	IsMoto    bool
	Waypoints []track.LapWaypoint
	Efforts   []models.AttachedEffort
}

// SegmentDoc is one starred segment with its coordinate stream.
type SegmentDoc struct {
	Segment     models.StarredSegment
	Coordinates []models.TrackPoint
}

// blockWriter accumulates one structural block (header, activity,
// folder, footer) and flushes it in a single write, bounding I/O calls
// on large exports. Any sink failure surfaces as a WriteError.
type blockWriter struct {
	dst  io.Writer
	path string
	buf  bytes.Buffer
}

func newBlockWriter(dst io.Writer, path string) *blockWriter {
	return &blockWriter{dst: dst, path: path}
}

func (b *blockWriter) str(s string) {
	b.buf.WriteString(s)
}

func (b *blockWriter) printf(format string, args ...any) {
	fmt.Fprintf(&b.buf, format, args...)
}

func (b *blockWriter) flush() error {
	if b.buf.Len() == 0 {
		return nil
	}
	if _, err := b.dst.Write(b.buf.Bytes()); err != nil {
		return &errs.WriteError{Path: b.path, Err: err}
	}
	b.buf.Reset()
	return nil
}

// AtomicFile writes to a uniquely named sibling temp file and renames
// it into place on Commit, so a failed export never truncates a
// previously written document.
type AtomicFile struct {
	f    *os.File
	path string
	tmp  string
}

// CreateAtomic opens a temp file next to path.
func CreateAtomic(path string) (*AtomicFile, error) {
	tmp := filepath.Join(filepath.Dir(path),
		fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	f, err := os.Create(tmp)
	if err != nil {
		return nil, &errs.WriteError{Path: path, Err: err}
	}
	return &AtomicFile{f: f, path: path, tmp: tmp}, nil
}

func (a *AtomicFile) Write(p []byte) (int, error) {
	return a.f.Write(p)
}

// Commit closes the temp file and moves it to the final path.
func (a *AtomicFile) Commit() error {
	if err := a.f.Close(); err != nil {
		os.Remove(a.tmp)
		return &errs.WriteError{Path: a.path, Err: err}
	}
	if err := os.Rename(a.tmp, a.path); err != nil {
		os.Remove(a.tmp)
		return &errs.WriteError{Path: a.path, Err: err}
	}
	return nil
}

// Abort closes and removes the temp file, leaving any existing document
// at the final path untouched.
func (a *AtomicFile) Abort() {
	a.f.Close()
	os.Remove(a.tmp)
}
