// Package sink manages the output file(s) a channel export writes to,
// including partition rollover once a configured limit is reached.
package sink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/archiveworks/chatexport/domain"
)

// FormatWriter is the contract every export format conforms to.
type FormatWriter interface {
	Preamble(w io.Writer) error
	WriteMessage(w io.Writer, m domain.Message) error
	Postamble(w io.Writer) error
}

// countingWriter wraps an *os.File and tracks bytes written, which
// ByteSizeLimit consults to decide on a partition rollover.
type countingWriter struct {
	f     *os.File
	count int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	w.count += int64(n)
	return n, err
}

// PartitionedSink owns the currently open output file and rolls over
// to a new partition once the configured Limit is reached.
type PartitionedSink struct {
	basePath string
	limit    Limit
	writer   FormatWriter

	file            *countingWriter
	partitionIndex  int
	messagesWritten int
	everOpened      bool
}

// New creates a sink targeting basePath. No file is opened until the
// first WriteMessage call (or Finish, if zero messages are ever
// written).
func New(basePath string, limit Limit, writer FormatWriter) *PartitionedSink {
	if limit == nil {
		limit = NullLimit{}
	}
	return &PartitionedSink{basePath: basePath, limit: limit, writer: writer}
}

// WriteMessage appends m to the current partition, rolling over first
// if the limit has been reached.
func (s *PartitionedSink) WriteMessage(m domain.Message) error {
	if s.file == nil {
		if err := s.openPartition(); err != nil {
			return err
		}
	} else if s.limit.isReached(s.messagesWritten, s.file.count) {
		if err := s.rollOver(); err != nil {
			return err
		}
	}
	if err := s.writer.WriteMessage(s.file, m); err != nil {
		return fmt.Errorf("sink: write message %s: %w", m.ID.String(), err)
	}
	s.messagesWritten++
	return nil
}

// Finish closes out the sink. If no messages were ever written, it
// still opens one file and emits an empty preamble+postamble so a
// zero-message channel export still produces output.
func (s *PartitionedSink) Finish() error {
	if s.file == nil {
		if err := s.openPartition(); err != nil {
			return err
		}
	}
	if err := s.writer.Postamble(s.file); err != nil {
		return fmt.Errorf("sink: postamble: %w", err)
	}
	return s.file.f.Close()
}

func (s *PartitionedSink) openPartition() error {
	path := s.partitionPath(s.partitionIndex)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sink: create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sink: create %s: %w", path, err)
	}
	s.file = &countingWriter{f: f}
	s.everOpened = true
	if err := s.writer.Preamble(s.file); err != nil {
		return fmt.Errorf("sink: preamble: %w", err)
	}
	return nil
}

func (s *PartitionedSink) rollOver() error {
	if err := s.writer.Postamble(s.file); err != nil {
		return fmt.Errorf("sink: postamble before rollover: %w", err)
	}
	if err := s.file.f.Close(); err != nil {
		return fmt.Errorf("sink: close partition %d: %w", s.partitionIndex, err)
	}
	s.partitionIndex++
	s.messagesWritten = 0
	return s.openPartition()
}

// partitionPath computes the path for partition index n. Partition 0
// keeps basePath unchanged; partition N>0 injects " [part N]" before
// the extension.
func (s *PartitionedSink) partitionPath(n int) string {
	if n == 0 {
		return s.basePath
	}
	ext := filepath.Ext(s.basePath)
	stem := strings.TrimSuffix(s.basePath, ext)
	return fmt.Sprintf("%s [part %d]%s", stem, n, ext)
}
