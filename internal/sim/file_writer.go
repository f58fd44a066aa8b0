package sim

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
	"gopkg.in/natefinch/lumberjack.v2"

	"fixturegen/internal/signalk"
	"fixturegen/internal/telemetry"
)

// FileWriter writes records and fleet documents to a JSONL file.
type FileWriter struct {
	file io.WriteCloser
	buf  *bufio.Writer
	enc  *json.Encoder
}

// NewFileWriter creates a FileWriter. A positive maxSizeMB rotates the file
// once it grows past that size and gzips the rotated parts; in that mode an
// existing file is appended to rather than truncated. A path ending in .gz
// is written as a single gzip stream.
func NewFileWriter(path string, maxSizeMB int) (*FileWriter, error) {
	gz := strings.HasSuffix(path, ".gz")
	if gz && maxSizeMB > 0 {
		return nil, errors.New("rotation cannot be combined with .gz output; rotated parts are compressed already")
	}

	var f io.WriteCloser
	switch {
	case maxSizeMB > 0:
		f = &lumberjack.Logger{Filename: path, MaxSize: maxSizeMB, Compress: true}
	default:
		file, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		f = file
		if gz {
			f = &gzipFile{Writer: pgzip.NewWriter(file), file: file}
		}
	}
	buf := bufio.NewWriter(f)
	return &FileWriter{file: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

// gzipFile closes the compressor before the file under it.
type gzipFile struct {
	*pgzip.Writer
	file *os.File
}

func (g *gzipFile) Close() error {
	err := g.Writer.Close()
	if cerr := g.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Write logs a single record.
func (f *FileWriter) Write(row telemetry.Record) error {
	return f.enc.Encode(row)
}

// WriteBatch logs multiple records.
func (f *FileWriter) WriteBatch(rows []telemetry.Record) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteLine logs an encoded record line unchanged.
func (f *FileWriter) WriteLine(line []byte) error {
	return writeRawLine(f.buf, line)
}

// WriteFleet logs a fleet document and flushes, so paced runs can be
// followed on disk.
func (f *FileWriter) WriteFleet(doc *signalk.Document) error {
	if err := f.enc.Encode(doc); err != nil {
		return err
	}
	return f.buf.Flush()
}

// Close flushes buffered output and closes the underlying file.
func (f *FileWriter) Close() error {
	err := f.buf.Flush()
	if cerr := f.file.Close(); err == nil {
		err = cerr
	}
	return err
}
