// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.
package capttk

import (
	"bufio"
	"io"
	"os"
)

// ByteSource is the pull-based abstraction that every other component in
// this package is built on. It deliberately mirrors the shape of
// io.ByteReader plus a position query, rather than io.Reader, since the
// packet scanner, extractor and SCoA decoder all consume their input one
// byte at a time and need to know their current offset for error
// reporting and page indexing.
//
// Implementations are single-threaded: Next, Tell and Seek are never
// called concurrently by this package.
type ByteSource interface {
	// Next returns the next byte, or io.EOF once the source is
	// exhausted.
	Next() (byte, error)

	// Tell returns the offset of the byte that the next call to Next
	// will return.
	Tell() int64

	// Seek repositions the source so that the next call to Next
	// returns the byte at offset. It returns ErrSeekUnsupported if the
	// underlying source cannot seek.
	Seek(offset int64) error
}

// FileSource is a seekable ByteSource backed by an *os.File. Job, which
// needs random access to locate page boundaries, requires a FileSource
// rather than the more general ByteSource interface.
type FileSource struct {
	f   *os.File
	br  *bufio.Reader
	pos int64
}

// NewFileSource opens path and returns a FileSource reading from it.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{f: f, br: bufio.NewReader(f)}, nil
}

// NewFileSourceFromFile wraps an already-open file.
func NewFileSourceFromFile(f *os.File) *FileSource {
	return &FileSource{f: f, br: bufio.NewReader(f)}
}

// Next implements ByteSource.
func (s *FileSource) Next() (byte, error) {
	b, err := s.br.ReadByte()
	if err != nil {
		return 0, err
	}
	s.pos++
	return b, nil
}

// Tell implements ByteSource.
func (s *FileSource) Tell() int64 {
	return s.pos
}

// Seek implements ByteSource.
func (s *FileSource) Seek(offset int64) error {
	if _, err := s.f.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	s.br.Reset(s.f)
	s.pos = offset
	return nil
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}

// MemorySource is a forward-only ByteSource backed by an in-memory byte
// slice, for bytes that are already held in memory and where random
// access is not required. Its Seek always fails since a job that needs
// page-offset based access should be read via FileSource.
type MemorySource struct {
	buf []byte
	pos int64
}

// NewMemorySource returns a ByteSource over buf.
func NewMemorySource(buf []byte) *MemorySource {
	return &MemorySource{buf: buf}
}

// Next implements ByteSource.
func (s *MemorySource) Next() (byte, error) {
	if s.pos >= int64(len(s.buf)) {
		return 0, io.EOF
	}
	b := s.buf[s.pos]
	s.pos++
	return b, nil
}

// Tell implements ByteSource.
func (s *MemorySource) Tell() int64 {
	return s.pos
}

// Seek always fails: MemorySource is forward-only.
func (s *MemorySource) Seek(int64) error {
	return ErrSeekUnsupported
}
