package hgt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gmalt/hgt/internal/domain"
)

// ReadSample reads the single sample at (row, col) without decoding the
// rest of the source.
func ReadSample(r io.ReaderAt, g *domain.Grid, row, col int) (int16, error) {
	offset := int64(g.Index(row, col)) * SampleBytes
	var buf [SampleBytes]byte
	if _, err := r.ReadAt(buf[:], offset); err != nil {
		return 0, &ReadError{Offset: offset, Err: err}
	}
	return int16(binary.BigEndian.Uint16(buf[:])), nil
}

// ReadGrid decodes a full n x n sample grid from r. A source shorter
// than n*n*2 bytes is malformed.
func ReadGrid(r io.Reader, sw domain.Coordinate, n int) (*domain.Grid, error) {
	g, err := domain.NewGrid(sw, n)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, n*n*SampleBytes)
	read, err := io.ReadFull(r, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &domain.MalformedGridError{
				ByteLength: int64(read),
				Reason:     "truncated sample data",
			}
		}
		return nil, &ReadError{Offset: int64(read), Err: err}
	}

	g.Samples = make([]int16, n*n)
	for i := range g.Samples {
		g.Samples[i] = int16(binary.BigEndian.Uint16(buf[2*i:]))
	}
	return g, nil
}

// File is an open HGT file. It supports cheap point lookups without
// loading the grid, and a full decode for imports.
type File struct {
	path string
	f    *os.File
	grid *domain.Grid
	size int64
}

// Open opens an HGT file, deriving the southwest corner from the file
// name and the resolution from the file size.
func Open(path string) (*File, error) {
	sw, err := ParseName(filepath.Base(path))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrFileNotFound)
		}
		return nil, fmt.Errorf("open hgt file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat hgt file: %w", err)
	}

	n, err := domain.ResolutionFromSize(info.Size())
	if err != nil {
		_ = f.Close()
		var malformed *domain.MalformedGridError
		if errors.As(err, &malformed) {
			malformed.Path = path
		}
		return nil, err
	}

	grid, err := domain.NewGrid(sw, n)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &File{path: path, f: f, grid: grid, size: info.Size()}, nil
}

// Grid returns the index-only grid describing the file.
func (f *File) Grid() *domain.Grid {
	return f.grid
}

// Path returns the location of the file.
func (f *File) Path() string {
	return f.path
}

// ValueAt maps a coordinate to its nearest sample and reads just that
// sample from disk.
func (f *File) ValueAt(c domain.Coordinate) (row, col int, value int16, err error) {
	row, col, err = f.grid.OffsetFor(c)
	if err != nil {
		return 0, 0, 0, err
	}
	value, err = ReadSample(f.f, f.grid, row, col)
	if err != nil {
		var re *ReadError
		if errors.As(err, &re) {
			re.Path = f.path
		}
		return 0, 0, 0, err
	}
	return row, col, value, nil
}

// ReadGrid decodes the whole file into a dense sample grid.
func (f *File) ReadGrid() (*domain.Grid, error) {
	g, err := ReadGrid(io.NewSectionReader(f.f, 0, f.size), f.grid.SW, f.grid.N)
	if err != nil {
		var malformed *domain.MalformedGridError
		if errors.As(err, &malformed) {
			malformed.Path = f.path
		}
		var re *ReadError
		if errors.As(err, &re) {
			re.Path = f.path
		}
		return nil, err
	}
	return g, nil
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}
