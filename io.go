package csrzip

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"
)

// Edge-list files are two-column CSV, one "source,target" row per line, with
// optional gzip framing selected by the file name. The readers below only
// produce the fallible edge sequence; pair them with FromEdges or
// FromEdgesChunked.

// EdgeListFile is an open edge-list file. Close it after the edge sequence
// has been consumed.
type EdgeListFile struct {
	file *os.File
	gz   *gzip.Reader
	r    io.Reader
}

// OpenEdgeList opens a ".csv" or ".csv.gz" edge-list file.
func OpenEdgeList(path string) (*EdgeListFile, error) {
	switch {
	case strings.HasSuffix(path, ".csv"):
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		return &EdgeListFile{file: f, r: f}, nil
	case strings.HasSuffix(path, ".csv.gz"):
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &EdgeListFile{file: f, gz: gz, r: gz}, nil
	default:
		return nil, fmt.Errorf("csrzip: unsupported edge-list path %q, want .csv or .csv.gz", path)
	}
}

// Edges returns the file's fallible edge sequence. The sequence stops at the
// first malformed row or read error.
func (f *EdgeListFile) Edges() iter.Seq2[Edge, error] {
	return ReadEdgeList(f.r)
}

// Close releases the underlying file.
func (f *EdgeListFile) Close() error {
	if f.gz != nil {
		if err := f.gz.Close(); err != nil {
			f.file.Close()
			return err
		}
	}
	return f.file.Close()
}

// ReadEdgeList parses a two-column CSV edge list from r.
func ReadEdgeList(r io.Reader) iter.Seq2[Edge, error] {
	return func(yield func(Edge, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		line := 0
		for sc.Scan() {
			line++
			e, err := parseEdgeRow(sc.Text())
			if err != nil {
				yield(Edge{}, fmt.Errorf("csrzip: line %d: %w", line, err))
				return
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(Edge{}, err)
		}
	}
}

func parseEdgeRow(row string) (Edge, error) {
	left, right, ok := strings.Cut(row, ",")
	if !ok {
		return Edge{}, fmt.Errorf("bad row %q", row)
	}
	if _, _, extra := strings.Cut(right, ","); extra {
		return Edge{}, fmt.Errorf("bad row %q", row)
	}
	u, err := strconv.ParseUint(strings.TrimSpace(left), 10, 32)
	if err != nil {
		return Edge{}, fmt.Errorf("bad row %q: %w", row, err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(right), 10, 32)
	if err != nil {
		return Edge{}, fmt.Errorf("bad row %q: %w", row, err)
	}
	return Edge{U: uint32(u), V: uint32(v)}, nil
}
