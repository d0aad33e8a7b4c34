package xmind

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"io"
)

// Entry is one named buffer of an archive. Body, when set, is streamed
// instead of Data.
type Entry struct {
	Name string
	Data []byte
	Body io.Reader
}

func (e Entry) reader() io.Reader {
	if e.Body != nil {
		return e.Body
	}
	return bytes.NewReader(e.Data)
}

// WriteArchive writes entries into a deflate-compressed zip, preceded by a
// manifest listing all of them.
func WriteArchive(w io.Writer, entries []Entry) error {
	names := make([]string, 0, len(entries)+1)
	seen := make(map[string]bool, len(entries))
	names = append(names, ManifestPath)
	seen[ManifestPath] = true
	for _, e := range entries {
		if e.Name == "" {
			return errors.New("archive entry without a name")
		}
		if seen[e.Name] {
			return fmt.Errorf("duplicate archive entry %q", e.Name)
		}
		seen[e.Name] = true
		names = append(names, e.Name)
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	all := append([]Entry{{Name: ManifestPath, Data: Manifest(names)}}, entries...)
	for _, e := range all {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("create %s: %w", e.Name, err)
		}
		if _, err := io.Copy(fw, e.reader()); err != nil {
			return fmt.Errorf("write %s: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

// StageError records which step of building a document failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }
