package payload

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

const (
	// PlanEntryName is the install plan's entry inside the payload archive.
	PlanEntryName = "plan.yaml"
	// FilePrefix namespaces packaged files inside the payload archive.
	FilePrefix = "files/"

	// trailerMagic identifies an attached payload; the trailing record is
	// magic plus the payload length.
	trailerMagic = "ARTMSETP"
	trailerSize  = len(trailerMagic) + 8
)

// entryModTime is the fixed timestamp for every archive entry. Identical
// manifest and source bytes must produce a byte-identical installer, so no
// wall-clock value may leak into the archive.
//
//nolint:gochecknoglobals // Shared constant timestamp for reproducible output.
var entryModTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	// ErrNoPayload is returned when the executable carries no attached payload.
	ErrNoPayload = errors.New("no installer payload attached")
	// errCorruptPayload is returned when the trailer's length is impossible.
	errCorruptPayload = errors.New("installer payload is corrupt")
	// errEntryNotFound is returned for an entry name absent from the archive.
	errEntryNotFound = errors.New("payload entry not found")
)

// File is one named entry packaged into the installer payload.
type File struct {
	// Name is the archive entry name, conventionally under FilePrefix.
	Name string
	// Contents are the packaged bytes.
	Contents []byte
}

// Write emits a self-contained installer: the stub executable, a zip payload
// holding the plan and files, and a fixed-size trailer locating the payload.
// Entries are written in sorted order with a fixed timestamp, so output is
// deterministic for identical inputs.
func Write(w io.Writer, stub io.Reader, planData []byte, files []File) error {
	if _, err := io.Copy(w, stub); err != nil {
		return fmt.Errorf("copy installer stub: %w", err)
	}

	sorted := append([]File(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var archive bytes.Buffer

	zw := zip.NewWriter(&archive)
	entries := append([]File{{Name: PlanEntryName, Contents: planData}}, sorted...)

	for _, entry := range entries {
		ew, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry.Name,
			Method:   zip.Deflate,
			Modified: entryModTime,
		})
		if err != nil {
			return fmt.Errorf("add payload entry %s: %w", entry.Name, err)
		}

		if _, err = ew.Write(entry.Contents); err != nil {
			return fmt.Errorf("write payload entry %s: %w", entry.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish payload archive: %w", err)
	}

	if _, err := w.Write(archive.Bytes()); err != nil {
		return fmt.Errorf("write payload archive: %w", err)
	}

	trailer := make([]byte, trailerSize)
	copy(trailer, trailerMagic)
	binary.LittleEndian.PutUint64(trailer[len(trailerMagic):], uint64(archive.Len()))

	if _, err := w.Write(trailer); err != nil {
		return fmt.Errorf("write payload trailer: %w", err)
	}

	return nil
}

// Bundle is an opened installer payload.
type Bundle struct {
	f  *os.File
	zr *zip.Reader
}

// Open locates the payload trailer at the end of the file and opens the
// embedded archive.
func Open(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open installer: %w", err)
	}

	bundle, err := openFrom(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return bundle, nil
}

// OpenSelf opens the payload attached to the running executable.
func OpenSelf() (*Bundle, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate own executable: %w", err)
	}

	return Open(exe)
}

func openFrom(f *os.File) (*Bundle, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat installer: %w", err)
	}

	size := info.Size()
	if size < int64(trailerSize) {
		return nil, ErrNoPayload
	}

	trailer := make([]byte, trailerSize)
	if _, err = f.ReadAt(trailer, size-int64(trailerSize)); err != nil {
		return nil, fmt.Errorf("read payload trailer: %w", err)
	}

	if string(trailer[:len(trailerMagic)]) != trailerMagic {
		return nil, ErrNoPayload
	}

	payloadLen := int64(binary.LittleEndian.Uint64(trailer[len(trailerMagic):]))
	if payloadLen <= 0 || payloadLen > size-int64(trailerSize) {
		return nil, errCorruptPayload
	}

	section := io.NewSectionReader(f, size-int64(trailerSize)-payloadLen, payloadLen)

	zr, err := zip.NewReader(section, payloadLen)
	if err != nil {
		return nil, fmt.Errorf("open payload archive: %w", err)
	}

	return &Bundle{f: f, zr: zr}, nil
}

// Plan returns the embedded install plan bytes.
func (b *Bundle) Plan() ([]byte, error) {
	return b.ReadEntry(PlanEntryName)
}

// ReadEntry returns the contents of one payload entry.
func (b *Bundle) ReadEntry(name string) ([]byte, error) {
	for _, entry := range b.zr.File {
		if entry.Name != name {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("open payload entry %s: %w", name, err)
		}

		defer func() {
			_ = rc.Close()
		}()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read payload entry %s: %w", name, err)
		}

		return data, nil
	}

	return nil, fmt.Errorf("%s: %w", name, errEntryNotFound)
}

// Entries lists the payload entry names in archive order.
func (b *Bundle) Entries() []string {
	names := make([]string, 0, len(b.zr.File))
	for _, entry := range b.zr.File {
		names = append(names, entry.Name)
	}

	return names
}

// Close releases the underlying file.
func (b *Bundle) Close() error {
	return b.f.Close()
}
