package timetravel

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"gopkg.in/yaml.v3"

	"github.com/recallhq/chronofs/pkg/vfs"
)

// manifestName is the archive entry holding session metadata and the
// directory list. Empty directories have no file entries, so without the
// manifest they would be lost on extraction.
const manifestName = ".chronofs/manifest.yaml"

type archiveManifest struct {
	SessionID   string   `yaml:"session_id"`
	AsOf        string   `yaml:"as_of"`
	Directories []string `yaml:"directories"`
	FileCount   int      `yaml:"file_count"`
}

// buildArchive encodes a snapshot as a zip archive. The manifest entry comes
// first, followed by file entries in snapshot (depth-first lexicographic)
// order, all with zero timestamps and a fixed deflate level, so identical
// snapshots produce identical bytes.
func buildArchive(snap vfs.Snapshot, sessionID string, asOf time.Time) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	manifest := archiveManifest{
		SessionID:   sessionID,
		AsOf:        asOf.UTC().Format(time.RFC3339Nano),
		Directories: append([]string{}, snap.Dirs...),
		FileCount:   len(snap.Files),
	}
	manifestBytes, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("timetravel: encode manifest: %w", err)
	}
	if err := writeArchiveEntry(zw, manifestName, manifestBytes); err != nil {
		return nil, err
	}

	for _, f := range snap.Files {
		if err := writeArchiveEntry(zw, strings.TrimPrefix(f.Path, "/"), []byte(f.Content)); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("timetravel: finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

func writeArchiveEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	})
	if err != nil {
		return fmt.Errorf("timetravel: create archive entry %q: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("timetravel: write archive entry %q: %w", name, err)
	}
	return nil
}

// LoadZippedState reconstructs a filesystem from an archive produced by
// GetZippedState, including empty directories recorded in the manifest.
func LoadZippedState(data []byte) (*vfs.FileSystem, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("timetravel: open archive: %w", err)
	}

	fs := vfs.New()
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("timetravel: open archive entry %q: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("timetravel: read archive entry %q: %w", f.Name, err)
		}

		if f.Name == manifestName {
			var manifest archiveManifest
			if err := yaml.Unmarshal(content, &manifest); err != nil {
				return nil, fmt.Errorf("timetravel: decode manifest: %w", err)
			}
			for _, dir := range manifest.Directories {
				if err := fs.Mkdir(dir); err != nil {
					return nil, fmt.Errorf("timetravel: restore directory %q: %w", dir, err)
				}
			}
			continue
		}

		if err := fs.WriteFile("/"+f.Name, string(content)); err != nil {
			return nil, fmt.Errorf("timetravel: restore file %q: %w", f.Name, err)
		}
	}
	return fs, nil
}
