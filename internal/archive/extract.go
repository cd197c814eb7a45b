package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fenwicklabs/audiopipe/internal/model"
)

// Extract detects archivePath's real type and extracts its contents into
// extractDir. For tar and gzip-detected archives it tries a plain tar read
// first and falls back to gzip on failure, since content that sniffs as
// gzip magic is sometimes actually plain tar with a misleading header, and
// conversely a file without gzip magic can still be a mislabeled tar.gz.
func Extract(archivePath, extractDir string) error {
	archiveType, err := DetectType(archivePath)
	if err != nil {
		return fmt.Errorf("archive extract: detect type: %w", err)
	}

	switch archiveType {
	case model.ArchiveTypeTarGz:
		return extractTarGz(archivePath, extractDir)
	case model.ArchiveTypeTar, model.ArchiveTypeGzip:
		if err := extractTar(archivePath, extractDir); err == nil {
			return nil
		}
		return extractTarGz(archivePath, extractDir)
	default:
		return fmt.Errorf("archive extract: unknown archive type for %s", archivePath)
	}
}

func extractTar(archivePath, extractDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()
	return extractTarStream(f, extractDir)
}

func extractTarGz(archivePath, extractDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("archive extract: open gzip stream: %w", err)
	}
	defer gz.Close()

	return extractTarStream(gz, extractDir)
}

func extractTarStream(r io.Reader, extractDir string) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("archive extract: read tar entry: %w", err)
		}

		target, err := sanitizedJoin(extractDir, header.Name)
		if err != nil {
			return fmt.Errorf("archive extract: %w", err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := writeTarFile(target, tr, header.FileInfo().Mode()); err != nil {
				return err
			}
		default:
			// Skip symlinks, devices, and other entry types: the pipeline
			// only expects plain audio files and directories in a batch.
		}
	}
}

func writeTarFile(target string, r io.Reader, mode os.FileMode) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, r)
	return err
}

// sanitizedJoin joins dir and name, rejecting any entry that would escape
// dir via ".." components or an absolute path (a zip-slip style attack in a
// tar archive).
func sanitizedJoin(dir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.Join(dir, name))
	prefix := filepath.Clean(dir) + string(os.PathSeparator)
	if !strings.HasPrefix(cleaned+string(os.PathSeparator), prefix) {
		return "", fmt.Errorf("tar entry %q escapes extraction directory", name)
	}
	return cleaned, nil
}
