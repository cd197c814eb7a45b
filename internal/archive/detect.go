// Package archive detects a downloaded batch archive's real format from its
// content and extracts it into a scratch directory. Filenames arriving from
// the Blob Store are not trusted: a ".tar.gz" object is frequently an
// uncompressed tar file in practice, so detection reads magic bytes rather
// than the object key's suffix.
package archive

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"

	"github.com/fenwicklabs/audiopipe/internal/model"
)

const (
	ustarOffset = 257
	ustarMagic  = "ustar"
	gzipMagic1  = 0x1f
	gzipMagic2  = 0x8b
)

// DetectType inspects path's content and reports its real archive format.
// It mirrors the pipeline's original detection order: a gzip-magic file is
// probed for a ustar header inside the decompressed stream before being
// reported as plain gzip, and a file with no gzip magic falls back to a
// direct ustar-header check before being reported unknown.
func DetectType(path string) (model.ArchiveType, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.ArchiveTypeUnknown, err
	}
	defer f.Close()

	header := make([]byte, 512)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return model.ArchiveTypeUnknown, err
	}
	header = header[:n]

	if isGzipMagic(header) {
		if hasUstarHeader(decompressedPrefix(path)) {
			return model.ArchiveTypeTarGz, nil
		}
		return model.ArchiveTypeGzip, nil
	}

	if hasUstarMagic(header) {
		return model.ArchiveTypeTar, nil
	}

	return model.ArchiveTypeUnknown, nil
}

func isGzipMagic(header []byte) bool {
	return len(header) >= 2 && header[0] == gzipMagic1 && header[1] == gzipMagic2
}

func hasUstarMagic(header []byte) bool {
	return len(header) >= ustarOffset+len(ustarMagic) &&
		string(header[ustarOffset:ustarOffset+len(ustarMagic)]) == ustarMagic
}

// decompressedPrefix reads up to 512 bytes of path's decompressed gzip
// stream, returning nil when the file cannot be opened or decompressed.
func decompressedPrefix(path string) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil
	}
	defer gz.Close()

	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, gz, 512); err != nil && err != io.EOF {
		return nil
	}
	return buf.Bytes()
}

func hasUstarHeader(decompressed []byte) bool {
	return hasUstarMagic(decompressed)
}
