package sources

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// maxFileSize bounds a single extracted file.
const maxFileSize = 32 << 20

// extract unpacks the entries of a gzipped tarball that live under sub into
// dest. The archive's top-level directory is stripped, so sub is relative to
// the repository root. It returns the archive modification time of every
// extracted file keyed by its path relative to dest.
func extract(r io.Reader, sub, dest string) (map[string]time.Time, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer gz.Close()

	sub = strings.Trim(path.Clean("/"+sub), "/")
	mtimes := make(map[string]time.Time)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return nil, fmt.Errorf("read archive: %w", err)
		}

		rel, ok := within(hdr.Name, sub)
		if !ok {
			continue
		}
		if rel == "" {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, fmt.Errorf("create %s: %w", rel, err)
			}
		case tar.TypeReg:
			if hdr.Size > maxFileSize {
				return nil, fmt.Errorf("%s exceeds %d bytes", rel, maxFileSize)
			}
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return nil, fmt.Errorf("write %s: %w", rel, err)
			}
			mtimes[rel] = hdr.ModTime
		default:
			// Links and devices are not actions.
		}
	}
	return mtimes, nil
}

// within strips the archive's top-level directory from name and then the
// sub prefix. ok is false when the entry lies outside sub. Names that would
// escape the destination are rejected as outside.
func within(name, sub string) (string, bool) {
	name = strings.TrimPrefix(name, "./")
	_, rest, found := strings.Cut(name, "/")
	if !found {
		return "", false
	}
	if strings.HasPrefix(rest, "/") || strings.Contains("/"+rest+"/", "/../") {
		return "", false
	}
	rest = strings.Trim(path.Clean("/"+rest), "/")
	if sub == "" {
		return rest, true
	}
	if rest == sub {
		return "", true
	}
	if !strings.HasPrefix(rest, sub+"/") {
		return "", false
	}
	return strings.TrimPrefix(rest, sub+"/"), true
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, io.LimitReader(r, maxFileSize)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
