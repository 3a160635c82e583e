// Package archive writes and restores zstd-compressed tar snapshots of a
// share tree.
package archive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"

	"github.com/Kush-Singh-26/hashdrop/engine/digest"
	"github.com/Kush-Singh-26/hashdrop/engine/models"
	"github.com/Kush-Singh-26/hashdrop/engine/paths"
	"github.com/Kush-Singh-26/hashdrop/engine/utils"
)

// maxEntrySize bounds a single restored file.
const maxEntrySize = 512 << 20

// Summary counts what a snapshot or restore touched.
type Summary struct {
	Files   int
	Bytes   int64
	Skipped int // restore only: entries already present
}

// Snapshot writes every bucket file under base to w. Temporary files
// left by interrupted writes are not included.
func Snapshot(fsys afero.Fs, base string, w io.Writer) (Summary, error) {
	var sum Summary

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return sum, fmt.Errorf("create zstd writer: %w", err)
	}
	tw := tar.NewWriter(enc)

	if ok, err := afero.DirExists(fsys, base); err != nil || !ok {
		_ = tw.Close()
		_ = enc.Close()
		if err == nil {
			err = fmt.Errorf("%w: %s", models.ErrNotFound, base)
		}
		return sum, err
	}

	walkErr := afero.Walk(fsys, base, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !snapshotName(name) {
			return nil
		}

		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     name,
			Mode:     0644,
			Size:     info.Size(),
			ModTime:  info.ModTime().Truncate(time.Second),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		f, err := fsys.Open(p)
		if err != nil {
			return err
		}
		n, err := io.Copy(tw, f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("archive %s: %w", name, err)
		}
		sum.Files++
		sum.Bytes += n
		return nil
	})
	if walkErr != nil {
		_ = tw.Close()
		_ = enc.Close()
		return sum, walkErr
	}
	if err := tw.Close(); err != nil {
		_ = enc.Close()
		return sum, err
	}
	return sum, enc.Close()
}

// Restore unpacks a snapshot into base. Existing files are never
// overwritten. Content objects must hash to their name and markers must
// be empty; a violating entry aborts the restore with ErrInvalidInput.
func Restore(r io.Reader, fsys afero.Fs, base string) (Summary, error) {
	var sum Summary

	dec, err := zstd.NewReader(r)
	if err != nil {
		return sum, fmt.Errorf("create zstd reader: %w", err)
	}
	defer dec.Close()

	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("read snapshot: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		bucket, file, ok := splitEntry(hdr.Name)
		if !ok {
			return sum, fmt.Errorf("%w: unexpected snapshot entry %q", models.ErrInvalidInput, hdr.Name)
		}
		if hdr.Size > maxEntrySize {
			return sum, fmt.Errorf("%w: snapshot entry %q too large", models.ErrInvalidInput, hdr.Name)
		}

		dest := filepath.Join(paths.BucketDir(base, bucket), file)
		if exists, err := afero.Exists(fsys, dest); err != nil {
			return sum, err
		} else if exists {
			sum.Skipped++
			continue
		}

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, io.LimitReader(tr, maxEntrySize)); err != nil {
			return sum, fmt.Errorf("read %s: %w", hdr.Name, err)
		}
		if err := checkEntry(bucket, file, buf.Bytes()); err != nil {
			return sum, err
		}

		if err := fsys.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return sum, fmt.Errorf("create bucket directory: %w", err)
		}
		if err := utils.WriteFileAtomic(fsys, dest, buf.Bytes(), 0644); err != nil {
			return sum, err
		}
		sum.Files++
		sum.Bytes += int64(buf.Len())
	}
	return sum, nil
}

// snapshotName keeps bucket files that the store or index appender
// could have produced.
func snapshotName(name string) bool {
	_, _, ok := splitEntry(name)
	return ok
}

// splitEntry validates "<bucket>/<file>" where file is an index or
// object name.
func splitEntry(name string) (digest.Digest, string, bool) {
	if path.Clean(name) != name || strings.HasPrefix(name, "/") {
		return "", "", false
	}
	dir, file, ok := strings.Cut(name, "/")
	if !ok || strings.Contains(file, "/") {
		return "", "", false
	}
	if !digest.IsDigest(dir) || strings.ToLower(dir) != dir {
		return "", "", false
	}
	if paths.IsIndexName(file) {
		return digest.Digest(dir), file, true
	}
	if _, _, ok := paths.ParseObjectName(file); ok {
		return digest.Digest(dir), file, true
	}
	return "", "", false
}

func checkEntry(bucket digest.Digest, file string, data []byte) error {
	obj, _, ok := paths.ParseObjectName(file)
	if !ok {
		return nil
	}
	if obj != bucket {
		if len(data) != 0 {
			return fmt.Errorf("%w: marker %s/%s is not empty", models.ErrInvalidInput, bucket, file)
		}
		return nil
	}
	if got := digest.Sum(data); got != obj {
		return fmt.Errorf("%w: %s hashes to %s", models.ErrInvalidInput, file, got)
	}
	return nil
}
