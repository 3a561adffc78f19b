package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	fixzip "github.com/hidez8891/zip"
	"go.uber.org/multierr"
)

// Bundle packs named files from dir into zip archive dst, flat, in the given
// order. Data descriptors are removed from the final archive since some
// hosting unpackers refuse them.
func Bundle(dst, dir string, names []string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temporary archive: %w", err)
	}
	defer func() {
		err = multierr.Append(err, os.Remove(tmp.Name()))
	}()

	zw := zip.NewWriter(tmp)
	for _, name := range names {
		if err := addFile(zw, dir, name); err != nil {
			return multierr.Combine(err, zw.Close(), tmp.Close())
		}
	}
	if err := multierr.Combine(zw.Close(), tmp.Close()); err != nil {
		return fmt.Errorf("unable to finalize temporary archive: %w", err)
	}
	return copyWithoutDataDescriptors(tmp.Name(), dst)
}

func addFile(zw *zip.Writer, dir, name string) error {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("unable to open bundle entry: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	w, err := zw.CreateHeader(&zip.FileHeader{Name: filepath.ToSlash(name), Method: zip.Deflate, Modified: info.ModTime()})
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("unable to write bundle entry %s: %w", name, err)
	}
	return nil
}

func copyWithoutDataDescriptors(from, to string) (err error) {
	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create bundle (%s): %w", to, err)
	}
	defer func() {
		err = multierr.Append(err, out.Close())
	}()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	for _, file := range r.File {
		file.Flags &= ^fixzip.FlagDataDescriptor
		if err := w.CopyFile(file); err != nil {
			return multierr.Append(fmt.Errorf("unable to write bundle (%s): %w", to, err), w.Close())
		}
	}
	return w.Close()
}
