// vgm_io.go - VGM/VGZ file loading and saving.

package main

import (
	"bytes"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

const stdioPath = "-"

func isGzipData(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1F && data[1] == 0x8B
}

// decodeVGMData returns data decompressed if it carries the gzip magic.
func decodeVGMData(data []byte) ([]byte, bool, error) {
	if !isGzipData(data) {
		return data, false, nil
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, true, errors.Wrap(err, "vgz header")
	}
	defer gz.Close()
	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, true, errors.Wrap(err, "vgz decompress")
	}
	return raw, true, nil
}

// readVGMInput loads a whole VGM or VGZ file ("-" for stdin) and reports
// whether it was compressed.
func readVGMInput(path string) ([]byte, bool, error) {
	var data []byte
	var err error
	if path == stdioPath {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "read %s", path)
	}
	raw, compressed, err := decodeVGMData(data)
	if err != nil {
		return nil, compressed, errors.Wrap(err, path)
	}
	return raw, compressed, nil
}

// encodeVGMData compresses with a fixed level and no name or timestamp, so
// the same input always gives the same VGZ.
func encodeVGMData(data []byte, compress bool) ([]byte, error) {
	if !compress {
		return data, nil
	}
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	zw.Name = ""
	// the writer stores ModTime.Unix() as is, so pin it to the epoch
	zw.ModTime = time.Unix(0, 0)
	if _, err := zw.Write(data); err != nil {
		return nil, errors.Wrap(err, "vgz compress")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "vgz compress")
	}
	return buf.Bytes(), nil
}

// writeVGMOutput writes the finished image. Files go through a temporary in
// the same directory and are renamed into place.
func writeVGMOutput(path string, data []byte, compress bool) error {
	payload, err := encodeVGMData(data, compress)
	if err != nil {
		return err
	}

	if path == stdioPath {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New("refusing to write binary VGM data to a terminal")
		}
		_, err := os.Stdout.Write(payload)
		return errors.Wrap(err, "write stdout")
	}

	tmp, err := createOutputTemp(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "write %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "write %s", path)
	}
	// an overwritten file keeps its mode
	if info, err := os.Stat(path); err == nil {
		if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
			os.Remove(tmpName)
			return errors.Wrapf(err, "write %s", path)
		}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "rename %s", path)
	}
	return nil
}

// createOutputTemp opens a fresh hidden file next to path. It is created
// 0666 so the process umask decides the final mode of a new output.
func createOutputTemp(path string) (*os.File, error) {
	dir, base := filepath.Dir(path), filepath.Base(path)
	for try := 0; try < 100; try++ {
		name := filepath.Join(dir, "."+base+"."+strconv.FormatUint(uint64(rand.Uint32()), 36))
		f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
		if os.IsExist(err) {
			continue
		}
		return f, err
	}
	return nil, errors.New("no free temporary name")
}
