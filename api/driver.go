// Package api defines the driver that turns Brainfuck source files into
// assembly files.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/sarchlab/bfasm/compiler"
)

// OutputMode is the permission of written assembly files.
const OutputMode os.FileMode = 0o644

// ErrBadExtension reports an input path that does not end in the input
// extension.
var ErrBadExtension = errors.New("bad file extension")

// Driver compiles programs.
type Driver interface {
	// CompileFile translates the file at path and writes the assembly next
	// to it, with the input extension replaced by the output extension. It
	// returns the path of the written file. Nothing is written when the
	// program is malformed.
	CompileFile(path string) (string, error)

	// Compile translates a program read from r and writes the assembly to
	// w.
	Compile(r io.Reader, w io.Writer) error
}

// File is a writable file created by a FileSystem.
type File interface {
	io.Writer
	Name() string
	Chmod(mode os.FileMode) error
	Sync() error
	Close() error
}

// FileSystem is the file access the driver needs.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	CreateTemp(dir, pattern string) (File, error)
	Rename(oldPath, newPath string) error
	Remove(path string) error
}

type driverImpl struct {
	fs        FileSystem
	logger    *slog.Logger
	inputExt  *regexp.Regexp
	outputExt string
}

// OutputPath maps an input path to the path of its assembly file.
func (d *driverImpl) OutputPath(path string) (string, error) {
	if !d.inputExt.MatchString(path) {
		return "", fmt.Errorf("%w: %s", ErrBadExtension, path)
	}
	return d.inputExt.ReplaceAllLiteralString(path, d.outputExt), nil
}

func (d *driverImpl) CompileFile(path string) (string, error) {
	outPath, err := d.OutputPath(path)
	if err != nil {
		return "", err
	}

	src, err := d.fs.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", compiler.ErrRead, err)
	}

	asm, err := compiler.CompileBytes(src)
	if err != nil {
		d.logger.Warn("compile failed", "path", path, "err", err)
		return "", fmt.Errorf("%s: %w", path, err)
	}

	if err := d.writeAtomic(outPath, asm); err != nil {
		return "", err
	}

	d.logger.Info("compiled",
		"input", path,
		"output", outPath,
		"bytes", len(asm),
	)

	return outPath, nil
}

// writeAtomic writes data into a temporary file in the target directory
// and renames it onto path.
func (d *driverImpl) writeAtomic(path string, data []byte) (err error) {
	tmp, err := d.fs.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", compiler.ErrWrite, err)
	}

	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			if rmErr := d.fs.Remove(tmpName); rmErr != nil {
				d.logger.Debug("failed to remove temp file", "path", tmpName, "err", rmErr)
			}
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", compiler.ErrWrite, err)
	}

	if err = tmp.Chmod(OutputMode); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", compiler.ErrWrite, err)
	}

	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", compiler.ErrWrite, err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", compiler.ErrWrite, err)
	}

	if err = d.fs.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: %w", compiler.ErrWrite, err)
	}

	return nil
}

func (d *driverImpl) Compile(r io.Reader, w io.Writer) error {
	var buf bytes.Buffer
	if err := compiler.Compile(r, &buf); err != nil {
		return err
	}

	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("%w: %w", compiler.ErrWrite, err)
	}

	return nil
}
