// Package tutorials copies tutorial files matched by glob patterns into the
// flat directory handed to the generator.
package tutorials

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	ferrors "git.home.luguber.info/inful/jsdocpreview/internal/foundation/errors"
	"git.home.luguber.info/inful/jsdocpreview/internal/generator"
	"git.home.luguber.info/inful/jsdocpreview/internal/paths"
)

// Merge expands patterns relative to workspaceRoot and copies every matching
// regular file into dest, dropping directory structure. Progress is logged to
// sink. It returns the number of files copied.
func Merge(patterns []string, workspaceRoot, dest string, sink generator.LogSink) (int, error) {
	if len(patterns) == 0 {
		return 0, nil
	}
	sink.Info(fmt.Sprintf("Copy tutorials containing in %s to %s ...", strings.Join(patterns, ","), dest))

	n, err := merge(patterns, workspaceRoot, dest)
	if err != nil {
		sink.Error(fmt.Sprintf("-- Error %v", err))
		return n, err
	}
	sink.Info("++ Done")
	return n, nil
}

func merge(patterns []string, workspaceRoot, dest string) (int, error) {
	if err := os.MkdirAll(dest, 0o750); err != nil {
		return 0, ferrors.FileSystemError("create tutorials directory").WithCause(err).WithContext("path", dest).Build()
	}

	copied := 0
	for _, pattern := range patterns {
		abs := paths.AsAbsolute(pattern, workspaceRoot)
		matches, err := doublestar.FilepathGlob(abs, doublestar.WithFilesOnly())
		if err != nil {
			return copied, ferrors.ValidationError("invalid tutorial pattern").
				WithCause(err).
				WithContext("pattern", pattern).
				Build()
		}
		for _, src := range matches {
			if err := copyFile(src, filepath.Join(dest, filepath.Base(src))); err != nil {
				return copied, err
			}
			copied++
		}
	}
	return copied, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // source comes from the user's tutorial globs
	if err != nil {
		return ferrors.FileSystemError("open tutorial").WithCause(err).WithContext("path", src).Build()
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst) //nolint:gosec // destination is inside the output directory
	if err != nil {
		return ferrors.FileSystemError("create tutorial copy").WithCause(err).WithContext("path", dst).Build()
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return ferrors.FileSystemError("copy tutorial").WithCause(err).WithContext("path", dst).Build()
	}
	if err := out.Close(); err != nil {
		return ferrors.FileSystemError("close tutorial copy").WithCause(err).WithContext("path", dst).Build()
	}
	return nil
}
