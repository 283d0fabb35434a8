package paths

import (
	"path/filepath"

	ferrors "git.home.luguber.info/inful/jsdocpreview/internal/foundation/errors"
)

// DefaultOutput is used when the output setting is empty.
const DefaultOutput = ".jsdocpreview"

const (
	siteDir      = "www"
	tutorialsDir = "tutorials"
	confFileName = "conf.json"
)

// OutputPaths derives the on-disk layout below a single output root.
type OutputPaths struct {
	Root string
}

// NewOutputPaths returns the layout rooted at root.
func NewOutputPaths(root string) OutputPaths {
	return OutputPaths{Root: root}
}

// WWW is the generated site destination.
func (p OutputPaths) WWW() string { return filepath.Join(p.Root, siteDir) }

// Tutorials holds merged tutorial sources.
func (p OutputPaths) Tutorials() string { return filepath.Join(p.Root, tutorialsDir) }

// ConfFile is where migrated inline configuration is written.
func (p OutputPaths) ConfFile() string { return filepath.Join(p.Root, confFileName) }

// ResolveOutputRoot makes the output setting absolute against the workspace root.
// A relative output without a workspace would land in an unpredictable place, so
// that case fails with a config error.
func ResolveOutputRoot(output, workspaceRoot string) (string, error) {
	if output == "" {
		output = DefaultOutput
	}
	if filepath.IsAbs(output) {
		return filepath.Clean(output), nil
	}
	if workspaceRoot == "" {
		return "", ferrors.ConfigError("There is no opening workspace").
			WithContext("output", output).
			Build()
	}
	return filepath.Join(workspaceRoot, output), nil
}

// AsAbsolute returns p unchanged when absolute, otherwise joined to root.
func AsAbsolute(p, root string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// IsWithin reports whether child equals parent or lies below it.
func IsWithin(parent, child string) bool {
	rel, err := filepath.Rel(filepath.Clean(parent), filepath.Clean(child))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !startsWithParent(rel) && !filepath.IsAbs(rel)
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && rel[2] == filepath.Separator
}
