package paths

import "path/filepath"

// ResolveScanDirectory decides which directory to hand to the generator for a
// saved file. The candidate is the file's parent directory.
//
// When any configured include path covers the candidate (either one contains
// the other) the generator's own include set already governs scope and ok is
// false. Otherwise the candidate is returned so only that subtree is scanned.
// Without include paths the candidate is always returned.
func ResolveScanDirectory(savedFile string, includes []string, workspaceRoot string) (dir string, ok bool) {
	return ResolveScanDirectoryForDir(filepath.Dir(savedFile), includes, workspaceRoot)
}

// ResolveScanDirectoryForDir is ResolveScanDirectory with an explicit candidate
// directory, used when the trigger is a directory rather than a file.
func ResolveScanDirectoryForDir(candidate string, includes []string, workspaceRoot string) (string, bool) {
	candidate = filepath.Clean(candidate)
	for _, include := range includes {
		if include == "" {
			continue
		}
		abs := AsAbsolute(include, workspaceRoot)
		if IsWithin(abs, candidate) || IsWithin(candidate, abs) {
			return "", false
		}
	}
	return candidate, true
}
