// Package paths computes the absolute locations jsdocpreview reads and writes.
//
// Everything here is a pure function of the current settings and the workspace
// root, with the exception of DetectWorkspaceRoot which inspects the filesystem.
// Output paths are recomputed on every access because settings may change
// between two regenerations.
package paths
