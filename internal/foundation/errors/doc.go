// Package errors provides the classified error primitives used across jsdocpreview.
//
// Every failure that crosses a component boundary is a ClassifiedError carrying a
// category (config, generator, server, filesystem, ...), a severity, a retry
// strategy and structured context. Adapters turn them into CLI exit codes and
// plain-text HTTP responses.
//
// Example usage:
//
//	err := errors.GeneratorError("non-zero exit").
//		WithContext("exit_code", 2).
//		WithCause(waitErr).
//		Build()
package errors
