// Package apperr holds sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidComponent = errors.New("invalid component")
	ErrScriptSyntax     = errors.New("script syntax error")
	ErrInvalidInput     = errors.New("invalid input")
)
