package fileops

import "errors"

var (
	// ErrUnsafePath indicates a change path that is absolute, traverses
	// upward, or escapes the repository root
	ErrUnsafePath = errors.New("unsafe file path")

	// ErrTargetExists indicates a created file's target already exists
	ErrTargetExists = errors.New("target file already exists")

	// ErrUnknownChangeType indicates an unrecognized change type
	ErrUnknownChangeType = errors.New("unknown change type")
)
