package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors are returned by the organizers and loaders. Progress tracking
// itself never surfaces storage or catalog failures to callers.
// -----------------------------------------------------------------------------

// Catalog errors
var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrCatalogEmpty     = errors.New("catalog is empty")
)

// Progress errors
var (
	ErrInvalidProgress = errors.New("reading progress must be between 0 and 100")
	ErrInvalidExport   = errors.New("invalid export payload")
)

// Bookmark errors
var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrTagNotFound        = errors.New("tag not found")
	ErrEmptyName          = errors.New("name must not be empty")
	ErrDuplicateName      = errors.New("name already in use")
)
