package catalog

import "errors"

// Catalog lookup errors.
var (
	// ErrUnknownRole is returned for a role outside the catalog.
	ErrUnknownRole = errors.New("unknown role")

	// ErrUnknownTier is returned for a tier a role has no variant for.
	ErrUnknownTier = errors.New("unknown tier")
)
