package colindex

import "time"

const (
	DefaultCursorTTL = time.Hour
	DefaultLimit     = 20
	DefaultCacheSize = 256

	// SearchAfterPredicate is the predicate column a host uses to pass the
	// cursor of the previous page.
	SearchAfterPredicate = "search_after_doc"
)
