package domain

// ChangeType represents the kind of change reported by the source.
type ChangeType int

const (
	// ChangeUpserted indicates a created or updated item. The change
	// feed does not distinguish the two; both take the same path
	// through the pipeline.
	ChangeUpserted ChangeType = iota

	// ChangeDeleted indicates a removed item.
	ChangeDeleted
)

// ItemChange is one change record from the source's change feed.
type ItemChange struct {
	// Ref identifies the changed item.
	Ref ItemRef

	// Type is the kind of change.
	Type ChangeType

	// IsFolder reports whether the item is a folder. Folder upserts are
	// skipped; folder deletions still purge any indexed children by
	// document identifier prefix handled at the source.
	IsFolder bool
}

// ChangePage is one page of the change feed.
// Exactly one of NextLink and DeltaLink is set on a well-formed page:
// NextLink continues the current walk, DeltaLink is the final cursor
// token to persist for the next cycle.
type ChangePage struct {
	// Items are the change records on this page.
	Items []ItemChange

	// NextLink is the continuation reference for the next page, if any.
	NextLink string

	// DeltaLink is the final cursor token, present on the last page.
	DeltaLink string
}
