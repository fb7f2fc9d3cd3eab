package domain

import (
	"fmt"
	"time"
)

// Collection is one watched document library (a site/drive pair).
// Each collection carries its own delta cursor and is synced
// independently of the others.
type Collection struct {
	// SiteID is the owning site identifier.
	SiteID string

	// DriveID is the document library identifier.
	DriveID string

	// Name is an optional human-readable label for logs and CLI output.
	Name string
}

// ID returns the collection's stable identifier, used as the key for
// cursor persistence.
func (c Collection) ID() string {
	return fmt.Sprintf("%s_%s", c.SiteID, c.DriveID)
}

// SyncState tracks delta-sync progress for one collection.
// The cursor represents "all changes up to this point have been applied".
type SyncState struct {
	// CollectionID links to the Collection being synced.
	CollectionID string

	// Cursor is the opaque delta token. Empty means no cursor is
	// persisted and the next cycle performs a full enumeration.
	Cursor string

	// LastSync is when the cursor was last advanced.
	LastSync time.Time
}
