package domain

import (
	"fmt"
	"time"
)

// ItemRef identifies one item inside a watched drive.
// It mirrors the source's resource addressing: site, drive, item.
type ItemRef struct {
	// SiteID is the owning site identifier.
	SiteID string

	// DriveID is the document library (drive) identifier.
	DriveID string

	// ItemID is the drive item identifier.
	ItemID string
}

// DocumentID returns the stable document identifier for this item.
// It is derived deterministically from the full reference and never
// regenerated, so reprocessing the same item always targets the same
// set of index records.
func (r ItemRef) DocumentID() string {
	return fmt.Sprintf("%s_%s_%s", r.SiteID, r.DriveID, r.ItemID)
}

// Document represents one source item after download.
type Document struct {
	// ID is the stable identifier derived from the item reference.
	ID string

	// Ref is the source reference the document was fetched from.
	Ref ItemRef

	// Title is the human-readable title (falls back to the filename).
	Title string

	// Filename is the item name as reported by the source.
	Filename string

	// Content is the raw downloaded bytes.
	Content []byte

	// WebURL is the browsable location of the item.
	WebURL string

	// LastModified is the source's last-modified timestamp.
	LastModified time.Time

	// CreatedBy is the display name of the item's creator.
	CreatedBy string
}

// Chunk is the atomic indexable unit produced from a document.
// Chunk existence is entirely derived from its parent document: chunks
// are only ever created by a chunking pass and replaced wholesale by the
// next one.
type Chunk struct {
	// ID is globally unique and generated fresh on every chunking pass,
	// never reused across runs even for unchanged content.
	ID string

	// DocumentID links to the owning document.
	DocumentID string

	// Content is the chunk text, prefixed with a structured context
	// header naming the title and current section.
	Content string

	// Index is the ordinal position within the document.
	Index int

	// TotalChunks is the document's final chunk count, backfilled once
	// the full chunk list is known.
	TotalChunks int

	// Title is the owning document's title.
	Title string

	// SectionHeading is the heading in effect at this point in the text.
	SectionHeading string

	// PageNumber is the page in effect at this point in the text.
	PageNumber int

	// Embedding is the vector representation, attached after chunking.
	Embedding []float32

	// AllowedGroups is the flat set of group identifiers authorised to
	// see this chunk. Copied verbatim from the owning document's ACL
	// resolution; the index uses it for security trimming.
	AllowedGroups []string

	// Metadata contains caller-supplied key-value pairs carried onto
	// every chunk of the document.
	Metadata map[string]any
}

// ItemMetadata describes a drive item as reported by the content source.
// Fields the source omits are left at their zero value.
type ItemMetadata struct {
	// Name is the item's filename.
	Name string

	// Title is the display title, if distinct from the name.
	Title string

	// WebURL is the browsable location.
	WebURL string

	// LastModified is the source's last-modified timestamp.
	LastModified time.Time

	// CreatedBy is the creator's display name.
	CreatedBy string

	// IsFile reports whether the item is a file (folders are skipped).
	IsFile bool
}
