package domain

import (
	"strings"
	"time"
)

// ParsedItem is a normalised fragment produced from a freshly parsed document.
type ParsedItem struct {
	// Fingerprint is the SHA-1 hex of RawIdentifier.
	Fingerprint string

	// RawIdentifier is the serialized pre-normalisation fragment
	// (or its first link, depending on the file's IDStrategy).
	RawIdentifier string

	// Category is the " / " joined heading path.
	Category string

	// CategoryHTML is Category rendered to HTML.
	CategoryHTML string

	// Markdown is the normalised fragment.
	Markdown string

	// HTML is Markdown rendered to HTML.
	HTML string

	// Line is the 1-based line of the fragment's last block.
	Line int
}

// ItemKey addresses one item in the store.
type ItemKey struct {
	SourceID    string
	File        string
	Fingerprint string
}

// String returns the "source:file:fingerprint" index key.
func (k ItemKey) String() string {
	return k.SourceID + ":" + k.File + ":" + k.Fingerprint
}

// ParseItemKey splits an index key. The fingerprint never contains ':',
// while the file may, so the key is split from both ends.
func ParseItemKey(s string) (ItemKey, bool) {
	source, rest, ok := strings.Cut(s, ":")
	if !ok {
		return ItemKey{}, false
	}
	i := strings.LastIndexByte(rest, ':')
	if i < 0 || source == "" || i == 0 || i == len(rest)-1 {
		return ItemKey{}, false
	}
	return ItemKey{SourceID: source, File: rest[:i], Fingerprint: rest[i+1:]}, true
}

// Item is the atomic tracked unit.
type Item struct {
	// SourceID and File identify the owning document.
	SourceID string
	File     string

	// Fingerprint identifies the item across re-fetches.
	Fingerprint string

	// Category is the inferred heading path, possibly empty.
	Category string

	// CategoryHTML is the rendered category.
	CategoryHTML string

	// Markdown is the formatted fragment.
	Markdown string

	// HTML is the rendered fragment.
	HTML string

	// FirstObservedAt is when the fingerprint was first seen.
	// It never changes once set.
	FirstObservedAt time.Time

	// LastCheckedAt is the last successful fetch still containing the item.
	LastCheckedAt time.Time

	// DayBucket is the day number of FirstObservedAt.
	DayBucket int

	// WeekBucket is the week number of FirstObservedAt.
	WeekBucket int
}

// Key returns the store key for the item.
func (i Item) Key() ItemKey {
	return ItemKey{SourceID: i.SourceID, File: i.File, Fingerprint: i.Fingerprint}
}

// IndexEntry returns the derived index row for the item.
func (i Item) IndexEntry() IndexEntry {
	return IndexEntry{
		Key:        i.Key(),
		Timestamp:  i.FirstObservedAt,
		DayBucket:  i.DayBucket,
		WeekBucket: i.WeekBucket,
	}
}

// IndexEntry is a row of the derived, rebuildable index.
type IndexEntry struct {
	Key        ItemKey
	Timestamp  time.Time
	DayBucket  int
	WeekBucket int
}

// IndexFilter selects index entries. Zero fields match everything.
type IndexFilter struct {
	// SourceIDs restricts entries to the listed sources.
	SourceIDs []string

	// File restricts entries to one file (requires a single SourceID).
	File string

	// Since keeps entries with Timestamp strictly after it.
	Since time.Time

	// Day keeps entries in this day bucket.
	Day int

	// Week keeps entries in this week bucket.
	Week int
}

// Matches reports whether e passes the filter.
func (f IndexFilter) Matches(e IndexEntry) bool {
	if len(f.SourceIDs) > 0 {
		found := false
		for _, id := range f.SourceIDs {
			if id == e.Key.SourceID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.File != "" && f.File != e.Key.File {
		return false
	}
	if !f.Since.IsZero() && !e.Timestamp.After(f.Since) {
		return false
	}
	if f.Day != 0 && f.Day != e.DayBucket {
		return false
	}
	if f.Week != 0 && f.Week != e.WeekBucket {
		return false
	}
	return true
}

// ReconcileResult summarises the merge of one file.
type ReconcileResult struct {
	// NewCount is the number of fingerprints not previously stored.
	NewCount int

	// TotalCount is the number of items stored after the merge.
	TotalCount int

	// LatestTimestamp is the newest FirstObservedAt among stored items.
	LatestTimestamp time.Time
}

// BlameLine is the commit that last touched one line.
type BlameLine struct {
	CommitHash  string
	CommittedAt time.Time
}

// Blame maps 1-based line numbers to their commit.
type Blame map[int]BlameLine
