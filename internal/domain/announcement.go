package domain

// Announcement is a single entry from the exchange announcement feed.
// ID is the dedup key: the feed's article id when present, the title otherwise.
type Announcement struct {
	ID    string
	Title string
	Href  string
	// PublishedAt is unix milliseconds. Zero means the feed carried no usable
	// timestamp for this entry.
	PublishedAt int64
}

// ListingEvent is emitted once per detected futures listing.
type ListingEvent struct {
	Symbol string
}
