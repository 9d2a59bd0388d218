package csaf

// RolieFeed is the top-level object of a ROLIE feed document.
type RolieFeed struct {
	Feed Feed `json:"feed"`
}

// Feed enumerates the advisory entries of one ROLIE feed.
type Feed struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Updated string      `json:"updated"`
	Link    []Link      `json:"link,omitempty"`
	Entry   []FeedEntry `json:"entry"`
}

// FeedEntry is a single advisory listed in a ROLIE feed.
type FeedEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Updated   string    `json:"updated"`
	Published string    `json:"published,omitempty"`
	Link      []Link    `json:"link"`
	Content   *Content  `json:"content,omitempty"`
	Format    *Format   `json:"format,omitempty"`
}

// Link is a ROLIE link relation. The walker consumes rel values of "self",
// "hash", and "signature".
type Link struct {
	Rel  string `json:"rel"`
	HRef string `json:"href"`
}

// Content carries the source URL of an entry's document.
type Content struct {
	Type string `json:"type,omitempty"`
	Src  string `json:"src"`
}

// Format declares the schema and version of an entry's document.
type Format struct {
	Schema  string `json:"schema,omitempty"`
	Version string `json:"version,omitempty"`
}
