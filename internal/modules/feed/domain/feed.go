package domain

// DefaultMaxItems applies when a feed does not set max_item
const DefaultMaxItems = 25

// DefaultTitle applies when the settings do not name the magazine
const DefaultTitle = "Rss"

// Settings is the persisted magazine configuration
type Settings struct {
	Title    string        `json:"title,omitempty"`
	FeedList []*FeedConfig `json:"feed_list"`
}

// FeedConfig represents one subscribed feed and its cursor
type FeedConfig struct {
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	LastLink *string `json:"last_link,omitempty"`
	MaxItems *int    `json:"max_item,omitempty"`
}

// MagazineTitle returns the configured title or the default
func (s *Settings) MagazineTitle() string {
	if s.Title == "" {
		return DefaultTitle
	}
	return s.Title
}

// Limit returns how many head entries of the feed are considered. Only an
// absent max_item defaults; an explicit 0 selects nothing.
func (f *FeedConfig) Limit() int {
	if f.MaxItems == nil {
		return DefaultMaxItems
	}
	return max(*f.MaxItems, 0)
}

// Advance moves the cursor to link
func (f *FeedConfig) Advance(link string) {
	f.LastLink = &link
}

// Entry is a feed item normalized at parse time
type Entry struct {
	Title          string
	Link           string
	RawContentHTML string
}

// FetchedFeed is a parsed feed, entries newest first
type FetchedFeed struct {
	Title   string
	Entries []Entry
}
