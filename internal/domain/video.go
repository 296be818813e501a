package domain

// StreamVariant is one row of the metadata catalog: a concrete
// quality/container option for a piece of media.
type StreamVariant struct {
	Format  string
	Quality string
	Size    string
	Type    string
}

// VideoInfo is the normalized answer to "what streams exist for this URL".
type VideoInfo struct {
	Title     string
	Thumbnail string
	Duration  string
	Formats   []StreamVariant
}
