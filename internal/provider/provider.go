package provider

import (
	"context"
	"io"
	"time"
)

// Variant is one concrete quality/container option reported by the provider.
type Variant struct {
	Itag          int
	MimeType      string
	QualityLabel  string
	Height        int
	ContentLength int64
	AudioChannels int
}

// Media is the provider's full view of one piece of content.
type Media struct {
	ID         string
	Title      string
	Duration   time.Duration
	Thumbnails []string
	Variants   []Variant

	// src carries the provider-private handle back into OpenStream.
	src any
}

// Provider is the external metadata/stream-resolution collaborator: it
// answers what streams exist for a URL and opens a readable byte stream for
// a chosen variant.
type Provider interface {
	Resolve(ctx context.Context, url string) (*Media, error)
	OpenStream(ctx context.Context, media *Media, variant Variant) (io.ReadCloser, int64, error)
}
