package media

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ayload-server/internal/domain"
	"ayload-server/internal/provider"
)

type fakeProvider struct {
	media *provider.Media
	err   error
}

func (f *fakeProvider) Resolve(ctx context.Context, url string) (*provider.Media, error) {
	return f.media, f.err
}

func (f *fakeProvider) OpenStream(ctx context.Context, media *provider.Media, variant provider.Variant) (io.ReadCloser, int64, error) {
	return nil, 0, errors.New("not implemented")
}

func mp4Variant(label string, height int, size int64) provider.Variant {
	return provider.Variant{
		MimeType:      `video/mp4; codecs="avc1.4d401f"`,
		QualityLabel:  label,
		Height:        height,
		ContentLength: size,
		AudioChannels: 2,
	}
}

func TestResolveRejectsEmptyURL(t *testing.T) {
	r := NewResolver(&fakeProvider{}, nil)

	_, err := r.Resolve(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResolveWrapsProviderFailure(t *testing.T) {
	r := NewResolver(&fakeProvider{err: errors.New("video unavailable")}, nil)

	_, err := r.Resolve(context.Background(), "https://example.test/v1")
	assert.ErrorIs(t, err, domain.ErrResolution)
	assert.Contains(t, err.Error(), "video unavailable")
}

func TestResolveDeduplicatesByQualityLabel(t *testing.T) {
	// Five mp4 variants with three distinct labels must yield exactly three
	// formats, first occurrence winning.
	p := &fakeProvider{media: &provider.Media{
		Title:    "demo",
		Duration: 90 * time.Second,
		Variants: []provider.Variant{
			mp4Variant("720p", 720, 30<<20),
			mp4Variant("720p", 720, 25<<20),
			mp4Variant("360p", 360, 10<<20),
			mp4Variant("1080p", 1080, 0),
			mp4Variant("360p", 360, 12<<20),
		},
	}}
	r := NewResolver(p, nil)

	info, err := r.Resolve(context.Background(), "https://example.test/v1")
	require.NoError(t, err)
	require.Len(t, info.Formats, 3)

	assert.Equal(t, "720p", info.Formats[0].Quality)
	assert.Equal(t, "30 MB", info.Formats[0].Size)
	assert.Equal(t, "360p", info.Formats[1].Quality)
	assert.Equal(t, "10 MB", info.Formats[1].Size)
	assert.Equal(t, "1080p", info.Formats[2].Quality)
	assert.Equal(t, "Unknown", info.Formats[2].Size)
	assert.Equal(t, "1:30", info.Duration)
}

func TestResolveCapsVariantCount(t *testing.T) {
	p := &fakeProvider{media: &provider.Media{
		Variants: []provider.Variant{
			mp4Variant("2160p", 2160, 1<<30),
			mp4Variant("1440p", 1440, 1<<29),
			mp4Variant("1080p", 1080, 1<<28),
			mp4Variant("720p", 720, 1<<27),
			mp4Variant("480p", 480, 1<<26),
			mp4Variant("360p", 360, 1<<25),
		},
	}}
	r := NewResolver(p, nil)

	info, err := r.Resolve(context.Background(), "https://example.test/v1")
	require.NoError(t, err)
	assert.Len(t, info.Formats, 4)
}

func TestResolveFallsBackToBestVariant(t *testing.T) {
	// No mp4 variant with a quality label: the provider's best stream is
	// offered instead, with the default label when none is reported.
	p := &fakeProvider{media: &provider.Media{
		Variants: []provider.Variant{
			{MimeType: "video/webm", Height: 480, ContentLength: 5 << 20},
			{MimeType: "video/webm", Height: 720, ContentLength: 8 << 20},
		},
	}}
	r := NewResolver(p, nil)

	info, err := r.Resolve(context.Background(), "https://example.test/v1")
	require.NoError(t, err)
	require.Len(t, info.Formats, 1)
	assert.Equal(t, "360p", info.Formats[0].Quality)
	assert.Equal(t, "8 MB", info.Formats[0].Size)
}

func TestResolveThumbnailAndDurationDefaults(t *testing.T) {
	p := &fakeProvider{media: &provider.Media{Title: "bare"}}
	r := NewResolver(p, nil)

	info, err := r.Resolve(context.Background(), "https://example.test/v1")
	require.NoError(t, err)
	assert.Equal(t, placeholderThumb, info.Thumbnail)
	assert.Equal(t, "Unknown", info.Duration)
	assert.Empty(t, info.Formats)
}

func TestResolvePicksLastThumbnail(t *testing.T) {
	p := &fakeProvider{media: &provider.Media{
		Thumbnails: []string{"small.jpg", "medium.jpg", "large.jpg"},
	}}
	r := NewResolver(p, nil)

	info, err := r.Resolve(context.Background(), "https://example.test/v1")
	require.NoError(t, err)
	assert.Equal(t, "large.jpg", info.Thumbnail)
}
