package provider

import (
	"context"
	"fmt"
	"io"

	"github.com/kkdai/youtube/v2"
)

// YouTube implements Provider on top of the youtube extraction library.
type YouTube struct {
	client youtube.Client
}

func NewYouTube() *YouTube {
	return &YouTube{}
}

func (p *YouTube) Resolve(ctx context.Context, url string) (*Media, error) {
	video, err := p.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}

	media := &Media{
		ID:       video.ID,
		Title:    video.Title,
		Duration: video.Duration,
		src:      video,
	}
	for _, thumb := range video.Thumbnails {
		media.Thumbnails = append(media.Thumbnails, thumb.URL)
	}
	for _, f := range video.Formats {
		media.Variants = append(media.Variants, Variant{
			Itag:          f.ItagNo,
			MimeType:      f.MimeType,
			QualityLabel:  f.QualityLabel,
			Height:        f.Height,
			ContentLength: f.ContentLength,
			AudioChannels: f.AudioChannels,
		})
	}
	return media, nil
}

func (p *YouTube) OpenStream(ctx context.Context, media *Media, variant Variant) (io.ReadCloser, int64, error) {
	video, ok := media.src.(*youtube.Video)
	if !ok {
		return nil, 0, fmt.Errorf("media was not resolved by this provider")
	}
	for i := range video.Formats {
		if video.Formats[i].ItagNo == variant.Itag {
			return p.client.GetStreamContext(ctx, video, &video.Formats[i])
		}
	}
	return nil, 0, fmt.Errorf("variant itag %d not present", variant.Itag)
}

var _ Provider = (*YouTube)(nil)
