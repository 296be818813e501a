package media

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ayload-server/internal/domain"
	"ayload-server/internal/provider"
)

const (
	maxVariants      = 4
	targetContainer  = "mp4"
	fallbackQuality  = "360p"
	placeholderThumb = "https://via.placeholder.com/400x225"
)

// Resolver answers metadata queries with a normalized, deduplicated,
// size-capped catalog of stream variants.
type Resolver struct {
	provider provider.Provider
	logger   *logrus.Logger
}

func NewResolver(p provider.Provider, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &Resolver{provider: p, logger: logger}
}

// Resolve queries the external provider, filters variants to the target
// container and deduplicates them by quality label so each quality appears
// once. Ordering is discovery order, not "best first".
func (r *Resolver) Resolve(ctx context.Context, url string) (*domain.VideoInfo, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}

	media, err := r.provider.Resolve(ctx, url)
	if err != nil {
		r.logger.WithField("url", url).Warnf("metadata resolution failed: %v", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrResolution, err)
	}

	info := &domain.VideoInfo{
		Title:     media.Title,
		Thumbnail: placeholderThumb,
		Duration:  formatDuration(media.Duration),
	}
	if len(media.Thumbnails) > 0 {
		info.Thumbnail = media.Thumbnails[len(media.Thumbnails)-1]
	}

	seen := make(map[string]struct{})
	for _, v := range media.Variants {
		if !strings.Contains(v.MimeType, targetContainer) || v.QualityLabel == "" {
			continue
		}
		if _, dup := seen[v.QualityLabel]; dup {
			continue
		}
		seen[v.QualityLabel] = struct{}{}
		info.Formats = append(info.Formats, domain.StreamVariant{
			Format:  strings.ToUpper(targetContainer),
			Quality: v.QualityLabel,
			Size:    formatSize(v.ContentLength),
			Type:    "video",
		})
	}

	if len(info.Formats) == 0 {
		if best, ok := bestVariant(media.Variants); ok {
			quality := best.QualityLabel
			if quality == "" {
				quality = fallbackQuality
			}
			info.Formats = append(info.Formats, domain.StreamVariant{
				Format:  strings.ToUpper(targetContainer),
				Quality: quality,
				Size:    formatSize(best.ContentLength),
				Type:    "video",
			})
		}
	}

	if len(info.Formats) > maxVariants {
		info.Formats = info.Formats[:maxVariants]
	}
	return info, nil
}

func bestVariant(variants []provider.Variant) (provider.Variant, bool) {
	var best provider.Variant
	found := false
	for _, v := range variants {
		if !found || v.Height > best.Height {
			best = v
			found = true
		}
	}
	return best, found
}

// formatSize renders a rounded megabyte figure when the byte length is
// known, never a fabricated number.
func formatSize(contentLength int64) string {
	if contentLength <= 0 {
		return "Unknown"
	}
	return fmt.Sprintf("%d MB", int64(math.Round(float64(contentLength)/(1024*1024))))
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "Unknown"
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
