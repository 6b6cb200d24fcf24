package visual

import (
	"context"
	"strings"

	"aipedia/internal/core"
	"aipedia/internal/llm"
	"aipedia/internal/logger"
)

// PhotoSearcher finds one photo for a search term.
type PhotoSearcher interface {
	SearchPhoto(ctx context.Context, query string) (*Photo, error)
}

// ImageCache stores resolved images by search term.
type ImageCache interface {
	GetImage(term string) (core.Image, bool)
	PutImage(term string, img core.Image)
}

// Options are the user toggles read on each resolution.
type Options struct {
	AISuggestion bool
	Strategy     string
}

// Resolver finds an illustrative image for a topic.
type Resolver struct {
	photos    PhotoSearcher
	completer llm.Completer
	cache     ImageCache
}

// NewResolver creates a resolver. completer is only used when AI suggestion is on.
func NewResolver(photos PhotoSearcher, completer llm.Completer, cache ImageCache) *Resolver {
	return &Resolver{photos: photos, completer: completer, cache: cache}
}

// Resolve returns an image for topic, or nil. Failures never propagate:
// an article without an image is still an article.
func (r *Resolver) Resolve(ctx context.Context, topic string, opts Options) *core.Image {
	var terms []string
	if opts.AISuggestion && r.completer != nil {
		s := Suggest(ctx, r.completer, opts.Strategy, topic)
		if strings.EqualFold(opts.Strategy, StrategyV1) {
			terms = []string{s.Primary}
		} else {
			terms = s.Terms()
		}
	} else {
		terms = []string{topic}
	}
	if fields := strings.Fields(topic); len(fields) > 0 {
		terms = append(terms, fields[0])
	}

	tried := make(map[string]bool, len(terms))
	for _, term := range terms {
		key := strings.ToLower(strings.TrimSpace(term))
		if key == "" || tried[key] {
			continue
		}
		tried[key] = true

		if ctx.Err() != nil {
			return nil
		}
		if img, ok := r.lookup(ctx, term); ok {
			logger.Debug("Image resolved", "topic", topic, "term", term)
			return &img
		}
	}

	logger.Debug("No image found", "topic", topic, "terms", len(tried))
	return nil
}

func (r *Resolver) lookup(ctx context.Context, term string) (core.Image, bool) {
	if r.cache != nil {
		if img, ok := r.cache.GetImage(term); ok {
			return img, true
		}
	}

	photo, err := r.photos.SearchPhoto(ctx, term)
	if err != nil {
		logger.Debug("Image search failed", "term", term, "error", err)
		return core.Image{}, false
	}
	if photo == nil || photo.URLs.Regular == "" {
		return core.Image{}, false
	}

	img := photo.Image()
	if r.cache != nil {
		r.cache.PutImage(term, img)
	}
	return img, true
}
