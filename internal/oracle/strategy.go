package oracle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DisplaySource is a live view of the balance display.
type DisplaySource interface {
	// Display returns the current balance text and its currency; ok is false
	// while nothing has been received.
	Display() (text, currency string, ok bool)
}

// FeedStrategy reads the balance display pushed over the live feed.
type FeedStrategy struct {
	Source DisplaySource
}

func (s *FeedStrategy) Name() string { return "feed" }

func (s *FeedStrategy) Extract(_ context.Context) (Reading, error) {
	if s.Source == nil {
		return Reading{}, errors.New("no display source")
	}
	text, currency, ok := s.Source.Display()
	if !ok {
		return Reading{}, errors.New("display not available")
	}
	return Reading{Text: text, Currency: strings.ToLower(currency)}, nil
}

// FileStrategy reads a balance exported to a text file by an external scraper.
// The file holds either the display text alone or "currency:text".
type FileStrategy struct {
	Path string
}

func (s *FileStrategy) Name() string { return "file" }

func (s *FileStrategy) Extract(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Reading{}, fmt.Errorf("read balance file: %w", err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(data)), "\n")
	if cur, text, ok := strings.Cut(line, ":"); ok && isCurrencyCode(strings.TrimSpace(cur)) {
		return Reading{Text: strings.TrimSpace(text), Currency: strings.ToLower(strings.TrimSpace(cur))}, nil
	}
	return Reading{Text: line}, nil
}

func isCurrencyCode(s string) bool {
	if s == "" || len(s) > 10 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
