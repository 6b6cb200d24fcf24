package handlers

import (
	"fmt"
	"net/url"
	"strings"

	"aipedia/internal/core"
)

// ShareQuery encodes a search as a query string that ParseShareURL reads back.
func ShareQuery(req core.SearchRequest) string {
	return "?q=" + url.QueryEscape(req.Topic) +
		"&lang=" + url.QueryEscape(req.Language) +
		"&style=" + url.QueryEscape(string(req.Style))
}

// ParseShareURL reads a search from a full share URL or a bare query string.
// Missing lang and style fall back to en and normal.
func ParseShareURL(raw string) (core.SearchRequest, error) {
	raw = strings.TrimSpace(raw)
	query := raw
	if i := strings.Index(raw, "?"); i >= 0 {
		query = raw[i+1:]
	}
	if i := strings.Index(query, "#"); i >= 0 {
		query = query[:i]
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return core.SearchRequest{}, fmt.Errorf("invalid share link: %w", err)
	}

	req, err := core.NewSearchRequest(values.Get("q"), values.Get("lang"), core.ParseWritingStyle(values.Get("style")))
	if err != nil {
		return core.SearchRequest{}, fmt.Errorf("share link has no topic: %w", err)
	}
	return req, nil
}
