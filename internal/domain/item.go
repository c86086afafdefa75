package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Item is a canonical upstream item after variant resolution.
// Payload is the unwrapped item JSON exactly as the upstream sent it.
type Item struct {
	ID      string
	Payload json.RawMessage
}

// ItemURL builds the public URL for an item
func (i *Item) ItemURL() string {
	return fmt.Sprintf("https://x.com/i/status/%s", i.ID)
}

// RawItem is an undecoded upstream result tagged with its declared variant.
type RawItem struct {
	Typename string
	Payload  json.RawMessage
}

// MediaPage is one page of a target's media listing
type MediaPage struct {
	TargetID   string
	Cursor     string // cursor the page was fetched at, empty for the first page
	ItemIDs    []string
	NextCursor string
}

// RecacheEntry records how to re-derive a cached item from its listing page
type RecacheEntry struct {
	TargetID string
	Cursor   string
}

var (
	// Matches .../status/ID patterns
	itemURLPattern = regexp.MustCompile(`(?:twitter|x)\.com/[A-Za-z0-9_]+/status(?:es)?/(\d+)`)
	// Valid item id pattern
	itemIDPattern = regexp.MustCompile(`^\d+$`)
)

// ParseItemInput extracts an item id from a status URL or a bare id
func ParseItemInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty input")
	}

	if matches := itemURLPattern.FindStringSubmatch(input); len(matches) > 1 {
		return matches[1], nil
	}

	if itemIDPattern.MatchString(input) {
		return input, nil
	}

	return "", fmt.Errorf("invalid status URL or id: %s", input)
}
