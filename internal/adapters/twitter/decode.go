package twitter

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/ports"
)

const typenameUser = "User"

type typed struct {
	Typename string `json:"__typename"`
}

type userEnvelope struct {
	Data map[string]json.RawMessage `json:"data"`
}

type userContainer struct {
	Result json.RawMessage `json:"result"`
}

// userResult is an ordinary user. Its legacy signals count as asserted only
// when present and true.
type userResult struct {
	Typename string `json:"__typename"`
	RestID   string `json:"rest_id"`
	Legacy   struct {
		BlockedBy *bool `json:"blocked_by"`
		Protected *bool `json:"protected"`
		Following *bool `json:"following"`
	} `json:"legacy"`
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

func isBlank(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}"))
}

func rawItem(result json.RawMessage) (domain.RawItem, error) {
	var t typed
	if err := json.Unmarshal(result, &t); err != nil {
		return domain.RawItem{}, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	return domain.RawItem{Typename: t.Typename, Payload: result}, nil
}

// userResultOf unwraps data.<key>.result. Status is Missing for empty data
// and Withheld when the container or its result is null.
func userResultOf(body []byte, key string) (ports.LookupStatus, json.RawMessage, error) {
	var env userEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	if len(env.Data) == 0 {
		return ports.StatusMissing, nil, nil
	}

	container, ok := env.Data[key]
	if !ok || isBlank(container) {
		return ports.StatusWithheld, nil, nil
	}

	var c userContainer
	if err := json.Unmarshal(container, &c); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	if isBlank(c.Result) {
		return ports.StatusWithheld, nil, nil
	}
	return ports.StatusFound, c.Result, nil
}

func decodeUser(body []byte) (*ports.UserLookup, error) {
	status, result, err := userResultOf(body, "user")
	if err != nil {
		return nil, err
	}
	if status != ports.StatusFound {
		return &ports.UserLookup{Status: status}, nil
	}

	raw, err := rawItem(result)
	if err != nil {
		return nil, err
	}
	lookup := &ports.UserLookup{Status: ports.StatusFound, Result: raw}

	if raw.Typename == typenameUser {
		var u userResult
		if err := json.Unmarshal(result, &u); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
		}
		lookup.ID = u.RestID
		lookup.Signals = domain.Signals{
			BlockedBy: isTrue(u.Legacy.BlockedBy),
			Protected: isTrue(u.Legacy.Protected),
			Following: isTrue(u.Legacy.Following),
		}
	}
	return lookup, nil
}

type timelineResult struct {
	TimelineV2 *timelineWrapper `json:"timeline_v2"`
	Timeline   *timelineWrapper `json:"timeline"`
}

type timelineWrapper struct {
	Timeline struct {
		Instructions []instruction `json:"instructions"`
	} `json:"timeline"`
}

type instruction struct {
	Type        string       `json:"type"`
	Entries     []entry      `json:"entries"`
	ModuleItems []moduleItem `json:"moduleItems"`
}

type entry struct {
	EntryID string `json:"entryId"`
	Content struct {
		Typename    string       `json:"__typename"`
		EntryType   string       `json:"entryType"`
		CursorType  string       `json:"cursorType"`
		Value       string       `json:"value"`
		ItemContent *itemContent `json:"itemContent"`
		Items       []moduleItem `json:"items"`
	} `json:"content"`
}

func (e entry) kind() string {
	if e.Content.Typename != "" {
		return e.Content.Typename
	}
	return e.Content.EntryType
}

type moduleItem struct {
	Item struct {
		ItemContent *itemContent `json:"itemContent"`
	} `json:"item"`
}

type itemContent struct {
	TweetResults struct {
		Result json.RawMessage `json:"result"`
	} `json:"tweet_results"`
}

func (c *itemContent) result() json.RawMessage {
	if c == nil || isBlank(c.TweetResults.Result) {
		return nil
	}
	return c.TweetResults.Result
}

func decodeMedia(body []byte) (*ports.MediaTimeline, error) {
	status, result, err := userResultOf(body, "user")
	if err != nil {
		return nil, err
	}
	if status != ports.StatusFound {
		return &ports.MediaTimeline{Status: status}, nil
	}

	raw, err := rawItem(result)
	if err != nil {
		return nil, err
	}
	page := &ports.MediaTimeline{Status: ports.StatusFound, Result: raw}
	if raw.Typename != typenameUser {
		return page, nil
	}

	var tr timelineResult
	if err := json.Unmarshal(result, &tr); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	wrapper := tr.TimelineV2
	if wrapper == nil {
		wrapper = tr.Timeline
	}
	if wrapper == nil {
		return nil, fmt.Errorf("%w: user result has no timeline", domain.ErrMalformed)
	}

	items, cursor, err := timelineItems(wrapper.Timeline.Instructions)
	if err != nil {
		return nil, err
	}
	page.Items = items
	page.BottomCursor = cursor
	return page, nil
}

// timelineItems collects item results in listing order. Items appended to the
// media module on later pages take precedence over the module entry itself.
// Items without a result are skipped.
func timelineItems(instructions []instruction) ([]domain.RawItem, string, error) {
	var (
		moduleItems []moduleItem
		appended    []moduleItem
		results     []json.RawMessage
		cursor      string
		haveAppend  bool
	)

	for _, ins := range instructions {
		switch ins.Type {
		case "TimelineAddToModule":
			appended = append(appended, ins.ModuleItems...)
			haveAppend = true
		case "TimelineAddEntries":
			for _, e := range ins.Entries {
				switch e.kind() {
				case "TimelineTimelineModule":
					moduleItems = append(moduleItems, e.Content.Items...)
				case "TimelineTimelineItem":
					if r := e.Content.ItemContent.result(); r != nil {
						results = append(results, r)
					}
				case "TimelineTimelineCursor":
					if e.Content.CursorType == "Bottom" {
						cursor = e.Content.Value
					}
				}
			}
		}
	}

	if haveAppend {
		moduleItems = appended
	}

	var ordered []json.RawMessage
	for _, mi := range moduleItems {
		if r := mi.Item.ItemContent.result(); r != nil {
			ordered = append(ordered, r)
		}
	}
	ordered = append(ordered, results...)

	items := make([]domain.RawItem, 0, len(ordered))
	for _, r := range ordered {
		item, err := rawItem(r)
		if err != nil {
			return nil, "", err
		}
		items = append(items, item)
	}
	return items, cursor, nil
}

type tweetEnvelope struct {
	Data struct {
		TweetResult json.RawMessage `json:"tweetResult"`
	} `json:"data"`
}

func decodeItem(body []byte) (*ports.ItemLookup, error) {
	var env tweetEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	if isBlank(env.Data.TweetResult) {
		return &ports.ItemLookup{Status: ports.StatusMissing}, nil
	}

	var c userContainer
	if err := json.Unmarshal(env.Data.TweetResult, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	if isBlank(c.Result) {
		return &ports.ItemLookup{Status: ports.StatusMissing}, nil
	}

	raw, err := rawItem(c.Result)
	if err != nil {
		return nil, err
	}
	return &ports.ItemLookup{Status: ports.StatusFound, Result: raw}, nil
}
