package model

import (
	"fmt"
	"time"
)

// Kind discriminates the source of a stream item.
type Kind string

const (
	KindMemo     Kind = "memo"
	KindAI       Kind = "ai"
	KindBookmark Kind = "bookmark"
	KindHistory  Kind = "history"
	KindMarker   Kind = "marker"
)

// SourceKinds lists every kind backed by a record type, in display order.
var SourceKinds = []Kind{KindMemo, KindAI, KindBookmark, KindHistory}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range SourceKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind '%s' (expected memo, ai, bookmark or history)", s)
}

// Item is the uniform shape every record is normalized to before clustering.
// Payload holds the original record: Memo, AIConversationItem, Bookmark or
// BrowserHistoryEntry.
type Item struct {
	ID        string
	Timestamp time.Time
	Kind      Kind
	Payload   any
}

// Key identifies an item across sources.
func (i Item) Key() string {
	return string(i.Kind) + ":" + i.ID
}

// Title returns a one-line human label for the item.
func (i Item) Title() string {
	switch p := i.Payload.(type) {
	case Memo:
		return p.Content
	case AIConversationItem:
		if p.Type == TurnAI && p.Model != "" {
			return p.Model + ": " + p.Content
		}
		return p.Type + ": " + p.Content
	case Bookmark:
		if p.Title != "" {
			return p.Title
		}
		return p.URL
	case BrowserHistoryEntry:
		if p.Title != "" {
			return p.Title
		}
		return p.URL
	default:
		return i.ID
	}
}

// Detail returns secondary information such as a URL or memo type.
func (i Item) Detail() string {
	switch p := i.Payload.(type) {
	case Memo:
		return p.Type
	case AIConversationItem:
		return p.Model
	case Bookmark:
		return p.URL
	case BrowserHistoryEntry:
		return p.URL
	default:
		return ""
	}
}
