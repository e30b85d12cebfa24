package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// Memo types
const (
	MemoText     = "text"
	MemoCode     = "code"
	MemoMarkdown = "markdown"
	MemoImage    = "image"
	MemoLink     = "link"
)

// Conversation turn types
const (
	TurnUser = "user"
	TurnAI   = "ai"
)

// Memo is a note written in the dashboard's main column.
type Memo struct {
	ID        FlexibleID `json:"id"`
	Timestamp string     `json:"timestamp"`
	Type      string     `json:"type"`
	Content   string     `json:"content"`
	Tags      []string   `json:"tags,omitempty"`
}

// AIConversationItem is a single turn of an AI chat.
type AIConversationItem struct {
	ID        FlexibleID `json:"id"`
	Timestamp string     `json:"timestamp"`
	Type      string     `json:"type"`
	Content   string     `json:"content"`
	Model     string     `json:"model,omitempty"`
}

type Bookmark struct {
	ID        FlexibleID `json:"id"`
	URL       string     `json:"url"`
	Title     string     `json:"title"`
	Timestamp string     `json:"timestamp"`
	Source    string     `json:"source,omitempty"`
}

// BrowserHistoryEntry is a page visit. Its time lives in visit_time rather
// than timestamp.
type BrowserHistoryEntry struct {
	ID        FlexibleID `json:"id"`
	URL       string     `json:"url"`
	Title     string     `json:"title"`
	VisitTime string     `json:"visit_time"`
	Source    string     `json:"source,omitempty"`
}

// FlexibleID accepts both numeric and string JSON identifiers.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	// First try a string
	var str string
	if err := sonic.Unmarshal(data, &str); err == nil {
		*id = FlexibleID(strings.TrimSpace(str))
		return nil
	}

	// Then a bare number, kept verbatim so large integers keep every digit
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*id = ""
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		*id = FlexibleID(raw)
		return nil
	}

	return fmt.Errorf("id must be either string or number")
}

func (id FlexibleID) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(string(id))
}

func (id FlexibleID) String() string {
	return string(id)
}

// FileEvent represents a file system event
type FileEvent struct {
	Path      string
	Operation string
}
