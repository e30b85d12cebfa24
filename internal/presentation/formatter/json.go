package formatter

import (
	"io"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/core/stream"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

type jsonCluster struct {
	Time         string     `json:"time"`
	PrimaryItems []jsonItem `json:"primaryItems"`
	SideItems    []jsonItem `json:"sideItems"`
}

type jsonItem struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Label     string `json:"label,omitempty"`
	Title     string `json:"title,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

func newJSONItem(item model.Item) jsonItem {
	return jsonItem{
		Type:      string(item.Kind),
		ID:        item.ID,
		Timestamp: isoTime(item.Timestamp),
		Title:     item.Title(),
		Detail:    item.Detail(),
		Payload:   item.Payload,
	}
}

func (f *JSONFormatter) Format(w io.Writer, clusters []stream.Cluster) error {
	out := make([]jsonCluster, 0, len(clusters))
	for _, c := range clusters {
		jc := jsonCluster{
			Time:         isoTime(c.Time),
			PrimaryItems: make([]jsonItem, 0, len(c.PrimaryItems)),
			SideItems:    make([]jsonItem, 0, len(c.SideItems)),
		}
		for _, item := range c.PrimaryItems {
			jc.PrimaryItems = append(jc.PrimaryItems, newJSONItem(item))
		}
		for _, side := range c.SideItems {
			if side.Marker {
				jc.SideItems = append(jc.SideItems, jsonItem{
					Type:      string(model.KindMarker),
					ID:        side.ID,
					Timestamp: isoTime(side.Timestamp),
					Label:     side.Label,
				})
				continue
			}
			jc.SideItems = append(jc.SideItems, newJSONItem(side.Item))
		}
		out = append(out, jc)
	}

	data, err := sonic.ConfigStd.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
