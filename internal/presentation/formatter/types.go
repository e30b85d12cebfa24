package formatter

import (
	"fmt"
	"io"
	"time"

	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/core/stream"
	"github.com/penwyp/go-daystream/internal/util"
)

// IsoLayout renders UTC timestamps with millisecond precision.
const IsoLayout = "2006-01-02T15:04:05.000Z07:00"

const noActivity = "No activity"

// Formatter renders a clustered stream
type Formatter interface {
	Format(w io.Writer, clusters []stream.Cluster) error
}

// Options configure human-readable formatters
type Options struct {
	// Location used for clock times; nil means time.Local
	Location *time.Location
	// Width of the table in cells. Values below 40 fall back to 100.
	Width int
	// Color enables ANSI colors in the table
	Color bool
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

// New returns the formatter registered under name
func New(name string, opts Options) (Formatter, error) {
	switch name {
	case "table", "":
		return NewTableFormatter(opts), nil
	case "json":
		return NewJSONFormatter(), nil
	case "csv":
		return NewCSVFormatter(opts), nil
	case "summary":
		return NewSummaryFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format '%s' (expected table, json, csv or summary)", name)
	}
}

// isoTime formats t in UTC, e.g. 2024-01-01T10:00:00.000Z
func isoTime(t time.Time) string {
	return t.UTC().Format(IsoLayout)
}

func clock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

// label returns the single-line text shown for a primary or side entry
func label(item model.Item) string {
	return util.SingleLine(item.Title())
}

func sideLabel(side stream.SideItem, loc *time.Location) string {
	if side.Marker {
		return "── " + clock(side.Timestamp, loc) + " ──"
	}
	return fmt.Sprintf("[%s] %s", side.Item.Kind, label(side.Item))
}
