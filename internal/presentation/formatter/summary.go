package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/core/stream"
	"github.com/penwyp/go-daystream/internal/util"
)

// SummaryFormatter reports counts for a stream rather than its contents.
type SummaryFormatter struct {
	opts Options
}

// NewSummaryFormatter creates a new instance of SummaryFormatter.
func NewSummaryFormatter(opts Options) *SummaryFormatter {
	return &SummaryFormatter{opts: opts}
}

// Format writes totals, per-kind counts and the busiest bucket.
func (f *SummaryFormatter) Format(w io.Writer, clusters []stream.Cluster) error {
	if len(clusters) == 0 {
		_, err := fmt.Fprintln(w, noActivity)
		return err
	}

	loc := f.opts.location()
	counts := stream.Count(clusters)

	var b strings.Builder
	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString("Daystream Summary\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	first, last := clusters[0].Time, clusters[len(clusters)-1].Time
	fmt.Fprintf(&b, "Day: %s\n", first.In(loc).Format(util.DateLayout))
	if len(clusters) == 1 {
		fmt.Fprintf(&b, "Buckets: 1 (%s)\n", clock(first, loc))
	} else {
		fmt.Fprintf(&b, "Buckets: %d (%s to %s)\n", len(clusters), clock(first, loc), clock(last, loc))
	}
	fmt.Fprintf(&b, "Items: %s (primary %d, side %d, %s)\n",
		util.FormatNumber(counts.Items()), counts.Primary, counts.Side,
		util.Pluralize(counts.Markers, "marker", "markers"))
	b.WriteString("\n")

	b.WriteString("By kind:\n")
	for _, kind := range model.SourceKinds {
		if n := counts.ByKind[kind]; n > 0 {
			fmt.Fprintf(&b, "  %s %d\n", util.PadString(string(kind), 10, true), n)
		}
	}
	b.WriteString("\n")

	busiest := clusters[0]
	busiestCount := itemCount(busiest)
	for _, c := range clusters[1:] {
		if n := itemCount(c); n > busiestCount {
			busiest, busiestCount = c, n
		}
	}
	fmt.Fprintf(&b, "Busiest bucket: %s (%s)\n", clock(busiest.Time, loc), util.Pluralize(busiestCount, "item", "items"))
	b.WriteString(strings.Repeat("=", 60) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func itemCount(c stream.Cluster) int {
	n := len(c.PrimaryItems)
	for _, side := range c.SideItems {
		if !side.Marker {
			n++
		}
	}
	return n
}
