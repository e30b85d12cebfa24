package formatter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/penwyp/go-daystream/internal/core/stream"
	"github.com/penwyp/go-daystream/internal/util"
)

const (
	defaultTableWidth = 100
	minTableWidth     = 40
	minColumnWidth    = 10
)

type TableFormatter struct {
	opts    Options
	headers []string
}

func NewTableFormatter(opts Options) *TableFormatter {
	return &TableFormatter{
		opts:    opts,
		headers: []string{"Time", "Primary", "Side"},
	}
}

type tableCell struct {
	text  string
	color string
}

// Format prints one block of rows per cluster: the primary column on the
// left and the interleaved side column on the right.
func (f *TableFormatter) Format(w io.Writer, clusters []stream.Cluster) error {
	if len(clusters) == 0 {
		_, err := fmt.Fprintln(w, noActivity)
		return err
	}

	loc := f.opts.location()
	blocks := make([][][]tableCell, 0, len(clusters))
	for _, c := range clusters {
		blocks = append(blocks, f.clusterRows(c, loc))
	}

	widths := f.calculateColumnWidths(blocks)

	var b strings.Builder
	f.printBorder(&b, widths, "top")
	header := make([]tableCell, len(f.headers))
	for i, h := range f.headers {
		header[i] = tableCell{text: h, color: util.ColorBold}
	}
	f.printRow(&b, header, widths)
	f.printBorder(&b, widths, "middle")

	for i, rows := range blocks {
		for _, row := range rows {
			f.printRow(&b, row, widths)
		}
		if i < len(blocks)-1 {
			f.printBorder(&b, widths, "middle")
		}
	}
	f.printBorder(&b, widths, "bottom")

	_, err := io.WriteString(w, b.String())
	return err
}

func (f *TableFormatter) clusterRows(c stream.Cluster, loc *time.Location) [][]tableCell {
	n := len(c.PrimaryItems)
	if len(c.SideItems) > n {
		n = len(c.SideItems)
	}
	if n == 0 {
		n = 1
	}

	rows := make([][]tableCell, n)
	for i := range rows {
		row := make([]tableCell, 3)
		if i == 0 {
			row[0] = tableCell{text: clock(c.Time, loc), color: util.ColorYellow}
		}
		if i < len(c.PrimaryItems) {
			item := c.PrimaryItems[i]
			row[1] = tableCell{text: clock(item.Timestamp, loc) + " " + label(item)}
		}
		if i < len(c.SideItems) {
			side := c.SideItems[i]
			color := util.ColorCyan
			if side.Marker {
				color = util.ColorGray
			}
			row[2] = tableCell{text: sideLabel(side, loc), color: color}
		}
		rows[i] = row
	}
	return rows
}

// calculateColumnWidths sizes columns to their content, then shrinks the
// primary and side columns until the table fits the available width.
func (f *TableFormatter) calculateColumnWidths(blocks [][][]tableCell) []int {
	widths := make([]int, len(f.headers))
	for i, header := range f.headers {
		widths[i] = util.GetDisplayWidth(header)
	}

	for _, rows := range blocks {
		for _, row := range rows {
			for i, cell := range row {
				if w := util.GetDisplayWidth(cell.text); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}

	// Each column adds two padding spaces and one border; plus the leading border.
	available := f.maxWidth() - (len(widths)*3 + 1) - widths[0]
	if available < 2*minColumnWidth {
		available = 2 * minColumnWidth
	}

	for widths[1]+widths[2] > available {
		if widths[1] >= widths[2] && widths[1] > minColumnWidth {
			widths[1]--
		} else if widths[2] > minColumnWidth {
			widths[2]--
		} else {
			break
		}
	}
	return widths
}

func (f *TableFormatter) maxWidth() int {
	if f.opts.Width >= minTableWidth {
		return f.opts.Width
	}
	return defaultTableWidth
}

// printBorder prints table borders (top, middle, bottom)
func (f *TableFormatter) printBorder(b *strings.Builder, widths []int, borderType string) {
	var left, middle, right, separator string

	switch borderType {
	case "top":
		left, middle, right, separator = "┌", "┬", "┐", "─"
	case "middle":
		left, middle, right, separator = "├", "┼", "┤", "─"
	case "bottom":
		left, middle, right, separator = "└", "┴", "┘", "─"
	}

	b.WriteString(left)
	for i, width := range widths {
		b.WriteString(strings.Repeat(separator, width+2)) // +2 for padding spaces
		if i < len(widths)-1 {
			b.WriteString(middle)
		}
	}
	b.WriteString(right + "\n")
}

// printRow prints a row, clipping cells that exceed their column
func (f *TableFormatter) printRow(b *strings.Builder, cells []tableCell, widths []int) {
	b.WriteString("│")
	for i, cell := range cells {
		text := util.PadString(util.TruncateString(cell.text, widths[i]), widths[i], true)
		if f.opts.Color {
			text = util.Colorize(text, cell.color)
		}
		b.WriteString(" " + text + " │")
	}
	b.WriteString("\n")
}
