package formatter

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/penwyp/go-daystream/internal/core/model"
	"github.com/penwyp/go-daystream/internal/core/stream"
	"github.com/penwyp/go-daystream/internal/util"
)

type CSVFormatter struct {
	opts Options
}

func NewCSVFormatter(opts Options) *CSVFormatter {
	return &CSVFormatter{opts: opts}
}

var csvHeaders = []string{
	"Bucket", "Column", "Position", "Kind", "ID", "Timestamp", "Title", "Detail",
}

// Format writes one row per primary item, side item and marker
func (f *CSVFormatter) Format(w io.Writer, clusters []stream.Cluster) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeaders); err != nil {
		return err
	}

	for _, c := range clusters {
		bucket := isoTime(c.Time)
		for i, item := range c.PrimaryItems {
			if err := cw.Write(itemRecord(bucket, "primary", i, item)); err != nil {
				return err
			}
		}
		for i, side := range c.SideItems {
			var record []string
			if side.Marker {
				record = []string{
					bucket, "side", strconv.Itoa(i), string(model.KindMarker),
					side.ID, isoTime(side.Timestamp), side.Label, "",
				}
			} else {
				record = itemRecord(bucket, "side", i, side.Item)
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func itemRecord(bucket, column string, position int, item model.Item) []string {
	return []string{
		bucket,
		column,
		strconv.Itoa(position),
		string(item.Kind),
		item.ID,
		isoTime(item.Timestamp),
		util.SingleLine(item.Title()),
		item.Detail(),
	}
}
