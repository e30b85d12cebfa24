package constants

import "time"

const (
	// BucketSize is the wall-clock alignment of stream clusters (:00, :10, ... :50).
	BucketSize = 10 * time.Minute

	// GapThreshold is the silence between two side items after which a time
	// marker is inserted. Independent of BucketSize even though equal today.
	GapThreshold = 10 * time.Minute

	// WatchDebounce coalesces bursts of file events into one re-render.
	WatchDebounce = 500 * time.Millisecond

	// MarkerLabelLayout is the wall-clock label rendered for time markers.
	MarkerLabelLayout = "15:04"
)
