package store

import (
	"time"

	"github.com/penwyp/go-daystream/internal/core/model"
)

type Import struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source"`
	Count     int       `json:"count"`
}

type ImportResult struct {
	Import
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// DayCount is the number of stored records on one local calendar day.
type DayCount struct {
	Day    string             `json:"day"`
	Count  int                `json:"count"`
	ByKind map[model.Kind]int `json:"by_kind"`
}
