package models

import "time"

// CounterState is the stored value of a counter at the time it was read
type CounterState struct {
	Structure string    `json:"structure"`
	Value     int64     `json:"value"`
	Found     bool      `json:"found"`
	ReadAt    time.Time `json:"read_at"`
}
