package report

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/TFMV/onebrc/stats"
)

type jsonSummary struct {
	Key   string  `json:"key"`
	Min   float64 `json:"min"`
	Mean  float64 `json:"mean"`
	Max   float64 `json:"max"`
	Count int64   `json:"count"`
}

// WriteJSON writes sums as a JSON array, one object per key.
func WriteJSON(w io.Writer, sums []stats.Summary) error {
	out := make([]jsonSummary, len(sums))
	for i, s := range sums {
		out[i] = jsonSummary{
			Key:   s.Key,
			Min:   s.Min.Float64(),
			Mean:  s.Mean.Float64(),
			Max:   s.Max.Float64(),
			Count: s.Count,
		}
	}

	return json.NewEncoder(w).Encode(out)
}
