package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/TFMV/onebrc/record"
	"github.com/TFMV/onebrc/stats"
)

// Compression selects the Arrow IPC body compression.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionLZ4
	CompressionZstd
)

var compressionNames = []string{
	CompressionNone: "none",
	CompressionLZ4:  "lz4",
	CompressionZstd: "zstd",
}

func (c Compression) String() string {
	if int(c) < 0 || int(c) >= len(compressionNames) {
		return fmt.Sprintf("Compression(%d)", int(c))
	}
	return compressionNames[c]
}

// ParseCompression parses a compression name.
func ParseCompression(s string) (Compression, error) {
	for i, name := range compressionNames {
		if strings.EqualFold(s, name) {
			return Compression(i), nil
		}
	}
	return 0, fmt.Errorf("unknown compression %q (want one of %s)", s, strings.Join(compressionNames, ", "))
}

// Schema is the Arrow layout of a report.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "key", Type: arrow.BinaryTypes.String},
	{Name: "min", Type: arrow.PrimitiveTypes.Float64},
	{Name: "mean", Type: arrow.PrimitiveTypes.Float64},
	{Name: "max", Type: arrow.PrimitiveTypes.Float64},
	{Name: "count", Type: arrow.PrimitiveTypes.Int64},
}, nil)

// NewRecord builds a single Arrow record from sums. The caller releases it.
func NewRecord(mem memory.Allocator, sums []stats.Summary) arrow.Record {
	b := array.NewRecordBuilder(mem, Schema)
	defer b.Release()

	keys := b.Field(0).(*array.StringBuilder)
	mins := b.Field(1).(*array.Float64Builder)
	means := b.Field(2).(*array.Float64Builder)
	maxs := b.Field(3).(*array.Float64Builder)
	counts := b.Field(4).(*array.Int64Builder)

	b.Reserve(len(sums))
	for _, s := range sums {
		keys.Append(s.Key)
		mins.Append(s.Min.Float64())
		means.Append(s.Mean.Float64())
		maxs.Append(s.Max.Float64())
		counts.Append(s.Count)
	}

	return b.NewRecord()
}

// WriteArrow writes sums to w as an Arrow IPC stream.
func WriteArrow(w io.Writer, sums []stats.Summary, c Compression) error {
	mem := memory.NewGoAllocator()

	rec := NewRecord(mem, sums)
	defer rec.Release()

	opts := []ipc.Option{ipc.WithSchema(Schema), ipc.WithAllocator(mem)}
	switch c {
	case CompressionLZ4:
		opts = append(opts, ipc.WithLZ4())
	case CompressionZstd:
		opts = append(opts, ipc.WithZstd())
	}

	wr := ipc.NewWriter(w, opts...)
	if err := wr.Write(rec); err != nil {
		wr.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}

	if err := wr.Close(); err != nil {
		return fmt.Errorf("close arrow stream: %w", err)
	}
	return nil
}

// ReadArrow reads summaries from an Arrow IPC stream written by WriteArrow.
func ReadArrow(r io.Reader) ([]stats.Summary, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("open arrow stream: %w", err)
	}
	defer rdr.Release()

	if !rdr.Schema().Equal(Schema) {
		return nil, fmt.Errorf("unexpected arrow schema: %v", rdr.Schema())
	}

	var out []stats.Summary
	for rdr.Next() {
		rec := rdr.Record()

		keys := rec.Column(0).(*array.String)
		mins := rec.Column(1).(*array.Float64)
		means := rec.Column(2).(*array.Float64)
		maxs := rec.Column(3).(*array.Float64)
		counts := rec.Column(4).(*array.Int64)

		for i := 0; i < int(rec.NumRows()); i++ {
			out = append(out, stats.Summary{
				Key:   strings.Clone(keys.Value(i)),
				Min:   record.TenthsFromFloat(mins.Value(i)),
				Mean:  record.TenthsFromFloat(means.Value(i)),
				Max:   record.TenthsFromFloat(maxs.Value(i)),
				Count: counts.Value(i),
			})
		}
	}

	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("read arrow stream: %w", err)
	}
	return out, nil
}
