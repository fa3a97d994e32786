package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/compress"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"

	"aidash/internal/models"
)

// ExportFilename is the attachment name used for downloads.
const ExportFilename = "dados_filtrados"

// WriteCSV writes the rows of v, sorted by (Year, Country), with the input's
// header and raw cells. An empty view still produces the header.
func (cs *ColumnStore) WriteCSV(w io.Writer, v View) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cs.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, j := range cs.Table(v) {
		if err := cw.Write(cs.Raw[j]); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type columnKind int

const (
	kindString columnKind = iota
	kindYear
	kindVolume
	kindMetric
)

type exportColumn struct {
	kind   columnKind
	metric int
}

func (cs *ColumnStore) exportColumns() []exportColumn {
	cols := make([]exportColumn, len(cs.Header))
	for i, h := range cs.Header {
		h = strings.TrimSpace(h)
		switch {
		case h == models.YearColumn:
			cols[i] = exportColumn{kind: kindYear}
		case h == models.VolumeColumn:
			cols[i] = exportColumn{kind: kindVolume}
		case models.Metric(h).Index() >= 0:
			cols[i] = exportColumn{kind: kindMetric, metric: models.Metric(h).Index()}
		}
	}
	return cols
}

// ArrowSchema types the export: Year as int32, volume and metrics as float64, the rest as strings.
func (cs *ColumnStore) ArrowSchema() *arrow.Schema {
	cols := cs.exportColumns()
	fields := make([]arrow.Field, len(cs.Header))
	for i, h := range cs.Header {
		var typ arrow.DataType = arrow.BinaryTypes.String
		switch cols[i].kind {
		case kindYear:
			typ = arrow.PrimitiveTypes.Int32
		case kindVolume, kindMetric:
			typ = arrow.PrimitiveTypes.Float64
		}
		fields[i] = arrow.Field{Name: h, Type: typ}
	}
	return arrow.NewSchema(fields, nil)
}

// Record builds an Arrow record of the rows of v sorted by (Year, Country).
// The caller must Release it.
func (cs *ColumnStore) Record(mem memory.Allocator, v View) arrow.Record {
	cols := cs.exportColumns()
	rb := array.NewRecordBuilder(mem, cs.ArrowSchema())
	defer rb.Release()

	for _, j := range cs.Table(v) {
		for i, c := range cols {
			switch c.kind {
			case kindYear:
				rb.Field(i).(*array.Int32Builder).Append(cs.Years[j])
			case kindVolume:
				rb.Field(i).(*array.Float64Builder).Append(cs.Volumes[j])
			case kindMetric:
				rb.Field(i).(*array.Float64Builder).Append(cs.Metrics[c.metric][j])
			default:
				rb.Field(i).(*array.StringBuilder).Append(cs.Raw[j][i])
			}
		}
	}
	return rb.NewRecord()
}

// writeOnly hides any Close method of the sink; the parquet writer closes
// closable sinks and the caller owns w.
type writeOnly struct{ io.Writer }

// WriteParquet writes the rows of v as a snappy-compressed Parquet file.
func (cs *ColumnStore) WriteParquet(w io.Writer, v View) error {
	rec := cs.Record(memory.DefaultAllocator, v)
	defer rec.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	fw, err := pqarrow.NewFileWriter(rec.Schema(), writeOnly{w}, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	if rec.NumRows() > 0 {
		if err := fw.Write(rec); err != nil {
			fw.Close()
			return fmt.Errorf("write parquet: %w", err)
		}
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
