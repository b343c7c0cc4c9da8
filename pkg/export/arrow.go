// Package export persists run artifacts in columnar form so downstream
// analysis tooling can load generation histories without touching the
// engine.
package export

import (
	"context"
	"os"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/apache/arrow/go/v13/parquet"
	"github.com/apache/arrow/go/v13/parquet/compress"
	"github.com/apache/arrow/go/v13/parquet/file"
	"github.com/apache/arrow/go/v13/parquet/pqarrow"

	"github.com/evoforge/evoforge/pkg/engine"
	"github.com/evoforge/evoforge/pkg/errors"
)

var historySchema = arrow.NewSchema([]arrow.Field{
	{Name: "run_id", Type: arrow.BinaryTypes.String},
	{Name: "generation", Type: arrow.PrimitiveTypes.Int64},
	{Name: "best", Type: arrow.PrimitiveTypes.Float64},
	{Name: "mean", Type: arrow.PrimitiveTypes.Float64},
	{Name: "worst", Type: arrow.PrimitiveTypes.Float64},
	{Name: "valid_offspring", Type: arrow.PrimitiveTypes.Int64},
}, nil)

// historyRecord builds one Arrow record holding the full generation history
// of a run. The caller owns the returned record and must Release it.
func historyRecord(result *engine.RunResult) arrow.Record {
	builder := array.NewRecordBuilder(memory.DefaultAllocator, historySchema)
	defer builder.Release()

	runIDs := builder.Field(0).(*array.StringBuilder)
	generations := builder.Field(1).(*array.Int64Builder)
	bests := builder.Field(2).(*array.Float64Builder)
	means := builder.Field(3).(*array.Float64Builder)
	worsts := builder.Field(4).(*array.Float64Builder)
	valids := builder.Field(5).(*array.Int64Builder)

	for _, summary := range result.History {
		runIDs.Append(result.RunID)
		generations.Append(int64(summary.Generation))
		bests.Append(summary.Best)
		means.Append(summary.Mean)
		worsts.Append(summary.Worst)
		valids.Append(int64(summary.ValidOffspring))
	}

	return builder.NewRecord()
}

// WriteHistory writes the run's generation history as a Parquet file.
func WriteHistory(result *engine.RunResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to create history file")
	}
	defer f.Close()

	writer, err := pqarrow.NewFileWriter(historySchema, f,
		parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy)),
		pqarrow.DefaultWriterProps())
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to open parquet writer")
	}

	record := historyRecord(result)
	defer record.Release()

	if err := writer.Write(record); err != nil {
		writer.Close()
		return errors.Wrap(err, errors.Unknown, "failed to write history record")
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to finalize history file")
	}
	return nil
}

// ReadHistory loads a previously exported generation history.
func ReadHistory(path string) ([]engine.Summary, error) {
	reader, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to open history file")
	}
	defer reader.Close()

	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to create history reader")
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to read history table")
	}
	defer table.Release()

	history := make([]engine.Summary, 0, table.NumRows())
	tr := array.NewTableReader(table, table.NumRows())
	defer tr.Release()

	for tr.Next() {
		rec := tr.Record()
		generations := rec.Column(1).(*array.Int64)
		bests := rec.Column(2).(*array.Float64)
		means := rec.Column(3).(*array.Float64)
		worsts := rec.Column(4).(*array.Float64)
		valids := rec.Column(5).(*array.Int64)

		for row := 0; row < int(rec.NumRows()); row++ {
			history = append(history, engine.Summary{
				Generation:     int(generations.Value(row)),
				Best:           bests.Value(row),
				Mean:           means.Value(row),
				Worst:          worsts.Value(row),
				ValidOffspring: int(valids.Value(row)),
			})
		}
	}
	return history, nil
}
