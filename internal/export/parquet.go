// Package export writes training analyses as columnar files.
package export

import (
	"fmt"
	"io"

	"github.com/joshdurbin/runlog/internal/training"
	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

const (
	dateLayout  = "2006-01-02"
	parallelism = 4
)

type weeklyParquetRow struct {
	WeekStart      string   `parquet:"name=week_start, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	TotalDistanceM float64  `parquet:"name=total_distance_m, type=DOUBLE"`
	DistanceGain   *float64 `parquet:"name=distance_gain, type=DOUBLE, repetitiontype=OPTIONAL"`
	HasGain        bool     `parquet:"name=has_gain, type=BOOLEAN"`
}

type dailyParquetRow struct {
	Date                 string   `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	TotalDistanceM       *float64 `parquet:"name=total_distance_m, type=DOUBLE, repetitiontype=OPTIONAL"`
	RollingWeekDistanceM *float64 `parquet:"name=rolling_week_distance_m, type=DOUBLE, repetitiontype=OPTIONAL"`
	HasData              bool     `parquet:"name=has_data, type=BOOLEAN"`
}

func weeklyRows(weeks []training.PeriodAnalysis) []interface{} {
	rows := make([]interface{}, len(weeks))
	for i, w := range weeks {
		rows[i] = weeklyParquetRow{
			WeekStart:      w.Start.Format(dateLayout),
			TotalDistanceM: w.TotalDistance,
			DistanceGain:   w.DistanceGain,
			HasGain:        w.DistanceGain != nil,
		}
	}
	return rows
}

func dailyRows(days []training.DayAnalysis) []interface{} {
	rows := make([]interface{}, len(days))
	for i, d := range days {
		rows[i] = dailyParquetRow{
			Date:                 d.Date.Format(dateLayout),
			TotalDistanceM:       d.TotalDistance,
			RollingWeekDistanceM: d.RollingWeekDistance,
			HasData:              d.TotalDistance != nil,
		}
	}
	return rows
}

// MarshalWeeklyParquet encodes the weekly series as a snappy-compressed parquet file.
func MarshalWeeklyParquet(weeks []training.PeriodAnalysis) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	if err := writeRows(fw, new(weeklyParquetRow), weeklyRows(weeks)); err != nil {
		return nil, fmt.Errorf("encoding weekly parquet: %w", err)
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

// WriteWeeklyParquet encodes the weekly series to w.
func WriteWeeklyParquet(w io.Writer, weeks []training.PeriodAnalysis) error {
	data, err := MarshalWeeklyParquet(weeks)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteWeeklyParquetFile writes the weekly series to path.
func WriteWeeklyParquetFile(path string, weeks []training.PeriodAnalysis) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := writeRows(fw, new(weeklyParquetRow), weeklyRows(weeks)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// WriteDailyParquetFile writes the daily series to path. Days without data
// have null distances.
func WriteDailyParquetFile(path string, days []training.DayAnalysis) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := writeRows(fw, new(dailyParquetRow), dailyRows(days)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// writeRows writes rows with schema and closes fw.
func writeRows(fw source.ParquetFile, schema interface{}, rows []interface{}) error {
	pw, err := writer.NewParquetWriter(fw, schema, parallelism)
	if err != nil {
		_ = fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}
