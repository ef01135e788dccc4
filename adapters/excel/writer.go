package excel

import (
	"io"
	"maps"
	"slices"

	"adpulse/internal/dataproc"
	"adpulse/internal/errors"

	"github.com/xuri/excelize/v2"
)

// BucketWriter exports aggregated buckets as a workbook with one row per
// period
type BucketWriter struct {
	// Fields fixes the value columns; when empty every field found in the
	// buckets is written in sorted order
	Fields []string
}

// Save writes the workbook to path
func (w BucketWriter) Save(path string, period dataproc.Period, buckets []dataproc.AggregatedBucket) error {
	f, err := w.build(period, buckets)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, "failed to save workbook")
	}
	return nil
}

// Write streams the workbook to out
func (w BucketWriter) Write(out io.Writer, period dataproc.Period, buckets []dataproc.AggregatedBucket) error {
	f, err := w.build(period, buckets)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(out); err != nil {
		return errors.Wrap(err, "failed to write workbook")
	}
	return nil
}

func (w BucketWriter) build(period dataproc.Period, buckets []dataproc.AggregatedBucket) (*excelize.File, error) {
	fields := w.Fields
	if len(fields) == 0 {
		seen := make(map[string]struct{})
		for _, b := range buckets {
			for k := range b.Values {
				seen[k] = struct{}{}
			}
		}
		fields = slices.Sorted(maps.Keys(seen))
	}

	sheet := string(period)
	if sheet == "" {
		sheet = string(dataproc.PeriodDay)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to name sheet")
	}

	header := make([]any, 0, len(fields)+2)
	header = append(header, "period", "count")
	for _, field := range fields {
		header = append(header, field)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to write header")
	}

	for i, b := range buckets {
		row := make([]any, 0, len(fields)+2)
		row = append(row, b.Period, b.Count)
		for _, field := range fields {
			row = append(row, b.Values[field])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, "invalid cell")
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			f.Close()
			return nil, errors.Wrap(err, "failed to write bucket "+b.Period)
		}
	}

	return f, nil
}
