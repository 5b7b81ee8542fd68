package io

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/causalhub/pkg/dataset"
	errs "github.com/matzehuels/causalhub/pkg/errors"
)

// ReadCategoricalCSV reads a categorical dataset. Cells are trimmed of
// surrounding whitespace; an empty cell is an error.
func ReadCategoricalCSV(r io.Reader) (*dataset.Categorical, error) {
	header, records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	for i, rec := range records {
		for j, cell := range rec {
			if cell == "" {
				return nil, errs.New(errs.ErrCodeInvalidFormat, "row %d: empty value for %q", i+2, header[j])
			}
		}
	}
	return dataset.NewCategorical(header, records)
}

// ReadContinuousCSV reads a continuous dataset.
func ReadContinuousCSV(r io.Reader) (*dataset.Continuous, error) {
	header, records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	values := make([][]float64, len(records))
	for i, rec := range records {
		values[i] = make([]float64, len(rec))
		for j, cell := range rec {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "row %d: %q is not a number", i+2, header[j])
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errs.New(errs.ErrCodeInvalidFormat, "row %d: %q is not finite", i+2, header[j])
			}
			values[i][j] = v
		}
	}
	return dataset.NewContinuous(header, values)
}

// ReadDatasetFile reads the CSV file at path as the given family,
// "categorical" or "gaussian".
func ReadDatasetFile(path, family string) (dataset.Dataset, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	switch family {
	case "categorical", "discrete":
		return ReadCategoricalCSV(f)
	case "gaussian", "continuous":
		return ReadContinuousCSV(f)
	}
	return nil, errs.New(errs.ErrCodeInvalidInput, "unknown data family %q (want categorical or gaussian)", family)
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false
	rows, err := cr.ReadAll()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "line %d: malformed csv", pe.Line)
		}
		return nil, nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "read csv")
	}
	if len(rows) == 0 {
		return nil, nil, errs.New(errs.ErrCodeInvalidFormat, "csv has no header")
	}
	header := rows[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	records := rows[1:]
	for _, rec := range records {
		for j := range rec {
			rec[j] = strings.TrimSpace(rec[j])
		}
	}
	return header, records, nil
}

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "%s", path)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidPath, err, "open %s", path)
	}
	return f, nil
}
