package staging

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"modecalib/internal/domain"
)

var (
	inputHeader   = []string{"id", "speed_km_h", "mode"}
	resultsHeader = []string{"id", "speed_km_h", "mode", "inferred_mode_speed_const"}
)

// Files names the CSV files staged for one table: the loaded input and the
// best labelling seen so far.
type Files struct {
	Input   string
	Results string
}

func Paths(dir, table string) Files {
	name := sanitizeFilename(table)
	return Files{
		Input:   filepath.Join(dir, name+".csv"),
		Results: filepath.Join(dir, name+"_results.csv"),
	}
}

func WriteInput(path string, records []domain.Record) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{formatID(r.ID), formatSpeed(r.SpeedKmH), string(r.Mode)})
	}
	return writeCSV(path, inputHeader, rows)
}

// WriteResults replaces the results file with records and their assigned
// labels. The file is written next to its destination and renamed into
// place, so a reader never sees a half-written snapshot.
func WriteResults(path string, records []domain.Record, labels []domain.Mode) error {
	if len(labels) != len(records) {
		return fmt.Errorf("write results: %d labels for %d records", len(labels), len(records))
	}
	rows := make([][]string, 0, len(records))
	for i, r := range records {
		rows = append(rows, []string{formatID(r.ID), formatSpeed(r.SpeedKmH), string(r.Mode), string(labels[i])})
	}
	return writeCSV(path, resultsHeader, rows)
}

// ReadAssignments reads the id and inferred label columns back from a
// results file.
func ReadAssignments(path string) ([]domain.Assignment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idCol, labelCol := -1, -1
	for i, name := range header {
		switch name {
		case resultsHeader[0]:
			idCol = i
		case resultsHeader[3]:
			labelCol = i
		}
	}
	if idCol < 0 || labelCol < 0 {
		return nil, fmt.Errorf("%s: missing %q or %q column", path, resultsHeader[0], resultsHeader[3])
	}

	var out []domain.Assignment
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		id, err := strconv.ParseInt(row[idCol], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: invalid id %q", path, line, row[idCol])
		}
		out = append(out, domain.Assignment{ID: id, Mode: domain.Mode(row[labelCol])})
	}
	return out, nil
}

// Cleanup removes the staged input and, unless keepResults is set, the
// results file. Missing files are not an error.
func Cleanup(files Files, keepResults bool) error {
	paths := []string{files.Input}
	if !keepResults {
		paths = append(paths, files.Results)
	}
	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatSpeed(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sanitizeFilename(s string) string {
	out := []rune(s)
	for i, c := range out {
		switch c {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			out[i] = '_'
		}
	}
	return string(out)
}
