package snapshot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/OldStager01/joyce/pkg/models"
)

var (
	ErrSnapshotMissing   = errors.New("snapshot not found")
	ErrSnapshotAmbiguous = errors.New("snapshot is ambiguous")
	ErrBadFileName       = errors.New("not a snapshot file name")
	ErrBadSnapshot       = errors.New("malformed snapshot")
)

const extension = ".csv"

// Key holds the tags encoded in a snapshot file name.
type Key struct {
	Hostname string
	ItemID   string
	Metric   string
	Source   models.Source
}

func KeyOf(series *models.Series) Key {
	return Key{
		Hostname: series.Hostname,
		ItemID:   series.ItemID,
		Metric:   series.Metric,
		Source:   series.Source,
	}
}

// FileName renders <hostname>_<itemid>_<metric>_<source>.csv
func (k Key) FileName() string {
	return fmt.Sprintf("%s_%s_%s_%s%s", k.Hostname, k.ItemID, k.Metric, k.Source, extension)
}

func (k Key) Path(dir string) string {
	return filepath.Join(dir, k.FileName())
}

// ParseFileName splits from the right so hostnames may contain underscores.
func ParseFileName(name string) (Key, error) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, extension) {
		return Key{}, fmt.Errorf("%w: %s", ErrBadFileName, base)
	}
	stem := strings.TrimSuffix(base, extension)

	parts := make([]string, 0, 4)
	for i := 0; i < 3; i++ {
		idx := strings.LastIndex(stem, "_")
		if idx < 0 {
			return Key{}, fmt.Errorf("%w: %s", ErrBadFileName, base)
		}
		parts = append(parts, stem[idx+1:])
		stem = stem[:idx]
	}
	if stem == "" {
		return Key{}, fmt.Errorf("%w: %s", ErrBadFileName, base)
	}

	source, err := models.ParseSource(parts[0])
	if err != nil {
		return Key{}, fmt.Errorf("%w: %s", ErrBadFileName, base)
	}

	return Key{
		Hostname: stem,
		ItemID:   parts[2],
		Metric:   parts[1],
		Source:   source,
	}, nil
}

func valueColumn(source models.Source) string {
	if source == models.SourcePrediction {
		return "forecast"
	}
	return "value"
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Write replaces path atomically with the series as clock,value rows.
func Write(path string, series *models.Series) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := encode(tmp, series); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod snapshot: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func encode(w io.Writer, series *models.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"clock", valueColumn(series.Source)}); err != nil {
		return fmt.Errorf("failed to write snapshot header: %w", err)
	}
	for _, s := range series.Samples {
		if err := cw.Write([]string{s.Time.Format(models.ClockLayout), formatValue(s.Value)}); err != nil {
			return fmt.Errorf("failed to write snapshot row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}
	return nil
}

// Read loads a snapshot. Tags come from the file name.
func Read(path string) (*models.Series, error) {
	key, err := ParseFileName(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotMissing, path)
		}
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	samples, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	return &models.Series{
		Hostname: key.Hostname,
		ItemID:   key.ItemID,
		Metric:   key.Metric,
		Source:   key.Source,
		Samples:  samples,
	}, nil
}

func decode(r io.Reader) ([]models.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrBadSnapshot)
		}
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if header[0] != "clock" {
		return nil, fmt.Errorf("%w: unexpected header %v", ErrBadSnapshot, header)
	}

	var samples []models.Sample
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
		}

		ts, err := time.Parse(models.ClockLayout, record[0])
		if err != nil {
			return nil, fmt.Errorf("%w: bad clock %q", ErrBadSnapshot, record[0])
		}

		value := math.NaN()
		if record[1] != "" {
			value, err = strconv.ParseFloat(record[1], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad value %q", ErrBadSnapshot, record[1])
			}
		}

		samples = append(samples, models.Sample{Time: ts, Value: value})
	}
	return samples, nil
}

// List returns the keys of one source kind in dir, sorted by file name.
// Files whose names do not parse are ignored.
func List(dir string, source models.Source) ([]Key, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*_"+string(source)+extension))
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	// filepath.Glob already returns names in lexical order
	keys := make([]Key, 0, len(matches))
	for _, m := range matches {
		key, err := ParseFileName(m)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}
