package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"ORBLab/internal/domain/models"
	domrepo "ORBLab/internal/domain/repository"
	"ORBLab/pkg/util"
)

// CSVBarStore serves bars from <dir>/<instrument>.csv with the header
// ts,open,high,low,close,volume. ts is RFC3339 or unix seconds. Each file is
// read once and kept sorted in memory.
type CSVBarStore struct {
	dir string

	mu    sync.Mutex
	files map[string][]models.Bar
}

var _ domrepo.BarStore = (*CSVBarStore)(nil)

func NewCSVBarStore(dir string) *CSVBarStore {
	return &CSVBarStore{dir: dir, files: make(map[string][]models.Bar)}
}

func (s *CSVBarStore) Bars(_ context.Context, instrument string, from, to time.Time) ([]models.Bar, error) {
	all, err := s.load(instrument)
	if err != nil {
		return nil, err
	}
	lo := sort.Search(len(all), func(i int) bool { return !all[i].Time.Before(from) })
	hi := sort.Search(len(all), func(i int) bool { return !all[i].Time.Before(to) })

	out := make([]models.Bar, hi-lo)
	for i, b := range all[lo:hi] {
		b.Time = b.Time.In(from.Location())
		out[i] = b
	}
	return out, nil
}

func (s *CSVBarStore) load(instrument string) ([]models.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bars, ok := s.files[instrument]; ok {
		return bars, nil
	}

	path := filepath.Join(s.dir, instrument+".csv")
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		// no file means no bars: every session resolves to no_range
		s.files[instrument] = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open bars: %w", err)
	}
	defer f.Close()

	bars, err := ReadBarsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.files[instrument] = bars
	return bars, nil
}

// ReadBarsCSV parses a bar CSV and returns bars sorted by time.
func ReadBarsCSV(r io.Reader) ([]models.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if header[0] != "ts" {
		return nil, fmt.Errorf("unexpected header %q", header[0])
	}

	var bars []models.Bar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ts, ok := util.ParseTime(rec[0])
		if !ok {
			return nil, fmt.Errorf("line %d: bad timestamp %q", line, rec[0])
		}
		var v [5]float64
		for i := range v {
			if v[i], err = strconv.ParseFloat(rec[i+1], 64); err != nil {
				return nil, fmt.Errorf("line %d: column %s: %w", line, header[i+1], err)
			}
		}
		bars = append(bars, models.Bar{Time: ts, Open: v[0], High: v[1], Low: v[2], Close: v[3], Volume: v[4]})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
