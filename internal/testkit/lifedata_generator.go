package testkit

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"

	"relialab/domain/lifedata"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/stat/distuv"
)

// LifeDataConfig describes a synthetic life test: Units items drawn from Truth,
// with Type I censoring at CensorTime (0 disables censoring).
type LifeDataConfig struct {
	Units      int
	Seed       uint64
	Truth      lifedata.Parameters
	CensorTime float64
}

// DefaultLifeDataConfig is a 50-unit Weibull(β=1.8, η=1000) test without censoring
func DefaultLifeDataConfig() LifeDataConfig {
	return LifeDataConfig{
		Units: 50,
		Seed:  42,
		Truth: lifedata.WeibullParams{Beta: 1.8, Eta: 1000},
	}
}

type sampler interface {
	Rand() float64
}

func newSampler(truth lifedata.Parameters, src rand.Source) (sampler, error) {
	switch p := truth.(type) {
	case lifedata.WeibullParams:
		return distuv.Weibull{K: p.Beta, Lambda: p.Eta, Src: src}, nil
	case lifedata.LognormalParams:
		return distuv.LogNormal{Mu: p.LogMean, Sigma: p.LogStdDev, Src: src}, nil
	case lifedata.ExponentialParams:
		return distuv.Exponential{Rate: p.Lambda, Src: src}, nil
	case lifedata.NormalParams:
		return distuv.Normal{Mu: p.Mean, Sigma: p.StdDev, Src: src}, nil
	}
	return nil, fmt.Errorf("no sampler for %T", truth)
}

// GenerateLifeData draws a deterministic sample for the given seed. Units that
// outlive CensorTime are recorded as suspensions at CensorTime; non-positive
// draws (possible for a normal truth) are redrawn.
func GenerateLifeData(cfg LifeDataConfig) (lifedata.Sample, error) {
	if cfg.Units <= 0 {
		return lifedata.Sample{}, fmt.Errorf("units must be positive, got %d", cfg.Units)
	}
	if cfg.Truth == nil || !cfg.Truth.Valid() {
		return lifedata.Sample{}, fmt.Errorf("invalid truth parameters %+v", cfg.Truth)
	}
	s, err := newSampler(cfg.Truth, rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	if err != nil {
		return lifedata.Sample{}, err
	}

	sample := lifedata.Sample{Failures: []float64{}, Suspensions: []float64{}}
	for i := 0; i < cfg.Units; i++ {
		t := s.Rand()
		for t <= 0 {
			t = s.Rand()
		}
		if cfg.CensorTime > 0 && t > cfg.CensorTime {
			sample.Suspensions = append(sample.Suspensions, cfg.CensorTime)
			continue
		}
		sample.Failures = append(sample.Failures, t)
	}
	return sample, nil
}

func sampleRows(sample lifedata.Sample) [][]string {
	rows := [][]string{{"time", "state", "qty"}}
	for _, t := range sample.Failures {
		rows = append(rows, []string{strconv.FormatFloat(t, 'f', -1, 64), "F", "1"})
	}
	for _, t := range sample.Suspensions {
		rows = append(rows, []string{strconv.FormatFloat(t, 'f', -1, 64), "S", "1"})
	}
	return rows
}

// WriteCSV writes the sample in the importer's time,state,qty layout
func WriteCSV(path string, sample lifedata.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(sampleRows(sample)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteXLSX writes the sample to the first sheet of a new workbook
func WriteXLSX(path string, sample lifedata.Sample) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range sampleRows(sample) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			if i > 0 && j != 1 {
				n, _ := strconv.ParseFloat(v, 64)
				values[j] = n
			} else {
				values[j] = v
			}
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return f.SaveAs(path)
}
