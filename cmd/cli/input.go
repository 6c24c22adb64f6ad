package main

import (
	"fmt"
	"strconv"
	"strings"

	"relialab/adapters/excel"
	"relialab/domain/lifedata"

	"github.com/spf13/cobra"
)

// sampleFlags reads observations from --file or from comma-separated lists
type sampleFlags struct {
	file        string
	failures    string
	suspensions string
}

func (f *sampleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Life-data file (.xlsx or .csv with time, state, qty columns)")
	cmd.Flags().StringVar(&f.failures, "failures", "", "Comma-separated failure times")
	cmd.Flags().StringVar(&f.suspensions, "suspensions", "", "Comma-separated suspension times")
	cmd.MarkFlagsMutuallyExclusive("file", "failures")
	cmd.MarkFlagsMutuallyExclusive("file", "suspensions")
}

func (f *sampleFlags) load() (lifedata.Sample, error) {
	if f.file != "" {
		grouped, err := excel.NewLifeDataReader(excel.DefaultReaderConfig()).ReadFile(f.file)
		if err != nil {
			return lifedata.Sample{}, err
		}
		return grouped.Expand(), nil
	}

	failures, err := parseTimes(f.failures)
	if err != nil {
		return lifedata.Sample{}, fmt.Errorf("--failures: %w", err)
	}
	suspensions, err := parseTimes(f.suspensions)
	if err != nil {
		return lifedata.Sample{}, fmt.Errorf("--suspensions: %w", err)
	}
	sample := lifedata.Sample{Failures: failures, Suspensions: suspensions}
	if len(failures) == 0 && len(suspensions) == 0 {
		return sample, fmt.Errorf("no observations: use --file or --failures")
	}
	return sample, sample.Validate()
}

// parseTimes parses "1, 2.5,3" into floats; an empty string yields an empty slice
func parseTimes(s string) ([]float64, error) {
	out := []float64{}
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid time %q", field)
		}
		out = append(out, v)
	}
	return out, nil
}
