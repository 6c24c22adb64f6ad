package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"relialab/domain/lifedata"
	"relialab/internal"
	"relialab/internal/reliability"
	"relialab/internal/testkit"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := newRootCmd(os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "relialab",
		Short:         "Life-data analysis: fit lifetime distributions, compare them and compute reliability curves",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newFitCmd(out),
		newBestFitCmd(out),
		newBoundsCmd(out),
		newCurvesCmd(out),
		newSimulateCmd(out),
	)
	return rootCmd
}

func newEngine() *reliability.Engine {
	return reliability.NewEngine(internal.NewDefaultLogger())
}

func newFitCmd(out io.Writer) *cobra.Command {
	var input sampleFlags
	var distribution, method string

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Estimate distribution parameters",
		Long: `Estimate the parameters of one distribution family.

Example: relialab fit --failures 105,213,332,351 --suspensions 500 --distribution weibull --method MLE`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sample, err := input.load()
			if err != nil {
				return err
			}
			dist, err := lifedata.ParseDistribution(distribution)
			if err != nil {
				return err
			}
			m, err := lifedata.ParseMethod(method)
			if err != nil {
				return err
			}

			model, err := newEngine().EstimateParameters(dist, sample.Failures, sample.Suspensions, m)
			result := map[string]interface{}{"model": model}
			if err != nil {
				result["warning"] = err.Error()
			}
			return writeJSON(out, result)
		},
	}

	input.register(cmd)
	cmd.Flags().StringVarP(&distribution, "distribution", "d", "weibull", "Distribution: weibull|normal|lognormal|exponential|loglogistic|gumbel")
	cmd.Flags().StringVarP(&method, "method", "m", "SRM", "Estimation method: SRM|RRX|MLE")
	return cmd
}

func newBestFitCmd(out io.Writer) *cobra.Command {
	var input sampleFlags

	cmd := &cobra.Command{
		Use:   "best-fit",
		Short: "Rank every distribution family by log-likelihood",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sample, err := input.load()
			if err != nil {
				return err
			}
			return writeJSON(out, newEngine().FindBestDistribution(sample.Failures, sample.Suspensions))
		},
	}

	input.register(cmd)
	return cmd
}

func newBoundsCmd(out io.Writer) *cobra.Command {
	var input sampleFlags
	var confidence float64

	cmd := &cobra.Command{
		Use:   "bounds",
		Short: "Fisher-matrix confidence bounds around a Weibull rank-regression line",
		Long: `Compute two-sided confidence bounds on the Weibull probability plot.
Suspensions are ignored. The level is a fraction (0.9) or a percentage (90).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sample, err := input.load()
			if err != nil {
				return err
			}
			result, err := newEngine().CalculateFisherConfidenceBounds(sample.Failures, confidence)
			if err != nil {
				return err
			}
			return writeJSON(out, result)
		},
	}

	input.register(cmd)
	cmd.Flags().Float64VarP(&confidence, "confidence", "c", 0.9, "Confidence level")
	return cmd
}

func newCurvesCmd(out io.Writer) *cobra.Command {
	var input sampleFlags
	var distributions []string
	var method string

	cmd := &cobra.Command{
		Use:   "curves",
		Short: "Fit one or more families and evaluate R(t), F(t), f(t) and λ(t) on a shared grid",
		Long: `Fit each requested family and print the four curve series.

Example: relialab curves --file bearings.xlsx -d weibull -d lognormal`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sample, err := input.load()
			if err != nil {
				return err
			}
			m, err := lifedata.ParseMethod(method)
			if err != nil {
				return err
			}

			engine := newEngine()
			inputs := make([]lifedata.CurveInput, 0, len(distributions))
			for _, name := range distributions {
				dist, err := lifedata.ParseDistribution(name)
				if err != nil {
					return err
				}
				// Families that cannot be fit still get a (null) column
				model, _ := engine.EstimateParameters(dist, sample.Failures, sample.Suspensions, m)
				inputs = append(inputs, lifedata.CurveInput{Name: string(dist), Parameters: model.Parameters, MaxTime: sample.MaxTime()})
			}
			return writeJSON(out, engine.CalculateReliabilityData(inputs))
		},
	}

	input.register(cmd)
	cmd.Flags().StringSliceVarP(&distributions, "distribution", "d", []string{"weibull"}, "Distribution families to evaluate")
	cmd.Flags().StringVarP(&method, "method", "m", "SRM", "Estimation method: SRM|RRX|MLE")
	return cmd
}

func newSimulateCmd(out io.Writer) *cobra.Command {
	var (
		units      int
		seed       uint64
		beta, eta  float64
		censorTime float64
		output     string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate a seeded Weibull life-data sample",
		Long: `Draw failure times from a Weibull(beta, eta) population, right-censoring at --censor.
With --out the sample is written as .csv or .xlsx, otherwise printed as JSON.

Example: relialab simulate --units 50 --beta 2.5 --eta 1000 --censor 1200 --out fleet.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sample, err := testkit.GenerateLifeData(testkit.LifeDataConfig{
				Units:      units,
				Seed:       seed,
				Truth:      lifedata.WeibullParams{Beta: beta, Eta: eta},
				CensorTime: censorTime,
			})
			if err != nil {
				return err
			}

			switch strings.ToLower(filepath.Ext(output)) {
			case "":
				return writeJSON(out, sample)
			case ".csv":
				err = testkit.WriteCSV(output, sample)
			case ".xlsx":
				err = testkit.WriteXLSX(output, sample)
			default:
				return fmt.Errorf("unsupported output type %q, expected .csv or .xlsx", filepath.Ext(output))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "wrote %d failures and %d suspensions to %s\n", len(sample.Failures), len(sample.Suspensions), output)
			return nil
		},
	}

	cmd.Flags().IntVar(&units, "units", 30, "Number of units on test")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "Random seed for deterministic output")
	cmd.Flags().Float64Var(&beta, "beta", 1.5, "Weibull shape")
	cmd.Flags().Float64Var(&eta, "eta", 1000, "Weibull scale")
	cmd.Flags().Float64Var(&censorTime, "censor", 0, "Right-censoring time (0 disables censoring)")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output file (.csv or .xlsx)")
	return cmd
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
