// Command simkernel is the CLI entry point for the simulation kernel: it
// loads a YAML config, runs the requested operation (withdrawal,
// accumulation, or combined), and writes the result as console text, JSON,
// or CSV. Wires spf13/cobra, declared in go.mod but never wired into a
// binary before this.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rgehrsitz/simkernel/internal/config"
	"github.com/rgehrsitz/simkernel/internal/domain"
	"github.com/rgehrsitz/simkernel/internal/kernel"
	"github.com/rgehrsitz/simkernel/internal/output"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "simkernel",
		Short: "Long-horizon personal-finance Monte Carlo simulation kernel",
	}
	root.AddCommand(newSimulateCmd(), newRegionsCmd(), newCountriesCmd(), newValidateCmd())
	return root
}

func newSimulateCmd() *cobra.Command {
	var configPath, format, csvDir string

	cmd := &cobra.Command{
		Use:   "simulate [withdrawal|accumulation|combined]",
		Short: "Run a withdrawal, accumulation, or combined Monte Carlo simulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader().LoadFromFile(configPath)
			if err != nil {
				return err
			}
			k, err := kernel.New()
			if err != nil {
				return fmt.Errorf("initialize kernel: %w", err)
			}

			switch args[0] {
			case "withdrawal":
				report, err := k.RunWithdrawal(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				return writeReport(cmd, report, output.ConsoleFormatter{}.FormatWithdrawal(report), format, csvDir, report.Summary)
			case "accumulation":
				report, err := k.RunAccumulation(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				return writeReport(cmd, report, output.ConsoleFormatter{}.FormatAccumulation(report), format, csvDir, report.Summary)
			case "combined":
				report, err := k.RunCombined(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				return writeReport(cmd, report, output.ConsoleFormatter{}.FormatCombined(report), format, csvDir, report.Summary)
			default:
				return fmt.Errorf("unknown simulate mode %q (want withdrawal|accumulation|combined)", args[0])
			}
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVar(&format, "format", "console", "output format: console|json")
	cmd.Flags().StringVar(&csvDir, "csv-dir", "", "if set, also export percentile bands/histograms as CSV into this directory")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func writeReport(cmd *cobra.Command, report any, console []byte, format, csvDir string, summary domain.AggregateSummary) error {
	switch format {
	case "console":
		fmt.Fprintln(cmd.OutOrStdout(), string(console))
	case "json":
		data, err := output.JSONFormatter{}.Format(report)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	default:
		return fmt.Errorf("unknown format %q (want console|json)", format)
	}

	if csvDir != "" {
		csvReport := &output.SummaryCSVReport{Summary: summary}
		if err := csvReport.GenerateAllCSVReports(csvDir); err != nil {
			return fmt.Errorf("export CSV reports: %w", err)
		}
	}
	return nil
}

func newRegionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List every loaded country's available tax regions",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := kernel.New()
			if err != nil {
				return fmt.Errorf("initialize kernel: %w", err)
			}
			for country, regions := range k.ListTaxRegions() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", country, regions)
			}
			return nil
		},
	}
}

func newCountriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "List every loaded historical market-data series and its year range",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := kernel.New()
			if err != nil {
				return fmt.Errorf("initialize kernel: %w", err)
			}
			for country, info := range k.ListCountries() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d-%d (%d years) stock mean/stddev %s/%s bond mean/stddev %s/%s\n",
					country, info.StartYear, info.EndYear, info.NumYears,
					info.StockMeanReturn.StringFixed(4), info.StockStdDev.StringFixed(4),
					info.BondMeanReturn.StringFixed(4), info.BondStdDev.StringFixed(4))
			}
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a YAML config file without running a simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader().LoadFromFile(configPath)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "invalid: %s\n", err)
				return err
			}
			k, err := kernel.New()
			if err != nil {
				return fmt.Errorf("initialize kernel: %w", err)
			}
			if _, err := k.Validate(cfg); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "invalid: %s\n", err)
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
