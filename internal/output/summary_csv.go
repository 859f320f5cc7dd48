package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/rgehrsitz/simkernel/internal/domain"
)

// SummaryCSVReport exports an AggregateSummary's percentile bands and
// histograms as CSV, generalized from the teacher's MonteCarloCSVReport
// (three single-purpose writers plus a GenerateAllCSVReports combinator).
type SummaryCSVReport struct {
	Summary domain.AggregateSummary
}

// GenerateOverviewCSV writes the scalar summary fields (success rate,
// median time to target, trial/year counts).
func (r *SummaryCSVReport) GenerateOverviewCSV(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create overview CSV: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"Metric", "Value"}); err != nil {
		return fmt.Errorf("write overview header: %w", err)
	}

	medianTimeToTarget := ""
	if r.Summary.MedianTimeToTarget != nil {
		medianTimeToTarget = strconv.Itoa(*r.Summary.MedianTimeToTarget)
	}
	rows := [][]string{
		{"Number of Simulations", strconv.Itoa(r.Summary.NumSimulations)},
		{"Simulation Years", strconv.Itoa(r.Summary.SimulationYears)},
		{"Success Rate", formatPercentage(r.Summary.SuccessRate)},
		{"Median Time To Target (years)", medianTimeToTarget},
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write overview row: %w", err)
		}
	}
	return nil
}

// GeneratePercentileBandsCSV writes one row per simulated year, with the
// nearest-rank quantiles of all four per-year metrics (spec §4.7).
func (r *SummaryCSVReport) GeneratePercentileBandsCSV(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create percentile bands CSV: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := []string{
		"Year",
		"PortfolioP10", "PortfolioP25", "PortfolioMedian", "PortfolioP75", "PortfolioP90",
		"RealPortfolioP10", "RealPortfolioP25", "RealPortfolioMedian", "RealPortfolioP75", "RealPortfolioP90",
		"IncomeP10", "IncomeP25", "IncomeMedian", "IncomeP75", "IncomeP90",
		"RealIncomeP10", "RealIncomeP25", "RealIncomeMedian", "RealIncomeP75", "RealIncomeP90",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write percentile bands header: %w", err)
	}

	years := len(r.Summary.PortfolioValueByYear)
	for i := 0; i < years; i++ {
		row := []string{strconv.Itoa(i + 1)}
		row = append(row, bandCells(r.Summary.PortfolioValueByYear, i)...)
		row = append(row, bandCells(r.Summary.RealPortfolioValueByYear, i)...)
		row = append(row, bandCells(r.Summary.IncomeByYear, i)...)
		row = append(row, bandCells(r.Summary.RealIncomeByYear, i)...)
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write percentile bands row for year %d: %w", i+1, err)
		}
	}
	return nil
}

func bandCells(bands []domain.PercentileBand, i int) []string {
	if i >= len(bands) {
		return []string{"", "", "", "", ""}
	}
	b := bands[i]
	return []string{decString(b.P10), decString(b.P25), decString(b.Median), decString(b.P75), decString(b.P90)}
}

// GenerateHistogramCSV writes one of the three fixed-width histograms
// (final portfolio, income, failure year) as bin/count rows.
func (r *SummaryCSVReport) GenerateHistogramCSV(outputPath string, bins []domain.HistogramBin) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create histogram CSV: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"Lower", "Upper", "Count"}); err != nil {
		return fmt.Errorf("write histogram header: %w", err)
	}
	for _, b := range bins {
		upper := "∞"
		if b.Upper != nil {
			upper = decString(*b.Upper)
		}
		row := []string{decString(b.Lower), upper, strconv.Itoa(b.Count)}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write histogram row: %w", err)
		}
	}
	return nil
}

// GenerateAllCSVReports writes every CSV export into outputDir.
func (r *SummaryCSVReport) GenerateAllCSVReports(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := r.GenerateOverviewCSV(outputDir + "/overview.csv"); err != nil {
		return err
	}
	if err := r.GeneratePercentileBandsCSV(outputDir + "/percentile_bands.csv"); err != nil {
		return err
	}
	if err := r.GenerateHistogramCSV(outputDir+"/final_portfolio_histogram.csv", r.Summary.FinalPortfolioHistogram); err != nil {
		return err
	}
	if err := r.GenerateHistogramCSV(outputDir+"/income_histogram.csv", r.Summary.IncomeHistogram); err != nil {
		return err
	}
	if err := r.GenerateHistogramCSV(outputDir+"/failure_year_histogram.csv", r.Summary.FailureYearHistogram); err != nil {
		return err
	}
	return nil
}

