// Package referencedata loads the two immutable reference-data bundles the
// kernel ships with its build: country-keyed historical market series and
// region-keyed tax schedules. Both are embedded at compile time (embed.FS)
// and loaded once at process start, generalized from the teacher's
// os.ReadFile-based HistoricalDataManager in internal/calculation/historical.go.
package referencedata

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/rgehrsitz/simkernel/internal/kernelerr"
	"github.com/rgehrsitz/simkernel/internal/logging"
)

//go:embed data/historical/*.csv
var historicalFS embed.FS

// YearlyMarket is one historical year's stock, bond, and inflation figures
// for a country. Cash return is not stored here — it is supplied per
// scenario config (spec §4.1).
type YearlyMarket struct {
	Year      int
	Stock     decimal.Decimal
	Bond      decimal.Decimal
	Inflation decimal.Decimal
}

// CountrySeries is one country's ordered historical series plus summary
// metadata.
type CountrySeries struct {
	Country  string
	Years    []YearlyMarket
	MinYear  int
	MaxYear  int
	Warnings []string
}

// NumYears reports the number of historical years available.
func (c CountrySeries) NumYears() int {
	return len(c.Years)
}

// HistoricalStore is the process-wide, read-only collection of loaded
// CountrySeries.
type HistoricalStore struct {
	series map[string]CountrySeries
}

// LoadHistorical reads every embedded data/historical/*.csv file into a
// HistoricalStore, logging data-quality warnings (outliers, gaps) rather
// than failing the load, mirroring the teacher's ValidateDataQuality.
func LoadHistorical(log logging.Logger) (*HistoricalStore, error) {
	if log == nil {
		log = logging.NopLogger{}
	}
	entries, err := historicalFS.ReadDir("data/historical")
	if err != nil {
		return nil, fmt.Errorf("read embedded historical data dir: %w", err)
	}

	store := &HistoricalStore{series: make(map[string]CountrySeries)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		country := strings.TrimSuffix(entry.Name(), ".csv")
		series, err := loadCountryCSV(country, "data/historical/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("load historical series for %s: %w", country, err)
		}
		for _, w := range series.Warnings {
			log.Warnf("historical data quality: %s", w)
		}
		store.series[country] = series
	}
	return store, nil
}

func loadCountryCSV(country, path string) (CountrySeries, error) {
	f, err := historicalFS.Open(path)
	if err != nil {
		return CountrySeries{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return CountrySeries{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 4 {
		return CountrySeries{}, fmt.Errorf("expected 4 columns (year,stock,bond,inflation), got %d", len(header))
	}

	var years []YearlyMarket
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return CountrySeries{}, fmt.Errorf("read row: %w", err)
		}
		if len(record) < 4 {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			continue
		}
		stock, err := decimal.NewFromString(strings.TrimSpace(record[1]))
		if err != nil {
			continue
		}
		bond, err := decimal.NewFromString(strings.TrimSpace(record[2]))
		if err != nil {
			continue
		}
		inflation, err := decimal.NewFromString(strings.TrimSpace(record[3]))
		if err != nil {
			continue
		}
		years = append(years, YearlyMarket{Year: year, Stock: stock, Bond: bond, Inflation: inflation})
	}
	if len(years) == 0 {
		return CountrySeries{}, fmt.Errorf("no valid data points in %s", path)
	}

	sort.Slice(years, func(i, j int) bool { return years[i].Year < years[j].Year })

	series := CountrySeries{
		Country: country,
		Years:   years,
		MinYear: years[0].Year,
		MaxYear: years[len(years)-1].Year,
	}
	series.Warnings = validateDataQuality(series)
	return series, nil
}

// validateDataQuality flags year gaps and extreme outlier returns (> +100%
// or < -100%), generalized from the teacher's ValidateDataQuality — these
// are recorded as warnings, not load failures, since they are real
// historical data points.
func validateDataQuality(series CountrySeries) []string {
	var issues []string

	expectedYears := series.MaxYear - series.MinYear + 1
	if len(series.Years) != expectedYears {
		issues = append(issues, fmt.Sprintf("%s: has %d years, expected %d (%d..%d) — gaps present",
			series.Country, len(series.Years), expectedYears, series.MinYear, series.MaxYear))
	}

	one := decimal.NewFromInt(1)
	negOne := decimal.NewFromInt(-1)
	for _, y := range series.Years {
		for label, v := range map[string]decimal.Decimal{"stock": y.Stock, "bond": y.Bond} {
			if v.GreaterThan(one) || v.LessThan(negOne) {
				issues = append(issues, fmt.Sprintf("%s: extreme %s return in year %d: %s", series.Country, label, y.Year, v.String()))
			}
		}
	}
	return issues
}

// Series returns the loaded CountrySeries for country, or a
// ReferenceDataMissingError if absent.
func (s *HistoricalStore) Series(country string) (CountrySeries, error) {
	series, ok := s.series[country]
	if !ok {
		return CountrySeries{}, &kernelerr.ReferenceDataMissingError{Kind: "country", Key: country}
	}
	return series, nil
}

// CountryInfo is the introspection shape list_countries() returns per spec §6
// (expanded per SPEC_FULL §11), including summary statistics so callers can
// judge a country's historical volatility without pulling the full series.
type CountryInfo struct {
	StartYear      int
	EndYear        int
	NumYears       int
	StockMeanReturn decimal.Decimal
	StockStdDev     decimal.Decimal
	BondMeanReturn  decimal.Decimal
	BondStdDev      decimal.Decimal
}

// ListCountries returns every loaded country's year-range metadata plus
// stock/bond return statistics computed via MeanStdDev.
func (s *HistoricalStore) ListCountries() map[string]CountryInfo {
	out := make(map[string]CountryInfo, len(s.series))
	for country, series := range s.series {
		stockMean, stockStdDev, _ := s.MeanStdDev(country)
		bondMean, bondStdDev := meanStdDev(bondReturns(series))
		out[country] = CountryInfo{
			StartYear:       series.MinYear,
			EndYear:         series.MaxYear,
			NumYears:        series.NumYears(),
			StockMeanReturn: stockMean,
			StockStdDev:     stockStdDev,
			BondMeanReturn:  bondMean,
			BondStdDev:      bondStdDev,
		}
	}
	return out
}

func bondReturns(series CountrySeries) []decimal.Decimal {
	values := make([]decimal.Decimal, len(series.Years))
	for i, y := range series.Years {
		values[i] = y.Bond
	}
	return values
}

// meanStdDev computes the mean and (sample, n−1) standard deviation of a
// decimal series using gonum, generalized from the teacher's hand-rolled
// calculateStatistics.
func meanStdDev(values []decimal.Decimal) (mean, stddev decimal.Decimal) {
	floats := make([]float64, len(values))
	for i, v := range values {
		f, _ := v.Float64()
		floats[i] = f
	}
	m, std := stat.MeanStdDev(floats, nil)
	return decimal.NewFromFloat(m), decimal.NewFromFloat(std)
}

// MeanStdDev computes the mean and (sample, n−1) standard deviation of a
// country's stock returns. Exported for tooling that wants stock-only
// statistics directly; ListCountries calls this for CountryInfo's stock
// fields and computes bond statistics the same way.
func (s *HistoricalStore) MeanStdDev(country string) (mean, stddev decimal.Decimal, err error) {
	series, err := s.Series(country)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	stockValues := make([]decimal.Decimal, len(series.Years))
	for i, y := range series.Years {
		stockValues[i] = y.Stock
	}
	mean, stddev = meanStdDev(stockValues)
	return mean, stddev, nil
}
