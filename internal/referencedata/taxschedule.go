package referencedata

import (
	"embed"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rgehrsitz/simkernel/internal/kernelerr"
	"github.com/rgehrsitz/simkernel/pkg/money"
)

//go:embed data/tax/*.yaml
var taxFS embed.FS

// Bracket is a (threshold, marginal rate) pair in a progressive schedule,
// per spec §3/§4.2.
type Bracket struct {
	Threshold money.Money     `yaml:"threshold"`
	Rate      decimal.Decimal `yaml:"rate"`
}

// taxScheduleFile mirrors the on-disk YAML shape for one region's schedule.
type taxScheduleFile struct {
	Country        string    `yaml:"country"`
	Region         string    `yaml:"region"`
	BaseYear       int       `yaml:"base_year"`
	IncomeBrackets []Bracket `yaml:"income_brackets"`
	WealthBrackets []Bracket `yaml:"wealth_brackets"`
}

// TaxSchedule is an immutable, shared progressive bracket schedule for one
// region, indexed from its base year (spec §3).
type TaxSchedule struct {
	Country        string
	Region         string
	BaseYear       int
	IncomeBrackets []Bracket
	WealthBrackets []Bracket
}

// TaxStore is the process-wide, read-only collection of loaded TaxSchedules,
// keyed by country then region.
type TaxStore struct {
	schedules map[string]map[string]TaxSchedule
}

// LoadTaxSchedules reads every embedded data/tax/*.yaml file into a TaxStore.
func LoadTaxSchedules() (*TaxStore, error) {
	entries, err := taxFS.ReadDir("data/tax")
	if err != nil {
		return nil, fmt.Errorf("read embedded tax schedule dir: %w", err)
	}

	store := &TaxStore{schedules: make(map[string]map[string]TaxSchedule)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := taxFS.ReadFile("data/tax/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		var f taxScheduleFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		schedule := TaxSchedule{
			Country:        f.Country,
			Region:         f.Region,
			BaseYear:       f.BaseYear,
			IncomeBrackets: f.IncomeBrackets,
			WealthBrackets: f.WealthBrackets,
		}
		if store.schedules[schedule.Country] == nil {
			store.schedules[schedule.Country] = make(map[string]TaxSchedule)
		}
		store.schedules[schedule.Country][schedule.Region] = schedule
	}
	return store, nil
}

// Schedule returns the TaxSchedule for (country, region). The special
// country "none" is handled upstream by the Tax Engine and never looked up
// here (spec §4.2 edge case: zero tax, no schedule needed).
func (s *TaxStore) Schedule(country, region string) (TaxSchedule, error) {
	regions, ok := s.schedules[country]
	if !ok {
		return TaxSchedule{}, &kernelerr.ReferenceDataMissingError{Kind: "country", Key: country}
	}
	schedule, ok := regions[region]
	if !ok {
		return TaxSchedule{}, &kernelerr.ReferenceDataMissingError{Kind: "region", Key: country + "/" + region}
	}
	return schedule, nil
}

// ListRegions returns every loaded country's available regions, per
// list_tax_regions() in spec §6.
func (s *TaxStore) ListRegions() map[string][]string {
	out := make(map[string][]string, len(s.schedules))
	for country, regions := range s.schedules {
		var names []string
		for region := range regions {
			names = append(names, region)
		}
		out[country] = names
	}
	return out
}
