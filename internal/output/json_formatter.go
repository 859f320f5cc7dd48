package output

import "encoding/json"

// JSONFormatter serializes any kernel report (WithdrawalReport,
// AccumulationReport, CombinedReport) as pretty-printed JSON.
type JSONFormatter struct{}

func (j JSONFormatter) Name() string { return "json" }

func (j JSONFormatter) Format(report any) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}
