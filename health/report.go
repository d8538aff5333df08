package health

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// Report is the JSON document printed by the health command.
type Report struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckReport `json:"checks,omitempty"`
}

// CheckReport is one check in a Report.
type CheckReport struct {
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Report runs every checker and builds a report.
func (a *Aggregator) Report(ctx context.Context) Report {
	results := a.CheckAll(ctx)
	report := Report{
		Status:    OverallStatus(results),
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]CheckReport, len(results)),
	}
	for name, r := range results {
		check := CheckReport{
			Status:   r.Status,
			Message:  r.Message,
			Duration: r.Duration.Round(time.Microsecond).String(),
			Details:  r.Details,
		}
		if r.Error != nil {
			check.Error = r.Error.Error()
		}
		report.Checks[name] = check
	}
	return report
}

// WriteJSON writes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
