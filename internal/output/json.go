package output

import (
	"encoding/json"
	"io"

	"github.com/kiranraj/sredeploy/internal/plan"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	options *Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(opts *Options) *JSONFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &JSONFormatter{
		options: opts,
	}
}

// Format outputs a single data item as JSON
func (f *JSONFormatter) Format(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// FormatReport outputs a deployment sequence report as JSON
func (f *JSONFormatter) FormatReport(w io.Writer, report *plan.Report) error {
	output := map[string]interface{}{
		"plan":  report.Plan,
		"ok":    report.OK(),
		"steps": reportRows(report),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
