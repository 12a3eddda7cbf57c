package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/kiranraj/sredeploy/internal/plan"
)

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	options *Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(opts *Options) *YAMLFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &YAMLFormatter{
		options: opts,
	}
}

// Format outputs a single data item as YAML
func (f *YAMLFormatter) Format(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	return encoder.Encode(data)
}

// FormatReport outputs a deployment sequence report as YAML
func (f *YAMLFormatter) FormatReport(w io.Writer, report *plan.Report) error {
	output := map[string]interface{}{
		"plan":  report.Plan,
		"ok":    report.OK(),
		"steps": reportRows(report),
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	return encoder.Encode(output)
}
