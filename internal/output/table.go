package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/kiranraj/sredeploy/internal/plan"
)

// TableFormatter formats output as a table (kubectl-style)
type TableFormatter struct {
	options *Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts *Options) *TableFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TableFormatter{
		options: opts,
	}
}

// Format outputs a single data item as a table
func (f *TableFormatter) Format(w io.Writer, data interface{}) error {
	table := f.createTable(w)

	switch v := data.(type) {
	case map[string]interface{}:
		return f.formatMap(table, v)
	case []map[string]interface{}:
		return f.formatMapSlice(table, v)
	case string:
		fmt.Fprintln(w, v)
		return nil
	default:
		fmt.Fprintln(w, v)
		return nil
	}
}

// FormatReport outputs a deployment sequence report as a table
func (f *TableFormatter) FormatReport(w io.Writer, report *plan.Report) error {
	if len(report.Results) == 0 {
		fmt.Fprintln(w, "No steps")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)

	headers := []string{"STEP", "MODE", "STATUS", "DURATION"}
	if f.options.Wide {
		headers = append(headers, "DETAIL")
	}

	if !f.options.NoHeaders {
		if colors.Disabled {
			table.SetHeader(headers)
		} else {
			coloredHeaders := make([]string, len(headers))
			for i, h := range headers {
				coloredHeaders[i] = colors.Header(h)
			}
			table.SetHeader(coloredHeaders)
		}
	}

	for _, res := range report.Results {
		table.Append(f.formatResultRow(res, colors))
	}

	table.Render()

	f.printSummary(w, report, colors)

	return nil
}

// formatResultRow formats a single step result as a table row
func (f *TableFormatter) formatResultRow(res plan.StepResult, colors *ColorScheme) []string {
	name := res.Step.Name
	if !colors.Disabled {
		name = colors.StepName(name)
	}

	mode := "best-effort"
	if res.Step.Required {
		mode = "required"
	}

	status := string(res.Status)
	if !colors.Disabled {
		status = colors.ForStatus(res.Status)(status)
	}

	duration := res.Duration.String()
	if res.Status == plan.StatusSkipped {
		duration = "-"
	}
	if !colors.Disabled {
		duration = colors.Duration(duration)
	}

	row := []string{name, mode, status, duration}

	if f.options.Wide {
		detail := res.Step.Description
		if res.Err != nil {
			detail = res.Err.Error()
		}
		if len(detail) > 50 {
			detail = detail[:47] + "..."
		}
		row = append(row, detail)
	}

	return row
}

// formatMap formats a map as a two-column table (key-value pairs)
func (f *TableFormatter) formatMap(table *tablewriter.Table, data map[string]interface{}) error {
	if !f.options.NoHeaders {
		table.SetHeader([]string{"KEY", "VALUE"})
	}

	for k, v := range data {
		table.Append([]string{k, fmt.Sprintf("%v", v)})
	}

	table.Render()
	return nil
}

// formatMapSlice formats a slice of maps as a table
func (f *TableFormatter) formatMapSlice(table *tablewriter.Table, data []map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}

	var headers []string
	for k := range data[0] {
		headers = append(headers, strings.ToUpper(k))
	}

	if !f.options.NoHeaders {
		table.SetHeader(headers)
	}

	for _, item := range data {
		var row []string
		for _, h := range headers {
			key := strings.ToLower(h)
			row = append(row, fmt.Sprintf("%v", item[key]))
		}
		table.Append(row)
	}

	table.Render()
	return nil
}

// createTable creates a new table with kubectl-style configuration
func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t") // Tab-separated like kubectl
	table.SetNoWhiteSpace(true)

	return table
}

// printSummary prints a one-line summary under the table
func (f *TableFormatter) printSummary(w io.Writer, report *plan.Report, colors *ColorScheme) {
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Summary: ")

	appliedText := fmt.Sprintf("%d applied", report.Count(plan.StatusApplied))
	if !colors.Disabled {
		appliedText = colors.Success(appliedText)
	}

	failed := report.Count(plan.StatusFailedRequired)
	failedText := fmt.Sprintf("%d failed", failed)
	if !colors.Disabled && failed > 0 {
		failedText = colors.Error(failedText)
	}

	bestEffort := report.Count(plan.StatusFailedBestEffort)
	bestEffortText := fmt.Sprintf("%d best-effort failures", bestEffort)
	if !colors.Disabled && bestEffort > 0 {
		bestEffortText = colors.Warning(bestEffortText)
	}

	skippedText := fmt.Sprintf("%d skipped", report.Count(plan.StatusSkipped))

	fmt.Fprintf(w, "%s, %s, %s, %s\n", appliedText, failedText, bestEffortText, skippedText)
}
