package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kiranraj/sredeploy/pkg/version"
)

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Display detailed version information for sredeploy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd)
		},
	}

	return cmd
}

func runVersion(cmd *cobra.Command) error {
	info := version.Get()
	outputFormat, _ := cmd.Flags().GetString("output")

	switch outputFormat {
	case "json":
		return versionJSON(info)
	case "yaml":
		return versionYAML(info)
	case "table":
		return versionTable(info)
	default:
		fmt.Println(info.String())
		return nil
	}
}

func versionJSON(info version.Info) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal version info to JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func versionYAML(info version.Info) error {
	data, err := yaml.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal version info to YAML: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

func versionTable(info version.Info) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COMPONENT\tVALUE")
	fmt.Fprintf(w, "Version\t%s\n", info.Version)
	fmt.Fprintf(w, "Commit\t%s\n", info.Commit)
	fmt.Fprintf(w, "Build Time\t%s\n", info.BuildTime)
	fmt.Fprintf(w, "Go Version\t%s\n", info.GoVersion)
	fmt.Fprintf(w, "Platform\t%s\n", info.Platform)
	return w.Flush()
}
