package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/netenum/internal/errors"
	"github.com/anstrom/netenum/internal/scanning"
	"github.com/anstrom/netenum/internal/store"
)

// resultsCmd prints the latest snapshot.
var resultsCmd = &cobra.Command{
	Use:     "results",
	Short:   "Show the latest scan results",
	Long:    `Print the latest persisted scan as a table of hosts and their open ports.`,
	Example: `  netenum results`,
	Args:    cobra.NoArgs,
	RunE:    runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg)

	resultStore, closeStore, err := store.New(cmd.Context(), cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	scan, err := resultStore.Load(cmd.Context())
	if errors.IsCode(err, errors.CodeNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "No scan results found")
		return nil
	}
	if err != nil {
		return err
	}
	return renderResults(cmd.OutOrStdout(), scan)
}

// renderResults prints a header line and one row per open port. Hosts
// without open ports get a single row.
func renderResults(w io.Writer, scan *scanning.Scan) error {
	status := "in progress"
	if !scan.InProgress() {
		status = fmt.Sprintf("completed in %.2fs", scan.Duration().Seconds())
	}
	fmt.Fprintf(w, "Scan %s of %s, started %s, %s\n\n",
		scan.ID, scan.Network, scan.StartTime().Format(time.DateTime), status)

	table := tablewriter.NewWriter(w)
	table.Header("IP", "Hostname", "OS", "Port", "Service", "Version", "HTTP", "Screenshot")
	for _, h := range scan.Hosts {
		if len(h.OpenPorts) == 0 {
			_ = table.Append([]string{h.IP, h.DisplayName(), deref(h.OS), "-", "-", "-", "-", "-"})
			continue
		}
		for _, p := range h.OpenPorts {
			_ = table.Append([]string{
				h.IP,
				h.DisplayName(),
				deref(h.OS),
				strconv.Itoa(p.Port),
				p.Service,
				deref(p.Version),
				statusLine(p.HTTPResponse),
				yesNo(p.Screenshot != nil),
			})
		}
	}
	return table.Render()
}

func statusLine(resp *string) string {
	if resp == nil {
		return "-"
	}
	line, _, _ := strings.Cut(*resp, "\n")
	return strings.TrimSpace(line)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
