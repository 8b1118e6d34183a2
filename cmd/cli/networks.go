package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/netenum/internal/services"
)

const networksTimeout = 30 * time.Second

// networksCmd lists the local interfaces and routes.
var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "Show local interfaces, routes and scannable networks",
	Long: `Show the interfaces and routes reported by nmap --iflist. Every route
other than the default route is listed as an available network.`,
	Example: `  netenum networks`,
	Args:    cobra.NoArgs,
	RunE:    runNetworks,
}

func init() {
	rootCmd.AddCommand(networksCmd)
}

func runNetworks(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := initLogging(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), networksTimeout)
	defer cancel()

	inv, err := services.NewNetworkService(cfg.Scanning.NmapPath, nil, logger).Inventory(ctx)
	if err != nil {
		return fmt.Errorf("failed to list networks: %w", err)
	}
	return renderInventory(cmd.OutOrStdout(), inv)
}

// renderInventory prints inv as three tables.
func renderInventory(w io.Writer, inv *services.Inventory) error {
	fmt.Fprintln(w, "Interfaces:")
	ifaces := tablewriter.NewWriter(w)
	ifaces.Header("Interface", "Short", "CIDR", "Type", "Up", "MTU", "MAC")
	for _, i := range inv.Interfaces {
		mtu := "-"
		if i.MTU != nil {
			mtu = strconv.Itoa(*i.MTU)
		}
		_ = ifaces.Append([]string{i.Interface, i.ShortName, i.CIDR, i.Type, strconv.FormatBool(i.Status), mtu, deref(i.MAC)})
	}
	if err := ifaces.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nRoutes:")
	routes := tablewriter.NewWriter(w)
	routes.Header("Network", "Interface", "Metric", "Gateway")
	for _, r := range inv.Routes {
		_ = routes.Append([]string{r.Network, r.Interface, strconv.Itoa(r.Metric), deref(r.Gateway)})
	}
	if err := routes.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nAvailable networks:")
	for _, n := range inv.AvailableNetworks {
		fmt.Fprintf(w, "  %s\n", n)
	}
	if gw := inv.DefaultGateway(); gw != "" {
		fmt.Fprintf(w, "\nDefault gateway: %s\n", gw)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
