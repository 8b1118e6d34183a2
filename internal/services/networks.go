// Package services provides the read-side services behind the API: the
// local network inventory reported by nmap and the D3 graph built from the
// latest snapshot.
package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anstrom/netenum/internal/logging"
)

const (
	defaultRoute    = "0.0.0.0/0"
	iflistTimeout   = 15 * time.Second
	interfaceFields = 6
	routeFields     = 3
)

// Interface is one row of the INTERFACES section of `nmap --iflist`.
type Interface struct {
	Interface string  `json:"interface"`
	ShortName string  `json:"short_name"`
	CIDR      string  `json:"cidr"`
	Type      string  `json:"type"`
	Status    bool    `json:"status"`
	MTU       *int    `json:"mtu"`
	MAC       *string `json:"mac"`
}

// Route is one row of the ROUTES section of `nmap --iflist`.
type Route struct {
	Network   string  `json:"network"`
	Interface string  `json:"interface"`
	Metric    int     `json:"metric"`
	Gateway   *string `json:"gateway"`
}

// Inventory is the response of GET /networks.
type Inventory struct {
	Interfaces        []Interface `json:"interfaces"`
	Routes            []Route     `json:"routes"`
	AvailableNetworks []string    `json:"available_networks"`
}

// EmptyInventory returns an inventory with empty, non-nil lists.
func EmptyInventory() *Inventory {
	return &Inventory{
		Interfaces:        []Interface{},
		Routes:            []Route{},
		AvailableNetworks: []string{},
	}
}

// CommandRunner runs an external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // binary path comes from configuration
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// NetworkService reports the interfaces and routes known to nmap.
// Concurrent callers share a single nmap invocation.
type NetworkService struct {
	nmapPath string
	run      CommandRunner
	logger   *logging.Logger
	group    singleflight.Group
}

// NewNetworkService creates a network service. An empty nmapPath uses the
// nmap binary from PATH, a nil runner uses ExecRunner.
func NewNetworkService(nmapPath string, run CommandRunner, logger *logging.Logger) *NetworkService {
	if nmapPath == "" {
		nmapPath = "nmap"
	}
	if run == nil {
		run = ExecRunner
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &NetworkService{
		nmapPath: nmapPath,
		run:      run,
		logger:   logger.WithComponent("networks"),
	}
}

// Inventory runs `nmap --iflist` and parses its output.
func (s *NetworkService) Inventory(ctx context.Context) (*Inventory, error) {
	v, err, _ := s.group.Do("iflist", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), iflistTimeout)
		defer cancel()

		s.logger.Debug("Running command", "cmd", s.nmapPath+" --iflist")
		out, err := s.run(ctx, s.nmapPath, "--iflist")
		if err != nil {
			return nil, err
		}
		return ParseIflist(string(out)), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Inventory), nil
}

// List returns the inventory, or an empty one when nmap fails.
func (s *NetworkService) List(ctx context.Context) *Inventory {
	inv, err := s.Inventory(ctx)
	if err != nil {
		s.logger.Error("Error listing networks", "error", err)
		return EmptyInventory()
	}
	return inv
}

// DefaultGateway returns the gateway of the default route, or "" when there
// is none.
func (s *NetworkService) DefaultGateway(ctx context.Context) (string, error) {
	inv, err := s.Inventory(ctx)
	if err != nil {
		return "", err
	}
	return inv.DefaultGateway(), nil
}

// DefaultGateway returns the gateway of the 0.0.0.0/0 route.
func (inv *Inventory) DefaultGateway() string {
	for _, r := range inv.Routes {
		if r.Network == defaultRoute && r.Gateway != nil {
			return *r.Gateway
		}
	}
	return ""
}

// ParseIflist parses the output of `nmap --iflist`. Lines outside the
// INTERFACES and ROUTES sections, header lines and short rows are ignored.
func ParseIflist(output string) *Inventory {
	inv := EmptyInventory()

	const (
		sectionNone = iota
		sectionInterfaces
		sectionRoutes
	)
	section := sectionNone

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.Contains(line, "INTERFACES"):
			section = sectionInterfaces
			continue
		case strings.Contains(line, "ROUTES"):
			section = sectionRoutes
			continue
		case line == "", strings.Contains(line, "DEV"), strings.Contains(line, "DST/MASK"):
			continue
		}

		parts := strings.Fields(line)
		switch section {
		case sectionInterfaces:
			if iface, ok := parseInterface(parts); ok {
				inv.Interfaces = append(inv.Interfaces, iface)
			}
		case sectionRoutes:
			if route, ok := parseRoute(parts); ok {
				inv.Routes = append(inv.Routes, route)
				if route.Network != defaultRoute {
					inv.AvailableNetworks = append(inv.AvailableNetworks, route.Network)
				}
			}
		}
	}
	return inv
}

func parseInterface(parts []string) (Interface, bool) {
	if len(parts) < interfaceFields {
		return Interface{}, false
	}
	iface := Interface{
		Interface: parts[0],
		ShortName: strings.Trim(parts[1], "()"),
		CIDR:      parts[2],
		Type:      parts[3],
		Status:    parts[4] == "up",
	}
	if mtu, err := strconv.Atoi(parts[5]); err == nil {
		iface.MTU = &mtu
	}
	if len(parts) > interfaceFields {
		mac := parts[6]
		iface.MAC = &mac
	}
	return iface, true
}

func parseRoute(parts []string) (Route, bool) {
	if len(parts) < routeFields {
		return Route{}, false
	}
	route := Route{
		Network:   parts[0],
		Interface: parts[1],
	}
	if metric, err := strconv.Atoi(parts[2]); err == nil {
		route.Metric = metric
	}
	if len(parts) > routeFields {
		gw := parts[3]
		route.Gateway = &gw
	}
	return route, true
}
