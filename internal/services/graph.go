package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/anstrom/netenum/internal/errors"
	"github.com/anstrom/netenum/internal/logging"
	"github.com/anstrom/netenum/internal/scanning"
)

// Node groups used by the D3 front end.
const (
	GroupGateway = 0
	GroupHost    = 1
	GroupPort    = 2
)

// Node is a D3 node. Host and port nodes carry every field of the record
// they were built from.
type Node map[string]any

// Link connects two nodes by ID.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Value  int    `json:"value"`
}

// Graph is the response of GET /graph.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// EmptyGraph returns a graph with empty, non-nil lists.
func EmptyGraph() *Graph {
	return &Graph{Nodes: []Node{}, Links: []Link{}}
}

// SnapshotLoader loads the latest scan snapshot.
type SnapshotLoader interface {
	Load(ctx context.Context) (*scanning.Scan, error)
}

// GatewayResolver reports the default gateway of the local host.
type GatewayResolver interface {
	DefaultGateway(ctx context.Context) (string, error)
}

// GraphService builds graphs from the latest snapshot.
type GraphService struct {
	store    SnapshotLoader
	gateways GatewayResolver
	logger   *logging.Logger
}

// NewGraphService creates a graph service. A nil resolver always falls back
// to the assumed gateway.
func NewGraphService(store SnapshotLoader, gateways GatewayResolver, logger *logging.Logger) *GraphService {
	if logger == nil {
		logger = logging.Default()
	}
	return &GraphService{store: store, gateways: gateways, logger: logger.WithComponent("graph")}
}

// Graph returns the graph of the latest snapshot, or an empty graph when no
// scan has been persisted.
func (s *GraphService) Graph(ctx context.Context) (*Graph, error) {
	scan, err := s.store.Load(ctx)
	if errors.IsCode(err, errors.CodeNotFound) {
		return EmptyGraph(), nil
	}
	if err != nil {
		return nil, err
	}

	gateway := ""
	if s.gateways != nil {
		gw, err := s.gateways.DefaultGateway(ctx)
		if err != nil {
			s.logger.Error("Error finding gateway", "error", err)
		}
		gateway = gw
	}
	if gateway != "" {
		s.logger.Info(fmt.Sprintf("Default gateway found: %s", gateway))
	} else if assumed := AssumedGateway(scan); assumed != "" {
		s.logger.Info(fmt.Sprintf("Using assumed gateway: %s", assumed))
	}

	return BuildGraph(scan, gateway), nil
}

// AssumedGateway returns the .1 address in the /24 of the first host, or ""
// for a scan without hosts.
func AssumedGateway(scan *scanning.Scan) string {
	if len(scan.Hosts) == 0 {
		return ""
	}
	octets := strings.Split(scan.Hosts[0].IP, ".")
	if len(octets) != 4 {
		return ""
	}
	return fmt.Sprintf("%s.%s.%s.1", octets[0], octets[1], octets[2])
}

// BuildGraph converts scan into D3 nodes and links. An empty gateway is
// replaced by AssumedGateway. The gateway gets its own node unless one of
// the hosts already is the gateway, and is linked to every other host.
func BuildGraph(scan *scanning.Scan, gateway string) *Graph {
	g := EmptyGraph()
	ids := make(map[string]struct{})

	for _, h := range scan.Hosts {
		g.Nodes = append(g.Nodes, hostNode(h))
		ids[h.IP] = struct{}{}

		for _, p := range h.OpenPorts {
			node := portNode(h.IP, p)
			g.Nodes = append(g.Nodes, node)
			g.Links = append(g.Links, Link{Source: h.IP, Target: node["id"].(string), Value: 1})
		}
	}

	if gateway == "" {
		gateway = AssumedGateway(scan)
	}
	if gateway == "" {
		return g
	}

	if _, ok := ids[gateway]; !ok {
		g.Nodes = append(g.Nodes, Node{
			"id":       gateway,
			"host":     gateway,
			"ip":       gateway,
			"type":     "host",
			"hostname": "Gateway",
			"group":    GroupGateway,
		})
	}
	for _, h := range scan.Hosts {
		if h.IP != gateway {
			g.Links = append(g.Links, Link{Source: gateway, Target: h.IP, Value: 1})
		}
	}
	return g
}

func hostNode(h *scanning.Host) Node {
	ports := h.OpenPorts
	if ports == nil {
		ports = []scanning.Port{}
	}
	n := Node{
		"id":         h.IP,
		"type":       "host",
		"group":      GroupHost,
		"ip":         h.IP,
		"mac":        h.MAC,
		"vendor":     h.Vendor,
		"hostname":   h.Hostname,
		"os":         h.OS,
		"open_ports": ports,
	}
	if h.Icon != nil {
		n["icon"] = *h.Icon
	}
	return n
}

func portNode(ip string, p scanning.Port) Node {
	octets := strings.Split(ip, ".")
	return Node{
		"id":            fmt.Sprintf("%s_%d", octets[len(octets)-1], p.Port),
		"name":          p.Port,
		"host":          ip,
		"type":          "port",
		"group":         GroupPort,
		"port":          p.Port,
		"state":         p.State,
		"service":       p.Service,
		"version":       p.Version,
		"http_response": p.HTTPResponse,
		"screenshot":    p.Screenshot,
	}
}
