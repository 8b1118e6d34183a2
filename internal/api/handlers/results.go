package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anstrom/netenum/internal/logging"
	"github.com/anstrom/netenum/internal/scanning"
	"github.com/anstrom/netenum/internal/services"
)

// Dependencies of ResultsHandler.
type (
	// StateReader exposes the live scan state.
	StateReader interface {
		Snapshot() scanning.StateSnapshot
	}
	// NetworkLister reports local interfaces and routes.
	NetworkLister interface {
		List(ctx context.Context) *services.Inventory
	}
	// GraphBuilder builds the graph of the latest snapshot.
	GraphBuilder interface {
		Graph(ctx context.Context) (*services.Graph, error)
	}
	// SnapshotOpener opens the latest snapshot as a JSON document.
	SnapshotOpener interface {
		Open(ctx context.Context) (io.ReadCloser, error)
	}
)

// ResultsHandler serves the read-side endpoints.
type ResultsHandler struct {
	state    StateReader
	networks NetworkLister
	graph    GraphBuilder
	store    SnapshotOpener
	logger   *logging.Logger
	now      func() time.Time
}

// NewResultsHandler creates a results handler.
func NewResultsHandler(
	state StateReader,
	networks NetworkLister,
	graph GraphBuilder,
	store SnapshotOpener,
	logger *logging.Logger,
) *ResultsHandler {
	return &ResultsHandler{
		state:    state,
		networks: networks,
		graph:    graph,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// GetState returns the live scan state.
//
// @Summary Current scan state
// @Description Reports whether a scan is running and which host is being scanned.
// @Tags Results
// @Produce json
// @Success 200 {object} scanning.StateSnapshot
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /state [get]
func (h *ResultsHandler) GetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.state.Snapshot())
}

// GetNetworks lists local interfaces, routes and scannable networks.
//
// @Summary Local networks
// @Description Lists interfaces and routes reported by nmap. Empty lists are
// @Description returned when nmap cannot be run.
// @Tags Results
// @Produce json
// @Success 200 {object} services.Inventory
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /networks [get]
func (h *ResultsHandler) GetNetworks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.networks.List(r.Context()))
}

// GetGraph returns the D3 graph of the latest snapshot.
//
// @Summary Network graph
// @Description Returns nodes and links of the latest scan for D3 rendering.
// @Tags Results
// @Produce json
// @Success 200 {object} services.Graph
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /graph [get]
func (h *ResultsHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	g, err := h.graph.Graph(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, g)
}

// Download returns the latest snapshot as a file.
//
// @Summary Download scan results
// @Description Returns the latest snapshot as a JSON attachment.
// @Tags Results
// @Produce json
// @Success 200 {object} scanning.Scan
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /download [get]
func (h *ResultsHandler) Download(w http.ResponseWriter, r *http.Request) {
	body, err := h.store.Open(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer func() { _ = body.Close() }()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="netenum_scan_%d.json"`, h.now().Unix()))
	w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		h.logger.Error("Failed to send scan results", "error", err)
	}
}
