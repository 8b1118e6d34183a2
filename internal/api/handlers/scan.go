package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/anstrom/netenum/internal/engine"
	"github.com/anstrom/netenum/internal/logging"
)

const maxScanRequestBytes = 64 << 10

// ScanStarter starts scans and reports whether one is active.
type ScanStarter interface {
	Start(network string) (*engine.Run, error)
	Running() bool
}

// ScanRequest is the body of POST /scan.
type ScanRequest struct {
	Network string `json:"network" validate:"required,ipv4net" example:"192.168.1.0/24"`
}

// ScanHandler starts scans and streams their progress.
type ScanHandler struct {
	scans    ScanStarter
	hub      *Hub
	validate *validator.Validate
	logger   *logging.Logger
}

// NewScanHandler creates a scan handler. Lines of every streamed run are
// also broadcast to hub when it is not nil.
func NewScanHandler(scans ScanStarter, hub *Hub, logger *logging.Logger) *ScanHandler {
	return &ScanHandler{
		scans:    scans,
		hub:      hub,
		validate: newValidator(),
		logger:   logger,
	}
}

// newValidator returns a validator with the ipv4net rule, which accepts
// IPv4 CIDRs with or without host bits.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("ipv4net", func(fl validator.FieldLevel) bool {
		_, err := engine.ValidateNetwork(fl.Field().String())
		return err == nil
	})
	return v
}

// StartScan starts a scan of the requested network and streams its log.
//
// @Summary Scan a network for hosts and open ports
// @Description Starts a scan and streams the progress log as plain text. The
// @Description stream ends with "Scan complete. Results saved to database.".
// @Tags Scan
// @Accept json
// @Produce plain
// @Param request body ScanRequest true "Network to scan"
// @Success 200 {string} string "Scan log stream"
// @Failure 400 {object} InvalidNetworkResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /scan [post]
func (h *ScanHandler) StartScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	decodeErr := json.NewDecoder(io.LimitReader(r.Body, maxScanRequestBytes)).Decode(&req)
	if decodeErr != nil || h.validate.Struct(req) != nil {
		h.logger.Error(fmt.Sprintf("Invalid network CIDR: %s", req.Network))
		writeJSON(w, h.logger, http.StatusBadRequest, InvalidNetworkResponse{
			Error:  "Invalid network CIDR",
			Format: "x.x.x.x/x",
		})
		return
	}

	run, err := h.scans.Start(req.Network)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info(fmt.Sprintf("Starting scan on validated network: %s", run.Network), "scan_id", run.ID)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=scan_log_%d.txt", time.Now().Unix()))
	w.Header().Set("X-Scan-ID", run.ID)
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	connected := true

	// The run outlives the request: keep draining after the client goes
	// away so websocket subscribers still see every line.
	for line := range run.Broker.Lines(context.WithoutCancel(r.Context())) {
		if h.hub != nil {
			h.hub.Broadcast(line)
		}
		if !connected {
			continue
		}
		if r.Context().Err() != nil {
			connected = false
			h.logger.Info("Scan stream client disconnected", "scan_id", run.ID)
			continue
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			connected = false
			continue
		}
		_ = rc.Flush()
	}
}

// ScanWebSocket subscribes to the lines of the active scan.
//
// @Summary Follow the active scan
// @Description Upgrades to a websocket that receives every log line of the
// @Description active scan as a text message. Fails with 409 when no scan is running.
// @Tags Scan
// @Success 101 {string} string "Switching Protocols"
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /scan/ws [get]
func (h *ScanHandler) ScanWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil || !h.scans.Running() {
		writeJSON(w, h.logger, http.StatusConflict, ErrorResponse{Error: "No scan in progress"})
		return
	}
	if err := h.hub.Serve(w, r); err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", "error", err)
	}
}
