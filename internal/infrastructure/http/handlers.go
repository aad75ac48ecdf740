// ABOUTME: HTTP handlers for channel endpoints
// ABOUTME: Implements status, stats, trigger, capture download, and health routes
package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/harper/scope-capture/internal/application/manager"
	"github.com/harper/scope-capture/internal/domain/channel"
	"github.com/harper/scope-capture/internal/infrastructure/wire"
)

// channelFromPath resolves /{channel}/{suffix} requests.
func channelFromPath(mgr *manager.Manager, r *http.Request, suffix string) *channel.Channel {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 2 || parts[1] != suffix {
		return nil
	}
	return mgr.Get(parts[0])
}

type TriggerHandler struct {
	mgr *manager.Manager
}

func NewTriggerHandler(mgr *manager.Manager) *TriggerHandler {
	return &TriggerHandler{mgr: mgr}
}

// ServeHTTP reports an external trigger signal into the capture state
// machine. A trigger while a capture is in flight is dropped and answered
// with 409 so the caller can tell the difference.
func (h *TriggerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ch := channelFromPath(h.mgr, r, "trigger")
	if ch == nil {
		http.NotFound(w, r)
		return
	}

	type response struct {
		Accepted bool   `json:"accepted"`
		State    string `json:"state"`
	}

	accepted := ch.Trigger()
	w.Header().Set("Content-Type", "application/json")
	if accepted {
		w.WriteHeader(http.StatusAccepted)
	} else {
		w.WriteHeader(http.StatusConflict)
	}
	json.NewEncoder(w).Encode(response{Accepted: accepted, State: ch.StateName()})
}

type CaptureHandler struct {
	mgr *manager.Manager
}

func NewCaptureHandler(mgr *manager.Manager) *CaptureHandler {
	return &CaptureHandler{mgr: mgr}
}

// ServeHTTP serves the latest completed capture in the binary export
// framing.
func (h *CaptureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ch := channelFromPath(h.mgr, r, "capture")
	if ch == nil {
		http.NotFound(w, r)
		return
	}

	capture := ch.LastCapture()
	if capture == nil {
		http.Error(w, "no capture yet", http.StatusNotFound)
		return
	}

	data := wire.Encode(capture)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", capture.ID+".scap"))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

type StatsHandler struct {
	mgr *manager.Manager
}

func NewStatsHandler(mgr *manager.Manager) *StatsHandler {
	return &StatsHandler{mgr: mgr}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ch := channelFromPath(h.mgr, r, "stats")
	if ch == nil {
		http.NotFound(w, r)
		return
	}

	type response struct {
		Channel     string  `json:"channel"`
		AverageMv   *uint64 `json:"average_mv,omitempty"`
		SampleCount uint32  `json:"sample_count"`
		CursorPos   uint32  `json:"cursor_pos"`
		Overflows   uint64  `json:"overflows"`
		ReportedAt  *string `json:"reported_at,omitempty"`
	}

	resp := response{
		Channel:   ch.ID(),
		CursorPos: ch.Ring().Cursor(),
		Overflows: ch.OverflowCount(),
	}
	if rep := ch.LastReport(); rep != nil {
		resp.SampleCount = rep.SampleCount
		if rep.SampleCount > 0 {
			avg := rep.AverageMv
			resp.AverageMv = &avg
		}
		at := rep.At.Format("2006-01-02T15:04:05Z07:00")
		resp.ReportedAt = &at
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type ChannelsHandler struct {
	mgr *manager.Manager
}

func NewChannelsHandler(mgr *manager.Manager) *ChannelsHandler {
	return &ChannelsHandler{mgr: mgr}
}

func (h *ChannelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type channelInfo struct {
		ID         string `json:"id"`
		State      string `json:"state"`
		StatsURL   string `json:"stats_url"`
		CaptureURL string `json:"capture_url"`
		TriggerURL string `json:"trigger_url"`
		Samples    uint64 `json:"samples_ingested"`
		Overflows  uint64 `json:"overflows"`
		Captures   uint64 `json:"captures"`
		FilterOut  int64  `json:"filter_out"`
	}

	channels := h.mgr.List()
	result := make([]channelInfo, 0, len(channels))

	for _, ch := range channels {
		result = append(result, channelInfo{
			ID:         ch.ID(),
			State:      ch.StateName(),
			StatsURL:   fmt.Sprintf("/%s/stats", ch.ID()),
			CaptureURL: fmt.Sprintf("/%s/capture", ch.ID()),
			TriggerURL: fmt.Sprintf("/%s/trigger", ch.ID()),
			Samples:    ch.SamplesIngested(),
			Overflows:  ch.OverflowCount(),
			Captures:   ch.CaptureCount(),
			FilterOut:  ch.FilterValue(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func HealthzHandler(w http.ResponseWriter, r *http.Request) {
	type response struct {
		OK bool `json:"ok"`
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response{OK: true})
}
