// Package bridge is the HTTP/SSE surface the browser extension's content
// script and popup talk to (spec §1's "browser-extension packaging and
// message routing" is out of scope; this is the local companion daemon
// side of that contract). It owns one Orchestrator per tab/session and
// relays history updates, restore outcomes and seek commands to subscribed
// clients over the teacher's SSE hub.
package bridge

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/streamkeys/position-engine/internal/clock"
	"github.com/streamkeys/position-engine/internal/config"
	"github.com/streamkeys/position-engine/internal/orchestrator"
	"github.com/streamkeys/position-engine/internal/remote"
	"github.com/streamkeys/position-engine/internal/sse"
)

// Bridge owns the session registry and wires each session's Orchestrator
// events to the SSE hub.
type Bridge struct {
	cfg *config.Config
	hub *sse.Hub

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	orch   *orchestrator.Orchestrator
	remote *remote.Adapter
}

// New creates a Bridge backed by the given persisted config and SSE hub.
func New(cfg *config.Config, hub *sse.Hub) *Bridge {
	return &Bridge{cfg: cfg, hub: hub, sessions: make(map[string]*session)}
}

// RegisterSession adds an already-constructed Orchestrator under the given
// session ID, so HTTP handlers below can reach it. In the intended
// deployment the session ID is assigned when the content script's adapter
// first registers itself with the companion daemon.
func (b *Bridge) RegisterSession(id string, orch *orchestrator.Orchestrator) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[id] = &session{orch: orch}
}

type registerRequest struct {
	DurationSeconds float64 `json:"durationSeconds"`
}

type registerResponse struct {
	SessionID string `json:"sessionId"`
}

// HandleRegister creates a new session backed by a remote.Adapter — the
// content script calls this once per page load, when it first locates the
// player (spec §4.7 step 1, relayed over the wire instead of happening
// in-process). The returned session ID tags every subsequent telemetry and
// command call.
func (b *Bridge) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	ra := remote.New(id, func(cmd remote.SeekCommand) {
		b.broadcastSeekCommand(id, cmd)
	})
	ra.Apply(remote.Telemetry{Event: remote.EventTick, Duration: req.DurationSeconds})

	cfg := config.Defaults()
	if b.cfg != nil {
		cfg = b.cfg.Tunables()
	}

	orch := orchestrator.New(ra, clock.Real{}, cfg, b.OnRestoreOutcome(id))
	orch.OnHistoryUpdated(func() { b.BroadcastHistoryUpdated(id) })
	orch.Start()

	b.mu.Lock()
	b.sessions[id] = &session{orch: orch, remote: ra}
	b.mu.Unlock()

	writeJSON(w, registerResponse{SessionID: id})
}

func (b *Bridge) broadcastSeekCommand(sessionID string, cmd remote.SeekCommand) {
	payload, err := json.Marshal(struct {
		SessionID string `json:"sessionId"`
		remote.SeekCommand
	}{SessionID: sessionID, SeekCommand: cmd})
	if err != nil {
		return
	}
	b.hub.Broadcast("seek-command", payload)
}

type telemetryRequest struct {
	SessionID string `json:"sessionId"`
	remote.Telemetry
}

// HandleTelemetry folds one reported element-state change into the named
// session's remote.Adapter (spec §6's telemetry-event surface).
func (b *Bridge) HandleTelemetry(w http.ResponseWriter, r *http.Request) {
	var req telemetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	b.mu.RLock()
	s, ok := b.sessions[req.SessionID]
	b.mu.RUnlock()
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	s.remote.Apply(req.Telemetry)
	w.WriteHeader(http.StatusNoContent)
}

// UnregisterSession tears down and forgets a session.
func (b *Bridge) UnregisterSession(id string) {
	b.mu.Lock()
	s, ok := b.sessions[id]
	delete(b.sessions, id)
	b.mu.Unlock()
	if ok {
		s.orch.Stop()
	}
}

func (b *Bridge) lookup(id string) (*orchestrator.Orchestrator, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.sessions[id]
	if !ok {
		return nil, false
	}
	return s.orch, true
}

// HandleSSE upgrades the request to an SSE stream (spec §6: history
// updates, restore outcomes and seek commands flow to the extension popup
// this way), mirroring the teacher's sse handler shape.
func (b *Bridge) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := &sse.Client{ID: uuid.NewString(), Events: make(chan []byte, 16)}
	b.hub.Register(client)
	defer b.hub.Unregister(client)

	for {
		select {
		case data, ok := <-client.Events:
			if !ok {
				return
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

type markKeyboardSeekRequest struct {
	SessionID string `json:"sessionId"`
}

// HandleMarkKeyboardSeek relays the keyboard-dispatch layer's
// markKeyboardSeek() call (spec §6) to the named session's classifier.
func (b *Bridge) HandleMarkKeyboardSeek(w http.ResponseWriter, r *http.Request) {
	var req markKeyboardSeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	orch, ok := b.lookup(req.SessionID)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	orch.MarkKeyboardSeek()
	w.WriteHeader(http.StatusNoContent)
}

type manualSaveRequest struct {
	SessionID string `json:"sessionId"`
}

type manualSaveResponse struct {
	Saved bool `json:"saved"`
}

// HandleSaveManualPosition relays the "save" key (spec §6 saveManualPosition).
func (b *Bridge) HandleSaveManualPosition(w http.ResponseWriter, r *http.Request) {
	var req manualSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	orch, ok := b.lookup(req.SessionID)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	saved := orch.SaveManualPosition()
	writeJSON(w, manualSaveResponse{Saved: saved})
}

type dialogKeyRequest struct {
	SessionID string `json:"sessionId"`
	Key       string `json:"key"`
}

type dialogKeyResponse struct {
	Consumed bool `json:"consumed"`
}

// HandleDialogKeys relays handleDialogKeys(event) (spec §6), returning
// whether the engine consumed the keystroke.
func (b *Bridge) HandleDialogKeys(w http.ResponseWriter, r *http.Request) {
	var req dialogKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	orch, ok := b.lookup(req.SessionID)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	consumed := orch.HandleDialogKeys(req.Key)
	writeJSON(w, dialogKeyResponse{Consumed: consumed})
}

type openDialogRequest struct {
	SessionID string `json:"sessionId"`
}

// HandleOpenDialog relays openRestoreDialog() (spec §6).
func (b *Bridge) HandleOpenDialog(w http.ResponseWriter, r *http.Request) {
	var req openDialogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	orch, ok := b.lookup(req.SessionID)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	if !orch.OpenRestoreDialog() {
		http.Error(w, "no video attached", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCloseDialog relays closeRestoreDialog() (spec §6).
func (b *Bridge) HandleCloseDialog(w http.ResponseWriter, r *http.Request) {
	var req openDialogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	orch, ok := b.lookup(req.SessionID)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	orch.CloseRestoreDialog()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("bridge: failed to encode response", "error", err)
	}
}

// BroadcastHistoryUpdated notifies connected clients that a session's
// history changed, so the popup can re-render without polling.
func (b *Bridge) BroadcastHistoryUpdated(sessionID string) {
	payload, err := json.Marshal(map[string]string{"sessionId": sessionID})
	if err != nil {
		return
	}
	b.hub.Broadcast("history-updated", payload)
}

// restoreOutcomeEvent is broadcast after every restoration attempt so the
// popup can show a failure banner (spec §7).
type restoreOutcomeEvent struct {
	SessionID string  `json:"sessionId"`
	Time      float64 `json:"time"`
	Success   bool    `json:"success"`
	Error     string  `json:"error,omitempty"`
}

// OnRestoreOutcome is suitable as the onRestoreOutcome callback passed to
// orchestrator.New: it broadcasts the result over SSE.
func (b *Bridge) OnRestoreOutcome(sessionID string) func(orchestrator.RestoreOutcome) {
	return func(o orchestrator.RestoreOutcome) {
		evt := restoreOutcomeEvent{SessionID: sessionID, Time: o.Entry.Time, Success: o.Success}
		if o.Err != nil {
			evt.Error = o.Err.Error()
		}
		payload, err := json.Marshal(evt)
		if err != nil {
			return
		}
		b.hub.Broadcast("restore-outcome", payload)
	}
}

var debugTemplate = template.Must(template.New("debug").Parse(`<!DOCTYPE html>
<html>
<head><title>position-engine debug</title></head>
<body>
<h1>position-engine</h1>
<p>Active sessions: {{.SessionCount}}</p>
<ul>
{{range .Sessions}}<li>{{.}}</li>{{end}}
</ul>
<p><a href="/metrics">/metrics</a></p>
</body>
</html>
`))

type debugPageData struct {
	SessionCount int
	Sessions     []string
}

// HandleDebug renders a minimal operator dashboard via html/template — the
// teacher's own settings/dashboard pages use templ, which this repository
// drops (see DESIGN.md) since there is no settings-page component in
// scope; this plain-text equivalent is enough for an operator to confirm
// the daemon sees the sessions it expects.
func (b *Bridge) HandleDebug(w http.ResponseWriter, r *http.Request) {
	b.mu.RLock()
	ids := make([]string, 0, len(b.sessions))
	for id := range b.sessions {
		ids = append(ids, id)
	}
	b.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := debugTemplate.Execute(w, debugPageData{SessionCount: len(ids), Sessions: ids}); err != nil {
		slog.Error("bridge: failed to render debug page", "error", err)
	}
}

// HandleGetConfig exposes the current tunables (spec §6), mirroring the
// teacher's config handlers.
func (b *Bridge) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, b.cfg.Tunables())
}

type setConfigRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// HandleSetConfig persists a tunable override, mirroring the teacher's
// HandleSetConfig.
func (b *Bridge) HandleSetConfig(w http.ResponseWriter, r *http.Request) {
	var req setConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := b.cfg.Set(req.Key, req.Value); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
