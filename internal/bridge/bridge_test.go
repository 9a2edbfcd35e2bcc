package bridge

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamkeys/position-engine/internal/adapter/examples"
	"github.com/streamkeys/position-engine/internal/adapter/fake"
	"github.com/streamkeys/position-engine/internal/clock"
	"github.com/streamkeys/position-engine/internal/config"
	"github.com/streamkeys/position-engine/internal/orchestrator"
	"github.com/streamkeys/position-engine/internal/sse"
)

func testCfg() config.Tunables {
	cfg := config.Defaults()
	cfg.SeekMinDiffSeconds = 15
	cfg.SeekDebounceWindow = 5 * time.Second
	cfg.SeekMaxHistory = 10
	cfg.LoadTimeCaptureDelay = 1 * time.Second
	cfg.ReadyForTrackingDelay = 500 * time.Millisecond
	cfg.StableTimeDelay = 500 * time.Millisecond
	cfg.KeyboardSeekFlagTimeout = 2 * time.Second
	cfg.KeyboardSeekFlagTimeoutNoVideo = 500 * time.Millisecond
	return cfg
}

func newTestSession(t *testing.T) (*Bridge, string, *orchestrator.Orchestrator, *fake.Video, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Unix(0, 0))
	cfg := testCfg()

	player := fake.NewPlayer("p1")
	video := fake.NewVideo("v1", 150)
	ad := examples.NewGeneric(player, video)

	orch := orchestrator.New(ad, clk, cfg, nil)
	orch.Discover()
	clk.Advance(cfg.LoadTimeCaptureDelay + cfg.ReadyForTrackingDelay + time.Millisecond)

	hub := sse.NewHub()
	go hub.Run()
	t.Cleanup(hub.Close)

	b := New(nil, hub)
	b.RegisterSession("s1", orch)
	return b, "s1", orch, video, clk
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/x", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleMarkKeyboardSeekUnknownSession(t *testing.T) {
	hub := sse.NewHub()
	go hub.Run()
	t.Cleanup(hub.Close)
	b := New(nil, hub)

	rec := postJSON(t, b.HandleMarkKeyboardSeek, markKeyboardSeekRequest{SessionID: "missing"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSaveManualPosition(t *testing.T) {
	b, id, _, video, _ := newTestSession(t)
	video.SetTime(500)

	rec := postJSON(t, b.HandleSaveManualPosition, manualSaveRequest{SessionID: id})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp manualSaveResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.True(t, resp.Saved)
}

func TestHandleOpenAndCloseDialog(t *testing.T) {
	b, id, _, video, _ := newTestSession(t)
	video.SetTime(500)
	postJSON(t, b.HandleSaveManualPosition, manualSaveRequest{SessionID: id})

	rec := postJSON(t, b.HandleOpenDialog, openDialogRequest{SessionID: id})
	require.Equal(t, http.StatusNoContent, rec.Code)

	keyRec := postJSON(t, b.HandleDialogKeys, dialogKeyRequest{SessionID: id, Key: "Escape"})
	require.Equal(t, http.StatusOK, keyRec.Code)
	var resp dialogKeyResponse
	require.NoError(t, json.NewDecoder(keyRec.Body).Decode(&resp))
	require.True(t, resp.Consumed)
}

func TestHandleDebugRendersSessionCount(t *testing.T) {
	b, _, _, _, _ := newTestSession(t)

	req := httptest.NewRequest(http.MethodGet, "/debug", nil)
	rec := httptest.NewRecorder()
	b.HandleDebug(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Active sessions: 1")
}

func TestOnRestoreOutcomeBroadcasts(t *testing.T) {
	hub := sse.NewHub()
	go hub.Run()
	t.Cleanup(hub.Close)
	b := New(nil, hub)

	client := &sse.Client{ID: "c1", Events: make(chan []byte, 4)}
	hub.Register(client)
	t.Cleanup(func() { hub.Unregister(client) })

	cb := b.OnRestoreOutcome("s1")
	cb(orchestrator.RestoreOutcome{Success: true})

	select {
	case data := <-client.Events:
		require.Contains(t, string(data), "restore-outcome")
	case <-time.After(time.Second):
		t.Fatal("expected broadcast event")
	}
}
