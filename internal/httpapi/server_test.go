package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillback/fingerid/internal/device"
	"github.com/quillback/fingerid/internal/fingerid/service"
	"github.com/quillback/fingerid/internal/fingerid/store"
	"github.com/quillback/fingerid/internal/fingerid/store/memory"
	"github.com/quillback/fingerid/internal/fingerid/types"
	"github.com/quillback/fingerid/internal/httpapi"
)

// fakeDevice answers captures with a fixed result and comparisons from a
// score table keyed by candidate template.
type fakeDevice struct {
	captureResult types.CaptureResult
	captureErr    error
	scores        map[string]int

	// blockCapture, when non-nil, holds Capture until the test closes it;
	// started is signalled once so the test knows the gate is held.
	blockCapture chan struct{}
	started      chan struct{}
	startedOnce  sync.Once
}

func (f *fakeDevice) Capture(_ context.Context, _ device.CaptureConfig) (types.CaptureResult, error) {
	if f.started != nil {
		f.startedOnce.Do(func() { close(f.started) })
	}
	if f.blockCapture != nil {
		<-f.blockCapture
	}
	if f.captureErr != nil {
		return types.CaptureResult{}, f.captureErr
	}
	return f.captureResult, nil
}

func (f *fakeDevice) Compare(_ context.Context, _, candidate string) (int, error) {
	return f.scores[candidate], nil
}

// newTestServer wires the full dependency graph over in-memory stores and
// returns an httptest.Server whose URL can be hit with a plain http.Client.
func newTestServer(t *testing.T, dev *fakeDevice) *httptest.Server {
	t.Helper()

	kv := memory.New()
	ctrl := service.NewController(service.Dependencies{
		Logger:  log.New(io.Discard, "", 0),
		Device:  dev,
		Gallery: store.NewGallery(kv),
		Audit:   store.NewAuditLog(kv),
		Last:    store.NewLastCapture(kv),
	})

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     log.New(io.Discard, "", 0),
		Addr:       ":0",
		Controller: ctrl,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// ── Enrollment ───────────────────────────────────────────────────────────────

func TestEnroll_OK(t *testing.T) {
	ts := newTestServer(t, &fakeDevice{
		captureResult: types.CaptureResult{Template: "tmpl", Quality: 92, NFIQ: 1},
	})

	resp := postJSON(t, ts.URL+"/v1/identities", `{"display_name":"Ada"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[struct {
		Identity types.Identity      `json:"identity"`
		Capture  types.CaptureResult `json:"capture"`
	}](t, resp)

	assert.Equal(t, "Ada", body.Identity.DisplayName)
	assert.NotEmpty(t, body.Identity.ID)
	assert.Equal(t, 92, body.Capture.Quality)
}

func TestEnroll_BadJSON(t *testing.T) {
	ts := newTestServer(t, &fakeDevice{})

	resp := postJSON(t, ts.URL+"/v1/identities", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEnroll_EmptyName(t *testing.T) {
	ts := newTestServer(t, &fakeDevice{})

	resp := postJSON(t, ts.URL+"/v1/identities", `{"display_name":"  "}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}](t, resp)
	assert.Equal(t, "invalid_display_name", body.Error.Code)
}

func TestEnroll_DeviceErrorIsBadGateway(t *testing.T) {
	ts := newTestServer(t, &fakeDevice{
		captureErr: &device.DeviceError{Code: 55, Description: "no device available"},
	})

	resp := postJSON(t, ts.URL+"/v1/identities", `{"display_name":"Ada"}`)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	body := decodeBody[struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}](t, resp)
	assert.Equal(t, "device_error", body.Error.Code)
	assert.Contains(t, body.Error.Message, "no device available")
}

// ── Verification ─────────────────────────────────────────────────────────────

func TestVerify_EmptyGalleryIsConflict(t *testing.T) {
	ts := newTestServer(t, &fakeDevice{})

	resp := postJSON(t, ts.URL+"/v1/verify", ``)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	body := decodeBody[struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}](t, resp)
	assert.Equal(t, "no_enrolled_identities", body.Error.Code)
}

func TestVerify_MatchFlow(t *testing.T) {
	dev := &fakeDevice{
		captureResult: types.CaptureResult{Template: "enroll-tmpl"},
		scores:        map[string]int{"enroll-tmpl": 160},
	}
	ts := newTestServer(t, dev)

	resp := postJSON(t, ts.URL+"/v1/identities", `{"display_name":"Ada"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dev.captureResult = types.CaptureResult{Template: "probe-tmpl"}
	resp = postJSON(t, ts.URL+"/v1/verify", ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[struct {
		Accepted bool            `json:"accepted"`
		Score    int             `json:"score"`
		Matched  *types.Identity `json:"matched"`
	}](t, resp)

	assert.True(t, body.Accepted)
	assert.Equal(t, 160, body.Score)
	require.NotNil(t, body.Matched)
	assert.Equal(t, "Ada", body.Matched.DisplayName)

	// The attempt shows up in the audit trail.
	auditResp, err := http.Get(ts.URL + "/v1/audit")
	require.NoError(t, err)
	defer auditResp.Body.Close()
	audit := decodeBody[struct {
		Entries []types.AuditEntry `json:"entries"`
	}](t, auditResp)
	require.Len(t, audit.Entries, 1)
	assert.Equal(t, "Ada", audit.Entries[0].SubjectName)
}

func TestVerify_CaptureGateRejectsOverlap(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	dev := &fakeDevice{
		captureResult: types.CaptureResult{Template: "tmpl"},
		blockCapture:  block,
		started:       started,
	}
	ts := newTestServer(t, dev)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		resp, err := http.Post(ts.URL+"/v1/identities", "application/json",
			bytes.NewReader([]byte(`{"display_name":"Ada"}`)))
		if err == nil {
			_ = resp.Body.Close()
		}
	}()

	// Wait until the first capture is blocked inside the device, then try to
	// trigger a second one.
	<-started
	resp := postJSON(t, ts.URL+"/v1/verify", ``)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	body := decodeBody[struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}](t, resp)
	assert.Equal(t, "capture_in_flight", body.Error.Code)

	close(block)
	<-firstDone
}

// ── Gallery management ───────────────────────────────────────────────────────

func TestIdentities_ListAndRemove(t *testing.T) {
	dev := &fakeDevice{captureResult: types.CaptureResult{Template: "tmpl"}}
	ts := newTestServer(t, dev)

	resp := postJSON(t, ts.URL+"/v1/identities", `{"display_name":"Ada"}`)
	enrolled := decodeBody[struct {
		Identity types.Identity `json:"identity"`
	}](t, resp)

	listResp, err := http.Get(ts.URL + "/v1/identities")
	require.NoError(t, err)
	defer listResp.Body.Close()
	list := decodeBody[struct {
		Identities []types.Identity `json:"identities"`
	}](t, listResp)
	require.Len(t, list.Identities, 1)

	// Removing an unknown id is still a 200 no-op.
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/identities/nope", nil)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)

	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/v1/identities/"+enrolled.Identity.ID, nil)
	delResp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = delResp.Body.Close()
	require.Equal(t, http.StatusOK, delResp.StatusCode)

	listResp2, err := http.Get(ts.URL + "/v1/identities")
	require.NoError(t, err)
	defer listResp2.Body.Close()
	list2 := decodeBody[struct {
		Identities []types.Identity `json:"identities"`
	}](t, listResp2)
	assert.Empty(t, list2.Identities)
}

// ── Import / export ──────────────────────────────────────────────────────────

func TestExportImport_EndToEnd(t *testing.T) {
	dev := &fakeDevice{captureResult: types.CaptureResult{Template: "tmpl"}}
	ts := newTestServer(t, dev)

	postJSON(t, ts.URL+"/v1/identities", `{"display_name":"Ada"}`)

	exportResp, err := http.Get(ts.URL + "/v1/export")
	require.NoError(t, err)
	defer exportResp.Body.Close()
	raw, err := io.ReadAll(exportResp.Body)
	require.NoError(t, err)

	// Import into a second, empty controller.
	ts2 := newTestServer(t, &fakeDevice{})
	importResp := postJSON(t, ts2.URL+"/v1/import", string(raw))
	require.Equal(t, http.StatusOK, importResp.StatusCode)

	body := decodeBody[struct {
		Imported int `json:"imported"`
	}](t, importResp)
	assert.Equal(t, 1, body.Imported)
}

func TestImport_InvalidDocument(t *testing.T) {
	ts := newTestServer(t, &fakeDevice{})

	resp := postJSON(t, ts.URL+"/v1/import", `{"lastCapture":null}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}](t, resp)
	assert.Equal(t, "invalid_format", body.Error.Code)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &fakeDevice{})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
