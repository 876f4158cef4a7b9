package toolapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/learning-tracker/internal/export"
	"github.com/p-n-ai/learning-tracker/internal/toolapi"
)

func newServer(t *testing.T, opts ...toolapi.HandlerOption) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(toolapi.NewHandler(newDispatcher(t), opts...))
	t.Cleanup(srv.Close)
	return srv
}

func postTool(t *testing.T, srv *httptest.Server, name, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/tools/"+name, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHandler_Health(t *testing.T) {
	srv := newServer(t)

	tests := []struct {
		path   string
		status string
	}{
		{"/healthz", "ok"},
		{"/readyz", "ready"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.status, body["status"])
		})
	}
}

func TestHandler_ReadinessFailure(t *testing.T) {
	srv := newServer(t, toolapi.WithReadiness(func(context.Context) error {
		return errors.New("database unreachable")
	}))

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandler_ListTools(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/tools")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Tools []toolapi.Tool `json:"tools"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Tools, 13)
}

func TestHandler_CallTool(t *testing.T) {
	srv := newServer(t)

	status, body := postTool(t, srv, "get_current_position", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, toolapi.NoTutorialMessage, body["error"])

	status, body = postTool(t, srv, "create_tutorial", courseJSON)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = postTool(t, srv, "start_tutorial", "{}")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Tutorial started", body["message"])

	status, body = postTool(t, srv, "warp_drive", "{}")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "unknown tool")
}

func TestHandler_CallTool_WrongMethod(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/tools/get_tutorial")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandler_Exports(t *testing.T) {
	srv := newServer(t)

	for _, path := range []string{"/export/progress.xlsx", "/export/book.md"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}

	_, body := postTool(t, srv, "create_tutorial", courseJSON)
	require.Equal(t, true, body["success"])

	resp, err := http.Get(srv.URL + "/export/progress.xlsx")
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetCurriculum)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	resp, err = http.Get(srv.URL + "/export/book.md")
	require.NoError(t, err)
	md, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/markdown")
	assert.Contains(t, string(md), "# Go Basics")
}

func TestHandler_WebSocket(t *testing.T) {
	srv := newServer(t)
	ctx := t.Context()

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer c.CloseNow()

	roundTrip := func(req toolapi.WSRequest) toolapi.WSResponse {
		t.Helper()
		require.NoError(t, wsjson.Write(ctx, c, req))
		var resp toolapi.WSResponse
		require.NoError(t, wsjson.Read(ctx, c, &resp))
		return resp
	}

	resp := roundTrip(toolapi.WSRequest{ID: "1", Name: "create_tutorial", Arguments: json.RawMessage(courseJSON)})
	assert.Equal(t, "1", resp.ID)
	assert.True(t, resp.Result.Success())

	resp = roundTrip(toolapi.WSRequest{ID: "2", Name: "start_tutorial"})
	assert.Equal(t, "2", resp.ID)
	assert.Equal(t, "Tutorial started", resp.Result["message"])

	resp = roundTrip(toolapi.WSRequest{Name: "get_current_position"})
	assert.NotEmpty(t, resp.ID, "an ID is generated when the request has none")
	assert.Equal(t, "Variables", resp.Result["current_lesson"].(map[string]any)["name"])

	resp = roundTrip(toolapi.WSRequest{ID: "4", Name: "nope"})
	assert.False(t, resp.Result.Success())
	assert.Contains(t, resp.Result.Error(), "unknown tool")

	require.NoError(t, c.Close(websocket.StatusNormalClosure, ""))
}
