package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/canopy/pkg/agent"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/node"
	"github.com/aretw0/canopy/pkg/session"
	"github.com/aretw0/canopy/pkg/tree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterTree(t *testing.T) tree.Tree {
	t.Helper()
	root := node.NewFunc("count", func(_ context.Context, tk domain.Tick) (domain.Status, domain.Tick) {
		var n int
		switch v := tk.Blackboard.GetOr("n", 0).(type) {
		case int:
			n = v
		case float64:
			n = int(v)
		}
		return domain.Success, tk.Put("n", n+1)
	})
	tr, err := tree.New(root)
	require.NoError(t, err)
	return tr
}

func setup(t *testing.T, opts ...Option) (*session.Manager, http.Handler) {
	t.Helper()
	m := session.NewManager()
	t.Cleanup(func() { _ = m.StopAll(context.Background()) })
	return m, NewHandler(m, opts...)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthAndList(t *testing.T) {
	m, h := setup(t)
	_, err := m.Start(context.Background(), "a1", counterTree(t))
	require.NoError(t, err)

	w := do(t, h, "GET", "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","agents":1}`, w.Body.String())

	w = do(t, h, "GET", "/agents", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"agents":["a1"]}`, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestTickAndBlackboard(t *testing.T) {
	m, h := setup(t)
	_, err := m.Start(context.Background(), "a1", counterTree(t))
	require.NoError(t, err)

	for range 2 {
		w := do(t, h, "POST", "/agents/a1/tick", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"success"}`, w.Body.String())
	}

	w := do(t, h, "GET", "/agents/a1/blackboard/n", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"key":"n","value":2}`, w.Body.String())

	w = do(t, h, "PUT", "/agents/a1/blackboard/user", `{"value":"ada"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, "GET", "/agents/a1/blackboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"n":2,"user":"ada"}`, w.Body.String())

	w = do(t, h, "GET", "/agents/a1/blackboard/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "PUT", "/agents/a1/blackboard/user", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTick_ErrorReason(t *testing.T) {
	m, h := setup(t)
	root := node.NewFunc("boom", func(_ context.Context, tk domain.Tick) (domain.Status, domain.Tick) {
		return domain.Error(errors.New("sensor offline")), tk
	})
	tr, err := tree.New(root)
	require.NoError(t, err)
	_, err = m.Start(context.Background(), "a1", tr)
	require.NoError(t, err)

	w := do(t, h, "POST", "/agents/a1/tick", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "sensor offline", resp.Reason)
}

func TestModeHaltStats(t *testing.T) {
	m, h := setup(t)
	_, err := m.Start(context.Background(), "a1", counterTree(t), agent.WithInterval(time.Hour))
	require.NoError(t, err)

	w := do(t, h, "POST", "/agents/a1/mode", `{"mode":"auto"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"mode":"auto"}`, w.Body.String())

	w = do(t, h, "POST", "/agents/a1/mode", `{"mode":"turbo"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "POST", "/agents/a1/mode", `[]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "GET", "/agents/a1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats agent.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, "a1", stats.ID)
	assert.Equal(t, agent.Auto, stats.Mode)
	assert.True(t, stats.Scheduled)

	w = do(t, h, "POST", "/agents/a1/halt", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, "GET", "/agents/a1/stats", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.False(t, stats.Scheduled, "halt cancels the pending tick")
}

func TestUnknownAndDeletedAgent(t *testing.T) {
	m, h := setup(t)
	_, err := m.Start(context.Background(), "a1", counterTree(t))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, do(t, h, "POST", "/agents/ghost/tick", "").Code)

	assert.Equal(t, http.StatusNoContent, do(t, h, "DELETE", "/agents/a1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "POST", "/agents/a1/tick", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "DELETE", "/agents/a1", "").Code)
}

func TestStartAgent(t *testing.T) {
	_, disabled := setup(t)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, disabled, "POST", "/agents", `{"id":"x"}`).Code)

	_, h := setup(t, WithTemplate(context.Background(), counterTree(t)))

	w := do(t, h, "POST", "/agents", `{"id":"x","blackboard":{"n":41}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"x"`)

	assert.Equal(t, http.StatusConflict, do(t, h, "POST", "/agents", `{"id":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/agents", `{"id":" "}`).Code)

	do(t, h, "POST", "/agents/x/tick", "")
	w = do(t, h, "GET", "/agents/x/blackboard/n", "")
	assert.JSONEq(t, `{"key":"n","value":42}`, w.Body.String())
}

func TestStartAgent_TemplateBlackboard(t *testing.T) {
	tmpl := WithTemplate(context.Background(), counterTree(t), agent.WithMode(agent.Manual))
	_, h := setup(t, tmpl, func(s *Server) {
		s.Template.Blackboard = func(values map[string]any) (domain.Blackboard, error) {
			if _, ok := values["n"]; !ok {
				return domain.Blackboard{}, errors.New("n is required")
			}
			return domain.NewBlackboard(map[string]any{"n": values["n"], "site": "lab"}), nil
		}
	})

	w := do(t, h, "POST", "/agents", `{"id":"x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "n is required")

	w = do(t, h, "POST", "/agents", `{"id":"y","mode":"manual","blackboard":{"n":1}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(t, h, "GET", "/agents/y/blackboard/site", "")
	assert.JSONEq(t, `{"key":"site","value":"lab"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "canopy_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	_, h := setup(t, WithGatherer(reg))
	w := do(t, h, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "canopy_test_total 1")

	_, plain := setup(t)
	assert.Equal(t, http.StatusNotFound, do(t, plain, "GET", "/metrics", "").Code)
}

func TestSubscribeEvents(t *testing.T) {
	streams := NewStreamManager()
	m := session.NewManager(session.WithAgentOptions(agent.WithSink(streams)))
	t.Cleanup(func() { _ = m.StopAll(context.Background()) })
	_, err := m.Start(context.Background(), "a1", counterTree(t))
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(m, WithStreams(streams)))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/agents/a1/events?types=agent_tick_stop", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)
	assert.Equal(t, 1, streams.Subscribers("a1"))

	tickResp, err := http.Post(srv.URL+"/agents/a1/tick", "application/json", nil)
	require.NoError(t, err)
	tickResp.Body.Close()

	var data string
	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if payload, ok := strings.CutPrefix(line, "data: "); ok && payload != "connected\n" {
			data = payload
			break
		}
	}

	var ev StreamEvent
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, domain.EventAgentTickStop, ev.Type)
	assert.Equal(t, "success", ev.Status)
}

func TestSubscribeEvents_Disabled(t *testing.T) {
	m, h := setup(t)
	_, err := m.Start(context.Background(), "a1", counterTree(t))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/agents/a1/events", "").Code)
}

func TestStreamManager_DropsSlowSubscriber(t *testing.T) {
	var logs bytes.Buffer
	sm := NewStreamManager(WithStreamLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	sm.buffer = 1
	ch, cancel := sm.Subscribe("a")

	sm.Emit(context.Background(), domain.Event{Type: domain.EventTickStart, AgentID: "a"})
	sm.Emit(context.Background(), domain.Event{Type: domain.EventTickStop, AgentID: "a"})
	sm.Emit(context.Background(), domain.Event{Type: domain.EventTickStop, AgentID: "other"})

	got := <-ch
	assert.Equal(t, domain.EventTickStart, got.Type)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %v", ev.Type)
	default:
	}

	assert.Equal(t, 1, strings.Count(logs.String(), "dropping event"))
	assert.Contains(t, logs.String(), "agent_id=a")

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers("a"))
}
