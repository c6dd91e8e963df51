package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"succession/internal/config"
	"succession/internal/deck"
	"succession/internal/plan"
	"succession/internal/pptx"
	"succession/internal/store"
	"succession/internal/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInput(successors int) plan.Input {
	in := plan.Input{Incumbent: plan.Incumbent{
		Person: plan.Person{EmployeeID: "100", FirstName: "Ada", LastName: "Lovelace", PositionTitle: "VP Engineering"},
		Plan:   plan.IncumbentPlan{CriticalRole: true, Responsibilities: "Owns the roadmap"},
	}}
	for i := 1; i <= successors; i++ {
		in.Successors = append(in.Successors, plan.Successor{
			Person:     plan.Person{EmployeeID: fmt.Sprintf("%d", 200+i), FirstName: "F", LastName: fmt.Sprintf("L%d", i)},
			Assessment: plan.SuccessorAssessment{Readiness: "Ready Now", Strengths: "Steady"},
		})
	}
	return in
}

func newTestServer(t *testing.T, tpl template.Source, withStore bool) *httptest.Server {
	t.Helper()
	cfg := config.DefaultConfig()
	builder := deck.NewBuilder(deck.OptionsFromConfig(cfg), tpl, nil)

	var dir Directory
	if withStore {
		st, err := store.NewLocalStore(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		require.NoError(t, st.UpsertEmployee(plan.Person{EmployeeID: "100", FirstName: "Ada", LastName: "Lovelace"}))
		dir = st
	}

	srv := httptest.NewServer(New(OptionsFromConfig(cfg), builder, dir).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func defaultTemplate(t *testing.T) template.Source {
	t.Helper()
	data, err := template.Default(config.DefaultConfig().PowerPoint)
	require.NoError(t, err)
	return template.Static(data)
}

func postJSON(t *testing.T, url string, v interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestBuildDeck(t *testing.T) {
	srv := newTestServer(t, defaultTemplate(t), false)

	resp := postJSON(t, srv.URL+"/api/decks", testInput(4))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, deck.ContentType, resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="succession_plan_Lovelace.pptx"`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "2", resp.Header.Get("X-Deck-Slides"))
	assert.Equal(t, "0", resp.Header.Get("X-Deck-Warnings"))
	assert.Equal(t, "repaired", resp.Header.Get("X-Deck-Repair"))
	assert.NotEmpty(t, resp.Header.Get("X-Build-Id"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	p, err := pptx.Open(data)
	require.NoError(t, err)
	assert.Equal(t, 2, p.SlideCount())
}

func TestBuildDeck_Errors(t *testing.T) {
	srv := newTestServer(t, defaultTemplate(t), false)

	resp := postJSON(t, srv.URL+"/api/decks", testInput(0))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Problems)
	assert.Equal(t, "successors", body.Problems[0].Field)

	bad, err := http.Post(srv.URL+"/api/decks", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)

	wrongMethod := get(t, srv.URL+"/api/decks")
	assert.Equal(t, http.StatusMethodNotAllowed, wrongMethod.StatusCode)

	broken := newTestServer(t, template.Static(nil), false)
	resp = postJSON(t, broken.URL+"/api/decks", testInput(1))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestBuildDeck_CapacityIsUnprocessable(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PowerPoint.MaxSlides = 1
	builder := deck.NewBuilder(deck.OptionsFromConfig(cfg), defaultTemplate(t), nil)
	srv := httptest.NewServer(New(OptionsFromConfig(cfg), builder, nil).Handler())
	t.Cleanup(srv.Close)

	resp := postJSON(t, srv.URL+"/api/decks", testInput(4))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "do not fit")

	resp = postJSON(t, srv.URL+"/api/decks", testInput(3))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEmployeesAndPlans(t *testing.T) {
	srv := newTestServer(t, defaultTemplate(t), true)

	resp := get(t, srv.URL+"/api/employees?last_name=love")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var people []plan.Person
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&people))
	require.Len(t, people, 1)
	assert.Equal(t, "100", people[0].EmployeeID)

	resp = get(t, srv.URL+"/api/employees")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = get(t, srv.URL+"/api/employees/100/incumbent-plan")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/plans", testInput(2))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var saved savePlanResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&saved))
	assert.Len(t, saved.RecordIDs, 2)

	resp = get(t, srv.URL+"/api/employees/100/incumbent-plan")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var inc plan.IncumbentPlan
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&inc))
	assert.Equal(t, "Owns the roadmap", inc.Responsibilities)
	assert.True(t, inc.CriticalRole)

	resp = get(t, srv.URL+"/api/employees/202/successor-assessment")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var a plan.SuccessorAssessment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&a))
	assert.Equal(t, "Steady", a.Strengths)

	resp = postJSON(t, srv.URL+"/api/plans", testInput(0))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStoreEndpointsWithoutDirectory(t *testing.T) {
	srv := newTestServer(t, defaultTemplate(t), false)
	for _, path := range []string{"/api/employees?last_name=x", "/api/employees/1/incumbent-plan", "/api/employees/1/successor-assessment"} {
		resp := get(t, srv.URL+path)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestFormOptionsAndHealth(t *testing.T) {
	srv := newTestServer(t, defaultTemplate(t), false)

	resp := get(t, srv.URL+"/api/form-options")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var opts config.FormOptions
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&opts))
	assert.Equal(t, config.DefaultConfig().FormOptions, opts)

	resp = get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServe_LimitedListenerAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(Options{MaxConns: 1}, deck.NewBuilder(deck.Options{}, defaultTemplate(t), nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := &http.Client{Timeout: 5 * time.Second}
	defer client.CloseIdleConnections()
	for i := 0; i < 3; i++ {
		resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	client.CloseIdleConnections()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
