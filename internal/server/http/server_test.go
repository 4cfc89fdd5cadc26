package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Cdineshreddy12/Wrapper-sub015/internal/acks"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/config"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/event"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/flows"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/publish"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/runtime"
	pebblestore "github.com/Cdineshreddy12/Wrapper-sub015/internal/storage/pebble"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/taskqueue"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/tracking"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/worker"
	"github.com/Cdineshreddy12/Wrapper-sub015/internal/workflow"
	logpkg "github.com/Cdineshreddy12/Wrapper-sub015/pkg/log"
)

// newTestServer wires the full stack behind an httptest server.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{
		DataDir: t.TempDir(),
		Fsync:   pebblestore.FsyncModeAlways,
		Config:  config.Default(),
	})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })

	trk := tracking.NewStore(rt.DB(), logpkg.Nop())
	pub := publish.NewPublisher(rt, trk, event.DefaultRegistry(), logpkg.Nop())

	consumer := acks.NewConsumer(rt, trk, "crm", rt.Config().Tracking.RetryBudget, logpkg.Nop())
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start ack consumer: %v", err)
	}
	t.Cleanup(consumer.Stop)

	q, err := taskqueue.OpenQueue(rt.DB(), "workflows")
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	orch := workflow.New(rt.DB(), q, workflow.Config{
		MaxAttempts:       3,
		BackoffBaseMs:     5,
		BackoffCapMs:      20,
		ActivityTimeoutMs: 5_000,
	}, logpkg.Nop())
	flows.Register(orch, flows.New(flows.NewStore(rt.DB()), pub, []string{"crm"}, logpkg.Nop()))
	if err := orch.Start(context.Background()); err != nil {
		t.Fatalf("start orchestrator: %v", err)
	}
	pool := worker.NewPool(q, orch.HandleTask, worker.Options{Concurrency: 2, PollInterval: 5 * time.Millisecond}, logpkg.Nop())
	pool.Start(context.Background())
	t.Cleanup(func() {
		orch.Stop()
		pool.Stop()
	})

	s := New(Deps{
		Runtime:   rt,
		Tracking:  trk,
		Publisher: pub,
		Acks:      acks.NewSubmitter(rt),
		Workflows: orch,
	}, logpkg.Nop())
	ts := httptest.NewServer(s.srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func getJSON(t *testing.T, url string, v interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		_ = json.NewDecoder(resp.Body).Decode(v)
	}
	return resp
}

func TestPublishAckLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	resp, out := postJSON(t, ts.URL+"/v1/events/publish", map[string]interface{}{
		"tenantId":            "T1",
		"eventType":           event.TypeCreditAllocated,
		"consumerApplication": "crm",
		"entityType":          "credit_allocation",
		"entityId":            "E1",
		"data":                map[string]interface{}{"allocationId": "A1", "amount": 100},
		"publishedBy":         "wrapper",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish status = %d", resp.StatusCode)
	}
	var eventID string
	if err := json.Unmarshal(out["eventId"], &eventID); err != nil || eventID == "" {
		t.Fatalf("no eventId in response: %v", out)
	}

	var rec tracking.Record
	if resp := getJSON(t, ts.URL+"/v1/events/status?eventId="+eventID, &rec); resp.StatusCode != http.StatusOK {
		t.Fatalf("status endpoint = %d", resp.StatusCode)
	}
	if rec.Status != tracking.StatusPublished {
		t.Fatalf("status = %s, want PUBLISHED", rec.Status)
	}

	if resp, _ := postJSON(t, ts.URL+"/v1/acks/submit", map[string]interface{}{
		"eventId":             eventID,
		"tenantId":            "T1",
		"consumerApplication": "crm",
		"result":              "OK",
		"ackTimestamp":        time.Now(),
	}); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("ack submit status = %d", resp.StatusCode)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		getJSON(t, ts.URL+"/v1/events/status?eventId="+eventID, &rec)
		if rec.Status == tracking.StatusAcknowledged {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("record never acknowledged: %+v", rec)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if rec.AcknowledgedAt == nil {
		t.Fatal("acknowledgedAt not set")
	}

	var health tracking.HealthMetrics
	if resp := getJSON(t, ts.URL+"/v1/sync/health?tenantId=T1", &health); resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	if health.AcknowledgedCount != 1 || health.AckRate == nil || *health.AckRate != 1.0 {
		t.Fatalf("health: %+v", health)
	}
}

func TestEventStatusUnknownIdReturns404(t *testing.T) {
	ts := newTestServer(t)
	if resp := getJSON(t, ts.URL+"/v1/events/status?eventId=ghost", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestPublishRejectsUnknownEventType(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := postJSON(t, ts.URL+"/v1/events/publish", map[string]interface{}{
		"tenantId":            "T1",
		"eventType":           "mystery.event",
		"consumerApplication": "crm",
		"entityType":          "x",
		"entityId":            "1",
		"publishedBy":         "wrapper",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWorkflowLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	input, _ := json.Marshal(flows.AllocateCreditsInput{AllocationID: "alloc-http", Amount: 50})
	resp, out := postJSON(t, ts.URL+"/v1/workflows/submit", map[string]interface{}{
		"workflowType": flows.WorkflowCreditAllocate,
		"tenantId":     "T1",
		"input":        json.RawMessage(input),
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	var id string
	if err := json.Unmarshal(out["workflowId"], &id); err != nil || id == "" {
		t.Fatalf("no workflowId: %v", out)
	}

	var exec workflow.Execution
	deadline := time.Now().Add(10 * time.Second)
	for {
		getJSON(t, ts.URL+"/v1/workflows/status?workflowId="+id, &exec)
		if exec.State.Terminal() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("workflow stuck: %+v", exec)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if exec.State != workflow.StateCompleted {
		t.Fatalf("state = %s (%s)", exec.State, exec.Error)
	}

	// cancel on a finished execution conflicts
	resp, _ = postJSON(t, ts.URL+"/v1/workflows/cancel", map[string]string{"workflowId": id})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("cancel status = %d, want 409", resp.StatusCode)
	}
}

func TestSearchFilterOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	for _, entity := range []string{"E1", "E2"} {
		resp, _ := postJSON(t, ts.URL+"/v1/events/publish", map[string]interface{}{
			"tenantId":            "T1",
			"eventType":           event.TypeCreditAllocated,
			"consumerApplication": "crm",
			"entityType":          "credit_allocation",
			"entityId":            entity,
			"data":                map[string]interface{}{"allocationId": entity, "amount": 10},
			"publishedBy":         "wrapper",
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("publish %s: %d", entity, resp.StatusCode)
		}
	}

	var out struct {
		Records []tracking.Record `json:"records"`
		Count   int               `json:"count"`
	}
	url := ts.URL + `/v1/events/search?tenantId=T1&filter=status%20%3D%3D%20%22PUBLISHED%22`
	if resp := getJSON(t, url, &out); resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d", resp.StatusCode)
	}
	if out.Count != 2 {
		t.Fatalf("search count = %d, want 2", out.Count)
	}

	if resp := getJSON(t, ts.URL+"/v1/events/search?tenantId=T1&filter=((broken", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad filter status = %d, want 400", resp.StatusCode)
	}
}
