package delivery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bounty-webhooks/internal/domain/deliveries"
	"bounty-webhooks/internal/domain/events"
	"bounty-webhooks/internal/domain/subscribers"
	"bounty-webhooks/internal/platform/httpclient"
)

type recordedSleeps struct {
	mu sync.Mutex
	ds []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ds = append(r.ds, d)
	return nil
}

func newTestEngine(t *testing.T, secret string) (*Engine, *deliveries.Log, *recordedSleeps) {
	t.Helper()
	log := deliveries.NewLog(0)
	sleeps := &recordedSleeps{}
	e := New(Options{
		Client: httpclient.New(2 * time.Second),
		Signer: NewSigner(secret),
		Log:    log,
	})
	e.sleep = sleeps.sleep
	e.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return e, log, sleeps
}

func testEvent() events.Event {
	f := testFactory()
	return f.New(events.EventTypeCreated, 42, json.RawMessage(`{"id":42,"status":"open"}`))
}

func testFactory() *events.Factory {
	return events.NewFactoryWithClock(func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})
}

func subscriber(id, url string) subscribers.Subscriber {
	return subscribers.Subscriber{
		ID:     id,
		URL:    url,
		Active: true,
		Events: []events.EventType{events.EventTypeCreated},
	}
}

func TestDeliver_PermanentFailure_ThreeAttemptsOneEntry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e, log, sleeps := newTestEngine(t, "global")
	entry := e.Deliver(context.Background(), subscriber("wh_1", srv.URL), testEvent())

	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	if entry.Status != deliveries.StatusFailed || entry.Attempts != 3 {
		t.Fatalf("expected failed/3, got %s/%d", entry.Status, entry.Attempts)
	}
	if entry.StatusCode == nil || *entry.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status code 500 recorded, got %v", entry.StatusCode)
	}
	if log.Len() != 1 {
		t.Fatalf("expected exactly one log entry, got %d", log.Len())
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(sleeps.ds) != len(want) || sleeps.ds[0] != want[0] || sleeps.ds[1] != want[1] {
		t.Fatalf("expected backoff %v, got %v", want, sleeps.ds)
	}
}

func TestDeliver_SuccessOnNthAttempt(t *testing.T) {
	for n := 1; n <= 3; n++ {
		var hits int32
		failUntil := int32(n)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&hits, 1) < failUntil {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusAccepted)
		}))

		e, log, sleeps := newTestEngine(t, "global")
		entry := e.Deliver(context.Background(), subscriber("wh_n", srv.URL), testEvent())
		srv.Close()

		if entry.Status != deliveries.StatusSuccess || entry.Attempts != n {
			t.Fatalf("n=%d: expected success/%d, got %s/%d", n, n, entry.Status, entry.Attempts)
		}
		if entry.StatusCode == nil || *entry.StatusCode != http.StatusAccepted {
			t.Fatalf("n=%d: expected 202 recorded", n)
		}
		if log.Len() != 1 {
			t.Fatalf("n=%d: expected one entry, got %d", n, log.Len())
		}
		if len(sleeps.ds) != n-1 {
			t.Fatalf("n=%d: expected %d sleeps, got %d", n, n-1, len(sleeps.ds))
		}
	}
}

func TestDeliver_TransportFailure_NoStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	e, log, _ := newTestEngine(t, "global")
	entry := e.Deliver(context.Background(), subscriber("wh_down", url), testEvent())

	if entry.Status != deliveries.StatusFailed || entry.Attempts != 3 {
		t.Fatalf("expected failed/3, got %s/%d", entry.Status, entry.Attempts)
	}
	if entry.StatusCode != nil {
		t.Fatalf("expected no status code, got %d", *entry.StatusCode)
	}
	if entry.Error == "" {
		t.Fatalf("expected error text")
	}
	if log.Len() != 1 {
		t.Fatalf("expected one entry, got %d", log.Len())
	}
}

func TestDeliver_SignatureAndHeaders(t *testing.T) {
	ev := testEvent()

	cases := []struct {
		name   string
		secret string
		key    string
	}{
		{name: "subscriber secret", secret: "per-sub", key: "per-sub"},
		{name: "global key", secret: "", key: "global"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var (
				gotBody []byte
				gotHdr  http.Header
			)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotBody, _ = io.ReadAll(r.Body)
				gotHdr = r.Header.Clone()
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			e, _, _ := newTestEngine(t, "global")
			sub := subscriber("wh_sig", srv.URL)
			sub.Secret = tc.secret

			entry := e.Deliver(context.Background(), sub, ev)
			if entry.Status != deliveries.StatusSuccess {
				t.Fatalf("expected success, got %s (%s)", entry.Status, entry.Error)
			}

			if !Verify(gotBody, []byte(tc.key), gotHdr.Get(HeaderSignature)) {
				t.Fatalf("signature did not verify with %q: %s", tc.key, gotHdr.Get(HeaderSignature))
			}
			if gotHdr.Get(HeaderEventType) != string(events.EventTypeCreated) {
				t.Fatalf("unexpected event type header %q", gotHdr.Get(HeaderEventType))
			}
			if gotHdr.Get(HeaderEventID) != ev.ID || gotHdr.Get(HeaderWebhookID) != "wh_sig" {
				t.Fatalf("unexpected id headers %v", gotHdr)
			}
			if gotHdr.Get("Content-Type") != "application/json" {
				t.Fatalf("unexpected content type %q", gotHdr.Get("Content-Type"))
			}

			want, _ := ev.Payload()
			if string(gotBody) != string(want) {
				t.Fatalf("body mismatch:\n got %s\nwant %s", gotBody, want)
			}
		})
	}
}

func TestDeliver_SubscribersAreIndependent(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer bad.Close()
	var goodHits int32
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&goodHits, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer good.Close()

	e, log, _ := newTestEngine(t, "global")
	ev := testEvent()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); e.Deliver(context.Background(), subscriber("wh_bad", bad.URL), ev) }()
	go func() { defer wg.Done(); e.Deliver(context.Background(), subscriber("wh_good", good.URL), ev) }()
	wg.Wait()

	if atomic.LoadInt32(&goodHits) != 1 {
		t.Fatalf("good endpoint should be hit exactly once, got %d", goodHits)
	}

	byID := map[string]deliveries.Entry{}
	for _, en := range log.Entries() {
		byID[en.SubscriberID] = en
	}
	if len(byID) != 2 {
		t.Fatalf("expected one entry per subscriber, got %+v", byID)
	}
	if byID["wh_bad"].Attempts != 3 || byID["wh_bad"].Status != deliveries.StatusFailed {
		t.Fatalf("unexpected bad entry %+v", byID["wh_bad"])
	}
	if byID["wh_good"].Attempts != 1 || byID["wh_good"].Status != deliveries.StatusSuccess {
		t.Fatalf("unexpected good entry %+v", byID["wh_good"])
	}
}

func TestSendTest_SingleAttemptLogged(t *testing.T) {
	var (
		hits   int32
		gotTyp string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		gotTyp = r.Header.Get(HeaderEventType)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e, log, sleeps := newTestEngine(t, "global")
	entry := e.SendTest(context.Background(), subscriber("wh_t", srv.URL))

	if atomic.LoadInt32(&hits) != 1 || len(sleeps.ds) != 0 {
		t.Fatalf("expected a single attempt without backoff")
	}
	if gotTyp != string(events.EventTypeTest) || entry.EventType != events.EventTypeTest {
		t.Fatalf("expected webhook.test, got header %q entry %q", gotTyp, entry.EventType)
	}
	if entry.Status != deliveries.StatusFailed || entry.Attempts != 1 {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if log.Len() != 1 {
		t.Fatalf("expected test delivery to be logged")
	}
}
