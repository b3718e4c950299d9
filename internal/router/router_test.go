package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"bounty-webhooks/internal/adapters/bountyfeed"
	"bounty-webhooks/internal/adapters/storage/memory"
	"bounty-webhooks/internal/delivery"
	"bounty-webhooks/internal/domain/bounties"
	"bounty-webhooks/internal/domain/deliveries"
	"bounty-webhooks/internal/domain/subscribers"
	"bounty-webhooks/internal/platform/httpclient"
	"bounty-webhooks/internal/poller"
	"bounty-webhooks/internal/router"
)

const globalSecret = "global-secret"

// receiver guarda cada webhook recibido.
type receiver struct {
	mu   sync.Mutex
	got  []received
	code int
}

type received struct {
	body   []byte
	header http.Header
}

func (rc *receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	rc.mu.Lock()
	rc.got = append(rc.got, received{body: b, header: r.Header.Clone()})
	code := rc.code
	rc.mu.Unlock()
	if code == 0 {
		code = http.StatusOK
	}
	w.WriteHeader(code)
}

func (rc *receiver) all() []received {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]received(nil), rc.got...)
}

type app struct {
	api    *httptest.Server
	poller *poller.Poller
	feed   *feedServer
	state  *memory.StateStore
}

type feedServer struct {
	mu   sync.Mutex
	body string
}

func (f *feedServer) set(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body = body
}

func (f *feedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(f.body))
}

func newApp(t *testing.T, adminKey string) *app {
	t.Helper()

	feed := &feedServer{body: `[]`}
	upstream := httptest.NewServer(feed)
	t.Cleanup(upstream.Close)

	fc, err := bountyfeed.NewClient(bountyfeed.Config{BaseURL: upstream.URL})
	if err != nil {
		t.Fatalf("feed client: %v", err)
	}

	subsSvc := subscribers.NewService(memory.NewSubscriberRepo())
	log := deliveries.NewLog(deliveries.MaxEntries)
	engine := delivery.New(delivery.Options{
		Client:      httpclient.New(2 * time.Second),
		Signer:      delivery.NewSigner(globalSecret),
		Log:         log,
		BaseBackoff: time.Millisecond,
	})
	st := memory.NewStateStore()

	p := poller.New(poller.Options{
		Feed:        fc,
		Snapshots:   bounties.NewStore(),
		Log:         log,
		Subscribers: subsSvc,
		Deliverer:   engine,
		State:       st,
	})

	api := httptest.NewServer(router.NewRouter(router.Options{
		Subscribers:   subsSvc,
		Tester:        engine,
		Deliveries:    log,
		Poller:        p,
		AdminAPIKey:   adminKey,
		StorageDriver: "memory",
	}))
	t.Cleanup(api.Close)

	return &app{api: api, poller: p, feed: feed, state: st}
}

func doReq(t *testing.T, baseURL, method, path, apiKey string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-Api-Key", apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func createWebhook(t *testing.T, a *app, key string, payload map[string]any) string {
	t.Helper()
	st, body := doReq(t, a.api.URL, "POST", "/webhooks", key, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 creating webhook, got %d body=%s", st, body)
	}
	var out struct {
		ID        string `json:"id"`
		HasSecret bool   `json:"hasSecret"`
		Secret    string `json:"secret"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Secret != "" {
		t.Fatalf("secret must never be returned")
	}
	return out.ID
}

func TestHTTP_EndToEnd_PollDetectDeliver(t *testing.T) {
	a := newApp(t, "")
	ctx := context.Background()

	rcvAll := &receiver{}
	srvAll := httptest.NewServer(rcvAll)
	defer srvAll.Close()
	rcvClaimed := &receiver{}
	srvClaimed := httptest.NewServer(rcvClaimed)
	defer srvClaimed.Close()

	// 1) Dos webhooks: uno con secret propio y todos los eventos, otro solo claimed
	allID := createWebhook(t, a, "", map[string]any{
		"url":    srvAll.URL,
		"events": []string{"bounty.created", "bounty.claimed", "bounty.submitted", "bounty.completed"},
		"secret": "per-hook",
	})
	claimedID := createWebhook(t, a, "", map[string]any{
		"url":    srvClaimed.URL,
		"events": []string{"claimed"},
	})

	// 2) Primer ciclo: bounty 42 nuevo y abierto
	a.feed.set(`[{"id":42,"status":"open","title":"Fix bug"}]`)
	if err := a.poller.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	got := rcvAll.all()
	if len(got) != 1 || len(rcvClaimed.all()) != 0 {
		t.Fatalf("expected one created delivery to the all-events hook only, got %d/%d", len(got), len(rcvClaimed.all()))
	}
	if got[0].header.Get("X-Event-Type") != "bounty.created" || got[0].header.Get("X-Webhook-Id") != allID {
		t.Fatalf("unexpected headers %v", got[0].header)
	}
	if !delivery.Verify(got[0].body, []byte("per-hook"), got[0].header.Get("X-Signature")) {
		t.Fatalf("signature must verify with the subscriber secret")
	}

	var payload struct {
		ID       string          `json:"id"`
		Type     string          `json:"type"`
		BountyID int64           `json:"bountyId"`
		Data     json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(got[0].body, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.BountyID != 42 || payload.Type != "bounty.created" || payload.ID != got[0].header.Get("X-Event-Id") {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if string(payload.Data) != `{"id":42,"status":"open","title":"Fix bug"}` {
		t.Fatalf("expected full record as data, got %s", payload.Data)
	}

	// 3) Segundo ciclo: 42 pasa a claimed
	a.feed.set(`[{"id":42,"status":"claimed","claimedBy":"alice"}]`)
	if err := a.poller.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if n := len(rcvAll.all()); n != 2 {
		t.Fatalf("expected created not to re-fire, all-hook got %d", n)
	}
	claimed := rcvClaimed.all()
	if len(claimed) != 1 || claimed[0].header.Get("X-Event-Type") != "bounty.claimed" {
		t.Fatalf("expected one claimed delivery, got %d", len(claimed))
	}
	if !delivery.Verify(claimed[0].body, []byte(globalSecret), claimed[0].header.Get("X-Signature")) {
		t.Fatalf("signature must verify with the global key")
	}

	// 4) Deliveries: más reciente primero, filtros
	{
		st, body := doReq(t, a.api.URL, "GET", "/deliveries?limit=10", "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", st, body)
		}
		var list []deliveries.Entry
		if err := json.Unmarshal(body, &list); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(list) != 3 || list[len(list)-1].EventType != "bounty.created" {
			t.Fatalf("unexpected deliveries %+v", list)
		}
		for _, e := range list {
			if e.Status != deliveries.StatusSuccess || e.Attempts != 1 {
				t.Fatalf("unexpected entry %+v", e)
			}
		}

		st, body = doReq(t, a.api.URL, "GET", "/deliveries?webhookId="+claimedID, "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200, got %d", st)
		}
		if err := json.Unmarshal(body, &list); err != nil || len(list) != 1 {
			t.Fatalf("expected one delivery for claimed hook, got %s", body)
		}

		if st, _ := doReq(t, a.api.URL, "GET", "/deliveries?limit=0", "", nil); st != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad limit, got %d", st)
		}
	}

	// 5) Health refleja el estado
	{
		st, body := doReq(t, a.api.URL, "GET", "/health", "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200, got %d", st)
		}
		var h struct {
			Status        string `json:"status"`
			KnownBounties int    `json:"knownBounties"`
			Webhooks      int    `json:"webhooks"`
			Cycles        int64  `json:"cycles"`
		}
		if err := json.Unmarshal(body, &h); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if h.Status != "ok" || h.KnownBounties != 1 || h.Webhooks != 2 || h.Cycles != 2 {
			t.Fatalf("unexpected health %s", body)
		}
	}

	// 6) Estado persistido al final de cada ciclo
	if a.state.Saves() != 2 {
		t.Fatalf("expected 2 flushes, got %d", a.state.Saves())
	}
}

func TestHTTP_WebhookCRUDAndTest(t *testing.T) {
	a := newApp(t, "")

	rcv := &receiver{code: http.StatusInternalServerError}
	srv := httptest.NewServer(rcv)
	defer srv.Close()

	// validación
	if st, _ := doReq(t, a.api.URL, "POST", "/webhooks", "", map[string]any{"url": "nope", "events": []string{"created"}}); st != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad url, got %d", st)
	}
	if st, _ := doReq(t, a.api.URL, "POST", "/webhooks", "", map[string]any{"url": srv.URL, "events": []string{"deleted"}}); st != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown event, got %d", st)
	}

	id := createWebhook(t, a, "", map[string]any{"url": srv.URL, "events": []string{"created"}, "secret": "x"})

	// PATCH: secret null vuelve a la clave global, active false
	{
		st, body := doReq(t, a.api.URL, "PATCH", "/webhooks/"+id, "", map[string]any{"secret": nil, "active": false})
		if st != http.StatusOK {
			t.Fatalf("expected 200 patch, got %d body=%s", st, body)
		}
		var out struct {
			Active    bool `json:"active"`
			HasSecret bool `json:"hasSecret"`
		}
		_ = json.Unmarshal(body, &out)
		if out.Active || out.HasSecret {
			t.Fatalf("unexpected patch result %s", body)
		}
	}
	if st, _ := doReq(t, a.api.URL, "PATCH", "/webhooks/"+id, "", map[string]any{"colour": "red"}); st != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", st)
	}

	// test delivery: un intento, queda en el log aunque falle
	{
		st, body := doReq(t, a.api.URL, "POST", "/webhooks/"+id+"/test", "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", st, body)
		}
		var e deliveries.Entry
		if err := json.Unmarshal(body, &e); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if e.Status != deliveries.StatusFailed || e.Attempts != 1 || e.StatusCode == nil || *e.StatusCode != 500 {
			t.Fatalf("unexpected test entry %+v", e)
		}
		if len(rcv.all()) != 1 || rcv.all()[0].header.Get("X-Event-Type") != "webhook.test" {
			t.Fatalf("expected one webhook.test request")
		}
	}

	if st, _ := doReq(t, a.api.URL, "GET", "/webhooks/"+id, "", nil); st != http.StatusOK {
		t.Fatalf("expected 200 get, got %d", st)
	}
	if st, _ := doReq(t, a.api.URL, "DELETE", "/webhooks/"+id, "", nil); st != http.StatusNoContent {
		t.Fatalf("expected 204 delete, got %d", st)
	}
	if st, _ := doReq(t, a.api.URL, "GET", "/webhooks/"+id, "", nil); st != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", st)
	}
	if st, _ := doReq(t, a.api.URL, "POST", "/webhooks/"+id+"/test", "", nil); st != http.StatusNotFound {
		t.Fatalf("expected 404 test on deleted hook, got %d", st)
	}
}

func TestHTTP_AdminKeyAndPublicRoutes(t *testing.T) {
	a := newApp(t, "admin")

	if st, _ := doReq(t, a.api.URL, "GET", "/webhooks", "", nil); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", st)
	}
	if st, _ := doReq(t, a.api.URL, "POST", "/poll", "wrong", nil); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", st)
	}
	if st, _ := doReq(t, a.api.URL, "GET", "/webhooks", "admin", nil); st != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", st)
	}

	st, body := doReq(t, a.api.URL, "POST", "/poll", "admin", nil)
	if st != http.StatusAccepted {
		t.Fatalf("expected 202, got %d body=%s", st, body)
	}

	for _, path := range []string{"/health", "/events", "/swagger/doc.json"} {
		if st, body := doReq(t, a.api.URL, "GET", path, "", nil); st != http.StatusOK {
			t.Fatalf("expected public 200 on %s, got %d body=%s", path, st, body)
		}
	}

	_, body = doReq(t, a.api.URL, "GET", "/events", "", nil)
	var types []struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &types); err != nil || len(types) != 4 {
		t.Fatalf("expected 4 event types, got %s", body)
	}
}
