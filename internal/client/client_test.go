package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bumpkit/sblp/internal/bot"
	"github.com/bumpkit/sblp/internal/model"
)

// peer starts a fake SBLP peer and returns its slug (host:port).
func peer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return strings.TrimPrefix(ts.URL, "http://")
}

func testClient() *Client {
	c := New("secret", NewUserAgent("testbot#0001", "0.1.0"), nil)
	c.Scheme = "http"
	return c
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	var path string
	slug := peer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		path = r.URL.Path
		json.NewEncoder(w).Encode(model.NewBumpFinished(0, "ok"))
	})

	c := testClient()
	_, err := c.Request(context.Background(), slug, model.BumpRequest{Guild: "1", Channel: "2", User: "3"})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if path != "/request" {
		t.Errorf("expected POST /request, got %q", path)
	}
	if got.Get("Authorization") != "secret" {
		t.Errorf("wrong Authorization: %q", got.Get("Authorization"))
	}
	if ua := got.Get("User-Agent"); ua != "DiscordBot testbot#0001 SBLP HTTP via sblp-go v0.1.0" {
		t.Errorf("wrong User-Agent: %q", ua)
	}
	if got.Get("maxwait") != "60" {
		t.Errorf("wrong maxwait: %q", got.Get("maxwait"))
	}
}

func TestRequestFillsType(t *testing.T) {
	var body model.BumpRequest
	slug := peer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(model.NewBumpFinished(0, "ok"))
	})

	c := testClient()
	if _, err := c.Request(context.Background(), slug, model.BumpRequest{Guild: "1", Channel: "2", User: "3"}); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if body.Type != model.TypeRequest {
		t.Fatalf("client must fill the type field, got %q", body.Type)
	}
}

func TestRequestFinished(t *testing.T) {
	slug := peer(t, func(w http.ResponseWriter, r *http.Request) {
		resp := model.NewBumpFinished(7_200_000, "bumped")
		resp.Amount = 5
		json.NewEncoder(w).Encode(resp)
	})

	resp, err := testClient().Request(context.Background(), slug, model.BumpRequest{Guild: "1", Channel: "2", User: "3"})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if !resp.OK || resp.Finished == nil || resp.Error != nil {
		t.Fatalf("expected a finished response: %+v", resp)
	}
	if resp.Finished.Amount != 5 {
		t.Fatalf("wrong amount: %d", resp.Finished.Amount)
	}
	if resp.Status != http.StatusOK {
		t.Fatalf("wrong status: %d", resp.Status)
	}
}

func TestRequestError(t *testing.T) {
	slug := peer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(model.NewBumpError(model.CodeCooldown, 60_000, "On cooldown!"))
	})

	resp, err := testClient().Request(context.Background(), slug, model.BumpRequest{Guild: "1", Channel: "2", User: "3"})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if !resp.OK || resp.Error == nil || resp.Finished != nil {
		t.Fatalf("expected an error response: %+v", resp)
	}
	if resp.Error.Code != model.CodeCooldown {
		t.Fatalf("wrong code: %q", resp.Error.Code)
	}
	if resp.Status != http.StatusTooManyRequests {
		t.Fatalf("wrong status: %d", resp.Status)
	}
}

func TestRequestUndecodableBody(t *testing.T) {
	slug := peer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
		w.Write([]byte("handler did not finish\n"))
	})

	resp, err := testClient().Request(context.Background(), slug, model.BumpRequest{Guild: "1", Channel: "2", User: "3"})
	if err != nil {
		t.Fatalf("an undecodable body is not a transport error: %v", err)
	}
	if resp.OK {
		t.Fatalf("expected OK=false for a non-JSON body: %+v", resp)
	}
	if resp.Status != http.StatusGatewayTimeout {
		t.Fatalf("status must still be reported: %d", resp.Status)
	}
}

func TestRequestTransportError(t *testing.T) {
	c := testClient()
	if _, err := c.Request(context.Background(), "127.0.0.1:1", model.BumpRequest{Guild: "1", Channel: "2", User: "3"}); err == nil {
		t.Fatal("expected a transport error for an unreachable peer")
	}
}

func TestBroadcast(t *testing.T) {
	good := peer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.NewBumpFinished(0, "ok"))
	})
	slugs := []string{good, "127.0.0.1:1", good}

	sink := bot.NewMemory("test")
	responses := testClient().Broadcast(context.Background(), slugs, model.BumpRequest{Guild: "1", Channel: "2", User: "3"}, sink)

	if len(responses) != 2 {
		t.Fatalf("unreachable peers are skipped, not fatal: got %d responses", len(responses))
	}

	names := sink.EventNames()
	// Three starts, two dones: the failed peer never completes.
	want := []string{
		bot.EventRequestStart, bot.EventRequestDone,
		bot.EventRequestStart,
		bot.EventRequestStart, bot.EventRequestDone,
	}
	if len(names) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], names[i])
		}
	}
}

func TestBroadcastDefaultSlugs(t *testing.T) {
	c := testClient()
	c.HTTPClient.Timeout = 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	responses := c.Broadcast(ctx, nil, model.BumpRequest{Guild: "1", Channel: "2", User: "3"}, nil)
	if len(responses) != 0 {
		t.Fatalf("cancelled context must yield no responses, got %d", len(responses))
	}
}
