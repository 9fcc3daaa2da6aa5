package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewBumpFinishedNextBump(t *testing.T) {
	before := time.Now()
	resp := NewBumpFinished(5000, "bumped")
	after := time.Now()

	got := resp.NextBumpTime()
	if got.Before(before.Add(5 * time.Second)) {
		t.Fatalf("nextBump %v is earlier than %v + 5s", got, before)
	}
	if got.After(after.Add(5*time.Second + time.Second)) {
		t.Fatalf("nextBump %v is too far after %v + 5s", got, after)
	}
	if resp.Amount != -1 {
		t.Fatalf("expected default amount -1, got %d", resp.Amount)
	}
	if resp.Type != TypeFinished {
		t.Fatalf("expected type FINISHED, got %q", resp.Type)
	}
}

func TestBumpFinishedWireShape(t *testing.T) {
	resp := NewBumpFinished(1000, "ok")
	resp.Amount = 7

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, `"type":"FINISHED"`) {
		t.Errorf("missing type field: %s", body)
	}
	if !strings.Contains(body, `"response":"0"`) {
		t.Errorf("response must serialize as a decimal string: %s", body)
	}
	if !strings.Contains(body, `"amount":7`) {
		t.Errorf("missing amount: %s", body)
	}
}

func TestNewBumpErrorDefaultsToNow(t *testing.T) {
	before := time.Now()
	resp := NewBumpError(CodeOther, 0, "Internal Error: boom")
	after := time.Now()

	got := time.UnixMilli(resp.NextBump)
	if got.Before(before.Add(-time.Second)) || got.After(after.Add(time.Second)) {
		t.Fatalf("nextBump %v should default to now", got)
	}
	if resp.Code != CodeOther {
		t.Fatalf("expected code OTHER, got %q", resp.Code)
	}
	if resp.Success {
		t.Fatal("error response must not be successful")
	}
}

func TestErrorCodeKnown(t *testing.T) {
	for _, code := range []ErrorCode{CodeMissingSetup, CodeCooldown, CodeAutobump, CodeNotFound, CodeOther} {
		if !code.Known() {
			t.Errorf("expected %q to be known", code)
		}
	}
	if ErrorCode("SOMETHING_ELSE").Known() {
		t.Error("unexpected code must not be known")
	}
}
