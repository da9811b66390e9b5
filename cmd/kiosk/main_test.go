package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"kiosk-voice/config"
)

const testMenu = `
categories: [coffee, dessert]
products:
  - {id: 1, name: Americano, category: coffee, price: 2000}
  - {id: 2, name: Cafe Latte, category: coffee, price: 2500}
  - {id: 3, name: Cheesecake, category: dessert, price: 3500}
`

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserving port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

// TestRun_SpeechModeEndToEnd drives a final fragment through the ingress API,
// the webhook and the executor, and reads the resulting cart from /status.
func TestRun_SpeechModeEndToEnd(t *testing.T) {
	var mu sync.Mutex
	var received []string

	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		received = append(received, body.Text)
		mu.Unlock()
		w.Write([]byte(`{"message":"Two lattes, large","action":"addToCart","params":{"name":"latte","size":"l","quantity":2}}`))
	}))
	defer hook.Close()

	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(catalog, []byte(testMenu), 0644); err != nil {
		t.Fatalf("writing catalog: %v", err)
	}

	addr := freeAddr(t)
	cfg, err := config.Parse([]byte(`
mode: speech
webhook:
  url: ` + hook.URL + `
kiosk:
  catalog: ` + catalog + `
ingress:
  addr: ` + addr + `
  auth_token: kiosk-token
`))
	if err != nil {
		t.Fatalf("parsing config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, cfg, logger)
	}()
	defer func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("run did not return after cancel")
		}
	}()

	base := "http://" + addr
	waitHTTP(t, base+"/health")

	req, _ := http.NewRequest(http.MethodPost, base+"/text", strings.NewReader("two large lattes please"))
	req.Header.Set("X-Auth-Token", "kiosk-token")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("posting text: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST /text: got %d", resp.StatusCode)
	}

	var status struct {
		Pipeline struct {
			Cart struct {
				Lines []struct {
					Name string `json:"name"`
					Size string `json:"size"`
					Qty  int    `json:"qty"`
				} `json:"lines"`
			} `json:"cart"`
		} `json:"pipeline"`
		Display struct {
			Message string `json:"message"`
		} `json:"display"`
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/status")
		if err == nil {
			json.NewDecoder(resp.Body).Decode(&status)
			resp.Body.Close()
			if len(status.Pipeline.Cart.Lines) > 0 {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
	}

	lines := status.Pipeline.Cart.Lines
	if len(lines) != 1 || lines[0].Name != "Cafe Latte" || lines[0].Size != "L" || lines[0].Qty != 2 {
		t.Fatalf("cart: got %+v", lines)
	}
	if status.Display.Message != "Two lattes, large" {
		t.Errorf("display message: got %q", status.Display.Message)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0] != "two large lattes please" {
		t.Errorf("webhook received: %v", received)
	}
}

func waitHTTP(t *testing.T, url string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("%s not reachable", url)
}
