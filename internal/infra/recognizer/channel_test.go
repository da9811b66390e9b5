package recognizer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"kiosk-voice/internal/domain"
	"kiosk-voice/internal/infra/recognizer"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRecognitionServer answers every binary frame with a realtime message
// and then a fullSentence message.
func newRecognitionServer(t *testing.T, received chan<- recognizer.FrameMetadata) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		for {
			msgType, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.BinaryMessage {
				continue
			}
			meta, _, err := recognizer.DecodeFrame(data)
			if err != nil {
				return
			}
			received <- meta

			_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"realtime","text":"one ameri"}`))
			_ = ws.WriteMessage(websocket.TextMessage, []byte(`not json`))
			_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"fullSentence","text":"one americano"}`))
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestChannel_StreamsFramesAndReceivesFragments(t *testing.T) {
	received := make(chan recognizer.FrameMetadata, 4)
	server := newRecognitionServer(t, received)
	defer server.Close()

	ch := recognizer.NewChannel(wsURL(server), newLogger())
	defer ch.Close()

	if ch.State() != domain.ChannelDisconnected {
		t.Fatalf("initial state: got %s", ch.State())
	}

	if err := ch.Connect(context.Background(), false); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	if ch.State() != domain.ChannelOpen {
		t.Fatalf("state after connect: got %s", ch.State())
	}

	if err := ch.Send(domain.AudioFrame{Samples: make([]int16, 1024), SampleRate: 16000}); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	select {
	case meta := <-received:
		if meta.SampleRate != 16000 {
			t.Errorf("sample rate: got %d", meta.SampleRate)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive the frame")
	}

	var got []domain.TranscriptFragment
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case f := <-ch.Fragments():
			got = append(got, f)
		case <-timeout:
			t.Fatalf("timeout waiting for fragments, got %v", got)
		}
	}

	if got[0].IsFinal || got[0].Text != "one ameri" {
		t.Errorf("first fragment: %+v", got[0])
	}
	if !got[1].IsFinal || got[1].Text != "one americano" {
		t.Errorf("second fragment: %+v", got[1])
	}
}

func TestChannel_SendWhileDisconnectedIsDropped(t *testing.T) {
	ch := recognizer.NewChannel("ws://127.0.0.1:1/unused", newLogger())

	for i := 0; i < 10; i++ {
		err := ch.Send(domain.AudioFrame{Samples: []int16{1}, SampleRate: 16000})
		if !errors.Is(err, domain.ErrChannelNotOpen) {
			t.Fatalf("Send: got %v, want ErrChannelNotOpen", err)
		}
	}
}

func TestChannel_ConnectFailureLeavesDisconnected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no websocket here", http.StatusNotFound)
	}))
	defer server.Close()

	ch := recognizer.NewChannel(wsURL(server), newLogger())

	err := ch.Connect(context.Background(), false)
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("Connect: got %v, want ErrTransport", err)
	}
	if ch.State() != domain.ChannelDisconnected {
		t.Errorf("state: got %s, want disconnected", ch.State())
	}
}

func TestChannel_ServerCloseDisconnects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
		ws.Close()
	}))
	defer server.Close()

	ch := recognizer.NewChannel(wsURL(server), newLogger())
	if err := ch.Connect(context.Background(), false); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for ch.State() != domain.ChannelDisconnected {
		if time.Now().After(deadline) {
			t.Fatal("channel did not notice the server closing")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestChannel_CloseAndForcedReconnect(t *testing.T) {
	received := make(chan recognizer.FrameMetadata, 4)
	server := newRecognitionServer(t, received)
	defer server.Close()

	ch := recognizer.NewChannel(wsURL(server), newLogger())
	if err := ch.Connect(context.Background(), false); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	if err := ch.Connect(context.Background(), true); err != nil {
		t.Fatalf("forced Connect error: %v", err)
	}
	if ch.State() != domain.ChannelOpen {
		t.Fatalf("state after forced connect: got %s", ch.State())
	}

	if err := ch.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if ch.State() != domain.ChannelDisconnected {
		t.Errorf("state after close: got %s", ch.State())
	}
	if err := ch.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestChannel_SendDoesNotBlockWhenServerStopsReading(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		<-release
	}))
	defer server.Close()
	defer close(release)

	ch := recognizer.NewChannel(wsURL(server), newLogger())
	defer ch.Close()

	if err := ch.Connect(context.Background(), false); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	frame := domain.AudioFrame{Samples: make([]int16, 1024), SampleRate: 16000}
	var dropped int
	start := time.Now()
	for i := 0; i < 5000; i++ {
		sendStart := time.Now()
		err := ch.Send(frame)
		if elapsed := time.Since(sendStart); elapsed > 500*time.Millisecond {
			t.Fatalf("send #%d blocked for %s", i, elapsed)
		}
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrSendBufferFull), errors.Is(err, domain.ErrChannelNotOpen):
			dropped++
		default:
			t.Fatalf("send #%d: unexpected error %v", i, err)
		}
	}

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("sending took %s", elapsed)
	}
	if dropped == 0 {
		t.Error("expected frames to be dropped once the buffer filled")
	}
}
