package chatclient

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func streamHandler(t *testing.T, frames []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)

		if !ok {
			t.Error("response writer does not support flushing")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		for _, frame := range frames {
			fmt.Fprint(w, frame)
			flusher.Flush()
		}

		<-r.Context().Done()
	}
}

func TestBackoffDelayDoublesPerAttempt(t *testing.T) {
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}

	for i, expected := range want {
		if got := backoffDelay(time.Second, i+1); got != expected {
			t.Errorf("attempt %d: delay = %v, want %v", i+1, got, expected)
		}
	}
}

func TestStreamDispatchesEvents(t *testing.T) {
	frames := []string{
		"data: {\"type\":\"connected\",\"data\":{\"roomId\":7}}\n\n",
		": heartbeat\n\n",
		"data: this is not json\n\n",
		"data: {\"type\":\"userStatus\",\"data\":{\"userId\":\"bob\",\"status\":\"online\"}}\n\n",
		"data: {\"type\":\"newMessage\",\"data\":{\"id\":42,\"userId\":\"alice\",\"content\":\"hi\"}}\n\n",
	}

	server := httptest.NewServer(streamHandler(t, frames))
	t.Cleanup(server.Close)

	messages := make(chan Message, 1)
	statuses := make(chan UserStatus, 1)

	consumer := NewStreamConsumer(server.URL, "", StreamHandlers{
		OnMessage: func(m Message) {
			messages <- m
		},
		OnUserStatus: func(s UserStatus) {
			statuses <- s
		},
	})
	t.Cleanup(consumer.Disconnect)

	consumer.Connect(7)

	select {
	case status := <-statuses:
		if status.UserID != "bob" || status.Status != "online" {
			t.Errorf("got status %+v", status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for user status")
	}

	select {
	case msg := <-messages:
		if msg.ID != 42 || msg.Content != "hi" {
			t.Errorf("got message %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	if got := consumer.State(); got != StateConnected {
		t.Errorf("state = %v, want %v", got, StateConnected)
	}
}

func TestConnectSameRoomIsNoop(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		fmt.Fprint(w, "data: {\"type\":\"connected\",\"data\":{}}\n\n")
		flusher.Flush()

		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	consumer := NewStreamConsumer(server.URL, "", StreamHandlers{})
	t.Cleanup(consumer.Disconnect)

	consumer.Connect(7)

	deadline := time.Now().Add(2 * time.Second)

	for consumer.State() != StateConnected {
		if time.Now().After(deadline) {
			t.Fatal("stream never connected")
		}

		time.Sleep(5 * time.Millisecond)
	}

	consumer.Connect(7)

	time.Sleep(50 * time.Millisecond)

	if got := requests.Load(); got != 1 {
		t.Errorf("reconnecting to the same room opened %d streams, want 1", got)
	}

	if got := consumer.State(); got != StateConnected {
		t.Errorf("state = %v, want %v", got, StateConnected)
	}

	// A different room is a real switch and must reopen.
	consumer.Connect(8)

	deadline = time.Now().Add(2 * time.Second)

	for requests.Load() != 2 {
		if time.Now().After(deadline) {
			t.Fatal("switching rooms never opened a new stream")
		}

		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamGivesUpAfterMaxAttempts(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	states := make(chan ConnectionState, 32)
	errs := make(chan error, 1)

	consumer := NewStreamConsumer(server.URL, "", StreamHandlers{
		OnState: func(s ConnectionState) {
			states <- s
		},
		OnError: func(err error) {
			errs <- err
		},
	}, WithBaseDelay(time.Millisecond), WithMaxAttempts(2))

	consumer.Connect(7)

	deadline := time.After(2 * time.Second)

	for {
		select {
		case state := <-states:
			if state == StateClosed {
				if got := requests.Load(); got != 3 {
					t.Errorf("server saw %d requests, want 3", got)
				}

				select {
				case <-errs:
				case <-time.After(time.Second):
					t.Fatal("terminal error callback never fired")
				}

				return
			}
		case <-deadline:
			t.Fatal("stream never reached the closed state")
		}
	}
}

func TestStreamReconnectsAfterDrop(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)

		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		fmt.Fprintf(w, "data: {\"type\":\"newMessage\",\"data\":{\"id\":%d}}\n\n", n)
		flusher.Flush()

		if n == 1 {
			// Drop the first stream right after one event.
			return
		}

		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	messages := make(chan Message, 2)

	consumer := NewStreamConsumer(server.URL, "", StreamHandlers{
		OnMessage: func(m Message) {
			messages <- m
		},
	}, WithBaseDelay(time.Millisecond))
	t.Cleanup(consumer.Disconnect)

	consumer.Connect(7)

	for _, want := range []int64{1, 2} {
		select {
		case msg := <-messages:
			if msg.ID != want {
				t.Errorf("got message id %d, want %d", msg.ID, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", want)
		}
	}
}

func TestDisconnectStopsReconnecting(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	consumer := NewStreamConsumer(server.URL, "", StreamHandlers{},
		WithBaseDelay(50*time.Millisecond))

	consumer.Connect(7)

	// Let the first attempt fail, then bail out before the retry fires.
	time.Sleep(20 * time.Millisecond)
	consumer.Disconnect()

	seen := requests.Load()
	time.Sleep(150 * time.Millisecond)

	if got := requests.Load(); got != seen {
		t.Errorf("stream kept retrying after disconnect: %d -> %d requests", seen, got)
	}

	if got := consumer.State(); got != StateDisconnected {
		t.Errorf("state = %v, want %v", got, StateDisconnected)
	}

	consumer.Disconnect()
}
