package gateway

import (
	"encoding/json"
	"testing"
)

// stubClient registers a bare client on the hub without a websocket
// connection; messages land in its buffered send channel.
func stubClient(h *Hub, buffer int) *Client {
	c := &Client{send: make(chan []byte, buffer), hub: h}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	return c
}

func TestHub_BroadcastEnvelope(t *testing.T) {
	h := NewHub()
	c := stubClient(h, 4)

	h.Broadcast(ChannelRun, []byte(`{"trades":[],"summary":{"total_trades":0}}`))

	var env Envelope
	select {
	case msg := <-c.send:
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("envelope is not valid JSON: %v\nraw: %s", err, msg)
		}
	default:
		t.Fatal("no message queued to client")
	}

	if env.Channel != ChannelRun {
		t.Errorf("channel: got %q, want %q", env.Channel, ChannelRun)
	}
	if env.Seq != 1 {
		t.Errorf("seq: got %d, want 1", env.Seq)
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("data is not valid JSON: %v", err)
	}
	if _, ok := data["summary"]; !ok {
		t.Error("data missing 'summary' field")
	}
}

func TestHub_SeqMonotonic(t *testing.T) {
	h := NewHub()
	c := stubClient(h, 16)

	for i := 0; i < 5; i++ {
		h.Broadcast(ChannelRun, []byte(`{}`))
	}

	for want := int64(1); want <= 5; want++ {
		var env Envelope
		if err := json.Unmarshal(<-c.send, &env); err != nil {
			t.Fatalf("seq=%d: invalid JSON: %v", want, err)
		}
		if env.Seq != want {
			t.Errorf("seq: got %d, want %d", env.Seq, want)
		}
	}
}

func TestHub_LatestTracksRunChannel(t *testing.T) {
	h := NewHub()

	if h.Latest() != nil {
		t.Fatal("Latest non-nil before any broadcast")
	}

	h.Broadcast("other", []byte(`{"n":1}`))
	if h.Latest() != nil {
		t.Fatal("non-run channel updated Latest")
	}

	h.Broadcast(ChannelRun, []byte(`{"n":2}`))
	latest := h.Latest()
	if latest == nil {
		t.Fatal("Latest nil after run broadcast")
	}
	var env Envelope
	if err := json.Unmarshal(latest, &env); err != nil {
		t.Fatalf("latest is not valid JSON: %v", err)
	}
	if env.Channel != ChannelRun {
		t.Errorf("latest channel: got %q, want %q", env.Channel, ChannelRun)
	}
}

func TestHub_SlowClientDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	c := stubClient(h, 1)

	// Second broadcast must not block even though the buffer is full.
	h.Broadcast(ChannelRun, []byte(`{"n":1}`))
	h.Broadcast(ChannelRun, []byte(`{"n":2}`))

	if got := len(c.send); got != 1 {
		t.Errorf("queued messages: got %d, want 1", got)
	}
}

func TestHub_RemoveClient(t *testing.T) {
	h := NewHub()
	c := stubClient(h, 1)

	counts := []int{}
	h.OnClientCount(func(n int) { counts = append(counts, n) })

	if h.ClientCount() != 1 {
		t.Fatalf("client count: got %d, want 1", h.ClientCount())
	}
	h.removeClient(c)
	if h.ClientCount() != 0 {
		t.Fatalf("client count after remove: got %d, want 0", h.ClientCount())
	}
	// Double removal is a no-op.
	h.removeClient(c)

	if len(counts) != 1 || counts[0] != 0 {
		t.Errorf("count callbacks: got %v, want [0]", counts)
	}

	// send must be closed so the write pump exits.
	if _, open := <-c.send; open {
		t.Error("send channel still open after removal")
	}
}
