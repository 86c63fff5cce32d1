package mqtt

import "testing"

func payloads(msgs []bufferedMsg) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m.payload[0])
	}
	return out
}

func TestRingBufferEmptyDrain(t *testing.T) {
	rb := newRingBuffer(4)
	if got := rb.drainAll(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestRingBufferKeepsOrder(t *testing.T) {
	rb := newRingBuffer(8)
	for i := 0; i < 5; i++ {
		rb.push(bufferedMsg{topic: "system", payload: []byte{byte(i)}})
	}
	if rb.len() != 5 {
		t.Fatalf("len = %d, want 5", rb.len())
	}

	got := payloads(rb.drainAll())
	if string(got) != string([]byte{0, 1, 2, 3, 4}) {
		t.Errorf("order = %v", got)
	}
	if rb.len() != 0 || rb.drainAll() != nil {
		t.Error("buffer should be empty after drain")
	}
}

func TestRingBufferOverflowDropsOldest(t *testing.T) {
	rb := newRingBuffer(3)
	var firsts int
	for i := 0; i < 6; i++ {
		if rb.push(bufferedMsg{topic: "system", payload: []byte{byte(i)}}) {
			firsts++
		}
	}
	if firsts != 1 {
		t.Errorf("first-drop reported %d times, want 1", firsts)
	}

	got := payloads(rb.drainAll())
	if string(got) != string([]byte{3, 4, 5}) {
		t.Errorf("kept = %v, want [3 4 5]", got)
	}

	// Drain resets the overflow report.
	for i := 0; i < 4; i++ {
		if rb.push(bufferedMsg{topic: "system", payload: []byte{byte(i)}}) && i != 3 {
			t.Errorf("unexpected drop report at %d", i)
		}
	}
}

func TestRingBufferPushStateReplacesSameTopic(t *testing.T) {
	rb := newRingBuffer(4)
	rb.push(bufferedMsg{topic: "p/system", payload: []byte{1}})
	rb.pushState(bufferedMsg{topic: "p/state", payload: []byte{2}, retained: true})
	rb.push(bufferedMsg{topic: "p/system", payload: []byte{3}})
	rb.pushState(bufferedMsg{topic: "p/state", payload: []byte{4}, retained: true})

	got := rb.drainAll()
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	if string(payloads(got)) != string([]byte{1, 3, 4}) {
		t.Errorf("order = %v, want [1 3 4]", payloads(got))
	}
	if got[2].topic != "p/state" || !got[2].retained {
		t.Errorf("last item = %+v", got[2])
	}
}

func TestRingBufferPreservesFields(t *testing.T) {
	rb := newRingBuffer(2)
	rb.push(bufferedMsg{
		topic:    "presence/teams/state",
		payload:  []byte(`{"presence":{}}`),
		qos:      1,
		retained: true,
	})

	got := rb.drainAll()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	m := got[0]
	if m.topic != "presence/teams/state" || string(m.payload) != `{"presence":{}}` || m.qos != 1 || !m.retained {
		t.Errorf("fields not preserved: %+v", m)
	}
}

func TestRingBufferZeroCapacity(t *testing.T) {
	rb := newRingBuffer(0)
	rb.push(bufferedMsg{topic: "a", payload: []byte{1}})
	rb.push(bufferedMsg{topic: "a", payload: []byte{2}})
	if got := payloads(rb.drainAll()); string(got) != string([]byte{2}) {
		t.Errorf("got %v, want [2]", got)
	}
}
