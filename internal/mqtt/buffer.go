package mqtt

// bufferedMsg stores a serialized message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO holding messages while disconnected.
// Not safe for concurrent use; the caller synchronizes.
type ringBuffer struct {
	buf     []bufferedMsg
	head    int // next write position
	count   int
	dropped int // messages overwritten since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{buf: make([]bufferedMsg, capacity)}
}

// push appends msg, overwriting the oldest entry when full. It reports
// whether this push was the first to drop a message since the last drain.
func (r *ringBuffer) push(msg bufferedMsg) bool {
	capacity := len(r.buf)
	r.buf[r.head] = msg
	r.head = (r.head + 1) % capacity
	if r.count < capacity {
		r.count++
		return false
	}
	r.dropped++
	return r.dropped == 1
}

// pushState replaces any buffered message on the same topic. Retained state
// only matters in its latest form.
func (r *ringBuffer) pushState(msg bufferedMsg) bool {
	capacity := len(r.buf)
	start := (r.head - r.count + capacity) % capacity
	for i := 0; i < r.count; i++ {
		idx := (start + i) % capacity
		if r.buf[idx].topic == msg.topic {
			r.remove(i)
			break
		}
	}
	return r.push(msg)
}

// remove deletes the i-th oldest entry, keeping order.
func (r *ringBuffer) remove(i int) {
	dropped := r.dropped
	items := r.drainAll()
	items = append(items[:i], items[i+1:]...)
	for _, m := range items {
		r.push(m)
	}
	r.dropped = dropped
}

func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	capacity := len(r.buf)
	result := make([]bufferedMsg, r.count)
	start := (r.head - r.count + capacity) % capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%capacity]
	}

	r.count = 0
	r.head = 0
	r.dropped = 0
	return result
}

func (r *ringBuffer) len() int {
	return r.count
}
