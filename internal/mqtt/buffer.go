package mqtt

import "log"

// bufferedMsg is a serialized message held for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO of messages that could not be sent.
// When full the oldest message is overwritten. Not safe for concurrent use.
type ringBuffer struct {
	buf     []bufferedMsg
	head    int // next write position
	count   int
	dropped int // messages overwritten since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{buf: make([]bufferedMsg, capacity)}
}

// push appends msg and reports whether an older message was dropped for it.
func (r *ringBuffer) push(msg bufferedMsg) bool {
	full := r.count == len(r.buf)
	r.buf[r.head] = msg
	r.head = (r.head + 1) % len(r.buf)
	if !full {
		r.count++
		return false
	}
	if r.dropped == 0 {
		log.Printf("mqtt: buffer full (%d messages), dropping oldest", len(r.buf))
	}
	r.dropped++
	return true
}

// requeue puts msgs, oldest first, back in front of everything currently
// buffered. If the result exceeds capacity the oldest messages are dropped.
func (r *ringBuffer) requeue(msgs []bufferedMsg) {
	if len(msgs) == 0 {
		return
	}
	dropped := r.dropped
	queued := append(append([]bufferedMsg(nil), msgs...), r.drainAll()...)
	if over := len(queued) - len(r.buf); over > 0 {
		log.Printf("mqtt: buffer full (%d messages), dropping %d oldest", len(r.buf), over)
		queued = queued[over:]
		dropped += over
	}
	for _, m := range queued {
		r.push(m)
	}
	r.dropped = dropped
}

// drainAll returns buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}

	out := make([]bufferedMsg, r.count)
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	for i := range out {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}

	if r.dropped > 0 {
		log.Printf("mqtt: replaying %d buffered messages (%d dropped)", r.count, r.dropped)
	}
	r.count = 0
	r.head = 0
	r.dropped = 0
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
