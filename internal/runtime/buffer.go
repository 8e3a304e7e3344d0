package runtime

// messageBuffer is a fixed-capacity FIFO ring of encoded payloads. It never
// grows and never evicts: once full, pushes are rejected until drain frees a
// slot. All methods assume the caller holds the transport lock.
type messageBuffer struct {
	slots [][]byte
	head  int
	tail  int
	count int
}

func newMessageBuffer(capacity int) *messageBuffer {
	return &messageBuffer{slots: make([][]byte, capacity)}
}

// push appends payload at the tail. Returns false when the buffer is full.
func (b *messageBuffer) push(payload []byte) bool {
	if b.count == len(b.slots) {
		return false
	}
	b.slots[b.tail] = payload
	b.tail = (b.tail + 1) % len(b.slots)
	b.count++
	return true
}

// peek returns the oldest payload without removing it. Drain uses peek so a
// failed write leaves the payload at the head for the next attempt.
func (b *messageBuffer) peek() ([]byte, bool) {
	if b.count == 0 {
		return nil, false
	}
	return b.slots[b.head], true
}

// pop removes the oldest payload.
func (b *messageBuffer) pop() {
	if b.count == 0 {
		return
	}
	b.slots[b.head] = nil
	b.head = (b.head + 1) % len(b.slots)
	b.count--
}

func (b *messageBuffer) len() int { return b.count }

func (b *messageBuffer) capacity() int { return len(b.slots) }
