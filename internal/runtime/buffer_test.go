package runtime

import (
	"fmt"
	"testing"
)

func TestMessageBufferFIFO(t *testing.T) {
	buf := newMessageBuffer(3)

	if _, ok := buf.peek(); ok {
		t.Fatal("empty buffer must not peek")
	}

	for _, p := range []string{"a", "b", "c"} {
		if !buf.push([]byte(p)) {
			t.Fatalf("push %q failed", p)
		}
	}
	if buf.push([]byte("d")) {
		t.Fatal("push into full buffer must fail")
	}
	if buf.len() != 3 {
		t.Fatalf("expected len 3, got %d", buf.len())
	}

	for _, want := range []string{"a", "b", "c"} {
		got, ok := buf.peek()
		if !ok || string(got) != want {
			t.Fatalf("expected %q at head, got %q", want, got)
		}
		buf.pop()
	}
	if buf.len() != 0 {
		t.Fatalf("expected empty buffer, got len %d", buf.len())
	}
}

func TestMessageBufferWrapsAround(t *testing.T) {
	buf := newMessageBuffer(2)

	// Cycle through the ring several times to cross the wrap boundary.
	for i := 0; i < 10; i++ {
		payload := []byte(fmt.Sprintf("p%d", i))
		if !buf.push(payload) {
			t.Fatalf("push %d failed", i)
		}
		got, ok := buf.peek()
		if !ok || string(got) != string(payload) {
			t.Fatalf("expected %q, got %q", payload, got)
		}
		buf.pop()
	}

	if buf.capacity() != 2 {
		t.Fatalf("expected capacity 2, got %d", buf.capacity())
	}
}

func TestMessageBufferPeekDoesNotRemove(t *testing.T) {
	buf := newMessageBuffer(2)
	buf.push([]byte("a"))

	buf.peek()
	buf.peek()
	if buf.len() != 1 {
		t.Fatalf("peek must not remove, got len %d", buf.len())
	}
}
