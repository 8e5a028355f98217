// File: pool/pool_test.go
// Author: momentics <momentics@gmail.com>

package pool

import "testing"

func TestSimpleBytePoolReusesBuffers(t *testing.T) {
	bp := NewSimpleBytePool(1, 16)

	b := bp.Get()
	b = append(b, "hello"...)
	bp.Put(b)

	got := bp.Get()
	if cap(got) < 16 {
		t.Fatalf("expected a reused buffer with capacity >= 16, got cap %d", cap(got))
	}
	if len(got) != 0 {
		t.Fatalf("Get should always return a zero-length slice, got len %d", len(got))
	}
}

func TestSimpleBytePoolFallsBackWhenEmpty(t *testing.T) {
	bp := NewSimpleBytePool(0, 8)

	b := bp.Get()
	if cap(b) != 8 {
		t.Fatalf("expected a fresh buffer sized %d, got cap %d", 8, cap(b))
	}
}

func TestSimpleBytePoolDiscardsPastCapacity(t *testing.T) {
	bp := NewSimpleBytePool(1, 8)

	bp.Put(make([]byte, 0, 8))
	bp.Put(make([]byte, 0, 8)) // pool already full, this one is discarded

	first := bp.Get()
	if cap(first) != 8 {
		t.Fatalf("expected the one pooled buffer back, got cap %d", cap(first))
	}
	second := bp.Get()
	if cap(second) != 8 {
		t.Fatalf("expected a fresh fallback buffer, got cap %d", cap(second))
	}
}

func TestSyncPoolGetPut(t *testing.T) {
	created := 0
	sp := NewSyncPool(func() chan error {
		created++
		return make(chan error, 1)
	})

	c := sp.Get()
	c <- nil
	<-c
	sp.Put(c)

	if created == 0 {
		t.Fatalf("expected the creator to have run at least once")
	}
}
