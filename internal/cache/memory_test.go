package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || string(got) != "v" {
		t.Errorf("expected hit with value v, got ok=%t value=%q", ok, got)
	}
}

func TestMemory_Miss(t *testing.T) {
	m := NewMemory()

	_, ok, err := m.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected miss for absent key")
	}
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	_, ok, _ := m.Get(ctx, "k")
	if ok {
		t.Error("expected expired entry to miss")
	}
}

func TestMemory_Overwrite(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.Set(ctx, "k", []byte("old"), time.Minute)
	_ = m.Set(ctx, "k", []byte("new"), time.Minute)

	got, ok, _ := m.Get(ctx, "k")
	if !ok || string(got) != "new" {
		t.Errorf("expected overwritten value, got ok=%t value=%q", ok, got)
	}
}
