package config

import (
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "8084")
	if p, err := Port("TEST_PORT", "1"); err != nil || p != "8084" {
		t.Fatalf("expected 8084, got %q, %v", p, err)
	}
	t.Setenv("TEST_PORT", "70000")
	if _, err := Port("TEST_PORT", "1"); err == nil {
		t.Fatal("expected error for out of range port")
	}
}

func TestIntAndDuration(t *testing.T) {
	if n, err := Int("TEST_UNSET_INT", 7); err != nil || n != 7 {
		t.Fatalf("expected fallback 7, got %d, %v", n, err)
	}
	t.Setenv("TEST_INT", "x")
	if _, err := Int("TEST_INT", 7); err == nil {
		t.Fatal("expected parse error")
	}
	t.Setenv("TEST_DURATION", "90s")
	if d, err := Duration("TEST_DURATION", time.Hour); err != nil || d != 90*time.Second {
		t.Fatalf("expected 90s, got %s, %v", d, err)
	}
	t.Setenv("TEST_DURATION", "-1s")
	if _, err := Duration("TEST_DURATION", time.Hour); err == nil {
		t.Fatal("expected error for negative duration")
	}
}

func TestBoolAndList(t *testing.T) {
	t.Setenv("TEST_BOOL", "off")
	if Bool("TEST_BOOL", true) {
		t.Fatal("expected false")
	}
	t.Setenv("TEST_BOOL", "maybe")
	if !Bool("TEST_BOOL", true) {
		t.Fatal("expected fallback true")
	}
	t.Setenv("TEST_LIST", " a, ,b ,")
	got := List("TEST_LIST", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected list %v", got)
	}
	if got := List("TEST_UNSET_LIST", []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Fatalf("expected fallback, got %v", got)
	}
}
