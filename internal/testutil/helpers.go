package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// WaitForCondition waits until the condition function returns true or times out
func WaitForCondition(fn func() bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	interval := 10 * time.Millisecond

	if timeout < 100*time.Millisecond {
		interval = 1 * time.Millisecond
	} else if timeout < 1*time.Second {
		interval = 5 * time.Millisecond
	}

	for time.Now().Before(deadline) {
		if fn() {
			return nil
		}
		time.Sleep(interval)
	}

	return fmt.Errorf("condition not met within %v timeout", timeout)
}

// WriteFile writes content to name inside dir and returns the path
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// AssertContains fails the test if haystack does not contain needle
func AssertContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Errorf("expected %q to contain %q", haystack, needle)
	}
}

// AssertNotContains fails the test if haystack contains needle
func AssertNotContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if strings.Contains(haystack, needle) {
		t.Errorf("expected %q to not contain %q", haystack, needle)
	}
}

// AssertContainsAll fails the test if haystack is missing any needle
func AssertContainsAll(t *testing.T, haystack string, needles ...string) {
	t.Helper()
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			t.Errorf("expected output to contain %q", needle)
		}
	}
}
