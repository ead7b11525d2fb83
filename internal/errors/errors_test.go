package errors

import (
	"fmt"
	"testing"
)

func TestExitCodeMapsTypedErrors(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Fatalf("expected exit 0 for nil error, got %d", got)
	}
	if got := ExitCode(New(CodeConfig, "bad mode")); got != int(CodeConfig) {
		t.Fatalf("expected config exit code, got %d", got)
	}
	wrapped := fmt.Errorf("outer: %w", New(CodeSigner, "missing key"))
	if got := ExitCode(wrapped); got != int(CodeSigner) {
		t.Fatalf("expected signer exit code through wrapping, got %d", got)
	}
	if got := ExitCode(fmt.Errorf("plain")); got != int(CodeInternal) {
		t.Fatalf("expected internal exit code for untyped error, got %d", got)
	}
}

func TestDescribePrefersCausalMessage(t *testing.T) {
	err := Wrap(CodeUnavailable, "broadcast transaction", fmt.Errorf("nonce too low"))
	if got := Describe(err); got != "nonce too low" {
		t.Fatalf("expected causal message, got %q", got)
	}
}

func TestDescribeFallsBackToTopMessage(t *testing.T) {
	if got := Describe(New(CodeUnavailable, "rpc unreachable")); got != "rpc unreachable" {
		t.Fatalf("expected top-level message, got %q", got)
	}
}

func TestDescribeSentinel(t *testing.T) {
	if got := Describe(nil); got != "Unknown error" {
		t.Fatalf("expected sentinel for nil, got %q", got)
	}
	if got := Describe(New(CodeInternal, "")); got != "Unknown error" {
		t.Fatalf("expected sentinel for empty message, got %q", got)
	}
}
