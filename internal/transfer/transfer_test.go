package transfer

import (
	"context"
	"testing"
)

func TestFakeSubmitRecordsCalls(t *testing.T) {
	fake := &Fake{}

	key, err := fake.Submit(context.Background(), "/tmp/batch-1.tar", "batch-1")
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if key != "archives/batch-1.tar" {
		t.Fatalf("unexpected archive key %q", key)
	}
	if len(fake.Submitted) != 1 {
		t.Fatalf("expected 1 recorded submission, got %d", len(fake.Submitted))
	}
	if fake.Submitted[0].BatchID != "batch-1" {
		t.Fatalf("unexpected batch id %q", fake.Submitted[0].BatchID)
	}
}

func TestFakeSubmitIsUsableAsSubmitter(t *testing.T) {
	var s Submitter = &Fake{}
	if _, err := s.Submit(context.Background(), "a.tar", "b"); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
}
