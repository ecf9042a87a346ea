package storage

import "testing"

func TestValidateContentType(t *testing.T) {
	if err := ValidateContentType("application/json; charset=utf-8"); err != nil {
		t.Fatalf("expected json to be allowed, got %v", err)
	}
	if err := ValidateContentType("image/png"); err == nil {
		t.Fatal("expected image to be rejected")
	}
}

func TestValidateFileSize(t *testing.T) {
	if err := ValidateFileSize(0, 10); err == nil {
		t.Fatal("expected empty object to be rejected")
	}
	if err := ValidateFileSize(11, 10); err == nil {
		t.Fatal("expected oversized object to be rejected")
	}
	if err := ValidateFileSize(1<<30, 0); err != nil {
		t.Fatalf("expected unbounded size to pass, got %v", err)
	}
}
