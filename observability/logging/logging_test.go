package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMaskFieldRedactsUnlistedKeys(t *testing.T) {
	if got := MaskField("passphrase", "hunter2").Value.String(); got != RedactedValue {
		t.Fatalf("expected redaction, got %q", got)
	}
	if got := MaskField("tx_type", "purchase_credits").Value.String(); got != "purchase_credits" {
		t.Fatalf("allowlisted key masked: %q", got)
	}
	if got := MaskField("secret", "").Value.String(); got != "" {
		t.Fatalf("empty value should pass through, got %q", got)
	}
}

func TestSetupWithFileWritesRotatingSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "node.log")
	logger, closer, err := SetupWithFile("academicd", "test", FileConfig{Path: path})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	logger.Info("hello", "module", "academic")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	for _, want := range []string{`"message":"hello"`, `"service":"academicd"`, `"env":"test"`, `"severity":"INFO"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line %q missing %s", line, want)
		}
	}
}

func TestShortIdentity(t *testing.T) {
	if got := ShortIdentity("acad1qyabcdefghjkmnpqrstuvwxyz7k2m"); got != "acad1qy…7k2m" {
		t.Fatalf("unexpected short identity %q", got)
	}
	if got := ShortIdentity("acad1qy"); got != RedactedValue {
		t.Fatalf("short input should be masked, got %q", got)
	}
	if got := IdentityField("operator", "").Value.String(); got != "" {
		t.Fatalf("empty identity should stay empty, got %q", got)
	}
}
