package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLevels(t *testing.T) {
	testCases := []struct {
		input    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"loud", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}

	for _, tc := range testCases {
		if got := New(tc.input, "text", &bytes.Buffer{}).GetLevel(); got != tc.expected {
			t.Errorf("New(%q): expected %v, got %v", tc.input, tc.expected, got)
		}
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	New("info", "json", &buf).WithField("sample", "cat.1").Info("Reconstructed sample")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["sample"] != "cat.1" || entry["msg"] != "Reconstructed sample" {
		t.Errorf("Unexpected entry: %v", entry)
	}
}

func TestNewTextFormatFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn", "text", &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("Unexpected output: %q", buf.String())
	}
}
