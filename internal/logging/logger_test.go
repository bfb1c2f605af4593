package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		SetLevel(tt.in)
		if got := zerolog.GlobalLevel(); got != tt.want {
			t.Errorf("SetLevel(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestStartupLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = orig }()

	NewStartupLogger("darkroomctl").
		DynamoTable("darkroom", "darkroom-dev").
		Feature("events", false).
		Config("backend", "dynamo").
		InitDuration(25 * time.Millisecond).
		Log()

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "Startup complete" {
		t.Errorf("expected startup message, got %v", entry["message"])
	}
	process, _ := entry["process"].(map[string]interface{})
	if process["name"] != "darkroomctl" {
		t.Errorf("expected process name darkroomctl, got %v", process["name"])
	}
	resources, _ := entry["resources"].(map[string]interface{})
	tables, _ := resources["dynamoTables"].(map[string]interface{})
	if tables["darkroom"] != "darkroom-dev" {
		t.Errorf("expected dynamo table recorded, got %v", resources)
	}
	features, _ := entry["features"].(map[string]interface{})
	if features["events"] != false {
		t.Errorf("expected events feature false, got %v", features)
	}
}
