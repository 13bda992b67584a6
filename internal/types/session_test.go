package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestScrollbackPayloadUnmarshalLines(t *testing.T) {
	var p ScrollbackPayload
	if err := json.Unmarshal([]byte(`["one","two","three"]`), &p); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if p.Legacy {
		t.Error("line-array payload should not be legacy")
	}
	if len(p.Lines) != 3 {
		t.Errorf("expected 3 lines, got %d", len(p.Lines))
	}
	if got := p.Normalized(); len(got) != 3 || got[0] != "one" {
		t.Errorf("unexpected normalized form: %v", got)
	}
}

func TestScrollbackPayloadUnmarshalLegacyString(t *testing.T) {
	var p ScrollbackPayload
	if err := json.Unmarshal([]byte(`"first\nsecond"`), &p); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !p.Legacy {
		t.Error("string payload should be legacy")
	}
	got := p.Normalized()
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("legacy payload should split on newline, got %v", got)
	}
}

func TestScrollbackPayloadUnmarshalNull(t *testing.T) {
	var p ScrollbackPayload
	if err := json.Unmarshal([]byte(`null`), &p); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !p.IsEmpty() {
		t.Error("null payload should be empty")
	}
}

func TestScrollbackPayloadMarshal(t *testing.T) {
	data, err := json.Marshal(NewScrollback([]string{"a", "b"}))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `["a","b"]` {
		t.Errorf("unexpected canonical form: %s", data)
	}

	legacy := ScrollbackPayload{Raw: "a\nb", Legacy: true}
	data, err = json.Marshal(legacy)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"a\nb"` {
		t.Errorf("legacy payload should round-trip as string: %s", data)
	}
}

func TestSessionRecordRoundTrip(t *testing.T) {
	active := "term_1"
	rec := SessionRecord{
		Terminals: []TerminalRecord{
			{ID: "term_1", Name: "Terminal 1", Number: 1, Cwd: "/home", IsActive: true},
			{ID: "term_2", Name: "Terminal 2", Number: 2, Cwd: "/tmp"},
		},
		ActiveTerminalID: &active,
		Timestamp:        time.Now().UnixMilli(),
		Version:          SchemaVersion,
		Scrollback: map[string]ScrollbackPayload{
			"term_1": NewScrollback([]string{"$ ls", "file.txt"}),
		},
		Config: ConfigSnapshot{ScrollbackLines: 1000, RevivePolicy: "onExitAndWindowClose"},
	}

	data, err := json.Marshal(&rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var back SessionRecord
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if len(back.Terminals) != 2 {
		t.Errorf("expected 2 terminals, got %d", len(back.Terminals))
	}
	if back.ActiveTerminalID == nil || *back.ActiveTerminalID != "term_1" {
		t.Error("active terminal id not preserved")
	}
	if back.Scrollback["term_1"].LineCount() != 2 {
		t.Error("scrollback not preserved")
	}
	if err := back.Validate(); err != nil {
		t.Errorf("round-tripped record should validate: %v", err)
	}
}

func TestSessionRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		rec     SessionRecord
		wantErr bool
	}{
		{
			name:    "valid",
			rec:     SessionRecord{Terminals: []TerminalRecord{}, Timestamp: 1, Version: "2.0"},
			wantErr: false,
		},
		{
			name:    "nil terminals",
			rec:     SessionRecord{Timestamp: 1, Version: "2.0"},
			wantErr: true,
		},
		{
			name:    "zero timestamp",
			rec:     SessionRecord{Terminals: []TerminalRecord{}, Version: "2.0"},
			wantErr: true,
		},
		{
			name:    "empty version",
			rec:     SessionRecord{Terminals: []TerminalRecord{}, Timestamp: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionRecordAge(t *testing.T) {
	now := time.Now()
	rec := SessionRecord{Timestamp: now.Add(-time.Hour).UnixMilli()}

	age := rec.Age(now)
	if age < 59*time.Minute || age > 61*time.Minute {
		t.Errorf("expected ~1h age, got %v", age)
	}
}
