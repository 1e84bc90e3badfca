package audit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func record(line string) Record {
	return Record{
		Line:     line,
		Programs: []string{"grep", "head"},
		PIDs:     []int{100, 101},
		Duration: time.Millisecond,
		Cwd:      "/tmp",
	}
}

func TestLogAndVerify(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")

	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		rec := record("grep foo | head")
		rec.Duration = time.Duration(i) * time.Millisecond
		if err := logger.Log(rec); err != nil {
			t.Fatalf("log entry %d: %v", i, err)
		}
	}

	n, err := Verify(path)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 verified entries, got %d", n)
	}
}

func TestLogRecordsFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	_ = logger.Log(Record{Line: "sleep 5 &", Programs: []string{"sleep"}, Background: true, PIDs: []int{42}})
	_ = logger.Log(Record{Line: "cat < nope", ExitCode: 1, Err: errors.New("redirect < nope: no such file or directory")})
	_ = logger.Log(Record{Line: "cd /tmp", Builtin: true})

	entries, err := Tail(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if !entries[0].Background || len(entries[0].PIDs) != 1 || entries[0].PIDs[0] != 42 {
		t.Errorf("background entry = %+v", entries[0])
	}
	if entries[1].ExitCode != 1 || entries[1].Error == "" {
		t.Errorf("failed entry = %+v", entries[1])
	}
	if !entries[2].Builtin {
		t.Errorf("builtin entry = %+v", entries[2])
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")

	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		_ = logger.Log(record("cat file"))
	}

	// Tamper with the file: modify a byte in the middle.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	mid := len(data) / 2
	if data[mid] == 'a' {
		data[mid] = 'b'
	} else {
		data[mid] = 'a'
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Verify(path); err == nil {
		t.Fatal("expected verify to detect tampering")
	}
}

func TestVerifyDetectsSequenceGap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")

	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		_ = logger.Log(record("cat file"))
	}

	// Delete the middle line (line 3 of 5).
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := splitLines(data)
	remaining := append(lines[:2], lines[3:]...)
	var newData []byte
	for _, line := range remaining {
		newData = append(newData, line...)
		newData = append(newData, '\n')
	}
	if err := os.WriteFile(path, newData, 0600); err != nil {
		t.Fatal(err)
	}

	n, err := Verify(path)
	if err == nil {
		t.Fatal("expected verify to detect sequence gap")
	}
	if n != 2 {
		t.Errorf("expected 2 good entries before the gap, got %d", n)
	}
}

func TestVerifyEmptyLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")

	if err := os.WriteFile(path, []byte{}, 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Verify(path); err != nil {
		t.Fatalf("empty log should be valid: %v", err)
	}
}

func TestLoggerResumesChain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")

	logger1, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = logger1.Log(record("first"))
	_ = logger1.Log(record("second"))

	// Create a new logger (simulating a new session).
	logger2, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = logger2.Log(record("third"))

	if _, err := Verify(path); err != nil {
		t.Fatalf("chain should be valid after restart: %v", err)
	}

	entries, err := Tail(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[2].Seq != 3 || entries[2].Line != "third" {
		t.Errorf("unexpected last entry %+v", entries[2])
	}
}
