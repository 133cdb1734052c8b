package log

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

var errSample = errors.New("some error")

func doLogs() {
	Infof("folded %d votes into market %x", 3, []byte("123"))
	Debugw("publishing odds", "root", "abc123", "market", "1")
	Errorf("cannot commit market state: %v", errSample)
	Warnw("various types",
		"list", []int64{10, 0, -10},
		"duration", time.Second,
		"time", time.Unix(12345678, 0),
	)
	Error(errSample)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logTestWriter = &buf
	t.Cleanup(func() { logTestWriter = io.Discard })

	Init(LogLevelWarn, logTestWriterName, nil)
	Debugw("below threshold")
	Infow("below threshold too")
	Warnw("odds snapshot missing", "market", "7")
	c := Level()
	if c != LogLevelWarn {
		t.Fatalf("Level() = %q, want %q", c, LogLevelWarn)
	}
	out := buf.String()
	if strings.Contains(out, "below threshold") {
		t.Errorf("debug/info lines leaked through warn level: %s", out)
	}
	if !strings.Contains(out, "odds snapshot missing") {
		t.Errorf("warn line missing from output: %s", out)
	}
}

func TestCheckInvalidChars(t *testing.T) {
	t.Cleanup(func() { panicOnInvalidChars = false })

	v := []byte{'h', 'e', 'l', 'l', 'o', 0xff, 'w', 'o', 'r', 'l', 'd'}
	panicOnInvalidChars = false
	Init("debug", "stderr", nil)
	Debugf("%s", v)
	// must not panic while the guard is off

	// with the guard on, the hook panics before t.Errorf is reached
	panicOnInvalidChars = true
	Init("debug", "stderr", nil)
	defer func() { recover() }()
	Debugf("%s", v)
	t.Errorf("Debugf(%s) should have panicked because of invalid char", v)
}

func BenchmarkLogger(b *testing.B) {
	logTestWriter = io.Discard // to not grow a buffer
	Init("debug", logTestWriterName, nil)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		doLogs()
	}
}
