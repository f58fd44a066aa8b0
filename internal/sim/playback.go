package sim

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/pgzip"

	"fixturegen/internal/telemetry"
)

// maxReplayLine bounds a single record line.
const maxReplayLine = 1 << 20

// ReplayLog replays record lines from r to writer, pacing them by their
// datetime gaps divided by speed. If speed <= 0, no artificial delay is
// inserted. Only the datetime is parsed; sinks that accept encoded lines get
// the original bytes. Jitter can make consecutive datetimes go backwards;
// those gaps are skipped.
func ReplayLog(ctx context.Context, r io.Reader, writer RecordWriter, speed float64) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxReplayLine)
	var prev time.Time
	n, lineNo := 0, 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var head struct {
			Datetime string `json:"datetime"`
		}
		if err := json.Unmarshal(line, &head); err != nil {
			return n, fmt.Errorf("line %d: %w", lineNo, err)
		}
		ts, err := telemetry.ParseDatetime(head.Datetime)
		if err != nil {
			return n, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !prev.IsZero() && speed > 0 {
			diff := ts.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				select {
				case <-time.After(diff):
				case <-ctx.Done():
					return n, ctx.Err()
				}
			}
		}
		if err := writeLine(writer, line); err != nil {
			return n, fmt.Errorf("line %d: %w", lineNo, err)
		}
		n++
		if ts.After(prev) {
			prev = ts
		}
	}
	return n, sc.Err()
}

// ReplayLogFile opens a file and replays its records. Files ending in .gz
// are decompressed on the fly.
func ReplayLogFile(ctx context.Context, path string, writer RecordWriter, speed float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return 0, fmt.Errorf("open gzip log: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return ReplayLog(ctx, r, writer, speed)
}
