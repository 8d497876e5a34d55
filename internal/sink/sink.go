// Package sink dumps unrecognized payloads to disk for offline
// protocol analysis.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/gameobs/photometer/internal/core"
	"github.com/gameobs/photometer/internal/log"
)

type dedupKey struct {
	kind core.MessageKind
	code uint8
}

// PayloadSink writes one gzip-compressed body per unrecognized
// (kind, code) per minute. Write failures are logged, never returned;
// losing a dump must not affect the pipeline.
type PayloadSink struct {
	dir  string
	seen map[dedupKey]time.Time
	log  log.Logger
}

func New(dir string) (*PayloadSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("payload sink: %w", err)
	}
	return &PayloadSink{
		dir:  dir,
		seen: make(map[dedupKey]time.Time),
		log:  log.GetLogger(),
	}, nil
}

// Dump records one raw message body. Bodies for a (kind, code) pair
// already dumped within the same minute are skipped.
func (s *PayloadSink) Dump(ts time.Time, kind core.MessageKind, code uint8, body []byte) {
	key := dedupKey{kind: kind, code: code}
	if last, ok := s.seen[key]; ok && ts.Sub(last) < time.Minute {
		return
	}
	s.seen[key] = ts

	name := fmt.Sprintf("%d_%d_%s.bin.gz", ts.UnixMilli(), code, kind)
	if err := s.write(filepath.Join(s.dir, name), body); err != nil {
		s.log.WithError(err).Warnf("payload dump %s failed", name)
	}
}

func (s *PayloadSink) write(path string, body []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(body); err != nil {
		zw.Close()
		f.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
