package auditlog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubAppender struct {
	entries []Entry
	err     error
}

func (s *stubAppender) Append(ctx context.Context, e Entry) (Entry, error) {
	if s.err != nil {
		return Entry{}, s.err
	}
	s.entries = append(s.entries, e)
	return e, nil
}

func TestLogger_Record(t *testing.T) {
	st := &stubAppender{}
	NewLogger(st, nil).Record(context.Background(), Entry{CorrelationID: "corr-1", EventType: EventInitiated})
	assert.Len(t, st.entries, 1)
}

func TestLogger_SwallowsWriteFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	st := &stubAppender{err: errors.New("throttled")}

	assert.NotPanics(t, func() {
		NewLogger(st, zap.New(core)).Record(context.Background(), Entry{CorrelationID: "corr-1", EventType: EventFailed})
	})
	entries := logs.FilterMessage("payment log write failed").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "corr-1", entries[0].ContextMap()["correlation_id"])
	}

	var nilLogger *Logger
	assert.NotPanics(t, func() { nilLogger.Record(context.Background(), Entry{}) })
}
