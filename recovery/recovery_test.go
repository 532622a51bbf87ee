package recovery

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/diarlive/errors"
	"github.com/kbukum/diarlive/logger"
	"github.com/kbukum/diarlive/resilience"
)

func testJob(t *testing.T) Job {
	t.Helper()
	return NewJob("m1", "s1", "engine failed", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
}

func TestJobValidate(t *testing.T) {
	j := testJob(t)
	if err := j.Validate(); err != nil {
		t.Fatalf("expected valid job: %v", err)
	}
	j.MeetingID = ""
	if err := j.Validate(); err == nil {
		t.Error("expected missing meeting id to fail")
	}
	j = testJob(t)
	j.ID = "not-a-uuid"
	if err := j.Validate(); err == nil {
		t.Error("expected bad job id to fail")
	}
}

func TestMemoryQueue(t *testing.T) {
	q := NewMemory()
	if err := q.Enqueue(context.Background(), testJob(t)); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(context.Background(), Job{}); err == nil {
		t.Error("expected invalid job to be rejected")
	}
	if n := len(q.Jobs()); n != 1 {
		t.Errorf("expected 1 job, got %d", n)
	}
}

func TestRedisQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	q, err := NewRedisQueue(ctx, RedisConfig{Addr: mr.Addr(), Key: "recovery", DialTimeout: time.Second}, logger.Nop())
	if err != nil {
		t.Fatalf("NewRedisQueue: %v", err)
	}
	defer q.Close()

	job := testJob(t)
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	n, err := q.Len(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 queued job, got %d (err=%v)", n, err)
	}

	items, err := mr.List("recovery")
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalJob([]byte(items[0]))
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != job.ID || got.MeetingID != "m1" || !got.RequestedAt.Equal(job.RequestedAt) {
		t.Errorf("unexpected job in redis: %+v", got)
	}
}

func TestRedisQueueConnectionFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	q, err := NewRedisQueue(context.Background(), RedisConfig{Addr: mr.Addr(), Key: "k", DialTimeout: time.Second}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	mr.Close()

	err = q.Enqueue(context.Background(), testJob(t))
	if !errors.HasCode(err, errors.ErrCodeRecoveryFailed) {
		t.Errorf("expected RECOVERY_FAILED, got %v", err)
	}
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafkago.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaQueue(t *testing.T) {
	w := &fakeWriter{}
	q := newKafkaQueue(w, "recovery", logger.Nop())

	job := testJob(t)
	if err := q.Enqueue(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "m1" {
		t.Errorf("expected meeting id key, got %q", msg.Key)
	}
	got, err := UnmarshalJob(msg.Value)
	if err != nil || got.ID != job.ID {
		t.Errorf("unexpected payload %s (err=%v)", msg.Value, err)
	}

	w.err = fmt.Errorf("leader not available")
	if err := q.Enqueue(context.Background(), job); !errors.HasCode(err, errors.ErrCodeRecoveryFailed) {
		t.Errorf("expected RECOVERY_FAILED, got %v", err)
	}
}

type flakyQueue struct {
	failures int
	calls    int
}

func (f *flakyQueue) Name() string { return "flaky" }

func (f *flakyQueue) Enqueue(_ context.Context, job Job) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.RecoveryFailed(job.MeetingID, fmt.Errorf("try again"))
	}
	return nil
}

func TestRetrying(t *testing.T) {
	cfg := resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	ok := &flakyQueue{failures: 2}
	if err := WithRetry(ok, cfg, logger.Nop()).Enqueue(context.Background(), testJob(t)); err != nil {
		t.Fatalf("expected success on third attempt: %v", err)
	}
	if ok.calls != 3 {
		t.Errorf("expected 3 calls, got %d", ok.calls)
	}

	bad := &flakyQueue{failures: 5}
	if err := WithRetry(bad, cfg, logger.Nop()).Enqueue(context.Background(), testJob(t)); err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if bad.calls != 3 {
		t.Errorf("expected 3 calls, got %d", bad.calls)
	}

	invalid := &flakyQueue{}
	if err := WithRetry(invalid, cfg, logger.Nop()).Enqueue(context.Background(), Job{}); err == nil || invalid.calls != 0 {
		t.Errorf("expected invalid job to fail without calling the backend (calls=%d)", invalid.calls)
	}
}

func TestOpenDefaultsToMemory(t *testing.T) {
	q, err := Open(context.Background(), Config{}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if q.Name() != BackendMemory {
		t.Errorf("expected memory backend, got %s", q.Name())
	}
	if _, err := Open(context.Background(), Config{Backend: "sqs"}, logger.Nop()); err == nil {
		t.Error("expected unknown backend to fail")
	}
}
