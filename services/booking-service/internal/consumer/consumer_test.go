package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotkeeper/libs/kafkax"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/inbox"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeReader struct {
	msgs   []kafka.Message
	closed bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type recordingInvalidator struct {
	mu       sync.Mutex
	calls    [][2]string
	failures int
}

func (r *recordingInvalidator) Invalidate(_ context.Context, storeID, serviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("redis unavailable")
	}
	r.calls = append(r.calls, [2]string{storeID, serviceID})
	return nil
}

func storeMessage(t *testing.T, eventID string, evt StoreUpdated) kafka.Message {
	t.Helper()
	b, err := json.Marshal(evt)
	require.NoError(t, err)
	return kafka.Message{
		Topic:   TopicCatalogStoreUpdated,
		Value:   b,
		Headers: kafkax.MetaHeaders(kafkax.EventMeta{EventID: eventID, EventType: TopicCatalogStoreUpdated}),
	}
}

func fullWeek() []DaySnapshot {
	days := make([]DaySnapshot, 0, 7)
	for wd := 0; wd < 7; wd++ {
		days = append(days, DaySnapshot{Weekday: wd, IsOpen: wd != 0, OpenMinute: 540, CloseMinute: 1080})
	}
	return days
}

func TestCatalogHandlerUpsertsAndInvalidates(t *testing.T) {
	cat := catalog.NewMemory()
	cache := &recordingInvalidator{}
	handler := CatalogHandler(discardLogger(), cat, cache)

	msg := storeMessage(t, "e1", StoreUpdated{
		StoreID:   "s1",
		ServiceID: "svc",
		Store:     &StoreSnapshot{OwnerID: "p1", BookingIntervalMinutes: 30, WorkingDays: fullWeek()},
		Service:   &ServiceSnapshot{DurationMinutes: 45},
	})
	require.NoError(t, handler(context.Background(), msg))

	store, err := cat.GetStore(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "p1", store.OwnerID)
	assert.Len(t, store.WorkingDays, 7)

	svc, err := cat.GetService(context.Background(), "svc")
	require.NoError(t, err)
	assert.Equal(t, 45, svc.DurationMinutes)

	assert.Equal(t, [][2]string{{"s1", "svc"}}, cache.calls)
}

func TestCatalogHandlerRejectsBadPayload(t *testing.T) {
	handler := CatalogHandler(discardLogger(), nil, &recordingInvalidator{})
	err := handler(context.Background(), kafka.Message{Topic: TopicCatalogStoreUpdated, Value: []byte(`{}`)})
	assert.Error(t, err)
	err = handler(context.Background(), kafka.Message{Topic: TopicCatalogStoreUpdated, Value: []byte(`not json`)})
	assert.Error(t, err)
}

func TestConsumerSkipsDuplicates(t *testing.T) {
	cache := &recordingInvalidator{}
	reader := &fakeReader{msgs: []kafka.Message{
		storeMessage(t, "e1", StoreUpdated{StoreID: "s1"}),
		storeMessage(t, "e1", StoreUpdated{StoreID: "s1"}),
		storeMessage(t, "e2", StoreUpdated{StoreID: "s2"}),
	}}
	c := NewWithReader(discardLogger(), inbox.NewMemory(), reader, CatalogHandler(discardLogger(), nil, cache))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		cache.mu.Lock()
		defer cache.mu.Unlock()
		return len(cache.calls) == 2
	}, timeout, tick)
	cancel()
	<-done

	assert.True(t, reader.closed)
	assert.Equal(t, [][2]string{{"s1", ""}, {"s2", ""}}, cache.calls)
}

type failingRecorder struct{}

func (failingRecorder) Seen(context.Context, string) (bool, error) {
	return false, errors.New("db down")
}

func (failingRecorder) Record(context.Context, string, string) (bool, error) {
	return false, errors.New("db down")
}

func TestConsumerDoesNotHandleWhenInboxFails(t *testing.T) {
	cache := &recordingInvalidator{}
	c := NewWithReader(discardLogger(), failingRecorder{}, &fakeReader{}, CatalogHandler(discardLogger(), nil, cache))
	c.process(context.Background(), storeMessage(t, "e1", StoreUpdated{StoreID: "s1"}))
	assert.Empty(t, cache.calls)
}

func TestConsumerRetriesEventAfterHandlerFailure(t *testing.T) {
	cache := &recordingInvalidator{failures: 1}
	recorder := inbox.NewMemory()
	c := NewWithReader(discardLogger(), recorder, &fakeReader{}, CatalogHandler(discardLogger(), nil, cache))
	msg := storeMessage(t, "e1", StoreUpdated{StoreID: "s1"})

	c.process(context.Background(), msg)
	assert.Empty(t, cache.calls)
	seen, err := recorder.Seen(context.Background(), "e1")
	require.NoError(t, err)
	assert.False(t, seen, "failed event must not be marked processed")

	c.process(context.Background(), msg)
	assert.Equal(t, [][2]string{{"s1", ""}}, cache.calls)

	c.process(context.Background(), msg)
	assert.Len(t, cache.calls, 1, "event handled once successfully")
}

func TestConsumerHandlesEventsWithoutEventID(t *testing.T) {
	cache := &recordingInvalidator{}
	c := NewWithReader(discardLogger(), inbox.NewMemory(), &fakeReader{}, CatalogHandler(discardLogger(), nil, cache))

	for _, storeID := range []string{"s1", "s2", "s1"} {
		b, err := json.Marshal(StoreUpdated{StoreID: storeID})
		require.NoError(t, err)
		c.process(context.Background(), kafka.Message{Topic: TopicCatalogStoreUpdated, Key: []byte(storeID), Value: b})
	}

	assert.Equal(t, [][2]string{{"s1", ""}, {"s2", ""}, {"s1", ""}}, cache.calls)
}

const (
	timeout = 2 * time.Second
	tick    = 10 * time.Millisecond
)
