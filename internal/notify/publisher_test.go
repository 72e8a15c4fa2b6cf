package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/internal/store"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu     sync.Mutex
	msgs   []published
	err    error
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type fakeSource struct {
	fn       func(store.Change)
	canceled bool
}

func (s *fakeSource) Subscribe(fn func(store.Change)) func() {
	s.fn = fn
	return func() { s.canceled = true }
}

func snapshot(ids ...string) []types.Property {
	out := make([]types.Property, len(ids))
	for i, id := range ids {
		out[i] = types.Property{ID: id, Title: "Home " + id}
	}
	return out
}

func TestNewEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("EAT", 3*3600))

	ev := NewEvent(store.Change{Op: store.OpUpdate, IDs: []string{"b"}, Snapshot: snapshot("a", "b", "c")}, at)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, store.OpUpdate, ev.Op)
	assert.Equal(t, 3, ev.Total)
	require.Len(t, ev.Properties, 1)
	assert.Equal(t, "b", ev.Properties[0].ID)
	assert.Equal(t, time.UTC, ev.OccurredAt.Location())

	load := NewEvent(store.Change{Op: store.OpLoad, Snapshot: snapshot("a", "b")}, at)
	assert.Equal(t, 2, load.Total)
	assert.Empty(t, load.Properties)

	del := NewEvent(store.Change{Op: store.OpDelete, IDs: []string{"x"}, Snapshot: snapshot("a")}, at)
	assert.Equal(t, []string{"x"}, del.IDs)
	assert.Empty(t, del.Properties, "deleted properties are gone from the snapshot")
}

func TestPublish(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "propsync.changes", nil)
	p.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, p.Publish(context.Background(), store.Change{
		Op: store.OpCreate, IDs: []string{"a"}, Snapshot: snapshot("a"),
	}))

	require.Len(t, ch.msgs, 1)
	got := ch.msgs[0]
	assert.Equal(t, "propsync.changes", got.exchange)
	assert.Equal(t, "property.create", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "create", got.msg.Headers["x-op"])

	var ev Event
	require.NoError(t, json.Unmarshal(got.msg.Body, &ev))
	assert.Equal(t, got.msg.MessageId, ev.ID)
	assert.Equal(t, 1, ev.Total)
	require.Len(t, ev.Properties, 1)
	assert.Equal(t, "Home a", ev.Properties[0].Title)

	ch.err = errors.New("channel closed")
	err := p.Publish(context.Background(), store.Change{Op: store.OpDelete, IDs: []string{"a"}})
	assert.ErrorIs(t, err, ch.err)
}

func TestFollow(t *testing.T) {
	ch := &fakeChannel{}
	rec := logging.NewRecorder()
	p := NewPublisher(ch, "ex", rec)
	src := &fakeSource{}

	stop := p.Follow(context.Background(), src)
	require.NotNil(t, src.fn)

	src.fn(store.Change{Op: store.OpCreate, IDs: []string{"a"}, Snapshot: snapshot("a")})
	src.fn(store.Change{Op: store.OpCounter, IDs: []string{"a"}, Snapshot: snapshot("a")})
	stop()
	stop()

	assert.True(t, src.canceled)
	require.Len(t, ch.msgs, 2)
	assert.Equal(t, "property.create", ch.msgs[0].key)
	assert.Equal(t, "property.counter", ch.msgs[1].key)

	src.fn(store.Change{Op: store.OpDelete, IDs: []string{"a"}})
	assert.Len(t, ch.msgs, 2, "changes after stop are ignored")
}

func TestFollowLogsPublishFailure(t *testing.T) {
	ch := &fakeChannel{err: errors.New("broker down")}
	rec := logging.NewRecorder()
	p := NewPublisher(ch, "ex", rec)
	src := &fakeSource{}

	stop := p.Follow(context.Background(), src)
	src.fn(store.Change{Op: store.OpUpdate, IDs: []string{"a"}})
	stop()

	errs := rec.Levels("error")
	require.Len(t, errs, 1)
	assert.Equal(t, "publish failed", errs[0].Message)
}

func TestClose(t *testing.T) {
	ch := &fakeChannel{}
	require.NoError(t, NewPublisher(ch, "ex", nil).Close())
	assert.True(t, ch.closed)
}
