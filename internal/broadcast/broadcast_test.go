package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"wisefido-nurse/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEmergency() domain.Emergency {
	return domain.Emergency{
		ID:        "emg-1",
		Timestamp: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC),
		Type:      domain.DefaultEmergencyType,
		Location:  "Room 101",
	}
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStreamPublisher_Publish(t *testing.T) {
	_, client := setupRedis(t)
	p := NewRedisStreamPublisher(client, "", 100)

	msg := NewMessage(EventTriggered, testEmergency())
	require.NoError(t, p.Publish(context.Background(), msg))

	entries, err := client.XRange(context.Background(), DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(EventTriggered), entries[0].Values["kind"])

	var got Message
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["data"].(string)), &got))
	assert.Equal(t, "emg-1", got.EmergencyID)
	assert.Equal(t, "Medical Emergency - Room 101", got.Summary)
}

func TestRedisStreamPublisher_Unavailable(t *testing.T) {
	mr, client := setupRedis(t)
	mr.Close()

	p := NewRedisStreamPublisher(client, "s", 0)
	err := p.Publish(context.Background(), NewMessage(EventTriggered, testEmergency()))
	assert.Error(t, err)
}

type fakeMQTT struct {
	mu      sync.Mutex
	topic   string
	qos     byte
	payload []byte
	err     error
}

func (f *fakeMQTT) Publish(topic string, qos byte, _ bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topic, f.qos, f.payload = topic, qos, payload
	return f.err
}

func TestMQTTPublisher_Publish(t *testing.T) {
	pub := &fakeMQTT{}
	p := NewMQTTPublisher(pub, "", 1)

	require.NoError(t, p.Publish(context.Background(), NewMessage(EventAcknowledged, testEmergency())))
	assert.Equal(t, DefaultTopic, pub.topic)
	assert.Equal(t, byte(1), pub.qos)

	var got Message
	require.NoError(t, json.Unmarshal(pub.payload, &got))
	assert.Equal(t, EventAcknowledged, got.Kind)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, got), context.Canceled)
}

func TestFanout_IsolatesFailures(t *testing.T) {
	_, client := setupRedis(t)
	bad := &fakeMQTT{err: errors.New("broker down")}

	var mu sync.Mutex
	results := map[string]error{}
	f := NewFanout([]Publisher{
		NewRedisStreamPublisher(client, "", 0),
		NewMQTTPublisher(bad, "", 1),
	}, time.Second, func(channel string, err error) {
		mu.Lock()
		defer mu.Unlock()
		results[channel] = err
	}, zap.NewNop())

	assert.Equal(t, []string{"redis", "mqtt"}, f.Channels())
	ok := f.Broadcast(context.Background(), NewMessage(EventTriggered, testEmergency()))
	assert.Equal(t, 1, ok)
	assert.NoError(t, results["redis"])
	assert.Error(t, results["mqtt"])

	n, err := client.XLen(context.Background(), DefaultStream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFanout_NoChannels(t *testing.T) {
	f := NewFanout(nil, 0, nil, zap.NewNop())
	assert.Equal(t, 0, f.Broadcast(context.Background(), Message{}))
}
