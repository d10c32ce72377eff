package audit

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisStreamSink appends events to a Redis stream via XADD. Writes are
// fire-and-forget: a failed append is dropped, matching the audit trail
// delivery contract where durability belongs to the collaborator.
type RedisStreamSink struct {
	redis  redis.UniversalClient
	stream string
	maxLen int64
}

// NewRedisStreamSink creates a sink appending to the named stream. When
// maxLen > 0 the stream is capped with approximate trimming.
func NewRedisStreamSink(client redis.UniversalClient, stream string, maxLen int64) *RedisStreamSink {
	if stream == "" {
		stream = "authgate:audit"
	}
	return &RedisStreamSink{
		redis:  client,
		stream: stream,
		maxLen: maxLen,
	}
}

// Emit implements [Sink].
func (s *RedisStreamSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.redis == nil {
		return
	}

	values := map[string]interface{}{
		"event_id":   event.EventID,
		"event_type": event.EventType,
		"timestamp":  event.Timestamp.UnixMilli(),
		"success":    event.Success,
	}
	if event.UserID != "" {
		values["user_id"] = event.UserID
	}
	if event.DeviceID != "" {
		values["device_id"] = event.DeviceID
	}
	if event.IP != "" {
		values["ip"] = event.IP
	}
	if event.Route != "" {
		values["route"] = event.Route
		values["decision"] = event.Decision
	}
	if event.Guard != "" {
		values["guard"] = event.Guard
	}
	if event.Error != "" {
		values["error"] = event.Error
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: values,
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	_ = s.redis.XAdd(ctx, args).Err()
}
