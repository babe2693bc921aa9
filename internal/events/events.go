// Package events はグループとユーザーのドメインイベントを外部へ発行する。
// 発行はストレージへの書き込み成功後に行い、失敗してもAPIの結果には影響させない。
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// イベント種別
const (
	GroupCreated        = "group.created"
	GroupMemberJoined   = "group.member_joined"
	GroupChatPosted     = "group.chat_posted"
	UserSessionRecorded = "user.session_recorded"
)

// Event は発行されるイベントのエンベロープ。
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Key        string    `json:"key"`
	Data       any       `json:"data"`
}

// Publisher はイベント発行のインターフェース。
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
	Close() error
}

// NopPublisher はブローカー未設定時に使用する何もしないPublisher。
type NopPublisher struct{}

// Publish は何もしない。
func (NopPublisher) Publish(context.Context, string, []byte, string) error { return nil }

// Close は何もしない。
func (NopPublisher) Close() error { return nil }

// Emitter はイベントをエンベロープに包んで発行する。
// nilのEmitterに対するEmitは何もしない。
type Emitter struct {
	publisher Publisher
	now       func() time.Time
}

// NewEmitter はEmitterを生成する。publisherがnilの場合はNopPublisherを使う。
func NewEmitter(publisher Publisher) *Emitter {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Emitter{publisher: publisher, now: time.Now}
}

// Emit はイベントを発行する。失敗はログに記録するのみで呼び出し元には返さない。
func (e *Emitter) Emit(ctx context.Context, eventType, key string, data any) {
	if e == nil {
		return
	}

	payload, err := json.Marshal(Event{
		Type:       eventType,
		OccurredAt: e.now().UTC(),
		Key:        key,
		Data:       data,
	})
	if err != nil {
		slog.Error("イベントのエンコードに失敗しました",
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := e.publisher.Publish(ctx, eventType, payload, key); err != nil {
		slog.Warn("イベントの発行に失敗しました",
			slog.String("event", eventType),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
