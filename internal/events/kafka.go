package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	// kafkaBatchTimeout は未満杯のバッチを送出するまでの待ち時間。
	kafkaBatchTimeout = 10 * time.Millisecond
	// kafkaMaxAttempts は1バッチあたりの送信試行回数。
	kafkaMaxAttempts = 3
)

// KafkaPublisher はKafkaへイベントを書き込むPublisher。
// トピック名はtopicPrefixにイベント種別を連結したものになる。
// Writerは非同期モードで動作し、Publishはリクエストの処理を待たせない。
// 送信失敗はCompletionコールバックでログに残す。
type KafkaPublisher struct {
	writer      *kafka.Writer
	topicPrefix string
	logger      *slog.Logger
}

// NewKafkaPublisher はKafkaPublisherを生成する。
func NewKafkaPublisher(brokers []string, topicPrefix string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	p := &KafkaPublisher{
		topicPrefix: topicPrefix,
		logger:      slog.Default(),
	}
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           kafkaBatchTimeout,
		MaxAttempts:            kafkaMaxAttempts,
		WriteTimeout:           5 * time.Second,
		Completion:             p.complete,
	}
	return p, nil
}

// Topic はイベント種別に対応するトピック名を返す。
func (p *KafkaPublisher) Topic(eventType string) string {
	return p.topicPrefix + eventType
}

// Publish はイベントを送信キューに積む。partitionKeyが同じイベントは同一パーティションに入る。
// 非同期モードのため、ブローカーへの書き込み結果は待たない。
func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.Topic(eventType),
		Key:   []byte(partitionKey),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

// complete は非同期送信の完了時に呼ばれ、失敗したイベントをログに残す。
func (p *KafkaPublisher) complete(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		p.logger.Warn("failed to publish event",
			slog.String("topic", m.Topic),
			slog.String("key", string(m.Key)),
			slog.String("error", err.Error()),
		)
	}
}

// Close はWriterを閉じ、バッファ中のメッセージを送出する。
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
