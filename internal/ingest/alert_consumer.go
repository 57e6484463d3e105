// Package ingest 订阅设备侧（IoT 传感器、CCTV 分析）发布的提醒并写入 store。
package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"wisefido-nurse/internal/common/mqtt"
	"wisefido-nurse/internal/domain"

	"go.uber.org/zap"
)

// DefaultTopic 提醒订阅主题
const DefaultTopic = "nurse/alerts/+"

// AlertSink 接收解析后的提醒
type AlertSink interface {
	AddAlert(alert domain.Alert) domain.Alert
}

// AlertMessage 设备提醒消息
type AlertMessage struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	RoomID    string     `json:"room_id"`
	Timestamp *time.Time `json:"timestamp"`
}

// AlertConsumer MQTT 提醒消费者
type AlertConsumer struct {
	subscriber mqtt.Subscriber
	topic      string
	qos        byte
	sink       AlertSink
	onAlert    func(domain.Alert)
	logger     *zap.Logger
}

// NewAlertConsumer 创建消费者；onAlert 可为空
func NewAlertConsumer(subscriber mqtt.Subscriber, topic string, qos byte, sink AlertSink, onAlert func(domain.Alert), logger *zap.Logger) *AlertConsumer {
	if topic == "" {
		topic = DefaultTopic
	}
	if onAlert == nil {
		onAlert = func(domain.Alert) {}
	}
	return &AlertConsumer{
		subscriber: subscriber,
		topic:      topic,
		qos:        qos,
		sink:       sink,
		onAlert:    onAlert,
		logger:     logger,
	}
}

// Start 订阅主题
func (c *AlertConsumer) Start() error {
	if err := c.subscriber.Subscribe(c.topic, c.qos, c.HandleMessage); err != nil {
		return fmt.Errorf("failed to start alert consumer: %w", err)
	}
	c.logger.Info("Alert consumer started", zap.String("topic", c.topic))
	return nil
}

// Stop 取消订阅
func (c *AlertConsumer) Stop() error {
	return c.subscriber.Unsubscribe(c.topic)
}

// HandleMessage 解析一条消息并写入 store
func (c *AlertConsumer) HandleMessage(topic string, payload []byte) error {
	alert, err := ParseAlert(payload)
	if err != nil {
		return fmt.Errorf("topic %s: %w", topic, err)
	}

	stored := c.sink.AddAlert(alert)
	c.logger.Info("Alert ingested",
		zap.String("alert_id", stored.ID),
		zap.String("type", string(stored.Type)),
		zap.String("room_id", stored.RoomID),
	)
	c.onAlert(stored)
	return nil
}

// ParseAlert 校验并转换设备消息；新提醒总是未读
func ParseAlert(payload []byte) (domain.Alert, error) {
	var msg AlertMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return domain.Alert{}, fmt.Errorf("invalid alert payload: %w", err)
	}

	typ, ok := domain.ParseAlertType(msg.Type)
	if !ok {
		return domain.Alert{}, fmt.Errorf("unknown alert type %q", msg.Type)
	}
	title := strings.TrimSpace(msg.Title)
	if title == "" {
		return domain.Alert{}, fmt.Errorf("alert title is required")
	}

	alert := domain.Alert{
		ID:      msg.ID,
		Type:    typ,
		Title:   title,
		Message: strings.TrimSpace(msg.Message),
		RoomID:  msg.RoomID,
	}
	if msg.Timestamp != nil {
		alert.Timestamp = *msg.Timestamp
	}
	return alert, nil
}
