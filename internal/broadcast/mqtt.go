package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"wisefido-nurse/internal/common/mqtt"
)

// DefaultTopic 紧急呼叫 MQTT 主题
const DefaultTopic = "nurse/emergencies"

// MQTTPublisher 发布到 MQTT 主题（病区大屏、呼叫器订阅）
type MQTTPublisher struct {
	publisher mqtt.Publisher
	topic     string
	qos       byte
}

var _ Publisher = (*MQTTPublisher)(nil)

// NewMQTTPublisher 创建 MQTT 通道
func NewMQTTPublisher(publisher mqtt.Publisher, topic string, qos byte) *MQTTPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTTPublisher{publisher: publisher, topic: topic, qos: qos}
}

func (p *MQTTPublisher) Name() string { return "mqtt" }

// Publish 发布消息；paho 的 token 等待不支持 ctx，只在发布前检查
func (p *MQTTPublisher) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast message: %w", err)
	}
	return p.publisher.Publish(p.topic, p.qos, false, payload)
}
