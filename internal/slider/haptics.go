package slider

import (
	"encoding/json"
	"time"

	"wisefido-nurse/internal/common/mqtt"

	"go.uber.org/zap"
)

// Intent 震动意图
type Intent string

const (
	IntentStart    Intent = "start"
	IntentProgress Intent = "progress"
	IntentSuccess  Intent = "success"
)

// Pattern 各意图对应的震动模式（毫秒，震/停交替）
func (i Intent) Pattern() []int {
	switch i {
	case IntentStart:
		return []int{50}
	case IntentProgress:
		return []int{10}
	case IntentSuccess:
		return []int{100, 50, 100}
	}
	return nil
}

// Haptics 震动能力；设备不支持时应静默忽略
type Haptics interface {
	Vibrate(intent Intent)
}

// NopHaptics 没有震动能力
type NopHaptics struct{}

func (NopHaptics) Vibrate(Intent) {}

// DeviceHaptics 通过 MQTT 把震动意图下发到护士手持设备
type DeviceHaptics struct {
	publisher mqtt.Publisher
	topic     string
	logger    *zap.Logger
}

// NewDeviceHaptics 创建设备震动下发器
func NewDeviceHaptics(publisher mqtt.Publisher, topic string, logger *zap.Logger) *DeviceHaptics {
	return &DeviceHaptics{publisher: publisher, topic: topic, logger: logger}
}

type vibrateMessage struct {
	Intent    Intent `json:"intent"`
	PatternMS []int  `json:"pattern_ms"`
	Timestamp int64  `json:"timestamp"`
}

// Vibrate 下发震动；失败只记录日志
func (h *DeviceHaptics) Vibrate(intent Intent) {
	payload, err := json.Marshal(vibrateMessage{
		Intent:    intent,
		PatternMS: intent.Pattern(),
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}
	// QoS 0：震动是即时反馈，过期重发没有意义
	if err := h.publisher.Publish(h.topic, 0, false, payload); err != nil {
		h.logger.Debug("Haptic publish failed", zap.String("intent", string(intent)), zap.Error(err))
	}
}
