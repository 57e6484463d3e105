package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	commoncfg "wisefido-nurse/internal/common/config"
	"wisefido-nurse/internal/domain"
	"wisefido-nurse/internal/persistence"

	"gopkg.in/yaml.v3"
)

// Config wisefido-nurse 配置
// 加载顺序：默认值 → CONFIG_FILE 指定的 YAML → 环境变量
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	// SeedFixtures 启动时加载演示数据（默认 true）
	SeedFixtures bool `yaml:"seed_fixtures"`

	// Staff 当前护士；STAFF_ID 同时作为远端 triggered_by
	Staff domain.Staff `yaml:"staff"`

	Workflow WorkflowConfig `yaml:"workflow"`

	Emergency struct {
		AckDelay         time.Duration `yaml:"ack_delay"`
		BroadcastTimeout time.Duration `yaml:"broadcast_timeout"`
	} `yaml:"emergency"`

	Alerts struct {
		// MarkReadDelay 打开提醒列表后多久全部标记已读
		MarkReadDelay time.Duration `yaml:"mark_read_delay"`
	} `yaml:"alerts"`

	Remote persistence.Config `yaml:"remote"`

	Redis RedisConfig `yaml:"redis"`
	MQTT  MQTTConfig  `yaml:"mqtt"`
}

// WorkflowConfig 房间验证 / 体征记录
type WorkflowConfig struct {
	VerifyMode        string        `yaml:"verify_mode"`
	ScanDelay         time.Duration `yaml:"scan_delay"`
	ScanSuccessRate   float64       `yaml:"scan_success_rate"`
	StrictMedications bool          `yaml:"strict_medications"`
}

// RedisConfig 紧急呼叫 Redis Stream 通道
type RedisConfig struct {
	Enabled               bool `yaml:"enabled"`
	commoncfg.RedisConfig `yaml:",inline"`
	Stream                string `yaml:"stream"`
	MaxLen                int64  `yaml:"max_len"`
}

// MQTTConfig 紧急呼叫广播 / 设备提醒 / 震动下发
type MQTTConfig struct {
	Enabled              bool `yaml:"enabled"`
	commoncfg.MQTTConfig `yaml:",inline"`
	EmergencyTopic       string `yaml:"emergency_topic"`
	AlertTopic           string `yaml:"alert_topic"`
	HapticsTopic         string `yaml:"haptics_topic"`
}

// Default 默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":8080"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.SeedFixtures = true

	cfg.Staff = domain.Staff{
		ID:         "SN-12094",
		Name:       "Nurse Sarah Johnson",
		Role:       "RN",
		Department: "Cardiology Ward",
		Shift:      "7:00 AM - 7:00 PM",
	}

	cfg.Workflow.VerifyMode = "simulated"
	cfg.Workflow.ScanDelay = 2 * time.Second
	cfg.Workflow.ScanSuccessRate = 0.9

	cfg.Emergency.AckDelay = 5 * time.Second
	cfg.Emergency.BroadcastTimeout = 5 * time.Second
	cfg.Alerts.MarkReadDelay = 2 * time.Second

	cfg.Remote.Mode = persistence.ModeNone
	cfg.Remote.Postgres.Port = 5432
	cfg.Remote.Postgres.User = "postgres"
	cfg.Remote.Postgres.SSLMode = "disable"
	cfg.Remote.NotifyChannel = persistence.DefaultNotifyChannel
	cfg.Remote.REST.PollInterval = persistence.DefaultPollInterval

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.Stream = "nurse:emergencies"
	cfg.Redis.MaxLen = 10000

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "wisefido-nurse"
	cfg.MQTT.QoS = 1
	cfg.MQTT.EmergencyTopic = "nurse/emergencies"
	cfg.MQTT.AlertTopic = "nurse/alerts/+"
	cfg.MQTT.HapticsTopic = "nurse/device/haptics"
	return cfg
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.SeedFixtures = parseBool(getEnv("SEED_FIXTURES", ""), cfg.SeedFixtures)

	cfg.Staff.ID = getEnv("STAFF_ID", cfg.Staff.ID)
	cfg.Staff.Name = getEnv("STAFF_NAME", cfg.Staff.Name)
	cfg.Staff.Role = getEnv("STAFF_ROLE", cfg.Staff.Role)
	cfg.Staff.Department = getEnv("STAFF_DEPARTMENT", cfg.Staff.Department)
	cfg.Staff.Shift = getEnv("STAFF_SHIFT", cfg.Staff.Shift)

	cfg.Workflow.VerifyMode = getEnv("VERIFY_MODE", cfg.Workflow.VerifyMode)
	cfg.Workflow.ScanDelay = parseDuration(getEnv("SCAN_DELAY", ""), cfg.Workflow.ScanDelay)
	cfg.Workflow.ScanSuccessRate = parseFloat(getEnv("SCAN_SUCCESS_RATE", ""), cfg.Workflow.ScanSuccessRate)
	cfg.Workflow.StrictMedications = parseBool(getEnv("STRICT_MEDICATIONS", ""), cfg.Workflow.StrictMedications)

	cfg.Emergency.AckDelay = parseDuration(getEnv("EMERGENCY_ACK_DELAY", ""), cfg.Emergency.AckDelay)
	cfg.Emergency.BroadcastTimeout = parseDuration(getEnv("EMERGENCY_BROADCAST_TIMEOUT", ""), cfg.Emergency.BroadcastTimeout)
	cfg.Alerts.MarkReadDelay = parseDuration(getEnv("ALERTS_MARK_READ_DELAY", ""), cfg.Alerts.MarkReadDelay)

	// 远端持久化
	cfg.Remote.Mode = getEnv("REMOTE_MODE", cfg.Remote.Mode)
	cfg.Remote.Postgres.LoadFromEnv("DB")
	cfg.Remote.NotifyChannel = getEnv("DB_NOTIFY_CHANNEL", cfg.Remote.NotifyChannel)
	cfg.Remote.REST.BaseURL = getEnv("REMOTE_REST_URL", cfg.Remote.REST.BaseURL)
	cfg.Remote.REST.APIKey = getEnv("REMOTE_REST_API_KEY", cfg.Remote.REST.APIKey)
	cfg.Remote.REST.PollInterval = parseDuration(getEnv("REMOTE_POLL_INTERVAL", ""), cfg.Remote.REST.PollInterval)
	cfg.Remote.TriggeredBy = getEnv("STAFF_ID", cfg.Remote.TriggeredBy)

	// Redis
	cfg.Redis.Enabled = parseBool(getEnv("REDIS_ENABLED", ""), cfg.Redis.Enabled)
	cfg.Redis.RedisConfig.LoadFromEnv("REDIS")
	cfg.Redis.Stream = getEnv("REDIS_EMERGENCY_STREAM", cfg.Redis.Stream)

	// MQTT
	cfg.MQTT.Enabled = parseBool(getEnv("MQTT_ENABLED", ""), cfg.MQTT.Enabled)
	cfg.MQTT.MQTTConfig.LoadFromEnv("MQTT")
	cfg.MQTT.EmergencyTopic = getEnv("MQTT_EMERGENCY_TOPIC", cfg.MQTT.EmergencyTopic)
	cfg.MQTT.AlertTopic = getEnv("MQTT_ALERT_TOPIC", cfg.MQTT.AlertTopic)
	cfg.MQTT.HapticsTopic = getEnv("MQTT_HAPTICS_TOPIC", cfg.MQTT.HapticsTopic)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验取值范围
func (c *Config) Validate() error {
	switch c.Workflow.VerifyMode {
	case "simulated", "payload":
	default:
		return fmt.Errorf("invalid verify mode %q (want simulated or payload)", c.Workflow.VerifyMode)
	}
	if c.Workflow.ScanSuccessRate <= 0 || c.Workflow.ScanSuccessRate > 1 {
		return fmt.Errorf("scan success rate must be in (0, 1], got %v", c.Workflow.ScanSuccessRate)
	}
	if c.Workflow.ScanDelay < 0 || c.Emergency.AckDelay < 0 || c.Alerts.MarkReadDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

// parseDuration 支持 "2s" 形式；纯数字按毫秒处理
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
