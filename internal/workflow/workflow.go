// Package workflow 实现任务生命周期中护士触发的动作：
// 房间二维码验证、体征记录（完成任务）、取消任务。
// 状态修改都通过 TaskStore.ModifyTask 原子完成，状态机校验由 store 负责。
package workflow

import (
	"math/rand"
	"sync"
	"time"

	"wisefido-nurse/internal/domain"
	"wisefido-nurse/internal/scheduler"

	"go.uber.org/zap"
)

// VerifyMode 房间验证方式
type VerifyMode string

const (
	// VerifyModeSimulated 延迟后按成功率随机判定（演示设备）
	VerifyModeSimulated VerifyMode = "simulated"
	// VerifyModePayload 扫码内容必须与房间 QRCodeValue 一致
	VerifyModePayload VerifyMode = "payload"
)

const (
	DefaultScanDelay       = 2 * time.Second
	DefaultScanSuccessRate = 0.9
)

// TaskStore workflow 需要的 store 能力
type TaskStore interface {
	GetTaskByID(id string) (domain.Task, bool)
	GetRoomByID(id string) (domain.Room, bool)
	ModifyTask(id string, fn func(t *domain.Task) error) (domain.Task, error)
}

// Config workflow 配置
type Config struct {
	Mode            VerifyMode
	ScanDelay       time.Duration
	ScanSuccessRate float64
	// StrictMedications 开启时，给药必须是任务医嘱中的药品
	StrictMedications bool
	// Rand 返回 [0,1) 随机数；为空时使用 math/rand
	Rand func() float64
}

// Workflow 任务动作
type Workflow struct {
	store  TaskStore
	sched  scheduler.Scheduler
	cfg    Config
	logger *zap.Logger

	randMu sync.Mutex
}

// New 创建 Workflow
func New(store TaskStore, sched scheduler.Scheduler, cfg Config, logger *zap.Logger) *Workflow {
	if cfg.Mode == "" {
		cfg.Mode = VerifyModeSimulated
	}
	if cfg.ScanDelay < 0 {
		cfg.ScanDelay = 0
	}
	if cfg.ScanSuccessRate <= 0 || cfg.ScanSuccessRate > 1 {
		cfg.ScanSuccessRate = DefaultScanSuccessRate
	}
	if cfg.Rand == nil {
		r := rand.New(rand.NewSource(time.Now().UnixNano()))
		cfg.Rand = r.Float64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{store: store, sched: sched, cfg: cfg, logger: logger}
}

// Mode 当前验证方式
func (w *Workflow) Mode() VerifyMode {
	return w.cfg.Mode
}

// CanRecordVitals 是否允许记录体征：进行中且已通过房间验证
func CanRecordVitals(t domain.Task) bool {
	return t.Status == domain.TaskStatusInProgress && t.QRVerified
}

func (w *Workflow) random() float64 {
	w.randMu.Lock()
	defer w.randMu.Unlock()
	return w.cfg.Rand()
}
