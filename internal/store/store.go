// Package store 持有护士工作台的全部权威状态（任务、病人、病房、提醒、紧急呼叫）。
//
// 对外只返回副本；所有修改经过同一把锁，任务更新在锁内做状态机校验。
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"wisefido-nurse/internal/domain"
	"wisefido-nurse/internal/fixtures"
	"wisefido-nurse/internal/scheduler"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultAckDelay 紧急呼叫自动确认的默认延迟
const DefaultAckDelay = 5 * time.Second

// EmergencyRequest 触发紧急呼叫的参数
type EmergencyRequest struct {
	Note     string `json:"note"`
	Location string `json:"location"`
	Type     string `json:"type"`
}

// Options 构造参数
type Options struct {
	Scheduler scheduler.Scheduler
	Logger    *zap.Logger
	// AckDelay <= 0 使用 DefaultAckDelay
	AckDelay time.Duration
	// OnAcknowledged 紧急呼叫被确认（自动或手动）后回调，在锁外执行
	OnAcknowledged func(domain.Emergency)
}

// Store 内存状态
type Store struct {
	mu          sync.RWMutex
	rooms       []domain.Room
	patients    []domain.Patient
	tasks       []domain.Task
	alerts      []domain.Alert
	emergencies []domain.Emergency

	// 未触发的自动确认；emergency id -> cancel
	pendingAcks map[string]pendingAck
	closed      bool

	sched          scheduler.Scheduler
	ackDelay       time.Duration
	onAcknowledged func(domain.Emergency)
	logger         *zap.Logger
}

// New 用初始数据创建 Store
func New(seed fixtures.Seed, opts Options) *Store {
	if opts.Scheduler == nil {
		opts.Scheduler = scheduler.NewTimerScheduler()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.AckDelay <= 0 {
		opts.AckDelay = DefaultAckDelay
	}

	s := &Store{
		rooms:          append([]domain.Room(nil), seed.Rooms...),
		patients:       append([]domain.Patient(nil), seed.Patients...),
		alerts:         append([]domain.Alert(nil), seed.Alerts...),
		pendingAcks:    map[string]pendingAck{},
		sched:          opts.Scheduler,
		ackDelay:       opts.AckDelay,
		onAcknowledged: opts.OnAcknowledged,
		logger:         opts.Logger,
	}
	s.tasks = make([]domain.Task, 0, len(seed.Tasks))
	for _, t := range seed.Tasks {
		s.tasks = append(s.tasks, t.Clone())
	}
	return s
}

// Now 当前时间（来自调度器时钟）
func (s *Store) Now() time.Time {
	return s.sched.Now()
}

// ---- lookups ----

// GetTaskByID 按 id 查询任务
func (s *Store) GetTaskByID(id string) (domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.taskIndex(id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return domain.Task{}, false
}

// GetPatientByID 按 id 查询病人
func (s *Store) GetPatientByID(id string) (domain.Patient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.patients {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Patient{}, false
}

// GetRoomByID 按 id 查询病房
func (s *Store) GetRoomByID(id string) (domain.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rooms {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Room{}, false
}

// GetEmergencyByID 按 id 查询紧急呼叫
func (s *Store) GetEmergencyByID(id string) (domain.Emergency, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.emergencyIndex(id); i >= 0 {
		return s.emergencies[i], true
	}
	return domain.Emergency{}, false
}

// Tasks 全部任务（store 顺序）
func (s *Store) Tasks() []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	return out
}

// Patients 全部病人
func (s *Store) Patients() []domain.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Patient(nil), s.patients...)
}

// Rooms 全部病房
func (s *Store) Rooms() []domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Room(nil), s.rooms...)
}

// Alerts 全部提醒
func (s *Store) Alerts() []domain.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Alert(nil), s.alerts...)
}

// Emergencies 全部紧急呼叫（最新在前）
func (s *Store) Emergencies() []domain.Emergency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Emergency(nil), s.emergencies...)
}

// ---- tasks ----

// UpdateTask 按 id 整体替换任务
// 未知 id 返回 ErrTaskNotFound；违反状态机返回 ErrInvalidTransition，均不修改状态
func (s *Store) UpdateTask(task domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.taskIndex(task.ID)
	if i < 0 {
		return fmt.Errorf("update task %s: %w", task.ID, domain.ErrTaskNotFound)
	}
	if err := domain.ValidateTransition(s.tasks[i], task); err != nil {
		return fmt.Errorf("update task %s: %w", task.ID, err)
	}
	s.tasks[i] = task.Clone()
	return nil
}

// ModifyTask 在锁内读取-修改-写回任务，fn 返回错误时不修改
// 返回写入后的任务副本
func (s *Store) ModifyTask(id string, fn func(t *domain.Task) error) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.taskIndex(id)
	if i < 0 {
		return domain.Task{}, fmt.Errorf("modify task %s: %w", id, domain.ErrTaskNotFound)
	}
	next := s.tasks[i].Clone()
	if err := fn(&next); err != nil {
		return domain.Task{}, err
	}
	if err := domain.ValidateTransition(s.tasks[i], next); err != nil {
		return domain.Task{}, fmt.Errorf("modify task %s: %w", id, err)
	}
	s.tasks[i] = next
	return next.Clone(), nil
}

// ReplaceTasks 用远端快照整体替换任务集合
// 不满足不变量的记录被丢弃并记录日志；返回接受的数量
func (s *Store) ReplaceTasks(tasks []domain.Task) int {
	accepted := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if err := domain.CheckInvariants(t); err != nil {
			s.logger.Warn("Dropping remote task that violates invariants",
				zap.String("task_id", t.ID),
				zap.Error(err),
			)
			continue
		}
		accepted = append(accepted, t.Clone())
	}

	s.mu.Lock()
	s.tasks = accepted
	s.mu.Unlock()
	return len(accepted)
}

// ---- alerts ----

// MarkAlertsAsRead 全部标记为已读，返回本次变更数量
func (s *Store) MarkAlertsAsRead() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	for i := range s.alerts {
		if !s.alerts[i].Read {
			s.alerts[i].Read = true
			changed++
		}
	}
	return changed
}

// UnreadAlertsCount 未读提醒数量
func (s *Store) UnreadAlertsCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.alerts {
		if !a.Read {
			n++
		}
	}
	return n
}

// AddAlert 追加一条提醒（id 为空时生成，时间为空时取当前时间）
func (s *Store) AddAlert(alert domain.Alert) domain.Alert {
	if alert.ID == "" {
		alert.ID = "alert-" + uuid.NewString()
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = s.sched.Now()
	}

	s.mu.Lock()
	s.alerts = append(s.alerts, alert)
	s.mu.Unlock()
	return alert
}

// ---- emergencies ----

// TriggerEmergency 记录一次紧急呼叫（插入列表最前），并在 AckDelay 后自动确认。
// ctx 取消或 Store 关闭时，未触发的自动确认被取消。
func (s *Store) TriggerEmergency(ctx context.Context, req EmergencyRequest) domain.Emergency {
	typ := req.Type
	if typ == "" {
		typ = domain.DefaultEmergencyType
	}
	e := domain.Emergency{
		ID:        "emg-" + uuid.NewString(),
		Timestamp: s.sched.Now(),
		Note:      strings.TrimSpace(req.Note),
		Type:      typ,
		Location:  req.Location,
	}
	if e.Note == "" {
		e.Note = e.Summary()
	}

	s.mu.Lock()
	s.emergencies = append([]domain.Emergency{e}, s.emergencies...)
	if s.closed {
		s.mu.Unlock()
		return e
	}
	s.mu.Unlock()

	id := e.ID
	cancel := s.sched.After(ctx, s.ackDelay, func() {
		if _, err := s.AcknowledgeEmergency(id); err != nil {
			s.logger.Warn("Auto acknowledgment failed", zap.String("emergency_id", id), zap.Error(err))
		}
	})

	s.mu.Lock()
	// 调度器可能已同步执行（delay <= 0 的手动时钟），此时记录已确认
	if i := s.emergencyIndex(id); i >= 0 && !s.emergencies[i].Acknowledged && !s.closed && ctx.Err() == nil {
		// ctx 结束后自动确认不会再触发，清理登记
		stop := context.AfterFunc(ctx, func() { s.dropPendingAck(id) })
		s.pendingAcks[id] = pendingAck{cancel: cancel, stop: stop}
	} else {
		cancel()
	}
	s.mu.Unlock()

	s.logger.Info("Emergency triggered",
		zap.String("emergency_id", e.ID),
		zap.String("summary", e.Summary()),
	)
	return e
}

// AcknowledgeEmergency 确认紧急呼叫；重复确认是 no-op，且不会回退
func (s *Store) AcknowledgeEmergency(id string) (domain.Emergency, error) {
	s.mu.Lock()
	i := s.emergencyIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.Emergency{}, fmt.Errorf("acknowledge emergency %s: %w", id, domain.ErrEmergencyNotFound)
	}
	if s.emergencies[i].Acknowledged {
		e := s.emergencies[i]
		s.mu.Unlock()
		return e, nil
	}
	s.emergencies[i].Acknowledged = true
	e := s.emergencies[i]
	pending, ok := s.pendingAcks[id]
	delete(s.pendingAcks, id)

	onAck := s.onAcknowledged
	s.mu.Unlock()

	if ok {
		pending.release()
	}
	if onAck != nil {
		onAck(e)
	}
	return e, nil
}

// SetOnAcknowledged 替换确认回调
func (s *Store) SetOnAcknowledged(fn func(domain.Emergency)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAcknowledged = fn
}

// Close 取消所有未触发的自动确认
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	pending := make([]pendingAck, 0, len(s.pendingAcks))
	for id, p := range s.pendingAcks {
		pending = append(pending, p)
		delete(s.pendingAcks, id)
	}
	s.mu.Unlock()

	for _, p := range pending {
		p.release()
	}
}

type pendingAck struct {
	cancel func()
	stop   func() bool
}

func (p pendingAck) release() {
	p.stop()
	p.cancel()
}

func (s *Store) dropPendingAck(id string) {
	s.mu.Lock()
	p, ok := s.pendingAcks[id]
	delete(s.pendingAcks, id)
	s.mu.Unlock()
	if ok {
		p.cancel()
	}
}

func (s *Store) pendingAckCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pendingAcks)
}

func (s *Store) taskIndex(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) emergencyIndex(id string) int {
	for i := range s.emergencies {
		if s.emergencies[i].ID == id {
			return i
		}
	}
	return -1
}
