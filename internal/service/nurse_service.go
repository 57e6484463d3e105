package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wisefido-nurse/internal/broadcast"
	"wisefido-nurse/internal/domain"
	"wisefido-nurse/internal/export"
	"wisefido-nurse/internal/metrics"
	"wisefido-nurse/internal/persistence"
	"wisefido-nurse/internal/scheduler"
	"wisefido-nurse/internal/slider"
	"wisefido-nurse/internal/store"
	"wisefido-nurse/internal/views"
	"wisefido-nurse/internal/workflow"

	"go.uber.org/zap"
)

// TaskWriter 远端写入（persistence.AsyncWriter）
type TaskWriter interface {
	SaveTask(task domain.Task)
	InsertEmergency(e domain.Emergency)
}

// Broadcaster 紧急呼叫广播（broadcast.Fanout）
type Broadcaster interface {
	Broadcast(ctx context.Context, msg broadcast.Message) int
}

// Options NurseService 依赖
type Options struct {
	// Context 服务生命周期；取消后未触发的延迟任务不再执行
	Context     context.Context
	Store       *store.Store
	Workflow    *workflow.Workflow
	Scheduler   scheduler.Scheduler
	Remote      persistence.Remote
	Writer      TaskWriter
	Broadcaster Broadcaster
	Haptics     slider.Haptics
	Metrics     *metrics.Metrics
	Logger      *zap.Logger

	// Staff 个人资料页展示的当前护士
	Staff         domain.Staff
	MarkReadDelay time.Duration
}

// NurseService 编排 store / workflow / 远端 / 广播
type NurseService struct {
	ctx         context.Context
	store       *store.Store
	workflow    *workflow.Workflow
	sched       scheduler.Scheduler
	remote      persistence.Remote
	writer      TaskWriter
	broadcaster Broadcaster
	haptics     slider.Haptics
	metrics     *metrics.Metrics
	logger      *zap.Logger

	staff         domain.Staff
	markReadDelay time.Duration

	// 后台广播；closed 之后不再派发
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool

	// 同一时间只保留一个待执行的 "标记已读"
	markReadMu     sync.Mutex
	markReadCancel func()
}

// NewNurseService 创建服务并接管 store 的确认回调
func NewNurseService(opts Options) *NurseService {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Remote == nil {
		opts.Remote = persistence.Nop{}
	}
	if opts.Writer == nil {
		opts.Writer = nopWriter{}
	}
	if opts.Broadcaster == nil {
		opts.Broadcaster = broadcast.NewFanout(nil, 0, nil, opts.Logger)
	}
	if opts.Haptics == nil {
		opts.Haptics = slider.NopHaptics{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &NurseService{
		ctx:           opts.Context,
		store:         opts.Store,
		workflow:      opts.Workflow,
		sched:         opts.Scheduler,
		remote:        opts.Remote,
		writer:        opts.Writer,
		broadcaster:   opts.Broadcaster,
		haptics:       opts.Haptics,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		staff:         opts.Staff,
		markReadDelay: opts.MarkReadDelay,
	}
	s.store.SetOnAcknowledged(s.handleAcknowledged)
	s.metrics.SetUnreadAlerts(s.store.UnreadAlertsCount())
	return s
}

type nopWriter struct{}

func (nopWriter) SaveTask(domain.Task)             {}
func (nopWriter) InsertEmergency(domain.Emergency) {}

// Close 停止派发新的广播并等待进行中的广播完成，可重复调用
func (s *NurseService) Close() {
	s.closeMu.Lock()
	s.closed = true
	s.closeMu.Unlock()
	s.wg.Wait()
}

// ---- tasks ----

// TaskDetail 任务详情页数据
type TaskDetail struct {
	Task            domain.Task     `json:"task"`
	Patient         *domain.Patient `json:"patient,omitempty"`
	Room            *domain.Room    `json:"room,omitempty"`
	CanRecordVitals bool            `json:"can_record_vitals"`
	// Elapsed 进行中任务自创建以来的 mm:ss
	Elapsed string `json:"elapsed,omitempty"`
}

// ListTasks 按状态过滤任务；status 为空返回全部
func (s *NurseService) ListTasks(status string) ([]domain.Task, error) {
	if status == "" {
		return s.store.Tasks(), nil
	}
	st, ok := domain.ParseTaskStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown task status %q", domain.ErrInvalidArgument, status)
	}
	return views.TasksByStatus(s.store.Tasks(), st), nil
}

// PendingTasks 待处理任务
func (s *NurseService) PendingTasks() []domain.Task {
	return views.PendingTasks(s.store.Tasks())
}

// History 已完成任务（完成时间倒序）及今日完成数
func (s *NurseService) History() views.History {
	return views.BuildHistory(s.store.Tasks(), s.sched.Now())
}

// ExportHistory 已完成任务 xlsx
func (s *NurseService) ExportHistory() ([]byte, error) {
	return export.HistoryWorkbook(views.CompletedHistory(s.store.Tasks()), s.store, time.Local)
}

// GetTaskDetail 任务详情（关联病人、病房）
func (s *NurseService) GetTaskDetail(id string) (*TaskDetail, error) {
	task, ok := s.store.GetTaskByID(id)
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrTaskNotFound)
	}

	detail := &TaskDetail{Task: task, CanRecordVitals: workflow.CanRecordVitals(task)}
	if p, ok := s.store.GetPatientByID(task.PatientID); ok {
		detail.Patient = &p
	}
	if r, ok := s.store.GetRoomByID(task.RoomID); ok {
		detail.Room = &r
	}
	if task.Status == domain.TaskStatusInProgress {
		detail.Elapsed = views.FormatElapsed(s.sched.Now().Sub(task.CreatedAt))
	}
	return detail, nil
}

// VerifyRoom 房间验证；状态真正变化时才计数并异步写远端
func (s *NurseService) VerifyRoom(ctx context.Context, taskID, payload string) (domain.Task, error) {
	start := time.Now()
	task, changed, err := s.workflow.Verify(ctx, taskID, payload)
	s.metrics.ObserveVerification(time.Since(start).Seconds(), err)
	if err != nil {
		return domain.Task{}, err
	}

	if changed {
		s.metrics.ObserveTransition(string(task.Status))
		s.writer.SaveTask(task)
	}
	return task, nil
}

// RecordReadings 记录体征并完成任务
func (s *NurseService) RecordReadings(taskID string, in workflow.ReadingsInput) (domain.Task, error) {
	task, err := s.workflow.RecordReadings(taskID, in)
	if err != nil {
		return domain.Task{}, err
	}
	s.metrics.ObserveTransition(string(task.Status))
	s.writer.SaveTask(task)
	return task, nil
}

// CancelTask 取消任务
func (s *NurseService) CancelTask(taskID string) (domain.Task, error) {
	task, err := s.workflow.Cancel(taskID)
	if err != nil {
		return domain.Task{}, err
	}
	s.metrics.ObserveTransition(string(task.Status))
	s.writer.SaveTask(task)
	return task, nil
}

// ---- alerts ----

// ListAlerts 按类型过滤提醒；markRead 为 true 时在 MarkReadDelay 后全部标记已读
func (s *NurseService) ListAlerts(filter string, markRead bool) ([]domain.Alert, error) {
	alerts, err := views.AlertsByType(s.store.Alerts(), filter)
	if err != nil {
		return nil, err
	}
	if markRead {
		s.scheduleMarkRead()
	}
	return alerts, nil
}

func (s *NurseService) scheduleMarkRead() {
	s.markReadMu.Lock()
	defer s.markReadMu.Unlock()
	if s.markReadCancel != nil {
		s.markReadCancel()
	}
	s.markReadCancel = s.sched.After(s.ctx, s.markReadDelay, func() {
		s.MarkAlertsRead()
	})
}

// UnreadAlertsCount 未读提醒数
func (s *NurseService) UnreadAlertsCount() int {
	return s.store.UnreadAlertsCount()
}

// MarkAlertsRead 全部标记已读，返回变更数量
func (s *NurseService) MarkAlertsRead() int {
	n := s.store.MarkAlertsAsRead()
	s.metrics.SetUnreadAlerts(s.store.UnreadAlertsCount())
	return n
}

// HandleIngestedAlert ingest 回调
func (s *NurseService) HandleIngestedAlert(a domain.Alert) {
	s.metrics.ObserveAlert(string(a.Type))
	s.metrics.SetUnreadAlerts(s.store.UnreadAlertsCount())
}

// ---- emergencies ----

// TriggerEmergency 触发紧急呼叫：本地记录、异步写远端、后台广播
func (s *NurseService) TriggerEmergency(req store.EmergencyRequest) domain.Emergency {
	e := s.store.TriggerEmergency(s.ctx, req)
	s.metrics.ObserveEmergency()
	s.writer.InsertEmergency(e)
	s.broadcastAsync(broadcast.EventTriggered, e)
	return e
}

// AcknowledgeEmergency 手动确认
func (s *NurseService) AcknowledgeEmergency(id string) (domain.Emergency, error) {
	return s.store.AcknowledgeEmergency(id)
}

// Emergencies 紧急呼叫列表（最新在前）
func (s *NurseService) Emergencies() []domain.Emergency {
	return s.store.Emergencies()
}

func (s *NurseService) handleAcknowledged(e domain.Emergency) {
	s.metrics.ObserveAcknowledgment()
	s.logger.Info("Emergency acknowledged", zap.String("emergency_id", e.ID))
	s.broadcastAsync(broadcast.EventAcknowledged, e)
}

func (s *NurseService) broadcastAsync(kind broadcast.EventKind, e domain.Emergency) {
	msg := broadcast.NewMessage(kind, e)

	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		s.logger.Debug("Service closed, dropping broadcast",
			zap.String("kind", string(kind)),
			zap.String("emergency_id", e.ID),
		)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.broadcaster.Broadcast(context.WithoutCancel(s.ctx), msg)
	}()
}

// SliderRequest 滑动触发：手势参数 + 录制的指针事件 + 紧急呼叫内容
type SliderRequest struct {
	TrackWidth  float64               `json:"track_width"`
	HandleWidth float64               `json:"handle_width"`
	Events      []slider.PointerEvent `json:"events"`
	store.EmergencyRequest
}

// SliderResult 滑动结果；解锁时 Emergency 为触发的记录
type SliderResult struct {
	State     slider.State      `json:"state"`
	Emergency *domain.Emergency `json:"emergency,omitempty"`
}

// SlideToTrigger 回放滑动手势；解锁后等待 settle 延迟并触发紧急呼叫
func (s *NurseService) SlideToTrigger(ctx context.Context, req SliderRequest) (*SliderResult, error) {
	triggered := make(chan domain.Emergency, 1)
	g, err := slider.NewGesture(ctx, slider.Config{
		TrackWidth:  req.TrackWidth,
		HandleWidth: req.HandleWidth,
	}, s.sched, s.haptics, func() {
		triggered <- s.TriggerEmergency(req.EmergencyRequest)
	})
	if err != nil {
		return nil, err
	}

	state, err := g.Replay(ctx, req.Events)
	if err != nil {
		return nil, err
	}
	result := &SliderResult{State: state}
	if !state.Unlocked {
		return result, nil
	}

	select {
	case e := <-triggered:
		result.Emergency = &e
		return result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ---- dashboard ----

// Dashboard 首页汇总
func (s *NurseService) Dashboard() views.Summary {
	return views.BuildSummary(s.store.Tasks(), s.store.Alerts(), s.sched.Now())
}

// Profile 当前护士资料及今日完成数
func (s *NurseService) Profile() views.Profile {
	return views.BuildProfile(s.staff, s.store.Tasks(), s.sched.Now())
}

// ---- remote ----

// SyncFromRemote 拉取远端任务快照替换本地任务
// Nop 后端返回 nil 快照，此时保留本地任务
func (s *NurseService) SyncFromRemote(ctx context.Context) error {
	tasks, err := s.remote.FetchTasks(ctx)
	if err != nil {
		return fmt.Errorf("sync from %s: %w", s.remote.Name(), err)
	}
	if tasks == nil {
		return nil
	}
	accepted := s.store.ReplaceTasks(tasks)
	s.logger.Info("Tasks synced from remote",
		zap.String("backend", s.remote.Name()),
		zap.Int("received", len(tasks)),
		zap.Int("accepted", accepted),
	)
	return nil
}

// WatchRemote 阻塞监听远端变更并同步，直到 ctx 结束
func (s *NurseService) WatchRemote(ctx context.Context) error {
	return s.remote.Watch(ctx, func() {
		if err := s.SyncFromRemote(ctx); err != nil {
			s.logger.Warn("Remote sync failed", zap.Error(err))
		}
	})
}
