package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"time"

	"wisefido-nurse/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultPollInterval REST 后端轮询变更的间隔
const DefaultPollInterval = 30 * time.Second

// RESTConfig PostgREST 风格（Supabase 兼容）的 REST 后端配置
type RESTConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

// RESTRemote 通过 HTTP 访问远端表
type RESTRemote struct {
	httpClient   *resty.Client
	triggeredBy  string
	pollInterval time.Duration
	logger       *zap.Logger
}

var _ Remote = (*RESTRemote)(nil)

// NewRESTRemote 创建 REST 后端
func NewRESTRemote(cfg RESTConfig, triggeredBy string, logger *zap.Logger) *RESTRemote {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("apikey", cfg.APIKey).SetAuthToken(cfg.APIKey)
	}

	return &RESTRemote{
		httpClient:   client,
		triggeredBy:  triggeredBy,
		pollInterval: poll,
		logger:       logger,
	}
}

// Name 后端名称
func (r *RESTRemote) Name() string { return "rest" }

// SaveTask upsert 任务（Prefer: resolution=merge-duplicates）
func (r *RESTRemote) SaveTask(ctx context.Context, task domain.Task) error {
	resp, err := r.httpClient.R().
		SetContext(ctx).
		SetHeader("Prefer", "resolution=merge-duplicates,return=minimal").
		SetBody([]TaskRow{TaskRowFromDomain(task)}).
		Post("/tasks")
	return checkResponse(resp, err, "save task "+task.ID)
}

// InsertEmergency 写入紧急呼叫
func (r *RESTRemote) InsertEmergency(ctx context.Context, e domain.Emergency) error {
	resp, err := r.httpClient.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody([]EmergencyRow{EmergencyRowFromDomain(e, r.triggeredBy)}).
		Post("/emergencies")
	return checkResponse(resp, err, "insert emergency "+e.ID)
}

// FetchTasks 拉取全部任务（最新创建在前）
func (r *RESTRemote) FetchTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.fetchRows(ctx)
	if err != nil {
		return nil, err
	}
	tasks, errs := rowsToTasks(rows)
	for _, e := range errs {
		r.logger.Warn("Skipping remote task", zap.Error(e))
	}
	return tasks, nil
}

func (r *RESTRemote) fetchRows(ctx context.Context) ([]TaskRow, error) {
	var rows []TaskRow
	resp, err := r.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select": "*",
			"order":  "created_at.desc",
		}).
		SetResult(&rows).
		Get("/tasks")
	if err := checkResponse(resp, err, "fetch tasks"); err != nil {
		return nil, err
	}
	return rows, nil
}

// Watch 轮询远端；快照指纹变化时调用 onChange
func (r *RESTRemote) Watch(ctx context.Context, onChange func()) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	var last uint64
	first := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rows, err := r.fetchRows(ctx)
			if err != nil {
				r.logger.Warn("Remote poll failed", zap.Error(err))
				continue
			}
			fp := fingerprint(rows)
			if first || fp != last {
				first = false
				last = fp
				onChange()
			}
		}
	}
}

func fingerprint(rows []TaskRow) uint64 {
	h := fnv.New64a()
	b, _ := json.Marshal(rows)
	_, _ = h.Write(b)
	return h.Sum64()
}

func checkResponse(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrRemoteUnavailable, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("%s: %w: status %d: %s", op, domain.ErrRemoteUnavailable, resp.StatusCode(), resp.String())
	}
	return nil
}
