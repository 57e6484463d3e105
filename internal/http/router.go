package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// APIPrefix 护士端 API 前缀
const APIPrefix = "/nurse/api/v1"

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（用于 /metrics）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoutes /healthz 与 /metrics
func (r *Router) RegisterHealthRoutes(metrics http.Handler) {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
	if metrics != nil {
		r.HandleHandler("/metrics", metrics)
	}
}

func only(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterNurseRoutes 注册任务 / 提醒 / 紧急呼叫路由
func (r *Router) RegisterNurseRoutes(h *NurseHandler) {
	r.Handle(APIPrefix+"/dashboard", only(http.MethodGet, h.Dashboard))
	r.Handle(APIPrefix+"/profile", only(http.MethodGet, h.Profile))

	// tasks
	r.Handle(APIPrefix+"/tasks", only(http.MethodGet, h.ListTasks))
	r.Handle(APIPrefix+"/tasks/pending", only(http.MethodGet, h.PendingTasks))
	r.Handle(APIPrefix+"/tasks/history", only(http.MethodGet, h.History))
	r.Handle(APIPrefix+"/tasks/history/export", only(http.MethodGet, h.ExportHistory))

	// tasks/{id}[/verify|/readings|/cancel]
	r.Handle(APIPrefix+"/tasks/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, APIPrefix+"/tasks/")
		id, action, _ := strings.Cut(rest, "/")
		if id == "" || strings.Contains(action, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		method := http.MethodPost
		var handle func(http.ResponseWriter, *http.Request, string)
		switch action {
		case "":
			method, handle = http.MethodGet, h.GetTask
		case "verify":
			handle = h.VerifyRoom
		case "readings":
			handle = h.RecordReadings
		case "cancel":
			handle = h.CancelTask
		default:
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handle(w, req, id)
	})

	// alerts
	r.Handle(APIPrefix+"/alerts", only(http.MethodGet, h.ListAlerts))
	r.Handle(APIPrefix+"/alerts/unread-count", only(http.MethodGet, h.UnreadCount))
	r.Handle(APIPrefix+"/alerts/read", only(http.MethodPost, h.MarkAlertsRead))

	// emergencies
	r.Handle(APIPrefix+"/emergencies", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.ListEmergencies(w, req)
		case http.MethodPost:
			h.TriggerEmergency(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	r.Handle(APIPrefix+"/emergencies/slider", only(http.MethodPost, h.SlideToTrigger))
	r.Handle(APIPrefix+"/emergencies/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, APIPrefix+"/emergencies/")
		id, ok := strings.CutSuffix(rest, "/ack")
		if !ok || id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.AcknowledgeEmergency(w, req, id)
	})

	// remote
	r.Handle(APIPrefix+"/sync", only(http.MethodPost, h.Sync))
}
