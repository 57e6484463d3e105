package httpapi

import (
	"net/http"

	"wisefido-nurse/internal/service"
	"wisefido-nurse/internal/store"
	"wisefido-nurse/internal/workflow"

	"go.uber.org/zap"
)

// NurseHandler 护士端 API
type NurseHandler struct {
	svc    *service.NurseService
	logger *zap.Logger
}

func NewNurseHandler(svc *service.NurseService, logger *zap.Logger) *NurseHandler {
	return &NurseHandler{svc: svc, logger: logger}
}

// GET /nurse/api/v1/dashboard
func (h *NurseHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.svc.Dashboard()))
}

// GET /nurse/api/v1/profile
func (h *NurseHandler) Profile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.svc.Profile()))
}

// GET /nurse/api/v1/tasks
// params:
// - status? Pending | In Progress | Completed | Cancelled (也接受 in_progress)
func (h *NurseHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.svc.ListTasks(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tasks))
}

// GET /nurse/api/v1/tasks/pending
func (h *NurseHandler) PendingTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.svc.PendingTasks()))
}

// GET /nurse/api/v1/tasks/history
func (h *NurseHandler) History(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.svc.History()))
}

// GET /nurse/api/v1/tasks/history/export
func (h *NurseHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ExportHistory()
	if err != nil {
		h.logger.Error("Failed to export task history", zap.Error(err))
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=task-history.xlsx")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GET /nurse/api/v1/tasks/{id}
func (h *NurseHandler) GetTask(w http.ResponseWriter, r *http.Request, id string) {
	detail, err := h.svc.GetTaskDetail(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(detail))
}

// VerifyRequest 扫码内容；simulated 模式下可为空
type VerifyRequest struct {
	Payload string `json:"payload"`
}

// POST /nurse/api/v1/tasks/{id}/verify
// 阻塞 ScanDelay；客户端断开时放弃验证
func (h *NurseHandler) VerifyRoom(w http.ResponseWriter, r *http.Request, id string) {
	var req VerifyRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	task, err := h.svc.VerifyRoom(r.Context(), id, req.Payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(task))
}

// POST /nurse/api/v1/tasks/{id}/readings
func (h *NurseHandler) RecordReadings(w http.ResponseWriter, r *http.Request, id string) {
	var in workflow.ReadingsInput
	if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	task, err := h.svc.RecordReadings(id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(task))
}

// POST /nurse/api/v1/tasks/{id}/cancel
func (h *NurseHandler) CancelTask(w http.ResponseWriter, r *http.Request, id string) {
	task, err := h.svc.CancelTask(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(task))
}

// GET /nurse/api/v1/alerts
// params:
// - type? All | Emergency | CCTV | IoT | System
// - mark_read? bool (default true)：查看后延迟全部标记已读
func (h *NurseHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	alerts, err := h.svc.ListAlerts(q.Get("type"), parseBool(q.Get("mark_read"), true))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(alerts))
}

// GET /nurse/api/v1/alerts/unread-count
func (h *NurseHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(map[string]int{"unread": h.svc.UnreadAlertsCount()}))
}

// POST /nurse/api/v1/alerts/read
func (h *NurseHandler) MarkAlertsRead(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(map[string]int{"marked": h.svc.MarkAlertsRead()}))
}

// GET /nurse/api/v1/emergencies
func (h *NurseHandler) ListEmergencies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.svc.Emergencies()))
}

// POST /nurse/api/v1/emergencies
func (h *NurseHandler) TriggerEmergency(w http.ResponseWriter, r *http.Request) {
	var req store.EmergencyRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	writeJSON(w, http.StatusCreated, Ok(h.svc.TriggerEmergency(req)))
}

// POST /nurse/api/v1/emergencies/slider
func (h *NurseHandler) SlideToTrigger(w http.ResponseWriter, r *http.Request) {
	var req service.SliderRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	result, err := h.svc.SlideToTrigger(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if result.Emergency != nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, Ok(result))
}

// POST /nurse/api/v1/emergencies/{id}/ack
func (h *NurseHandler) AcknowledgeEmergency(w http.ResponseWriter, r *http.Request, id string) {
	e, err := h.svc.AcknowledgeEmergency(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(e))
}

// POST /nurse/api/v1/sync
func (h *NurseHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SyncFromRemote(r.Context()); err != nil {
		h.logger.Warn("Manual remote sync failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, Fail(err.Error()))
		return
	}
	tasks, _ := h.svc.ListTasks("")
	writeJSON(w, http.StatusOK, Ok(map[string]int{"tasks": len(tasks)}))
}
