package domain

import "errors"

var (
	// NotFound
	ErrTaskNotFound      = errors.New("task not found")
	ErrPatientNotFound   = errors.New("patient not found")
	ErrRoomNotFound      = errors.New("room not found")
	ErrEmergencyNotFound = errors.New("emergency not found")

	// ErrVerificationMismatch 二维码与房间不匹配，可重试
	ErrVerificationMismatch = errors.New("QR code does not match. Please scan the correct room")

	// ErrInvalidTransition 违反任务状态机
	ErrInvalidTransition = errors.New("invalid task transition")

	// ErrMedicationNotPrescribed 给药不在医嘱列表内（StrictMedications 开启时）
	ErrMedicationNotPrescribed = errors.New("medication not prescribed for task")

	// ErrInvalidArgument 请求参数非法（未知状态、未知提醒类型等）
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRemoteUnavailable 远端持久化写入失败（仅记录，不回滚本地状态）
	ErrRemoteUnavailable = errors.New("remote persistence unavailable")
)

// IsNotFound 是否为 NotFound 类错误
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrPatientNotFound) ||
		errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrEmergencyNotFound)
}
