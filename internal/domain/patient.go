package domain

// Gender 性别
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Patient 病人
// RoomNumber 是房间号的冗余副本，不是 Room 引用
type Patient struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Age        int    `json:"age"`
	Gender     Gender `json:"gender"`
	Condition  string `json:"condition"`
	RoomNumber string `json:"room_number"`
}

// Room 病房；QRCodeValue 为房间二维码内容
type Room struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	QRCodeValue string `json:"qr_code_value"`
}
