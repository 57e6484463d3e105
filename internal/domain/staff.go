package domain

// Staff 当前登录的护士
type Staff struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Role       string `json:"role" yaml:"role"`
	Department string `json:"department" yaml:"department"`
	Shift      string `json:"shift" yaml:"shift"`
}
