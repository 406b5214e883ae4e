package utils

func NewTrue() *bool {
	b := true
	return &b
}
