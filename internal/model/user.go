package model

// User 会话参与者 / 当前登录用户
type User struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Name       string `json:"name,omitempty"`
	ProfilePic string `json:"profilePic,omitempty"`
}
