package dto

// UserDTO 后端用户信息
type UserDTO struct {
	ID             int64     `json:"id" validate:"required"`
	Name           string    `json:"name"`
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	Bio            string    `json:"bio,omitempty"`
	ProfilePic     string    `json:"profilePic,omitempty"`
	IsFollowing    bool      `json:"isFollowing"`
	FollowersCount int64     `json:"followersCount"`
	FollowingCount int64     `json:"followingCount"`
	PostsCount     int64     `json:"postsCount"`
	IsOnline       bool      `json:"isOnline"`
	LastSeen       LocalTime `json:"lastSeen"`
}

// FollowReq 本地 API 关注/取关请求
type FollowReq struct {
	Following *bool `json:"following"` // 当前是否已关注（UI 所见状态），为空时默认未关注
}

// FollowStateDTO 关注状态
type FollowStateDTO struct {
	UserID    int64 `json:"userId"`
	Following bool  `json:"following"`
}
