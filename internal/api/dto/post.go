package dto

import "Vibeshare/internal/model"

// PostDTO 后端帖子（点赞/取消点赞也返回该结构）
type PostDTO struct {
	ID        int64     `json:"id" validate:"required"`
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	VideoURL  string    `json:"videoUrl,omitempty"`
	Type      string    `json:"type"`
	ViewCount int64     `json:"viewCount"`
	CreatedAt LocalTime `json:"createdAt"`
	LikeCount int64     `json:"likeCount"`
	Liked     *bool     `json:"liked"`
	Saved     *bool     `json:"saved"`
	Followed  *bool     `json:"followed"`
}

// BookmarkDTO 收藏记录
type BookmarkDTO struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"postId"`
	UserID    int64     `json:"userId"`
	CreatedAt LocalTime `json:"createdAt"`
}

// CommentAuthorDTO 评论作者
type CommentAuthorDTO struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	ProfilePic string `json:"profilePic,omitempty"`
}

// CommentDTO 评论
type CommentDTO struct {
	ID        int64            `json:"id"`
	Text      string           `json:"text"`
	CreatedAt LocalTime        `json:"createdAt"`
	User      CommentAuthorDTO `json:"user"`
}

// CommentCreateDTO 创建评论请求（后端）
type CommentCreateDTO struct {
	PostID int64  `json:"postId" validate:"required"`
	UserID int64  `json:"userId" validate:"required"`
	Text   string `json:"text" validate:"required,max=1000"`
}

// InteractionReq 本地 API 交互请求，携带帖子当前的服务端基线
type InteractionReq struct {
	Liked        bool  `json:"liked" form:"liked"`
	Saved        bool  `json:"saved" form:"saved"`
	LikeCount    int64 `json:"likeCount" form:"likeCount" binding:"min=0"`
	CommentCount int64 `json:"commentCount" form:"commentCount" binding:"min=0"`
	AuthorID     int64 `json:"authorId" form:"authorId"`
}

func (r *InteractionReq) Baseline() model.InteractionBaseline {
	return model.InteractionBaseline{
		Liked:        r.Liked,
		Saved:        r.Saved,
		LikeCount:    r.LikeCount,
		CommentCount: r.CommentCount,
		AuthorID:     r.AuthorID,
	}
}

// CommentReq 本地 API 评论请求
type CommentReq struct {
	InteractionReq
	Text string `json:"text" binding:"required,max=1000"`
}

// CommentResultDTO 评论后的交互状态
type CommentResultDTO struct {
	Comment     *CommentDTO `json:"comment,omitempty"`
	Interaction any         `json:"interaction"`
}
