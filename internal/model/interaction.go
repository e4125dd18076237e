package model

// Interaction 帖子的本地交互状态（点赞/收藏/评论数）
// 首次变更时以服务端数据为基线懒创建，之后在本会话内以本地为准
type Interaction struct {
	PostID        int64 `json:"postId"`
	IsLiked       bool  `json:"isLiked"`
	IsSaved       bool  `json:"isSaved"`
	LikesCount    int64 `json:"likesCount"`
	CommentsCount int64 `json:"commentsCount"`
}

// InteractionBaseline 服务端下发的帖子初始状态
type InteractionBaseline struct {
	Liked        bool  `json:"liked"`
	Saved        bool  `json:"saved"`
	LikeCount    int64 `json:"likeCount"`
	CommentCount int64 `json:"commentCount"`
	AuthorID     int64 `json:"authorId"`
}

// NewInteraction 由基线构造交互记录
func NewInteraction(postID int64, base InteractionBaseline) Interaction {
	return Interaction{
		PostID:        postID,
		IsLiked:       base.Liked,
		IsSaved:       base.Saved,
		LikesCount:    base.LikeCount,
		CommentsCount: base.CommentCount,
	}
}
