package service

import (
	"Vibeshare/internal/api/dto"
	"Vibeshare/internal/model"
	"Vibeshare/internal/pkg/metrics"
	"Vibeshare/internal/pkg/restapi"
	"Vibeshare/internal/store"
	"context"
	log "log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

const (
	actionLike          = "like"
	actionSave          = "save"
	actionComment       = "comment"
	actionDeleteComment = "delete_comment"
	actionFollow        = "follow"

	likeNotificationMessage = "liked your post"
)

// InteractionService 帖子交互与关注的乐观更新：先改本地，再调后端，失败时精确回滚
type InteractionService interface {
	Interaction(postID int64, base model.InteractionBaseline) model.Interaction
	ToggleLike(ctx context.Context, postID int64, base model.InteractionBaseline) (model.Interaction, error)
	ToggleSave(ctx context.Context, postID int64, base model.InteractionBaseline) (model.Interaction, error)
	AddComment(ctx context.Context, postID int64, text string, base model.InteractionBaseline) (*dto.CommentResultDTO, error)
	DeleteComment(ctx context.Context, postID, commentID int64, base model.InteractionBaseline) (model.Interaction, error)
	ToggleFollow(ctx context.Context, userID int64, following bool) (*dto.FollowStateDTO, error)
	ResyncBookmarks(ctx context.Context) (int, error)
	Close()
}

// SelfProvider 当前登录用户
type SelfProvider interface {
	Self() model.User
}

type interactionServiceImpl struct {
	postAPI         restapi.PostActionAPI
	userAPI         restapi.UserAPI
	notificationAPI restapi.NotificationAPI
	interactions    *store.InteractionStore
	self            SelfProvider
	serialize       bool
	posts           *keyedLocks
	users           *keyedLocks
	wg              sync.WaitGroup
}

func NewInteractionService(
	postAPI restapi.PostActionAPI,
	userAPI restapi.UserAPI,
	notificationAPI restapi.NotificationAPI,
	interactions *store.InteractionStore,
	self SelfProvider,
	serialize bool,
) InteractionService {
	return &interactionServiceImpl{
		postAPI:         postAPI,
		userAPI:         userAPI,
		notificationAPI: notificationAPI,
		interactions:    interactions,
		self:            self,
		serialize:       serialize,
		posts:           newKeyedLocks(),
		users:           newKeyedLocks(),
	}
}

func (s *interactionServiceImpl) Interaction(postID int64, base model.InteractionBaseline) model.Interaction {
	return s.interactions.Get(postID, base)
}

func (s *interactionServiceImpl) lock(ctx context.Context, locks *keyedLocks, key int64) (func(), error) {
	if !s.serialize {
		return func() {}, nil
	}
	return locks.Acquire(ctx, key)
}

// mutate 乐观更新的通用流程：应用变更，调用后端；失败时用 restore 只恢复本动作涉及的字段，
// 成功时 call 可返回对账函数，同样只改动本动作的字段
func (s *interactionServiceImpl) mutate(
	ctx context.Context,
	action string,
	postID int64,
	base model.InteractionBaseline,
	apply func(*model.Interaction),
	restore func(cur *model.Interaction, prev model.Interaction),
	call func(ctx context.Context, next model.Interaction) (func(*model.Interaction), error),
) (model.Interaction, error) {
	if postID <= 0 {
		return model.Interaction{}, ErrParamInvalid
	}
	release, err := s.lock(ctx, s.posts, postID)
	if err != nil {
		return model.Interaction{}, err
	}
	defer release()

	prev, next := s.interactions.Update(postID, base, apply)

	reconcile, err := call(ctx, next)
	if err != nil {
		cur := s.interactions.Settle(postID, func(r *model.Interaction) { restore(r, prev) })
		metrics.IncMutation(action, metrics.MutationRolledBack)
		log.WarnContext(ctx, "乐观更新失败，已回滚", "action", action, "post_id", postID, "err", err)
		if restapi.IsStatus(err, http.StatusNotFound) {
			return cur, ErrPostNotFound
		}
		return cur, wrapErr(ErrActionFailed, err)
	}

	rec := s.interactions.Settle(postID, reconcile)
	metrics.IncMutation(action, metrics.MutationCommitted)
	return rec, nil
}

func restoreLike(r *model.Interaction, prev model.Interaction) {
	r.IsLiked = prev.IsLiked
	r.LikesCount = prev.LikesCount
}

func restoreSave(r *model.Interaction, prev model.Interaction) {
	r.IsSaved = prev.IsSaved
}

func restoreComments(r *model.Interaction, prev model.Interaction) {
	r.CommentsCount = prev.CommentsCount
}

// ToggleLike 点赞/取消点赞，成功后以服务端返回的点赞状态与计数为准
func (s *interactionServiceImpl) ToggleLike(ctx context.Context, postID int64, base model.InteractionBaseline) (model.Interaction, error) {
	var liked bool
	rec, err := s.mutate(ctx, actionLike, postID, base,
		func(r *model.Interaction) {
			liked = !r.IsLiked
			r.IsLiked = liked
			if liked {
				r.LikesCount++
			} else if r.LikesCount > 0 {
				r.LikesCount--
			}
		},
		restoreLike,
		func(ctx context.Context, next model.Interaction) (func(*model.Interaction), error) {
			var post *dto.PostDTO
			var err error
			if next.IsLiked {
				post, err = s.postAPI.LikePost(ctx, postID)
			} else {
				post, err = s.postAPI.UnlikePost(ctx, postID)
			}
			if err != nil || post == nil {
				return nil, err
			}
			return func(r *model.Interaction) {
				if post.Liked != nil {
					r.IsLiked = *post.Liked
				}
				r.LikesCount = post.LikeCount
			}, nil
		},
	)
	if err != nil {
		return rec, err
	}

	if liked {
		s.notifyLike(ctx, postID, base.AuthorID)
	}
	return rec, nil
}

// notifyLike 给帖子作者发送点赞通知，不等待结果，失败只记录日志
func (s *interactionServiceImpl) notifyLike(ctx context.Context, postID, authorID int64) {
	me := s.self.Self()
	if authorID == 0 || me.ID == 0 || authorID == me.ID {
		return
	}

	req := &dto.NotificationCreateDTO{
		RecipientID: authorID,
		ActorID:     me.ID,
		Type:        string(model.NotificationLike),
		Message:     likeNotificationMessage,
		SourceID:    strconv.FormatInt(postID, 10),
	}
	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.notificationAPI.CreateNotification(bg, req); err != nil {
			log.WarnContext(bg, "点赞通知发送失败", "post_id", postID, "recipient_id", authorID, "err", err)
		}
	}()
}

// ToggleSave 收藏/取消收藏，成功后保持本地状态，不与服务端对账
func (s *interactionServiceImpl) ToggleSave(ctx context.Context, postID int64, base model.InteractionBaseline) (model.Interaction, error) {
	return s.mutate(ctx, actionSave, postID, base,
		func(r *model.Interaction) { r.IsSaved = !r.IsSaved },
		restoreSave,
		func(ctx context.Context, next model.Interaction) (func(*model.Interaction), error) {
			if next.IsSaved {
				return nil, s.postAPI.AddBookmark(ctx, postID)
			}
			return nil, s.postAPI.RemoveBookmark(ctx, postID)
		},
	)
}

// AddComment 评论数先 +1，创建失败时回滚
func (s *interactionServiceImpl) AddComment(ctx context.Context, postID int64, text string, base model.InteractionBaseline) (*dto.CommentResultDTO, error) {
	text = strings.TrimSpace(text)
	me := s.self.Self()
	if text == "" {
		return nil, ErrParamInvalid
	}
	if me.ID == 0 {
		return nil, ErrSessionNotReady
	}

	var comment *dto.CommentDTO
	rec, err := s.mutate(ctx, actionComment, postID, base,
		func(r *model.Interaction) { r.CommentsCount++ },
		restoreComments,
		func(ctx context.Context, _ model.Interaction) (func(*model.Interaction), error) {
			var err error
			comment, err = s.postAPI.AddComment(ctx, &dto.CommentCreateDTO{PostID: postID, UserID: me.ID, Text: text})
			return nil, err
		},
	)
	if err != nil {
		return nil, err
	}

	if comment != nil && comment.User.ID == 0 {
		comment.User = dto.CommentAuthorDTO{ID: me.ID, Username: me.Username, ProfilePic: me.ProfilePic}
	}
	return &dto.CommentResultDTO{Comment: comment, Interaction: rec}, nil
}

// DeleteComment 评论数先 -1（不小于 0），删除失败时回滚
func (s *interactionServiceImpl) DeleteComment(ctx context.Context, postID, commentID int64, base model.InteractionBaseline) (model.Interaction, error) {
	me := s.self.Self()
	if commentID <= 0 {
		return model.Interaction{}, ErrParamInvalid
	}
	if me.ID == 0 {
		return model.Interaction{}, ErrSessionNotReady
	}
	return s.mutate(ctx, actionDeleteComment, postID, base,
		func(r *model.Interaction) {
			if r.CommentsCount > 0 {
				r.CommentsCount--
			}
		},
		restoreComments,
		func(ctx context.Context, _ model.Interaction) (func(*model.Interaction), error) {
			return nil, s.postAPI.DeleteComment(ctx, commentID, me.ID)
		},
	)
}

// ToggleFollow 关注/取关，following 为界面当前所见状态（无本地记录时作为基线）
func (s *interactionServiceImpl) ToggleFollow(ctx context.Context, userID int64, following bool) (*dto.FollowStateDTO, error) {
	if userID <= 0 {
		return nil, ErrParamInvalid
	}
	if userID == s.self.Self().ID {
		return nil, ErrTargetUserInvalid
	}
	release, err := s.lock(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	prev, next := s.interactions.ToggleFollow(userID, following)
	if next {
		err = s.userAPI.Follow(ctx, userID)
	} else {
		err = s.userAPI.Unfollow(ctx, userID)
	}
	if err != nil {
		s.interactions.SetFollow(userID, prev)
		metrics.IncMutation(actionFollow, metrics.MutationRolledBack)
		log.WarnContext(ctx, "关注状态更新失败，已回滚", "user_id", userID, "err", err)
		return &dto.FollowStateDTO{UserID: userID, Following: prev}, wrapErr(ErrActionFailed, err)
	}
	metrics.IncMutation(actionFollow, metrics.MutationCommitted)
	return &dto.FollowStateDTO{UserID: userID, Following: next}, nil
}

// ResyncBookmarks 用服务端收藏列表校正账本中的收藏状态
// 拉取前记下每条记录的变更代数，拉取期间被改动或仍有变更在途的记录不做校正
func (s *interactionServiceImpl) ResyncBookmarks(ctx context.Context) (int, error) {
	gens := s.interactions.Generations()
	if len(gens) == 0 {
		return 0, nil
	}

	bookmarks, err := s.postAPI.GetBookmarks(ctx)
	if err != nil {
		return 0, wrapErr(ErrFetchFailed, err)
	}
	saved := make(map[int64]struct{}, len(bookmarks))
	for _, b := range bookmarks {
		saved[b.PostID] = struct{}{}
	}

	changed := 0
	for id, gen := range gens {
		release, ok := s.posts.TryAcquire(id)
		if !ok {
			continue
		}
		_, isSaved := saved[id]
		if s.interactions.ReconcileSaved(id, isSaved, gen) {
			changed++
		}
		release()
	}
	if changed > 0 {
		log.InfoContext(ctx, "收藏状态已与服务端对齐", "changed", changed)
	}
	return changed, nil
}

// Close 等待在途的点赞通知
func (s *interactionServiceImpl) Close() {
	s.wg.Wait()
}
