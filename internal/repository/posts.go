package repository

import (
	"context"

	"github.com/asksenior/backend/internal/models"
)

// PostCriteria narrows FindPosts. Zero fields do not filter.
type PostCriteria struct {
	IDs         []string
	UserID      string
	TopicID     string
	CommunityID string
	// TitleContains matches a case-insensitive substring of the title.
	TitleContains string
	// ListableOnly hides banned posts and posts in banned communities.
	ListableOnly bool
	Window       *Window
}

// FindPosts returns matching posts, newest first.
func (r *Repository) FindPosts(ctx context.Context, c PostCriteria) ([]models.Post, error) {
	q := r.conn(ctx).Model(&models.Post{})
	if c.IDs != nil {
		if len(c.IDs) == 0 {
			return []models.Post{}, nil
		}
		q = q.Where("posts.id IN ?", c.IDs)
	}
	if c.UserID != "" {
		q = q.Where("posts.user_id = ?", c.UserID)
	}
	if c.TopicID != "" {
		q = q.Where("posts.topic_id = ?", c.TopicID)
	}
	if c.CommunityID != "" {
		q = q.Where("posts.community_id = ?", c.CommunityID)
	}
	if c.TitleContains != "" {
		q = q.Where(likeClause("posts.title"), likePattern(c.TitleContains))
	}
	if c.ListableOnly {
		q = q.Where("posts.is_banned = ?", false).
			Where("(posts.community_id IS NULL OR EXISTS (SELECT 1 FROM communities WHERE communities.id = posts.community_id AND communities.is_banned = ?))", false)
	}
	q = q.Order("posts.created_at DESC").Order("posts.id DESC")
	if c.Window != nil {
		q = c.Window.apply(q)
	}

	var posts []models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, translate("load posts", err)
	}
	return posts, nil
}

func (r *Repository) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := first(r.conn(ctx).Where("id = ?", id), &post, "post", id); err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *Repository) CreatePost(ctx context.Context, post *models.Post) error {
	return translate("create post", r.conn(ctx).Create(post).Error)
}

func (r *Repository) UpdatePost(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.conn(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate("update post", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("post", id)
	}
	return nil
}

func (r *Repository) SetPostBanned(ctx context.Context, id string, banned bool) error {
	return r.UpdatePost(ctx, id, map[string]interface{}{"is_banned": banned})
}

// DeletePost removes a post with its images, comments and all votes on
// either. Call it inside Transaction.
func (r *Repository) DeletePost(ctx context.Context, id string) error {
	q := r.conn(ctx)
	if err := q.Where("post_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
		return translate("delete post votes", err)
	}
	if err := q.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
		return translate("delete post comments", err)
	}
	if err := q.Where("post_id = ?", id).Delete(&models.PostImage{}).Error; err != nil {
		return translate("delete post images", err)
	}
	res := q.Where("id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return translate("delete post", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("post", id)
	}
	return nil
}

// PostImages returns the images of the given posts in position order, keyed by post id.
func (r *Repository) PostImages(ctx context.Context, postIDs []string) (map[string][]models.PostImage, error) {
	out := make(map[string][]models.PostImage, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var images []models.PostImage
	err := r.conn(ctx).Where("post_id IN ?", postIDs).
		Order("position ASC").Order("created_at ASC").
		Find(&images).Error
	if err != nil {
		return nil, translate("load post images", err)
	}
	for _, img := range images {
		out[img.PostID] = append(out[img.PostID], img)
	}
	return out, nil
}

func (r *Repository) AddPostImages(ctx context.Context, images []models.PostImage) error {
	if len(images) == 0 {
		return nil
	}
	return translate("save post images", r.conn(ctx).Create(&images).Error)
}

// DeletePostImages removes the listed images of a post and returns the rows
// that were removed. Ids belonging to other posts are ignored.
func (r *Repository) DeletePostImages(ctx context.Context, postID string, imageIDs []string) ([]models.PostImage, error) {
	if len(imageIDs) == 0 {
		return nil, nil
	}
	q := r.conn(ctx)
	var images []models.PostImage
	if err := q.Where("post_id = ? AND image_id IN ?", postID, imageIDs).Find(&images).Error; err != nil {
		return nil, translate("load post images", err)
	}
	if len(images) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.ImageID)
	}
	if err := q.Where("image_id IN ?", ids).Delete(&models.PostImage{}).Error; err != nil {
		return nil, translate("delete post images", err)
	}
	return images, nil
}

// CountComments returns comment counts keyed by post id.
func (r *Repository) CountComments(ctx context.Context, postIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		PostID string
		Total  int64
	}
	err := r.conn(ctx).Model(&models.Comment{}).
		Select("post_id, COUNT(*) AS total").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate("count comments", err)
	}
	for _, row := range rows {
		out[row.PostID] = row.Total
	}
	return out, nil
}
