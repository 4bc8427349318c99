package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/repository"
	"github.com/asksenior/backend/internal/storage"
)

const postImagePrefix = "posts"

type PostService struct {
	repo  *repository.Repository
	store storage.ObjectStore
}

// PostQuery selects listable posts. Banned posts and posts in banned
// communities are never returned.
type PostQuery struct {
	UserID      string
	TopicID     string
	CommunityID string
	Keyword     string
	ViewerID    string
	Page        int
	PageSize    int
}

func (s *PostService) List(ctx context.Context, q PostQuery) ([]*models.PostView, error) {
	page, size := Paging(q.Page, q.PageSize)
	window := repository.PageWindow(page, size)
	posts, err := s.repo.FindPosts(ctx, repository.PostCriteria{
		UserID:        q.UserID,
		TopicID:       q.TopicID,
		CommunityID:   q.CommunityID,
		TitleContains: q.Keyword,
		ListableOnly:  true,
		Window:        &window,
	})
	if err != nil {
		return nil, err
	}
	return s.views(ctx, posts, q.ViewerID)
}

// Get returns one listable post.
func (s *PostService) Get(ctx context.Context, id, viewerID string) (*models.PostView, error) {
	posts, err := s.repo.FindPosts(ctx, repository.PostCriteria{IDs: []string{id}, ListableOnly: true})
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, models.NewNotFoundError("post", id)
	}
	views, err := s.views(ctx, posts, viewerID)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// view returns a post whether or not it is listable, for its author.
func (s *PostService) view(ctx context.Context, id, viewerID string) (*models.PostView, error) {
	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []models.Post{*post}, viewerID)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// views enriches posts in their given order. Only votes on the post itself
// count towards its tallies.
func (s *PostService) views(ctx context.Context, posts []models.Post, viewerID string) ([]*models.PostView, error) {
	if len(posts) == 0 {
		return []*models.PostView{}, nil
	}

	ids := make([]string, 0, len(posts))
	var userIDs, topicIDs, communityIDs []string
	for _, p := range posts {
		ids = append(ids, p.ID)
		userIDs = append(userIDs, p.UserID)
		topicIDs = append(topicIDs, p.TopicID)
		if p.CommunityID != nil {
			communityIDs = append(communityIDs, *p.CommunityID)
		}
	}

	var (
		users       map[string]models.User
		topics      map[string]models.Topic
		communities []models.Community
		images      map[string][]models.PostImage
		tallies     map[string]repository.Tally
		comments    map[string]int64
		mine        map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = s.repo.UsersByIDs(gctx, uniq(userIDs))
		return err
	})
	g.Go(func() (err error) {
		topics, err = s.repo.TopicsByIDs(gctx, uniq(topicIDs))
		return err
	})
	g.Go(func() (err error) {
		communities, err = s.repo.FindCommunities(gctx, repository.CommunityCriteria{IDs: uniq(communityIDs)})
		return err
	})
	g.Go(func() (err error) {
		images, err = s.repo.PostImages(gctx, ids)
		return err
	})
	g.Go(func() (err error) {
		tallies, err = s.repo.TallyVotes(gctx, models.TargetPost, ids)
		return err
	})
	g.Go(func() (err error) {
		comments, err = s.repo.CountComments(gctx, ids)
		return err
	})
	g.Go(func() (err error) {
		mine, err = s.repo.ViewerVotes(gctx, viewerID, models.TargetPost, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	communityNames := make(map[string]string, len(communities))
	for _, c := range communities {
		communityNames[c.ID] = c.Name
	}

	out := make([]*models.PostView, 0, len(posts))
	for _, p := range posts {
		author := users[p.UserID]
		tally := tallies[p.ID]
		v := &models.PostView{
			ID:            p.ID,
			UserID:        p.UserID,
			UserName:      author.Name,
			AvatarURL:     author.AvatarURL,
			TopicID:       p.TopicID,
			TopicName:     topics[p.TopicID].Name,
			CommunityID:   p.CommunityID,
			Title:         p.Title,
			Text:          p.Text,
			Images:        imageRefs(images[p.ID]),
			TotalUpvote:   tally.Up,
			TotalDownvote: tally.Down,
			TotalComment:  comments[p.ID],
			SelfVote:      boolPtr(mine, p.ID),
			CreatedAt:     p.CreatedAt,
		}
		if p.CommunityID != nil {
			if name, ok := communityNames[*p.CommunityID]; ok {
				v.CommunityName = &name
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func imageRefs(images []models.PostImage) []models.ImageRef {
	refs := make([]models.ImageRef, 0, len(images))
	for _, img := range images {
		refs = append(refs, models.ImageRef{ImageID: img.ImageID, ImageURL: img.ImageURL})
	}
	return refs
}

// placement validates the topic and community a post is filed under.
func (s *PostService) placement(topicID, communityID string) rule {
	return func(ctx context.Context) error {
		if err := topicsExist(s.repo, "topic_id", []string{topicID})(ctx); err != nil {
			return err
		}
		if communityID == "" {
			return nil
		}
		community, err := s.repo.GetCommunity(ctx, communityID)
		if models.IsKind(err, models.KindNotFound) {
			return models.NewValidationError("community_id", "community does not exist")
		}
		if err != nil {
			return err
		}
		return communityOpen(community)(ctx)
	}
}

// storeImages uploads files and returns their rows for postID, starting at
// position first. On failure the objects already stored are removed.
func (s *PostService) storeImages(ctx context.Context, postID string, first int, files []Upload) ([]models.PostImage, error) {
	for _, f := range files {
		if _, err := storage.ValidateImage(f.Field, f.Data); err != nil {
			return nil, err
		}
	}
	rows := make([]models.PostImage, 0, len(files))
	for i, f := range files {
		url, path, err := uploadImage(ctx, s.store, postImagePrefix, f)
		if err != nil {
			discard(ctx, s.store, imagePaths(rows))
			return nil, err
		}
		rows = append(rows, models.PostImage{
			ImageID:  uuid.NewString(),
			PostID:   postID,
			ImageURL: url,
			Path:     path,
			Position: first + i,
		})
	}
	return rows, nil
}

func imagePaths(images []models.PostImage) []string {
	paths := make([]string, 0, len(images))
	for _, img := range images {
		paths = append(paths, img.Path)
	}
	return paths
}

// Create files a new post with its images.
func (s *PostService) Create(ctx context.Context, userID string, req models.CreatePostRequest, files []Upload) (*models.PostView, error) {
	actor, err := loadActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	communityID := Clean(req.CommunityID)
	if err := check(ctx,
		notBanned(actor, "post"),
		required("title", req.Title),
		required("topic_id", req.TopicID),
		s.placement(req.TopicID, communityID),
	); err != nil {
		return nil, err
	}

	post := models.Post{
		ID:        uuid.NewString(),
		UserID:    actor.ID,
		TopicID:   req.TopicID,
		Title:     strings.TrimSpace(req.Title),
		Text:      req.Text,
		CreatedAt: time.Now().UTC(),
	}
	if communityID != "" {
		post.CommunityID = &communityID
	}

	images, err := s.storeImages(ctx, post.ID, 0, files)
	if err != nil {
		return nil, err
	}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.CreatePost(ctx, &post); err != nil {
			return err
		}
		return tx.AddPostImages(ctx, images)
	})
	if err != nil {
		discard(ctx, s.store, imagePaths(images))
		return nil, err
	}
	return s.view(ctx, post.ID, actor.ID)
}

// Edit changes the caller's own post. Listed image ids are removed and new
// files appended after the remaining images.
func (s *PostService) Edit(ctx context.Context, userID, postID string, req models.EditPostRequest, files []Upload) (*models.PostView, error) {
	post, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewForbiddenError("you can only edit your own post")
	}

	fields := map[string]interface{}{}
	topicID, communityID := post.TopicID, ""
	if post.CommunityID != nil {
		communityID = *post.CommunityID
	}
	if req.Title != nil {
		if err := required("title", *req.Title)(ctx); err != nil {
			return nil, err
		}
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Text != nil {
		fields["text"] = *req.Text
	}
	if req.TopicID != nil {
		topicID = *req.TopicID
		fields["topic_id"] = topicID
	}
	if req.CommunityID != nil {
		communityID = Clean(*req.CommunityID)
		if communityID == "" {
			fields["community_id"] = nil
		} else {
			fields["community_id"] = communityID
		}
	}
	if req.TopicID != nil || req.CommunityID != nil {
		if err := s.placement(topicID, communityID)(ctx); err != nil {
			return nil, err
		}
	}

	existing, err := s.repo.PostImages(ctx, []string{post.ID})
	if err != nil {
		return nil, err
	}
	next := 0
	for _, img := range existing[post.ID] {
		if img.Position >= next {
			next = img.Position + 1
		}
	}
	added, err := s.storeImages(ctx, post.ID, next, files)
	if err != nil {
		return nil, err
	}

	var removed []models.PostImage
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.UpdatePost(ctx, post.ID, fields); err != nil {
			return err
		}
		if removed, err = tx.DeletePostImages(ctx, post.ID, uniq(req.RemoveImageIDs)); err != nil {
			return err
		}
		return tx.AddPostImages(ctx, added)
	})
	if err != nil {
		discard(ctx, s.store, imagePaths(added))
		return nil, err
	}
	discard(ctx, s.store, imagePaths(removed))
	return s.view(ctx, post.ID, userID)
}

// Delete removes a post with its comments, votes and images. The author
// or a platform admin may delete.
func (s *PostService) Delete(ctx context.Context, userID, postID string) error {
	post, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		actor, err := loadActor(ctx, s.repo, userID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() {
			return models.NewForbiddenError("you can only delete your own post")
		}
	}

	images, err := s.repo.PostImages(ctx, []string{post.ID})
	if err != nil {
		return err
	}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		return tx.DeletePost(ctx, post.ID)
	})
	if err != nil {
		return err
	}
	discard(ctx, s.store, imagePaths(images[post.ID]))
	return nil
}
