package service

import (
	"context"
	"strings"
	"time"

	"github.com/asksenior/backend/internal/auth"
	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/repository"
	"github.com/asksenior/backend/internal/storage"
)

const profileImagePrefix = "profiles"

type UserService struct {
	repo  *repository.Repository
	store storage.ObjectStore
}

// ProfileImages are the optional avatar and banner uploads of a profile form.
type ProfileImages struct {
	Avatar *Upload
	Banner *Upload
}

// CreateProfile stores the profile of a newly signed up identity with the
// topics it declared interest in.
func (s *UserService) CreateProfile(ctx context.Context, id auth.Identity, req models.CreateProfileRequest, images ProfileImages) (*models.ProfileView, error) {
	preferences := uniq(req.Preferences)
	if err := check(ctx,
		required("name", req.Name),
		topicsExist(s.repo, "preference", preferences),
	); err != nil {
		return nil, err
	}
	_, err := s.repo.GetUser(ctx, id.UserID)
	if err == nil {
		return nil, models.NewConflictError("profile already exists", nil)
	}
	if !models.IsKind(err, models.KindNotFound) {
		return nil, err
	}

	user := models.User{
		ID:        id.UserID,
		Name:      strings.TrimSpace(req.Name),
		Email:     id.Email,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
		BannerURL: req.BannerURL,
		Role:      models.RoleUser,
		CreatedAt: time.Now().UTC(),
	}
	paths, err := s.storeImages(ctx, &user, images)
	if err != nil {
		return nil, err
	}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.CreateUser(ctx, &user); err != nil {
			return err
		}
		return tx.ReplaceTopicPreferences(ctx, user.ID, preferences)
	})
	if err != nil {
		discard(ctx, s.store, paths)
		return nil, err
	}
	return s.Get(ctx, user.ID)
}

func (s *UserService) storeImages(ctx context.Context, u *models.User, images ProfileImages) ([]string, error) {
	var paths []string
	if images.Avatar != nil {
		url, path, err := uploadImage(ctx, s.store, profileImagePrefix, *images.Avatar)
		if err != nil {
			return nil, err
		}
		u.AvatarURL = url
		paths = append(paths, path)
	}
	if images.Banner != nil {
		url, path, err := uploadImage(ctx, s.store, profileImagePrefix, *images.Banner)
		if err != nil {
			discard(ctx, s.store, paths)
			return nil, err
		}
		u.BannerURL = url
		paths = append(paths, path)
	}
	return paths, nil
}

// Get returns a profile with its topic preferences.
func (s *UserService) Get(ctx context.Context, userID string) (*models.ProfileView, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	prefs, err := s.repo.TopicPreferences(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(prefs))
	for _, p := range prefs {
		ids = append(ids, p.TopicID)
	}
	topics, err := s.repo.TopicsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &models.ProfileView{User: *user, Preferences: topicRefs(ids, topics)}, nil
}

// Update edits the caller's own profile.
func (s *UserService) Update(ctx context.Context, userID string, req models.UpdateProfileRequest, images ProfileImages) (*models.ProfileView, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if req.Name != nil {
		if err := required("name", *req.Name)(ctx); err != nil {
			return nil, err
		}
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Bio != nil {
		fields["bio"] = *req.Bio
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
		fields["avatar_url"] = user.AvatarURL
	}
	if req.BannerURL != nil {
		user.BannerURL = *req.BannerURL
		fields["banner_url"] = user.BannerURL
	}
	paths, err := s.storeImages(ctx, user, images)
	if err != nil {
		return nil, err
	}
	if images.Avatar != nil {
		fields["avatar_url"] = user.AvatarURL
	}
	if images.Banner != nil {
		fields["banner_url"] = user.BannerURL
	}
	if err := s.repo.UpdateUser(ctx, user.ID, fields); err != nil {
		discard(ctx, s.store, paths)
		return nil, err
	}
	return s.Get(ctx, user.ID)
}
