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

const communityImagePrefix = "communities"

type CommunityService struct {
	repo       *repository.Repository
	store      storage.ObjectStore
	moderation *ModerationService
}

// CommunityImages are the optional avatar and banner uploads of a community form.
type CommunityImages struct {
	Avatar *Upload
	Banner *Upload
}

// AdminView is the community admin's view of a community and its members.
type AdminView struct {
	Community *models.CommunityView `json:"community"`
	Members   []models.MemberView   `json:"members"`
}

// project decorates communities with the viewer's join state and their
// topics. Member counts are added when withCounts is set.
func (s *CommunityService) project(ctx context.Context, communities []models.Community, viewerID string, withCounts bool) ([]*models.CommunityView, error) {
	if len(communities) == 0 {
		return []*models.CommunityView{}, nil
	}
	ids := make([]string, 0, len(communities))
	for _, c := range communities {
		ids = append(ids, c.ID)
	}

	var (
		joined map[string]bool
		links  []models.CommunityTopic
		counts map[string]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		joined, err = s.repo.JoinedCommunities(gctx, viewerID, ids)
		return err
	})
	g.Go(func() (err error) {
		links, err = s.repo.CommunityTopicLinks(gctx, ids)
		return err
	})
	if withCounts {
		g.Go(func() (err error) {
			counts, err = s.repo.CountMembers(gctx, ids)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	topicIDs := make([]string, 0, len(links))
	linked := make(map[string][]string, len(communities))
	for _, l := range links {
		topicIDs = append(topicIDs, l.TopicID)
		linked[l.CommunityID] = append(linked[l.CommunityID], l.TopicID)
	}
	topics, err := s.repo.TopicsByIDs(ctx, uniq(topicIDs))
	if err != nil {
		return nil, err
	}

	out := make([]*models.CommunityView, 0, len(communities))
	for _, c := range communities {
		v := &models.CommunityView{
			ID:          c.ID,
			AdminID:     c.AdminID,
			Name:        c.Name,
			Description: c.Description,
			BannerURL:   c.BannerURL,
			AvatarURL:   c.AvatarURL,
			IsBanned:    c.IsBanned,
			IsJoined:    joined[c.ID],
			Topics:      topicRefs(linked[c.ID], topics),
			CreatedAt:   c.CreatedAt,
		}
		if withCounts {
			n := counts[c.ID]
			v.MemberCount = &n
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *CommunityService) projectOne(ctx context.Context, c *models.Community, viewerID string, withCounts bool) (*models.CommunityView, error) {
	views, err := s.project(ctx, []models.Community{*c}, viewerID, withCounts)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *CommunityService) List(ctx context.Context, viewerID string) ([]*models.CommunityView, error) {
	communities, err := s.repo.FindCommunities(ctx, repository.CommunityCriteria{})
	if err != nil {
		return nil, err
	}
	return s.project(ctx, communities, viewerID, false)
}

// Search matches keyword against community names ignoring case.
func (s *CommunityService) Search(ctx context.Context, keyword, viewerID string) ([]*models.CommunityView, error) {
	keyword = Clean(keyword)
	if keyword == "" {
		return s.List(ctx, viewerID)
	}
	communities, err := s.repo.FindCommunities(ctx, repository.CommunityCriteria{NameContains: keyword})
	if err != nil {
		return nil, err
	}
	return s.project(ctx, communities, viewerID, false)
}

func (s *CommunityService) Get(ctx context.Context, id, viewerID string) (*models.CommunityView, error) {
	community, err := s.repo.GetCommunity(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.projectOne(ctx, community, viewerID, false)
}

// Create registers a community. The creator becomes its admin and first member.
func (s *CommunityService) Create(ctx context.Context, userID string, req models.CreateCommunityRequest, images CommunityImages) (*models.CommunityView, error) {
	actor, err := loadActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	topicIDs := uniq(req.TopicIDs)
	if err := check(ctx,
		notBanned(actor, "create a community"),
		required("name", req.Name),
		uniqueCommunityName(s.repo, req.Name, ""),
		topicsExist(s.repo, "topic_ids", topicIDs),
	); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	community := models.Community{
		ID:          uuid.NewString(),
		AdminID:     actor.ID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		CreatedAt:   now,
	}
	paths, err := s.storeImages(ctx, &community, images)
	if err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		err := tx.CreateCommunity(ctx, &community)
		if models.IsKind(err, models.KindConflict) {
			return models.NewConflictError("community name "+community.Name+" is already taken", err)
		}
		if err != nil {
			return err
		}
		if err := tx.LinkTopics(ctx, community.ID, topicIDs); err != nil {
			return err
		}
		return tx.AddMember(ctx, &models.Member{
			UserID:      actor.ID,
			CommunityID: community.ID,
			Status:      models.MemberStatusJoined,
			CreatedAt:   now,
		})
	})
	if err != nil {
		discard(ctx, s.store, paths)
		return nil, err
	}
	return s.projectOne(ctx, &community, actor.ID, false)
}

// storeImages uploads the avatar and banner onto c and returns the stored paths.
func (s *CommunityService) storeImages(ctx context.Context, c *models.Community, images CommunityImages) ([]string, error) {
	var paths []string
	if images.Avatar != nil {
		url, path, err := uploadImage(ctx, s.store, communityImagePrefix, *images.Avatar)
		if err != nil {
			return nil, err
		}
		c.AvatarURL = url
		paths = append(paths, path)
	}
	if images.Banner != nil {
		url, path, err := uploadImage(ctx, s.store, communityImagePrefix, *images.Banner)
		if err != nil {
			discard(ctx, s.store, paths)
			return nil, err
		}
		c.BannerURL = url
		paths = append(paths, path)
	}
	return paths, nil
}

// Update edits the profile of a community. Only its admin may do so.
func (s *CommunityService) Update(ctx context.Context, userID, communityID string, req models.UpdateCommunityRequest, images CommunityImages) (*models.CommunityView, error) {
	community, err := s.repo.GetCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	rules := []rule{communityAdmin(community, userID)}
	if req.Name != nil {
		rules = append(rules, required("name", *req.Name), uniqueCommunityName(s.repo, *req.Name, community.ID))
	}
	if err := check(ctx, rules...); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		community.Name = strings.TrimSpace(*req.Name)
		fields["name"] = community.Name
	}
	if req.Description != nil {
		community.Description = *req.Description
		fields["description"] = community.Description
	}
	paths, err := s.storeImages(ctx, community, images)
	if err != nil {
		return nil, err
	}
	if images.Avatar != nil {
		fields["avatar_url"] = community.AvatarURL
	}
	if images.Banner != nil {
		fields["banner_url"] = community.BannerURL
	}

	if err := s.repo.UpdateCommunity(ctx, community.ID, fields); err != nil {
		discard(ctx, s.store, paths)
		return nil, err
	}
	return s.projectOne(ctx, community, userID, false)
}

// Join adds the caller to a community.
func (s *CommunityService) Join(ctx context.Context, userID, communityID string) (*models.CommunityView, error) {
	actor, err := loadActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	community, err := s.repo.GetCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if err := check(ctx, notBanned(actor, "join a community"), communityOpen(community)); err != nil {
		return nil, err
	}
	err = s.repo.AddMember(ctx, &models.Member{
		UserID:      actor.ID,
		CommunityID: community.ID,
		Status:      models.MemberStatusJoined,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return s.projectOne(ctx, community, actor.ID, false)
}

// Leave removes the caller from a community. The admin cannot leave.
func (s *CommunityService) Leave(ctx context.Context, userID, communityID string) error {
	community, err := s.repo.GetCommunity(ctx, communityID)
	if err != nil {
		return err
	}
	if err := check(ctx, notCommunityAdmin(community, userID, "the community admin cannot leave the community")); err != nil {
		return err
	}
	return s.repo.RemoveMember(ctx, userID, community.ID)
}

// Kick removes memberID from a community. Only the admin may kick, and not
// themselves.
func (s *CommunityService) Kick(ctx context.Context, actorID, communityID, memberID string) error {
	community, err := s.repo.GetCommunity(ctx, communityID)
	if err != nil {
		return err
	}
	if err := check(ctx,
		communityAdmin(community, actorID),
		notCommunityAdmin(community, memberID, "the community admin cannot kick themselves"),
	); err != nil {
		return err
	}
	return s.repo.RemoveMember(ctx, memberID, community.ID)
}

// Members returns the admin view of a community: its member count and its
// members, oldest first. The community admin and platform admins may see it.
func (s *CommunityService) Members(ctx context.Context, actorID, communityID string) (*AdminView, error) {
	community, err := s.repo.GetCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if community.AdminID != actorID {
		actor, err := loadActor(ctx, s.repo, actorID)
		if err != nil {
			return nil, err
		}
		if err := check(ctx, platformAdmin(actor)); err != nil {
			return nil, models.NewForbiddenError("only the community admin can see its members")
		}
	}

	view, err := s.projectOne(ctx, community, actorID, true)
	if err != nil {
		return nil, err
	}
	members, err := s.repo.Members(ctx, community.ID)
	if err != nil {
		return nil, err
	}
	userIDs := make([]string, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	users, err := s.repo.UsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	out := make([]models.MemberView, 0, len(members))
	for _, m := range members {
		u := users[m.UserID]
		out = append(out, models.MemberView{
			UserID:    m.UserID,
			Name:      u.Name,
			AvatarURL: u.AvatarURL,
			Status:    m.Status,
			IsAdmin:   m.UserID == community.AdminID,
			JoinedAt:  m.CreatedAt,
		})
	}
	return &AdminView{Community: view, Members: out}, nil
}

// Ban hides a community and its posts. Only a platform admin may ban.
func (s *CommunityService) Ban(ctx context.Context, actorID, communityID, reason string) (*models.BanView, error) {
	return s.moderation.Ban(ctx, actorID, models.CommunityBan{CommunityID: communityID}, reason)
}

func (s *CommunityService) Unban(ctx context.Context, actorID, communityID string) error {
	return s.moderation.Unban(ctx, actorID, models.CommunityBan{CommunityID: communityID})
}
