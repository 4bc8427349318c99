package service

import (
	"context"
	"strings"

	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/repository"
)

// rule is one step of a validation pipeline run before a mutation.
type rule func(ctx context.Context) error

// check runs rules in order and returns the first failure.
func check(ctx context.Context, rules ...rule) error {
	for _, r := range rules {
		if err := r(ctx); err != nil {
			return err
		}
	}
	return nil
}

// loadActor returns the profile of the calling user. A caller without a
// profile cannot act.
func loadActor(ctx context.Context, repo *repository.Repository, userID string) (*models.User, error) {
	if userID == "" {
		return nil, models.NewUnauthorizedError("authentication required")
	}
	user, err := repo.GetUser(ctx, userID)
	if models.IsKind(err, models.KindNotFound) {
		return nil, models.NewForbiddenError("create a profile before taking this action")
	}
	return user, err
}

func notBanned(actor *models.User, action string) rule {
	return func(context.Context) error {
		if actor.IsBanned {
			return models.NewForbiddenError("banned users cannot " + action)
		}
		return nil
	}
}

func platformAdmin(actor *models.User) rule {
	return func(context.Context) error {
		if !actor.IsAdmin() {
			return models.NewForbiddenError("only a platform admin can do this")
		}
		return nil
	}
}

func communityAdmin(community *models.Community, userID string) rule {
	return func(context.Context) error {
		if community.AdminID != userID {
			return models.NewForbiddenError("only the community admin can do this")
		}
		return nil
	}
}

// notCommunityAdmin rejects the community admin as the subject of a
// membership removal.
func notCommunityAdmin(community *models.Community, userID, message string) rule {
	return func(context.Context) error {
		if community.AdminID == userID {
			return models.NewForbiddenError(message)
		}
		return nil
	}
}

func communityOpen(community *models.Community) rule {
	return func(context.Context) error {
		if community.IsBanned {
			return models.NewForbiddenError("community is banned")
		}
		return nil
	}
}

func required(field, value string) rule {
	return func(context.Context) error {
		if strings.TrimSpace(value) == "" {
			return models.NewValidationError(field, field+" is required")
		}
		return nil
	}
}

// uniqueCommunityName rejects a name already used by another community,
// ignoring case. exceptID skips the community being renamed.
func uniqueCommunityName(repo *repository.Repository, name, exceptID string) rule {
	return func(ctx context.Context) error {
		existing, err := repo.FindCommunities(ctx, repository.CommunityCriteria{NameEquals: strings.TrimSpace(name)})
		if err != nil {
			return err
		}
		for _, c := range existing {
			if c.ID != exceptID {
				return models.NewConflictError("community name "+name+" is already taken", nil)
			}
		}
		return nil
	}
}

// topicsExist rejects ids that name no topic.
func topicsExist(repo *repository.Repository, field string, ids []string) rule {
	return func(ctx context.Context) error {
		if len(ids) == 0 {
			return nil
		}
		found, err := repo.TopicsByIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				return models.NewValidationError(field, "unknown topic "+id)
			}
		}
		return nil
	}
}
