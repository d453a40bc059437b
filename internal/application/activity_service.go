package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flashteams/backend/internal/domain/entity"
	"github.com/flashteams/backend/internal/domain/repository"
)

// ActivityService records when users were last seen.
type ActivityService struct {
	activities repository.Repository[entity.UserActivity]
	now        func() time.Time
}

func NewActivityService(activities repository.Repository[entity.UserActivity]) *ActivityService {
	return &ActivityService{activities: activities, now: time.Now}
}

// Touch sets the user's last seen time to now.
func (s *ActivityService) Touch(ctx context.Context, userID uuid.UUID) error {
	a, err := s.activities.Select(ctx, repository.Where("user_id = ?", userID))
	if err != nil {
		return err
	}
	if a == nil {
		_, err = s.activities.Insert(ctx, &entity.UserActivity{UserID: userID, LastSeenTime: s.now().UTC()})
		return err
	}
	a.LastSeenTime = s.now().UTC()
	return s.activities.SaveChanges(ctx)
}

// LastSeen returns nil when the user has no recorded activity.
func (s *ActivityService) LastSeen(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	a, err := s.activities.Select(ctx, repository.Where("user_id = ?", userID), repository.WithoutTracking())
	if err != nil || a == nil {
		return nil, err
	}
	t := a.LastSeenTime
	return &t, nil
}
