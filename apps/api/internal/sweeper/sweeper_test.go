package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"MeetServer/apps/api/internal/repository"
	"MeetServer/config"
	"MeetServer/model"
	"MeetServer/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var sweeperTestOnce sync.Once

func initSweeperTest() {
	sweeperTestOnce.Do(func() {
		logger.ReplaceGlobal(zap.NewNop())
	})
}

// sweepUserRepo 只关心 ClearStaleLocations 的假仓储
type sweepUserRepo struct {
	mu      sync.Mutex
	cutoffs []time.Time
	cleared int64
	err     error
}

func (f *sweepUserRepo) ClearStaleLocations(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, before)
	return f.cleared, f.err
}

func (f *sweepUserRepo) GetByTelegramID(context.Context, int64) (*model.UserProfile, error) {
	return nil, nil
}
func (f *sweepUserRepo) GetByUUID(context.Context, string) (*model.UserProfile, error) {
	return nil, nil
}
func (f *sweepUserRepo) Create(ctx context.Context, u *model.UserProfile) (*model.UserProfile, error) {
	return u, nil
}
func (f *sweepUserRepo) Update(context.Context, *model.UserProfile) error { return nil }
func (f *sweepUserRepo) UpdateLocation(context.Context, int64, float64, float64, bool) error {
	return nil
}
func (f *sweepUserRepo) MarkActive(context.Context, int64) error { return nil }
func (f *sweepUserRepo) FindNearby(context.Context, int64, float64, float64, float64, int) ([]*repository.NearbyUser, error) {
	return nil, nil
}
func (f *sweepUserRepo) GetPhotos(context.Context, string) ([]*model.ProfilePhoto, error) {
	return nil, nil
}
func (f *sweepUserRepo) UpsertPhoto(ctx context.Context, p *model.ProfilePhoto) (*model.ProfilePhoto, error) {
	return nil, nil
}
func (f *sweepUserRepo) DeletePhotosNotIn(context.Context, string, []int8) ([]*model.ProfilePhoto, error) {
	return nil, nil
}

func TestSweepOnceCutoff(t *testing.T) {
	initSweeperTest()

	repo := &sweepUserRepo{cleared: 3}
	s, err := New(repo, config.SweepConfig{
		Interval:       time.Hour,
		InactiveCutoff: 90 * 24 * time.Hour,
	})
	require.NoError(t, err)

	before := time.Now().Add(-90 * 24 * time.Hour)
	s.sweepOnce()
	after := time.Now().Add(-90 * 24 * time.Hour)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.cutoffs, 1)
	cutoff := repo.cutoffs[0]
	assert.False(t, cutoff.Before(before))
	assert.False(t, cutoff.After(after))
}

func TestSweeperStartStop(t *testing.T) {
	initSweeperTest()

	repo := &sweepUserRepo{}
	s, err := New(repo, config.SweepConfig{
		Interval:       time.Hour,
		InactiveCutoff: 24 * time.Hour,
	})
	require.NoError(t, err)

	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())
}
