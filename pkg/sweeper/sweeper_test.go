package sweeper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Iqvpi1024/dirsoul/pkg/events"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/Iqvpi1024/dirsoul/pkg/patterns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubViewStore struct {
	created []*models.DerivedView
	updated []models.DerivedView
}

func (s *stubViewStore) ListActiveByUser(context.Context, string) ([]models.DerivedView, error) {
	return nil, nil
}

func (s *stubViewStore) UsersWithActiveViews(context.Context, int) ([]string, error) {
	return nil, nil
}

func (s *stubViewStore) Create(_ context.Context, v *models.DerivedView) (*models.DerivedView, error) {
	if v.ID == "" {
		v.ID = fmt.Sprintf("view-%d", len(s.created)+1)
	}
	s.created = append(s.created, v)
	return v, nil
}

func (s *stubViewStore) UpdateEvidence(_ context.Context, v *models.DerivedView) error {
	s.updated = append(s.updated, *v)
	return nil
}

func (s *stubViewStore) Transition(context.Context, *models.DerivedView, models.ViewStatus, *string) error {
	return nil
}

func testSweeper(store *stubViewStore) *Sweeper {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return &Sweeper{
		views:   store,
		emitter: events.NewEmitter(nil, logger),
		logger:  logger,
		cfg:     Config{ViewLifetime: 30 * 24 * time.Hour},
	}
}

// A candidate matching an existing hypothesis must revalidate the view that
// gatePass later sees, also when an earlier candidate grew the active set.
func TestSweeper_ApplyCandidates_RevalidationAfterNewView(t *testing.T) {
	store := &stubViewStore{}
	s := testSweeper(store)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	existing, err := models.NewDerivedView(
		"user-1", "喜欢喝咖啡", "咖啡", models.ViewTypePreference,
		[]string{"evt-1", "evt-2"}, 0.8, now.AddDate(0, 0, -10), s.cfg.ViewLifetime,
	)
	require.NoError(t, err)
	existing.ID = "view-existing"

	active := []models.DerivedView{*existing}

	candidates := []patterns.Candidate{
		{
			Hypothesis:      "经常在早上喝咖啡",
			Subject:         "咖啡",
			ViewType:        models.ViewTypePattern,
			EventIDs:        []string{"evt-10", "evt-11"},
			Confidence:      0.6,
			ValidationCount: 20,
		},
		{
			Hypothesis:      "喜欢喝咖啡",
			Subject:         "咖啡",
			ViewType:        models.ViewTypePreference,
			EventIDs:        []string{"evt-1", "evt-2", "evt-3"},
			Confidence:      0.9,
			ValidationCount: 3,
		},
	}

	result, err := s.applyCandidates(context.Background(), "user-1", candidates, active, now)
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.Len(t, store.created, 1)
	assert.Equal(t, "经常在早上喝咖啡", store.created[0].Hypothesis)

	var revalidated *models.DerivedView
	for i := range result {
		if result[i].ID == "view-existing" {
			revalidated = &result[i]
		}
	}
	require.NotNil(t, revalidated)
	assert.Equal(t, 3, revalidated.ValidationCount)
	assert.True(t, revalidated.DerivedFrom.Contains("evt-3"))
	assert.InDelta(t, 0.9, revalidated.Confidence, 1e-9)

	require.Len(t, store.updated, 1)
	assert.Equal(t, 3, store.updated[0].ValidationCount)
}

func TestSweeper_ApplyCandidates_NoChangeSkipsWrite(t *testing.T) {
	store := &stubViewStore{}
	s := testSweeper(store)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	existing, err := models.NewDerivedView(
		"user-1", "喜欢喝咖啡", "咖啡", models.ViewTypePreference,
		[]string{"evt-1", "evt-2"}, 0.8, now.AddDate(0, 0, -10), s.cfg.ViewLifetime,
	)
	require.NoError(t, err)
	existing.ID = "view-existing"

	candidates := []patterns.Candidate{
		{
			Hypothesis:      "喜欢喝咖啡",
			Subject:         "咖啡",
			ViewType:        models.ViewTypePreference,
			EventIDs:        []string{"evt-1", "evt-2"},
			Confidence:      0.9,
			ValidationCount: 2,
		},
	}

	result, err := s.applyCandidates(context.Background(), "user-1", candidates, []models.DerivedView{*existing}, now)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Empty(t, store.updated)
	assert.Empty(t, store.created)
}
