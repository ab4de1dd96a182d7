package extraction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	name       string
	candidates []Candidate
	err        error
}

func (s *stubExtractor) Name() string { return s.name }

func (s *stubExtractor) Extract(_ context.Context, _ string, _ time.Time) ([]Candidate, error) {
	return s.candidates, s.err
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestService_Extract(t *testing.T) {
	now := time.Now().UTC()

	t.Run("primary result wins", func(t *testing.T) {
		primary := &stubExtractor{name: "slm", candidates: []Candidate{{Action: "吃", Target: "苹果", Confidence: 0.9}}}
		s := NewService(primary, NewRuleExtractor(), testLogger())

		candidates, extractor, err := s.Extract(context.Background(), "我今天吃了苹果", now)
		require.NoError(t, err)
		assert.Equal(t, "slm", extractor)
		require.Len(t, candidates, 1)
		assert.Equal(t, "苹果", candidates[0].Target)
	})

	t.Run("primary error falls back to rules", func(t *testing.T) {
		primary := &stubExtractor{name: "slm", err: errors.New("model unavailable")}
		s := NewService(primary, NewRuleExtractor(), testLogger())

		candidates, extractor, err := s.Extract(context.Background(), "我今天早上吃了3个苹果", now)
		require.NoError(t, err)
		assert.Equal(t, "rules", extractor)
		require.Len(t, candidates, 1)
		assert.Equal(t, "吃", candidates[0].Action)
	})

	t.Run("primary empty result falls back to rules", func(t *testing.T) {
		primary := &stubExtractor{name: "slm"}
		s := NewService(primary, NewRuleExtractor(), testLogger())

		_, extractor, err := s.Extract(context.Background(), "我今天早上吃了3个苹果", now)
		require.NoError(t, err)
		assert.Equal(t, "rules", extractor)
	})

	t.Run("nil primary goes straight to rules", func(t *testing.T) {
		s := NewService(nil, NewRuleExtractor(), testLogger())

		_, extractor, err := s.Extract(context.Background(), "我今天早上吃了3个苹果", now)
		require.NoError(t, err)
		assert.Equal(t, "rules", extractor)
	})

	t.Run("primary output is sanitized", func(t *testing.T) {
		primary := &stubExtractor{name: "slm", candidates: []Candidate{
			{Action: "吃", Target: "苹果", Confidence: 2.5},
			{Action: "", Target: "苹果", Confidence: 0.9},
		}}
		s := NewService(primary, NewRuleExtractor(), testLogger())

		candidates, _, err := s.Extract(context.Background(), "text", now)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, 1.0, candidates[0].Confidence)
	})
}
