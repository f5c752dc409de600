package profile

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *models.Profile {
	return models.NewProfile("7", "ana@example.com", models.Seed{Name: "Ana"}, time.Unix(0, 0))
}

func TestStore_ReplaceAndCurrentAreCopies(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Current())
	assert.Equal(t, Unauthenticated, s.Mode())

	p := sample()
	s.Replace(Authenticated, p)
	p.Name = "changed"

	got := s.Current()
	require.NotNil(t, got)
	assert.Equal(t, "Ana", got.Name)
	got.Preferences = append(got.Preferences, "yoga")
	assert.Empty(t, s.Current().Preferences)
	assert.Equal(t, Authenticated, s.Mode())
}

func TestStore_ApplyWithoutProfile(t *testing.T) {
	s := NewStore()
	called := false
	_, _, err := s.Apply(func(p *models.Profile) (*models.Profile, error) {
		called = true
		return p, nil
	})
	assert.True(t, errors.Is(err, common.ErrNoActiveSession))
	assert.False(t, called)
}

func TestStore_Apply(t *testing.T) {
	s := NewStore()
	s.Replace(Demo, sample())
	v := s.Version()

	next, mode, err := s.Apply(func(p *models.Profile) (*models.Profile, error) {
		p.Bio = "hola"
		return p, nil
	})
	require.NoError(t, err)
	assert.Equal(t, Demo, mode)
	assert.Equal(t, "hola", next.Bio)
	assert.Equal(t, "hola", s.Current().Bio)
	assert.Greater(t, s.Version(), v)

	_, _, err = s.Apply(func(p *models.Profile) (*models.Profile, error) {
		p.Bio = "nope"
		return nil, common.ErrInvalidArgument
	})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	assert.Equal(t, "hola", s.Current().Bio)
}

func TestStore_ClearAndMode(t *testing.T) {
	s := NewStore()
	s.Replace(Authenticated, sample())
	s.SetMode(Authenticating)
	assert.Equal(t, Authenticating, s.Mode())
	assert.NotNil(t, s.Current())

	s.Clear()
	mode, p := s.Snapshot()
	assert.Equal(t, Unauthenticated, mode)
	assert.Nil(t, p)
}

func TestStore_ConcurrentApply(t *testing.T) {
	s := NewStore()
	s.Replace(Authenticated, sample())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = s.Apply(func(p *models.Profile) (*models.Profile, error) {
				p.Experience++
				return p, nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Current().Experience)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "unauthenticated", Unauthenticated.String())
	assert.Equal(t, "authenticating", Authenticating.String())
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "demo", Demo.String())
}

func TestStore_Roster(t *testing.T) {
	s := NewStore()
	assert.Empty(t, s.Roster())

	p := sample()
	s.SetRoster([]*models.Profile{p})
	p.Name = "x"

	r := s.Roster()
	require.Len(t, r, 1)
	assert.Equal(t, "Ana", r[0].Name)
}
