//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"altid/internal/verification/models"
	"altid/internal/verification/store"
	id "altid/pkg/domain"
	"altid/pkg/platform/sentinel"
	"altid/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = store.NewRedis(s.redis.Client, time.Minute)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	dob := "1990-05-01"
	session := models.NewSession(id.NewSessionID(), time.Now().UTC().Truncate(time.Millisecond))
	session.State = models.StateCaptureSelfie
	session.Identity = &models.ExtractedIdentity{Name: "Jane Doe", DateOfBirth: &dob, AgeVerified: true}
	session.IDPhoto = &models.Image{MIMEType: "image/png", Data: []byte{1, 2, 3}}

	s.Require().NoError(s.store.Create(ctx, session))
	s.ErrorIs(s.store.Create(ctx, session), sentinel.ErrConflict)

	found, err := s.store.Get(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(session.Identity, found.Identity)
	s.Equal(session.IDPhoto, found.IDPhoto)
	s.True(session.CreatedAt.Equal(found.CreatedAt))

	ttl, err := s.redis.Client.TTL(ctx, "altid:session:"+session.ID.String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}

func (s *RedisStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), id.NewSessionID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestUpdateReturnsFnErrorWithoutWriting() {
	ctx := context.Background()
	session := models.NewSession(id.NewSessionID(), time.Now())
	s.Require().NoError(s.store.Create(ctx, session))

	boom := errors.New("rejected")
	_, err := s.store.Update(ctx, session.ID, func(cur *models.Session) error {
		cur.State = models.StateSuccess
		return boom
	})
	s.ErrorIs(err, boom)

	found, err := s.store.Get(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(models.StateWelcome, found.State)
}

// Concurrent increments must all land: WATCH conflicts are retried.
func (s *RedisStoreSuite) TestConcurrentUpdates() {
	ctx := context.Background()
	session := models.NewSession(id.NewSessionID(), time.Now())
	s.Require().NoError(s.store.Create(ctx, session))

	const writers = 4
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Update(ctx, session.ID, func(cur *models.Session) error {
				cur.Attempt++
				return nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	found, err := s.store.Get(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(writers, found.Attempt)
}
