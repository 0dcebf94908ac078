package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"docseal/internal/registry/models"
)

const (
	commitment = models.Commitment("0xe3ee8913713e06550399231579a297149ceea238c568acb2d88dbb85e25074f5")
	hash1      = models.Hash("0x3705bdc2a7ae99d7a2b69963fb767b2d1313f8b04395f67d8e016da886426aa1")
	hash2      = models.Hash("0x8797969aeaac3aa04a7762427b025aa62343b52a0873bdcc2625832cac414d52")
)

type MemoryCacheSuite struct {
	suite.Suite
	cache *Memory
	ctx   context.Context
}

func (s *MemoryCacheSuite) SetupTest() {
	s.cache = NewMemory(time.Minute)
	s.ctx = context.Background()
}

func TestMemoryCacheSuite(t *testing.T) {
	suite.Run(t, new(MemoryCacheSuite))
}

func (s *MemoryCacheSuite) TestMissThenHit() {
	_, ok := s.cache.Get(s.ctx, commitment, hash1)
	s.False(ok)

	s.cache.Set(s.ctx, commitment, hash1, true)
	valid, ok := s.cache.Get(s.ctx, commitment, hash1)
	s.True(ok)
	s.True(valid)
}

func (s *MemoryCacheSuite) TestNegativeVerdictsAreCached() {
	s.cache.Set(s.ctx, commitment, hash2, false)
	valid, ok := s.cache.Get(s.ctx, commitment, hash2)
	s.True(ok)
	s.False(valid)
}

func (s *MemoryCacheSuite) TestInvalidateClearsAllHashesForCommitment() {
	s.cache.Set(s.ctx, commitment, hash1, true)
	s.cache.Set(s.ctx, commitment, hash2, false)

	s.cache.Invalidate(s.ctx, commitment)

	_, ok := s.cache.Get(s.ctx, commitment, hash1)
	s.False(ok)
	_, ok = s.cache.Get(s.ctx, commitment, hash2)
	s.False(ok)
}

func (s *MemoryCacheSuite) TestExpiry() {
	short := NewMemory(time.Millisecond)
	short.Set(s.ctx, commitment, hash1, true)
	time.Sleep(5 * time.Millisecond)
	_, ok := short.Get(s.ctx, commitment, hash1)
	s.False(ok)
}
