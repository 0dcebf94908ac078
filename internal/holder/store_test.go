package holder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"docseal/internal/document"
	"docseal/internal/document/canonical"
	"docseal/internal/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *Memory
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemory()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) record(fullName string) *document.Record {
	record := &document.Record{
		Kind: document.KindIdentityCard,
		Fields: map[string]string{
			"idNumber":    "912345678V",
			"fullName":    fullName,
			"dateOfBirth": "1991-02-03",
			"issuedDate":  "2020-01-01",
		},
	}
	canonical.Stamp(record)
	return record
}

func (s *MemoryStoreSuite) TestGetAbsentKind() {
	_, err := s.store.Get(s.ctx, document.KindLicense)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *MemoryStoreSuite) TestSetThenGet() {
	original := s.record("John Doe")
	s.Require().NoError(s.store.Set(s.ctx, original))

	got, err := s.store.Get(s.ctx, document.KindIdentityCard)
	s.Require().NoError(err)
	s.Equal(original.Fingerprint, got.Fingerprint)
	s.Equal("John Doe", got.Fields["fullName"])
}

func (s *MemoryStoreSuite) TestSetReplacesSameKind() {
	s.Require().NoError(s.store.Set(s.ctx, s.record("John Doe")))

	renamed := s.record("John Q Doe")
	s.Require().NoError(s.store.Set(s.ctx, renamed))

	got, err := s.store.Get(s.ctx, document.KindIdentityCard)
	s.Require().NoError(err)
	s.Equal(renamed.Fingerprint, got.Fingerprint)
}

func (s *MemoryStoreSuite) TestGetReturnsDetachedCopy() {
	s.Require().NoError(s.store.Set(s.ctx, s.record("John Doe")))

	got, err := s.store.Get(s.ctx, document.KindIdentityCard)
	s.Require().NoError(err)
	got.Fields["fullName"] = "Mallory"

	again, err := s.store.Get(s.ctx, document.KindIdentityCard)
	s.Require().NoError(err)
	s.Equal("John Doe", again.Fields["fullName"],
		"mutating a record returned by Get must not change the stored record")
}

func (s *MemoryStoreSuite) TestSetDetachesFromCaller() {
	original := s.record("John Doe")
	s.Require().NoError(s.store.Set(s.ctx, original))
	original.Fields["fullName"] = "Mallory"

	got, err := s.store.Get(s.ctx, document.KindIdentityCard)
	s.Require().NoError(err)
	s.Equal("John Doe", got.Fields["fullName"])
}

func (s *MemoryStoreSuite) TestSetRejectsUnknownKind() {
	bad := &document.Record{Kind: document.Kind("passport")}
	err := s.store.Set(s.ctx, bad)
	s.True(errors.Is(err, sentinel.ErrInvalidInput))
}

func (s *MemoryStoreSuite) TestRemoveIsIdempotent() {
	s.Require().NoError(s.store.Set(s.ctx, s.record("John Doe")))
	s.Require().NoError(s.store.Remove(s.ctx, document.KindIdentityCard))
	s.Require().NoError(s.store.Remove(s.ctx, document.KindIdentityCard))

	_, err := s.store.Get(s.ctx, document.KindIdentityCard)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
