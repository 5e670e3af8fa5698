package distribution

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"caseflow/internal/cases/models"
	"caseflow/internal/cases/store"
	"caseflow/internal/ownership"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/requestcontext"
)

type DistributionSuite struct {
	suite.Suite
	cases     *store.InMemory
	ownership *ownership.InMemory
	svc       *Service
	ctx       context.Context
	now       time.Time
}

func TestDistributionSuite(t *testing.T) {
	suite.Run(t, new(DistributionSuite))
}

func (s *DistributionSuite) SetupTest() {
	s.cases = store.NewInMemory()
	s.ownership = ownership.NewInMemory()
	s.svc = NewService(s.cases, s.cases, s.ownership)
	s.now = time.Date(2024, 7, 2, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *DistributionSuite) seed(caseNumber, notes string, owner *uuid.UUID, createdAt time.Time) *models.Case {
	c := &models.Case{
		CaseNumber:     caseNumber,
		State:          models.StatePending,
		OwnerID:        owner,
		Notes:          notes,
		Classification: models.ClassificationNormal,
		Destination:    models.DestinationInternal,
		CreatedAt:      createdAt,
	}
	if owner != nil {
		c.State = models.StateInProgress
	}
	s.Require().NoError(s.cases.Create(s.ctx, c))
	return c
}

func (s *DistributionSuite) TestHistoryRelationWinsOverNotesTag() {
	relationOwner := uuid.New()
	tagOwner := uuid.New()
	c := s.seed("7/24.0ABC", ownership.Tag(tagOwner)+" reopened\n", nil, s.now)
	s.Require().NoError(s.ownership.Append(s.ctx, ownership.Entry{
		CaseID:     c.ID,
		CaseNumber: c.CaseNumber,
		OwnerID:    relationOwner,
		RecordedAt: s.now,
	}))

	got, err := s.svc.SuggestPriorOwners(s.ctx, []uuid.UUID{c.ID})
	s.Require().NoError(err)
	s.Equal(relationOwner, got[c.ID])
}

func (s *DistributionSuite) TestNotesTagResolvesLegacyRows() {
	tagOwner := uuid.New()
	c := s.seed("7/24.0ABC", ownership.Tag(tagOwner)+" reopened 2023-11-02\n", nil, s.now)

	got, err := s.svc.SuggestPriorOwners(s.ctx, []uuid.UUID{c.ID})
	s.Require().NoError(err)
	s.Equal(tagOwner, got[c.ID])
}

func (s *DistributionSuite) TestFallbackFindsOwnerAcrossNumberVariants() {
	oldOwner := uuid.New()
	newerOwner := uuid.New()
	// Two historic rows under drifted spellings of the same number.
	s.seed("007/24.0ABC", "", &oldOwner, s.now.Add(-48*time.Hour))
	s.seed("07/24.0ABC", "", &newerOwner, s.now.Add(-24*time.Hour))
	c := s.seed("7/24.0ABC", "", nil, s.now)

	got, err := s.svc.SuggestPriorOwners(s.ctx, []uuid.UUID{c.ID})
	s.Require().NoError(err)
	s.Equal(newerOwner, got[c.ID], "most recent owned row wins")
}

func (s *DistributionSuite) TestNotesTagSuppressesVariantFallback() {
	tagOwner := uuid.New()
	siblingOwner := uuid.New()
	// An owned sibling row under a drifted spelling would win the fallback,
	// but a case resolved by its tag is never reconsidered.
	s.seed("007/24.0ABC", "", &siblingOwner, s.now.Add(-24*time.Hour))
	c := s.seed("7/24.0ABC", ownership.Tag(tagOwner)+" reopened\n", nil, s.now)

	got, err := s.svc.SuggestPriorOwners(s.ctx, []uuid.UUID{c.ID})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(tagOwner, got[c.ID])
	s.NotEqual(siblingOwner, got[c.ID])
}

func (s *DistributionSuite) TestNoSuggestionWhenNothingKnown() {
	c := s.seed("9/24.0XYZ", "plain notes", nil, s.now)

	got, err := s.svc.SuggestPriorOwners(s.ctx, []uuid.UUID{c.ID})
	s.Require().NoError(err)
	s.NotContains(got, c.ID)
}

func (s *DistributionSuite) TestMissingCaseSkippedNotFatal() {
	tagOwner := uuid.New()
	c := s.seed("7/24.0ABC", ownership.Tag(tagOwner)+"\n", nil, s.now)

	got, err := s.svc.SuggestPriorOwners(s.ctx, []uuid.UUID{uuid.New(), c.ID})
	s.Require().NoError(err)
	s.Len(got, 1)
	s.Equal(tagOwner, got[c.ID])
}

func (s *DistributionSuite) TestAssignMovesPendingToInProgress() {
	c := s.seed("5/24.0DEF", "", nil, s.now)
	owner := uuid.New()

	s.Require().NoError(s.svc.Assign(s.ctx, c.ID, owner))

	got, err := s.cases.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.OwnerID)
	s.Equal(owner, *got.OwnerID)
	s.Equal(models.StateInProgress, got.State)
	s.Require().NotNil(got.AssignedAt)
	s.Equal(s.now, *got.AssignedAt)

	entries, err := s.cases.ListByCase(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(models.StatePending, entries[0].PreviousState)
	s.Equal(models.StateInProgress, entries[0].NewState)
}

func (s *DistributionSuite) TestAssignConflictsWhenOwnedByAnother() {
	owner := uuid.New()
	c := s.seed("5/24.0DEF", "", &owner, s.now)

	err := s.svc.Assign(s.ctx, c.ID, uuid.New())
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *DistributionSuite) TestAssignSameOwnerIsNoop() {
	owner := uuid.New()
	c := s.seed("5/24.0DEF", "", &owner, s.now)

	s.Require().NoError(s.svc.Assign(s.ctx, c.ID, owner))

	entries, err := s.cases.ListByCase(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *DistributionSuite) TestAssignMissingCaseIsNoopSuccess() {
	s.Require().NoError(s.svc.Assign(s.ctx, uuid.New(), uuid.New()))
}

func (s *DistributionSuite) TestQueueListsOnlyUnassignedActive() {
	owner := uuid.New()
	unassigned := s.seed("1/24.0AAA", "", nil, s.now)
	s.seed("2/24.0BBB", "", &owner, s.now)
	concluded := s.seed("3/24.0CCC", "", nil, s.now)
	_, err := s.cases.Mutate(s.ctx, concluded.ID, func(c *models.Case) error {
		c.State = models.StateConcluded
		return nil
	})
	s.Require().NoError(err)

	got, err := s.svc.Queue(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(unassigned.ID, got[0].ID)
}
