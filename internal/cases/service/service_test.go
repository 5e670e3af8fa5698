package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"caseflow/internal/cases/models"
	"caseflow/internal/cases/store"
	"caseflow/internal/outbox"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	cases  *store.InMemory
	outbox *outbox.InMemory
	svc    *Service
	ctx    context.Context
	now    time.Time
	actor  requestcontext.ActorIdentity
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.cases = store.NewInMemory()
	s.outbox = outbox.NewInMemory()
	s.svc = NewService(s.cases, s.cases, s.outbox)
	s.now = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	s.actor = requestcontext.ActorIdentity{ID: uuid.New(), Name: "insp. chan"}
	ctx := requestcontext.WithTime(context.Background(), s.now)
	s.ctx = requestcontext.WithActor(ctx, s.actor)
}

func (s *ServiceSuite) seed(caseNumber string, state models.State, sourceKind string) *models.Case {
	c := &models.Case{
		CaseNumber:     caseNumber,
		State:          state,
		Classification: models.ClassificationNormal,
		Destination:    models.DestinationInternal,
		SourceKind:     sourceKind,
	}
	s.Require().NoError(s.cases.Create(s.ctx, c))
	return c
}

func (s *ServiceSuite) TestCreateAppliesDefaults() {
	created, err := s.svc.Create(s.ctx, &models.Case{CaseNumber: "14/24.0XYZ"})
	s.Require().NoError(err)
	s.Equal(models.StatePending, created.State)
	s.Equal(models.ClassificationNormal, created.Classification)
	s.Equal(models.DestinationInternal, created.Destination)
	s.Equal(s.now, created.CreatedAt)
}

func (s *ServiceSuite) TestCreateNormalizesParties() {
	created, err := s.svc.Create(s.ctx, &models.Case{
		CaseNumber: "15/24.0PQR",
		Reporters:  []models.Party{{Name: "  Ana Reis "}, {Name: "Ana Reis"}, {Name: ""}},
		Subjects:   []models.Party{{Name: "unknown"}},
	})
	s.Require().NoError(err)
	s.Equal([]models.Party{{Name: "Ana Reis"}}, created.Reporters)
	s.Equal([]models.Party{{Name: "unknown"}}, created.Subjects)
}

func (s *ServiceSuite) TestCreateRejectsMissingNumber() {
	_, err := s.svc.Create(s.ctx, &models.Case{})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestCreateRejectsCanonicalDuplicate() {
	s.seed("7/24.0ABC", models.StateInProgress, "")

	// Same canonical number under a different spelling.
	_, err := s.svc.Create(s.ctx, &models.Case{CaseNumber: "007/24.0ABC"})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestCreateAllowsReuseAfterConclusion() {
	s.seed("7/24.0ABC", models.StateConcluded, "")

	created, err := s.svc.Create(s.ctx, &models.Case{CaseNumber: "007/24.0ABC"})
	s.Require().NoError(err)
	s.NotEqual(uuid.Nil, created.ID)
}

func (s *ServiceSuite) TestTransitionAppendsHistoryAndPropagates() {
	c := s.seed("3/24.0DEF", models.StatePending, "")

	s.Require().NoError(s.svc.Transition(s.ctx, c.ID, models.StateInProgress, "picked up", "", ""))

	got, err := s.cases.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StateInProgress, got.State)

	entries, err := s.cases.ListByCase(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(models.StatePending, entries[0].PreviousState)
	s.Equal(models.StateInProgress, entries[0].NewState)
	s.Equal(s.actor.ID, entries[0].ActorID)
	s.Equal("insp. chan", entries[0].ActorName)
	s.Equal("picked up", entries[0].Comment)

	pending, err := s.outbox.ListPending(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(models.DestinationInternal, pending[0].Destination)
	s.True(pending[0].ClearConclusion)
}

func (s *ServiceSuite) TestTransitionSameStateIsNoop() {
	c := s.seed("3/24.0DEF", models.StateInProgress, "")

	s.Require().NoError(s.svc.Transition(s.ctx, c.ID, models.StateInProgress, "again", "", ""))

	entries, err := s.cases.ListByCase(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Empty(entries)

	pending, err := s.outbox.ListPending(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *ServiceSuite) TestTransitionRejectsIllegalMove() {
	c := s.seed("3/24.0DEF", models.StatePending, "")

	err := s.svc.Transition(s.ctx, c.ID, models.StateCourt, "", "", "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	got, findErr := s.cases.FindByID(s.ctx, c.ID)
	s.Require().NoError(findErr)
	s.Equal(models.StatePending, got.State)
}

func (s *ServiceSuite) TestTransitionRejectsPendingAsTarget() {
	c := s.seed("3/24.0DEF", models.StateInProgress, "")

	err := s.svc.Transition(s.ctx, c.ID, models.StatePending, "", "", "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState),
		"pending is only reachable through the reopen path")
}

func (s *ServiceSuite) TestConcludeStampsAndPropagatesDestination() {
	c := s.seed("5/24.0GHI", models.StateInProgress, "")

	s.Require().NoError(s.svc.Transition(s.ctx, c.ID, models.StateConcluded,
		"sent to court", "REF-2024-88", "District Court"))

	got, err := s.cases.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StateConcluded, got.State)
	s.Require().NotNil(got.ConcludedAt)
	s.Equal(s.now, *got.ConcludedAt)
	s.Equal("REF-2024-88", got.OfficeReferenceNumber)
	s.Equal("District Court", got.Destination)

	pending, err := s.outbox.ListPending(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("District Court", pending[0].Destination)
	s.False(pending[0].ClearConclusion)
}

func (s *ServiceSuite) TestConcludeWithReferenceRequiresDestination() {
	c := s.seed("5/24.0GHI", models.StateInProgress, "")

	err := s.svc.Transition(s.ctx, c.ID, models.StateConcluded, "", "REF-2024-88", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestConcludeWithoutDestinationChangesStateOnly() {
	c := s.seed("5/24.0GHI", models.StateInProgress, "")

	s.Require().NoError(s.svc.Transition(s.ctx, c.ID, models.StateConcluded, "done", "", ""))

	got, err := s.cases.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StateConcluded, got.State)
	s.Nil(got.ConcludedAt)

	pending, err := s.outbox.ListPending(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending, "an unstamped conclusion is not announced to the intake tables")
}

func (s *ServiceSuite) TestArchiveDoesNotPropagate() {
	c := s.seed("5/24.0GHI", models.StateInProgress, "")

	s.Require().NoError(s.svc.Transition(s.ctx, c.ID, models.StateArchived, "stale", "", ""))

	pending, err := s.outbox.ListPending(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *ServiceSuite) TestReactivationClearsConclusionFields() {
	c := s.seed("5/24.0GHI", models.StateCourt, "")
	s.Require().NoError(s.svc.Transition(s.ctx, c.ID, models.StateConcluded,
		"", "REF-1", "District Court"))

	// concluded is terminal, so reactivation happens on a court-stage case.
	c2 := s.seed("6/24.0JKL", models.StateCourt, "")
	s.Require().NoError(s.svc.Transition(s.ctx, c2.ID, models.StateInProgress, "returned", "", ""))

	got, err := s.cases.FindByID(s.ctx, c2.ID)
	s.Require().NoError(err)
	s.Equal(models.DestinationInternal, got.Destination)
	s.Nil(got.ConcludedAt)
}

func (s *ServiceSuite) TestTransitionOnMissingCaseIsNoopSuccess() {
	s.Require().NoError(s.svc.Transition(s.ctx, uuid.New(), models.StateInProgress, "", "", ""))
}

func (s *ServiceSuite) TestDeleteManualCaseRemovesRow() {
	c := s.seed("9/24.0MNO", models.StatePending, "")

	s.Require().NoError(s.svc.Delete(s.ctx, c.ID))

	_, err := s.svc.Get(s.ctx, c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestDeleteSourceAttributedCaseResetsInstead() {
	c := s.seed("9/24.0MNO", models.StateInProgress, "correspondence")
	owner := uuid.New()
	_, err := s.cases.Mutate(s.ctx, c.ID, func(c *models.Case) error {
		c.OwnerID = &owner
		c.Notes = "working notes"
		return nil
	})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Delete(s.ctx, c.ID))

	got, err := s.svc.Get(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StatePending, got.State)
	s.Nil(got.OwnerID)
	s.Empty(got.Notes)

	entries, err := s.cases.ListByCase(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(models.StateInProgress, entries[0].PreviousState)
}

func (s *ServiceSuite) TestDeleteMissingCaseIsNoopSuccess() {
	s.Require().NoError(s.svc.Delete(s.ctx, uuid.New()))
}

func (s *ServiceSuite) TestListByNumberVariantsFindsDriftedSpellings() {
	a := s.seed("7/24.0ABC", models.StateConcluded, "")
	b := s.seed("007/24.0ABC", models.StatePending, "correspondence")
	s.seed("8/24.0ZZZ", models.StatePending, "")

	got, err := s.svc.ListByNumberVariants(s.ctx, "7/24.0ABC")
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	ids := []uuid.UUID{got[0].ID, got[1].ID}
	s.Contains(ids, a.ID)
	s.Contains(ids, b.ID)
}
