//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"caseflow/internal/db"
	"caseflow/internal/sources/models"
	"caseflow/pkg/testutil/containers"
)

type PostgresRecordSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Postgres
	ctx   context.Context
}

func TestPostgresRecordSuite(t *testing.T) {
	suite.Run(t, new(PostgresRecordSuite))
}

func (s *PostgresRecordSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(db.ApplySchema(s.ctx, s.pg.DB))
	s.store = NewPostgres(s.pg.DB)
}

func (s *PostgresRecordSuite) TearDownSuite() {
	_ = s.pg.DB.Close()
	_ = s.pg.Container.Terminate(s.ctx)
}

func (s *PostgresRecordSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx, "source_records"))
}

func (s *PostgresRecordSuite) save(kind models.Kind, caseNumber string) *models.Record {
	r := &models.Record{
		Kind:        kind,
		CaseNumber:  caseNumber,
		Destination: "Internal Investigation Unit",
		Subject:     "report",
	}
	s.Require().NoError(s.store.Save(s.ctx, r))
	return r
}

func (s *PostgresRecordSuite) TestSaveIsUpsert() {
	r := s.save(models.KindCorrespondence, "7/24.0ABC")

	r.Subject = "amended report"
	s.Require().NoError(s.store.Save(s.ctx, r))

	got, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal("amended report", got.Subject)

	records, err := s.store.ListByCaseNumber(s.ctx, "7/24.0ABC")
	s.Require().NoError(err)
	s.Len(records, 1)
}

func (s *PostgresRecordSuite) TestPropagateDispositionUpdatesAllKinds() {
	s.save(models.KindCorrespondence, "7/24.0ABC")
	s.save(models.KindCrimeProcess, "7/24.0ABC")
	s.save(models.KindExternalNotice, "other/24")

	affected, err := s.store.PropagateDisposition(s.ctx, "7/24.0ABC", "District Court", false)
	s.Require().NoError(err)
	s.EqualValues(2, affected)

	records, err := s.store.ListByCaseNumber(s.ctx, "7/24.0ABC")
	s.Require().NoError(err)
	for _, r := range records {
		s.Equal("District Court", r.Destination)
	}
}

func (s *PostgresRecordSuite) TestPropagateClearsConclusionOnReopen() {
	r := s.save(models.KindDeprecatedNotice, "7/24.0ABC")
	concluded := time.Now().UTC()
	r.OfficeReferenceNumber = "REF-1"
	r.ConcludedAt = &concluded
	s.Require().NoError(s.store.Save(s.ctx, r))

	affected, err := s.store.PropagateDisposition(s.ctx, "7/24.0ABC",
		"Internal Investigation Unit", true)
	s.Require().NoError(err)
	s.EqualValues(1, affected)

	got, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal("Internal Investigation Unit", got.Destination)
	s.Empty(got.OfficeReferenceNumber)
	s.Nil(got.ConcludedAt)
}

func (s *PostgresRecordSuite) TestPropagateNoMatchAffectsZero() {
	s.save(models.KindCorrespondence, "7/24 .0ABC")

	affected, err := s.store.PropagateDisposition(s.ctx, "7/24.0ABC", "District Court", false)
	s.Require().NoError(err)
	s.Zero(affected)
}

func (s *PostgresRecordSuite) TestFindMissingRecord() {
	_, err := s.store.FindByID(s.ctx, uuid.New())
	s.Error(err)
}
