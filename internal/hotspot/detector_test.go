package hotspot

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"caseflow/internal/cases/models"
	"caseflow/internal/cases/store"
)

type DetectorSuite struct {
	suite.Suite
}

func TestDetectorSuite(t *testing.T) {
	suite.Run(t, new(DetectorSuite))
}

// at offsets points north of a base coordinate by roughly the given
// number of meters. One degree of latitude is about 111320 m.
func at(crimeType string, northMeters float64) Point {
	return Point{
		ID:        uuid.New(),
		CrimeType: crimeType,
		Latitude:  41.1496 + northMeters/111320.0,
		Longitude: -8.6110,
	}
}

func (s *DetectorSuite) TestTheftClusterExcludesOutlier() {
	// Four thefts within a couple hundred meters, one 600m away.
	close1 := at("theft", 0)
	close2 := at("theft", 120)
	close3 := at("theft", 250)
	close4 := at("theft", 400)
	outlier := at("theft", 600)

	clusters := Detect([]Point{close1, close2, close3, close4, outlier})

	s.Require().Len(clusters, 1)
	s.Equal("theft", clusters[0].CrimeType)
	s.Len(clusters[0].MemberIDs, 4)
	s.NotContains(clusters[0].MemberIDs, outlier.ID)
}

func (s *DetectorSuite) TestPairBelowMinimumNotReported() {
	clusters := Detect([]Point{at("burglary", 0), at("burglary", 100)})
	s.Empty(clusters)
}

func (s *DetectorSuite) TestCrimeTypesNeverMix() {
	points := []Point{
		at("theft", 0), at("burglary", 10),
		at("theft", 20), at("burglary", 30),
		at("theft", 40), at("burglary", 50),
	}

	clusters := Detect(points)

	s.Require().Len(clusters, 2)
	for _, c := range clusters {
		s.Len(c.MemberIDs, 3)
	}
	s.Equal("theft", clusters[0].CrimeType)
	s.Equal("burglary", clusters[1].CrimeType)
}

func (s *DetectorSuite) TestMembershipIsSeedRelative() {
	// b and c are within 500m of seed a; d is within 500m of c but not
	// of a, so it stays out of a's cluster.
	a := at("theft", 0)
	b := at("theft", 300)
	c := at("theft", 480)
	d := at("theft", 900)

	clusters := Detect([]Point{a, b, c, d})

	s.Require().Len(clusters, 1)
	s.ElementsMatch([]uuid.UUID{a.ID, b.ID, c.ID}, clusters[0].MemberIDs)
}

func (s *DetectorSuite) TestReleasedPointsJoinLaterCluster() {
	// The first seed only reaches one neighbor, so its pair is released;
	// the next seed reaches both released points and the rest.
	first := at("theft", 0)
	mid := at("theft", 450)
	far1 := at("theft", 800)
	far2 := at("theft", 850)

	clusters := Detect([]Point{first, mid, far1, far2})

	s.Require().Len(clusters, 1)
	s.ElementsMatch([]uuid.UUID{first.ID, mid.ID, far1.ID, far2.ID},
		clusters[0].MemberIDs)
}

func (s *DetectorSuite) TestReleasedPointBehindSeedStillCollected() {
	// a seeds {a,b}, too small, released. b then seeds and must reach
	// back to a as well as forward to c and d.
	a := at("theft", 0)
	b := at("theft", 400)
	c := at("theft", 840)
	d := at("theft", 880)

	clusters := Detect([]Point{a, b, c, d})

	s.Require().Len(clusters, 1)
	s.ElementsMatch([]uuid.UUID{a.ID, b.ID, c.ID, d.ID}, clusters[0].MemberIDs)
}

func (s *DetectorSuite) TestDescriptionNamesSizeAndType() {
	clusters := Detect([]Point{at("theft", 0), at("theft", 50), at("theft", 100)})
	s.Require().Len(clusters, 1)
	s.Equal("3 theft cases within 500m", clusters[0].Description)
}

func (s *DetectorSuite) TestServiceLoadsGeolocatedCases() {
	cases := store.NewInMemory()
	ctx := context.Background()
	for _, m := range []float64{0, 100, 200} {
		p := at("theft", m)
		lat, lng := p.Latitude, p.Longitude
		s.Require().NoError(cases.Create(ctx, &models.Case{
			CaseNumber: "1/24.0AAA",
			State:      models.StatePending,
			CrimeType:  "theft",
			Latitude:   &lat,
			Longitude:  &lng,
		}))
	}
	// No coordinates, never considered.
	s.Require().NoError(cases.Create(ctx, &models.Case{
		CaseNumber: "2/24.0BBB",
		State:      models.StatePending,
		CrimeType:  "theft",
	}))

	svc := NewService(cases)
	clusters, err := svc.DetectFromStore(ctx)
	s.Require().NoError(err)
	s.Require().Len(clusters, 1)
	s.Len(clusters[0].MemberIDs, 3)
}
