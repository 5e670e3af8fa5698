// Package hotspot computes geographic clusters of cases sharing a crime
// type. Detection is a reporting view: it recomputes from scratch on every
// call over a bounded dataset.
package hotspot

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"caseflow/internal/cases/store"
	"caseflow/internal/platform/metrics"
	dErrors "caseflow/pkg/domain-errors"
)

const (
	// radiusMeters is the grouping distance around a seed point.
	radiusMeters = 500.0
	// minClusterSize is the smallest group worth reporting.
	minClusterSize = 3

	earthRadiusMeters = 6371000.0
)

// Point is one geolocated case.
type Point struct {
	ID        uuid.UUID `json:"id"`
	CrimeType string    `json:"crime_type"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// Cluster is a detected concentration of same-type cases.
type Cluster struct {
	CrimeType   string      `json:"crime_type"`
	MemberIDs   []uuid.UUID `json:"member_ids"`
	Description string      `json:"description"`
}

// Detect partitions points by crime type and groups each partition with a
// single pass: the first unvisited point becomes a seed and collects every
// unvisited point within the radius of the seed itself, not of each other.
// Groups below the minimum size are released back for later seeds, so
// membership depends on input order.
func Detect(points []Point) []Cluster {
	byType := make(map[string][]Point)
	var typeOrder []string
	for _, p := range points {
		if _, seen := byType[p.CrimeType]; !seen {
			typeOrder = append(typeOrder, p.CrimeType)
		}
		byType[p.CrimeType] = append(byType[p.CrimeType], p)
	}

	var clusters []Cluster
	for _, crimeType := range typeOrder {
		clusters = append(clusters, detectPartition(crimeType, byType[crimeType])...)
	}
	return clusters
}

func detectPartition(crimeType string, points []Point) []Cluster {
	visited := make([]bool, len(points))
	var clusters []Cluster

	for i, seed := range points {
		if visited[i] {
			continue
		}
		group := []int{i}
		for j := range points {
			if j == i || visited[j] {
				continue
			}
			if haversineMeters(seed.Latitude, seed.Longitude,
				points[j].Latitude, points[j].Longitude) <= radiusMeters {
				group = append(group, j)
			}
		}
		if len(group) < minClusterSize {
			// Too small; members stay available for a later seed.
			continue
		}

		members := make([]uuid.UUID, 0, len(group))
		for _, idx := range group {
			visited[idx] = true
			members = append(members, points[idx].ID)
		}
		clusters = append(clusters, Cluster{
			CrimeType: crimeType,
			MemberIDs: members,
			Description: fmt.Sprintf("%d %s cases within %dm",
				len(members), crimeType, int(radiusMeters)),
		})
	}
	return clusters
}

// haversineMeters is the great-circle distance between two coordinates.
func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const deg = math.Pi / 180
	dLat := (lat2 - lat1) * deg
	dLng := (lng2 - lng1) * deg
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*deg)*math.Cos(lat2*deg)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}

// Service runs detection over the geolocated cases in the store.
type Service struct {
	cases   store.CaseStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(cases store.CaseStore, opts ...Option) *Service {
	s := &Service{
		cases:  cases,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DetectFromStore loads every geolocated case with a crime type and
// clusters them.
func (s *Service) DetectFromStore(ctx context.Context) ([]Cluster, error) {
	cases, err := s.cases.List(ctx, store.Filter{Geolocated: true})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list geolocated cases")
	}

	points := make([]Point, 0, len(cases))
	for _, c := range cases {
		if c.CrimeType == "" || c.Latitude == nil || c.Longitude == nil {
			continue
		}
		points = append(points, Point{
			ID:        c.ID,
			CrimeType: c.CrimeType,
			Latitude:  *c.Latitude,
			Longitude: *c.Longitude,
		})
	}

	clusters := Detect(points)
	s.metrics.IncrementHotspot(len(clusters))
	s.logger.Info("hotspot detection completed",
		"points", len(points), "clusters", len(clusters))
	return clusters, nil
}
