package service

import (
	"context"
	"fmt"

	"github.com/bertybuttface/sponsorblock-mirror/internal/metrics"
	"github.com/bertybuttface/sponsorblock-mirror/internal/model"
)

// SegmentFinder is the read side of the mirrored table.
type SegmentFinder interface {
	FindByHashPrefix(ctx context.Context, prefix string, categories []string) ([]model.SponsorTime, error)
	FindByVideoID(ctx context.Context, videoID string, categories []string) ([]model.SponsorTime, error)
}

// OriginFetcher relays a lookup to the origin service.
type OriginFetcher interface {
	SkipSegmentsByHash(ctx context.Context, prefix, categories string) ([]byte, error)
	SkipSegmentsByVideoID(ctx context.Context, videoID, categories string) ([]byte, error)
}

// Categories is a validated category filter. Param is the query parameter
// as the client sent it (or the default) and is what gets forwarded to the
// origin.
type Categories struct {
	Names []string
	Param string
}

// HashLookup is the answer to a hash-prefix query: either reconciled
// Sponsors from the local table or the origin's body, relayed verbatim.
type HashLookup struct {
	Sponsors []model.Sponsor
	Relayed  []byte
}

// VideoLookup is the answer to an exact video ID query.
type VideoLookup struct {
	Segments []model.Segment
	Relayed  []byte
}

// SegmentService resolves skip-segment queries: local table first, origin
// only when the local answer is empty. Store errors never fall back.
type SegmentService struct {
	repo    SegmentFinder
	origin  OriginFetcher
	metrics *metrics.Collector
}

func NewSegmentService(repo SegmentFinder, origin OriginFetcher, m *metrics.Collector) *SegmentService {
	return &SegmentService{repo: repo, origin: origin, metrics: m}
}

// LookupByHashPrefix returns every reconciled video whose hashed ID starts
// with prefix. prefix must already be validated.
func (s *SegmentService) LookupByHashPrefix(ctx context.Context, prefix string, cats Categories) (*HashLookup, error) {
	if len(cats.Names) == 0 {
		return &HashLookup{Sponsors: []model.Sponsor{}}, nil
	}

	records, err := s.repo.FindByHashPrefix(ctx, prefix, cats.Names)
	if err != nil {
		return nil, fmt.Errorf("find by hash prefix: %w", err)
	}

	sponsors := Reconcile(records)
	if len(sponsors) > 0 {
		s.metrics.RecordSegmentsServed(countSegments(sponsors))
		return &HashLookup{Sponsors: sponsors}, nil
	}

	body, err := s.origin.SkipSegmentsByHash(ctx, prefix, cats.Param)
	if err != nil {
		return nil, err
	}
	return &HashLookup{Relayed: body}, nil
}

// LookupByVideoID returns the reconciled segments of a single video. A video
// ID identifies at most one video, so the Sponsor wrapper is dropped.
func (s *SegmentService) LookupByVideoID(ctx context.Context, videoID string, cats Categories) (*VideoLookup, error) {
	if len(cats.Names) == 0 {
		return &VideoLookup{Segments: []model.Segment{}}, nil
	}

	records, err := s.repo.FindByVideoID(ctx, videoID, cats.Names)
	if err != nil {
		return nil, fmt.Errorf("find by video id: %w", err)
	}

	sponsors := Reconcile(records)
	if len(sponsors) > 0 {
		s.metrics.RecordSegmentsServed(len(sponsors[0].Segments))
		return &VideoLookup{Segments: sponsors[0].Segments}, nil
	}

	body, err := s.origin.SkipSegmentsByVideoID(ctx, videoID, cats.Param)
	if err != nil {
		return nil, err
	}
	return &VideoLookup{Relayed: body}, nil
}

func countSegments(sponsors []model.Sponsor) int {
	n := 0
	for _, sp := range sponsors {
		n += len(sp.Segments)
	}
	return n
}
