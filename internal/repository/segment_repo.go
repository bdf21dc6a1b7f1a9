package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bertybuttface/sponsorblock-mirror/internal/model"
)

// LiveTable is the name readers query. The reload pipeline swaps a freshly
// loaded table in under this name.
const LiveTable = "sponsorTimes"

// sponsorTimeColumns lists the live table's columns in declaration order
// (the same order as the snapshot CSV header).
const sponsorTimeColumns = `
	"videoID", "startTime", "endTime", "votes", COALESCE("locked", 0),
	COALESCE("incorrectVotes", 0), "UUID", COALESCE("userID", ''),
	COALESCE("timeSubmitted", 0), COALESCE("views", 0), COALESCE("category", ''),
	COALESCE("actionType", ''), COALESCE("service", ''), COALESCE("videoDuration", 0),
	COALESCE("hidden", 0), COALESCE("reputation", 0), COALESCE("shadowHidden", 0),
	COALESCE("hashedVideoID", ''), COALESCE("userAgent", ''), COALESCE("description", '')`

// visibleFilter excludes hidden, shadow-hidden and downvoted rows and
// restricts to the requested categories ($1).
const visibleFilter = `
	COALESCE("shadowHidden", 0) = 0
	AND COALESCE("hidden", 0) = 0
	AND "votes" >= 0
	AND "category" = ANY($1)`

type SegmentRepo struct {
	pool *pgxpool.Pool
}

func NewSegmentRepo(pool *pgxpool.Pool) *SegmentRepo {
	return &SegmentRepo{pool: pool}
}

// FindByHashPrefix returns every visible row whose hashed video ID starts
// with prefix. Several videos can share a 4-character prefix.
func (r *SegmentRepo) FindByHashPrefix(ctx context.Context, prefix string, categories []string) ([]model.SponsorTime, error) {
	query := `SELECT` + sponsorTimeColumns + `
		FROM "sponsorTimes"
		WHERE` + visibleFilter + `
		  AND "hashedVideoID" LIKE $2 || '%'`

	rows, err := r.pool.Query(ctx, query, categories, prefix)
	if err != nil {
		return nil, err
	}
	return collectSponsorTimes(rows)
}

// FindByVideoID returns every visible row of a single video.
func (r *SegmentRepo) FindByVideoID(ctx context.Context, videoID string, categories []string) ([]model.SponsorTime, error) {
	query := `SELECT` + sponsorTimeColumns + `
		FROM "sponsorTimes"
		WHERE` + visibleFilter + `
		  AND "videoID" = $2`

	rows, err := r.pool.Query(ctx, query, categories, videoID)
	if err != nil {
		return nil, err
	}
	return collectSponsorTimes(rows)
}

// Count returns the number of rows in the live table.
func (r *SegmentRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM "sponsorTimes"`).Scan(&n)
	return n, err
}

func collectSponsorTimes(rows pgx.Rows) ([]model.SponsorTime, error) {
	defer rows.Close()

	var out []model.SponsorTime
	for rows.Next() {
		var st model.SponsorTime
		err := rows.Scan(
			&st.VideoID, &st.StartTime, &st.EndTime, &st.Votes, &st.Locked,
			&st.IncorrectVotes, &st.UUID, &st.UserID,
			&st.TimeSubmitted, &st.Views, &st.Category,
			&st.ActionType, &st.Service, &st.VideoDuration,
			&st.Hidden, &st.Reputation, &st.ShadowHidden,
			&st.HashedVideoID, &st.UserAgent, &st.Description,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
