package database

import (
	"context"
	"database/sql"
	"fmt"

	"incident-feed-service/models"
)

// UpsertVote records a voter's vote on a report. A second vote from the
// same voter replaces the first; the unique key on (report_id, voter_id)
// makes the replacement atomic under concurrent casts.
func (d *Database) UpsertVote(ctx context.Context, vote *models.Vote) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO report_votes (report_id, voter_id, value)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value)`,
		vote.ReportID, vote.VoterID, vote.Value)
	if err != nil {
		return fmt.Errorf("failed to upsert vote: %w", err)
	}
	return nil
}

// GetVoteSummary aggregates the votes of a single report, including the
// viewer's own vote. An empty viewerID matches no rows and leaves
// ViewerVote unset.
func (d *Database) GetVoteSummary(ctx context.Context, reportID int64, viewerID string) (models.VoteSummary, error) {
	var (
		summary    models.VoteSummary
		viewerVote sql.NullInt64
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(value), 0) AS score,
			COALESCE(SUM(value = 1), 0) AS upvotes,
			COALESCE(SUM(value = -1), 0) AS downvotes,
			MAX(CASE WHEN voter_id = ? THEN value END) AS viewer_vote
		FROM report_votes
		WHERE report_id = ?`,
		viewerID, reportID).
		Scan(&summary.Score, &summary.Upvotes, &summary.Downvotes, &viewerVote)
	if err != nil {
		return models.VoteSummary{}, fmt.Errorf("failed to aggregate votes for report %d: %w", reportID, err)
	}
	if viewerVote.Valid {
		v := int(viewerVote.Int64)
		summary.ViewerVote = &v
	}
	return summary, nil
}

// GetVoteSummaries aggregates the whole vote relation grouped by report
// in one pass, so a feed request costs a single round-trip regardless of
// how many reports it returns. Reports with no votes are simply absent
// from the map.
func (d *Database) GetVoteSummaries(ctx context.Context, viewerID string) (map[int64]models.VoteSummary, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			report_id,
			COALESCE(SUM(value), 0) AS score,
			COALESCE(SUM(value = 1), 0) AS upvotes,
			COALESCE(SUM(value = -1), 0) AS downvotes,
			MAX(CASE WHEN voter_id = ? THEN value END) AS viewer_vote
		FROM report_votes
		GROUP BY report_id`,
		viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate votes: %w", err)
	}
	defer rows.Close()

	summaries := make(map[int64]models.VoteSummary)
	for rows.Next() {
		var (
			reportID   int64
			summary    models.VoteSummary
			viewerVote sql.NullInt64
		)
		if err := rows.Scan(&reportID, &summary.Score, &summary.Upvotes,
			&summary.Downvotes, &viewerVote); err != nil {
			return nil, fmt.Errorf("failed to scan vote aggregate: %w", err)
		}
		if viewerVote.Valid {
			v := int(viewerVote.Int64)
			summary.ViewerVote = &v
		}
		summaries[reportID] = summary
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vote aggregates: %w", err)
	}
	return summaries, nil
}

// GetVotesForReport lists the raw vote rows of one report.
func (d *Database) GetVotesForReport(ctx context.Context, reportID int64) ([]models.Vote, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT report_id, voter_id, value
		FROM report_votes
		WHERE report_id = ?`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes for report %d: %w", reportID, err)
	}
	defer rows.Close()

	votes := make([]models.Vote, 0)
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.ReportID, &v.VoterID, &v.Value); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating votes: %w", err)
	}
	return votes, nil
}
