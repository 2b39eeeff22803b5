package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const reportColumns = `
	r.report_id,
	r.report_uuid::text,
	r.report_type,
	r.title,
	r.description,
	r.category,
	r.location_label,
	r.latitude,
	r.longitude,
	r.occurred_at,
	r.images,
	r.owner_uuid,
	r.status,
	r.created_at,
	r.updated_at`

func scanReport(s matchScanner) (*Report, error) {
	var (
		r         Report
		imagesRaw []byte
	)
	if err := s.Scan(
		&r.ReportID,
		&r.ReportUUID,
		&r.ReportType,
		&r.Title,
		&r.Description,
		&r.Category,
		&r.LocationLabel,
		&r.Latitude,
		&r.Longitude,
		&r.OccurredAt,
		&imagesRaw,
		&r.OwnerUUID,
		&r.Status,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(imagesRaw) > 0 {
		r.Images = json.RawMessage(imagesRaw)
	}
	return &r, nil
}

func (p *Pool) GetReportByUUID(ctx context.Context, reportUUID string) (*Report, error) {
	q := `SELECT ` + reportColumns + ` FROM matching.reports r WHERE r.report_uuid = $1::uuid`
	return scanReport(p.QueryRow(ctx, q, reportUUID))
}

// ReportUpsert carries one ingest payload into the report mirror.
type ReportUpsert struct {
	ReportUUID    string
	ReportType    string
	Title         string
	Description   string
	Category      string
	LocationLabel string
	Latitude      *float64
	Longitude     *float64
	OccurredAt    *time.Time
	Images        json.RawMessage
	OwnerUUID     string
	Status        string
}

// UpsertReport refreshes the mirror row for one report. report_type is
// immutable: the guarded DO UPDATE applies only when the payload type matches
// the stored row, so a type-flipping payload mutates nothing. The existing
// row comes back unchanged and the caller compares its type against the
// payload to reject the change.
func (p *Pool) UpsertReport(ctx context.Context, upsert ReportUpsert) (*Report, error) {
	const q = `
INSERT INTO matching.reports (
	report_uuid,
	report_type,
	title,
	description,
	category,
	location_label,
	latitude,
	longitude,
	occurred_at,
	images,
	owner_uuid,
	status
)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12)
ON CONFLICT (report_uuid)
DO UPDATE SET
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	category = EXCLUDED.category,
	location_label = EXCLUDED.location_label,
	latitude = EXCLUDED.latitude,
	longitude = EXCLUDED.longitude,
	occurred_at = EXCLUDED.occurred_at,
	images = EXCLUDED.images,
	owner_uuid = EXCLUDED.owner_uuid,
	status = EXCLUDED.status,
	updated_at = now()
WHERE matching.reports.report_type = EXCLUDED.report_type
RETURNING
	report_id,
	report_uuid::text,
	report_type,
	title,
	description,
	category,
	location_label,
	latitude,
	longitude,
	occurred_at,
	images,
	owner_uuid,
	status,
	created_at,
	updated_at`

	images := upsert.Images
	if len(images) == 0 {
		images = json.RawMessage("[]")
	}

	report, err := scanReport(p.QueryRow(ctx, q,
		upsert.ReportUUID,
		upsert.ReportType,
		upsert.Title,
		upsert.Description,
		upsert.Category,
		upsert.LocationLabel,
		upsert.Latitude,
		upsert.Longitude,
		upsert.OccurredAt,
		string(images),
		upsert.OwnerUUID,
		upsert.Status,
	))
	if err == nil {
		return report, nil
	}
	if !IsNoRows(err) {
		return nil, fmt.Errorf("upsert report: %w", err)
	}

	// The conflict target matched but the payload tried to change the type,
	// so the guarded update touched nothing and RETURNING produced no row.
	existing, err := p.GetReportByUUID(ctx, upsert.ReportUUID)
	if err != nil {
		return nil, fmt.Errorf("fetch report after rejected upsert: %w", err)
	}
	return existing, nil
}

// CandidateFilter bounds the pre-filter query for candidate generation.
// Time and bounding-box constraints are soft: candidates missing the
// corresponding attribute still pass, because they can match on the
// remaining signals.
type CandidateFilter struct {
	ReportType   string
	ExcludeUUID  string
	OccurredFrom *time.Time
	OccurredTo   *time.Time
	MinLat       *float64
	MaxLat       *float64
	MinLon       *float64
	MaxLon       *float64
	Limit        int
}

func (p *Pool) FindCandidateReports(ctx context.Context, filter CandidateFilter) ([]*Report, error) {
	if filter.Limit <= 0 {
		return nil, fmt.Errorf("candidate limit must be > 0")
	}

	q := `SELECT ` + reportColumns + `
FROM matching.reports r
WHERE r.report_type = $1
  AND r.status = 'approved'
  AND r.report_uuid <> $2::uuid
  AND (
	$3::timestamptz IS NULL
	OR r.occurred_at IS NULL
	OR (r.occurred_at >= $3 AND r.occurred_at <= $4)
  )
  AND (
	$5::double precision IS NULL
	OR r.latitude IS NULL
	OR r.longitude IS NULL
	OR (r.latitude BETWEEN $5 AND $6 AND r.longitude BETWEEN $7 AND $8)
  )
ORDER BY r.created_at DESC
LIMIT $9
`
	rows, err := p.Query(ctx, q,
		filter.ReportType,
		filter.ExcludeUUID,
		filter.OccurredFrom,
		filter.OccurredTo,
		filter.MinLat,
		filter.MaxLat,
		filter.MinLon,
		filter.MaxLon,
		filter.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query candidate reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*Report, 0, filter.Limit)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate reports: %w", err)
	}
	return reports, nil
}
