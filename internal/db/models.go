package db

import (
	"encoding/json"
	"time"
)

// Report maps matching.reports, a read mirror of the reports subsystem. The
// engine updates the mirror from ingest payloads and otherwise treats rows as
// read-only; report_type is immutable once a row exists.
type Report struct {
	ReportID      int64           `gorm:"column:report_id;primaryKey;autoIncrement"`
	ReportUUID    string          `gorm:"column:report_uuid;type:uuid;not null;unique"`
	ReportType    string          `gorm:"column:report_type;type:text;not null"`
	Title         string          `gorm:"column:title;type:text;not null"`
	Description   string          `gorm:"column:description;type:text;not null;default:''"`
	Category      string          `gorm:"column:category;type:text;not null;default:''"`
	LocationLabel string          `gorm:"column:location_label;type:text;not null;default:''"`
	Latitude      *float64        `gorm:"column:latitude;type:double precision"`
	Longitude     *float64        `gorm:"column:longitude;type:double precision"`
	OccurredAt    *time.Time      `gorm:"column:occurred_at;type:timestamptz"`
	Images        json.RawMessage `gorm:"column:images;type:jsonb"`
	OwnerUUID     string          `gorm:"column:owner_uuid;type:text;not null;default:''"`
	Status        string          `gorm:"column:status;type:text;not null;default:pending"`
	CreatedAt     time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Report) TableName() string { return "matching.reports" }

// ReportImage is one element of Report.Images.
type ReportImage struct {
	URL   string `json:"url"`
	PHash string `json:"phash,omitempty"`
}

// ImageList decodes the jsonb images column. Malformed payloads decode to an
// empty list rather than failing a scoring run.
func (r *Report) ImageList() []ReportImage {
	if r == nil || len(r.Images) == 0 {
		return nil
	}
	var images []ReportImage
	if err := json.Unmarshal(r.Images, &images); err != nil {
		return nil
	}
	return images
}

// Match maps matching.matches. One row per canonical report pair; the unique
// index on (source_report_uuid, candidate_report_uuid) backs the dedup guard.
type Match struct {
	MatchID             int64      `gorm:"column:match_id;primaryKey;autoIncrement"`
	MatchUUID           string     `gorm:"column:match_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	SourceReportUUID    string     `gorm:"column:source_report_uuid;type:uuid;not null;index:idx_matches_pair,unique"`
	CandidateReportUUID string     `gorm:"column:candidate_report_uuid;type:uuid;not null;index:idx_matches_pair,unique"`
	ScoreTotal          float64    `gorm:"column:score_total;type:double precision;not null"`
	ScoreGeo            *float64   `gorm:"column:score_geo;type:double precision"`
	ScoreTemporal       *float64   `gorm:"column:score_temporal;type:double precision"`
	ScoreText           *float64   `gorm:"column:score_text;type:double precision"`
	ScoreVisual         *float64   `gorm:"column:score_visual;type:double precision"`
	Status              string     `gorm:"column:status;type:text;not null;default:candidate"`
	ReviewedBy          *string    `gorm:"column:reviewed_by;type:text"`
	ReviewReason        *string    `gorm:"column:review_reason;type:text"`
	ViewedByUser        bool       `gorm:"column:viewed_by_user;type:boolean;not null;default:false"`
	CreatedAt           time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
	ReviewedAt          *time.Time `gorm:"column:reviewed_at;type:timestamptz"`
}

func (Match) TableName() string { return "matching.matches" }

func autoMigrateModels() []any {
	return []any{
		&Report{},
		&Match{},
	}
}
