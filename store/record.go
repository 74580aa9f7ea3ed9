package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tsawler/certscore/features"
	"github.com/tsawler/certscore/scoring"
)

// Record is one stored certificate validation
type Record struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	CertificateType   features.CertificateType `json:"certificate_type"`
	IssuingAuthority  features.Authority       `json:"issuing_authority"`
	CertificateNumber string                   `json:"certificate_number"`
	ValidityDate      string                   `json:"validity_date"`
	FarmSize          *float64                 `json:"farm_size"`

	FinalScore      float64           `json:"final_score"`
	Grade           string            `json:"grade"`
	Reliability     string            `json:"reliability"`
	Recommendations []string          `json:"recommendations"`
	Features        features.Features `json:"extracted_features"`

	RawText string `json:"raw_text,omitempty"`
}

// NewRecord builds a record from a scoring result and the text it came from
func NewRecord(res scoring.Result, text string) *Record {
	f := res.Features
	return &Record{
		CertificateType:   f.CertificateType,
		IssuingAuthority:  f.IssuingAuthority,
		CertificateNumber: f.CertificateNumber,
		ValidityDate:      f.ValidityDate,
		FarmSize:          f.FarmSize,
		FinalScore:        res.FinalScore,
		Grade:             res.Grade,
		Reliability:       res.Reliability,
		Recommendations:   append([]string(nil), res.Recommendations...),
		Features:          f,
		RawText:           text,
	}
}

// Save inserts rec, assigning an id and creation time when unset
func (r *Repository) Save(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	recs, err := json.Marshal(nonNil(rec.Recommendations))
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}
	feats, err := json.Marshal(rec.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	var farmSize sql.NullFloat64
	if rec.FarmSize != nil {
		farmSize = sql.NullFloat64{Float64: *rec.FarmSize, Valid: true}
	}

	const q = `
insert into certificate_validations (
  id, created_at, certificate_type, issuing_authority, certificate_number,
  validity_date, farm_size, final_score, grade, reliability,
  recommendations, features, raw_text
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err = r.db.ExecContext(ctx, r.rebind(q),
		rec.ID.String(), rec.CreatedAt, string(rec.CertificateType), string(rec.IssuingAuthority), rec.CertificateNumber,
		rec.ValidityDate, farmSize, rec.FinalScore, rec.Grade, rec.Reliability,
		string(recs), string(feats), rec.RawText,
	)
	if err != nil {
		return fmt.Errorf("insert validation: %w", err)
	}
	r.logger.Debug("store.save", "id", rec.ID, "grade", rec.Grade)
	return nil
}

const selectColumns = `
select id, created_at, certificate_type, issuing_authority, certificate_number,
       validity_date, farm_size, final_score, grade, reliability,
       recommendations, features, raw_text
from certificate_validations`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec       Record
		id        string
		certType  string
		authority string
		farmSize  sql.NullFloat64
		recsJSON  string
		featsJSON string
	)
	if err := row.Scan(&id, &rec.CreatedAt, &certType, &authority, &rec.CertificateNumber,
		&rec.ValidityDate, &farmSize, &rec.FinalScore, &rec.Grade, &rec.Reliability,
		&recsJSON, &featsJSON, &rec.RawText); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("bad record id %q: %w", id, err)
	}
	rec.ID = parsed
	rec.CertificateType = features.CertificateType(certType)
	rec.IssuingAuthority = features.Authority(authority)
	if farmSize.Valid {
		v := farmSize.Float64
		rec.FarmSize = &v
	}
	if err := json.Unmarshal([]byte(recsJSON), &rec.Recommendations); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}
	if err := json.Unmarshal([]byte(featsJSON), &rec.Features); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	return &rec, nil
}

// Get loads the record with the given id
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(selectColumns+` where id = $1`), id.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load validation %s: %w", id, err)
	}
	return rec, nil
}

// List returns up to limit records, newest first
func (r *Repository) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, r.rebind(selectColumns+` order by created_at desc limit $1`), limit)
	if err != nil {
		return nil, fmt.Errorf("list validations: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
