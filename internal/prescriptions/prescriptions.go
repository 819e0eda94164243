package prescriptions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/armahpen/backend-smilepill/internal/users"
)

// Status is the review lifecycle of a prescription.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// Prescription is a submitted prescription with its review state. User is
// the submitter; Reviewer is set once a pharmacist has reviewed it.
type Prescription struct {
	ID               string      `json:"id"`
	UserID           string      `json:"user_id"`
	PatientName      string      `json:"patient_name"`
	DoctorName       string      `json:"doctor_name"`
	PrescriptionDate time.Time   `json:"prescription_date"`
	Medications      string      `json:"medications"`
	ImageURLs        []string    `json:"image_urls"`
	Status           Status      `json:"status"`
	ReviewNotes      *string     `json:"review_notes,omitempty"`
	ReviewedBy       *string     `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time  `json:"reviewed_at,omitempty"`
	User             *users.User `json:"user,omitempty"`
	Reviewer         *users.User `json:"reviewer,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type NewPrescription struct {
	UserID           string
	PatientName      string
	DoctorName       string
	PrescriptionDate time.Time
	Medications      string
	ImageURLs        []string
}

// Conf provides data access for prescriptions.
type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

// CreatePrescription inserts a pending prescription for the submitting user.
func (c *Conf) CreatePrescription(ctx context.Context, np NewPrescription) (Prescription, error) {
	imageJSON, err := json.Marshal(np.ImageURLs)
	if err != nil {
		return Prescription{}, fmt.Errorf("failed to marshal image urls: %w", err)
	}
	query := `
		INSERT INTO prescriptions (id, user_id, patient_name, doctor_name, prescription_date,
		                           medications, image_urls, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	p := Prescription{
		UserID:           np.UserID,
		PatientName:      np.PatientName,
		DoctorName:       np.DoctorName,
		PrescriptionDate: np.PrescriptionDate,
		Medications:      np.Medications,
		ImageURLs:        np.ImageURLs,
		Status:           StatusPending,
	}
	err = c.db.QueryRowContext(ctx, query,
		uuid.NewString(), np.UserID, np.PatientName, np.DoctorName, np.PrescriptionDate,
		np.Medications, imageJSON, StatusPending).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Prescription{}, fmt.Errorf("failed to insert prescription: %w", err)
	}
	return p, nil
}

// GetPrescriptions returns all prescriptions, optionally filtered to one
// user, newest first. Each row is enriched with the submitting user and, if
// present, the reviewing user; the inner join drops rows whose submitter
// cannot be resolved, which foreign keys should already prevent.
func (c *Conf) GetPrescriptions(ctx context.Context, userID *string) ([]Prescription, error) {
	query := `
		SELECT p.id, p.user_id, p.patient_name, p.doctor_name, p.prescription_date,
		       p.medications, p.image_urls, p.status, p.review_notes, p.reviewed_by, p.reviewed_at,
		       p.created_at, p.updated_at,
		       u.id, u.username, u.email,
		       r.id, r.username, r.email
		FROM prescriptions p
		JOIN users u ON u.id = p.user_id
		LEFT JOIN users r ON r.id = p.reviewed_by`
	args := []any{}
	if userID != nil {
		query += ` WHERE p.user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY p.created_at DESC`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prescriptions: %w", err)
	}
	defer rows.Close()

	list := []Prescription{}
	for rows.Next() {
		var p Prescription
		var imageJSON []byte
		var notes, reviewedBy sql.NullString
		var reviewedAt sql.NullTime
		var subID string
		var subUsername, subEmail sql.NullString
		var revID, revUsername, revEmail sql.NullString

		err := rows.Scan(&p.ID, &p.UserID, &p.PatientName, &p.DoctorName, &p.PrescriptionDate,
			&p.Medications, &imageJSON, &p.Status, &notes, &reviewedBy, &reviewedAt,
			&p.CreatedAt, &p.UpdatedAt,
			&subID, &subUsername, &subEmail,
			&revID, &revUsername, &revEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prescription: %w", err)
		}

		if len(imageJSON) > 0 {
			if err := json.Unmarshal(imageJSON, &p.ImageURLs); err != nil {
				return nil, fmt.Errorf("failed to unmarshal image urls: %w", err)
			}
		}
		if p.ImageURLs == nil {
			p.ImageURLs = []string{}
		}
		if notes.Valid {
			p.ReviewNotes = &notes.String
		}
		if reviewedBy.Valid {
			p.ReviewedBy = &reviewedBy.String
		}
		if reviewedAt.Valid {
			p.ReviewedAt = &reviewedAt.Time
		}
		p.User = &users.User{ID: subID, Username: nullable(subUsername), Email: nullable(subEmail)}
		if revID.Valid {
			p.Reviewer = &users.User{ID: revID.String, Username: nullable(revUsername), Email: nullable(revEmail)}
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prescriptions: %w", err)
	}
	return list, nil
}

// UpdatePrescriptionStatus records a review: status, notes, reviewer and the
// review timestamp are written together. Re-reviewing overwrites the prior
// review data.
func (c *Conf) UpdatePrescriptionStatus(ctx context.Context, id string, status Status, notes *string, reviewerID string) error {
	query := `
		UPDATE prescriptions
		SET status = $2, review_notes = $3, reviewed_by = $4, reviewed_at = NOW(), updated_at = NOW()
		WHERE id = $1`
	res, err := c.db.ExecContext(ctx, query, id, status, notes, reviewerID)
	if err != nil {
		return fmt.Errorf("failed to update prescription status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
