package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/completion-report-api/internal/models"
)

// PreferenceRepository persists user preferences in user_preferences.
type PreferenceRepository struct {
	db *sqlx.DB
}

// NewPreferenceRepository constructs the repository.
func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Get returns the stored value and whether one exists.
func (r *PreferenceRepository) Get(ctx context.Context, userID int64, name string) (string, bool, error) {
	query := r.db.Rebind(`SELECT value FROM user_preferences WHERE user_id = ? AND name = ?`)
	var value string
	if err := r.db.GetContext(ctx, &value, query, userID, name); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get user preference: %w", err)
	}
	return value, true, nil
}

// Set creates or updates a preference.
func (r *PreferenceRepository) Set(ctx context.Context, userID int64, name, value string) error {
	pref := models.UserPreference{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}

	const query = `INSERT INTO user_preferences (id, user_id, name, value, updated_at)
		VALUES (:id, :user_id, :name, :value, :updated_at)
		ON CONFLICT (user_id, name) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, pref); err != nil {
		return fmt.Errorf("upsert user preference: %w", err)
	}
	return nil
}
