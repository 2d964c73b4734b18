package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"coworkspace/internal/calendar"
)

// CredentialRepository keeps the calendar OAuth token in Postgres, sealed
// with the resource id as additional data so rows cannot be swapped.
type CredentialRepository struct {
	DB         *sql.DB
	resourceID string
	sealer     *Sealer
}

func NewCredentialRepository(db *sql.DB, resourceID string, sealer *Sealer) *CredentialRepository {
	return &CredentialRepository{DB: db, resourceID: resourceID, sealer: sealer}
}

func (r *CredentialRepository) Load(ctx context.Context) (*oauth2.Token, error) {
	var sealed []byte
	err := r.DB.QueryRowContext(ctx, `SELECT sealed FROM calendar_credentials WHERE resource_id = $1`, r.resourceID).Scan(&sealed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, calendar.ErrNoCredentials
		}
		return nil, fmt.Errorf("error loading calendar credentials: %w", err)
	}
	return openToken(r.sealer, sealed, r.resourceID)
}

func (r *CredentialRepository) Save(ctx context.Context, tok *oauth2.Token) error {
	sealed, err := sealToken(r.sealer, tok, r.resourceID)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO calendar_credentials (resource_id, sealed, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (resource_id) DO UPDATE SET sealed = EXCLUDED.sealed, updated_at = NOW()`
	if _, err := r.DB.ExecContext(ctx, query, r.resourceID, sealed); err != nil {
		return fmt.Errorf("error saving calendar credentials: %w", err)
	}
	return nil
}

func (r *CredentialRepository) Delete(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM calendar_credentials WHERE resource_id = $1`, r.resourceID); err != nil {
		return fmt.Errorf("error deleting calendar credentials: %w", err)
	}
	return nil
}

func sealToken(s *Sealer, tok *oauth2.Token, resourceID string) ([]byte, error) {
	if tok == nil {
		return nil, errors.New("token is nil")
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return nil, fmt.Errorf("error encoding token: %w", err)
	}
	return s.Seal(raw, []byte(resourceID))
}

func openToken(s *Sealer, sealed []byte, resourceID string) (*oauth2.Token, error) {
	raw, err := s.Open(sealed, []byte(resourceID))
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("error decoding token: %w", err)
	}
	return &tok, nil
}
