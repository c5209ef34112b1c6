package repository

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// BacarKeyRepository stores device credentials. Password holds ciphertext at this layer.
type BacarKeyRepository interface {
	Create(ctx context.Context, key *domain.BacarKey) error
	Update(ctx context.Context, key *domain.BacarKey) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.BacarKey, error)
	List(ctx context.Context, search string) ([]domain.BacarKey, error)
}

type bacarKeyRepository struct {
	db DBTX
}

// NewBacarKeyRepository constructs repository.
func NewBacarKeyRepository(db DBTX) BacarKeyRepository {
	return &bacarKeyRepository{db: db}
}

const bacarKeyColumns = `id, device_user, username, password, notes, created_by_user_id, created_at, updated_at`

func (r *bacarKeyRepository) Create(ctx context.Context, key *domain.BacarKey) error {
	const query = `
        INSERT INTO bacar_keys (device_user, username, password, notes, created_by_user_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return translate(r.db.QueryRow(ctx, query,
		key.DeviceUser,
		key.Username,
		key.Password,
		key.Notes,
		key.CreatedByUserID,
	).Scan(&key.ID, &key.CreatedAt, &key.UpdatedAt))
}

func (r *bacarKeyRepository) Update(ctx context.Context, key *domain.BacarKey) error {
	const query = `
        UPDATE bacar_keys SET device_user=$1, username=$2, password=$3, notes=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	return translate(r.db.QueryRow(ctx, query,
		key.DeviceUser,
		key.Username,
		key.Password,
		key.Notes,
		key.ID,
	).Scan(&key.UpdatedAt))
}

func (r *bacarKeyRepository) Delete(ctx context.Context, id int64) error {
	return expectRow(r.db.Exec(ctx, `DELETE FROM bacar_keys WHERE id=$1`, id))
}

func (r *bacarKeyRepository) GetByID(ctx context.Context, id int64) (*domain.BacarKey, error) {
	key, err := scanBacarKey(r.db.QueryRow(ctx, `SELECT `+bacarKeyColumns+` FROM bacar_keys WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return key, nil
}

func (r *bacarKeyRepository) List(ctx context.Context, search string) ([]domain.BacarKey, error) {
	query := `SELECT ` + bacarKeyColumns + ` FROM bacar_keys`
	var args []any
	if term := strings.TrimSpace(search); term != "" {
		args = append(args, "%"+strings.ToLower(term)+"%")
		query += ` WHERE LOWER(device_user) LIKE $1 OR LOWER(username) LIKE $1`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.BacarKey
	for rows.Next() {
		key, err := scanBacarKey(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *key)
	}
	return result, rows.Err()
}

func scanBacarKey(row scanner) (*domain.BacarKey, error) {
	var key domain.BacarKey
	if err := row.Scan(
		&key.ID,
		&key.DeviceUser,
		&key.Username,
		&key.Password,
		&key.Notes,
		&key.CreatedByUserID,
		&key.CreatedAt,
		&key.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &key, nil
}
