package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/hkakademi/media/internal/model"
)

var (
	ErrMediaNotFound = errors.New("media not found")
)

type MediaRepository interface {
	Create(media *model.Media) (*model.Media, error)
	ByID(id int64) (*model.Media, error)
	ByEntity(ref model.EntityRef) ([]*model.Media, error)
	CoverFor(ref model.EntityRef) (*model.Media, error)
	CountByEntity(ref model.EntityRef, mediaType model.MediaType) (int, error)
	NextDisplayOrder(ref model.EntityRef, mediaType model.MediaType) (int, error)
	UpdateDisplayOrder(id int64, order int) error
	Delete(id int64) error
}

type mediaRepository struct {
	db *sqlx.DB
}

func NewMediaRepository(db *sqlx.DB) *mediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Create(media *model.Media) (*model.Media, error) {
	// RETURNING works on both sqlite and postgres; LastInsertId does not
	// exist in the pgx stdlib driver.
	query := `INSERT INTO media (entity_type, entity_id, media_type, url, thumbnail_url, original_name, mime_type, file_size, width, height, display_order, variants, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	          RETURNING id`

	err := r.db.QueryRow(query,
		media.EntityType,
		media.EntityID,
		media.MediaType,
		media.URL,
		media.ThumbnailURL,
		media.OriginalName,
		media.MimeType,
		media.FileSize,
		media.Width,
		media.Height,
		media.DisplayOrder,
		media.Variants,
		media.CreatedAt,
	).Scan(&media.ID)
	if err != nil {
		return nil, err
	}

	return media, nil
}

func (r *mediaRepository) ByID(id int64) (*model.Media, error) {
	media := &model.Media{}
	query := `SELECT * FROM media WHERE id = $1`

	err := r.db.Get(media, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrMediaNotFound
	}

	return media, err
}

func (r *mediaRepository) ByEntity(ref model.EntityRef) ([]*model.Media, error) {
	var media []*model.Media
	query := `SELECT * FROM media WHERE entity_type = $1 AND entity_id = $2 ORDER BY media_type ASC, display_order ASC`

	err := r.db.Select(&media, query, ref.Type, ref.ID)
	if err != nil {
		return nil, err
	}

	return media, nil
}

func (r *mediaRepository) CoverFor(ref model.EntityRef) (*model.Media, error) {
	media := &model.Media{}
	query := `SELECT * FROM media WHERE entity_type = $1 AND entity_id = $2 AND media_type = $3 LIMIT 1`

	err := r.db.Get(media, query, ref.Type, ref.ID, model.MediaCover)
	if err == sql.ErrNoRows {
		return nil, ErrMediaNotFound
	}

	return media, err
}

func (r *mediaRepository) CountByEntity(ref model.EntityRef, mediaType model.MediaType) (int, error) {
	var count int
	query := `SELECT count(*) FROM media WHERE entity_type = $1 AND entity_id = $2 AND media_type = $3`

	err := r.db.Get(&count, query, ref.Type, ref.ID, mediaType)
	return count, err
}

func (r *mediaRepository) NextDisplayOrder(ref model.EntityRef, mediaType model.MediaType) (int, error) {
	var next int
	query := `SELECT COALESCE(MAX(display_order), -1) + 1 FROM media WHERE entity_type = $1 AND entity_id = $2 AND media_type = $3`

	err := r.db.Get(&next, query, ref.Type, ref.ID, mediaType)
	return next, err
}

func (r *mediaRepository) UpdateDisplayOrder(id int64, order int) error {
	query := `UPDATE media SET display_order = $1 WHERE id = $2`
	res, err := r.db.Exec(query, order, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrMediaNotFound
	}
	return nil
}

func (r *mediaRepository) Delete(id int64) error {
	query := `DELETE FROM media WHERE id = $1`
	_, err := r.db.Exec(query, id)
	return err
}
