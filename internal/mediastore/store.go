package mediastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aura-telephony/backend/internal/models"
	"github.com/aura-telephony/backend/pkg/storage"
)

// Store persists media metadata documents in Postgres and resolves
// canonical storage URLs against the platform S3 bucket. Document IDs
// are deterministic per call, so saves are upserts: re-recording a call
// overwrites its document, never duplicates it.
type Store struct {
	pool   *pgxpool.Pool
	s3     *storage.S3
	logger *zap.Logger
}

// NewStore creates a media document store.
func NewStore(pool *pgxpool.Pool, s3 *storage.S3, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, s3: s3, logger: logger}
}

// SaveDocument upserts the metadata document keyed by its deterministic ID.
func (s *Store) SaveDocument(ctx context.Context, accountID string, doc models.MediaDocument) (models.MediaDocument, error) {
	doc.AccountID = accountID
	const q = `INSERT INTO media_documents
		(id, account_id, name, description, content_type, media_type, media_source, source_type,
		 visibility, from_number, to_number, caller_id_name, caller_id_number, call_id, remote_media_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			content_type = EXCLUDED.content_type,
			media_type = EXCLUDED.media_type,
			media_source = EXCLUDED.media_source,
			source_type = EXCLUDED.source_type,
			visibility = EXCLUDED.visibility,
			from_number = EXCLUDED.from_number,
			to_number = EXCLUDED.to_number,
			caller_id_name = EXCLUDED.caller_id_name,
			caller_id_number = EXCLUDED.caller_id_number,
			call_id = EXCLUDED.call_id,
			remote_media_url = EXCLUDED.remote_media_url,
			updated_at = NOW()
		RETURNING created_at, updated_at`
	err := s.pool.QueryRow(ctx, q,
		doc.ID, doc.AccountID, doc.Name, doc.Description, doc.ContentType, doc.MediaType,
		doc.MediaSource, doc.SourceType, doc.Visibility, doc.From, doc.To,
		doc.CallerIDName, doc.CallerIDNumber, doc.CallID, nullable(doc.RemoteMediaURL),
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return models.MediaDocument{}, fmt.Errorf("upsert media document %s: %w", doc.ID, err)
	}
	s.logger.Debug("media document saved",
		zap.String("doc_id", doc.ID), zap.String("account_id", accountID),
		zap.String("visibility", doc.Visibility))
	return doc, nil
}

// GetDocument returns the metadata document for a call, or nil when none exists.
func (s *Store) GetDocument(ctx context.Context, accountID, docID string) (*models.MediaDocument, error) {
	const q = `SELECT id, account_id, name, description, content_type, media_type, media_source,
		source_type, visibility, from_number, to_number, caller_id_name, caller_id_number,
		call_id, COALESCE(remote_media_url, ''), created_at, updated_at
		FROM media_documents WHERE id = $1 AND account_id = $2`
	var doc models.MediaDocument
	err := s.pool.QueryRow(ctx, q, docID, accountID).Scan(
		&doc.ID, &doc.AccountID, &doc.Name, &doc.Description, &doc.ContentType, &doc.MediaType,
		&doc.MediaSource, &doc.SourceType, &doc.Visibility, &doc.From, &doc.To,
		&doc.CallerIDName, &doc.CallerIDNumber, &doc.CallID, &doc.RemoteMediaURL,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get media document %s: %w", docID, err)
	}
	return &doc, nil
}

// CanonicalURL resolves the platform storage URL for a document's media.
func (s *Store) CanonicalURL(ctx context.Context, accountID, docID, mediaName string) (string, error) {
	if s.s3 == nil {
		return "", fmt.Errorf("platform media store not configured")
	}
	return s.s3.ObjectURL(storage.MediaKey(accountID, mediaName)), nil
}

// Touch bumps a document's updated_at, marking late media arrival.
func (s *Store) Touch(ctx context.Context, docID string) error {
	const q = `UPDATE media_documents SET updated_at = $1 WHERE id = $2`
	_, err := s.pool.Exec(ctx, q, time.Now().UTC(), docID)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
