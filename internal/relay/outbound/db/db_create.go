package db

import (
	"context"

	"github.com/metafog/freesend/internal/relay/entity"
)

const createEmailRecordQuery = `
INSERT INTO emails (id, api_key_id, tenant_id, "from", "to", subject, text_body, html_body, attachments_metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// CreateEmailRecord appends one delivery row to the audit log.
func (s *DB) CreateEmailRecord(ctx context.Context, rec entity.EmailRecord) (err error) {
	ctx, span := s.startSpan(ctx, "CreateEmailRecord")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, createEmailRecordQuery,
		rec.ID,
		rec.ApiKeyID,
		rec.TenantID,
		rec.From,
		rec.To,
		rec.Subject,
		rec.TextBody,
		rec.HTMLBody,
		rec.AttachmentsMetadata,
		rec.CreatedAt,
	)
	return s.mapError(err)
}
