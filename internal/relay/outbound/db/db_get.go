package db

import (
	"context"

	"github.com/metafog/freesend/internal/relay/entity"
)

const getSmtpConfigByTokenQuery = `
SELECT s.id, s.tenant_id, s.name, s.host, s.port, s.security, s."user", s.pass
FROM api_keys k
JOIN smtp_configs s ON s.id = k.smtp_config_id
WHERE k.token = $1 AND k.status <> 'deleted'
LIMIT 1`

// GetSmtpConfigByToken resolves the SMTP configuration linked to a bearer
// token. Tokens without a linked configuration behave like unknown tokens.
func (s *DB) GetSmtpConfigByToken(ctx context.Context, token string) (_ *entity.SmtpConfig, err error) {
	ctx, span := s.startSpan(ctx, "GetSmtpConfigByToken")
	defer func() { s.endSpan(span, err) }()

	var (
		result   entity.SmtpConfig
		security string
	)
	err = s.conn.QueryRow(ctx, getSmtpConfigByTokenQuery, token).Scan(
		&result.ID,
		&result.TenantID,
		&result.Name,
		&result.Host,
		&result.Port,
		&security,
		&result.Username,
		&result.Password,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	result.Security = entity.SecurityModeFromString(security)
	return &result, nil
}

const getApiKeyByTokenQuery = `
SELECT id, tenant_id, name, token, status, smtp_config_id, created_at
FROM api_keys
WHERE token = $1 AND status <> 'deleted'
LIMIT 1`

// GetApiKeyByToken looks up a bearer token regardless of whether it is linked
// to an SMTP configuration.
func (s *DB) GetApiKeyByToken(ctx context.Context, token string) (_ *entity.ApiKey, err error) {
	ctx, span := s.startSpan(ctx, "GetApiKeyByToken")
	defer func() { s.endSpan(span, err) }()

	var (
		result entity.ApiKey
		status string
	)
	err = s.conn.QueryRow(ctx, getApiKeyByTokenQuery, token).Scan(
		&result.ID,
		&result.TenantID,
		&result.Name,
		&result.Token,
		&status,
		&result.SmtpConfigID,
		&result.CreatedAt,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	result.Status = entity.KeyStatusFromString(status)
	return &result, nil
}

const getSmtpConfigByIDQuery = `
SELECT id, tenant_id, name, host, port, security, "user", pass
FROM smtp_configs
WHERE id = $1 AND tenant_id = $2
LIMIT 1`

// GetSmtpConfigByID fetches a stored mail server scoped to its owning tenant.
func (s *DB) GetSmtpConfigByID(ctx context.Context, id, tenantID string) (_ *entity.SmtpConfig, err error) {
	ctx, span := s.startSpan(ctx, "GetSmtpConfigByID")
	defer func() { s.endSpan(span, err) }()

	var (
		result   entity.SmtpConfig
		security string
	)
	err = s.conn.QueryRow(ctx, getSmtpConfigByIDQuery, id, tenantID).Scan(
		&result.ID,
		&result.TenantID,
		&result.Name,
		&result.Host,
		&result.Port,
		&security,
		&result.Username,
		&result.Password,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	result.Security = entity.SecurityModeFromString(security)
	return &result, nil
}
