package entity

import "time"

// KeyStatus is the lifecycle state of an API key.
type KeyStatus int16

const (
	// KeyStatusUnknown means the status is not known / not set.
	KeyStatusUnknown KeyStatus = 0

	// KeyStatusActive means the key may relay mail.
	KeyStatusActive KeyStatus = 1

	// KeyStatusInactive means the key exists but is switched off by its owner.
	KeyStatusInactive KeyStatus = 2

	// KeyStatusDeleted means the key is soft-deleted and behaves like an unknown key.
	KeyStatusDeleted KeyStatus = 3
)

func (s KeyStatus) String() string {
	switch s {
	case KeyStatusActive:
		return "active"
	case KeyStatusInactive:
		return "inactive"
	case KeyStatusDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// KeyStatusFromString parses the status value stored in the database.
func KeyStatusFromString(s string) KeyStatus {
	switch s {
	case "active":
		return KeyStatusActive
	case "inactive":
		return KeyStatusInactive
	case "deleted":
		return KeyStatusDeleted
	default:
		return KeyStatusUnknown
	}
}

// ApiKey is a tenant-issued bearer token bound to one SMTP configuration.
type ApiKey struct {
	ID           string
	TenantID     string
	Name         string
	Token        string
	Status       KeyStatus
	SmtpConfigID *string
	CreatedAt    time.Time
}
