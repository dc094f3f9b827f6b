package entity

import "strings"

// SecurityMode is the transport security requested for an SMTP server.
type SecurityMode int16

const (
	// SecurityModeNone connects in plain text, upgrading opportunistically
	// when the server offers STARTTLS.
	SecurityModeNone SecurityMode = 0

	// SecurityModeTLS requires a STARTTLS upgrade.
	SecurityModeTLS SecurityMode = 1

	// SecurityModeSSL uses implicit TLS from the first byte (usually port 465).
	SecurityModeSSL SecurityMode = 2
)

func (m SecurityMode) String() string {
	switch m {
	case SecurityModeTLS:
		return "TLS"
	case SecurityModeSSL:
		return "SSL"
	default:
		return "None"
	}
}

// SecurityModeFromString parses the security value stored in the database.
func SecurityModeFromString(s string) SecurityMode {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TLS":
		return SecurityModeTLS
	case "SSL":
		return SecurityModeSSL
	default:
		return SecurityModeNone
	}
}

// SmtpConfig is one tenant-owned mail server. Password holds the encrypted
// value as stored; decryption happens at the usecase boundary.
type SmtpConfig struct {
	ID       string
	TenantID string
	Name     string
	Host     string
	Port     int
	Security SecurityMode
	Username string
	Password string
}
