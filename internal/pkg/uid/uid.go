// Package uid provides ID generators behind small interfaces so callers can
// swap implementations in tests.
package uid

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}
