package discovery

import "context"

// Provider is the capability interface each source adapter implements.
// Search returns raw candidates for a query variant; failures must be typed
// services errors, never raw transport errors.
type Provider interface {
	Name() string
	SourceType() SourceType
	Search(ctx context.Context, query string, limit int) ([]SourceCandidate, error)
}
