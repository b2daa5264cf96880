package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"earshot/internal/config"
	"earshot/internal/logging"
	"earshot/internal/services"
	"earshot/internal/textutil"
)

// Options configures a Coordinator. Providers must be supplied in priority
// order; Unconfigured lists provider names skipped for missing credentials so
// not-found errors can suggest enabling them.
type Options struct {
	Providers        []Provider
	Weights          config.RankingWeights
	MaxResults       int
	ProviderTimeout  time.Duration
	AggregateTimeout time.Duration
	Unconfigured     []string
	Logger           *slog.Logger
}

// Coordinator fans a query out to every configured provider, aggregates the
// results, and selects the best candidate.
type Coordinator struct {
	providers        []Provider
	weights          config.RankingWeights
	maxResults       int
	providerTimeout  time.Duration
	aggregateTimeout time.Duration
	unconfigured     []string
	logger           *slog.Logger
}

// NewCoordinator constructs a Coordinator from options.
func NewCoordinator(opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Coordinator{
		providers:        opts.Providers,
		weights:          opts.Weights,
		maxResults:       maxResults,
		providerTimeout:  opts.ProviderTimeout,
		aggregateTimeout: opts.AggregateTimeout,
		unconfigured:     opts.Unconfigured,
		logger:           logging.NewComponentLogger(logger, "discovery"),
	}
}

type providerOutcome struct {
	candidates []SourceCandidate
	token      string
}

// Discover queries every provider concurrently, deduplicates and re-scores
// the aggregate, and returns the ranked result. An empty aggregate fails with
// a NOT_FOUND error whose message embeds the provider trace and remediation
// hints.
func (c *Coordinator) Discover(ctx context.Context, query string) (*DiscoveryResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.aggregateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.aggregateTimeout)
		defer cancel()
	}

	variants := queryVariants(query)
	outcomes := make([]providerOutcome, len(c.providers))

	var wg sync.WaitGroup
	for i, provider := range c.providers {
		wg.Add(1)
		go func(i int, provider Provider) {
			defer wg.Done()
			outcomes[i] = c.searchProvider(ctx, provider, variants)
		}(i, provider)
	}
	wg.Wait()

	trace := make([]string, 0, len(c.providers))
	var aggregate []SourceCandidate
	for _, outcome := range outcomes {
		trace = append(trace, outcome.token)
		aggregate = append(aggregate, outcome.candidates...)
	}

	candidates := Dedupe(aggregate)
	for i := range candidates {
		candidates[i].Confidence = Score(query, candidates[i], c.weights)
	}
	// Stable sort preserves provider-priority order for equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if len(candidates) > c.maxResults {
		candidates = candidates[:c.maxResults]
	}

	if len(candidates) == 0 {
		c.logger.Warn("no candidates found",
			logging.String(logging.FieldQuery, query),
			logging.Any("provider_trace", trace))
		return nil, services.NewError(services.KindDiscovery, services.CodeNotFound,
			notFoundMessage(query, trace, c.unconfigured))
	}

	selected := candidates[0]
	c.logger.Info("discovery complete",
		logging.String(logging.FieldQuery, query),
		logging.String(logging.FieldProvider, selected.Provider),
		logging.Int("candidates", len(candidates)),
		logging.Float64("confidence", selected.Confidence))

	return &DiscoveryResult{
		Query:         query,
		Candidates:    candidates,
		Selected:      &selected,
		ProviderTrace: trace,
	}, nil
}

// searchProvider runs every query variant against one provider, stopping at
// the first typed error. Candidates gathered before the error are kept; the
// trace token reflects the error.
func (c *Coordinator) searchProvider(ctx context.Context, provider Provider, variants []string) providerOutcome {
	var collected []SourceCandidate
	for _, variant := range variants {
		searchCtx := ctx
		cancel := context.CancelFunc(func() {})
		if c.providerTimeout > 0 {
			searchCtx, cancel = context.WithTimeout(ctx, c.providerTimeout)
		}
		candidates, err := provider.Search(searchCtx, variant, c.maxResults)
		cancel()
		if err != nil {
			reason := services.ReasonCode(err)
			c.logger.Warn("provider search failed",
				logging.String(logging.FieldProvider, provider.Name()),
				logging.String(logging.FieldQuery, variant),
				logging.Error(err))
			return providerOutcome{
				candidates: dedupeBySourceID(collected),
				token:      fmt.Sprintf("%s:error:%s", provider.Name(), reason),
			}
		}
		collected = append(collected, candidates...)
	}
	deduped := dedupeBySourceID(collected)
	return providerOutcome{
		candidates: deduped,
		token:      fmt.Sprintf("%s:%d", provider.Name(), len(deduped)),
	}
}

// queryVariants returns the original query plus its accent-folded form when
// folding changes the text.
func queryVariants(query string) []string {
	variants := []string{query}
	if folded := textutil.Fold(query); folded != query {
		variants = append(variants, folded)
	}
	return variants
}

func dedupeBySourceID(candidates []SourceCandidate) []SourceCandidate {
	if len(candidates) == 0 {
		return nil
	}
	type identity struct {
		provider string
		sourceID string
	}
	seen := make(map[identity]struct{}, len(candidates))
	out := make([]SourceCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		id := identity{candidate.Provider, candidate.SourceID}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

func notFoundMessage(query string, trace, unconfigured []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "no candidates found for %q; providers: [%s]", query, strings.Join(trace, " "))
	if hints := remediationHints(trace, unconfigured); len(hints) > 0 {
		b.WriteString("; hints: ")
		b.WriteString(strings.Join(hints, "; "))
	}
	return b.String()
}

// remediationHints derives actionable suggestions from provider error tokens
// and the list of unconfigured optional providers.
func remediationHints(trace, unconfigured []string) []string {
	var hints []string
	for _, token := range trace {
		parts := strings.SplitN(token, ":", 3)
		if len(parts) != 3 || parts[1] != "error" {
			continue
		}
		name, reason := parts[0], parts[2]
		switch reason {
		case "binary_missing":
			hints = append(hints, fmt.Sprintf("install the %s binary and ensure it is on PATH", name))
		case "auth_missing":
			hints = append(hints, fmt.Sprintf("set the credential environment variables for %s", name))
		case "auth_failed":
			hints = append(hints, fmt.Sprintf("verify the credentials configured for %s", name))
		case "rate_limited":
			hints = append(hints, fmt.Sprintf("%s rate limited the request; retry later", name))
		}
	}
	for _, name := range unconfigured {
		hints = append(hints, fmt.Sprintf("%s is not configured; set its credential environment variables to enable it", name))
	}
	return hints
}
