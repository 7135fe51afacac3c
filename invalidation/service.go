package invalidation

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Invalidator is the part of the cache store the service needs.
type Invalidator interface {
	InvalidatePattern(pattern string) (int, error)
}

// PatternResult is the outcome of a single pattern.
type PatternResult struct {
	Pattern string `json:"pattern"`
	Count   int    `json:"count"`
}

// Result reports what an invalidation removed. Error is set, and
// InvalidatedCount is zero, when the store failed part way.
type Result struct {
	Entity           string          `json:"entity"`
	Trigger          Trigger         `json:"trigger"`
	Patterns         []PatternResult `json:"patterns"`
	InvalidatedCount int             `json:"invalidatedCount"`
	Error            string          `json:"error,omitempty"`
}

// OK reports whether the invalidation completed without error.
func (r Result) OK() bool {
	return r.Error == ""
}

// Operation names one (entity, trigger) pair for InvalidateMultiple.
type Operation struct {
	Entity  string  `json:"entity"`
	Trigger Trigger `json:"trigger"`
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service resolves entity mutations to key patterns and purges them from the
// store. It never returns an error or panics: invalidation runs after a write
// has already been committed.
type Service struct {
	store  Invalidator
	rules  *RuleTable
	logger *zap.Logger
}

// NewService builds a Service. A nil rule table falls back to DefaultRules.
func NewService(store Invalidator, rules *RuleTable, opts ...Option) *Service {
	if rules == nil {
		rules = NewRuleTable(DefaultRules())
	}

	s := &Service{
		store:  store,
		rules:  rules,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules returns the table the service resolves against.
func (s *Service) Rules() *RuleTable {
	return s.rules
}

// GetInvalidationPatterns is a shortcut to the rule table lookup.
func (s *Service) GetInvalidationPatterns(entity string, trigger Trigger) []string {
	return s.rules.GetInvalidationPatterns(entity, trigger)
}

// InvalidateCache purges every pattern registered for (entity, trigger).
func (s *Service) InvalidateCache(entity string, trigger Trigger) (result Result) {
	result = Result{
		Entity:   entity,
		Trigger:  trigger,
		Patterns: []PatternResult{},
	}

	defer func() {
		if r := recover(); r != nil {
			s.fail(&result, errors.Errorf("panic: %v", r))
		}
	}()

	if s.store == nil {
		s.fail(&result, errors.New("invalidation: no store configured"))
		return result
	}

	for _, pattern := range s.rules.GetInvalidationPatterns(entity, trigger) {
		count, err := s.store.InvalidatePattern(pattern)
		if err != nil {
			s.fail(&result, errors.Wrapf(err, "pattern %s", pattern))
			return result
		}
		result.Patterns = append(result.Patterns, PatternResult{Pattern: pattern, Count: count})
		result.InvalidatedCount += count
	}

	s.logger.Debug("cache invalidated",
		zap.String("entity", entity),
		zap.String("trigger", string(trigger)),
		zap.Int("patterns", len(result.Patterns)),
		zap.Int("invalidated", result.InvalidatedCount),
	)

	return result
}

func (s *Service) fail(result *Result, err error) {
	result.InvalidatedCount = 0
	result.Error = err.Error()

	s.logger.Warn("cache invalidation failed",
		zap.String("entity", result.Entity),
		zap.String("trigger", string(result.Trigger)),
		zap.Error(err),
	)
}

// InvalidateOnCreate fires the CREATE rules for entity.
func (s *Service) InvalidateOnCreate(entity string) Result {
	return s.InvalidateCache(entity, TriggerCreate)
}

// InvalidateOnUpdate fires the UPDATE rules for entity.
func (s *Service) InvalidateOnUpdate(entity string) Result {
	return s.InvalidateCache(entity, TriggerUpdate)
}

// InvalidateOnDelete fires the DELETE rules for entity.
func (s *Service) InvalidateOnDelete(entity string) Result {
	return s.InvalidateCache(entity, TriggerDelete)
}

// InvalidateMultiple applies each operation independently, in order.
func (s *Service) InvalidateMultiple(ops []Operation) []Result {
	results := make([]Result, 0, len(ops))
	for _, op := range ops {
		results = append(results, s.InvalidateCache(op.Entity, op.Trigger))
	}
	return results
}
