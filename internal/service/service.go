package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"ledgerpos/backend/internal/cache"
	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo                store.Repository
	guard               cache.IdempotencyGuard
	logger              *zap.Logger
	defaultCompanyID    string
	loc                 *time.Location
	distributionRetries int
	now                 func() time.Time
}

type Option func(*Service)

// WithLocation sets the timezone used for dashboard calendar buckets.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithDistributionRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.distributionRetries = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(repo store.Repository, guard cache.IdempotencyGuard, logger *zap.Logger, defaultCompanyID string, opts ...Option) *Service {
	if defaultCompanyID == "" {
		defaultCompanyID = "main-company"
	}
	if guard == nil {
		guard = cache.NoopGuard{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		repo:                repo,
		guard:               guard,
		logger:              logger.Named("service"),
		defaultCompanyID:    defaultCompanyID,
		loc:                 time.UTC,
		distributionRetries: 5,
		now:                 func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// maxIDLength bounds caller-supplied company and entity ids.
const maxIDLength = 128

// company resolves the tenant for a call, falling back to the default company.
func (s *Service) company(companyID string) (string, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return s.defaultCompanyID, nil
	}
	if err := checkID("company", companyID); err != nil {
		return "", err
	}
	return companyID, nil
}

// checkID refuses ids that could not be stored as a single path segment.
func checkID(kind string, id string) error {
	if len(id) > maxIDLength || strings.ContainsFunc(id, func(r rune) bool { return r == '/' || unicode.IsControl(r) }) {
		return fmt.Errorf("%w: %s id %q", ErrInvalidInput, kind, id)
	}
	return nil
}

// withIdempotency returns the invoice already recorded under key, or runs
// commit while holding the in-flight claim for key.
func (s *Service) withIdempotency(ctx context.Context, companyID string, key string, commit func() (*domain.Invoice, error)) (domain.InvoiceResponse, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		created, err := commit()
		if err != nil {
			return domain.InvoiceResponse{}, err
		}
		return domain.InvoiceResponse{Invoice: *created}, nil
	}

	if existing, err := s.repo.FindInvoiceByIdempotency(ctx, companyID, key); err == nil {
		return domain.InvoiceResponse{Invoice: *existing, Duplicate: true}, nil
	} else if errors.Is(err, store.ErrKeyRetired) {
		return domain.InvoiceResponse{}, fmt.Errorf("%w: key %s belongs to a deleted sale", ErrDuplicateRequest, key)
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.InvoiceResponse{}, err
	}

	claimKey := companyID + ":" + key
	claimed, err := s.guard.Claim(ctx, claimKey)
	if err != nil {
		s.logger.Warn("idempotency guard unavailable, relying on store uniqueness",
			zap.String("company_id", companyID), zap.Error(err))
	} else if !claimed {
		return domain.InvoiceResponse{}, fmt.Errorf("%w: %s", ErrDuplicateRequest, key)
	} else {
		defer func() {
			if err := s.guard.Release(context.WithoutCancel(ctx), claimKey); err != nil {
				s.logger.Warn("failed to release idempotency claim", zap.String("key", claimKey), zap.Error(err))
			}
		}()
	}

	created, err := commit()
	if errors.Is(err, store.ErrKeyRetired) {
		return domain.InvoiceResponse{}, fmt.Errorf("%w: key %s belongs to a deleted sale", ErrDuplicateRequest, key)
	}
	if errors.Is(err, store.ErrDuplicate) {
		if existing, findErr := s.repo.FindInvoiceByIdempotency(ctx, companyID, key); findErr == nil {
			return domain.InvoiceResponse{Invoice: *existing, Duplicate: true}, nil
		}
	}
	if err != nil {
		return domain.InvoiceResponse{}, err
	}
	return domain.InvoiceResponse{Invoice: *created}, nil
}

// mapCommitError turns store conflicts raised inside a commit group into
// service errors.
func mapCommitError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrStockViolation):
		return fmt.Errorf("%w: %w", ErrStockConflict, err)
	default:
		return err
	}
}

func stockMoveLines(lines []domain.InvoiceLine) []domain.StockMoveLine {
	out := make([]domain.StockMoveLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, domain.StockMoveLine{ProductID: line.ProductID, Qty: line.Qty})
	}
	return out
}

func invoiceTotal(lines []domain.InvoiceLine) int64 {
	total := int64(0)
	for _, line := range lines {
		total += line.PriceCents * int64(line.Qty)
	}
	return total
}

func (s *Service) transactionDate(meta domain.TransactionMeta) time.Time {
	if meta.Date != nil && !meta.Date.IsZero() {
		return meta.Date.UTC()
	}
	return s.now()
}

func actorName(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.Username
	}
	return ""
}
