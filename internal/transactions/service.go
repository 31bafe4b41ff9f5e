// Package transactions implements reads, edits and deletes over stored
// transactions, plus CSV export and monthly spending summaries.
package transactions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/budgetanalyzer/transactions/internal/model"
	"github.com/budgetanalyzer/transactions/internal/store"
)

// ErrNotFound marks a missing or soft-deleted transaction.
var ErrNotFound = store.ErrNotFound

// ErrInvalid marks a request rejected before it reached storage.
var ErrInvalid = errors.New("invalid request")

const (
	maxDescriptionLen = 500
	maxAccountIDLen   = 100
)

// Repository is the storage the service needs.
type Repository interface {
	Get(ctx context.Context, id int64) (model.Transaction, error)
	Update(ctx context.Context, id int64, u store.Update) (model.Transaction, error)
	SoftDelete(ctx context.Context, ids []int64, actor string) ([]int64, error)
	Search(ctx context.Context, f store.Filter) ([]model.Transaction, error)
}

// Service provides business logic for stored transactions.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// UpdateRequest holds the mutable fields; nil leaves a field unchanged.
type UpdateRequest struct {
	Description *string
	AccountID   *string
}

// BulkDeleteResult reports a bulk delete. NotFoundIDs keeps request order.
type BulkDeleteResult struct {
	DeletedCount int
	NotFoundIDs  []int64
}

// Get returns an active transaction.
func (s *Service) Get(ctx context.Context, id int64) (model.Transaction, error) {
	return s.repo.Get(ctx, id)
}

// Update changes the description and/or account of an active transaction.
// Every other field is immutable once imported.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (model.Transaction, error) {
	if req.Description != nil && utf8.RuneCountInString(*req.Description) > maxDescriptionLen {
		return model.Transaction{}, fmt.Errorf("%w: description cannot exceed %d characters", ErrInvalid, maxDescriptionLen)
	}
	if req.AccountID != nil && utf8.RuneCountInString(*req.AccountID) > maxAccountIDLen {
		return model.Transaction{}, fmt.Errorf("%w: account ID cannot exceed %d characters", ErrInvalid, maxAccountIDLen)
	}

	t, err := s.repo.Update(ctx, id, store.Update{Description: req.Description, AccountID: req.AccountID})
	if err != nil {
		return model.Transaction{}, err
	}
	s.logger.Info("updated transaction", "id", id)
	return t, nil
}

// Delete soft-deletes one active transaction on behalf of actor.
func (s *Service) Delete(ctx context.Context, id int64, actor string) error {
	deleted, err := s.repo.SoftDelete(ctx, []int64{id}, actor)
	if err != nil {
		return err
	}
	if len(deleted) == 0 {
		return ErrNotFound
	}
	s.logger.Info("deleted transaction", "id", id, "actor", actor)
	return nil
}

// BulkDelete soft-deletes every active transaction among ids. Ids that do not
// resolve to an active transaction, including repeats of one already deleted
// in this call, are reported rather than failing the request.
func (s *Service) BulkDelete(ctx context.Context, ids []int64, actor string) (BulkDeleteResult, error) {
	if len(ids) == 0 {
		return BulkDeleteResult{}, fmt.Errorf("%w: transaction IDs list cannot be empty", ErrInvalid)
	}

	deleted, err := s.repo.SoftDelete(ctx, ids, actor)
	if err != nil {
		return BulkDeleteResult{}, err
	}

	pending := make(map[int64]bool, len(deleted))
	for _, id := range deleted {
		pending[id] = true
	}
	res := BulkDeleteResult{NotFoundIDs: []int64{}}
	for _, id := range ids {
		if pending[id] {
			delete(pending, id)
			res.DeletedCount++
			continue
		}
		res.NotFoundIDs = append(res.NotFoundIDs, id)
	}

	s.logger.Info("bulk deleted transactions",
		"requested", len(ids),
		"deleted", res.DeletedCount,
		"not_found", len(res.NotFoundIDs),
		"actor", actor,
	)
	return res, nil
}

// Search returns active transactions matching f, newest first.
func (s *Service) Search(ctx context.Context, f store.Filter) ([]model.Transaction, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", ErrInvalid, f.Type)
	}
	if f.Limit < 0 || f.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", ErrInvalid)
	}
	return s.repo.Search(ctx, f)
}
