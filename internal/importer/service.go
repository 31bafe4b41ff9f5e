package importer

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/budgetanalyzer/transactions/internal/csvread"
	"github.com/budgetanalyzer/transactions/internal/model"
)

// Repository persists a mapped batch. CreateAll must store every
// transaction or none of them.
type Repository interface {
	CreateAll(ctx context.Context, txns []model.Transaction) ([]model.Transaction, error)
}

// File is one uploaded CSV.
type File struct {
	Name    string
	Content []byte
}

// Request is one import batch.
type Request struct {
	Format    string
	AccountID string // optional
	Files     []File
}

// Result summarizes a committed batch.
type Result struct {
	BatchID      uuid.UUID
	Transactions []model.Transaction // as stored, in file-then-row order
	Files        int                 // files that were read
	Skipped      int                 // zero-byte files
}

// Service runs import batches.
type Service struct {
	mapper *Mapper
	repo   Repository
	logger *slog.Logger
	parse  func(fileName, format string, data []byte) (model.CsvData, error)
}

// NewService creates a Service.
func NewService(mapper *Mapper, repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{mapper: mapper, repo: repo, logger: logger, parse: csvread.ParseBytes}
}

// Import parses and maps every row of every file, then persists the whole
// batch at once. Any failure aborts the batch and nothing is stored. Every
// returned error is an *model.ImportError: mapping errors pass through
// unchanged and anything else becomes a CSV_PARSING_ERROR. A failed Result
// carries only the batch id.
func (s *Service) Import(ctx context.Context, req Request) (Result, error) {
	res := Result{BatchID: uuid.New()}
	failed := Result{BatchID: res.BatchID}
	logger := s.logger.With("batch_id", res.BatchID.String(), "format", req.Format)

	if _, err := s.mapper.formats.Lookup(req.Format); err != nil {
		return failed, err
	}

	txns := []model.Transaction{}
	for _, f := range req.Files {
		if len(f.Content) == 0 {
			logger.Warn("file is empty, skipping", "file", f.Name)
			res.Skipped++
			continue
		}

		logger.Info("importing csv file", "file", f.Name)
		data, err := s.parse(f.Name, req.Format, f.Content)
		if err != nil {
			return failed, model.ParsingFailure(err)
		}

		for _, row := range data.Rows {
			txn, err := s.mapper.Map(data.FileName, data.Format, req.AccountID, row)
			if err != nil {
				if _, ok := model.AsImportError(err); ok {
					return failed, err
				}
				return failed, model.ParsingFailure(err)
			}
			txns = append(txns, txn)
		}
		res.Files++
	}

	if len(txns) > 0 {
		stored, err := s.repo.CreateAll(ctx, txns)
		if err != nil {
			return failed, model.ParsingFailure(err)
		}
		txns = stored
	}
	res.Transactions = txns

	logger.Info("imported transactions",
		"transactions", len(txns),
		"files", res.Files,
		"skipped", res.Skipped,
	)
	return res, nil
}
