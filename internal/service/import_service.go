package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-retail-catalog/internal/importer"
	"go-retail-catalog/internal/logger"
	"go-retail-catalog/internal/metrics"
	"go-retail-catalog/internal/model"
	"go-retail-catalog/internal/repository"
	"go-retail-catalog/internal/staging"
	"go-retail-catalog/internal/ws"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SheetReader turns an uploaded file into raw rows.
type SheetReader interface {
	Read(filename string, data []byte) ([]importer.RawRow, error)
}

type PreviewRequest struct {
	Filename    string
	Data        []byte
	Mode        string
	StockMode   string
	AutoConfirm bool
}

type ConfirmRequest struct {
	BatchID            string `json:"batch_id"`
	Checksum           string `json:"checksum"`
	AllowIdenticalRows []int  `json:"allow_identical_rows"`
}

type PreviewResult struct {
	BatchID      string                `json:"batch_id,omitempty"`
	Checksum     string                `json:"checksum,omitempty"`
	ExpiresAt    *time.Time            `json:"expires_at,omitempty"`
	Mode         importer.Mode         `json:"mode"`
	StockMode    importer.StockMode    `json:"stock_mode"`
	Summary      importer.Summary      `json:"summary"`
	Preview      []importer.PreviewRow `json:"preview"`
	ApplyResult  *importer.Outcome     `json:"apply_result,omitempty"`
	Notification *ws.Event             `json:"notification,omitempty"`
}

type ImportService interface {
	Preview(ctx context.Context, req PreviewRequest, caller importer.Caller) (*PreviewResult, error)
	Confirm(ctx context.Context, req ConfirmRequest, caller importer.Caller) importer.Outcome
	Batch(ctx context.Context, batchID string) (*model.ImportBatch, error)
	Sweep(ctx context.Context) (int64, error)
}

// ImportDeps wires the import service. Notifier may be nil.
type ImportDeps struct {
	DB         *gorm.DB
	Products   repository.ProductRepository
	Categories repository.CategoryRepository
	Movements  repository.StockMovementRepository
	Batches    repository.BatchRepository
	Store      staging.Store
	Reader     SheetReader
	Notifier   ws.Notifier
	TTL        time.Duration
}

type importService struct {
	db         *gorm.DB
	products   repository.ProductRepository
	categories repository.CategoryRepository
	movements  repository.StockMovementRepository
	batches    repository.BatchRepository
	store      staging.Store
	reader     SheetReader
	notifier   ws.Notifier
	ttl        time.Duration
	now        func() time.Time

	// batch ids currently inside a commit transaction
	inflight sync.Map
}

func NewImportService(d ImportDeps) ImportService {
	return &importService{
		db:         d.DB,
		products:   d.Products,
		categories: d.Categories,
		movements:  d.Movements,
		batches:    d.Batches,
		store:      d.Store,
		reader:     d.Reader,
		notifier:   d.Notifier,
		ttl:        d.TTL,
		now:        time.Now,
	}
}

// Preview evaluates every row, stages the acceptable ones and optionally
// applies them straight away.
func (s *importService) Preview(ctx context.Context, req PreviewRequest, caller importer.Caller) (*PreviewResult, error) {
	mode, err := importer.ParseMode(req.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	stockMode, err := importer.ParseStockMode(req.StockMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	raws, err := s.reader.Read(req.Filename, req.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	s.sweep(ctx)

	staged, result, err := s.evaluate(ctx, raws, mode, stockMode)
	if err != nil {
		return nil, err
	}

	if len(staged) > 0 {
		batch, err := s.stage(ctx, staged, mode, stockMode, caller)
		if err != nil {
			return nil, err
		}
		result.BatchID = batch.ID
		result.Checksum = batch.Checksum
		result.ExpiresAt = &batch.ExpiresAt
		s.mirror(ctx, batch, result.Summary)
	}

	logger.Info(ctx, "import previewed",
		zap.String("batch_id", result.BatchID),
		zap.Int("rows", len(raws)),
		zap.Int("errors", result.Summary.Errors),
		zap.Int("needs_confirmation", result.Summary.NeedsConfirmation),
	)

	if req.AutoConfirm && result.BatchID != "" && result.Summary.NeedsConfirmation == 0 {
		outcome, ev := s.confirm(ctx, ConfirmRequest{BatchID: result.BatchID, Checksum: result.Checksum}, caller)
		result.ApplyResult = &outcome
		result.Notification = ev
	}
	return result, nil
}

// evaluate runs match, normalize, validate, mode check, classify and dedup
// for each row in input order. It returns the rows fit for staging.
func (s *importService) evaluate(ctx context.Context, raws []importer.RawRow, mode importer.Mode, stockMode importer.StockMode) ([]importer.Row, *PreviewResult, error) {
	result := &PreviewResult{
		Mode:      mode,
		StockMode: stockMode,
		Preview:   make([]importer.PreviewRow, 0, len(raws)),
	}
	tracker := importer.NewTracker()
	candidates := make([]*importer.Row, len(raws))
	accepted := make(map[int]int) // row number -> index
	knownCategory := make(map[string]bool)

	for i, raw := range raws {
		rowNum := i + 2
		pr := importer.PreviewRow{Row: rowNum}
		if raw.Blank() {
			pr.Status = importer.StatusSkipped
			result.Preview = append(result.Preview, pr)
			continue
		}

		current, err := importer.Match(ctx, s.products, raw)
		if err != nil {
			return nil, nil, fmt.Errorf("match row %d: %w", rowNum, err)
		}
		draft := importer.Normalize(raw, current, stockMode)
		errs := importer.Validate(&draft, false)

		action := importer.ActionCreate
		var matchedID uint
		if current != nil {
			action = importer.ActionUpdate
			matchedID = current.ID
			pr.MatchedProductID = &matchedID
		}
		switch {
		case mode == importer.ModeCreateOnly && current != nil:
			errs = append(errs, fmt.Sprintf("create_only mode: row matches existing product #%d", current.ID))
		case mode == importer.ModeUpdateOnly && current == nil:
			errs = append(errs, "update_only mode: row does not match any existing product")
		}

		conflict, err := importer.Classify(ctx, s.products, &draft, matchedID)
		if err != nil {
			return nil, nil, fmt.Errorf("classify row %d: %w", rowNum, err)
		}
		if conflict != nil {
			pr.Conflict = conflict
			if conflict.Blocking() {
				errs = append(errs, conflict.Message)
			}
		}

		keys := importer.KeysFor(matchedID, &draft)
		if len(errs) == 0 {
			for _, dup := range tracker.Check(keys) {
				errs = append(errs, dup.Message())
				if !dup.Mutual {
					continue
				}
				// both rows named the key explicitly, neither may win
				if idx, ok := accepted[dup.Row]; ok {
					earlier := &result.Preview[idx]
					back := importer.Duplicate{Field: dup.Field, Value: dup.Value, Row: rowNum}
					earlier.Errors = append(earlier.Errors, back.Message())
					earlier.Status = importer.StatusError
					candidates[idx] = nil
					delete(accepted, dup.Row)
				}
			}
		}

		pr.Action = action
		pr.Name = draft.Name
		pr.SKU = draft.SKU
		stock := draft.Stock
		pr.Stock = &stock
		pr.Category = draft.Category

		if len(errs) > 0 {
			pr.Status = importer.StatusError
			pr.Errors = errs
			result.Preview = append(result.Preview, pr)
			continue
		}

		tracker.Add(rowNum, keys)
		needsConfirm := conflict != nil && conflict.Severity == importer.SeverityConfirm
		pr.Status = importer.StatusReady
		if needsConfirm {
			pr.Status = importer.StatusNeedsConfirmation
		}

		key := importer.NormalizeKey(draft.Category)
		exists, seen := knownCategory[key]
		if !seen {
			exists, err = s.categories.Exists(ctx, draft.Category)
			if err != nil {
				return nil, nil, fmt.Errorf("category lookup row %d: %w", rowNum, err)
			}
			knownCategory[key] = exists
		}
		pr.NewCategory = !exists

		row := &importer.Row{
			Row:                           rowNum,
			Action:                        action,
			Payload:                       draft,
			RequiresIdenticalConfirmation: needsConfirm,
		}
		if current != nil {
			id := current.ID
			row.MatchedProductID = &id
		}
		candidates[i] = row
		accepted[rowNum] = i
		result.Preview = append(result.Preview, pr)
	}

	var staged []importer.Row
	for i, pr := range result.Preview {
		metrics.ImportRows.WithLabelValues(string(pr.Status)).Inc()
		switch pr.Status {
		case importer.StatusSkipped:
			result.Summary.Skips++
			continue
		case importer.StatusError:
			result.Summary.Errors++
			continue
		case importer.StatusNeedsConfirmation:
			result.Summary.NeedsConfirmation++
		}
		if pr.Action == importer.ActionCreate {
			result.Summary.Creates++
		} else {
			result.Summary.Updates++
		}
		staged = append(staged, *candidates[i])
	}
	return staged, result, nil
}

func (s *importService) stage(ctx context.Context, rows []importer.Row, mode importer.Mode, stockMode importer.StockMode, caller importer.Caller) (*importer.Batch, error) {
	checksum, err := importer.Checksum(rows, mode, stockMode)
	if err != nil {
		return nil, fmt.Errorf("checksum batch: %w", err)
	}

	now := s.now().UTC()
	batch := &importer.Batch{
		ID:        uuid.NewString(),
		Checksum:  checksum,
		Mode:      mode,
		StockMode: stockMode,
		Rows:      rows,
		CreatedBy: caller.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Put(ctx, batch); err != nil {
		return nil, fmt.Errorf("stage batch: %w", err)
	}
	metrics.ImportBatches.Inc()
	return batch, nil
}

// mirror writes the audit record. Failures are logged and otherwise ignored.
func (s *importService) mirror(ctx context.Context, batch *importer.Batch, sum importer.Summary) {
	rec := &model.ImportBatch{
		BatchID:           batch.ID,
		Checksum:          batch.Checksum,
		Mode:              string(batch.Mode),
		StockMode:         string(batch.StockMode),
		Status:            model.BatchStaged,
		RowCount:          len(batch.Rows),
		Creates:           sum.Creates,
		Updates:           sum.Updates,
		Skips:             sum.Skips,
		Errors:            sum.Errors,
		NeedsConfirmation: sum.NeedsConfirmation,
		CreatedBy:         batch.CreatedBy,
		CreatedAt:         batch.CreatedAt,
		ExpiresAt:         batch.ExpiresAt,
	}
	if err := s.batches.Record(ctx, rec); err != nil {
		logger.Warn(ctx, "import batch mirror failed", zap.String("batch_id", batch.ID), zap.Error(err))
	}
}

func (s *importService) Confirm(ctx context.Context, req ConfirmRequest, caller importer.Caller) importer.Outcome {
	outcome, _ := s.confirm(ctx, req, caller)
	return outcome
}

func (s *importService) confirm(ctx context.Context, req ConfirmRequest, caller importer.Caller) (importer.Outcome, *ws.Event) {
	outcome, ev := s.apply(ctx, req, caller)
	metrics.ImportConfirms.WithLabelValues(string(outcome.Kind)).Inc()
	if !outcome.OK() {
		logger.Warn(ctx, "import confirm rejected",
			zap.String("batch_id", req.BatchID),
			zap.String("outcome", string(outcome.Kind)),
			zap.Int("failed", outcome.Failed),
		)
	}
	return outcome, ev
}

func (s *importService) apply(ctx context.Context, req ConfirmRequest, caller importer.Caller) (importer.Outcome, *ws.Event) {
	s.sweep(ctx)

	batch, err := s.store.Get(ctx, req.BatchID)
	if errors.Is(err, staging.ErrNotFound) {
		return importer.Rejected(importer.OutcomeNotFound, importer.ErrBatchNotFound), nil
	}
	if err != nil {
		logger.Error(ctx, "staging lookup failed", err, zap.String("batch_id", req.BatchID))
		return importer.Rejected(importer.OutcomeInternal, err), nil
	}

	if subtle.ConstantTimeCompare([]byte(batch.Checksum), []byte(req.Checksum)) != 1 {
		return importer.Rejected(importer.OutcomeChecksumMismatch, importer.ErrChecksumMismatch), nil
	}
	if !caller.Admin && caller.ID != batch.CreatedBy {
		return importer.Rejected(importer.OutcomeForbidden, importer.ErrForbidden), nil
	}

	if _, busy := s.inflight.LoadOrStore(batch.ID, struct{}{}); busy {
		return importer.Rejected(importer.OutcomeBusy, importer.ErrBatchBusy), nil
	}
	defer s.inflight.Delete(batch.ID)

	// a confirm that held the guard before us may have consumed the batch
	if _, err := s.store.Get(ctx, batch.ID); errors.Is(err, staging.ErrNotFound) {
		return importer.Rejected(importer.OutcomeNotFound, importer.ErrBatchNotFound), nil
	} else if err != nil {
		logger.Error(ctx, "staging lookup failed", err, zap.String("batch_id", batch.ID))
		return importer.Rejected(importer.OutcomeInternal, err), nil
	}

	allowed := make(map[int]bool, len(req.AllowIdenticalRows))
	for _, r := range req.AllowIdenticalRows {
		allowed[r] = true
	}

	start := time.Now()
	var (
		rowErrs []importer.RowError
		w       *productWriter
		created int
		updated int
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w = newProductWriter(tx, s.products, s.categories, s.movements, caller.ID, batch.ID, "import")
		tracker := importer.NewTracker()
		written := make(map[uint]bool)
		created, updated = 0, 0

		for _, row := range batch.Rows {
			msgs, err := s.applyRow(ctx, w, tracker, written, batch.StockMode, row, allowed)
			if err != nil {
				return err
			}
			if len(msgs) > 0 {
				for _, m := range msgs {
					rowErrs = append(rowErrs, importer.RowError{Row: row.Row, Message: m})
				}
				continue
			}
			if row.Action == importer.ActionCreate {
				created++
			} else {
				updated++
			}
		}

		if len(rowErrs) > 0 {
			return importer.ErrRowsFailed
		}
		// claims the mirror row; a second commit of the same batch blocks
		// on this row and then finds it no longer staged
		return s.batches.WithTx(tx).MarkApplied(ctx, batch.ID, caller.ID, created, updated, s.now().UTC())
	})
	metrics.ImportApplyDuration.Observe(time.Since(start).Seconds())

	if errors.Is(err, importer.ErrRowsFailed) {
		return importer.RowsFailed(rowErrs), nil
	}
	if errors.Is(err, repository.ErrBatchConsumed) {
		return importer.Rejected(importer.OutcomeNotFound, importer.ErrBatchNotFound), nil
	}
	if err != nil {
		logger.Error(ctx, "import commit failed", err, zap.String("batch_id", batch.ID))
		return importer.Rejected(importer.OutcomeInternal, err), nil
	}

	// committed: counts are final from here on
	metrics.CategoriesProvisioned.Add(float64(w.newCategories))
	if err := s.store.Delete(ctx, batch.ID); err != nil {
		logger.Warn(ctx, "staged batch delete failed", zap.String("batch_id", batch.ID), zap.Error(err))
	}

	ev := ws.Event{
		Type:    "stock_update",
		Action:  "import_applied",
		BatchID: batch.ID,
		Created: created,
		Updated: updated,
		User:    actor(caller),
		Message: fmt.Sprintf("%s imported %d new and %d updated products", caller.Name, created, updated),
	}
	if s.notifier != nil {
		s.notifier.Publish(ev)
	}

	logger.Info(ctx, "import applied",
		zap.String("batch_id", batch.ID),
		zap.Int("created", created),
		zap.Int("updated", updated),
	)
	return importer.Applied(created, updated), &ev
}

// applyRow re-checks one staged row against the live catalog and writes it.
// Row-level problems come back as messages; err is reserved for storage failures.
// written holds products this batch already wrote. A row not flagged at
// preview is not asked again about near-identity with those.
func (s *importService) applyRow(ctx context.Context, w *productWriter, tracker *importer.Tracker, written map[uint]bool, stockMode importer.StockMode, row importer.Row, allowed map[int]bool) ([]string, error) {
	draft := row.Payload
	var matchedID uint
	if row.MatchedProductID != nil {
		matchedID = *row.MatchedProductID
	}

	keys := importer.KeysFor(matchedID, &draft)
	var msgs []string
	for _, dup := range tracker.Check(keys) {
		msgs = append(msgs, dup.Message())
	}
	if len(msgs) > 0 {
		return msgs, nil
	}
	tracker.Add(row.Row, keys)

	var current *model.Product
	if row.Action == importer.ActionUpdate {
		var err error
		current, err = w.products.FindByIDForUpdate(ctx, matchedID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return []string{fmt.Sprintf("product #%d no longer exists", matchedID)}, nil
		}
		if stockMode == importer.StockDelta && draft.StockDelta != nil {
			draft.Stock = current.Stock + *draft.StockDelta
			if draft.Stock < 0 {
				return []string{fmt.Sprintf("stock would drop below 0 (current %d, delta %d)", current.Stock, *draft.StockDelta)}, nil
			}
		}
	}

	conflict, err := importer.Classify(ctx, w.products, &draft, matchedID)
	if err != nil {
		return nil, err
	}
	if conflict != nil && conflict.Blocking() {
		return []string{conflict.Message}, nil
	}
	// a row flagged at preview always needs its acknowledgement; a fresh
	// near-identity hit only counts against products outside this batch
	needsAck := row.RequiresIdenticalConfirmation || (conflict != nil && !written[conflict.ProductID])
	if needsAck && !allowed[row.Row] {
		if conflict != nil {
			return []string{"needs confirmation: " + conflict.Message}, nil
		}
		return []string{"needs confirmation: row was flagged as near-identical at preview"}, nil
	}

	if current == nil {
		p, err := w.create(ctx, draft)
		if err != nil {
			return nil, err
		}
		written[p.ID] = true
		return nil, nil
	}
	if err := w.update(ctx, current, draft); err != nil {
		return nil, err
	}
	written[current.ID] = true
	return nil, nil
}

func (s *importService) Batch(ctx context.Context, batchID string) (*model.ImportBatch, error) {
	b, err := s.batches.FindByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, importer.ErrBatchNotFound
	}
	return b, nil
}

// Sweep expires staged batches past their TTL in both the store and the mirror.
func (s *importService) Sweep(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	ids, err := s.store.SweepExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if err := s.batches.MarkExpired(ctx, ids); err != nil {
		return 0, err
	}
	n, err := s.batches.ExpireStale(ctx, now)
	if err != nil {
		return 0, err
	}
	if int64(len(ids)) > n {
		n = int64(len(ids))
	}
	return n, nil
}

// sweep is the opportunistic variant run on every preview and confirm.
func (s *importService) sweep(ctx context.Context) {
	ids, err := s.store.SweepExpired(ctx, s.now())
	if err != nil {
		logger.Warn(ctx, "staging sweep failed", zap.Error(err))
		return
	}
	if len(ids) == 0 {
		return
	}
	if err := s.batches.MarkExpired(ctx, ids); err != nil {
		logger.Warn(ctx, "import batch expiry mirror failed", zap.Error(err))
	}
}
