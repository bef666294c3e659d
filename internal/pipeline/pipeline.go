// Package pipeline orchestrates a compliance run: localize regions, extract
// and parse text, resolve fields, evaluate rules, build the report.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/labelguard/compliance-cli/internal/config"
	"github.com/labelguard/compliance-cli/internal/model"
	"github.com/labelguard/compliance-cli/internal/ocr"
	"github.com/labelguard/compliance-cli/internal/parser"
	"github.com/labelguard/compliance-cli/internal/resolve"
	"github.com/labelguard/compliance-cli/internal/rules"
	"github.com/labelguard/compliance-cli/internal/store"
	"github.com/labelguard/compliance-cli/internal/vision"
)

// Pipeline wires the detectors, parser, resolver and rule engine together.
// All members are immutable after New, so one Pipeline serves concurrent runs.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	localizer vision.Localizer
	extractor ocr.Extractor
	parser    *parser.Parser
	assist    *parser.Assist
	resolver  *resolve.Resolver
	engine    *rules.Engine
}

// New creates a Pipeline with all dependencies. assist may be nil.
func New(
	cfg *config.Config,
	st store.Store,
	localizer vision.Localizer,
	extractor ocr.Extractor,
	p *parser.Parser,
	assist *parser.Assist,
	resolver *resolve.Resolver,
	engine *rules.Engine,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		localizer: localizer,
		extractor: extractor,
		parser:    p,
		assist:    assist,
		resolver:  resolver,
		engine:    engine,
	}
}

// Run executes the full compliance check for one listing and returns the
// frozen report. An unreadable image aborts the run with no report; a
// cancelled context abandons the run with status cancelled.
func (p *Pipeline) Run(ctx context.Context, listing model.ListingInput) (*model.ComplianceReport, error) {
	log := zap.L().With(zap.String("url", listing.URL), zap.String("category", listing.Category))
	log.Info("pipeline: starting compliance check")

	run, err := p.store.CreateRun(ctx, listing)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	report, err := p.execute(ctx, run.ID, listing, log)
	switch {
	case err == nil:
		if saveErr := p.store.SaveReport(ctx, run.ID, report); saveErr != nil {
			log.Warn("pipeline: failed to save report", zap.Error(saveErr))
		}
		log.Info("pipeline: compliance check complete",
			zap.String("run_id", run.ID),
			zap.String("verdict", string(report.Verdict)),
			zap.Int("violations", len(report.Violations)),
		)
		return report, nil
	case ctx.Err() != nil:
		// Cancelled runs keep their record but drop the report. Status is
		// written with a fresh context since ctx is already dead.
		bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if statusErr := p.store.UpdateRunStatus(bg, run.ID, model.RunStatusCancelled); statusErr != nil {
			log.Warn("pipeline: failed to mark run cancelled", zap.Error(statusErr))
		}
		return nil, eris.Wrap(err, "pipeline: run cancelled")
	default:
		if failErr := p.store.FailRun(ctx, run.ID, err.Error()); failErr != nil {
			log.Warn("pipeline: failed to mark run failed", zap.Error(failErr))
		}
		return nil, err
	}
}

func (p *Pipeline) execute(ctx context.Context, runID string, listing model.ListingInput, log *zap.Logger) (*model.ComplianceReport, error) {
	setStatus := func(status model.RunStatus) {
		if statusErr := p.store.UpdateRunStatus(ctx, runID, status); statusErr != nil {
			log.Warn("pipeline: failed to update status", zap.Error(statusErr))
		}
	}

	// Phase tracking helper with mutex for concurrent access.
	var phases []model.PhaseResult
	var phasesMu sync.Mutex
	trackPhase := func(name string, fn func() (*model.PhaseResult, error)) error {
		start := time.Now()
		phaseResult, fnErr := fn()
		duration := time.Since(start).Milliseconds()

		if phaseResult == nil {
			phaseResult = &model.PhaseResult{}
		}
		phaseResult.Name = name
		phaseResult.Duration = duration

		if fnErr != nil {
			phaseResult.Status = model.PhaseStatusFailed
			phaseResult.Error = fnErr.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
				zap.Error(fnErr),
			)
		} else if phaseResult.Status == "" {
			phaseResult.Status = model.PhaseStatusComplete
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
			)
		}

		phasesMu.Lock()
		phases = append(phases, *phaseResult)
		phasesMu.Unlock()
		return fnErr
	}

	// ===== Phase 1: Localize =====
	setStatus(model.RunStatusLocalizing)

	var regions []model.Region
	regionsByImage := make(map[string][]model.Region, len(listing.Images))

	if err := trackPhase("1_localize", func() (*model.PhaseResult, error) {
		if !listing.HasImages() {
			return &model.PhaseResult{
				Status:   model.PhaseStatusSkipped,
				Metadata: map[string]any{"reason": "no images"},
			}, nil
		}
		for _, img := range listing.Images {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			found := vision.LocateOrEmpty(ctx, p.localizer, img)
			regionsByImage[img.ID] = found
			regions = append(regions, found...)
		}
		return &model.PhaseResult{
			Metadata: map[string]any{"regions": len(regions)},
		}, nil
	}); err != nil {
		return nil, err
	}

	// ===== Phase 2: Extract and parse =====
	setStatus(model.RunStatusExtracting)

	var candidates []model.FieldCandidate
	var dateMatches []parser.DateMatch
	var candMu sync.Mutex
	appendCandidates := func(cands []model.FieldCandidate, dates []parser.DateMatch) {
		if len(cands) == 0 && len(dates) == 0 {
			return
		}
		candMu.Lock()
		candidates = append(candidates, cands...)
		dateMatches = append(dateMatches, dates...)
		candMu.Unlock()
	}

	if err := trackPhase("2_extract", func() (*model.PhaseResult, error) {
		g, gCtx := errgroup.WithContext(ctx)

		for _, img := range listing.Images {
			scoped := regionsByImage[img.ID]
			if len(scoped) == 0 {
				// No localized regions: scan the whole image as one
				// unscoped region.
				img := img
				g.Go(func() error {
					return p.extractOne(gCtx, img, nil, appendCandidates)
				})
				continue
			}
			for i := range scoped {
				img, region := img, scoped[i]
				g.Go(func() error {
					return p.extractOne(gCtx, img, &region, appendCandidates)
				})
			}
		}

		// Seller text parses in parallel with OCR.
		g.Go(func() error {
			lines := parser.SellerTextLines(listing.SellerText)
			appendCandidates(p.parser.Scan(lines, model.SourceSellerText))
			return nil
		})

		if err := g.Wait(); err != nil {
			return nil, err
		}

		if p.assist != nil {
			appendCandidates(p.assist.Propose(ctx, listing.SellerText), nil)
		}

		// Dates settle last: an unambiguous date anywhere on the listing
		// fixes the day/month order of ambiguous ones in other regions.
		appendCandidates(parser.ResolveDates(dateMatches), nil)
		return &model.PhaseResult{
			Metadata: map[string]any{"candidates": len(candidates)},
		}, nil
	}); err != nil {
		return nil, err
	}

	// ===== Phase 3: Resolve =====
	setStatus(model.RunStatusResolving)

	var fields map[model.FieldType]model.ResolvedField
	if err := trackPhase("3_resolve", func() (*model.PhaseResult, error) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fields = p.resolver.Resolve(candidates)

		resolved := 0
		for _, rf := range fields {
			if !rf.Absent() {
				resolved++
			}
		}
		return &model.PhaseResult{
			Metadata: map[string]any{"resolved": resolved, "absent": len(fields) - resolved},
		}, nil
	}); err != nil {
		return nil, err
	}

	// ===== Phase 4: Evaluate =====
	setStatus(model.RunStatusEvaluating)

	var evaluation *rules.Evaluation
	if err := trackPhase("4_evaluate", func() (*model.PhaseResult, error) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		evaluation = p.engine.Evaluate(listing.Category, fields)
		return &model.PhaseResult{
			Metadata: map[string]any{
				"violations": len(evaluation.Violations),
				"verdict":    string(evaluation.Verdict),
			},
		}, nil
	}); err != nil {
		return nil, err
	}

	report := BuildReport(listing, fields, evaluation, regions, phases)
	return report, nil
}

// extractOne OCRs one image (or one region of it), parses the lines, and
// hands the candidates and open date readings back. An unreadable image is
// fatal; a down OCR backend degrades to no candidates from that region.
func (p *Pipeline) extractOne(ctx context.Context, img model.ImageBlob, region *model.Region, emit func([]model.FieldCandidate, []parser.DateMatch)) error {
	lines, err := p.extractor.Extract(ctx, img, region)
	if err != nil {
		if ocr.IsReadError(err) || ctx.Err() != nil {
			return err
		}
		// ErrUnavailable and transient backend failures degrade: seller
		// text still feeds the resolver.
		zap.L().Warn("pipeline: ocr unavailable for image",
			zap.String("image_id", img.ID),
			zap.Error(err),
		)
		return nil
	}
	emit(p.parser.Scan(lines, model.SourceOCR))
	return nil
}
