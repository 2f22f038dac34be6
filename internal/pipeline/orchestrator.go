// Package pipeline sequences ingestion, catalog matching and cost estimation
// for one RFP and assembles the resulting report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rfp-agent/backend/internal/audit"
	"github.com/rfp-agent/backend/internal/ingestion"
	"github.com/rfp-agent/backend/internal/metrics"
	"github.com/rfp-agent/backend/internal/rfp"
	"github.com/rfp-agent/backend/internal/storage/models"
	"github.com/rfp-agent/backend/pkg/logger"
)

type ScopeMatcher interface {
	ProcessScope(summary rfp.TechnicalSummary) (rfp.TechnicalMatch, audit.Log)
}

type CostEstimator interface {
	Price(match rfp.TechnicalMatch, tests []string, quantities []rfp.QuantityEntry) (rfp.PricingOutput, audit.Log)
}

type DefaultResolver interface {
	ResolveDefault(ctx context.Context) (*rfp.Document, error)
}

// RunRecorder persists a summary of each completed run.
type RunRecorder interface {
	InsertRunRecord(ctx context.Context, record *models.RunRecord) error
}

type Orchestrator struct {
	matcher   ScopeMatcher
	estimator CostEstimator
	resolver  DefaultResolver
	recorder  RunRecorder
}

func NewOrchestrator(matcher ScopeMatcher, estimator CostEstimator, resolver DefaultResolver) *Orchestrator {
	return &Orchestrator{
		matcher:   matcher,
		estimator: estimator,
		resolver:  resolver,
	}
}

// WithRecorder enables run history. recorder may be nil.
func (o *Orchestrator) WithRecorder(recorder RunRecorder) *Orchestrator {
	o.recorder = recorder
	return o
}

// Run processes doc and returns the complete report.
func (o *Orchestrator) Run(ctx context.Context, doc rfp.RFP) rfp.Report {
	return o.RunStream(ctx, doc, nil)
}

// RunStream is Run, additionally handing every audit line to emit as soon as
// the stage producing it has finished. emit may be nil.
func (o *Orchestrator) RunStream(ctx context.Context, doc rfp.RFP, emit func(line string)) rfp.Report {
	start := time.Now()
	runID := uuid.New().String()

	logger.Info("Pipeline run started",
		zap.String("run_id", runID),
		zap.String("rfp_id", doc.ID.String()),
		zap.Int("scope_items", len(doc.Scope)),
	)

	var log audit.Log
	publish := func(stage audit.Log) {
		from := log.Len()
		log.Extend(stage)
		if emit == nil {
			return
		}
		for _, line := range log.Lines()[from:] {
			emit(line)
		}
	}

	var sales audit.Log
	sales.Section("Sales Agent")
	sales.Add("✔ RFP received")
	forTechnical := ingestion.SummarizeForMatching(doc)
	sales.Addf("✔ Extracted %d scope items", len(forTechnical.Scope))
	sales.Add("✔ Prepared summary for TechnicalAgent")
	forPricing := ingestion.SummarizeForPricing(doc)
	sales.Add("✔ Prepared summary for PricingAgent")
	publish(sales)

	var technical audit.Log
	technical.Section("Technical Agent")
	match, matchLog := o.matcher.ProcessScope(forTechnical)
	technical.Extend(matchLog)
	publish(technical)

	comparison := BuildComparison(forTechnical.Scope, match)

	var pricing audit.Log
	pricing.Section("Pricing Agent")
	priced, priceLog := o.estimator.Price(match, forPricing.Tests, forPricing.Quantities)
	pricing.Extend(priceLog)
	publish(pricing)

	var done audit.Log
	done.Section("Pipeline")
	done.Add("✔ Pipeline completed successfully")
	publish(done)

	report := rfp.Report{
		RunID:    runID,
		RFPID:    doc.ID,
		RFPTitle: doc.Title,
		DueDate:  doc.DueDate,
		SalesSummary: rfp.SalesSummary{
			ForTechnical: forTechnical,
			ForPricing:   forPricing,
		},
		TechnicalMatch: match,
		SpecComparison: comparison,
		Pricing:        priced,
		Logs:           log.Lines(),
	}

	total := priced.GrandTotal()
	metrics.PipelineRuns.WithLabelValues("success").Inc()
	metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	metrics.ScopeItemsProcessed.Add(float64(len(doc.Scope)))
	metrics.QuoteTotalCost.Observe(total)

	o.record(ctx, report, total)

	logger.Info("Pipeline run completed",
		zap.String("run_id", runID),
		zap.String("rfp_id", doc.ID.String()),
		zap.Float64("total_cost", total),
		zap.Duration("duration", time.Since(start)),
	)

	return report
}

// RunDefault runs the pipeline over the first locally stored RFP.
func (o *Orchestrator) RunDefault(ctx context.Context) (*rfp.Report, error) {
	if o.resolver == nil {
		return nil, ingestion.ErrNoDocumentFound
	}

	doc, err := o.resolver.ResolveDefault(ctx)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("no_document").Inc()
		return nil, fmt.Errorf("failed to resolve default RFP: %w", err)
	}

	report := o.Run(ctx, doc.RFP)
	return &report, nil
}

func (o *Orchestrator) record(ctx context.Context, report rfp.Report, total float64) {
	if o.recorder == nil {
		return
	}

	err := o.recorder.InsertRunRecord(ctx, &models.RunRecord{
		RunID:     report.RunID,
		RFPID:     report.RFPID.String(),
		Title:     report.RFPTitle,
		ItemCount: len(report.Pricing.PricingTable),
		TotalCost: total,
		CreatedAt: time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to record run", zap.String("run_id", report.RunID), zap.Error(err))
	}
}

// BuildComparison joins each matched item with the specs requested for it.
// A matched item with no counterpart in scope gets empty specs.
func BuildComparison(scope []rfp.TechnicalItem, match rfp.TechnicalMatch) []rfp.SpecComparison {
	requested := make(map[rfp.ID]rfp.Specs, len(scope))
	for _, item := range scope {
		requested[item.ItemID] = item.Specs
	}

	rows := make([]rfp.SpecComparison, 0, len(match.Items))
	for _, m := range match.Items {
		specs := requested[m.ItemID]
		if specs == nil {
			specs = rfp.Specs{}
		}
		candidates := m.Top3
		if candidates == nil {
			candidates = []rfp.MatchCandidate{}
		}
		rows = append(rows, rfp.SpecComparison{
			ItemID:     m.ItemID,
			RFPItem:    m.RFPItem,
			RFPSpecs:   specs,
			Candidates: candidates,
		})
	}
	return rows
}
