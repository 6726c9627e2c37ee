// Package engine walks active campaigns through their drip sequences:
// enrollment, per-step sends, conversion detection and run accounting.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/lensdesk/lensdesk/internal/campaign"
	"github.com/lensdesk/lensdesk/internal/consent"
	"github.com/lensdesk/lensdesk/internal/dispatch"
	"github.com/lensdesk/lensdesk/internal/drip"
	"github.com/lensdesk/lensdesk/internal/metrics"
	"github.com/lensdesk/lensdesk/internal/notify"
	"github.com/lensdesk/lensdesk/internal/pkg/runlock"
	"github.com/lensdesk/lensdesk/internal/segment"
	"github.com/lensdesk/lensdesk/internal/template"
)

// Dispatcher is the slice of dispatch.Dispatcher the engine needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (uuid.UUID, error)
}

// Engine processes campaigns. It is safe for concurrent use; per-campaign
// exclusion comes from the run lease, not from internal locking.
type Engine struct {
	store      *campaign.Store
	evaluator  *segment.Evaluator
	resolver   *template.Resolver
	gate       *consent.Gate
	dispatcher Dispatcher
	notifier   notify.Notifier
	locks      *runlock.Factory
}

// New creates a campaign engine.
func New(
	store *campaign.Store,
	evaluator *segment.Evaluator,
	resolver *template.Resolver,
	gate *consent.Gate,
	dispatcher Dispatcher,
	notifier notify.Notifier,
	locks *runlock.Factory,
) *Engine {
	return &Engine{
		store:      store,
		evaluator:  evaluator,
		resolver:   resolver,
		gate:       gate,
		dispatcher: dispatcher,
		notifier:   notifier,
		locks:      locks,
	}
}

// ProcessAllCampaigns runs every ACTIVE campaign once, sequentially. One
// campaign's failure never stops the others: it gets a CAMPAIGN_ERROR
// notification and the loop moves on. Returns one result per processed
// campaign (empty when nothing is active).
func (e *Engine) ProcessAllCampaigns(ctx context.Context) []campaign.RunResult {
	campaigns, err := e.store.ListByStatus(ctx, campaign.StatusActive)
	if err != nil {
		log.Printf("[CampaignEngine] Failed to list active campaigns: %v", err)
		return []campaign.RunResult{}
	}

	results := make([]campaign.RunResult, 0, len(campaigns))
	for _, c := range campaigns {
		lease := e.locks.ForCampaign(c.ID)
		acquired, err := lease.Acquire(ctx)
		if err != nil {
			log.Printf("[CampaignEngine] Lease error for campaign %s: %v", c.ID, err)
			continue
		}
		if !acquired {
			log.Printf("[CampaignEngine] Campaign %s already being processed, skipping", c.ID)
			continue
		}

		result, err := e.ProcessCampaign(ctx, c.ID)
		if relErr := lease.Release(ctx); relErr != nil {
			log.Printf("[CampaignEngine] Lease release failed for campaign %s: %v", c.ID, relErr)
		}

		if err != nil {
			metrics.RunsTotal.WithLabelValues("error").Inc()
			e.notifier.Notify(ctx, notify.CampaignError, c.ID, err.Error())
			results = append(results, campaign.RunResult{CampaignID: c.ID, Err: err})
			continue
		}

		metrics.RunsTotal.WithLabelValues("completed").Inc()
		e.notifier.Notify(ctx, notify.CampaignCompleted, c.ID,
			fmt.Sprintf("enrolled=%d sent=%d failed=%d converted=%d",
				result.Enrolled, result.Sent, result.Failed, result.Converted))
		results = append(results, *result)
	}
	return results
}

// ProcessCampaign executes one full pass over a campaign: enroll new segment
// matches, send any due drip steps, detect conversions, and record the run.
// Failures of individual sends are counted in the run; failures that
// invalidate the whole pass annotate the run row and come back as an error.
func (e *Engine) ProcessCampaign(ctx context.Context, campaignID uuid.UUID) (*campaign.RunResult, error) {
	start := time.Now()
	defer func() {
		metrics.RunDuration.Observe(time.Since(start).Seconds())
	}()

	c, err := e.store.Get(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign %s: %w", campaignID, err)
	}
	if c == nil {
		return nil, fmt.Errorf("campaign %s not found", campaignID)
	}

	preset, ok := drip.ConfigFor(c.Type)
	if !ok {
		return nil, fmt.Errorf("campaign %s has unknown type %s", campaignID, c.Type)
	}

	run, err := e.store.CreateRun(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("create run for campaign %s: %w", campaignID, err)
	}

	result, err := e.processRun(ctx, c, preset, run)
	if err != nil {
		if aerr := e.store.AnnotateRunError(ctx, run.ID, err.Error()); aerr != nil {
			log.Printf("[CampaignEngine] Failed to annotate run %s: %v", run.ID, aerr)
		}
		return nil, fmt.Errorf("campaign %s run %s: %w", campaignID, run.ID, err)
	}
	return result, nil
}

func (e *Engine) processRun(ctx context.Context, c *campaign.Campaign, preset drip.Config, run *campaign.Run) (*campaign.RunResult, error) {
	// Enrollment: automatic campaign types pull in every current segment
	// match. The unique constraint makes re-runs idempotent.
	if preset.EnrollmentMode == drip.EnrollAuto && len(c.SegmentJSON) > 0 {
		var def segment.Definition
		if err := json.Unmarshal(c.SegmentJSON, &def); err != nil {
			return nil, fmt.Errorf("parse segment definition: %w", err)
		}
		matches := e.evaluator.Execute(ctx, def)
		if len(matches) > 0 {
			enrolled, err := e.store.Enroll(ctx, c.ID, matches)
			if err != nil {
				return nil, fmt.Errorf("enroll segment matches: %w", err)
			}
			run.EnrolledCount = enrolled
			metrics.EnrollmentsTotal.Add(float64(enrolled))
		}
	}

	recipients, err := e.store.ListActiveRecipients(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	run.RecipientsFound = len(recipients)

	now := time.Now()
	for _, r := range recipients {
		if r.CurrentStep >= len(preset.Steps) {
			// Shouldn't happen: completion is recorded with the final send.
			// Repair rather than send past the end of the sequence.
			if err := e.store.CompleteRecipient(ctx, r.ID); err != nil {
				log.Printf("[CampaignEngine] Failed to complete overran recipient %s: %v", r.ID, err)
			}
			continue
		}
		step := preset.Steps[r.CurrentStep]

		if !stepDue(r, step, now) {
			continue
		}

		customer, err := e.gate.LoadCustomer(ctx, r.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("load customer %s: %w", r.CustomerID, err)
		}
		if !consent.CanContact(customer, step.Channel) {
			continue
		}

		vars := e.resolver.Variables(ctx, r.CustomerID)
		body := template.Interpolate(step.Body, vars)
		subject := template.Interpolate(step.Subject, vars)

		_, err = e.dispatcher.Dispatch(ctx, dispatch.Request{
			CampaignID: &c.ID,
			CustomerID: r.CustomerID,
			Channel:    step.Channel,
			To:         customer.Address(step.Channel),
			Subject:    subject,
			Body:       body,
		})
		if err != nil {
			// The recipient stays on this step; the next run retries.
			log.Printf("[CampaignEngine] Dispatch failed for recipient %s step %d: %v", r.ID, r.CurrentStep, err)
			run.FailedCount++
			continue
		}
		run.SentCount++

		if r.CurrentStep == len(preset.Steps)-1 {
			if err := e.store.CompleteRecipient(ctx, r.ID); err != nil {
				return nil, fmt.Errorf("complete recipient %s: %w", r.ID, err)
			}
		} else {
			if err := e.store.AdvanceRecipient(ctx, r.ID, r.CurrentStep+1); err != nil {
				return nil, fmt.Errorf("advance recipient %s: %w", r.ID, err)
			}
		}
	}

	if preset.StopOnConversion {
		// Re-query rather than reuse the slice above: recipients completed
		// during this pass must not be converted afterwards.
		if err := e.detectConversions(ctx, c, run); err != nil {
			return nil, err
		}
	}

	run.DurationMs = time.Since(run.StartedAt).Milliseconds()
	if err := e.store.FinalizeRun(ctx, run); err != nil {
		return nil, fmt.Errorf("finalize run: %w", err)
	}
	// last_run_at moves on every pass, even one that sent nothing.
	if err := e.store.TouchLastRun(ctx, c.ID); err != nil {
		return nil, fmt.Errorf("stamp last run: %w", err)
	}
	if run.SentCount > 0 {
		if err := e.store.AddSendCounters(ctx, c.ID, run.SentCount); err != nil {
			return nil, fmt.Errorf("update campaign counters: %w", err)
		}
	}

	log.Printf("[CampaignEngine] Campaign %s: enrolled=%d sent=%d failed=%d converted=%d",
		c.ID, run.EnrolledCount, run.SentCount, run.FailedCount, run.ConvertedCount)

	return &campaign.RunResult{
		CampaignID: c.ID,
		RunID:      run.ID,
		Enrolled:   run.EnrolledCount,
		Sent:       run.SentCount,
		Failed:     run.FailedCount,
		Converted:  run.ConvertedCount,
		Duration:   time.Duration(run.DurationMs) * time.Millisecond,
	}, nil
}

// stepDue applies the drip delay: each step becomes eligible DelayDays after
// enrollment, so a recipient processed late catches up one step per run.
func stepDue(r *campaign.Recipient, step drip.Step, now time.Time) bool {
	due := r.EnrolledAt.AddDate(0, 0, step.DelayDays)
	return !now.Before(due)
}

func (e *Engine) detectConversions(ctx context.Context, c *campaign.Campaign, run *campaign.Run) error {
	recipients, err := e.store.ListActiveRecipients(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("list recipients for conversion: %w", err)
	}

	for _, r := range recipients {
		value, found, err := e.store.FindConversion(ctx, r.CustomerID, r.EnrolledAt)
		if err != nil {
			return fmt.Errorf("find conversion for recipient %s: %w", r.ID, err)
		}
		if !found {
			continue
		}
		converted, err := e.store.ConvertRecipient(ctx, r.ID, value)
		if err != nil {
			return fmt.Errorf("convert recipient %s: %w", r.ID, err)
		}
		if !converted {
			continue
		}
		run.ConvertedCount++
		metrics.ConversionsTotal.Inc()
		if err := e.store.AddConversion(ctx, c.ID, value); err != nil {
			return fmt.Errorf("record conversion aggregates: %w", err)
		}
	}
	return nil
}
