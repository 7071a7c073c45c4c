// Package dispatch runs end-to-end blessing cycles: compose a blessing,
// generate an image, and deliver both to a set of chat targets. A single
// non-reentrant critical section guards every cycle so scheduled and manual
// triggers never overlap in their network side effects.
package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/chengmaomao/sendblessings/internal/database"
	"github.com/chengmaomao/sendblessings/internal/imagegen"
)

// ErrDispatchInProgress is returned when a trigger arrives while another
// dispatch is still running. The caller should skip and log, not wait.
var ErrDispatchInProgress = errors.New("a dispatch is already in progress")

// Messenger delivers composed content to one target. Implementations adapt
// a concrete chat platform; failures are per-call and isolated.
type Messenger interface {
	SendText(ctx context.Context, target Target, text string) error
	SendPhoto(ctx context.Context, target Target, caption, photoPath string) error
}

// Composer produces the blessing text. It never fails.
type Composer interface {
	Compose(ctx context.Context, holidayName string) string
}

// ImageService generates the accompanying image and controls its lifecycle.
type ImageService interface {
	Generate(ctx context.Context, prompt string, referenceImages []string) (*imagegen.Asset, error)
	Release(asset *imagegen.Asset)
}

// Result summarizes one dispatch cycle.
type Result struct {
	Holiday   string
	Blessing  string
	ImagePath string
	Sent      int
	Failed    int
}

// Dispatcher coordinates blessing cycles.
type Dispatcher struct {
	log       *slog.Logger
	composer  Composer
	images    ImageService
	messenger Messenger
	store     database.Store
	targets   []Target
	refImages []string

	dispatching atomic.Bool
}

// NewDispatcher creates a dispatcher. images may be nil when image
// generation is disabled; store may be nil when no ledger is configured.
func NewDispatcher(
	log *slog.Logger,
	composer Composer,
	images ImageService,
	messenger Messenger,
	store database.Store,
	targets []Target,
	refImages []string,
) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		log:       log.With("component", "dispatcher"),
		composer:  composer,
		images:    images,
		messenger: messenger,
		store:     store,
		targets:   targets,
		refImages: refImages,
	}
}

// Targets returns the configured fan-out destinations.
func (d *Dispatcher) Targets() []Target {
	return d.targets
}

// DispatchAll runs one full cycle for the holiday against every configured
// target. Used by the scheduler.
func (d *Dispatcher) DispatchAll(ctx context.Context, holidayName string) (*Result, error) {
	return d.dispatch(ctx, holidayName, d.targets, database.TriggerScheduled)
}

// DispatchTo runs one cycle against an explicit target list, bypassing the
// configured fan-out. Used by the manual command, which delivers only to
// the invoking session.
func (d *Dispatcher) DispatchTo(ctx context.Context, holidayName string, targets []Target) (*Result, error) {
	return d.dispatch(ctx, holidayName, targets, database.TriggerManual)
}

func (d *Dispatcher) dispatch(ctx context.Context, holidayName string, targets []Target, trigger string) (*Result, error) {
	if !d.dispatching.CompareAndSwap(false, true) {
		d.log.WarnContext(ctx, "Dispatch trigger skipped, another dispatch is running", "holiday", holidayName, "trigger", trigger)
		return nil, ErrDispatchInProgress
	}
	defer d.dispatching.Store(false)

	d.log.InfoContext(ctx, "Starting dispatch", "holiday", holidayName, "trigger", trigger, "targets", len(targets))

	blessing := d.composer.Compose(ctx, holidayName)

	var asset *imagegen.Asset
	if d.images != nil {
		prompt := imagegen.BuildPrompt(holidayName, blessing, len(d.refImages) > 0)
		generated, err := d.images.Generate(ctx, prompt, d.refImages)
		if err != nil {
			// Degrade to a text-only blessing rather than aborting.
			if errors.Is(err, imagegen.ErrKeysExhausted) {
				d.log.ErrorContext(ctx, "Image generation keys exhausted, sending text-only blessing", "holiday", holidayName, "error", err)
			} else {
				d.log.ErrorContext(ctx, "Image generation failed, sending text-only blessing", "holiday", holidayName, "error", err)
			}
		} else {
			asset = generated
			defer d.images.Release(asset)
		}
	}

	result := &Result{Holiday: holidayName, Blessing: blessing}
	if asset != nil {
		result.ImagePath = asset.Path()
	}

	record := d.recordDispatch(ctx, result, trigger)
	d.fanOut(ctx, result, record, targets)

	d.log.InfoContext(ctx, "Dispatch finished", "holiday", holidayName, "sent", result.Sent, "failed", result.Failed)
	return result, nil
}

// fanOut sends to all targets concurrently. One target's failure never
// affects the others.
func (d *Dispatcher) fanOut(ctx context.Context, result *Result, record *database.Dispatch, targets []Target) {
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, target := range targets {
		wg.Add(1)
		go func(target Target) {
			defer wg.Done()

			err := d.send(ctx, target, result)

			mu.Lock()
			if err != nil {
				result.Failed++
			} else {
				result.Sent++
			}
			mu.Unlock()

			if err != nil {
				d.log.ErrorContext(ctx, "Delivery failed", "target", target.String(), "error", err)
			} else {
				d.log.InfoContext(ctx, "Delivery succeeded", "target", target.String())
			}
			d.recordDelivery(ctx, record, target, err)
		}(target)
	}

	wg.Wait()
}

func (d *Dispatcher) send(ctx context.Context, target Target, result *Result) error {
	if result.ImagePath != "" {
		return d.messenger.SendPhoto(ctx, target, result.Blessing, result.ImagePath)
	}
	return d.messenger.SendText(ctx, target, result.Blessing)
}

// SendProbe delivers a probe text to every configured target and reports
// per-target reachability. It shares the dispatch critical section.
func (d *Dispatcher) SendProbe(ctx context.Context, probe string) (sent int, failedTargets []Target, err error) {
	if !d.dispatching.CompareAndSwap(false, true) {
		return 0, nil, ErrDispatchInProgress
	}
	defer d.dispatching.Store(false)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, target := range d.targets {
		wg.Add(1)
		go func(target Target) {
			defer wg.Done()

			sendErr := d.messenger.SendText(ctx, target, probe)

			mu.Lock()
			defer mu.Unlock()
			if sendErr != nil {
				failedTargets = append(failedTargets, target)
				d.log.ErrorContext(ctx, "Probe delivery failed", "target", target.String(), "error", sendErr)
			} else {
				sent++
			}
		}(target)
	}

	wg.Wait()
	return sent, failedTargets, nil
}

func (d *Dispatcher) recordDispatch(ctx context.Context, result *Result, trigger string) *database.Dispatch {
	if d.store == nil {
		return nil
	}

	record := &database.Dispatch{
		Holiday:  result.Holiday,
		Blessing: result.Blessing,
		Trigger:  trigger,
	}
	if result.ImagePath != "" {
		record.ImagePath = sql.NullString{String: result.ImagePath, Valid: true}
	}

	if err := d.store.RecordDispatch(ctx, record); err != nil {
		d.log.WarnContext(ctx, "Failed to record dispatch in ledger", "error", err)
		return nil
	}
	return record
}

func (d *Dispatcher) recordDelivery(ctx context.Context, record *database.Dispatch, target Target, sendErr error) {
	if d.store == nil || record == nil || record.ID == 0 {
		return
	}

	delivery := &database.Delivery{
		DispatchID: record.ID,
		Platform:   target.Platform,
		Kind:       string(target.Kind),
		TargetID:   target.ID,
		Status:     database.StatusSent,
	}
	if sendErr != nil {
		delivery.Status = database.StatusFailed
		delivery.Error = sql.NullString{String: sendErr.Error(), Valid: true}
	}

	if err := d.store.RecordDelivery(ctx, delivery); err != nil {
		d.log.WarnContext(ctx, "Failed to record delivery in ledger", "target", target.String(), "error", err)
	}
}
