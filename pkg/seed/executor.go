package seed

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Executor applies pending seeders. It holds no state between runs; the
// ledger decides what is pending.
type Executor struct {
	discovery *Discovery
	repo      Repository
	validator *Validator
	schema    SchemaInspector
	store     DataStore
	ledger    Ledger
	opts      options
}

// NewExecutor wires an Executor from its collaborators.
func NewExecutor(repo Repository, schema SchemaInspector, store DataStore, ledger Ledger, opts ...Option) (*Executor, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	if store == nil {
		return nil, errors.New("data store is required")
	}
	if ledger == nil {
		return nil, errors.New("ledger is required")
	}
	validator, err := NewValidator(schema)
	if err != nil {
		return nil, err
	}

	return &Executor{
		discovery: NewDiscovery(repo),
		repo:      repo,
		validator: validator,
		schema:    schema,
		store:     store,
		ledger:    ledger,
		opts:      buildOptions(opts),
	}, nil
}

// Run applies every pending seeder whose tag equals tag (nil matches only
// untagged seeders).
//
// All pending seeders are validated before anything is written. If any is
// rejected the run aborts with an *AbortError and the data store and ledger
// are left untouched. After that gate each seeder is applied on its own: a
// write failure is recorded in the report and the run moves on without
// undoing seeders already applied.
func (e *Executor) Run(ctx context.Context, tag *string) (*Report, error) {
	ctx, span := e.opts.tracer.Start(ctx, "seed.run", trace.WithAttributes(
		attribute.String("seed.tag", TagLabel(tag)),
	))
	defer span.End()

	report := &Report{RunID: uuid.New(), Tag: tag}
	log := e.opts.log.With().
		Str("run_id", report.RunID.String()).
		Str("tag", TagLabel(tag)).
		Logger()

	names, err := e.discovery.List(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	applied, err := e.ledger.AppliedNames(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	pending := Pending(names, applied)
	if len(pending) == 0 {
		report.Status = StatusNothingToDo
		log.Info().Msg("no pending after seeders")
		return report, nil
	}

	artifacts, problems := e.preflight(ctx, pending)
	if len(problems) > 0 {
		report.Status = StatusAborted
		report.Problems = problems
		abort := &AbortError{Problems: problems}
		span.SetStatus(codes.Error, abort.Error())
		log.Error().Int("rejected", len(problems)).Int("pending", len(pending)).Msg("pre-flight validation failed, nothing applied")
		return report, abort
	}

	batch, err := e.ledger.NextBatchNumber(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("next batch number: %w", err)
	}
	report.Batch = batch
	report.Status = StatusCompleted
	span.SetAttributes(attribute.Int("seed.batch", batch))
	log = log.With().Int("batch", batch).Logger()
	log.Info().Int("pending", len(artifacts)).Msg("seeding batch")

	for _, artifact := range artifacts {
		if !tagsEqual(artifact.Tag, tag) {
			log.Info().Str("seeder", artifact.Name).Str("seeder_tag", TagLabel(artifact.Tag)).Msg("skipped")
			report.Results = append(report.Results, Result{
				Seeder:  artifact.Name,
				Table:   artifact.Table,
				Tag:     artifact.Tag,
				Outcome: OutcomeSkipped,
				Records: len(artifact.Records),
			})
			continue
		}

		res := e.apply(ctx, artifact, batch, report.RunID)
		ev := log.Info()
		if res.Err != nil {
			ev = log.Error().Err(res.Err)
		}
		ev.Str("seeder", res.Seeder).
			Str("outcome", string(res.Outcome)).
			Int("records", res.Records).
			Dur("duration", res.Duration).
			Msg("seeder finished")
		report.Results = append(report.Results, res)
	}

	if report.Count(OutcomeSkipped) == len(report.Results) {
		log.Warn().Msg("no after seeders available for this tag")
	}
	if failed := report.Count(OutcomeFailed); failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d seeder(s) failed", failed))
	}

	return report, nil
}

// preflight reads and validates every pending seeder, collecting every
// problem rather than stopping at the first.
func (e *Executor) preflight(ctx context.Context, pending []string) ([]*Artifact, []error) {
	artifacts := make([]*Artifact, 0, len(pending))
	var problems []error
	for _, name := range pending {
		body, err := e.repo.Read(ctx, name)
		if err != nil {
			problems = append(problems, fmt.Errorf("seeder %q: read: %w", name, err))
			continue
		}
		artifact, err := e.validator.Validate(ctx, name, body)
		if err != nil {
			e.opts.log.Error().Err(err).Str("seeder", name).Str("kind", KindOf(err).String()).Msg("seeder rejected")
			problems = append(problems, err)
			continue
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, problems
}

func (e *Executor) apply(ctx context.Context, artifact *Artifact, batch int, runID uuid.UUID) Result {
	ctx, span := e.opts.tracer.Start(ctx, "seed.apply", trace.WithAttributes(
		attribute.String("seed.name", artifact.Name),
		attribute.String("seed.table", artifact.Table),
		attribute.Int("seed.records", len(artifact.Records)),
	))
	defer span.End()

	res := Result{
		Seeder:  artifact.Name,
		Table:   artifact.Table,
		Tag:     artifact.Tag,
		Records: len(artifact.Records),
	}

	start := time.Now()
	err := e.write(ctx, artifact)
	res.Duration = time.Since(start)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = &Error{Kind: KindWriteFailure, Seeder: artifact.Name, Table: artifact.Table, Err: err}
		span.SetStatus(codes.Error, err.Error())
		return res
	}

	appliedAt := e.opts.now()
	entry := LedgerEntry{Seeder: artifact.Name, Batch: batch, Tag: artifact.Tag, AppliedAt: appliedAt}
	if err := e.ledger.Record(ctx, entry); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = &Error{Kind: KindWriteFailure, Seeder: artifact.Name, Table: LedgerTable, Err: err}
		span.SetStatus(codes.Error, err.Error())
		return res
	}
	res.Outcome = OutcomeApplied

	e.notify(ctx, AppliedEvent{
		RunID:     runID,
		Seeder:    artifact.Name,
		Table:     artifact.Table,
		Batch:     batch,
		Tag:       artifact.Tag,
		Records:   len(artifact.Records),
		AppliedAt: appliedAt,
	})
	return res
}

// write upserts records carrying an id and inserts the rest, with foreign
// key checks suspended for this seeder only.
func (e *Executor) write(ctx context.Context, artifact *Artifact) error {
	if len(artifact.Records) == 0 {
		return nil
	}

	stamp, err := e.schema.HasColumn(ctx, artifact.Table, ColumnCreatedAt)
	if err != nil {
		return fmt.Errorf("inspect %s.%s: %w", artifact.Table, ColumnCreatedAt, err)
	}
	now := e.opts.now()

	return e.store.WithoutForeignKeyChecks(ctx, func(w RecordWriter) error {
		for i, rec := range artifact.Records {
			row := prepareRecord(rec, stamp, now)
			var err error
			if _, ok := row[ColumnID]; ok {
				err = w.Upsert(ctx, artifact.Table, row)
			} else {
				err = w.Insert(ctx, artifact.Table, row)
			}
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
		}
		return nil
	})
}

// prepareRecord copies rec, adding created_at when the table has it and the
// record does not.
func prepareRecord(rec Record, stamp bool, now time.Time) Record {
	row := maps.Clone(rec)
	if row == nil {
		row = Record{}
	}
	if stamp {
		if _, ok := row[ColumnCreatedAt]; !ok {
			row[ColumnCreatedAt] = now
		}
	}
	return row
}

func (e *Executor) notify(ctx context.Context, evt AppliedEvent) {
	if e.opts.notifier == nil {
		return
	}
	if err := e.opts.notifier.Publish(ctx, e.opts.subject, evt); err != nil {
		e.opts.log.Warn().Err(err).Str("seeder", evt.Seeder).Str("subject", e.opts.subject).Msg("publish applied event")
	}
}
