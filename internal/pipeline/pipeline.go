// Package pipeline runs the five-stage prospecting pipeline: company
// discovery, contact discovery, phone discovery, research and email
// drafting.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/agent"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/prompt"
	"github.com/sells-group/outreach-cli/internal/stage"
	"github.com/sells-group/outreach-cli/internal/store"
)

// Response keys of each stage's JSON reply.
const (
	keyCompanies = "companies"
	keyEmails    = "emails"
)

// Pipeline orchestrates the stages of a single run.
type Pipeline struct {
	factory agent.Factory
	model   string
	models  map[model.Stage]string
	catalog *prompt.Catalog
	store   store.Store
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore records every run and its stage outcomes in st.
func WithStore(st store.Store) Option {
	return func(p *Pipeline) { p.store = st }
}

// WithCatalog sets the email style catalog.
func WithCatalog(c *prompt.Catalog) Option {
	return func(p *Pipeline) { p.catalog = c }
}

// WithStageModel overrides the model used for one stage.
func WithStageModel(s model.Stage, name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.models[s] = name
		}
	}
}

// New creates a Pipeline whose handles come from factory and use
// defaultModel unless overridden per stage.
func New(factory agent.Factory, defaultModel string, opts ...Option) *Pipeline {
	p := &Pipeline{
		factory: factory,
		model:   defaultModel,
		models:  make(map[model.Stage]string),
		catalog: prompt.DefaultCatalog(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunOption configures a single run.
type RunOption func(*runOptions)

type runOptions struct {
	runID   string
	batchID string
	row     int
}

// WithRunID tracks the run under an existing, already queued run record.
func WithRunID(id string) RunOption {
	return func(o *runOptions) { o.runID = id }
}

// WithBatch tags the run record with its batch and 1-based row.
func WithBatch(batchID string, row int) RunOption {
	return func(o *runOptions) {
		o.batchID = batchID
		o.row = row
	}
}

// Run executes the stages in order and returns what they produced. A halt
// on empty companies or contacts is a success. A fatal stage failure
// returns the partial result together with a *StageError.
func (p *Pipeline) Run(ctx context.Context, req model.RunRequest, opts ...RunOption) (*model.PipelineResult, error) {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}

	req = req.WithDefaults(model.DefaultMaxCompanies)
	result := model.NewPipelineResult()
	rs := &runState{
		store: p.store,
		runID: ro.runID,
		log:   zap.L().With(zap.String("target", req.TargetDescription)),
	}
	if err := req.Validate(); err != nil {
		err = eris.Wrap(err, "pipeline: validate request")
		rs.finish(ctx, result, err)
		return result, err
	}

	rs.begin(ctx, req, ro)
	start := time.Now()

	err := p.execute(ctx, rs, req, result)

	rs.finish(ctx, result, err)
	rs.log.Info("pipeline: run finished",
		zap.Int("companies", len(result.Companies)),
		zap.Int("contacts", result.ContactCount()),
		zap.Int("phones", result.PhoneCount()),
		zap.Int("emails", len(result.Emails)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		zap.Error(err),
	)
	return result, err
}

// Handles builds a fresh capability handle per stage.
func (p *Pipeline) Handles(style string) map[model.Stage]agent.Agent {
	st := p.catalog.Get(style)
	handles := make(map[model.Stage]agent.Agent, len(model.Stages))
	for _, s := range model.Stages {
		handles[s] = p.factory.New(agent.Spec{
			Stage:        s,
			Model:        p.modelFor(s),
			Instructions: prompt.Instructions(s, st),
			Search:       prompt.UsesSearch(s),
		})
	}
	return handles
}

func (p *Pipeline) modelFor(s model.Stage) string {
	if m, ok := p.models[s]; ok {
		return m
	}
	return p.model
}

func (p *Pipeline) execute(ctx context.Context, rs *runState, req model.RunRequest, result *model.PipelineResult) error {
	handles := p.Handles(req.EmailStyle)

	companies, halt, err := runStage(ctx, rs, model.StageCompanies, func() ([]model.Company, error) {
		recs, err := stage.Run[model.Company](ctx, handles[model.StageCompanies],
			prompt.Companies(req.TargetDescription, req.Offering, req.MaxCompanies), keyCompanies)
		if err != nil {
			return nil, err
		}
		recs = namedCompanies(recs)
		if len(recs) > req.MaxCompanies {
			recs = recs[:req.MaxCompanies]
		}
		return recs, nil
	})
	if err != nil {
		return err
	}
	result.Companies = companies
	if halt {
		return nil
	}

	contacts, halt, err := runStage(ctx, rs, model.StageContacts, func() ([]model.ContactGroup, error) {
		return stage.Run[model.ContactGroup](ctx, handles[model.StageContacts],
			prompt.Contacts(companies, req.TargetDescription, req.Offering), keyCompanies)
	})
	if err != nil {
		return err
	}
	result.Contacts = contacts
	if halt {
		return nil
	}

	phones, _, err := runStage(ctx, rs, model.StagePhones, func() ([]model.PhoneGroup, error) {
		return stage.Run[model.PhoneGroup](ctx, handles[model.StagePhones],
			prompt.Phones(contacts), keyCompanies)
	})
	if err != nil {
		return err
	}
	result.Phones = phones

	research, _, err := runStage(ctx, rs, model.StageResearch, func() ([]model.ResearchGroup, error) {
		recs, err := stage.Run[model.ResearchGroup](ctx, handles[model.StageResearch],
			prompt.Research(companies), keyCompanies)
		if err != nil {
			return nil, err
		}
		for i := range recs {
			if len(recs[i].Insights) > model.MaxInsights {
				recs[i].Insights = recs[i].Insights[:model.MaxInsights]
			}
		}
		return recs, nil
	})
	if err != nil {
		return err
	}
	result.Research = research

	emails, _, err := runStage(ctx, rs, model.StageEmails, func() ([]model.EmailDraft, error) {
		return stage.Run[model.EmailDraft](ctx, handles[model.StageEmails],
			prompt.Emails(contacts, research, req.Offering, req.Sender), keyEmails)
	})
	if err != nil {
		return err
	}
	result.Emails = emails
	return nil
}

// runStage runs fn under the stage's policy. It returns the records (empty,
// never nil, when tolerated), whether the run must halt, and a *StageError
// for fatal failures.
func runStage[T any](ctx context.Context, rs *runState, s model.Stage, fn func() ([]T, error)) ([]T, bool, error) {
	policy := PolicyFor(s)
	start := time.Now()
	records, err := fn()
	outcome := model.StageOutcome{
		Stage:      s,
		Records:    len(records),
		DurationMs: time.Since(start).Milliseconds(),
	}
	log := rs.log.With(zap.String("stage", string(s)), zap.Int64("duration_ms", outcome.DurationMs))

	if err != nil {
		outcome.Error = err.Error()
		if policy.OnError == Tolerate {
			outcome.Status = model.StageStatusTolerated
			outcome.Records = 0
			log.Warn("pipeline: stage failed, continuing", zap.Error(err))
			rs.record(ctx, outcome)
			return []T{}, false, nil
		}
		outcome.Status = model.StageStatusFailed
		log.Error("pipeline: stage failed", zap.Error(err))
		rs.record(ctx, outcome)
		return nil, false, &StageError{Stage: s, Err: err}
	}

	if records == nil {
		records = []T{}
	}
	if len(records) == 0 {
		outcome.Status = model.StageStatusEmpty
		halt := policy.OnEmpty == Halt
		log.Info("pipeline: stage returned no records", zap.Bool("halt", halt))
		rs.record(ctx, outcome)
		return records, halt, nil
	}

	outcome.Status = model.StageStatusComplete
	log.Info("pipeline: stage complete", zap.Int("records", len(records)))
	rs.record(ctx, outcome)
	return records, false, nil
}

func namedCompanies(in []model.Company) []model.Company {
	out := in[:0]
	for _, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name != "" {
			out = append(out, c)
		}
	}
	return out
}
