package model

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

// Stage names a pipeline stage.
type Stage string

// Pipeline stages in execution order.
const (
	StageCompanies Stage = "companies"
	StageContacts  Stage = "contacts"
	StagePhones    Stage = "phones"
	StageResearch  Stage = "research"
	StageEmails    Stage = "emails"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageCompanies, StageContacts, StagePhones, StageResearch, StageEmails}

// RunStatus represents the state of a pipeline run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// StageStatus represents how a stage ended.
type StageStatus string

const (
	StageStatusComplete  StageStatus = "complete"
	StageStatusEmpty     StageStatus = "empty"     // no records; run halted or continued per policy
	StageStatusTolerated StageStatus = "tolerated" // failed, treated as empty
	StageStatusFailed    StageStatus = "failed"
)

// StageOutcome records how a single stage of a run went.
type StageOutcome struct {
	Stage      Stage       `json:"stage"`
	Status     StageStatus `json:"status"`
	Records    int         `json:"records"`
	DurationMs int64       `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`
}

// Run is the persisted history of one pipeline run.
type Run struct {
	ID        string          `json:"id"`
	BatchID   string          `json:"batch_id,omitempty"`
	Row       int             `json:"row,omitempty"`
	Request   RunRequest      `json:"request"`
	Status    RunStatus       `json:"status"`
	Result    *PipelineResult `json:"result,omitempty"`
	Stages    []StageOutcome  `json:"stages,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Email styles understood by the email writer.
const (
	StyleProfessional = "Professional"
	StyleCasual       = "Casual"
	StyleCold         = "Cold"
	StyleConsultative = "Consultative"
)

// Company limits per run.
const (
	MinCompanies          = 1
	MaxCompanies          = 10
	DefaultMaxCompanies   = 5
	DefaultBatchCompanies = 3
)

// Sender identifies who the outreach emails are from.
type Sender struct {
	Name         string `json:"name" validate:"required"`
	Company      string `json:"company" validate:"required"`
	CalendarLink string `json:"calendar_link,omitempty" validate:"omitempty,url"`
}

// RunRequest is the input to a single pipeline run.
type RunRequest struct {
	TargetDescription string `json:"target_description" validate:"required"`
	Offering          string `json:"offering" validate:"required"`
	Sender            Sender `json:"sender"`
	MaxCompanies      int    `json:"max_companies" validate:"min=1,max=10"`
	EmailStyle        string `json:"email_style,omitempty" validate:"omitempty,oneof=Professional Casual Cold Consultative"`
}

var validate = validator.New()

// Validate checks the request's required fields and bounds.
func (r RunRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return eris.Wrap(err, "model: invalid run request")
	}
	return nil
}

// WithDefaults fills a zero MaxCompanies and EmailStyle.
func (r RunRequest) WithDefaults(maxCompanies int) RunRequest {
	if r.MaxCompanies == 0 {
		r.MaxCompanies = maxCompanies
	}
	if r.EmailStyle == "" {
		r.EmailStyle = StyleProfessional
	}
	return r
}
