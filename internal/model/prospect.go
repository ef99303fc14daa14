// Package model defines the records produced by the outreach pipeline.
package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Company is a prospective customer found by company discovery.
type Company struct {
	Name          string     `json:"name"`
	Website       string     `json:"website,omitempty"`
	WhyFit        string     `json:"why_fit,omitempty"`
	EmployeeCount FlexString `json:"employee_count,omitempty"`
	GrowthSignals []string   `json:"growth_signals,omitempty"`
}

// ContactGroup lists the decision makers found for one company. Name refers
// to a Company by name.
type ContactGroup struct {
	Name     string    `json:"name"`
	Contacts []Contact `json:"contacts"`
}

// Contact is a decision maker at a company.
type Contact struct {
	FullName     string `json:"full_name"`
	Title        string `json:"title,omitempty"`
	Email        string `json:"email,omitempty"`
	Inferred     bool   `json:"inferred"`
	Source       string `json:"source,omitempty"`
	LastActivity string `json:"last_activity,omitempty"`
}

// PhoneGroup lists the phone numbers found for one company's contacts.
type PhoneGroup struct {
	Name     string         `json:"name"`
	Contacts []PhoneContact `json:"contacts"`
}

// Phone types reported by phone discovery.
const (
	PhoneTypeDirect = "direct"
	PhoneTypeMobile = "mobile"
	PhoneTypeOffice = "office"
)

// PhoneContact is a phone number attributed to a contact.
type PhoneContact struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
	PhoneType   string `json:"phone_type,omitempty"`
	Verified    bool   `json:"verified"`
	Source      string `json:"source,omitempty"`
}

// MaxInsights caps the insights kept per company.
const MaxInsights = 5

// ResearchGroup holds the personalization insights for one company.
type ResearchGroup struct {
	Name     string   `json:"name"`
	Insights []string `json:"insights"`
}

// EmailDraft is a personalized outreach email.
type EmailDraft struct {
	Company             string `json:"company"`
	Contact             string `json:"contact"`
	Subject             string `json:"subject"`
	Body                string `json:"body"`
	PersonalizationUsed string `json:"personalization_used,omitempty"`
}

// PipelineResult accumulates the output of every stage of one run. Stages
// only ever append; a failed run keeps what earlier stages produced.
type PipelineResult struct {
	Companies []Company       `json:"companies"`
	Contacts  []ContactGroup  `json:"contacts"`
	Phones    []PhoneGroup    `json:"phones"`
	Research  []ResearchGroup `json:"research"`
	Emails    []EmailDraft    `json:"emails"`
}

// NewPipelineResult returns a result with every collection empty but non-nil.
func NewPipelineResult() *PipelineResult {
	r := &PipelineResult{}
	r.normalize()
	return r
}

func (r *PipelineResult) normalize() {
	if r.Companies == nil {
		r.Companies = []Company{}
	}
	if r.Contacts == nil {
		r.Contacts = []ContactGroup{}
	}
	if r.Phones == nil {
		r.Phones = []PhoneGroup{}
	}
	if r.Research == nil {
		r.Research = []ResearchGroup{}
	}
	if r.Emails == nil {
		r.Emails = []EmailDraft{}
	}
}

// MarshalJSON renders absent collections as [] rather than null.
func (r PipelineResult) MarshalJSON() ([]byte, error) {
	r.normalize()
	type plain PipelineResult
	return json.Marshal(plain(r))
}

// ContactCount returns the number of individual contacts across all groups.
func (r *PipelineResult) ContactCount() int {
	n := 0
	for _, g := range r.Contacts {
		n += len(g.Contacts)
	}
	return n
}

// PhoneCount returns the number of phone contacts across all groups.
func (r *PipelineResult) PhoneCount() int {
	n := 0
	for _, g := range r.Phones {
		n += len(g.Contacts)
	}
	return n
}

// BatchRowResult is the outcome of one batch row: either Result or Error is
// set, never both.
type BatchRowResult struct {
	Row        int             `json:"row"`
	TargetDesc string          `json:"target_desc"`
	Result     *PipelineResult `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Failed reports whether the row ended in an error.
func (b BatchRowResult) Failed() bool {
	return b.Error != ""
}

// FlexString decodes a JSON string or number into a string. Models report
// employee counts both as "50-200" and as 120.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "model: decode string")
		}
		*f = FlexString(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return eris.Errorf("model: expected string or number, got %s", string(data))
		}
		*f = FlexString(n.String())
	}
	return nil
}
