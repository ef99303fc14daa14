package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineResult_MarshalsEmptyArrays(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(PipelineResult{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"companies":[],"contacts":[],"phones":[],"research":[],"emails":[]}`, string(data))

	data, err = json.Marshal(&BatchRowResult{Row: 1, TargetDesc: "x", Result: &PipelineResult{
		Companies: []Company{{Name: "Acme"}},
	}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"row":1,"target_desc":"x","result":{"companies":[{"name":"Acme"}],"contacts":[],"phones":[],"research":[],"emails":[]}}`, string(data))
}

func TestNewPipelineResult(t *testing.T) {
	t.Parallel()

	r := NewPipelineResult()
	assert.NotNil(t, r.Companies)
	assert.NotNil(t, r.Contacts)
	assert.NotNil(t, r.Phones)
	assert.NotNil(t, r.Research)
	assert.NotNil(t, r.Emails)
}

func TestPipelineResult_Counts(t *testing.T) {
	t.Parallel()

	r := PipelineResult{
		Contacts: []ContactGroup{
			{Name: "A", Contacts: []Contact{{FullName: "x"}, {FullName: "y"}}},
			{Name: "B", Contacts: []Contact{{FullName: "z"}}},
		},
		Phones: []PhoneGroup{{Name: "A", Contacts: []PhoneContact{{FullName: "x"}}}},
	}
	assert.Equal(t, 3, r.ContactCount())
	assert.Equal(t, 1, r.PhoneCount())
}

func TestBatchRowResult_ErrorOmitsResult(t *testing.T) {
	t.Parallel()

	row := BatchRowResult{Row: 2, TargetDesc: "No row data provided", Error: "boom"}
	assert.True(t, row.Failed())

	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"row":2,"target_desc":"No row data provided","error":"boom"}`, string(data))
}

func TestFlexString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want FlexString
	}{
		{`{"name":"A","employee_count":"50-200"}`, "50-200"},
		{`{"name":"A","employee_count":120}`, "120"},
		{`{"name":"A","employee_count":1.5e3}`, "1.5e3"},
		{`{"name":"A","employee_count":null}`, ""},
		{`{"name":"A"}`, ""},
	}
	for _, tt := range tests {
		var c Company
		require.NoError(t, json.Unmarshal([]byte(tt.in), &c), tt.in)
		assert.Equal(t, tt.want, c.EmployeeCount, tt.in)
	}

	var c Company
	assert.Error(t, json.Unmarshal([]byte(`{"name":"A","employee_count":true}`), &c))
}
