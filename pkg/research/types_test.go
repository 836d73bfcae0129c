package research

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStateWriteOnce(t *testing.T) {
	s := NewRunState("AI in education")

	_, ok := s.Get(FieldNews)
	assert.False(t, ok)

	require.NoError(t, s.Set(FieldNews, "first"))
	assert.ErrorIs(t, s.Set(FieldNews, "second"), ErrFieldAlreadySet)

	v, ok := s.Get(FieldNews)
	assert.True(t, ok)
	assert.Equal(t, "first", v)

	assert.ErrorIs(t, s.Set(Field("topic"), "x"), ErrUnknownField)
}

func TestRunStateJSONOmitsAbsentFields(t *testing.T) {
	s := NewRunState("AI in education")
	require.NoError(t, s.Set(FieldAcademic, "papers"))
	require.NoError(t, s.Set(FieldReport, "report"))

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "AI in education", decoded["topic"])
	assert.Equal(t, "papers", decoded["academic"])
	assert.Equal(t, "report", decoded["report"])
	assert.NotContains(t, decoded, "news")
	assert.NotContains(t, decoded, "industry")
	assert.NotContains(t, decoded, "output")
	assert.Equal(t, s.ID.String(), decoded["id"])
}

func TestInputsGetOr(t *testing.T) {
	in := Inputs{Topic: "t", values: map[Field]string{FieldAcademic: "a", FieldNews: ""}}

	assert.Equal(t, "a", in.GetOr(FieldAcademic, "fallback"))
	assert.Equal(t, "fallback", in.GetOr(FieldNews, "fallback"))
	assert.Equal(t, "fallback", in.GetOr(FieldIndustry, "fallback"))
}
