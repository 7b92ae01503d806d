package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFlexStringDecoding(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
		D FlexString `json:"d"`
		E FlexString `json:"e"`
	}
	err := json.Unmarshal([]byte(`{"a":" 1.2 ","b":1.20,"c":null,"d":{"x":1},"e":true}`), &v)
	require.NoError(t, err)
	require.Equal(t, FlexString("1.2"), v.A)
	require.Equal(t, FlexString("1.20"), v.B)
	require.Empty(t, v.C)
	require.Empty(t, v.D)
	require.Equal(t, FlexString("true"), v.E)
}

func TestFlexListSkipsMalformed(t *testing.T) {
	var tree ConditionTree
	err := json.Unmarshal([]byte(`{"sections":[{"title":"A","conditions":[{"number":1},"junk",{"number":"2"}]}, 7]}`), &tree)
	require.NoError(t, err)
	require.Len(t, tree.Sections, 1)
	require.Len(t, tree.Sections[0].Conditions, 2)
	require.Equal(t, FlexString("1"), tree.Sections[0].Conditions[0].Number)

	var notArray ConditionTree
	require.NoError(t, json.Unmarshal([]byte(`{"sections":"none"}`), &notArray))
	require.Empty(t, notArray.Sections)

	var notObject ConditionTree
	require.NoError(t, json.Unmarshal([]byte(`"oops"`), &notObject))
	require.Empty(t, notObject.Sections)
}

func TestMaterialDecoding(t *testing.T) {
	var c ParsedCondition
	require.NoError(t, json.Unmarshal([]byte(`{"number":"3","material":{"required":"yes","timing":"Prior to works"}}`), &c))
	require.NotNil(t, c.Material)
	require.True(t, bool(c.Material.Required))

	c = ParsedCondition{}
	require.NoError(t, json.Unmarshal([]byte(`{"number":"3","material":null}`), &c))
	require.Nil(t, c.Material)
}

func TestParsedDocumentFallbacks(t *testing.T) {
	d := ParsedDocument{Number: "DA-01", Date: "2024-01-01"}
	require.Equal(t, "DA-01", d.Reference())
	require.Equal(t, "2024-01-01", d.DocumentDate())

	d.PlanNumber = "SK-100"
	d.PlanDate = "2024-02-02"
	require.Equal(t, "SK-100", d.Reference())
	require.Equal(t, "2024-02-02", d.DocumentDate())
}

func TestFormatTimeSortsLexically(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := FormatTime(base)
	b := FormatTime(base.Add(time.Nanosecond))
	c := FormatTime(base.Add(time.Second))

	require.Len(t, a, len(c))
	require.Less(t, a, b)
	require.Less(t, b, c)
	require.Equal(t, "2026-03-01T10:00:00.000000000Z", a)
}
