package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_JSONKeepsKeyOrder(t *testing.T) {
	doc := Decode(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":"*","Resource":"*"}]}`)

	require.True(t, doc.Structured())
	assert.Equal(t, FormatJSON, doc.Format())
	assert.Nil(t, doc.DecodeError())

	want := `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Action": "*",
      "Resource": "*"
    }
  ]
}`
	assert.Equal(t, want, doc.Canonical())
}

func TestDecode_JSONNoHTMLEscaping(t *testing.T) {
	doc := Decode(`{"url":"postgres://u:p@host/db?a=1&b=<2>"}`)

	require.True(t, doc.Structured())
	assert.Contains(t, doc.Canonical(), `a=1&b=<2>`)
}

func TestDecode_JSONNumbersSurvive(t *testing.T) {
	doc := Decode(`{"big":12345678901234567890,"f":1.50}`)

	require.True(t, doc.Structured())
	assert.Contains(t, doc.Canonical(), `"big": 12345678901234567890`)
	assert.Contains(t, doc.Canonical(), `"f": 1.50`)
}

func TestDecode_TrailingDataFallsThrough(t *testing.T) {
	doc := Decode(`{"a":1} {"b":2}`)

	assert.True(t, doc.Degraded())
	assert.Equal(t, `{"a":1} {"b":2}`, doc.Canonical())
}

func TestDecode_Flat(t *testing.T) {
	text := `# bucket config
Bucket: my-bucket
Versioning:
  Status: Suspended
Tags:
  - prod
  - "team-a"
Rules:
  - Effect: Allow
    Action: "*"
  - Effect: Deny
Count: 3
Ratio: 0.5
Public: true
Owner: null
`
	doc := Decode(text)

	require.True(t, doc.Structured())
	assert.Equal(t, FormatFlat, doc.Format())

	v, ok := doc.Lookup("Bucket")
	require.True(t, ok)
	assert.Equal(t, "my-bucket", v)

	v, ok = doc.Lookup("Versioning", "Status")
	require.True(t, ok)
	assert.Equal(t, "Suspended", v)

	v, ok = doc.Lookup("Tags")
	require.True(t, ok)
	assert.Equal(t, []any{"prod", "team-a"}, v)

	v, ok = doc.Lookup("Rules")
	require.True(t, ok)
	items, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	first := items[0].(*Object)
	assert.Equal(t, []string{"Effect", "Action"}, first.Keys())

	v, _ = doc.Lookup("Count")
	assert.Equal(t, int64(3), v)
	v, _ = doc.Lookup("Ratio")
	assert.Equal(t, 0.5, v)
	v, _ = doc.Lookup("Public")
	assert.Equal(t, true, v)
	v, ok = doc.Lookup("Owner")
	assert.True(t, ok)
	assert.Nil(t, v)

	assert.Contains(t, doc.Canonical(), `"Action": "*"`)
}

func TestDecode_FlatNestedSequences(t *testing.T) {
	text := `Version: "2012-10-17"
Statement:
  - Effect: Allow
    Action:
      - "s3:GetObject"
      - s3:PutObject
    Resource: "*"
  - Effect: Deny
    Action:
    - "iam:*"
    NotResource: arn:aws:iam::123456789012:role/admin
  - Principal:
      - "*"
    Effect: Allow
Bucket:
  Tags:
    - prod
    - Key: team
  Status: Enabled
`
	doc := Decode(text)

	require.True(t, doc.Structured(), "decode error: %v", doc.DecodeError())
	assert.Equal(t, FormatFlat, doc.Format())

	v, ok := doc.Lookup("Statement")
	require.True(t, ok)
	items, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, items, 3)

	first := items[0].(*Object)
	assert.Equal(t, []string{"Effect", "Action", "Resource"}, first.Keys())
	action, _ := first.Get("Action")
	assert.Equal(t, []any{"s3:GetObject", "s3:PutObject"}, action)
	resource, _ := first.Get("Resource")
	assert.Equal(t, "*", resource)

	second := items[1].(*Object)
	action, _ = second.Get("Action")
	assert.Equal(t, []any{"iam:*"}, action)
	notResource, _ := second.Get("NotResource")
	assert.Equal(t, "arn:aws:iam::123456789012:role/admin", notResource)

	third := items[2].(*Object)
	assert.Equal(t, []string{"Principal", "Effect"}, third.Keys())
	principal, _ := third.Get("Principal")
	assert.Equal(t, []any{"*"}, principal)

	v, ok = doc.Lookup("Bucket", "Tags")
	require.True(t, ok)
	tags := v.([]any)
	require.Len(t, tags, 2)
	assert.Equal(t, "prod", tags[0])
	assert.Equal(t, []string{"Key"}, tags[1].(*Object).Keys())
	v, _ = doc.Lookup("Bucket", "Status")
	assert.Equal(t, "Enabled", v)

	assert.Contains(t, doc.Canonical(), `"Version": "2012-10-17"`)
}

func TestDecode_FlatListUnderScalarFails(t *testing.T) {
	doc := Decode("Statement:\n  - Effect: Allow\n    Action: s3:GetObject\n      - s3:PutObject\n")
	assert.True(t, doc.Degraded())
}

func TestDecode_FlatQuotedKeys(t *testing.T) {
	doc := Decode(`"type": "service_account"` + "\n" + `'project_id': demo`)

	require.True(t, doc.Structured())
	v, _ := doc.Lookup("type")
	assert.Equal(t, "service_account", v)
	v, _ = doc.Lookup("project_id")
	assert.Equal(t, "demo", v)
}

func TestDecode_FlatValueWithColons(t *testing.T) {
	doc := Decode("Resource: arn:aws:s3:::bucket/*\nUrl: https://example.com")

	require.True(t, doc.Structured())
	v, _ := doc.Lookup("Resource")
	assert.Equal(t, "arn:aws:s3:::bucket/*", v)
	v, _ = doc.Lookup("Url")
	assert.Equal(t, "https://example.com", v)
}

func TestDecode_RawFallback(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"comments only", "# nothing here\n\n"},
		{"prose", "allow everything to everyone please"},
		{"broken json", `{"Statement": [}`},
		{"orphan indent", "  key: value"},
		{"list in scalar block", "a: 1\n  - x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Decode(tt.text)
			assert.True(t, doc.Degraded())
			assert.False(t, doc.Structured())
			assert.Equal(t, FormatRaw, doc.Format())
			assert.Equal(t, tt.text, doc.Canonical())
			assert.Equal(t, tt.text, doc.Value())
			assert.Error(t, doc.DecodeError())

			_, ok := doc.Lookup("anything")
			assert.False(t, ok)
		})
	}
}

func TestDocument_MarshalJSON(t *testing.T) {
	structured := Decode(`{"b":1,"a":{"z":true,"y":null}}`)
	out, err := json.Marshal(structured)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":{"z":true,"y":null}}`, string(out))

	raw := Decode("not & a <config>")
	out, err = json.Marshal(raw)
	require.NoError(t, err)
	var s string
	require.NoError(t, json.Unmarshal(out, &s))
	assert.Equal(t, "not & a <config>", s)
}

func TestDecode_Deterministic(t *testing.T) {
	text := "Version: 2012-10-17\nStatement:\n  - Effect: Allow\n    Action: s3:*\n"
	assert.Equal(t, Decode(text).Canonical(), Decode(text).Canonical())
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(false))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy(json.Number("0")))
	assert.False(t, Truthy(int64(0)))
	assert.False(t, Truthy(0.0))

	assert.True(t, Truthy(true))
	assert.True(t, Truthy("x"))
	assert.True(t, Truthy(json.Number("1.5")))
	assert.True(t, Truthy(int64(-1)))
	assert.True(t, Truthy(NewObject()))
	assert.True(t, Truthy([]any{}))
}

func TestParseJSON(t *testing.T) {
	v, err := ParseJSON(`{"riskLevel":"High","keyMisconfigs":["a"]}`)
	require.NoError(t, err)
	obj, ok := v.(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"riskLevel", "keyMisconfigs"}, obj.Keys())

	_, err = ParseJSON("prose")
	assert.Error(t, err)
}
