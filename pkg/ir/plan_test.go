package ir

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blimu-dev/clientgen/pkg/diag"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		code    string
		status  int
		matches bool
		wantErr bool
	}{
		{code: "200", status: 200, matches: true},
		{code: "200", status: 201, matches: false},
		{code: "5xX", status: 503, matches: true},
		{code: "5XX", status: 599, matches: true},
		{code: "5xx", status: 404, matches: false},
		{code: "4x4", status: 404, matches: true},
		{code: "4x4", status: 405, matches: false},
		{code: "default", status: 418, matches: true},
		{code: "5x", wantErr: true},
		{code: "x00", wantErr: true},
		{code: "5yy", wantErr: true},
		{code: "abc", wantErr: true},
		{code: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			m, err := ParseStatus(tt.code)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.matches, m.Matches(tt.status))
		})
	}
}

func TestResponsePlan_DispatchFirstMatch(t *testing.T) {
	ok, _ := ParseStatus("200")
	server, _ := ParseStatus("5xX")
	exact, _ := ParseStatus("503")
	plan := ResponsePlan{Cases: []ResponseCase{
		{Matcher: ok, Type: Named("Pet")},
		{Matcher: server, IsError: true, Description: "range"},
		{Matcher: exact, IsError: true, Description: "exact"},
	}}

	c, found := plan.Dispatch(200)
	require.True(t, found)
	assert.Equal(t, "200", c.Matcher.Code)
	assert.False(t, c.IsError)

	c, found = plan.Dispatch(503)
	require.True(t, found)
	assert.Equal(t, "range", c.Description, "the earlier declared range wins over a later exact code")

	_, found = plan.Dispatch(404)
	assert.False(t, found)
}

func TestStatusMatcher_Success(t *testing.T) {
	for code, want := range map[string]bool{"200": true, "204": true, "2XX": true, "302": false, "4XX": false, "default": false} {
		m, err := ParseStatus(code)
		require.NoError(t, err)
		assert.Equal(t, want, m.Success(), code)
	}
}

func TestEncodeQuery(t *testing.T) {
	plan := RequestPlan{
		NullValue: "",
		Query: []Field{
			{Param: "tags", WireName: "tags", Encoding: EncodeArray, ItemEncoding: EncodeScalar},
			{Param: "q", WireName: "q", Encoding: EncodeScalar, Required: true},
			{Param: "limit", WireName: "limit", Encoding: EncodeScalar},
			{Param: "since", WireName: "since", Encoding: EncodeDate, DateOnly: true},
		},
	}

	t.Run("array expands in order", func(t *testing.T) {
		got := plan.EncodeQuery(Values{"tags": []string{"b", "a c", "b"}, "q": "x"}, nil)
		assert.Equal(t, "tags=b&tags=a%20c&tags=b&q=x&", got)
		assert.Equal(t, 3, strings.Count(got, "tags="))
	})

	t.Run("required absent uses null placeholder", func(t *testing.T) {
		assert.Equal(t, "q=&", plan.EncodeQuery(Values{}, nil))
		plan := plan
		plan.NullValue = "null"
		assert.Equal(t, "q=null&limit=null&", plan.EncodeQuery(Values{"limit": nil}, nil))
	})

	t.Run("dates go through the formatter", func(t *testing.T) {
		day := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
		assert.Equal(t, "q=1&since=2024-03-09&", plan.EncodeQuery(Values{"q": 1, "since": day}, nil))

		custom := func(t time.Time, _ bool) string { return "D" + t.Format("0102") }
		assert.Equal(t, "q=true&since=D0309&", plan.EncodeQuery(Values{"q": true, "since": day}, custom))
	})
}

func TestEscapeComponent(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"abc-_.!~*'()", "abc-_.!~*'()"},
		{"a b&c=d", "a%20b%26c%3Dd"},
		{"é/", "%C3%A9%2F"},
	}
	for _, test := range tests {
		if got := EscapeComponent(test.input); got != test.expected {
			t.Errorf("EscapeComponent(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

func TestBuildPath(t *testing.T) {
	plan := RequestPlan{PathParts: []PathPart{
		{Literal: "/pets/"}, {Param: "petId"}, {Literal: "/photos/"}, {Param: "name"},
	}}
	assert.Equal(t, "/pets/42/photos/my%20cat", plan.BuildPath(Values{"petId": 42, "name": "my cat"}))
}

func TestEncodeForm(t *testing.T) {
	plan := RequestPlan{Body: Body{Encoding: BodyForm, Fields: []Field{
		{Param: "name", WireName: "name", Encoding: EncodeScalar, Required: true},
		{Param: "born", WireName: "born", Encoding: EncodeDate},
		{Param: "ids", WireName: "ids", Encoding: EncodeArray, ItemEncoding: EncodeScalar},
	}}}
	born := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	got, err := plan.EncodeForm(Values{"name": "Rex", "born": born, "ids": []int{1, 2}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "name=Rex&born=2020-01-02T03%3A04%3A05.000Z&ids=1&ids=2&", got)

	plan.Body.Fields = append(plan.Body.Fields, Field{Param: "file", WireName: "file", Encoding: EncodeBinary})
	_, err = plan.EncodeForm(Values{"name": "Rex"}, nil)
	assert.True(t, errors.Is(err, diag.ErrIncompatibleBodyEncoding))
}

func TestMultipartParts(t *testing.T) {
	plan := RequestPlan{Body: Body{Encoding: BodyMultipart, Fields: []Field{
		{Param: "meta", WireName: "meta", Encoding: EncodeObject},
		{Param: "tags", WireName: "tags", Encoding: EncodeArray, ItemEncoding: EncodeScalar},
		{Param: "file", WireName: "file", Encoding: EncodeBinary, Required: true},
		{Param: "note", WireName: "note", Encoding: EncodeScalar},
	}}}
	blob := []byte{0x89, 'P', 'N', 'G'}
	parts := plan.MultipartParts(Values{
		"meta": map[string]any{"a": 1},
		"tags": []string{"x", "y"},
		"file": blob,
	}, nil)

	require.Len(t, parts, 4)
	assert.Equal(t, Part{Name: "meta", Value: `{"a":1}`}, parts[0])
	assert.Equal(t, Part{Name: "tags", Value: "x"}, parts[1])
	assert.Equal(t, Part{Name: "tags", Value: "y"}, parts[2])
	assert.True(t, parts[3].Binary)
	assert.Equal(t, blob, parts[3].Blob)
}
