package generator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blimu-dev/clientgen/pkg/config"
	"github.com/blimu-dev/clientgen/pkg/diag"
	"github.com/blimu-dev/clientgen/pkg/ir"
)

func TestQueryPlan(t *testing.T) {
	in := build(t, petstore)
	plan := findPlan(t, in, "Pets", "listPets")
	req := plan.Request

	require.Len(t, req.Query, 2)
	assert.Equal(t, ir.EncodeArray, req.Query[0].Encoding)
	assert.Equal(t, ir.EncodeScalar, req.Query[0].ItemEncoding)
	assert.True(t, req.Query[1].Required)

	assert.Equal(t, "tags=a&tags=b&tags=c&limit=10&",
		req.EncodeQuery(ir.Values{"tags": []string{"a", "b", "c"}, "limit": 10}, nil))
	assert.Equal(t, "limit=10&", req.EncodeQuery(ir.Values{"limit": 10}, nil))
	assert.Equal(t, "application/json", req.Accept)
	assert.Equal(t, ir.BodyNone, req.Body.Encoding)
}

func TestPathPlan(t *testing.T) {
	in := build(t, petstore)
	plan := findPlan(t, in, "Pets", "showPetById")

	assert.Equal(t, []ir.PathPart{{Literal: "/pets/"}, {Param: "petId"}}, plan.Request.PathParts)
	assert.Equal(t, "/pets/a%20b%2Fc", plan.Request.BuildPath(ir.Values{"petId": "a b/c"}))
	require.Len(t, plan.Parameters, 1)
	assert.True(t, plan.Parameters[0].Required)
	assert.Equal(t, ir.InPath, plan.Parameters[0].Location)
}

func TestJSONBodyPlan(t *testing.T) {
	in := build(t, petstore)
	plan := findPlan(t, in, "Pets", "createPet")
	req := plan.Request

	assert.Equal(t, ir.BodyJSON, req.Body.Encoding)
	assert.Equal(t, "application/json", req.ContentType)
	assert.Equal(t, "body", req.Body.Param)
	require.Len(t, plan.Parameters, 1)
	assert.Equal(t, "NewPet", plan.Parameters[0].Type.String())
	assert.True(t, plan.Parameters[0].Required)
}

const uploads = `
openapi: 3.0.3
info:
  title: Uploads
  version: "1"
paths:
  /files:
    post:
      operationId: putFile
      requestBody:
        required: true
        content:
          image/png:
            schema:
              type: string
              format: binary
      responses:
        "200":
          description: receipt
          content:
            application/xml:
              schema:
                type: string
  /login:
    post:
      operationId: login
      requestBody:
        content:
          application/x-www-form-urlencoded:
            schema:
              type: object
              required: [username]
              properties:
                username:
                  type: string
                scopes:
                  type: array
                  items:
                    type: string
      responses:
        "204":
          description: ok
  /upload:
    post:
      operationId: upload
      requestBody:
        content:
          multipart/form-data:
            schema:
              type: object
              properties:
                file:
                  type: string
                  format: binary
                meta:
                  type: object
                  properties:
                    label:
                      type: string
      responses:
        "204":
          description: ok
`

func TestBinaryBodyPlan(t *testing.T) {
	in := build(t, uploads)
	plan := findPlan(t, in, "Misc", "putFile")
	req := plan.Request

	assert.Equal(t, ir.BodyBinary, req.Body.Encoding)
	assert.Equal(t, "image/png", req.ContentType)
	assert.Equal(t, "application/xml", req.Accept)
	require.Len(t, plan.Parameters, 1)
	assert.True(t, plan.Parameters[0].Type.IsBinary())
	assert.Equal(t, "Blob", plan.Parameters[0].Type.Name)

	require.Len(t, plan.Responses.Cases, 1)
	assert.Equal(t, ir.DecodeText, plan.Responses.Cases[0].Decode)
	assert.Equal(t, "string", plan.Responses.Result.String())
}

func TestFormBodyPlan(t *testing.T) {
	in := build(t, uploads)
	plan := findPlan(t, in, "Misc", "login")
	req := plan.Request

	assert.Equal(t, ir.BodyForm, req.Body.Encoding)
	assert.Equal(t, "application/x-www-form-urlencoded", req.ContentType)
	findType(t, in, "MiscLoginBody")

	var names []string
	for _, p := range plan.Parameters {
		names = append(names, p.Name)
		assert.Equal(t, ir.InForm, p.Location)
	}
	assert.Equal(t, []string{"username", "scopes"}, names)

	body, err := req.EncodeForm(ir.Values{"username": "a b", "scopes": []string{"x", "y"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "username=a%20b&scopes=x&scopes=y&", body)
}

func TestMultipartBodyPlan(t *testing.T) {
	in := build(t, uploads)
	plan := findPlan(t, in, "Misc", "upload")
	req := plan.Request

	assert.Equal(t, ir.BodyMultipart, req.Body.Encoding)
	// the transport sets the boundary
	assert.Equal(t, "", req.ContentType)
	require.Len(t, req.Body.Fields, 2)
	assert.Equal(t, ir.EncodeBinary, req.Body.Fields[0].Encoding)
	assert.Equal(t, ir.EncodeObject, req.Body.Fields[1].Encoding)

	blob := []byte{1, 2, 3}
	parts := req.MultipartParts(ir.Values{"file": blob, "meta": map[string]string{"label": "x"}}, nil)
	assert.Equal(t, []ir.Part{
		{Name: "file", Binary: true, Blob: blob},
		{Name: "meta", Value: `{"label":"x"}`},
	}, parts)
}

func TestRequestPlanErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{
			name: "binary field in url-encoded body",
			src: `
openapi: 3.0.3
info: {title: Bad, version: "1"}
paths:
  /avatar:
    post:
      operationId: setAvatar
      requestBody:
        content:
          application/x-www-form-urlencoded:
            schema:
              type: object
              properties:
                image:
                  type: string
                  format: binary
      responses:
        "204": {description: ok}
`,
			want: diag.ErrIncompatibleBodyEncoding,
		},
		{
			name: "no construction rule",
			src: `
openapi: 3.0.3
info: {title: Bad, version: "1"}
paths:
  /pets:
    post:
      operationId: addPet
      requestBody:
        content:
          application/xml:
            schema:
              type: object
              properties:
                name: {type: string}
      responses:
        "204": {description: ok}
`,
			want: diag.ErrUnsupportedContentType,
		},
		{
			name: "placeholder without parameter",
			src: `
openapi: 3.0.3
info: {title: Bad, version: "1"}
paths:
  /pets/{petId}:
    get:
      operationId: getPet
      responses:
        "204": {description: ok}
`,
			want: diag.ErrMissingPathParameter,
		},
		{
			name: "parameter without placeholder",
			src: `
openapi: 3.0.3
info: {title: Bad, version: "1"}
paths:
  /pets:
    get:
      operationId: getPet
      parameters:
        - name: petId
          in: path
          required: true
          schema: {type: string}
      responses:
        "204": {description: ok}
`,
			want: diag.ErrMissingPathParameter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := buildErr(t, tt.src)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHeaderAndCookieParameters(t *testing.T) {
	src := `
openapi: 3.0.3
info: {title: Headers, version: "1"}
paths:
  /reports:
    get:
      operationId: listReports
      parameters:
        - name: X-Request-ID
          in: header
          required: true
          schema: {type: string}
        - name: Accept
          in: header
          schema: {type: string}
        - name: session
          in: cookie
          schema: {type: string}
        - name: since
          in: query
          schema:
            type: string
            format: date
      responses:
        "204": {description: ok}
`
	in := build(t, src)
	plan := findPlan(t, in, "Misc", "listReports")

	var names []string
	for _, p := range plan.Parameters {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"xRequestID", "since"}, names)
	assert.Contains(t, warningKinds(in), diag.KindIgnoredParameter)

	req := plan.Request
	assert.Equal(t, map[string]string{"X-Request-ID": "abc%20def"}, req.EncodeHeaders(ir.Values{"xRequestID": "abc def"}, nil))

	require.Len(t, req.Query, 1)
	assert.Equal(t, ir.EncodeDate, req.Query[0].Encoding)
	assert.True(t, req.Query[0].DateOnly)
	since := time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "since=2024-03-01&", req.EncodeQuery(ir.Values{"since": since}, nil))
}

func TestNullValueAndDefaults(t *testing.T) {
	src := `
openapi: 3.0.3
info: {title: Defaults, version: "1"}
paths:
  /search:
    get:
      operationId: search
      parameters:
        - name: q
          in: query
          required: true
          schema: {type: string}
        - name: page
          in: query
          schema:
            type: integer
            default: 1
      responses:
        "204": {description: ok}
`
	in := build(t, src)
	plan := findPlan(t, in, "Misc", "search")
	assert.False(t, plan.Parameters[1].HasDefault)
	assert.Equal(t, "q=&", plan.Request.EncodeQuery(ir.Values{"q": nil}, nil))

	in = build(t, src, func(c *config.Client) {
		c.Generation.ParameterDefaults = true
		c.Generation.NullValue = "null"
	})
	plan = findPlan(t, in, "Misc", "search")
	assert.True(t, plan.Parameters[1].HasDefault)
	assert.EqualValues(t, 1, plan.Parameters[1].Default)
	assert.Equal(t, "q=null&", plan.Request.EncodeQuery(ir.Values{}, nil))
}
