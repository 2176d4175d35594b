package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blimu-dev/clientgen/pkg/config"
	"github.com/blimu-dev/clientgen/pkg/diag"
	"github.com/blimu-dev/clientgen/pkg/ir"
)

func TestBuildIRDocumentMetadata(t *testing.T) {
	in := build(t, petstore)

	assert.Equal(t, "Petstore", in.Title)
	assert.Equal(t, "https://petstore.example.com/v1", in.BaseURL)
	require.Len(t, in.Clients, 1)
	assert.Equal(t, "Pets", in.Clients[0].Name)
	assert.Equal(t, "PetsClient", in.Clients[0].UnitName)
	assert.Equal(t, []string{"Pets.listPets", "Pets.createPet", "Pets.showPetById"}, planNames(in))

	plan := findPlan(t, in, "Pets", "showPetById")
	assert.Equal(t, "GET /pets/{petId}", plan.ID())
	assert.Equal(t, "showPetById", plan.OperationID)
	assert.Equal(t, []string{"pets"}, plan.Tags)
}

const exclusions = `
openapi: 3.0.3
info: {title: Filters, version: "1"}
paths:
  /pets:
    get:
      tags: [pets]
      operationId: listPets
      responses:
        "204": {description: ok}
  /pets/legacy:
    get:
      tags: [pets]
      operationId: listLegacyPets
      deprecated: true
      responses:
        "204": {description: ok}
  /admin/users:
    get:
      tags: [admin]
      operationId: listUsers
      responses:
        "204": {description: ok}
`

func TestBuildIRExclusions(t *testing.T) {
	in := build(t, exclusions, func(c *config.Client) {
		c.Generation.ExcludeDeprecated = true
		c.Generation.ExcludePaths = []string{"^/admin"}
	})
	assert.Equal(t, []string{"Pets.listPets"}, planNames(in))
	assert.Equal(t, []diag.Kind{diag.KindOperationExcluded, diag.KindOperationExcluded}, warningKinds(in))
	assert.Equal(t, "GET /pets/legacy", in.Warnings[0].Subject)

	in = build(t, exclusions, func(c *config.Client) { c.IncludeTags = []string{"^admin$"} })
	assert.Equal(t, []string{"Admin.listUsers"}, planNames(in))
}

func TestBuildIRInvalidConfiguration(t *testing.T) {
	err := buildErr(t, exclusions, func(c *config.Client) {
		c.Generation.ExcludePaths = []string{"("}
	})
	assert.ErrorIs(t, err, diag.ErrInvalidConfiguration)
}

func TestBuildIRLeafTypes(t *testing.T) {
	in := build(t, polymorphic, func(c *config.Client) { c.Generation.UseLeafType = true })

	owner := propertyTypes(findType(t, in, "Owner"))
	assert.Equal(t, "(Cat | Dog)", owner["pet"])
	assert.Equal(t, "Cat", owner["cat"])

	plan := findPlan(t, in, "Pets", "getPet")
	assert.Equal(t, "(Cat | Dog)", plan.Responses.Result.String())

	// the hierarchy itself is untouched
	assert.Equal(t, "Pet", findType(t, in, "Cat").Base)
}

func TestBuildIRMergesPathParameters(t *testing.T) {
	src := `
openapi: 3.0.3
info: {title: Params, version: "1"}
paths:
  /pets/{petId}:
    parameters:
      - name: petId
        in: path
        required: true
        schema: {type: string}
      - name: verbose
        in: query
        schema: {type: boolean}
    get:
      operationId: getPet
      parameters:
        - name: verbose
          in: query
          required: true
          schema: {type: boolean}
        - name: fields
          in: query
          schema: {type: string}
      responses:
        "204": {description: ok}
    delete:
      operationId: deletePet
      responses:
        "204": {description: ok}
`
	in := build(t, src)

	get := findPlan(t, in, "Misc", "getPet")
	require.Len(t, get.Parameters, 3)
	assert.Equal(t, "petId", get.Parameters[0].Name)
	assert.Equal(t, "verbose", get.Parameters[1].Name)
	assert.True(t, get.Parameters[1].Required)
	assert.Equal(t, "fields", get.Parameters[2].Name)

	del := findPlan(t, in, "Misc", "deletePet")
	require.Len(t, del.Parameters, 2)
	assert.False(t, del.Parameters[1].Required)
}

func TestBuildIRSharedComponents(t *testing.T) {
	src := `
openapi: 3.0.3
info: {title: Shared, version: "1"}
paths:
  /pets:
    post:
      operationId: addPet
      parameters:
        - $ref: '#/components/parameters/TraceId'
      requestBody:
        $ref: '#/components/requestBodies/PetBody'
      responses:
        "400":
          $ref: '#/components/responses/BadRequest'
        "204":
          description: ok
components:
  parameters:
    TraceId:
      name: X-Trace-Id
      in: header
      schema: {type: string}
  requestBodies:
    PetBody:
      required: true
      content:
        application/json:
          schema:
            type: object
            properties:
              name: {type: string}
  responses:
    BadRequest:
      description: bad request
      content:
        application/json:
          schema:
            type: object
            properties:
              reason: {type: string}
`
	in := build(t, src)
	plan := findPlan(t, in, "Misc", "addPet")

	var names []string
	for _, p := range plan.Parameters {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"xTraceId", "body"}, names)
	assert.Equal(t, "MiscAddPetBody", plan.Parameters[1].Type.String())
	assert.Equal(t, "MiscAddPetError400", plan.Responses.Cases[0].Type.String())
}

func TestBuildIRSecuritySchemes(t *testing.T) {
	src := `
openapi: 3.0.3
info: {title: Secure, version: "1"}
paths: {}
components:
  securitySchemes:
    bearerAuth:
      type: http
      scheme: bearer
      bearerFormat: JWT
    apiKey:
      type: apiKey
      in: header
      name: X-API-Key
    basicAuth:
      type: http
      scheme: Basic
`
	in := build(t, src)
	assert.Equal(t, []ir.SecurityScheme{
		{Key: "bearerAuth", Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
		{Key: "apiKey", Type: "apiKey", In: "header", Name: "X-API-Key"},
		{Key: "basicAuth", Type: "http", Scheme: "basic"},
	}, in.SecuritySchemes)
}

func TestBuildIRReservesClientUnitNames(t *testing.T) {
	src := `
openapi: 3.0.3
info: {title: Clash, version: "1"}
paths:
  /pets:
    get:
      tags: [pets]
      operationId: listPets
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema: {$ref: '#/components/schemas/PetsClient'}
components:
  schemas:
    PetsClient:
      type: object
      properties:
        id: {type: string}
`
	in := build(t, src)
	assert.Equal(t, []string{"PetsClient2"}, typeNames(in))
	assert.Equal(t, "PetsClient2", findPlan(t, in, "Pets", "listPets").Responses.Result.String())
}

func TestBuildIRClientUnitNamesAreIdentifiers(t *testing.T) {
	src := `
openapi: 3.0.3
info: {title: Units, version: "1"}
paths:
  /a:
    get:
      tags: ["123"]
      operationId: first
      responses:
        "204": {description: ok}
  /b:
    get:
      tags: [transport]
      operationId: second
      responses:
        "204": {description: ok}
`
	client := testClient()
	in, err := BuildIR(parse(t, src), client, []string{"Transport"})
	require.NoError(t, err)
	assert.Equal(t, "_123Client", in.Clients[0].UnitName)
	assert.Equal(t, "TransportClient", in.Clients[1].UnitName)

	client = testClient(func(c *config.Client) { c.Generation.ClientNameTemplate = "{name}" })
	in, err = BuildIR(parse(t, src), client, []string{"Transport"})
	require.NoError(t, err)
	assert.Equal(t, "_123", in.Clients[0].UnitName)
	assert.Equal(t, "Transport2", in.Clients[1].UnitName)
}
