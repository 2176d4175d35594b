package generator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blimu-dev/clientgen/pkg/config"
	"github.com/blimu-dev/clientgen/pkg/diag"
	"github.com/blimu-dev/clientgen/pkg/ir"
	"github.com/blimu-dev/clientgen/pkg/openapi"
)

func parse(t *testing.T, src string) *openapi.Document {
	t.Helper()
	doc, err := openapi.ParseDocument([]byte(src))
	require.NoError(t, err)
	return doc
}

// testClient returns a defaulted client configuration after applying mutate.
func testClient(mutate ...func(*config.Client)) config.Client {
	c := config.Client{Type: "typescript", OutDir: "out", PackageName: "petstore", Name: "Petstore"}
	for _, m := range mutate {
		m(&c)
	}
	c.ApplyDefaults()
	return c
}

func build(t *testing.T, src string, mutate ...func(*config.Client)) *ir.IR {
	t.Helper()
	in, err := BuildIR(parse(t, src), testClient(mutate...), nil)
	require.NoError(t, err)
	return in
}

func buildErr(t *testing.T, src string, mutate ...func(*config.Client)) error {
	t.Helper()
	_, err := BuildIR(parse(t, src), testClient(mutate...), nil)
	require.Error(t, err)
	return err
}

// findPlan returns the plan of operation name in the client unit named client.
func findPlan(t *testing.T, in *ir.IR, client, name string) *ir.CallPlan {
	t.Helper()
	for _, u := range in.Clients {
		if u.Name != client {
			continue
		}
		for _, p := range u.Plans {
			if p.OperationName == name {
				return p
			}
		}
	}
	require.Failf(t, "plan not found", "%s.%s", client, name)
	return nil
}

func findType(t *testing.T, in *ir.IR, name string) *ir.TypeNode {
	t.Helper()
	node, ok := in.Types.Lookup(name)
	require.Truef(t, ok, "type %s not found", name)
	return node
}

func typeNames(in *ir.IR) []string {
	names := make([]string, 0, len(in.Types.Types))
	for _, t := range in.Types.Types {
		names = append(names, t.Name)
	}
	return names
}

func propertyTypes(node *ir.TypeNode) map[string]string {
	out := map[string]string{}
	for _, p := range node.Properties {
		out[p.Name] = p.Type.String()
	}
	return out
}

func warningKinds(in *ir.IR) []diag.Kind {
	var out []diag.Kind
	for _, w := range in.Warnings {
		out = append(out, w.Kind)
	}
	return out
}

func withNaming(strategy string) func(*config.Client) {
	return func(c *config.Client) { c.Generation.Naming.Strategy = strategy }
}

const petstore = `
openapi: 3.0.3
info:
  title: Petstore
  version: "1.0"
servers:
  - url: https://petstore.example.com/v1
paths:
  /pets:
    get:
      tags: [pets]
      operationId: listPets
      parameters:
        - name: tags
          in: query
          schema:
            type: array
            items:
              type: string
        - name: limit
          in: query
          required: true
          schema:
            type: integer
      responses:
        "200":
          description: A list of pets
          content:
            application/json:
              schema:
                type: array
                items:
                  $ref: '#/components/schemas/Pet'
        "5XX":
          description: Server failure
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Problem'
    post:
      tags: [pets]
      operationId: createPet
      requestBody:
        required: true
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/NewPet'
      responses:
        "201":
          description: Created
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Pet'
  /pets/{petId}:
    get:
      tags: [pets]
      operationId: showPetById
      parameters:
        - name: petId
          in: path
          required: true
          schema:
            type: string
      responses:
        "200":
          description: Expected response to a valid request
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Pet'
        default:
          description: Unexpected error
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Problem'
components:
  schemas:
    Pet:
      type: object
      required: [id, name]
      properties:
        id:
          type: integer
          format: int64
        name:
          type: string
        tag:
          type: string
    NewPet:
      type: object
      required: [name]
      properties:
        name:
          type: string
        tag:
          type: string
    Problem:
      type: object
      required: [code, message]
      properties:
        code:
          type: integer
        message:
          type: string
`
