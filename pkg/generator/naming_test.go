package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blimu-dev/clientgen/pkg/config"
	"github.com/blimu-dev/clientgen/pkg/diag"
	"github.com/blimu-dev/clientgen/pkg/ir"
)

const store = `
openapi: 3.0.3
info:
  title: Store
  version: "1"
paths:
  /store/orders/{orderId}:
    get:
      tags: [store]
      operationId: Orders_getOrder
      parameters:
        - name: orderId
          in: path
          required: true
          schema:
            type: string
      responses:
        "204":
          description: ok
  /store/inventory:
    get:
      operationId: Inventory_get
      responses:
        "204":
          description: ok
`

// planNames lists "Client.operation" for every plan in emission order.
func planNames(in *ir.IR) []string {
	var out []string
	for _, u := range in.Clients {
		for _, p := range u.Plans {
			out = append(out, p.ClientName+"."+p.OperationName)
		}
	}
	return out
}

func TestNamingStrategies(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Client)
		want   []string
	}{
		{
			name:   "operation id",
			mutate: withNaming(config.NamingOperationID),
			want:   []string{"Orders.getOrder", "Inventory.get"},
		},
		{
			name:   "tag",
			mutate: withNaming(config.NamingTag),
			want:   []string{"Store.getOrder", "Misc.get"},
		},
		{
			name: "path segments",
			mutate: func(c *config.Client) {
				c.Generation.Naming.Strategy = config.NamingPathSegments
				c.Generation.Naming.ClientSegment = 1
			},
			want: []string{"Orders.ordersByOrderIdGet", "Inventory.inventoryGet"},
		},
		{
			name:   "path segments, first segment",
			mutate: withNaming(config.NamingPathSegments),
			want:   []string{"Store.ordersByOrderIdGet", "Store.inventoryGet"},
		},
		{
			name:   "single client",
			mutate: withNaming(config.NamingSingleClient),
			want:   []string{"Petstore.getOrder", "Petstore.get"},
		},
		{
			name: "tag, names from path",
			mutate: func(c *config.Client) {
				c.Generation.Naming.OperationSource = config.SourcePath
			},
			want: []string{"Store.ordersByOrderIdGet", "Misc.inventoryGet"},
		},
		{
			name: "tag, names from path without method",
			mutate: func(c *config.Client) {
				c.Generation.Naming.OperationSource = config.SourcePath
				off := false
				c.Generation.Naming.MethodSuffix = &off
			},
			want: []string{"Store.ordersByOrderId", "Misc.inventory"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := build(t, store, tt.mutate)
			assert.Equal(t, tt.want, planNames(in))
		})
	}
}

func TestClientUnitNames(t *testing.T) {
	in := build(t, store, withNaming(config.NamingOperationID))
	require.Len(t, in.Clients, 2)
	assert.Equal(t, "OrdersClient", in.Clients[0].UnitName)

	in = build(t, store, func(c *config.Client) {
		c.Generation.Naming.Strategy = config.NamingSingleClient
		c.Generation.ClientNameTemplate = "{name}Api"
	})
	require.Len(t, in.Clients, 1)
	assert.Equal(t, "PetstoreApi", in.Clients[0].UnitName)
}

func TestOperationNameCollision(t *testing.T) {
	src := `
openapi: 3.0.3
info:
  title: Dupes
  version: "1"
paths:
  /pets:
    get:
      operationId: Pets_list
      responses:
        "204":
          description: ok
  /animals:
    get:
      operationId: Pets_list
      responses:
        "204":
          description: ok
`
	err := buildErr(t, src, withNaming(config.NamingOperationID))
	assert.ErrorIs(t, err, diag.ErrNameCollision)
	assert.Contains(t, err.Error(), "GET /pets")
}

func TestOperationIDWithoutSeparator(t *testing.T) {
	in := build(t, petstore, withNaming(config.NamingOperationID))

	assert.Equal(t, []string{"Petstore.listPets", "Petstore.createPet", "Petstore.showPetById"}, planNames(in))
	assert.Contains(t, warningKinds(in), diag.KindMissingSetting)
}

func TestMissingOperationIDFallsBackToPath(t *testing.T) {
	src := `
openapi: 3.0.3
info:
  title: Anonymous
  version: "1"
paths:
  /pets/{petId}/photos:
    post:
      tags: [photos]
      parameters:
        - name: petId
          in: path
          required: true
          schema:
            type: string
      responses:
        "204":
          description: ok
`
	in := build(t, src)
	assert.Equal(t, []string{"Photos.photosPost"}, planNames(in))
	assert.Contains(t, warningKinds(in), diag.KindMissingSetting)
}

func TestPathOperationName(t *testing.T) {
	tests := []struct {
		method, path string
		suffix       bool
		want         string
	}{
		{"GET", "/pets", true, "petsGet"},
		{"GET", "/pets/{petId}", true, "petsByPetIdGet"},
		{"DELETE", "/pets/{petId}/photos/{photoId}", true, "photosByPhotoIdDelete"},
		{"GET", "/", true, "rootGet"},
		{"PUT", "/users/{id}", false, "usersById"},
	}

	for _, tt := range tests {
		op := &operation{Method: tt.method, Path: tt.path}
		if got := pathOperationName(op, tt.suffix); got != tt.want {
			t.Errorf("pathOperationName(%s %s) = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestReorderParameters(t *testing.T) {
	params := []ir.Parameter{
		{Name: "a"},
		{Name: "b", Required: true},
		{Name: "c"},
		{Name: "d", Required: true},
	}
	var got []string
	for _, p := range reorderParameters(params) {
		got = append(got, p.Name)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, got)

	// stable: applying it twice changes nothing
	again := reorderParameters(reorderParameters(params))
	assert.Equal(t, reorderParameters(params), again)
}

func TestReorderParametersOption(t *testing.T) {
	in := build(t, petstore, func(c *config.Client) { c.Generation.ReorderParameters = true })
	plan := findPlan(t, in, "Pets", "listPets")

	var got []string
	for _, p := range plan.Parameters {
		got = append(got, p.Name)
	}
	assert.Equal(t, []string{"limit", "tags"}, got)
}
