package generator

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/blimu-dev/clientgen/pkg/config"
	"github.com/blimu-dev/clientgen/pkg/diag"
	"github.com/blimu-dev/clientgen/pkg/ir"
	"github.com/blimu-dev/clientgen/pkg/utils"
)

// untaggedClient names the client of operations without tags.
const untaggedClient = "misc"

// operation is one path+method pair collected from the document.
type operation struct {
	Method string
	Path   string
	// Pointer is the JSON pointer of the operation object, without "#"
	Pointer string
	Op      *openapi3.Operation
	// Params holds path-level and operation-level parameters merged, resolved
	Params []opParam

	Client string
	Name   string
}

// opParam is a resolved parameter and the pointer of its declaration.
type opParam struct {
	*openapi3.Parameter
	Pointer string
}

// ID identifies the operation in diagnostics.
func (o *operation) ID() string {
	return o.Method + " " + o.Path
}

// namer assigns (client, operation) names with one configured strategy.
type namer struct {
	naming   config.Naming
	warnings *diag.Warnings
}

// assignNames names every operation and fails when two operations of one
// client resolve to the same operation name.
func assignNames(ops []*operation, naming config.Naming, warnings *diag.Warnings) error {
	n := namer{naming: naming, warnings: warnings}
	seen := map[string]map[string]*operation{}
	for _, op := range ops {
		op.Client, op.Name = n.name(op)
		byName := seen[op.Client]
		if byName == nil {
			byName = map[string]*operation{}
			seen[op.Client] = byName
		}
		if other, ok := byName[op.Name]; ok {
			return diag.Errorf(diag.KindNameCollision, op.ID(),
				"operation name %q of client %q is already used by %s", op.Name, op.Client, other.ID())
		}
		byName[op.Name] = op
	}
	return nil
}

func (n namer) name(op *operation) (client, name string) {
	switch n.naming.Strategy {
	case config.NamingOperationID:
		return n.fromOperationID(op)
	case config.NamingPathSegments:
		return n.fromPath(op)
	case config.NamingSingleClient:
		return utils.ToPascalCase(n.naming.SingleClientName), n.operationName(op)
	default:
		client = untaggedClient
		if len(op.Op.Tags) > 0 && op.Op.Tags[0] != "" {
			client = op.Op.Tags[0]
		}
		return utils.ToPascalCase(client), n.operationName(op)
	}
}

// fromOperationID splits "Pets_List" into client "Pets" and operation "list".
func (n namer) fromOperationID(op *operation) (string, string) {
	id := op.Op.OperationID
	client, name, ok := strings.Cut(id, n.naming.Separator)
	if !ok || client == "" || name == "" {
		n.warnings.Add(diag.KindMissingSetting, op.ID(),
			"operationId %q has no client part before %q; using client %q", id, n.naming.Separator, n.naming.SingleClientName)
		client = n.naming.SingleClientName
		name = id
	}
	if utils.ToCamelCase(name) == "" {
		name = pathOperationName(op, n.naming.MethodSuffixEnabled())
	}
	return utils.ToPascalCase(client), utils.ToCamelCase(name)
}

// fromPath takes the client from the configured literal segment and the
// operation from the last segment.
func (n namer) fromPath(op *operation) (string, string) {
	literals := literalSegments(op.Path)
	var client string
	switch {
	case n.naming.ClientSegment < len(literals):
		client = literals[n.naming.ClientSegment]
	case len(literals) > 0:
		client = literals[len(literals)-1]
		n.warnings.Add(diag.KindMissingSetting, op.ID(),
			"path has no segment %d; using %q as client", n.naming.ClientSegment, client)
	default:
		client = n.naming.SingleClientName
	}
	return utils.ToPascalCase(client), pathOperationName(op, n.naming.MethodSuffixEnabled())
}

// operationName is the operation part used by the tag and single-client strategies.
func (n namer) operationName(op *operation) string {
	id := op.Op.OperationID
	if n.naming.OperationSource == config.SourcePath || id == "" {
		if n.naming.OperationSource != config.SourcePath {
			n.warnings.Add(diag.KindMissingSetting, op.ID(), "operation has no operationId; naming it from the path")
		}
		return pathOperationName(op, n.naming.MethodSuffixEnabled())
	}
	// A client prefix ("Pets_list", "PetsController_list") is redundant under a tag
	if _, tail, ok := strings.Cut(id, n.naming.Separator); ok && tail != "" {
		id = tail
	}
	if name := utils.ToCamelCase(id); name != "" {
		return name
	}
	return pathOperationName(op, n.naming.MethodSuffixEnabled())
}

// pathOperationName names an operation after its last path segment:
// GET /pets -> petsGet, GET /pets/{petId} -> petsByPetIdGet.
func pathOperationName(op *operation, methodSuffix bool) string {
	var words []string
	var params []string
	for _, seg := range strings.Split(op.Path, "/") {
		if seg == "" {
			continue
		}
		if isPlaceholder(seg) {
			params = append(params, strings.Trim(seg, "{}"))
			continue
		}
		words, params = []string{seg}, nil
	}
	if len(words) == 0 {
		words = []string{"root"}
	}
	for _, p := range params {
		words = append(words, "by", p)
	}
	if methodSuffix {
		words = append(words, strings.ToLower(op.Method))
	}
	var b strings.Builder
	for _, w := range words {
		b.WriteString(utils.ToPascalCase(w))
	}
	return utils.ToCamelCase(b.String())
}

func literalSegments(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" && !isPlaceholder(seg) {
			out = append(out, seg)
		}
	}
	return out
}

func isPlaceholder(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

// reorderParameters moves optional parameters after required ones. It is a
// stable partition: each group keeps its relative order.
func reorderParameters(params []ir.Parameter) []ir.Parameter {
	out := make([]ir.Parameter, 0, len(params))
	for _, p := range params {
		if p.Required {
			out = append(out, p)
		}
	}
	for _, p := range params {
		if !p.Required {
			out = append(out, p)
		}
	}
	return out
}
