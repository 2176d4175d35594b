package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func hierarchy() *TypeModel {
	return NewTypeModel([]*TypeNode{
		{Name: "Base", Kind: KindObject, Abstract: true, Discriminator: &Discriminator{Property: "kind"}, Subtypes: []string{"A", "Mid"},
			Properties: []Property{{Name: "kind", Type: Primitive("string", "string", ""), Required: true}}},
		{Name: "A", Kind: KindObject, Base: "Base", Properties: []Property{{Name: "a", Type: Primitive("number", "integer", "")}}},
		{Name: "Mid", Kind: KindObject, Base: "Base", Subtypes: []string{"B", "C"}},
		{Name: "B", Kind: KindObject, Base: "Mid"},
		{Name: "C", Kind: KindObject, Base: "Mid", Abstract: true},
	})
}

func TestTypeModel_Leaves(t *testing.T) {
	m := hierarchy()
	assert.Equal(t, []string{"A", "B"}, m.Leaves("Base"))
	assert.Equal(t, []string{"B"}, m.Leaves("Mid"))
	assert.Equal(t, []string{"A"}, m.Leaves("A"))
	assert.Empty(t, m.Leaves("C"))
	assert.Empty(t, m.Leaves("Missing"))
}

func TestTypeModel_Polymorphic(t *testing.T) {
	m := hierarchy()
	assert.True(t, m.Polymorphic("Base"))
	assert.True(t, m.Polymorphic("Mid"), "discriminator inherited from Base")
	assert.False(t, m.Polymorphic("A"))
	assert.Equal(t, "kind", m.DiscriminatorOf("B").Property)
	assert.Nil(t, m.DiscriminatorOf("Missing"))
}

func TestTypeModel_BaseFirst(t *testing.T) {
	m := NewTypeModel([]*TypeNode{
		{Name: "Cat", Kind: KindObject, Base: "Pet"},
		{Name: "Owner", Kind: KindObject},
		{Name: "Pet", Kind: KindObject},
	})
	var names []string
	for _, n := range m.BaseFirst() {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"Pet", "Cat", "Owner"}, names)
}

func TestTypeModel_Underlying(t *testing.T) {
	m := NewTypeModel(nil)
	m.Add(&TypeNode{Name: "Upload", Kind: KindPrimitive, Alias: Primitive("Blob", "string", "binary")})
	m.Add(&TypeNode{Name: "Ids", Kind: KindArray, Items: Primitive("number", "integer", "")})
	m.Add(&TypeNode{Name: "Pet", Kind: KindObject})

	assert.True(t, m.Underlying(Named("Upload")).IsBinary())
	assert.True(t, m.Underlying(Named("Ids")).IsArray())
	assert.True(t, m.Underlying(Named("Upload").WithNullable(true)).Nullable)
	assert.Equal(t, Named("Pet"), m.Underlying(Named("Pet")))
}

func TestTypeModel_AllProperties(t *testing.T) {
	props := hierarchy().AllProperties("A")
	if assert.Len(t, props, 2) {
		assert.Equal(t, "kind", props[0].Name)
		assert.Equal(t, "a", props[1].Name)
	}
}

func TestTypeRef_String(t *testing.T) {
	ref := UnionOf(Named("A"), ArrayOf(Primitive("string", "string", "")).WithNullable(true), DictionaryOf(Any()))
	assert.Equal(t, "(A | string[]? | {[key]: any})", ref.String())
	assert.Nil(t, Named("X").WithNullable(false).Items)
	assert.Equal(t, "X", UnionOf(Named("X")).String())
}

func TestTypeRef_Predicates(t *testing.T) {
	assert.True(t, Primitive("Blob", "string", "binary").IsBinary())
	assert.False(t, Primitive("string", "string", "byte").IsBinary())
	assert.True(t, Primitive("string", "string", "date-time").IsDate())
	assert.True(t, ArrayOf(Any()).IsArray())
	assert.True(t, ArrayOf(Named("A")).Equal(ArrayOf(Named("A"))))
	assert.False(t, ArrayOf(Named("A")).Equal(ArrayOf(Named("B"))))
}
