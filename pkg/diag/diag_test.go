package diag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKindSentinel(t *testing.T) {
	err := Errorf(KindNameCollision, "GET /pets", "operation %q declared twice", "list")
	wrapped := fmt.Errorf("generate petstore: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNameCollision))
	assert.False(t, errors.Is(wrapped, ErrMissingPathParameter))

	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindNameCollision, kind)
}

func TestError_Message(t *testing.T) {
	err := &Error{
		Kind:    KindUnresolvableReference,
		Subject: "#/components/schemas/Pet/properties/owner",
		Message: "#/components/schemas/Owner not found",
	}
	assert.Equal(t, "UnresolvableReference at #/components/schemas/Pet/properties/owner: #/components/schemas/Owner not found", err.Error())

	cause := errors.New("boom")
	err = &Error{Kind: KindInvalidConfiguration, Cause: cause}
	assert.Equal(t, "InvalidConfiguration: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestKindOf_PlainError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestWarnings_PreserveOrder(t *testing.T) {
	var w Warnings
	w.Add(KindUnregisteredDiscriminator, "#/components/schemas/Pet", "value %q has no subtype", "bird")
	w.Add(KindMissingSetting, "", "dateFormatter not set")

	list := w.List()
	assert.Len(t, list, 2)
	assert.Equal(t, KindUnregisteredDiscriminator, list[0].Kind)
	assert.Equal(t, `UnregisteredDiscriminatorValue at #/components/schemas/Pet: value "bird" has no subtype`, list[0].String())
	assert.Equal(t, "MissingSetting: dateFormatter not set", list[1].String())
}
