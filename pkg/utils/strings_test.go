package utils

import (
	"testing"
)

func TestRemoveAccents(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"hello", "hello"},
		{"cobrança", "cobranca"},
		{"negociação", "negociacao"},
		{"café", "cafe"},
		{"São Paulo", "Sao Paulo"},
		{"naïve", "naive"},
	}

	for _, test := range tests {
		result := RemoveAccents(test.input)
		if result != test.expected {
			t.Errorf("RemoveAccents(%q) = %q, expected %q", test.input, result, test.expected)
		}
	}
}

func TestToPascalCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"hello", "Hello"},
		{"helloWorld", "HelloWorld"},
		{"getUserById", "GetUserById"},
		{"XMLHttpRequest", "XmlhttpRequest"},
		{"list_pets", "ListPets"},
		{"hello-world", "HelloWorld"},
		{"HELLO_WORLD", "HelloWorld"},
		{"transferências", "Transferencias"},
	}

	for _, test := range tests {
		result := ToPascalCase(test.input)
		if result != test.expected {
			t.Errorf("ToPascalCase(%q) = %q, expected %q", test.input, result, test.expected)
		}
	}
}

func TestToCamelCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"ListPets", "listPets"},
		{"list_pets", "listPets"},
		{"Get", "get"},
	}

	for _, test := range tests {
		result := ToCamelCase(test.input)
		if result != test.expected {
			t.Errorf("ToCamelCase(%q) = %q, expected %q", test.input, result, test.expected)
		}
	}
}

func TestToTypeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"Pet", "Pet"},
		{"pet", "Pet"},
		{"PetDTO", "PetDTO"},
		{"order.line_item", "OrderLineItem"},
		{"Page[Pet]", "PagePet"},
		{"2fa-settings", "_2faSettings"},
		{"Café", "Cafe"},
	}

	for _, test := range tests {
		result := ToTypeName(test.input)
		if result != test.expected {
			t.Errorf("ToTypeName(%q) = %q, expected %q", test.input, result, test.expected)
		}
	}
}

func TestToIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"petId", "petId"},
		{"pet_id", "petId"},
		{"X-Request-ID", "xRequestID"},
		{"URLPath", "urlPath"},
		{"ID", "id"},
		{"1st", "_1st"},
	}

	for _, test := range tests {
		result := ToIdentifier(test.input)
		if result != test.expected {
			t.Errorf("ToIdentifier(%q) = %q, expected %q", test.input, result, test.expected)
		}
	}
}
