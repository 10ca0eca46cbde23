package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	msg := T("duplicate_member", map[string]string{"member": "Name", "type": "Person"})
	assert.Equal(t, "member Name is already set on Person", msg)

	SetLanguage("ja")
	defer SetLanguage("en")
	assert.NotEqual(t, msg, T("duplicate_member", map[string]string{"member": "Name", "type": "Person"}))
}

func TestTranslator_UnknownCodeFallsBack(t *testing.T) {
	assert.Equal(t, "no_such_code", T("no_such_code", nil))
}

type fixedTranslator struct{}

func (fixedTranslator) Message(string, map[string]string) string { return "fixed" }

func TestTranslator_Replace(t *testing.T) {
	SetTranslator(fixedTranslator{})
	defer SetTranslator(nil)
	assert.Equal(t, "fixed", T("parse_error", nil))
}
