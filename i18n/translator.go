package i18n

import "strings"

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "member" or "type"). Placeholders are written as {key}.
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var catalog = map[string]map[string]string{
	"en": {
		"invalid_transition":   "{event} is not allowed in state {state}",
		"namespace_misplaced":  "namespace declaration must precede a start object or start member, not {event}",
		"duplicate_member":     "member {member} is already set on {type}",
		"unknown_type":         "unknown type {type}",
		"unknown_member":       "unknown member {member} on {type}",
		"type_mismatch":        "value {value} of type {actual} cannot be used as {expected}",
		"unresolved_reference": "unresolved reference to {name}",
		"evaluation_failed":    "markup extension {type} failed to provide a value",
		"factory_failed":       "cannot construct {type}",
		"duplicate_name":       "name {name} is already registered",
		"parse_error":          "parse error: {detail}",
		"max_depth":            "max depth {max} exceeded",
	},
	"ja": {
		"invalid_transition":   "状態 {state} では {event} を書き込めません",
		"namespace_misplaced":  "名前空間宣言は {event} の前に置けません",
		"duplicate_member":     "メンバー {member} は {type} に既に設定されています",
		"unknown_type":         "未知の型です: {type}",
		"unknown_member":       "{type} に未知のメンバー {member} があります",
		"type_mismatch":        "型 {actual} の値 {value} は {expected} として使えません",
		"unresolved_reference": "参照 {name} を解決できません",
		"evaluation_failed":    "マークアップ拡張 {type} の評価に失敗しました",
		"factory_failed":       "{type} を構築できません",
		"duplicate_name":       "名前 {name} は既に登録されています",
		"parse_error":          "解析エラー: {detail}",
		"max_depth":            "最大深さ {max} を超えました",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	msgs, ok := catalog[t.lang]
	if !ok {
		msgs = catalog["en"]
	}
	msg, ok := msgs[code]
	if !ok {
		return code
	}
	if len(data) == 0 || !strings.Contains(msg, "{") {
		return msg
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
