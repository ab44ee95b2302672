package transform

import "strings"

// informalRules rewrite polite sentence endings to the casual register used on Threads.
// Order matters: longer, more specific endings come before the suffixes they contain.
var informalRules = []struct{ from, to string }{
	// 습니다체
	{"드리겠습니다", "줄게"},
	{"드립니다", "줄게"},
	{"하겠습니다", "할게"},
	{"필요합니다", "필요해"},
	{"가능합니다", "가능해"},
	{"어렵습니다", "어려워"},
	{"높습니다", "높아"},
	{"많습니다", "많아"},
	{"큽니다", "커"},
	{"있습니다", "있어"},
	{"없습니다", "없어"},
	{"됩니다", "돼"},
	{"입니다", "이야"},
	{"합니다", "해"},
	{"겠습니다", "을게"},
	{"습니다", "어"},

	// ~세요
	{"마세요", "마"},
	{"하세요", "해"},
	{"보세요", "봐"},
	{"주세요", "줘"},
	{"두세요", "둬"},
	{"가세요", "가"},
	{"으세요", "어"},

	// 해요체
	{"계신가요", "있다면"},
	{"되시나요", "돼"},
	{"시나요", "니"},
	{"신가요", "지"},
	{"인가요", "야"},
	{"을까요", "을까"},
	{"이에요", "이야"},
	{"거예요", "거야"},
	{"시죠", "지"},
	{"거든요", "거든"},
	{"잖아요", "잖아"},
	{"는데요", "는데"},
	{"네요", "네"},
	{"군요", "군"},
	{"있어요", "있어"},
	{"없어요", "없어"},
	{"해요", "해"},
	{"돼요", "돼"},
	{"봐요", "봐"},
	{"줘요", "줘"},
	{"워요", "워"},
	{"져요", "져"},
	{"이요", "이야"},
	{"예요", "야"},
	{"죠", "지"},
	{"어요", "어"},
	{"아요", "아"},
}

// Informal applies the ending rules in order. It is lexical substitution, so odd
// results on unusual sentences are expected.
func Informal(s string) string {
	for _, r := range informalRules {
		s = strings.ReplaceAll(s, r.from, r.to)
	}
	return s
}
