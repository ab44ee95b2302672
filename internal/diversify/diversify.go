// Package diversify picks a stable image-prompt variation for a slug.
package diversify

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

var (
	TimesOfDay = []string{"오전 햇살이 가득한", "저녁 골든아워", "흐린 날 은은한 자연광", "야간 간접조명"}
	Rooms      = []string{"넓은 거실", "모던한 주방", "아늑한 침실", "깔끔한 욕실", "밝은 베란다"}
	Styles     = []string{"미니멀리즘", "북유럽 스칸디나비아", "내추럴 우드", "모던 럭셔리", "빈티지 감성"}
	Palettes   = []string{"화이트&그레이", "베이지&아이보리", "딥그린&우드", "블랙&화이트", "테라코타&크림"}
)

// Variation is one selection from each pool.
type Variation struct {
	TimeOfDay string
	Room      string
	Style     string
	Palette   string
}

// Hash folds the UTF-16 code units of s with hash*31+c in signed 32-bit arithmetic
// and returns the absolute value.
func Hash(s string) uint32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	if h < 0 {
		return uint32(-int64(h))
	}
	return uint32(h)
}

// For returns the variation for slug. The same slug always yields the same variation.
func For(slug string) Variation {
	h := Hash(slug)
	return Variation{
		TimeOfDay: TimesOfDay[int(h%uint32(len(TimesOfDay)))],
		Room:      Rooms[int((h>>2)%uint32(len(Rooms)))],
		Style:     Styles[int((h>>4)%uint32(len(Styles)))],
		Palette:   Palettes[int((h>>6)%uint32(len(Palettes)))],
	}
}

// Prompt renders the image-generation prompt for the variation.
func (v Variation) Prompt() string {
	return fmt.Sprintf("%s %s, %s 스타일, %s 색상 팔레트의 한국 아파트 인테리어 사진. 실제 인테리어 잡지 화보처럼 사실적이고 고품질. 사람 없음, 텍스트 없음.",
		v.TimeOfDay, v.Room, v.Style, v.Palette)
}

// ImagePrompt combines the slug's variation with the post title as the subject.
func ImagePrompt(slug, title string) string {
	p := For(slug).Prompt()
	if title = strings.TrimSpace(title); title != "" {
		p += " 주제: " + title
	}
	return p
}
