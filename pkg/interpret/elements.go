package interpret

import "strings"

// Element is one of the five phases.
type Element string

const (
	Wood  Element = "wood"
	Fire  Element = "fire"
	Earth Element = "earth"
	Metal Element = "metal"
	Water Element = "water"
)

// Elements lists the five phases in generating-cycle order.
var Elements = []Element{Wood, Fire, Earth, Metal, Water}

var stemElements = map[string]Element{
	"甲": Wood, "乙": Wood, "jia": Wood, "yi": Wood,
	"丙": Fire, "丁": Fire, "bing": Fire, "ding": Fire,
	"戊": Earth, "己": Earth, "wu": Earth, "ji": Earth,
	"庚": Metal, "辛": Metal, "geng": Metal, "xin": Metal,
	"壬": Water, "癸": Water, "ren": Water, "gui": Water,
}

var branchElements = map[string]Element{
	"子": Water, "亥": Water, "zi": Water, "hai": Water,
	"寅": Wood, "卯": Wood, "yin": Wood, "mao": Wood,
	"巳": Fire, "午": Fire, "si": Fire, "wu": Fire,
	"申": Metal, "酉": Metal, "shen": Metal, "you": Metal,
	"辰": Earth, "戌": Earth, "丑": Earth, "未": Earth,
	"chen": Earth, "xu": Earth, "chou": Earth, "wei": Earth,
}

// StemElement returns the element of a heavenly stem.
func StemElement(stem string) (Element, bool) {
	e, ok := stemElements[strings.ToLower(strings.TrimSpace(stem))]
	return e, ok
}

// BranchElement returns the element of an earthly branch.
func BranchElement(branch string) (Element, bool) {
	e, ok := branchElements[strings.ToLower(strings.TrimSpace(branch))]
	return e, ok
}

// Balance counts the elements across all known stems and branches.
func (p *Pillars) Balance() map[Element]int {
	counts := make(map[Element]int, len(Elements))
	for _, pl := range []*Pillar{p.Year, p.Month, p.Day, p.Hour} {
		if pl == nil {
			continue
		}
		if e, ok := StemElement(pl.Stem); ok {
			counts[e]++
		}
		if e, ok := BranchElement(pl.Branch); ok {
			counts[e]++
		}
	}
	return counts
}
