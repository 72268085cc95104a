package preprocess

import (
	"fmt"
	"image"
	"strings"
)

// Rule matches a 3x3 neighbourhood and sets the centre pixel to Output.
// Pattern cells are 1 (set), 0 (clear) or -1 (don't care), in row-major
// order with the centre pixel at index 4.
type Rule struct {
	Pattern [9]int8
	Output  bool
}

// RuleSet is an ordered list of rules; the first matching rule wins and
// pixels no rule matches keep their value.
type RuleSet []Rule

// Built-in rule sets.
var (
	NoiseRemoval = MustRuleSet("(000 010 000)->0", "(111 101 111)->1")
	CornerFill   = MustRuleSet("4:(.1. 10. ...)->1")
	EdgeDetect   = MustRuleSet("(111 111 111)->0")
	Dilation     = MustRuleSet("4:(.1. .0. ...)->1")
)

// ParseRule parses a rule in the "[4M]:(abc def ghi)->v" notation. The
// optional prefix expands the pattern into its four rotations (4) and/or
// their mirror images (M).
func ParseRule(expr string) ([]Rule, error) {
	rule := strings.TrimSpace(expr)
	var options string
	if idx := strings.Index(rule, ":"); idx >= 0 {
		options = rule[:idx]
		rule = strings.TrimSpace(rule[idx+1:])
	}

	body, output, ok := strings.Cut(rule, "->")
	if !ok {
		return nil, fmt.Errorf("morph rule %q: missing ->", expr)
	}
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "(") || !strings.HasSuffix(body, ")") {
		return nil, fmt.Errorf("morph rule %q: pattern must be parenthesized", expr)
	}
	cells := strings.Join(strings.Fields(body[1:len(body)-1]), "")
	if len(cells) != 9 {
		return nil, fmt.Errorf("morph rule %q: expected 9 cells, got %d", expr, len(cells))
	}

	var base Rule
	for i, c := range cells {
		switch c {
		case '1':
			base.Pattern[i] = 1
		case '0':
			base.Pattern[i] = 0
		case '.':
			base.Pattern[i] = -1
		default:
			return nil, fmt.Errorf("morph rule %q: invalid cell %q", expr, c)
		}
	}
	switch strings.TrimSpace(output) {
	case "1":
		base.Output = true
	case "0":
		base.Output = false
	default:
		return nil, fmt.Errorf("morph rule %q: output must be 0 or 1", expr)
	}

	rules := []Rule{base}
	if strings.Contains(options, "4") {
		current := base
		for i := 0; i < 3; i++ {
			current = rotate(current)
			rules = append(rules, current)
		}
	}
	if strings.Contains(options, "M") {
		for _, r := range rules[:len(rules):len(rules)] {
			rules = append(rules, mirror(r))
		}
	}
	return dedupeRules(rules), nil
}

// MustRuleSet parses rule expressions and panics on error. It is intended for
// package-level rule tables.
func MustRuleSet(exprs ...string) RuleSet {
	var set RuleSet
	for _, expr := range exprs {
		rules, err := ParseRule(expr)
		if err != nil {
			panic(err)
		}
		set = append(set, rules...)
	}
	return set
}

func rotate(r Rule) Rule {
	out := Rule{Output: r.Output}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			out.Pattern[row*3+col] = r.Pattern[(2-col)*3+row]
		}
	}
	return out
}

func mirror(r Rule) Rule {
	out := Rule{Output: r.Output}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			out.Pattern[row*3+col] = r.Pattern[row*3+2-col]
		}
	}
	return out
}

func dedupeRules(rules []Rule) []Rule {
	seen := make(map[Rule]struct{}, len(rules))
	out := rules[:0]
	for _, r := range rules {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

func (r Rule) matches(neighbourhood [9]bool) bool {
	for i, want := range r.Pattern {
		if want < 0 {
			continue
		}
		if neighbourhood[i] != (want == 1) {
			return false
		}
	}
	return true
}

// Morph applies the rule sets in order to a binary view of img (non-zero
// pixels are set). The output of each set feeds the next and the result is
// a 0/255 image. Pixels outside the image read as clear.
func Morph(img *image.Gray, sets ...RuleSet) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	current := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			current[y*w+x] = img.Pix[y*img.Stride+x] != 0
		}
	}

	for _, set := range sets {
		next := make([]bool, len(current))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				value := current[y*w+x]
				n := neighbourhood(current, w, h, x, y)
				for _, rule := range set {
					if rule.matches(n) {
						value = rule.Output
						break
					}
				}
				next[y*w+x] = value
			}
		}
		current = next
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for i, set := range current {
		if set {
			out.Pix[i] = 255
		}
	}
	return out
}

func neighbourhood(pix []bool, w, h, x, y int) [9]bool {
	var n [9]bool
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			n[(dy+1)*3+dx+1] = pix[ny*w+nx]
		}
	}
	return n
}
