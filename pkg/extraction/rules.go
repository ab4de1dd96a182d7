package extraction

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RuleExtractor is the programmatic extraction floor. It understands simple
// Chinese activity statements: an optional time expression, a known verb,
// an optional quantity with unit, and a target.
type RuleExtractor struct{}

// NewRuleExtractor creates the rule extractor
func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{}
}

// Name implements Extractor
func (e *RuleExtractor) Name() string {
	return "rules"
}

type timeWord struct {
	word  string
	value int
}

// dayOffsets anchors relative day words
var dayOffsets = []timeWord{
	{"前天", -2},
	{"昨天", -1},
	{"今天", 0},
}

// periodHours anchors time-of-day words to a representative hour
var periodHours = []timeWord{
	{"早上", 8},
	{"上午", 10},
	{"中午", 12},
	{"下午", 15},
	{"晚上", 20},
	{"深夜", 23},
}

// chineseDigits covers the small numbers that appear in everyday statements
var chineseDigits = map[string]float64{
	"一": 1, "两": 2, "二": 2, "三": 3, "四": 4,
	"五": 5, "六": 6, "七": 7, "八": 8, "九": 9, "十": 10,
}

var (
	verbPattern     = regexp.MustCompile(`(吃|喝|买|去|看|听|读|学|打|跑|做|玩|用)(了|过)?`)
	quantityPattern = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?|[一两二三四五六七八九十]+)(个|只|件|次|杯|本|斤|块|包|瓶|碗|公里|分钟|小时|顿|张|台)`)
	clauseSplitter  = regexp.MustCompile(`[，。；！？,.;!?\s]+`)
)

// Extract implements Extractor
func (e *RuleExtractor) Extract(_ context.Context, content string, now time.Time) ([]Candidate, error) {
	timestamp := resolveTimestamp(content, now)

	var candidates []Candidate
	for _, clause := range clauseSplitter.Split(content, -1) {
		if clause == "" {
			continue
		}
		if candidate := e.extractClause(clause, timestamp); candidate != nil {
			candidates = append(candidates, *candidate)
		}
	}

	return candidates, nil
}

func (e *RuleExtractor) extractClause(clause string, timestamp time.Time) *Candidate {
	loc := verbPattern.FindStringSubmatchIndex(clause)
	if loc == nil {
		return nil
	}

	action := clause[loc[2]:loc[3]]
	rest := clause[loc[1]:]

	quantity, unit, target := parseQuantity(rest)
	target = stripTimeWords(target)
	if target == "" {
		return nil
	}

	// A parsed quantity means the clause matched the full shape, which is
	// strong evidence the reading is right
	confidence := 0.6
	if quantity != nil {
		confidence = 0.85
	}

	ts := timestamp
	return &Candidate{
		Action:     action,
		Target:     target,
		Quantity:   quantity,
		Unit:       unit,
		Confidence: confidence,
		Timestamp:  &ts,
	}
}

// parseQuantity splits a leading quantity and unit off the target text
func parseQuantity(s string) (*float64, *string, string) {
	m := quantityPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, nil, strings.TrimSpace(s)
	}

	var value float64
	if v, err := strconv.ParseFloat(m[1], 64); err == nil {
		value = v
	} else {
		value = parseChineseNumber(m[1])
	}
	if value <= 0 {
		return nil, nil, strings.TrimSpace(s)
	}

	unit := m[2]
	target := strings.TrimSpace(s[len(m[0]):])
	return &value, &unit, target
}

// parseChineseNumber handles 一 through 十 plus compounds like 十二 and 二十三
func parseChineseNumber(s string) float64 {
	runes := []rune(s)
	if len(runes) == 1 {
		return chineseDigits[string(runes[0])]
	}

	// 十X, X十, X十Y
	total := 0.0
	tensIdx := -1
	for i, r := range runes {
		if string(r) == "十" {
			tensIdx = i
			break
		}
	}
	if tensIdx == -1 {
		return 0
	}

	tens := 1.0
	if tensIdx > 0 {
		tens = parseChineseNumber(string(runes[:tensIdx]))
	}
	total = tens * 10
	if tensIdx < len(runes)-1 {
		total += parseChineseNumber(string(runes[tensIdx+1:]))
	}
	return total
}

// resolveTimestamp anchors the statement's relative time words to a concrete
// instant. Without any time words the statement is taken as "now".
func resolveTimestamp(content string, now time.Time) time.Time {
	timestamp := now

	for _, day := range dayOffsets {
		if day.value != 0 && strings.Contains(content, day.word) {
			timestamp = timestamp.AddDate(0, 0, day.value)
			break
		}
	}

	for _, period := range periodHours {
		if strings.Contains(content, period.word) {
			timestamp = time.Date(
				timestamp.Year(), timestamp.Month(), timestamp.Day(),
				period.value, 0, 0, 0, timestamp.Location(),
			)
			break
		}
	}

	return timestamp
}

// stripTimeWords removes time expressions that survived into the target
func stripTimeWords(target string) string {
	for _, day := range dayOffsets {
		target = strings.ReplaceAll(target, day.word, "")
	}
	for _, period := range periodHours {
		target = strings.ReplaceAll(target, period.word, "")
	}
	return strings.TrimSpace(target)
}
