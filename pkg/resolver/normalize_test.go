package resolver

import (
	"testing"

	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain chinese", input: "苹果", expected: "苹果"},
		{name: "spaces stripped", input: " 星 巴 克 ", expected: "星巴克"},
		{name: "punctuation stripped", input: "星巴克！", expected: "星巴克"},
		{name: "latin lowercased", input: "iPhone", expected: "iphone"},
		{name: "full-width folded", input: "ｉＰｈｏｎｅ", expected: "iphone"},
		{name: "alias apple phone", input: "苹果手机", expected: "iphone"},
		{name: "alias starbucks nickname", input: "星爸爸", expected: "星巴克"},
		{name: "alias golden arches", input: "金拱门", expected: "麦当劳"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestClassifyType(t *testing.T) {
	tests := []struct {
		name         string
		mention      string
		action       string
		expectedType models.EntityType
		expectedConf float64
	}{
		{name: "food keyword in mention", mention: "咖啡", action: "", expectedType: models.EntityTypeFood, expectedConf: 0.8},
		{name: "person keyword in mention", mention: "张老师", action: "", expectedType: models.EntityTypePerson, expectedConf: 0.8},
		{name: "food keyword wins over place suffix", mention: "咖啡店", action: "", expectedType: models.EntityTypeFood, expectedConf: 0.8},
		{name: "food from eating context", mention: "沙琪玛", action: "吃", expectedType: models.EntityTypeFood, expectedConf: 0.6},
		{name: "place from going context", mention: "外滩", action: "去", expectedType: models.EntityTypePlace, expectedConf: 0.6},
		{name: "unknown", mention: "xyz", action: "用", expectedType: models.EntityTypeUnknown, expectedConf: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entityType, confidence := ClassifyType(tt.mention, tt.action)
			assert.Equal(t, tt.expectedType, entityType)
			assert.InDelta(t, tt.expectedConf, confidence, 1e-9)
		})
	}
}

func TestContextScore(t *testing.T) {
	r := &Resolver{}

	assert.Equal(t, 1.0, r.contextScore(models.EntityTypeFood, models.EntityTypeFood))
	assert.Equal(t, 0.0, r.contextScore(models.EntityTypeFood, models.EntityTypePlace))
	assert.Equal(t, 0.5, r.contextScore(models.EntityTypeUnknown, models.EntityTypeFood))
	assert.Equal(t, 0.5, r.contextScore(models.EntityTypeFood, models.EntityTypeUnknown))
}
