package resolver

import (
	"strings"

	"github.com/Iqvpi1024/dirsoul/pkg/models"
)

// typeKeywords maps entity types to surface markers. The action a mention
// appears with counts as context: eating something implies food even when
// the target itself is unknown.
var typeKeywords = map[models.EntityType][]string{
	models.EntityTypeFood:         {"吃", "喝", "水果", "咖啡", "茶", "饭", "面", "肉", "菜", "奶"},
	models.EntityTypePerson:       {"朋友", "同事", "老师", "妈", "爸", "哥", "姐", "弟", "妹"},
	models.EntityTypePlace:        {"去", "到", "店", "馆", "公园", "医院", "学校", "家"},
	models.EntityTypeOrganization: {"公司", "股票", "投资", "银行", "集团"},
	models.EntityTypeActivity:     {"跑步", "锻炼", "游泳", "开会", "学习", "看书", "打球"},
}

// ClassifyType infers an entity type from the mention and the action it
// occurred with. Returns the type and a confidence; unknown mentions get
// EntityTypeUnknown with zero confidence.
func ClassifyType(mention, action string) (models.EntityType, float64) {
	// The mention itself is the strongest signal
	for _, entityType := range classifierOrder {
		for _, keyword := range typeKeywords[entityType] {
			if strings.Contains(mention, keyword) {
				return entityType, 0.8
			}
		}
	}

	// Fall back to the action context
	if action != "" {
		for _, entityType := range classifierOrder {
			for _, keyword := range typeKeywords[entityType] {
				if strings.Contains(action, keyword) {
					return entityType, 0.6
				}
			}
		}
	}

	return models.EntityTypeUnknown, 0
}

// classifierOrder fixes iteration order so classification is deterministic
var classifierOrder = []models.EntityType{
	models.EntityTypeFood,
	models.EntityTypePerson,
	models.EntityTypePlace,
	models.EntityTypeOrganization,
	models.EntityTypeActivity,
}
