// Package patterns proposes derived views from event regularities. Two
// families are implemented: time-of-day frequency patterns and target
// preferences within an action.
package patterns

import (
	"fmt"
	"sort"
	"time"

	"github.com/Iqvpi1024/dirsoul/pkg/models"
)

// Config holds the detection thresholds
type Config struct {
	LookbackDays             int
	FrequencyMinOccurrences  int
	FrequencyDiscount        float64
	PreferenceMinRatio       float64
	PreferenceMinOccurrences int
}

// Candidate is a proposed derived view before persistence
type Candidate struct {
	Hypothesis      string
	Subject         string
	ViewType        models.ViewType
	EventIDs        []string
	Confidence      float64
	ValidationCount int
}

// Detector scans event windows for regularities
type Detector struct {
	cfg Config
}

// NewDetector creates a pattern detector
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// hourBucket maps an hour of day to a coarse time-of-day label
func hourBucket(hour int) string {
	switch {
	case hour >= 5 && hour < 11:
		return "早上"
	case hour >= 11 && hour < 14:
		return "中午"
	case hour >= 14 && hour < 18:
		return "下午"
	case hour >= 18 && hour < 23:
		return "晚上"
	default:
		return "深夜"
	}
}

type frequencyKey struct {
	action string
	target string
	bucket string
}

// Detect returns every pattern candidate found in the event window. Events
// outside the lookback window are ignored so archived history never feeds
// pattern detection.
func (d *Detector) Detect(events []models.Event, now time.Time) []Candidate {
	cutoff := now.AddDate(0, 0, -d.cfg.LookbackDays)

	var window []models.Event
	for _, e := range events {
		if e.Timestamp.Before(cutoff) || e.Archived {
			continue
		}
		window = append(window, e)
	}

	candidates := d.detectFrequency(window)
	candidates = append(candidates, d.detectPreference(window)...)
	return candidates
}

// detectFrequency finds (action, target, time-of-day) groups that recur
// often enough to suggest a habit. Confidence is the raw frequency ratio
// discounted because co-occurrence in a window is weak evidence on its own.
func (d *Detector) detectFrequency(window []models.Event) []Candidate {
	groups := make(map[frequencyKey][]string)
	for _, e := range window {
		key := frequencyKey{
			action: e.Action,
			target: e.Target,
			bucket: hourBucket(e.Timestamp.Hour()),
		}
		groups[key] = append(groups[key], e.ID)
	}

	keys := make([]frequencyKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].action != keys[j].action {
			return keys[i].action < keys[j].action
		}
		if keys[i].target != keys[j].target {
			return keys[i].target < keys[j].target
		}
		return keys[i].bucket < keys[j].bucket
	})

	var candidates []Candidate
	for _, key := range keys {
		ids := groups[key]
		if len(ids) < d.cfg.FrequencyMinOccurrences {
			continue
		}

		raw := float64(len(ids)) / float64(d.cfg.LookbackDays)
		if raw > 1 {
			raw = 1
		}

		candidates = append(candidates, Candidate{
			Hypothesis:      fmt.Sprintf("经常在%s%s%s", key.bucket, key.action, key.target),
			Subject:         key.target,
			ViewType:        models.ViewTypePattern,
			EventIDs:        ids,
			Confidence:      raw * d.cfg.FrequencyDiscount,
			ValidationCount: len(ids),
		})
	}

	return candidates
}

// detectPreference finds targets that dominate an action. A target needs
// both a minimum share and a minimum absolute count so two coffees out of
// two drinks never read as a preference.
func (d *Detector) detectPreference(window []models.Event) []Candidate {
	type targetGroup struct {
		ids map[string][]string
		n   int
	}
	actions := make(map[string]*targetGroup)
	for _, e := range window {
		group := actions[e.Action]
		if group == nil {
			group = &targetGroup{ids: make(map[string][]string)}
			actions[e.Action] = group
		}
		group.ids[e.Target] = append(group.ids[e.Target], e.ID)
		group.n++
	}

	actionKeys := make([]string, 0, len(actions))
	for action := range actions {
		actionKeys = append(actionKeys, action)
	}
	sort.Strings(actionKeys)

	var candidates []Candidate
	for _, action := range actionKeys {
		group := actions[action]

		targets := make([]string, 0, len(group.ids))
		for target := range group.ids {
			targets = append(targets, target)
		}
		sort.Strings(targets)

		for _, target := range targets {
			ids := group.ids[target]
			if len(ids) < d.cfg.PreferenceMinOccurrences {
				continue
			}
			ratio := float64(len(ids)) / float64(group.n)
			if ratio < d.cfg.PreferenceMinRatio {
				continue
			}

			candidates = append(candidates, Candidate{
				Hypothesis:      fmt.Sprintf("喜欢%s%s", action, target),
				Subject:         target,
				ViewType:        models.ViewTypePreference,
				EventIDs:        ids,
				Confidence:      ratio,
				ValidationCount: len(ids),
			})
		}
	}

	return candidates
}
