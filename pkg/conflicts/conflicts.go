// Package conflicts finds contradictions between derived views. Detection is
// purely programmatic: two views conflict when their hypotheses carry
// opposing markers from the antonym table for the same subject, or when one
// asserts membership in a category the other's assertion is incompatible
// with.
package conflicts

import (
	"strings"

	"github.com/Iqvpi1024/dirsoul/pkg/metrics"
	"github.com/Iqvpi1024/dirsoul/pkg/models"
)

// AntonymPair holds two mutually exclusive assertion markers
type AntonymPair struct {
	A string
	B string
}

// DefaultAntonyms covers the assertion markers the extractor produces.
// Pairs are matched in both directions.
var DefaultAntonyms = []AntonymPair{
	{A: "喜欢", B: "不喜欢"},
	{A: "喜欢", B: "讨厌"},
	{A: "爱", B: "恨"},
	{A: "经常", B: "很少"},
	{A: "总是", B: "从不"},
	{A: "每天", B: "从不"},
	{A: "习惯", B: "讨厌"},
	{A: "是", B: "不是"},
}

// CategoryExclusion pairs a categorical membership marker, asserted with 是,
// with assertions that are incompatible with membership.
type CategoryExclusion struct {
	Category string
	Excludes []string
}

// DefaultExclusions covers categorical memberships whose incompatible
// assertions the extractor can produce.
var DefaultExclusions = []CategoryExclusion{
	{Category: "素食主义者", Excludes: []string{"吃肉", "吃牛肉", "吃猪肉", "吃鸡肉", "吃鱼", "吃海鲜"}},
	{Category: "纯素主义者", Excludes: []string{"吃肉", "吃鱼", "吃鸡蛋", "喝牛奶", "吃奶酪"}},
}

// Conflict records a detected contradiction between two views
type Conflict struct {
	Subject string              `json:"subject"`
	ViewA   *models.DerivedView `json:"view_a"`
	ViewB   *models.DerivedView `json:"view_b"`
	MarkerA string              `json:"marker_a"`
	MarkerB string              `json:"marker_b"`
}

// Detector matches views against an antonym table and a category exclusion
// table
type Detector struct {
	antonyms   []AntonymPair
	exclusions []CategoryExclusion
}

// NewDetector creates a detector. A nil pair or exclusion list uses the
// package defaults.
func NewDetector(antonyms []AntonymPair, exclusions []CategoryExclusion) *Detector {
	if len(antonyms) == 0 {
		antonyms = DefaultAntonyms
	}
	if len(exclusions) == 0 {
		exclusions = DefaultExclusions
	}
	return &Detector{antonyms: antonyms, exclusions: exclusions}
}

// opposingMarkers reports whether the two hypotheses carry opposite markers.
// The longer marker of a pair is checked first so 不喜欢 is never misread as
// an occurrence of 喜欢.
func (d *Detector) opposingMarkers(hypothesisA, hypothesisB string) (string, string, bool) {
	for _, pair := range d.antonyms {
		if containsMarker(hypothesisA, pair.A, pair.B) && containsMarker(hypothesisB, pair.B, pair.A) {
			return pair.A, pair.B, true
		}
		if containsMarker(hypothesisA, pair.B, pair.A) && containsMarker(hypothesisB, pair.A, pair.B) {
			return pair.B, pair.A, true
		}
	}
	return "", "", false
}

// containsMarker reports whether s contains marker without the occurrence
// being part of the opposite marker.
func containsMarker(s, marker, opposite string) bool {
	if !strings.Contains(s, marker) {
		return false
	}
	if strings.Contains(opposite, marker) && strings.Contains(s, opposite) {
		// The only occurrence may be inside the opposite marker
		stripped := strings.ReplaceAll(s, opposite, "")
		return strings.Contains(stripped, marker)
	}
	return true
}

// violatedBy returns the first marker in assertion that is incompatible with
// the categorical membership asserted in membership.
func (e CategoryExclusion) violatedBy(membership, assertion string) (string, bool) {
	if !strings.Contains(membership, "是"+e.Category) || strings.Contains(membership, "不是"+e.Category) {
		return "", false
	}
	for _, marker := range e.Excludes {
		if strings.Contains(assertion, marker) {
			return marker, true
		}
	}
	return "", false
}

// categoricalConflict reports whether one hypothesis asserts membership in a
// category the other's assertion is incompatible with. Membership assertions
// describe the user holding the views, so no subject match is required.
func (d *Detector) categoricalConflict(hypothesisA, hypothesisB string) (string, string, string, bool) {
	for _, excl := range d.exclusions {
		if marker, ok := excl.violatedBy(hypothesisA, hypothesisB); ok {
			return "是" + excl.Category, marker, excl.Category, true
		}
		if marker, ok := excl.violatedBy(hypothesisB, hypothesisA); ok {
			return marker, "是" + excl.Category, excl.Category, true
		}
	}
	return "", "", "", false
}

// conflicting reports whether the two views contradict each other and, if so,
// the subject of the contradiction and the marker each side contributes.
func (d *Detector) conflicting(a, b *models.DerivedView) (string, string, string, bool) {
	if a.Subject != "" && a.Subject == b.Subject {
		if markerA, markerB, ok := d.opposingMarkers(a.Hypothesis, b.Hypothesis); ok {
			return a.Subject, markerA, markerB, true
		}
	}
	if markerA, markerB, category, ok := d.categoricalConflict(a.Hypothesis, b.Hypothesis); ok {
		return category, markerA, markerB, true
	}
	return "", "", "", false
}

// FindConflicts returns every conflicting pair among the given views
func (d *Detector) FindConflicts(views []models.DerivedView) []Conflict {
	var found []Conflict

	for i := range views {
		for j := i + 1; j < len(views); j++ {
			a, b := &views[i], &views[j]
			subject, markerA, markerB, ok := d.conflicting(a, b)
			if !ok {
				continue
			}
			found = append(found, Conflict{
				Subject: subject,
				ViewA:   a,
				ViewB:   b,
				MarkerA: markerA,
				MarkerB: markerB,
			})
			metrics.ConflictsDetected.Inc()
		}
	}

	return found
}

// HasConflict reports whether the view contradicts any other view in the set
func (d *Detector) HasConflict(view *models.DerivedView, others []models.DerivedView) bool {
	for i := range others {
		other := &others[i]
		if other.ID == view.ID {
			continue
		}
		if _, _, _, ok := d.conflicting(view, other); ok {
			return true
		}
	}
	return false
}

// IsCounterEvidence reports whether an event contradicts the view: the event
// concerns the view's subject and its action opposes a marker in the
// hypothesis, or the event asserts something incompatible with a categorical
// membership the view holds.
func (d *Detector) IsCounterEvidence(event *models.Event, view *models.DerivedView) bool {
	if view.Subject != "" && event.Target == view.Subject {
		for _, pair := range d.antonyms {
			if containsMarker(view.Hypothesis, pair.A, pair.B) && containsMarker(event.Action, pair.B, pair.A) {
				return true
			}
			if containsMarker(view.Hypothesis, pair.B, pair.A) && containsMarker(event.Action, pair.A, pair.B) {
				return true
			}
		}
	}

	for _, excl := range d.exclusions {
		if _, ok := excl.violatedBy(view.Hypothesis, event.Action+event.Target); ok {
			return true
		}
	}

	return false
}
