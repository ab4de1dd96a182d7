package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validEvent() Event {
	quantity := 3.0
	unit := "个"
	return Event{
		UserID:     "user-1",
		Timestamp:  time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Actor:      "user-1",
		Action:     "吃",
		Target:     "苹果",
		Quantity:   &quantity,
		Unit:       &unit,
		Confidence: 0.85,
	}
}

func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *Event)
		wantErr bool
	}{
		{name: "valid", mutate: func(e *Event) {}},
		{name: "valid without quantity", mutate: func(e *Event) { e.Quantity = nil; e.Unit = nil }},
		{name: "missing user", mutate: func(e *Event) { e.UserID = "" }, wantErr: true},
		{name: "missing action", mutate: func(e *Event) { e.Action = "" }, wantErr: true},
		{name: "missing target", mutate: func(e *Event) { e.Target = "" }, wantErr: true},
		{name: "confidence above one", mutate: func(e *Event) { e.Confidence = 1.5 }, wantErr: true},
		{name: "negative confidence", mutate: func(e *Event) { e.Confidence = -0.1 }, wantErr: true},
		{name: "zero quantity", mutate: func(e *Event) { q := 0.0; e.Quantity = &q }, wantErr: true},
		{name: "negative quantity", mutate: func(e *Event) { q := -2.0; e.Quantity = &q }, wantErr: true},
		{name: "quantity without unit", mutate: func(e *Event) { e.Unit = nil }, wantErr: true},
		{name: "unit without quantity", mutate: func(e *Event) { e.Quantity = nil }, wantErr: true},
		{name: "zero timestamp", mutate: func(e *Event) { e.Timestamp = time.Time{} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(&e)
			err := e.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStringList_Contains(t *testing.T) {
	l := StringList{"a", "b"}
	assert.True(t, l.Contains("a"))
	assert.False(t, l.Contains("c"))
	assert.False(t, StringList(nil).Contains("a"))
}
