package model_test

import (
	"testing"
	"time"

	"github.com/billingcat/timetrack/model"
)

func TestNormalizeDayRange(t *testing.T) {
	begin := time.Date(2026, 3, 10, 11, 45, 17, 0, time.UTC)
	end := time.Date(2026, 3, 12, 8, 15, 0, 0, time.UTC)
	q := &model.InvoiceQuery{Begin: &begin, End: &end}

	q.NormalizeDayRange()

	wantBegin := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 3, 12, 23, 59, 59, 0, time.UTC)
	if !q.Begin.Equal(wantBegin) {
		t.Errorf("Begin = %v, want %v", q.Begin, wantBegin)
	}
	if !q.End.Equal(wantEnd) {
		t.Errorf("End = %v, want %v", q.End, wantEnd)
	}
}

func TestNormalizeDayRangeNil(t *testing.T) {
	q := &model.InvoiceQuery{}
	q.NormalizeDayRange()
	if q.Begin != nil || q.End != nil {
		t.Errorf("nil bounds must stay nil: %v, %v", q.Begin, q.End)
	}
}

func TestNormalizeDayRangeKeepsLocation(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	begin := time.Date(2026, 3, 10, 11, 45, 0, 0, loc)
	q := &model.InvoiceQuery{Begin: &begin}

	q.NormalizeDayRange()

	if q.Begin.Location() != loc {
		t.Errorf("Location = %v, want %v", q.Begin.Location(), loc)
	}
}
