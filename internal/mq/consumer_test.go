package mq

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"highseas/internal/model"
)

type memStore struct {
	records []*model.CombatRecord
	matches []*model.MatchHistory
	err     error
}

func (s *memStore) AddCombatRecord(rec *model.CombatRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memStore) AddMatchHistory(h *model.MatchHistory) error {
	if s.err != nil {
		return s.err
	}
	s.matches = append(s.matches, h)
	return nil
}

func newTestConsumer(store Store) *Consumer {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewConsumer(nil, "q", store, logrus.NewEntry(l))
}

func TestHandleCombatRecord(t *testing.T) {
	store := &memStore{}
	c := newTestConsumer(store)

	body, err := encode(KindCombatRecord, CombatRecord{RoomID: "r1", ActionID: 3, SourceID: "a", TargetID: "b", Damage: 11, NewHealth: 89})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Handle(body); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(store.records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(store.records))
	}
	if rec := store.records[0]; rec.ActionID != 3 || rec.Damage != 11 || rec.TargetID != "b" {
		t.Errorf("Record fields not mapped: %+v", rec)
	}
}

func TestHandleGameResult(t *testing.T) {
	store := &memStore{}
	c := newTestConsumer(store)

	body, _ := encode(KindGameResult, GameResult{MatchID: "m1", Winner: "a", Ships: 2})
	if err := c.Handle(body); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(store.matches) != 1 || store.matches[0].WinnerID != "a" {
		t.Errorf("Expected match history for winner a, got %+v", store.matches)
	}
}

func TestHandleBadPayload(t *testing.T) {
	c := newTestConsumer(&memStore{})
	cases := map[string][]byte{
		"not json":     []byte("nope"),
		"unknown kind": []byte(`{"kind":"mystery","body":{}}`),
		"bad body":     []byte(`{"kind":"combat_record","body":"x"}`),
	}
	for name, body := range cases {
		if err := c.Handle(body); !errors.Is(err, ErrBadPayload) {
			t.Errorf("%s: expected ErrBadPayload, got %v", name, err)
		}
	}
}

func TestHandleStoreFailureIsRetryable(t *testing.T) {
	c := newTestConsumer(&memStore{err: errors.New("db down")})
	body, _ := encode(KindCombatRecord, CombatRecord{ActionID: 1})
	err := c.Handle(body)
	if err == nil || errors.Is(err, ErrBadPayload) {
		t.Errorf("Expected retryable store error, got %v", err)
	}
}
