// Package syncer moves chat records between the in-memory corpus and durable storage.
package syncer

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"markov-chatter/internal/corpus"
	"markov-chatter/internal/metrics"
	"markov-chatter/internal/storage"
)

// FlushReport summarizes one flush cycle.
type FlushReport struct {
	Saved  int
	Failed int
}

type Syncer struct {
	store *corpus.Store
	repo  storage.Repository
	now   func() time.Time
	// one flush at a time even when called outside the scheduler
	flushMu sync.Mutex
}

func New(store *corpus.Store, repo storage.Repository) *Syncer {
	return &Syncer{store: store, repo: repo, now: time.Now}
}

// FlushAll writes every dirty record. A failed chat stays dirty and is retried on the next cycle.
func (s *Syncer) FlushAll(ctx context.Context) FlushReport {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	started := time.Now()
	defer func() { metrics.FlushDuration.Observe(time.Since(started).Seconds()) }()

	var rep FlushReport
	for _, snap := range s.store.DirtySnapshots(s.now()) {
		rec := toStorage(snap.Record)
		if err := s.repo.Save(ctx, rec); err != nil {
			rep.Failed++
			metrics.FlushErrors.Inc()
			log.WithError(err).WithField("chat_id", snap.Record.ID).Error("failed to persist chat record")
			continue
		}
		s.store.MarkClean(snap.Record.ID, snap.Revision)
		rep.Saved++
		metrics.FlushedRecords.Inc()
	}
	metrics.Chats.Set(float64(s.store.Len()))
	if rep.Saved > 0 || rep.Failed > 0 {
		log.Debugf("flush: saved=%d failed=%d", rep.Saved, rep.Failed)
	}
	return rep
}

// LoadAll reads every stored chat. Unreadable units are logged and skipped.
func (s *Syncer) LoadAll(ctx context.Context) map[string]corpus.ChatRecord {
	recs, errs := s.repo.LoadAll(ctx)
	for _, err := range errs {
		log.WithError(err).Warn("skipping unreadable chat record")
	}
	out := make(map[string]corpus.ChatRecord, len(recs))
	now := s.now().Unix()
	for _, r := range recs {
		cr := fromStorage(r)
		if cr.OffUntil != 0 && cr.OffUntil <= now {
			cr.OffUntil = 0
		}
		out[cr.ID] = cr
	}
	return out
}

// Restore seeds the store from storage and returns the number of chats loaded.
func (s *Syncer) Restore(ctx context.Context) int {
	recs := s.LoadAll(ctx)
	s.store.Seed(recs)
	metrics.Chats.Set(float64(len(recs)))
	total := 0
	for id := range recs {
		total += s.store.MessageCount(id)
	}
	log.Infof("loaded %d chat records with %d messages", len(recs), total)
	return len(recs)
}

func toStorage(r corpus.ChatRecord) storage.Record {
	return storage.Record{
		ID:          storage.ChatID(r.ID),
		Messages:    r.Messages,
		Attachments: []string{},
		OffUntil:    r.OffUntil,
	}
}

func fromStorage(r storage.Record) corpus.ChatRecord {
	msgs := r.Messages
	if msgs == nil {
		msgs = []string{}
	}
	return corpus.ChatRecord{ID: string(r.ID), Messages: msgs, OffUntil: r.OffUntil}
}
