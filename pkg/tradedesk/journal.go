package tradedesk

import (
	"context"
	"strings"
)

// ListJournal returns journal entries, newest first.
func (s *Store) ListJournal() []JournalEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]JournalEntry{}, s.journal...)
}

// AddJournalEntry stores a new entry and puts it at the front.
func (s *Store) AddJournalEntry(ctx context.Context, req AddJournalEntryRequest) (JournalEntry, error) {
	date, err := normalizeDate(req.Date)
	if err != nil {
		return JournalEntry{}, err
	}
	sentiment, ok := parseSentiment(req.Sentiment)
	if !ok {
		return JournalEntry{}, invalidf("invalid sentiment: %q", req.Sentiment)
	}
	entry := JournalEntry{
		ID:          newID(),
		Date:        date,
		MacroReview: strings.TrimSpace(req.MacroReview),
		AltsMarket:  strings.TrimSpace(req.AltsMarket),
		Summary:     strings.TrimSpace(req.Summary),
		Sentiment:   sentiment,
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.backend.Journal().Insert(ctx, entry); err != nil {
		s.logger.Error("journal insert failed", "id", entry.ID, "err", err)
		return JournalEntry{}, err
	}

	s.mu.Lock()
	s.journal = append([]JournalEntry{entry}, s.journal...)
	s.mu.Unlock()
	return entry, nil
}

// DeleteJournalEntry removes one entry.
func (s *Store) DeleteJournalEntry(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	idx := indexByID(s.journal, id)
	s.mu.RUnlock()
	if idx < 0 {
		return notFound("journal entry", id)
	}
	if err := s.backend.Journal().Delete(ctx, id); err != nil {
		s.logger.Error("journal delete failed", "id", id, "err", err)
		return err
	}

	s.mu.Lock()
	s.journal = removeByID(s.journal, id)
	s.mu.Unlock()
	return nil
}
