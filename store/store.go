// Package store keeps the latest transcription received from the backend.
package store

import "sync"

type Store struct {
	mu            sync.RWMutex
	transcription string
	confidence    *float64
}

// Snapshot is a copy of the store state.
type Snapshot struct {
	Transcription string
	Confidence    *float64
}

func New() *Store {
	return &Store{}
}

// SetTranscription replaces the current transcription. A nil conf clears the confidence.
func (s *Store) SetTranscription(text string, conf *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transcription = text
	s.confidence = copyFloat(conf)
}

func (s *Store) Transcription() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcription
}

// Confidence returns the confidence of the current transcription, or false when unknown.
func (s *Store) Confidence() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.confidence == nil {
		return 0, false
	}
	return *s.confidence, true
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Transcription: s.transcription,
		Confidence:    copyFloat(s.confidence),
	}
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
