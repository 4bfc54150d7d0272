package store

import (
	"github.com/pkg/errors"

	"github.com/sonirico/scribews"
)

type handler struct {
	store *Store
	next  scribews.Handler
}

// Handler applies transcription_result messages to s and forwards every event to next.
// A nil next only feeds the store.
func Handler(s *Store, next scribews.Handler) scribews.Handler {
	if next == nil {
		next = scribews.Handlers{}
	}
	return &handler{store: s, next: next}
}

func (h *handler) OnOpen(c *scribews.Conn) {
	h.next.OnOpen(c)
}

func (h *handler) OnMessage(c *scribews.Conn, p scribews.Payload) {
	if p.Kind() == KindTranscriptionResult {
		var msg TranscriptionResult
		if err := p.Decode(&msg); err != nil {
			h.next.OnError(c, errors.Wrap(scribews.ErrDecode, err.Error()))
		} else {
			h.store.SetTranscription(msg.Result.Text, msg.Result.Confidence)
		}
	}

	h.next.OnMessage(c, p)
}

func (h *handler) OnError(c *scribews.Conn, err error) {
	h.next.OnError(c, err)
}

func (h *handler) OnClose(c *scribews.Conn, code int, reason string) {
	h.next.OnClose(c, code, reason)
}

func (h *handler) OnReconnectCeiling(address string) {
	h.next.OnReconnectCeiling(address)
}
