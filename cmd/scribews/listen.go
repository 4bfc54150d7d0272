package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sonirico/scribews"
	"github.com/sonirico/scribews/store"
)

const defaultChunkSize = 32 * 1024

// runListen connects to a realtime endpoint, prints every backend message and optionally
// streams an audio file over the socket. It returns when ctx ends or reconnects run out.
func runListen(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("listen", flag.ContinueOnError)
	endpoint := fs.String("endpoint", "/ws", "realtime endpoint or full ws(s):// address")
	audioPath := fs.String("audio", "", "audio file to stream once connected")
	chunkSize := fs.Int("chunk", defaultChunkSize, "bytes per binary frame when streaming audio")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *chunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", *chunkSize)
	}

	client := scribews.New(
		a.cfg.RealtimeConfig(),
		scribews.WithLogger(scribews.NewZerologLogger(a.logger)),
	)
	defer client.DisconnectAll()

	client.On(scribews.EventReconnect, func(e scribews.Event) {
		a.logger.Warn().
			Str("address", e.Address).
			Int("attempt", e.Attempt).
			Dur("delay", e.Delay).
			Msg("reconnecting")
	})

	var (
		outMu   sync.Mutex
		opened  = make(chan *scribews.Conn, 1)
		ceiling = make(chan string, 1)
		results = store.New()
	)

	handlers := scribews.Handlers{
		Open: func(c *scribews.Conn) {
			a.logger.Info().Str("address", c.Address()).Msg("connected")
			select {
			case opened <- c:
			default:
			}
		},
		Message: func(c *scribews.Conn, p scribews.Payload) {
			outMu.Lock()
			defer outMu.Unlock()
			fmt.Fprintln(a.out, p.String())
		},
		Error: func(c *scribews.Conn, err error) {
			a.logger.Error().Err(err).Msg("realtime error")
		},
		Close: func(c *scribews.Conn, code int, reason string) {
			a.logger.Info().Int("code", code).Str("reason", reason).Msg("connection closed")
		},
		ReconnectCeiling: func(address string) {
			select {
			case ceiling <- address:
			default:
			}
		},
	}

	if client.Connect(*endpoint, store.Handler(results, handlers)) == nil {
		return fmt.Errorf("connect %q: %w", *endpoint, scribews.ErrInvalidAddress)
	}

	var streamErr chan error
	if *audioPath != "" {
		streamErr = make(chan error, 1)
		go func() {
			streamErr <- streamAudio(ctx, opened, *audioPath, *chunkSize)
		}()
	}

	defer func() {
		if text := results.Transcription(); text != "" {
			outMu.Lock()
			fmt.Fprintf(a.out, "transcription: %s\n", text)
			outMu.Unlock()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case address := <-ceiling:
			return fmt.Errorf("%s: %w", address, scribews.ErrReconnectCeiling)
		case err := <-streamErr:
			streamErr = nil
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.logger.Info().Str("file", *audioPath).Msg("audio sent")
		}
	}
}

// streamAudio waits for the first open handle and writes the file to it as binary frames.
func streamAudio(ctx context.Context, opened <-chan *scribews.Conn, path string, chunkSize int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var conn *scribews.Conn
	select {
	case <-ctx.Done():
		return ctx.Err()
	case conn = <-opened:
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if sendErr := conn.SendMessage(scribews.NewBinaryMessage(chunk)); sendErr != nil {
				return fmt.Errorf("send audio: %w", sendErr)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read audio: %w", err)
		}
	}
}
