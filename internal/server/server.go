// Package server accepts commands from remote senders over anet framed TCP.
//
// A request frame is
//
//	sender id  8 bytes, big-endian
//	timestamp  8 bytes, big-endian unix seconds
//	signature 32 bytes, HMAC-SHA256 of the fields above and the text
//	text       UTF-8 command text
//
// keyed by the configured login identity. Unsigned, stale or replayed
// frames are refused before the sender id is trusted. The response frame
// holds the replies queued for that sender, joined by newlines.
package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	anetserver "github.com/andrei-cloud/anet/server"
	"github.com/rs/zerolog/log"

	"github.com/andrei-cloud/go_cmdhost/internal/host"
)

// Frame layout.
const (
	senderSize    = 8
	stampSize     = 8
	signatureSize = sha256.Size
	signedSize    = senderSize + stampSize
	// HeaderSize is the length of the fields in front of the text.
	HeaderSize = signedSize + signatureSize
)

// MaxSkew is how far a frame timestamp may be from the server clock.
const MaxSkew = 30 * time.Second

// Frame errors.
var (
	ErrShortFrame    = errors.New("frame shorter than header")
	ErrBadSignature  = errors.New("frame signature mismatch")
	ErrStaleFrame    = errors.New("frame timestamp outside allowed skew")
	ErrReplayed      = errors.New("frame already seen")
	ErrConsoleSender = errors.New("sender id 0 is reserved for the console")
	ErrInvalidText   = errors.New("command text is not valid UTF-8")
	ErrNoKey         = errors.New("remote transport needs a login identity")
)

// Key derives the frame signing key from the login identity.
func Key(username, password string) []byte {
	if username == "" || password == "" {
		return nil
	}
	return []byte(username + "\x00" + password)
}

// Executor runs one line of input for a sender.
type Executor interface {
	Execute(ctx context.Context, input string, sender uint64) error
}

// Outbox hands out replies queued for a sender.
type Outbox interface {
	Drain(sender uint64) []string
}

// logAdapter implements anet.Logger using zerolog.
type logAdapter struct{}

func (l logAdapter) Print(v ...any) {
	log.Info().Msg(fmt.Sprint(v...))
}

func (l logAdapter) Printf(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func (l logAdapter) Infof(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func (l logAdapter) Warnf(format string, v ...any) {
	log.Warn().Msgf(format, v...)
}

func (l logAdapter) Errorf(format string, v ...any) {
	log.Error().Msgf(format, v...)
}

// Server wraps the anet TCP server around the host.
type Server struct {
	address     string
	srv         *anetserver.Server
	exec        Executor
	outbox      Outbox
	key         []byte
	now         func() time.Time
	activeConns int32
	// mu keeps a command and the drain of its replies together, and guards seen.
	mu   sync.Mutex
	seen map[[signatureSize]byte]time.Time
}

// NewServer configures a server listening on address. Frames must be signed
// with key, see Key.
func NewServer(address string, key []byte, exec Executor, outbox Outbox) (*Server, error) {
	if len(key) == 0 {
		return nil, ErrNoKey
	}

	cfg := &anetserver.ServerConfig{
		MaxConns:        100,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     0 * time.Second, // disable idle connection closure.
		ShutdownTimeout: 5 * time.Second,
		Logger:          logAdapter{},
	}

	s := &Server{
		address: address,
		exec:    exec,
		outbox:  outbox,
		key:     key,
		now:     time.Now,
		seen:    make(map[[signatureSize]byte]time.Time),
	}
	srv, err := anetserver.NewServer(address, anetserver.HandlerFunc(s.handle), cfg)
	if err != nil {
		return nil, fmt.Errorf("server setup failed: %w", err)
	}
	s.srv = srv

	return s, nil
}

// Address returns the configured listen address.
func (s *Server) Address() string { return s.address }

// Start begins listening for connections.
func (s *Server) Start() error {
	log.Info().Str("event", "server_started").Str("address", s.address).Msg("server started")
	return s.srv.Start()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	return s.srv.Stop()
}

// EncodeFrame builds a request frame signed with key and stamped with at.
func EncodeFrame(key []byte, sender uint64, at time.Time, text string) []byte {
	out := make([]byte, HeaderSize, HeaderSize+len(text))
	binary.BigEndian.PutUint64(out, sender)
	binary.BigEndian.PutUint64(out[senderSize:], uint64(at.Unix()))
	out = append(out, text...)
	copy(out[signedSize:HeaderSize], sign(key, out[:signedSize], out[HeaderSize:]))
	return out
}

// DecodeFrame verifies a request frame against key and the clock reading
// now, then splits it into sender and text.
func DecodeFrame(key, data []byte, now time.Time) (uint64, string, error) {
	if len(data) < HeaderSize {
		return 0, "", ErrShortFrame
	}
	body := data[HeaderSize:]
	if !hmac.Equal(data[signedSize:HeaderSize], sign(key, data[:signedSize], body)) {
		return 0, "", ErrBadSignature
	}

	at := time.Unix(int64(binary.BigEndian.Uint64(data[senderSize:signedSize])), 0)
	if skew := now.Sub(at); skew > MaxSkew || skew < -MaxSkew {
		return 0, "", ErrStaleFrame
	}

	sender := binary.BigEndian.Uint64(data[:senderSize])
	if sender == 0 {
		return 0, "", ErrConsoleSender
	}
	if !utf8.Valid(body) {
		return sender, "", ErrInvalidText
	}
	return sender, string(body), nil
}

func sign(key, header, body []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(header)
	mac.Write(body)
	return mac.Sum(nil)
}

// remember records the signature of an accepted frame and reports false
// when it was already seen inside the skew window. Callers hold s.mu.
func (s *Server) remember(data []byte, now time.Time) bool {
	var sig [signatureSize]byte
	copy(sig[:], data[signedSize:HeaderSize])

	for k, at := range s.seen {
		if now.Sub(at) > 2*MaxSkew {
			delete(s.seen, k)
		}
	}
	if _, ok := s.seen[sig]; ok {
		return false
	}
	s.seen[sig] = now
	return true
}

func (s *Server) handle(conn *anetserver.ServerConn, data []byte) ([]byte, error) {
	client := conn.Conn.RemoteAddr().String()
	atomic.AddInt32(&s.activeConns, 1)
	defer atomic.AddInt32(&s.activeConns, -1)

	return s.process(context.Background(), client, data)
}

func (s *Server) process(ctx context.Context, client string, data []byte) ([]byte, error) {
	start := time.Now()

	sender, text, err := DecodeFrame(s.key, data, s.now())
	if err != nil {
		log.Error().
			Str("event", "malformed_request").
			Str("client_ip", client).
			Err(err).
			Msg("malformed request")
		return nil, err
	}

	log.Debug().
		Str("event", "request_received").
		Str("client_ip", client).
		Uint64("sender", sender).
		Int("active_connections", int(atomic.LoadInt32(&s.activeConns))).
		Msg("received message")

	s.mu.Lock()
	if !s.remember(data, s.now()) {
		s.mu.Unlock()
		log.Warn().
			Str("event", "replayed_request").
			Str("client_ip", client).
			Uint64("sender", sender).
			Msg("refused replayed request")
		return nil, ErrReplayed
	}
	err = s.exec.Execute(ctx, text, sender)
	replies := s.outbox.Drain(sender)
	s.mu.Unlock()

	switch {
	case errors.Is(err, host.ErrNotCommand):
		log.Debug().Str("client_ip", client).Uint64("sender", sender).Msg("ignored chat message")
	case err != nil:
		log.Debug().Str("client_ip", client).Uint64("sender", sender).Err(err).Msg("command failed")
	}

	resp := strings.Join(replies, "\n")
	log.Debug().
		Str("event", "handle_done").
		Str("client_ip", client).
		Int("replies", len(replies)).
		Str("duration", time.Since(start).String()).
		Msg("completed request handling")

	return []byte(resp), nil
}
