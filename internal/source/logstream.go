package source

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"hypeflow/internal/solana"
)

// DefaultLogStreamBuffer bounds the signatures held between scans.
const DefaultLogStreamBuffer = 64

// LogStream buffers signatures of successful Metaplex transactions pushed
// by a logsSubscribe WebSocket subscription. The on-chain scan drains it.
type LogStream struct {
	ws     solana.WSClient
	logger *zap.Logger
	limit  int

	mu   sync.Mutex
	sigs []string
}

// NewLogStream creates a LogStream over ws. A non-positive limit falls back
// to DefaultLogStreamBuffer.
func NewLogStream(ws solana.WSClient, limit int, logger *zap.Logger) *LogStream {
	if limit <= 0 {
		limit = DefaultLogStreamBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogStream{ws: ws, logger: logger, limit: limit}
}

// Run subscribes and buffers notifications until ctx is done or the
// subscription channel closes. It returns the subscribe error, if any.
func (s *LogStream) Run(ctx context.Context) error {
	ch, err := s.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{solana.MetaplexProgramID}})
	if err != nil {
		return err
	}
	s.logger.Info("log stream subscribed", zap.String("program", solana.MetaplexProgramID))

	for n := range ch {
		if n.Err != nil || n.Signature == "" {
			continue
		}
		s.push(n.Signature)
	}
	s.logger.Info("log stream closed")
	return nil
}

// push appends sig, dropping the oldest signature when full.
func (s *LogStream) push(sig string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sigs) >= s.limit {
		s.sigs = s.sigs[1:]
	}
	s.sigs = append(s.sigs, sig)
}

// Drain removes and returns up to max buffered signatures, newest first.
func (s *LogStream) Drain(max int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if max <= 0 || max > len(s.sigs) {
		max = len(s.sigs)
	}
	out := make([]string, 0, max)
	for i := 0; i < max; i++ {
		out = append(out, s.sigs[len(s.sigs)-1-i])
	}
	s.sigs = s.sigs[:len(s.sigs)-max]
	return out
}

// Len returns the number of buffered signatures.
func (s *LogStream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sigs)
}
