package chatclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"journal_chat/internal/domain"
	"journal_chat/pkg/logger"
)

const (
	DefaultPollInterval = 15 * time.Second
	DefaultNoticeTTL    = 5 * time.Second
	noticeBuffer        = 16
)

var (
	ErrClosed      = errors.New("syncer closed")
	ErrNoSelection = errors.New("no conversation selected")
)

// API is the subset of Client the Syncer drives.
type API interface {
	History(ctx context.Context, userA, userB string, limit int, before *Cursor) ([]domain.Message, error)
	Conversations(ctx context.Context, userID string) ([]domain.Conversation, error)
	Send(ctx context.Context, req SendRequest) (*domain.Message, error)
	MarkRead(ctx context.Context, senderID, receiverID string) (int64, error)
	Edit(ctx context.Context, messageID, text string) (*domain.Message, error)
	Delete(ctx context.Context, messageID string) (*domain.Message, error)
	Forward(ctx context.Context, messageID string, target ForwardTarget) (*domain.Message, error)
}

// Notice is a transient, user-facing report of a failed operation.
type Notice struct {
	Message   string
	Err       error
	ExpiresAt time.Time
}

// View is the active conversation. Generation changes on every selection.
type View struct {
	Partner    string
	Messages   []domain.Message
	Generation uint64
}

type SyncerConfig struct {
	UserID         string
	PollInterval   time.Duration
	RequestTimeout time.Duration
	NoticeTTL      time.Duration
}

// Syncer polls the conversation list and keeps the selected thread in sync.
// Results that arrive for an earlier selection, or after Close, are dropped.
type Syncer struct {
	api API
	cfg SyncerConfig
	log logger.Logger

	mu            sync.Mutex
	conversations []domain.Conversation
	view          View
	closed        bool
	// refreshSeq numbers list requests in the order they were issued;
	// refreshShown is the newest one applied so far.
	refreshSeq   uint64
	refreshShown uint64

	notices chan Notice
	updates chan []domain.Conversation
	done    chan struct{}
}

func NewSyncer(api API, cfg SyncerConfig, log logger.Logger) *Syncer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultTimeout
	}
	if cfg.NoticeTTL <= 0 {
		cfg.NoticeTTL = DefaultNoticeTTL
	}

	return &Syncer{
		api:     api,
		cfg:     cfg,
		log:     log,
		notices: make(chan Notice, noticeBuffer),
		updates: make(chan []domain.Conversation, 1),
		done:    make(chan struct{}),
	}
}

// Notices delivers failures. When the buffer is full new notices are dropped.
func (s *Syncer) Notices() <-chan Notice {
	return s.notices
}

// Updates delivers the latest conversation list after each refresh.
// Only the most recent list is kept when the reader falls behind.
func (s *Syncer) Updates() <-chan []domain.Conversation {
	return s.updates
}

// Run polls until ctx is cancelled or Close is called. A failed cycle is
// reported as a notice and retried on the next tick.
func (s *Syncer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrClosed) && ctx.Err() == nil {
			s.log.Debug("Poll cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-ticker.C:
		}
	}
}

// Refresh reloads the conversation list once. A response is dropped when a
// refresh issued later has already been applied.
func (s *Syncer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.refreshSeq++
	seq := s.refreshSeq
	s.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	conversations, err := s.api.Conversations(cctx, s.cfg.UserID)
	if err != nil {
		s.notify("Could not refresh conversations", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if seq < s.refreshShown {
		s.log.Debug("Dropping out-of-order conversation list", "seq", seq, "shown", s.refreshShown)
		return nil
	}
	s.refreshShown = seq
	s.conversations = conversations
	s.publish(conversations)
	return nil
}

// Select makes partner the active conversation: it loads the history,
// marks the partner's messages as read and refreshes the list.
func (s *Syncer) Select(ctx context.Context, partner string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.view = View{Partner: partner, Generation: s.view.Generation + 1}
	gen := s.view.Generation
	s.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	messages, err := s.api.History(cctx, s.cfg.UserID, partner, 0, nil)
	if err != nil {
		s.notify("Could not load messages", err)
		return err
	}
	if !s.apply(gen, func(v *View) { v.Messages = messages }) {
		return nil
	}

	if _, err := s.api.MarkRead(cctx, partner, s.cfg.UserID); err != nil {
		s.notify("Could not mark messages as read", err)
		return err
	}

	return s.Refresh(ctx)
}

// Send posts draft to the active partner and appends the stored message
// to the view without waiting for the next poll.
func (s *Syncer) Send(ctx context.Context, draft domain.MessageDraft, reply domain.Reply) (*domain.Message, error) {
	partner, gen, err := s.active()
	if err != nil {
		return nil, err
	}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	message, err := s.api.Send(cctx, SendRequest{
		SenderID:     s.cfg.UserID,
		ReceiverID:   partner,
		MessageDraft: draft,
		Reply:        reply,
	})
	if err != nil {
		s.notify("Message not sent", err)
		return nil, err
	}

	s.apply(gen, func(v *View) {
		for _, m := range v.Messages {
			if m.ID == message.ID {
				return
			}
		}
		v.Messages = append(v.Messages, *message)
	})
	return message, nil
}

func (s *Syncer) Edit(ctx context.Context, messageID, text string) error {
	return s.mutate(ctx, "Could not edit message", func(cctx context.Context) error {
		_, err := s.api.Edit(cctx, messageID, text)
		return err
	})
}

func (s *Syncer) Delete(ctx context.Context, messageID string) error {
	return s.mutate(ctx, "Could not delete message", func(cctx context.Context) error {
		_, err := s.api.Delete(cctx, messageID)
		return err
	})
}

func (s *Syncer) Forward(ctx context.Context, messageID string, target ForwardTarget) error {
	return s.mutate(ctx, "Could not forward message", func(cctx context.Context) error {
		_, err := s.api.Forward(cctx, messageID, target)
		return err
	})
}

// View returns a copy of the active conversation.
func (s *Syncer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.view
	v.Messages = append([]domain.Message(nil), s.view.Messages...)
	return v
}

func (s *Syncer) Conversations() []domain.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Conversation(nil), s.conversations...)
}

// Close stops Run and discards any result still in flight.
func (s *Syncer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.view.Generation++
	close(s.done)
}

// mutate runs op and then reloads the active thread and the list.
func (s *Syncer) mutate(ctx context.Context, failure string, op func(context.Context) error) error {
	partner, gen, err := s.active()
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	if err := op(cctx); err != nil {
		s.notify(failure, err)
		return err
	}

	messages, err := s.api.History(cctx, s.cfg.UserID, partner, 0, nil)
	if err != nil {
		s.notify("Could not reload messages", err)
		return err
	}
	s.apply(gen, func(v *View) { v.Messages = messages })

	return s.Refresh(ctx)
}

func (s *Syncer) active() (string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", 0, ErrClosed
	}
	if s.view.Partner == "" {
		return "", 0, ErrNoSelection
	}
	return s.view.Partner, s.view.Generation, nil
}

// apply runs fn on the view if it is still generation gen.
func (s *Syncer) apply(gen uint64, fn func(v *View)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.view.Generation != gen {
		return false
	}
	fn(&s.view)
	return true
}

func (s *Syncer) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Syncer) notify(message string, err error) {
	if s.isClosed() || errors.Is(err, context.Canceled) {
		return
	}

	select {
	case s.notices <- Notice{Message: message, Err: err, ExpiresAt: time.Now().Add(s.cfg.NoticeTTL)}:
	default:
		s.log.Warn("Dropped notice", "message", message, "error", err)
	}
}

// publish is called with mu held so updates leave in refresh order.
func (s *Syncer) publish(conversations []domain.Conversation) {
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- conversations:
	default:
	}
}
