package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"LeakScanner/internal/domain"
	"LeakScanner/internal/infrastructure/fetch"
	"LeakScanner/internal/ports"
)

// textExtensions are peeked by content; any other allowed extension is
// peeked by metadata only.
var textExtensions = map[string]struct{}{
	".txt": {}, ".csv": {}, ".json": {}, ".log": {},
}

// BotAPIFileLimit is the largest file the hosted Bot API hands out through
// getFile. Self-hosted Bot API servers have no such limit.
const BotAPIFileLimit = 20 << 20

// Options configure the channel subscription.
type Options struct {
	APIURL            string
	BotToken          string
	Chats             []string
	AllowedExtensions []string
	MaxSizeBytes      int64
	PollTimeout       time.Duration
	// RetryDelay is the pause after a failed poll.
	RetryDelay time.Duration
}

// Subscriber long-polls the Bot API for documents posted in the watched chats.
type Subscriber struct {
	api     botAPI
	opts    Options
	allowed map[string]struct{}
	chats   map[string]struct{}
	fetcher *fetch.Fetcher
	logger  *slog.Logger

	mu     sync.Mutex
	offset int64
}

var _ ports.Subscriber = (*Subscriber)(nil)

// NewSubscriber wires the Bot API client. The fetcher downloads file content.
func NewSubscriber(opts Options, client *http.Client, fetcher *fetch.Fetcher, logger *slog.Logger) *Subscriber {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	if hostedBotAPI(opts.APIURL) && (opts.MaxSizeBytes <= 0 || opts.MaxSizeBytes > BotAPIFileLimit) {
		opts.MaxSizeBytes = BotAPIFileLimit
	}
	s := &Subscriber{
		api:     newBotAPI(opts.APIURL, opts.BotToken, client),
		opts:    opts,
		allowed: map[string]struct{}{},
		chats:   map[string]struct{}{},
		fetcher: fetcher,
		logger:  logger,
	}
	for _, ext := range opts.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.allowed[ext] = struct{}{}
	}
	for _, c := range opts.Chats {
		s.chats[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c), "@"))] = struct{}{}
	}
	return s
}

// Kind identifies the adapter inside the registry.
func (s *Subscriber) Kind() domain.SourceKind {
	return domain.SourceTelegram
}

// ListCandidates drains pending updates once without waiting.
func (s *Subscriber) ListCandidates(ctx context.Context, limit int) ([]domain.Candidate, error) {
	candidates, err := s.poll(ctx, 0)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// Subscribe long-polls until ctx is done and hands each eligible document to deliver.
func (s *Subscriber) Subscribe(ctx context.Context, deliver func(domain.Candidate)) error {
	s.info("listening", "chats", len(s.chats))
	for {
		candidates, err := s.poll(ctx, s.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.warn("poll failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.opts.RetryDelay):
			}
			continue
		}
		for _, c := range candidates {
			deliver(c)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (s *Subscriber) poll(ctx context.Context, timeout time.Duration) ([]domain.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	params := url.Values{}
	params.Set("offset", strconv.FormatInt(s.offset, 10))
	params.Set("timeout", strconv.Itoa(int(timeout/time.Second)))
	params.Set("allowed_updates", `["message","channel_post"]`)

	callCtx, cancel := context.WithTimeout(ctx, timeout+15*time.Second)
	defer cancel()

	var updates []update
	if err := s.api.call(callCtx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}

	var out []domain.Candidate
	for _, u := range updates {
		if u.UpdateID >= s.offset {
			s.offset = u.UpdateID + 1
		}
		msg := u.Message
		if msg == nil {
			msg = u.ChannelPost
		}
		if c, ok := s.candidate(msg); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// candidate applies chat, extension and size filters before anything is downloaded.
func (s *Subscriber) candidate(msg *message) (domain.Candidate, bool) {
	if msg == nil || msg.Document == nil {
		return domain.Candidate{}, false
	}
	if !s.watching(msg.Chat) {
		return domain.Candidate{}, false
	}

	doc := msg.Document
	name := doc.FileName
	if name == "" {
		name = "noname"
	}
	ext := strings.ToLower(path.Ext(name))
	if _, ok := s.allowed[ext]; !ok {
		s.debug("extension not allowed", "file", name)
		return domain.Candidate{}, false
	}
	if s.opts.MaxSizeBytes > 0 && doc.FileSize > s.opts.MaxSizeBytes {
		s.debug("file over size cap", "file", name, "size", doc.FileSize)
		return domain.Candidate{}, false
	}

	id := doc.FileUniqueID
	if id == "" {
		id = doc.FileID
	}
	return domain.Candidate{
		Source:       domain.SourceTelegram,
		ID:           id,
		Title:        name,
		Link:         messageLink(msg),
		PeekRef:      doc.FileID,
		FullRef:      doc.FileID,
		Ext:          ext,
		DeclaredSize: doc.FileSize,
		Caption:      msg.Caption,
	}, true
}

func hostedBotAPI(apiURL string) bool {
	return apiURL == "" || strings.TrimSuffix(apiURL, "/") == defaultAPIURL
}

func (s *Subscriber) watching(c chat) bool {
	if len(s.chats) == 0 {
		return true
	}
	if _, ok := s.chats[strconv.FormatInt(c.ID, 10)]; ok {
		return true
	}
	_, ok := s.chats[strings.ToLower(c.Username)]
	return ok && c.Username != ""
}

func messageLink(msg *message) string {
	if msg.Chat.Username != "" {
		return fmt.Sprintf("https://t.me/%s/%d", msg.Chat.Username, msg.MessageID)
	}
	return fmt.Sprintf("tg://chat/%d/%d", msg.Chat.ID, msg.MessageID)
}

// Peek reads the head of text documents. Archives are judged by their
// metadata so the download decision still goes through the scorer.
func (s *Subscriber) Peek(ctx context.Context, c domain.Candidate) (domain.FetchResult, error) {
	if _, ok := textExtensions[c.Ext]; !ok {
		text := strings.TrimSpace(c.Title + "\n" + c.Caption)
		return domain.FetchResult{
			Text:         text,
			ByteLength:   int64(len(text)),
			StreamLength: 0,
		}, nil
	}

	fileURL, err := s.resolve(ctx, c.PeekRef)
	if err != nil {
		return domain.FetchResult{}, err
	}
	res, err := s.fetcher.Peek(ctx, fileURL)
	if err != nil {
		return domain.FetchResult{}, s.api.redact(err)
	}
	if c.Caption != "" {
		res.Text = c.Caption + "\n" + res.Text
	}
	return res, nil
}

// FullFetch downloads the document up to MaxSizeBytes.
func (s *Subscriber) FullFetch(ctx context.Context, c domain.Candidate) (domain.FetchResult, error) {
	fileURL, err := s.resolve(ctx, c.FullRef)
	if err != nil {
		return domain.FetchResult{}, err
	}
	limit := s.opts.MaxSizeBytes
	if limit <= 0 {
		limit = s.fetcher.Limits().MaxBytes
	}
	res, err := s.fetcher.FullN(ctx, fileURL, limit)
	if err != nil {
		return domain.FetchResult{}, s.api.redact(err)
	}
	if _, ok := textExtensions[c.Ext]; !ok {
		res.Text = strings.TrimSpace(c.Title + "\n" + c.Caption)
	} else if c.Caption != "" {
		res.Text = c.Caption + "\n" + res.Text
	}
	return res, nil
}

func (s *Subscriber) resolve(ctx context.Context, fileID string) (string, error) {
	params := url.Values{}
	params.Set("file_id", fileID)

	var f file
	if err := s.api.call(ctx, "getFile", params, &f); err != nil {
		return "", err
	}
	if f.FilePath == "" {
		return "", fmt.Errorf("%w: telegram file %s has no path", domain.ErrGone, fileID)
	}
	return s.api.fileURL(f.FilePath), nil
}

func (s *Subscriber) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Subscriber) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Subscriber) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
