package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"LeakScanner/internal/domain"
)

const defaultAPIURL = "https://api.telegram.org"

// botAPI is a minimal Bot API client shared by the subscriber and notifier.
type botAPI struct {
	baseURL string
	token   string
	client  *http.Client
}

func newBotAPI(baseURL, token string, client *http.Client) botAPI {
	if baseURL == "" {
		baseURL = defaultAPIURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return botAPI{baseURL: strings.TrimSuffix(baseURL, "/"), token: token, client: client}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

func (b botAPI) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", b.baseURL, b.token, method)
}

func (b botAPI) fileURL(filePath string) string {
	return fmt.Sprintf("%s/file/bot%s/%s", b.baseURL, b.token, filePath)
}

// call posts form params to method and decodes the result into v. Errors
// never carry the bot token.
func (b botAPI) call(ctx context.Context, method string, params url.Values, v any) error {
	return b.redact(b.do(ctx, method, params, v))
}

func (b botAPI) do(ctx context.Context, method string, params url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.methodURL(method), strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: telegram %s: %w", domain.ErrTransientFetch, method, err)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("%w: telegram %s: decode: %v (status %s)", domain.ErrTransientFetch, method, err, resp.Status)
	}
	if !out.OK {
		return fmt.Errorf("%w: telegram %s: %d %s", domain.ErrTransientFetch, method, out.ErrorCode, out.Description)
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(out.Result, v); err != nil {
		return fmt.Errorf("telegram %s: decode result: %w", method, err)
	}
	return nil
}

// tokenError is err with the bot token masked. It unwraps only to the fetch
// taxonomy sentinels so the original message cannot be reached.
type tokenError struct {
	msg   string
	kinds []error
}

func (e *tokenError) Error() string   { return e.msg }
func (e *tokenError) Unwrap() []error { return e.kinds }

var errorKinds = []error{
	domain.ErrTransientFetch,
	domain.ErrGone,
	domain.ErrResourceExceeded,
	context.Canceled,
	context.DeadlineExceeded,
}

func (b botAPI) redact(err error) error {
	if err == nil || b.token == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, b.token) {
		return err
	}
	te := &tokenError{msg: strings.ReplaceAll(msg, b.token, "<redacted>")}
	for _, kind := range errorKinds {
		if errors.Is(err, kind) {
			te.kinds = append(te.kinds, kind)
		}
	}
	return te
}

type update struct {
	UpdateID    int64    `json:"update_id"`
	Message     *message `json:"message"`
	ChannelPost *message `json:"channel_post"`
}

type message struct {
	MessageID int64     `json:"message_id"`
	Chat      chat      `json:"chat"`
	Caption   string    `json:"caption"`
	Document  *document `json:"document"`
}

type chat struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Title    string `json:"title"`
}

type document struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name"`
	MimeType     string `json:"mime_type"`
	FileSize     int64  `json:"file_size"`
}

type file struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
	FilePath string `json:"file_path"`
}
