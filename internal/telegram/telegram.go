// Package telegram is the Bot API transport: a thin JSON client that
// implements the outbound dispatcher and a long-poll loop feeding the
// inbound handlers.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mutualref/mutualref/internal/bot"
	"github.com/mutualref/mutualref/internal/notify"
	"github.com/mutualref/mutualref/internal/rate"
)

// Handler receives the decoded updates. *bot.Bot satisfies it.
type Handler interface {
	HandleText(ctx context.Context, msg bot.TextMessage)
	HandlePhoto(ctx context.Context, msg bot.PhotoMessage)
	HandleCallback(ctx context.Context, msg bot.CallbackAction)
}

type Client struct {
	baseURL    string
	HTTPClient *http.Client
	limiter    rate.Limiter
	log        zerolog.Logger
}

func New(token, apiURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(apiURL, "/") + "/bot" + token,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewMemory(),
		log:        log,
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// call performs one Bot API method invocation.
func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var api apiResponse
	if err := json.Unmarshal(respBody, &api); err != nil {
		return fmt.Errorf("%s: bad response (%d): %s", method, resp.StatusCode, string(respBody))
	}
	if !api.OK {
		return fmt.Errorf("%s failed: %s", method, api.Description)
	}
	if out != nil {
		return json.Unmarshal(api.Result, out)
	}
	return nil
}

// throttle blocks until the per-chat send budget allows another message.
func (c *Client) throttle(chatID int64) {
	for {
		ok, wait := c.limiter.Allow(chatID, 1, time.Second)
		if ok {
			return
		}
		time.Sleep(wait)
	}
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

func keyboard(menu *notify.Menu) *inlineKeyboard {
	if menu == nil {
		return nil
	}
	kb := &inlineKeyboard{}
	for _, row := range menu.Rows {
		var btns []inlineButton
		for _, b := range row {
			btns = append(btns, inlineButton{Text: b.Label, CallbackData: b.Command.Encode()})
		}
		kb.InlineKeyboard = append(kb.InlineKeyboard, btns)
	}
	return kb
}

func (c *Client) SendText(ctx context.Context, id int64, text string, menu *notify.Menu) error {
	c.throttle(id)
	payload := map[string]any{"chat_id": id, "text": text}
	if kb := keyboard(menu); kb != nil {
		payload["reply_markup"] = kb
	}
	return c.call(ctx, "sendMessage", payload, nil)
}

func (c *Client) SendPhoto(ctx context.Context, id int64, photo notify.Photo, menu *notify.Menu) error {
	c.throttle(id)
	payload := map[string]any{"chat_id": id, "photo": photo.MediaRef, "caption": photo.Caption}
	if kb := keyboard(menu); kb != nil {
		payload["reply_markup"] = kb
	}
	return c.call(ctx, "sendPhoto", payload, nil)
}

func (c *Client) SendPhotoGroup(ctx context.Context, id int64, photos []notify.Photo) error {
	c.throttle(id)
	media := make([]map[string]any, 0, len(photos))
	for _, p := range photos {
		media = append(media, map[string]any{"type": "photo", "media": p.MediaRef, "caption": p.Caption})
	}
	return c.call(ctx, "sendMediaGroup", map[string]any{"chat_id": id, "media": media}, nil)
}

// EditMenu swaps the inline keyboard of a sent message. A nil menu
// clears it.
func (c *Client) EditMenu(ctx context.Context, handle notify.MessageHandle, menu *notify.Menu) error {
	payload := map[string]any{"chat_id": handle.ChatID, "message_id": handle.MessageID}
	if kb := keyboard(menu); kb != nil {
		payload["reply_markup"] = kb
	} else {
		payload["reply_markup"] = inlineKeyboard{InlineKeyboard: [][]inlineButton{}}
	}
	return c.call(ctx, "editMessageReplyMarkup", payload, nil)
}

type tgUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

type tgChat struct {
	ID int64 `json:"id"`
}

type photoSize struct {
	FileID string `json:"file_id"`
}

type tgMessage struct {
	MessageID int64       `json:"message_id"`
	From      *tgUser     `json:"from"`
	Chat      tgChat      `json:"chat"`
	Text      string      `json:"text"`
	Photo     []photoSize `json:"photo"`
}

type callbackQuery struct {
	ID      string     `json:"id"`
	From    tgUser     `json:"from"`
	Message *tgMessage `json:"message"`
	Data    string     `json:"data"`
}

type update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *tgMessage     `json:"message"`
	CallbackQuery *callbackQuery `json:"callback_query"`
}

// Poll runs the long-poll loop until ctx is cancelled. Transient fetch
// errors are logged and retried after a short pause.
func (c *Client) Poll(ctx context.Context, h Handler, timeout time.Duration) error {
	var offset int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var updates []update
		err := c.call(ctx, "getUpdates", map[string]any{
			"offset":  offset,
			"timeout": int(timeout.Seconds()),
		}, &updates)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn().Err(err).Msg("getUpdates failed")
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			c.dispatch(ctx, h, u)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, h Handler, u update) {
	switch {
	case u.CallbackQuery != nil:
		cb := u.CallbackQuery
		// Ack first so the client's spinner stops even if handling fails.
		if err := c.call(ctx, "answerCallbackQuery", map[string]any{"callback_query_id": cb.ID}, nil); err != nil {
			c.log.Warn().Err(err).Msg("answerCallbackQuery failed")
		}
		var handle notify.MessageHandle
		if cb.Message != nil {
			handle = notify.MessageHandle{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.MessageID}
		}
		h.HandleCallback(ctx, bot.CallbackAction{
			Identity:  cb.From.ID,
			Username:  cb.From.Username,
			FirstName: cb.From.FirstName,
			Data:      cb.Data,
			Message:   handle,
		})
	case u.Message != nil && u.Message.From != nil:
		m := u.Message
		if len(m.Photo) > 0 {
			// The last size is the largest.
			h.HandlePhoto(ctx, bot.PhotoMessage{
				Identity:  m.From.ID,
				Username:  m.From.Username,
				FirstName: m.From.FirstName,
				MediaRef:  m.Photo[len(m.Photo)-1].FileID,
			})
			return
		}
		if m.Text != "" {
			h.HandleText(ctx, bot.TextMessage{
				Identity:  m.From.ID,
				Username:  m.From.Username,
				FirstName: m.From.FirstName,
				Text:      m.Text,
			})
		}
	}
}
