package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"studybot/internal/pkg/logger"
)

type inlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type keyboardButton struct {
	Text string `json:"text"`
}

type replyKeyboardMarkup struct {
	Keyboard       [][]keyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard"`
}

type replyKeyboardRemove struct {
	RemoveKeyboard bool `json:"remove_keyboard"`
}

type apiResponse struct {
	Ok          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// BotClient is the HTTP implementation of Sender against the Bot API.
type BotClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
	log        logger.ILogger
}

func NewBotClient(token string, log logger.ILogger) *BotClient {
	return &BotClient{
		token:      token,
		baseURL:    "https://api.telegram.org",
		httpClient: &http.Client{},
		log:        log,
	}
}

func markup(kb *Keyboard) interface{} {
	if kb == nil {
		return nil
	}
	if len(kb.Inline) > 0 {
		rows := make([][]inlineKeyboardButton, 0, len(kb.Inline))
		for _, row := range kb.Inline {
			btns := make([]inlineKeyboardButton, 0, len(row))
			for _, b := range row {
				btns = append(btns, inlineKeyboardButton{Text: b.Text, CallbackData: b.Data})
			}
			rows = append(rows, btns)
		}
		return inlineKeyboardMarkup{InlineKeyboard: rows}
	}
	if len(kb.Reply) > 0 {
		rows := make([][]keyboardButton, 0, len(kb.Reply))
		for _, row := range kb.Reply {
			btns := make([]keyboardButton, 0, len(row))
			for _, text := range row {
				btns = append(btns, keyboardButton{Text: text})
			}
			rows = append(rows, btns)
		}
		return replyKeyboardMarkup{Keyboard: rows, ResizeKeyboard: true}
	}
	if kb.RemoveReply {
		return replyKeyboardRemove{RemoveKeyboard: true}
	}
	return nil
}

func (c *BotClient) SendMessage(ctx context.Context, chatID int64, text string, kb *Keyboard) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if m := markup(kb); m != nil {
		payload["reply_markup"] = m
	}
	return c.call(ctx, "sendMessage", payload)
}

func (c *BotClient) EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb *Keyboard) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if m := markup(kb); m != nil {
		payload["reply_markup"] = m
	}
	return c.call(ctx, "editMessageText", payload)
}

func (c *BotClient) ForwardMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) error {
	return c.call(ctx, "forwardMessage", map[string]interface{}{
		"chat_id":      toChatID,
		"from_chat_id": fromChatID,
		"message_id":   messageID,
	})
}

func (c *BotClient) AnswerCallback(ctx context.Context, callbackID, text string) error {
	payload := map[string]interface{}{
		"callback_query_id": callbackID,
	}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", payload)
}

func (c *BotClient) call(ctx context.Context, method string, payload map[string]interface{}) error {
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadJson))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	var parsed apiResponse
	if err := json.Unmarshal(resBody, &parsed); err != nil {
		return fmt.Errorf("%s: unparseable response: %s", method, string(resBody))
	}
	if !parsed.Ok {
		return fmt.Errorf("%s: api error %d: %s", method, parsed.ErrorCode, parsed.Description)
	}
	return nil
}
