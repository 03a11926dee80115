package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"Tgviews/services"
	"Tgviews/views"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

func (t *TgBot) SendMessage(ctx context.Context, chatID int64, text string, keyboard views.Keyboard, parseMode string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseMode
	if markup := inlineKeyboard(keyboard); markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := t.api.Send(msg)
	if err != nil {
		return 0, classify(err)
	}
	return sent.MessageID, nil
}

func (t *TgBot) EditMessage(ctx context.Context, chatID int64, messageID int, text string, keyboard views.Keyboard, parseMode string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = parseMode
	edit.ReplyMarkup = inlineKeyboard(keyboard)
	_, err := t.api.Send(edit)
	return classify(err)
}

func (t *TgBot) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.api.DeleteMessage(tgbotapi.NewDeleteMessage(chatID, messageID))
	return classify(err)
}

func (t *TgBot) AnswerCallback(ctx context.Context, callbackID, text string, showAlert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.api.AnswerCallbackQuery(tgbotapi.CallbackConfig{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       showAlert,
	})
	return classify(err)
}

func (t *TgBot) AnswerInline(ctx context.Context, queryID string, results []views.InlineResult, nextOffset string, cacheTime int, personal bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	articles := make([]interface{}, 0, len(results))
	for i, r := range results {
		id := r.ID
		if id == "" {
			id = strconv.Itoa(i)
		}
		article := tgbotapi.NewInlineQueryResultArticle(id, r.Title, r.Text)
		article.Description = r.Description
		articles = append(articles, article)
	}
	_, err := t.api.AnswerInlineQuery(tgbotapi.InlineConfig{
		InlineQueryID: queryID,
		Results:       articles,
		CacheTime:     cacheTime,
		IsPersonal:    personal,
		NextOffset:    nextOffset,
	})
	return classify(err)
}

func (t *TgBot) ChatMember(ctx context.Context, chatID, userID int64) (services.Member, error) {
	if err := ctx.Err(); err != nil {
		return services.Member{}, err
	}
	// the library's ChatMember type has no is_member field, restricted members need it
	resp, err := t.api.MakeRequest("getChatMember", url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"user_id": {strconv.FormatInt(userID, 10)},
	})
	if err != nil {
		return services.Member{}, classify(err)
	}
	return decodeMember(resp.Result)
}

type chatMember struct {
	Status   string `json:"status"`
	IsMember bool   `json:"is_member"`
}

func decodeMember(raw json.RawMessage) (services.Member, error) {
	var member chatMember
	if err := json.Unmarshal(raw, &member); err != nil {
		return services.Member{}, fmt.Errorf("decoding chat member: %w", err)
	}
	return services.Member{Status: member.Status, IsMember: member.IsMember}, nil
}

func (t *TgBot) Chat(ctx context.Context, chatID int64) (services.Chat, error) {
	if err := ctx.Err(); err != nil {
		return services.Chat{}, err
	}
	chat, err := t.api.GetChat(tgbotapi.ChatConfig{ChatID: chatID})
	if err != nil {
		return services.Chat{}, classify(err)
	}
	return services.Chat{ID: chat.ID, Title: chat.Title, UserName: chat.UserName}, nil
}
