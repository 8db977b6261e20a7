package models

// EventKind это вид поддерживаемого входящего события.
type EventKind string

const (
	KindChannelPost       EventKind = "channel_post"
	KindEditedChannelPost EventKind = "edited_channel_post"
	KindMessageReaction   EventKind = "message_reaction"
	KindMyChatMember      EventKind = "my_chat_member"
	KindChatMember        EventKind = "chat_member"
	KindCallbackQuery     EventKind = "callback_query"
)

// Update это одно обновление Bot API. Одно обновление может нести
// несколько видов событий одновременно.
type Update struct {
	UpdateID          int64                   `json:"update_id"`
	ChannelPost       *Message                `json:"channel_post,omitempty"`
	EditedChannelPost *Message                `json:"edited_channel_post,omitempty"`
	MessageReaction   *MessageReactionUpdated `json:"message_reaction,omitempty"`
	MyChatMember      *ChatMemberUpdated      `json:"my_chat_member,omitempty"`
	ChatMember        *ChatMemberUpdated      `json:"chat_member,omitempty"`
	CallbackQuery     *CallbackQuery          `json:"callback_query,omitempty"`
}

// Kinds возвращает виды событий обновления в фиксированном порядке.
func (u *Update) Kinds() []EventKind {
	var kinds []EventKind
	if u.ChannelPost != nil {
		kinds = append(kinds, KindChannelPost)
	}
	if u.EditedChannelPost != nil {
		kinds = append(kinds, KindEditedChannelPost)
	}
	if u.MessageReaction != nil {
		kinds = append(kinds, KindMessageReaction)
	}
	if u.MyChatMember != nil {
		kinds = append(kinds, KindMyChatMember)
	}
	if u.ChatMember != nil {
		kinds = append(kinds, KindChatMember)
	}
	if u.CallbackQuery != nil {
		kinds = append(kinds, KindCallbackQuery)
	}
	return kinds
}

type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

type User struct {
	ID           int64  `json:"id"`
	IsBot        bool   `json:"is_bot"`
	Username     string `json:"username,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	IsPremium    bool   `json:"is_premium,omitempty"`
}

// Message это пост канала. Views и Forwards приходят только
// в channel_post/edited_channel_post и могут отсутствовать.
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	EditDate  int64  `json:"edit_date,omitempty"`
	Text      string `json:"text,omitempty"`
	Views     *int64 `json:"views,omitempty"`
	Forwards  *int64 `json:"forwards,omitempty"`
}

// ReactionType поддерживает emoji и custom_emoji реакции.
type ReactionType struct {
	Type          string `json:"type"`
	Emoji         string `json:"emoji,omitempty"`
	CustomEmojiID string `json:"custom_emoji_id,omitempty"`
}

// Key возвращает ключ реакции для счётчика.
func (r ReactionType) Key() string {
	if r.Type == "custom_emoji" {
		return "custom:" + r.CustomEmojiID
	}
	return r.Emoji
}

// MessageReactionUpdated это смена набора реакций на сообщении.
type MessageReactionUpdated struct {
	Chat        Chat           `json:"chat"`
	MessageID   int64          `json:"message_id"`
	User        *User          `json:"user,omitempty"`
	Date        int64          `json:"date"`
	OldReaction []ReactionType `json:"old_reaction"`
	NewReaction []ReactionType `json:"new_reaction"`
}

type ChatMember struct {
	Status string `json:"status"`
	User   User   `json:"user"`
}

type ChatInviteLink struct {
	InviteLink string `json:"invite_link"`
	Name       string `json:"name,omitempty"`
}

// ChatMemberUpdated это переход статуса участника канала.
type ChatMemberUpdated struct {
	Chat          Chat            `json:"chat"`
	From          User            `json:"from"`
	Date          int64           `json:"date"`
	OldChatMember ChatMember      `json:"old_chat_member"`
	NewChatMember ChatMember      `json:"new_chat_member"`
	InviteLink    *ChatInviteLink `json:"invite_link,omitempty"`
}

// CallbackQuery это нажатие inline-кнопки под постом.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}
