package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const apiBase = "https://api.telegram.org"

// Client это тонкий HTTP-клиент Telegram Bot API.
// Токен бота передаётся в каждый вызов: платформа обслуживает много каналов,
// у каждого свой бот.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Chat представляет информацию о чате/канале
type Chat struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Username    string `json:"username"`
	Description string `json:"description,omitempty"`
}

// User представляет пользователя или бота
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// ChatMemberInfo представляет статус участника чата
type ChatMemberInfo struct {
	Status          string `json:"status"`
	CanPostMessages *bool  `json:"can_post_messages,omitempty"`
	CanInviteUsers  bool   `json:"can_invite_users,omitempty"`
}

// ChatInviteLink представляет пригласительную ссылку канала
type ChatInviteLink struct {
	InviteLink         string `json:"invite_link"`
	Name               string `json:"name,omitempty"`
	MemberLimit        int    `json:"member_limit,omitempty"`
	ExpireDate         int64  `json:"expire_date,omitempty"`
	CreatesJoinRequest bool   `json:"creates_join_request,omitempty"`
	IsRevoked          bool   `json:"is_revoked,omitempty"`
}

// WebhookInfo представляет текущее состояние webhook
type WebhookInfo struct {
	URL                string `json:"url"`
	PendingUpdateCount int    `json:"pending_update_count"`
	LastErrorMessage   string `json:"last_error_message,omitempty"`
}

// InviteLinkParams параметры создания пригласительной ссылки
type InviteLinkParams struct {
	Name               string `json:"name,omitempty"`
	MemberLimit        int    `json:"member_limit,omitempty"`
	ExpireDate         int64  `json:"expire_date,omitempty"`
	CreatesJoinRequest bool   `json:"creates_join_request"`
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    apiBase,
	}
}

// NewClientWithBase используется в тестах для подмены API-сервера.
func NewClientWithBase(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

// GetMe проверяет токен бота и возвращает его описание.
func (c *Client) GetMe(ctx context.Context, token string) (*User, error) {
	var result User
	if err := c.makeRequest(ctx, token, "getMe", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetChat возвращает информацию о канале.
func (c *Client) GetChat(ctx context.Context, token, chatID string) (*Chat, error) {
	var result Chat
	params := map[string]interface{}{"chat_id": chatID}
	if err := c.makeRequest(ctx, token, "getChat", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetChatMember возвращает статус участника канала.
func (c *Client) GetChatMember(ctx context.Context, token, chatID string, userID int64) (*ChatMemberInfo, error) {
	var result ChatMemberInfo
	params := map[string]interface{}{"chat_id": chatID, "user_id": userID}
	if err := c.makeRequest(ctx, token, "getChatMember", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetChatMemberCount возвращает число подписчиков канала.
func (c *Client) GetChatMemberCount(ctx context.Context, token, chatID string) (int64, error) {
	var result int64
	params := map[string]interface{}{"chat_id": chatID}
	if err := c.makeRequest(ctx, token, "getChatMemberCount", params, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// SetWebhook регистрирует webhook с секретом и списком типов обновлений.
func (c *Client) SetWebhook(ctx context.Context, token, webhookURL, secretToken string, allowedUpdates []string) error {
	params := map[string]interface{}{
		"url":             webhookURL,
		"secret_token":    secretToken,
		"allowed_updates": allowedUpdates,
	}
	var result bool
	return c.makeRequest(ctx, token, "setWebhook", params, &result)
}

// DeleteWebhook удаляет webhook.
func (c *Client) DeleteWebhook(ctx context.Context, token string) error {
	var result bool
	return c.makeRequest(ctx, token, "deleteWebhook", nil, &result)
}

// GetWebhookInfo возвращает текущее состояние webhook.
func (c *Client) GetWebhookInfo(ctx context.Context, token string) (*WebhookInfo, error) {
	var result WebhookInfo
	if err := c.makeRequest(ctx, token, "getWebhookInfo", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateChatInviteLink создаёт пригласительную ссылку канала.
func (c *Client) CreateChatInviteLink(ctx context.Context, token, chatID string, p InviteLinkParams) (*ChatInviteLink, error) {
	params := map[string]interface{}{
		"chat_id":              chatID,
		"creates_join_request": p.CreatesJoinRequest,
	}
	if p.Name != "" {
		params["name"] = p.Name
	}
	if p.MemberLimit > 0 {
		params["member_limit"] = p.MemberLimit
	}
	if p.ExpireDate > 0 {
		params["expire_date"] = p.ExpireDate
	}
	var result ChatInviteLink
	if err := c.makeRequest(ctx, token, "createChatInviteLink", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RevokeChatInviteLink отзывает пригласительную ссылку.
func (c *Client) RevokeChatInviteLink(ctx context.Context, token, chatID, inviteLink string) (*ChatInviteLink, error) {
	params := map[string]interface{}{"chat_id": chatID, "invite_link": inviteLink}
	var result ChatInviteLink
	if err := c.makeRequest(ctx, token, "revokeChatInviteLink", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) makeRequest(ctx context.Context, token, method string, params interface{}, result interface{}) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, token, method)

	var body io.Reader
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal %s params: %w", method, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s request: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Ok          bool            `json:"ok"`
		Description string          `json:"description,omitempty"`
		Result      json.RawMessage `json:"result,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !envelope.Ok {
		return fmt.Errorf("telegram API error on %s: %s", method, envelope.Description)
	}
	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}
