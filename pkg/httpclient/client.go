package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout はNewに0を渡した場合のタイムアウト。
const DefaultTimeout = 10 * time.Second

// headerRequestID はリクエストIDを伝播するヘッダー。
const headerRequestID = "X-Request-ID"

// Client はストアフロントAPI用のHTTPクライアント。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先サーバーのベースURL。末尾のスラッシュは除く。
	baseURL string
	// token はAuthorizationヘッダーに付けるアクセストークン。空なら付けない。
	token string
}

// New は新しいHTTPクライアントを生成する。
// baseURLには接続先のベースURL（例: "http://localhost:8080"）を指定する。
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// WithToken はアクセストークンを付けて送信するクライアントのコピーを返す。
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// APIError はサーバーが返したエラーエンベロープ。
type APIError struct {
	// Status はHTTPステータスコード。
	Status int `json:"status"`
	// Message はサーバーが返したメッセージ。
	Message string `json:"message"`
	// Code は機械判別用の識別子。
	Code string `json:"code"`
	// RequestID はサーバー側のリクエストID。
	RequestID string `json:"request_id,omitempty"`
}

// Error はエラーメッセージを返す。
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTPエラー: status=%d", e.Status)
	}
	return fmt.Sprintf("HTTPエラー: status=%d, code=%s, message=%s", e.Status, e.Code, e.Message)
}

// IsCode はerrがcodeを持つ*APIErrorかを返す。
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// PostJSON は指定パスにJSONボディでPOSTリクエストを送信する。
// レスポンスボディをresultにデシリアライズする。
func (c *Client) PostJSON(ctx context.Context, path string, body any, result any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, result)
}

// GetJSON は指定パスにGETリクエストを送信する。
// レスポンスボディをresultにデシリアライズする。
func (c *Client) GetJSON(ctx context.Context, path string, result any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, result)
}

// doJSON はJSON形式のHTTPリクエストを実行する共通処理。
func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if requestID, ok := ctx.Value(contextKeyRequestID).(string); ok {
		req.Header.Set(headerRequestID, requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
		}
	}
	return nil
}

// decodeError はエラーレスポンスを*APIErrorに変換する。
// エンベロープとして読めない場合もステータスだけは保持する。
func decodeError(resp *http.Response) error {
	apiErr := &APIError{}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(respBody, apiErr); err != nil {
		apiErr.Message = strings.TrimSpace(string(respBody))
	}
	apiErr.Status = resp.StatusCode
	if apiErr.RequestID == "" {
		apiErr.RequestID = resp.Header.Get(headerRequestID)
	}
	return apiErr
}

// contextKey はコンテキストキーの型。
type contextKey string

// contextKeyRequestID はコンテキストにリクエストIDを格納するためのキー。
const contextKeyRequestID contextKey = "request_id"

// WithRequestID はコンテキストにリクエストIDを設定する。
// 設定したIDはX-Request-IDヘッダーとして送信され、サーバーのログと突き合わせられる。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}
