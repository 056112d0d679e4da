// Package httpclient はストアフロントAPIを呼び出すHTTPクライアントを提供する。
//
// 運用コマンド（ヘルスチェックなど）から稼働中のサーバーを呼び出す際に使用する。
// エラーレスポンスは共通のエンベロープ（status, message, code）として読み取り、
// *APIErrorとして返す。
package httpclient
