// Package middleware はGinベースのHTTP APIで使用するリクエスト認可パイプラインを提供する。
//
// パイプラインは次の順に構成する。
//
//	RequestID → RequestLogger → ErrorHandler → Recovery → Credentials → CORS → JSONBody
//	→ （ルート一致）→ VerifyToken → RequireRoles → ハンドラ
//
// ゲートは拒否時にレスポンスを書かず、*apperror.Error をコンテキストに積んで
// 処理を中断する。レスポンスの形を決めるのはErrorHandlerだけである。
package middleware
