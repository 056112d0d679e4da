// Package auth はロール、認証済みID（Identity）、JWTの発行・検証、
// パスワードハッシュを提供する。
//
// ロールは階層を持たないタグであり、認可は集合の共通部分で判定する。
// Identityはリクエストごとにトークンから生成され、永続化されない。
package auth
