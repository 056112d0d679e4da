// Package server はストアフロントAPIのHTTPサーバーを提供する。
//
// 認可パイプライン（pkg/middleware）をルートごとに組み立て、
// 顧客向け（/cust-api）と管理者向け（/adm-api）の2系統のAPI、公開API、
// 本番環境でのフロントエンド配信を1つのgin.Engineにまとめる。
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/internal/config"
	"github.com/nao1215/storefront/internal/revocation"
	"github.com/nao1215/storefront/internal/store"
	"github.com/nao1215/storefront/pkg/auth"
	"github.com/nao1215/storefront/pkg/middleware"
)

// Deps はサーバーが利用する外部依存。起動時に構築して渡す。
type Deps struct {
	// Store は永続化層。
	Store *store.Store
	// Tokens はトークンの発行・検証を行う。
	Tokens *auth.TokenService
	// Revocations は失効済みトークンの保存先。
	Revocations revocation.Store
	// Passwords はパスワードのハッシュ化と照合を行う。
	Passwords auth.PasswordHasher
	// Logger はロガー。nilの場合はslogのデフォルトロガーを使う。
	Logger *slog.Logger
}

// Server はストアフロントAPIのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg は起動時に読み込んだ設定。変更しない。
	cfg *config.Config
	// store は永続化層。
	store *store.Store
	// tokens はトークンサービス。
	tokens *auth.TokenService
	// revocations は失効ストア。
	revocations revocation.Store
	// passwords はパスワードハッシュ。
	passwords auth.PasswordHasher
	// logger はロガー。
	logger *slog.Logger
	// bindings は登録済みのルートと必要な認可の一覧。起動後は変更しない。
	bindings []Binding
	// gates は保護された接頭辞ごとのゲート。一致しないリクエストにも適用する。
	gates []prefixGate
	// frontendDir は配信するフロントエンドのディレクトリ。本番環境以外では空。
	frontendDir string
}

// New は新しいサーバーを生成し、ルーティングを設定する。
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("設定がありません")
	}
	if deps.Store == nil || deps.Tokens == nil || deps.Revocations == nil || deps.Passwords == nil {
		return nil, errors.New("サーバーの依存が不足しています")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.HandleMethodNotAllowed = false
	// リバースプロキシの背後に置く場合は明示的に設定する
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("信頼するプロキシの設定に失敗: %w", err)
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Credentials(cfg.CORS.AllowedOrigins))
	router.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Permissive:     cfg.CORS.Permissive,
	}))
	router.Use(middleware.JSONBody(cfg.Server.MaxBodyBytes))

	s := &Server{
		router:      router,
		cfg:         cfg,
		store:       deps.Store,
		tokens:      deps.Tokens,
		revocations: deps.Revocations,
		passwords:   deps.Passwords,
		logger:      logger,
	}
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler はhttp.Handlerとしてのルーターを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Bindings は登録済みルートの一覧のコピーを返す。
func (s *Server) Bindings() []Binding {
	out := make([]Binding, len(s.bindings))
	copy(out, s.bindings)
	return out
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルシャットダウンする。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTPサーバーを起動します", "addr", srv.Addr, "env", s.cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("HTTPサーバーを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("グレースフルシャットダウンに失敗: %w", err)
	}
	return nil
}
