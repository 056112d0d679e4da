package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/pkg/auth"
	"github.com/nao1215/storefront/pkg/middleware"
)

// Access はルートに必要な認可の種類を表す。
type Access int

const (
	// AccessPublic は認証不要のルート。
	AccessPublic Access = iota
	// AccessToken はトークン検証のみを行うルート。
	AccessToken
	// AccessRole はトークン検証とロール検証を行うルート。
	AccessRole
)

// String はAccessの名前を返す。
func (a Access) String() string {
	switch a {
	case AccessToken:
		return "token"
	case AccessRole:
		return "role"
	default:
		return "public"
	}
}

// Binding はルートと必要な認可の組。起動時に作成され、以降は変更されない。
type Binding struct {
	// Method はHTTPメソッド。
	Method string
	// Path はルートのパス。
	Path string
	// Access は必要な認可の種類。
	Access Access
	// Roles はAccessRoleの場合に必要なロール（いずれか1つ）。
	Roles []auth.Role
}

// scopeKind はAPI系統の種類。
type scopeKind int

const (
	scopeCustomer scopeKind = iota
	scopeAdmin
)

// scope はAPI系統（パス接頭辞と必要なロール）を表す。
type scope struct {
	kind   scopeKind
	prefix string
	roles  []auth.Role
}

// scopes は顧客向けと管理者向けの2系統。
var scopes = []scope{
	{kind: scopeCustomer, prefix: "/cust-api", roles: []auth.Role{auth.RoleCustomer}},
	{kind: scopeAdmin, prefix: "/adm-api", roles: []auth.Role{auth.RoleAdmin}},
}

// route は1つのルート定義。pathはリソース系統からの相対パス。
type route struct {
	method  string
	path    string
	handler gin.HandlerFunc
}

// resourceFamily はAPI系統ごとに同じ形で公開されるリソースの集まり。
type resourceFamily struct {
	// name はパスの一部になるリソース名。
	name string
	// routes は系統に応じたルート定義を返す。
	routes func(s *Server, kind scopeKind) []route
}

// families は両系統で公開するリソース。
var families = []resourceFamily{
	{name: "products", routes: (*Server).productRoutes},
	{name: "users", routes: (*Server).userRoutes},
	{name: "carts", routes: (*Server).cartRoutes},
	{name: "orders", routes: (*Server).orderRoutes},
}

// setupRoutes はAPIルーティングを設定する。
// ゲートはルートグループ単位でのみ付与し、グローバルなミドルウェアには含めない。
func (s *Server) setupRoutes() error {
	verify := middleware.VerifyToken(s.tokens, s.revocations, s.cfg.Auth.RevocationTimeout)

	// 認証（公開）
	s.bind(s.router.Group("/api/auth"), "/api/auth", AccessPublic, nil, []route{
		{http.MethodPost, "/register", s.handleRegister()},
		{http.MethodPost, "/login", s.handleLogin()},
		{http.MethodGet, "/refresh", s.handleRefresh()},
		{http.MethodPost, "/logout", s.handleLogout()},
	})

	// 商品表示（公開）
	s.bind(s.router.Group("/api/products-display"), "/api/products-display", AccessPublic, nil, []route{
		{http.MethodGet, "", s.handleListProductsDisplay()},
		{http.MethodGet, "/:productId", s.handleGetProductDisplay()},
	})

	// 自分自身の情報（トークンのみ）
	s.bind(s.router.Group("/api", verify), "/api", AccessToken, nil, []route{
		{http.MethodGet, "/get-me", s.handleGetMe()},
	})
	s.guard("/api/get-me", verify)

	// 顧客向け・管理者向けの2系統を同じ定義から組み立てる
	for _, sc := range scopes {
		gates := []gin.HandlerFunc{verify, middleware.RequireRoles(sc.roles...)}
		s.guard(sc.prefix, gates...)
		for _, fam := range families {
			prefix := sc.prefix + "/" + fam.name
			s.guard(prefix, gates...)
			s.bind(s.router.Group(prefix, gates...), prefix, AccessRole, sc.roles, fam.routes(s, sc.kind))
		}
	}

	// ヘルスチェック（公開）
	s.bind(s.router.Group(""), "", AccessPublic, nil, []route{
		{http.MethodGet, "/health", s.handleHealth()},
	})

	if s.cfg.IsProduction() {
		if err := s.setupFrontend(); err != nil {
			return err
		}
	}
	s.router.NoRoute(s.noRoute())
	return nil
}

// prefixGate は保護されたパス接頭辞とそのゲート。
// 登録されていないパスやメソッドへのリクエストにも同じゲートを適用するために使う。
type prefixGate struct {
	prefix   string
	handlers []gin.HandlerFunc
}

// guard は接頭辞にゲートを記録する。
func (s *Server) guard(prefix string, handlers ...gin.HandlerFunc) {
	s.gates = append(s.gates, prefixGate{prefix: prefix, handlers: handlers})
}

// gateFor はパスに一致する最も長い接頭辞のゲートを返す。一致しなければfalse。
func (s *Server) gateFor(p string) (prefixGate, bool) {
	var (
		best  prefixGate
		found bool
	)
	for _, g := range s.gates {
		if p != g.prefix && !strings.HasPrefix(p, g.prefix+"/") {
			continue
		}
		if !found || len(g.prefix) > len(best.prefix) {
			best, found = g, true
		}
	}
	return best, found
}

// bind はルートをグループに登録し、一覧に記録する。
func (s *Server) bind(group *gin.RouterGroup, prefix string, access Access, roles []auth.Role, routes []route) {
	for _, r := range routes {
		group.Handle(r.method, r.path, r.handler)

		bound := make([]auth.Role, len(roles))
		copy(bound, roles)
		s.bindings = append(s.bindings, Binding{
			Method: r.method,
			Path:   prefix + r.path,
			Access: access,
			Roles:  bound,
		})
	}
}

// handleHealth はヘルスチェックのハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.ErrorContext(ctx, "データベースに接続できません", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": "storefront"})
			return
		}

		pingCtx, cancel := context.WithTimeout(ctx, s.cfg.Auth.RevocationTimeout)
		defer cancel()
		if err := s.revocations.Ping(pingCtx); err != nil {
			s.logger.ErrorContext(ctx, "トークン失効ストアに接続できません", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": "storefront"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "storefront"})
	}
}
