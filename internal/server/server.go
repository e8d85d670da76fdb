package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/EduTebar97/journeest-app/internal/config"
	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
	"github.com/EduTebar97/journeest-app/internal/infrastructure/llm"
	"github.com/EduTebar97/journeest-app/internal/infrastructure/mail"
	mongodoc "github.com/EduTebar97/journeest-app/internal/infrastructure/mongo"
	adminhttp "github.com/EduTebar97/journeest-app/internal/interfaces/http/admin"
	commonhttp "github.com/EduTebar97/journeest-app/internal/interfaces/http/common"
	publichttp "github.com/EduTebar97/journeest-app/internal/interfaces/http/public"
)

// Server は HTTP サーバーとレポートパイプラインのライフサイクルを管理するコンポジションルート。
// アプリケーションサービスをルータとワーカーへ接続する責務だけを持つ。
type Server struct {
	logger             *log.Logger
	client             *mongo.Client
	database           *mongo.Database
	location           *time.Location
	jwtConfigs         []config.JWTConfig
	jwtAudience        string
	addr               string
	allowedOrigins     []string
	maxAttachmentBytes int64
	reportTimeout      time.Duration
	recoveryInterval   time.Duration

	formService       *application.FormService
	adminService      *application.AdminService
	invitationService *application.InvitationService
	attachmentService *application.AttachmentService
	pipeline          *application.ReportPipeline
	dispatcher        *application.Dispatcher
	areaWatcher       *mongodoc.AreaWatcher
	adminHandler      *adminhttp.Handler
}

type authenticatedUser = commonhttp.AuthenticatedUser

// invitationDrainTimeout bounds one invitation batch and the wait for it on shutdown.
const invitationDrainTimeout = time.Minute

// Run はパイプラインのワーカーと HTTP サーバーを起動し、停止シグナルまでブロックする。
func (s *Server) Run() error {
	pipelineCtx, stopPipeline := context.WithCancel(context.Background())
	defer stopPipeline()

	s.dispatcher.Start(pipelineCtx)
	// 取りこぼした完了イベントは起動直後と定期的な回収で拾う。
	if s.pipeline != nil && s.recoveryInterval > 0 {
		go s.pipeline.RunRecovery(pipelineCtx, s.recoveryInterval)
	}
	if s.areaWatcher != nil {
		go func() {
			if err := s.areaWatcher.Run(pipelineCtx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Printf("領域の change stream 監視が停止しました: %v", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Printf("HTTP サーバー起動: http://%s", s.addr)
		errChan <- httpServer.ListenAndServe()
	}()

	waitForShutdown(httpServer, errChan, s, stopPipeline)
	return nil
}

func (s *Server) routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(withCORS(s.allowedOrigins))

	router.Get("/healthz", s.healthHandler())

	publicHandler := publichttp.NewHandler(publichttp.Config{
		Logger:             s.logger,
		Forms:              s.formService,
		Attachments:        s.attachmentService,
		MaxAttachmentBytes: s.maxAttachmentBytes,
	})
	publicHandler.Register(router)

	router.Route("/admin", func(r chi.Router) {
		r.Use(s.authMiddleware)
		s.adminHandler.Register(r)
	})
	return router
}

// normaliseBaseURL は入力文字列をトリムして末尾スラッシュを削除したURLを返す。
func normaliseBaseURL(input string) string {
	trimmed := strings.TrimSpace(input)
	return strings.TrimRight(trimmed, "/")
}

// withCORS は許可されたオリジン情報をもとに CORS ヘッダーを付与するミドルウェアを返す。
func withCORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	allowAll := false
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || (!allowAll && len(allowed) > 0 && !originAllowed(origin, allowed)) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
			w.Header().Set("Access-Control-Max-Age", "300")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// originAllowed は指定された Origin が許可リストに含まれるか判定する。
func originAllowed(origin string, allowed map[string]struct{}) bool {
	if len(allowed) == 0 {
		return true
	}
	_, ok := allowed[origin]
	return ok
}

// healthHandler は MongoDB への疎通確認を行い、監視系からのヘルスチェック要求に応える。
func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}

		s.writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().In(s.location).Format(time.RFC3339),
		})
	}
}

// authMiddleware は Authorization ヘッダーから JWT を検証し、認証済みユーザーをコンテキストへ詰める。
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
		if authHeader == "" {
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authorization ヘッダーがありません"})
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Bearer トークンを指定してください"})
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
		if tokenString == "" {
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "アクセストークンが空です"})
			return
		}

		claims, err := s.parseAuthToken(tokenString)
		if err != nil {
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
			return
		}

		user := authenticatedUser{
			ID:        claims.Subject,
			Name:      claims.Name,
			Username:  claims.PreferredUsername,
			Role:      claims.Role,
			CompanyID: claims.CompanyID,
		}

		ctx := commonhttp.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// parseAuthToken は複数の JWT 設定を順番に試し、署名検証と Issuer/Audience の整合性を確認する。
// いずれの設定にも一致しない場合は認証エラーを返す。
func (s *Server) parseAuthToken(tokenString string) (*authClaims, error) {
	if len(s.jwtConfigs) == 0 {
		return nil, fmt.Errorf("認証設定が構成されていません")
	}

	for _, cfg := range s.jwtConfigs {
		claims := &authClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
			}
			return cfg.Secret, nil
		}, jwt.WithLeeway(30*time.Second))

		if err != nil || !token.Valid {
			continue
		}

		if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
			continue
		}
		if claims.Subject == "" {
			continue
		}
		if _, ok := application.ParseRole(claims.Role); !ok {
			continue
		}
		if s.jwtAudience != "" && !contains(claims.Audience, s.jwtAudience) {
			continue
		}

		return claims, nil
	}

	return nil, fmt.Errorf("アクセストークンが無効です")
}

// contains は Audience 等の検証で利用する単純な包含チェック。
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

type authClaims struct {
	jwt.RegisteredClaims
	Name              string `json:"name,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Role              string `json:"role"`
	CompanyID         string `json:"companyId,omitempty"`
}

// writeJSON は JSON レスポンスの共通書き込み処理。
func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("JSON エンコードに失敗: %v", err)
	}
}

// shutdown はキューに残った領域イベントと送信中の招待メールを処理し終えてから MongoDB クライアントを切断する。
func (s *Server) shutdown(ctx context.Context, stopPipeline context.CancelFunc) {
	if s.dispatcher != nil {
		s.dispatcher.Stop()
	}
	stopPipeline()

	if s.adminHandler != nil {
		drainCtx, cancel := context.WithTimeout(ctx, invitationDrainTimeout)
		err := s.adminHandler.Drain(drainCtx)
		cancel()
		if err != nil {
			s.logger.Printf("招待メールの送信完了を待てませんでした: %v", err)
		}
	}

	if s.client == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(shutdownCtx); err != nil {
		s.logger.Printf("MongoDB 切断時にエラー: %v", err)
	}
}

// waitForShutdown は ListenAndServe の終了と OS シグナルを監視し、graceful shutdown を実現する。
func waitForShutdown(httpServer *http.Server, errChan <-chan error, srv *Server, stopPipeline context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.logger.Fatalf("サーバーが異常終了: %v", err)
		}
	case sig := <-sigChan:
		srv.logger.Printf("シグナル %s を受信。サーバー停止処理を開始します。", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			srv.logger.Printf("サーバー停止時にエラー: %v", err)
		}
	}

	srv.shutdown(context.Background(), stopPipeline)
}

// New は Config と Mongo クライアントを受け取り、リポジトリ・サービス・パイプラインを組み立てた Server を返す。
func New(cfg config.Config, client *mongo.Client) *Server {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
		cfg.ServerLog.Printf("タイムゾーン %s の読み込みに失敗: %v, UTC を使用します", cfg.Timezone, err)
	}

	database := client.Database(cfg.MongoDatabase)
	names := cfg.Collections

	areas := mongodoc.NewAreaRepository(database, names.Areas)
	companies := mongodoc.NewCompanyRepository(database, names.Companies)
	catalog := mongodoc.NewCatalogRepository(database, mongodoc.CatalogCollections{
		Templates: names.Templates,
		Modules:   names.Modules,
		Prompts:   names.Prompts,
	})
	ledger := mongodoc.NewClaimLedger(database, names.PipelineClaims)
	failures := mongodoc.NewFailedNotificationRepository(database, names.FailedNotifications)
	blobs := mongodoc.NewAttachmentStore(database, names.AttachmentBucket, normaliseBaseURL(cfg.MediaBaseURL))

	generator := llm.NewClient(llm.Config{
		BaseURL: cfg.OpenAIBaseURL,
		APIKey:  cfg.OpenAIKey,
		Model:   cfg.OpenAIModel,
	}, &http.Client{Timeout: cfg.ReportTimeout + 5*time.Second})
	mailer := mail.NewGateway(mail.Config{
		Endpoint: normaliseBaseURL(cfg.MailGatewayURL),
		From:     cfg.MailFrom,
		Timeout:  cfg.MailTimeout,
	})

	pipeline := application.NewReportPipeline(application.PipelineConfig{
		Areas:     areas,
		Companies: companies,
		Catalog:   catalog,
		Ledger:    ledger,
		Generator: generator,
		Timeout:   cfg.ReportTimeout,
		Logger:    cfg.ServerLog,
	})
	dispatcher := application.NewDispatcher(pipeline, cfg.PipelineWorkers, cfg.PipelineQueueSize, cfg.ServerLog)

	srv := &Server{
		logger:             cfg.ServerLog,
		client:             client,
		database:           database,
		location:           loc,
		jwtConfigs:         append([]config.JWTConfig(nil), cfg.JWTConfigs...),
		jwtAudience:        cfg.JWTAudience,
		addr:               cfg.Addr,
		allowedOrigins:     append([]string(nil), cfg.AllowedOrigins...),
		maxAttachmentBytes: cfg.MaxAttachmentBytes,
		reportTimeout:      cfg.ReportTimeout,
		recoveryInterval:   cfg.PipelineRecovery,
		pipeline:           pipeline,
		dispatcher:         dispatcher,
		adminService: application.NewAdminService(application.AdminConfig{
			Companies: companies,
			Areas:     areas,
			Catalog:   catalog,
			Pipeline:  pipeline,
			Logger:    cfg.ServerLog,
		}),
		invitationService:  application.NewInvitationService(mailer, failures, areas, cfg.AppBaseURL, cfg.ServerLog),
		attachmentService:  application.NewAttachmentService(areas, blobs),
	}
	srv.adminHandler = adminhttp.NewHandler(adminhttp.Config{
		Logger:            cfg.ServerLog,
		Service:           srv.adminService,
		Inviter:           srv.invitationService,
		InvitationTimeout: invitationDrainTimeout,
		ReportTimeout:     cfg.ReportTimeout + 10*time.Second,
	})

	// change stream を使う場合、状態遷移はすべて DB 側から観測するのでフォームからは直接流さない。
	var publisher application.ChangePublisher = dispatcher
	if cfg.AreaChangeStream {
		publisher = nil
		srv.areaWatcher = mongodoc.NewAreaWatcher(database, names.Areas, dispatcher, cfg.ServerLog)
	}
	srv.formService = application.NewFormService(areas, catalog, publisher, cfg.ServerLog)

	return srv
}
