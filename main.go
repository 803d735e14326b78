package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PPLink/data/database/mgo/mongoutil"
	"PPLink/global/config"
	"PPLink/logger"
	"PPLink/middleware"
	midsec "PPLink/middleware/security"
	"PPLink/module/assistant"
	assistantservice "PPLink/module/assistant/service"
	"PPLink/module/connection"
	connmodel "PPLink/module/connection/model"
	connservice "PPLink/module/connection/service"
	connstore "PPLink/module/connection/store"
	"PPLink/module/match"
	matchservice "PPLink/module/match/service"
	"PPLink/module/message"
	msgmodel "PPLink/module/message/model"
	msgservice "PPLink/module/message/service"
	msgstore "PPLink/module/message/store"
	"PPLink/module/user"
	usermodel "PPLink/module/user/model"
	userservice "PPLink/module/user/service"
	userstore "PPLink/module/user/store"
	"PPLink/service/chat"
	"PPLink/service/chat/handlers"
	"PPLink/service/llm"
	"PPLink/service/mgo"
	"PPLink/service/natsx"
	"PPLink/service/storage"
	redisx "PPLink/service/storage/redis"
	"PPLink/tools/apiresp"
	"PPLink/tools/ids"
	jwtlib "PPLink/tools/security"
	"PPLink/tools/specialerror"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	logger.Setup(cfg.LogLevel, cfg.LogColor)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ids.SetNodeID(cfg.NodeNum)
	if err := specialerror.AddErrHandler(mgo.TranslateError); err != nil {
		return err
	}

	// 1) Mongo
	mongo := mgo.NewManager()
	if err := mongo.Connect(ctx, &mongoutil.Config{
		Uri:         cfg.Mongo.Uri,
		Database:    cfg.Mongo.Database,
		Username:    cfg.Mongo.Username,
		Password:    cfg.Mongo.Password,
		AuthSource:  cfg.Mongo.AuthSource,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
		MaxRetry:    cfg.Mongo.MaxRetry,
	}); err != nil {
		return err
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongo.Close(cctx)
	}()
	if err := mongo.EnsureIndexes(ctx, usermodel.Indexes(), connmodel.Indexes(), msgmodel.Indexes()); err != nil {
		return err
	}
	db := mongo.GetDB()
	users := userstore.NewStore(db)
	conns := connstore.NewStore(db)
	msgs := msgstore.NewStore(db)

	jwtOpts := jwtlib.Options{Secret: []byte(cfg.JWT.Secret), Alg: cfg.JWT.Alg, TTL: cfg.JWT.TTL}

	// 2) realtime hub; optional Redis mirror and NATS bus
	var connSvc *connservice.Service
	hubOpts := chat.HubOptions{
		NodeID:        cfg.NodeID,
		EffectTimeout: cfg.Socket.EffectTimeout,
		Profiles:      users,
		Unread:        msgs,
		Reads:         msgs,
		Guard: chat.RoomGuardFunc(func(ctx context.Context, principalID, roomID string) (bool, error) {
			return connSvc.CanJoin(ctx, principalID, roomID)
		}),
		Dispatcher: chat.NewDispatcher(),
	}
	handlers.Register(hubOpts.Dispatcher)

	var mirror *storage.PresenceStore
	if cfg.RedisEnabled() {
		rdb, err := redisx.NewClient(ctx, redisx.Config{
			Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB, PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		mirror = storage.NewPresenceStore(rdb, cfg.NodeID, cfg.Redis.PresenceTTL)
		hubOpts.Mirror = mirror
		logger.Info("[Redis] presence mirror enabled", zap.String("addr", cfg.Redis.Addr))
	}
	if cfg.NatsEnabled() {
		nc, err := natsx.NewNatsxClient(natsx.NatsxConfig{
			Servers: cfg.Nats.Servers, Name: cfg.Nats.Name, User: cfg.Nats.User, Password: cfg.Nats.Password,
		})
		if err != nil {
			return err
		}
		defer func() { _ = nc.Close() }()
		hubOpts.Bus = natsx.NewSubjectBus(nc, cfg.Nats.Subject)
		logger.Info("[NATS] presence bus enabled", zap.String("subject", cfg.Nats.Subject))
	}

	hub := chat.NewHub(hubOpts)
	hubDone := make(chan error, 1)
	go func() { hubDone <- hub.Run(ctx) }()

	// 3) services
	var completer llm.Completer
	if cfg.LLMEnabled() {
		oa, err := llm.NewOpenAI(cfg.LLM)
		if err != nil {
			return err
		}
		completer = oa
		logger.Info("[LLM] enabled", zap.String("model", oa.Model()))
	}
	userSvc := userservice.NewService(users, hub, jwtOpts)
	if mirror != nil {
		userSvc.WithCluster(mirror)
	}
	connSvc = connservice.NewService(conns, users, hub)
	msgSvc := msgservice.NewService(msgs, connSvc, hub, hub.Unread())
	matchSvc := matchservice.NewService(users, connSvc, hub, completer)
	assistantSvc := assistantservice.NewService(users, completer)

	// 4) HTTP
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	mids := middleware.NewManager()
	mids.Add(middleware.CORS(cfg.Socket.AllowedOrigins))
	r.Use(middleware.Recovery(), middleware.RequestLog(), mids.Use())

	ws := chat.NewWSServer(hub, chat.TokenAuthenticator{Opts: jwtOpts}, ids.NewNode(cfg.NodeNum), chat.ServerOptions{
		AuthTimeout:    cfg.Socket.AuthTimeout,
		AllowedOrigins: cfg.Socket.AllowedOrigins,
		Client: chat.ClientOptions{
			SendQueue:       cfg.Socket.SendQueue,
			WriteWait:       cfg.Socket.WriteWait,
			PongWait:        cfg.Socket.PongWait,
			MaxMessageBytes: cfg.Socket.MaxMessageBytes,
		},
	})
	r.GET("/ws", ws.HandleWS)
	r.GET("/healthz", func(c *gin.Context) {
		st, err := hub.Stats(c.Request.Context())
		if err != nil {
			apiresp.Fail(c, err)
			return
		}
		apiresp.Success(c, gin.H{"status": "ok", "online": st.Online, "rooms": st.Rooms.Rooms})
	})

	auth := midsec.Middleware(jwtOpts)
	api := r.Group("/api")
	connRoutes := middleware.NewRoutes(api.Group("/connections"), auth)
	user.NewHandler(userSvc).RegisterRoutes(
		middleware.NewRoutes(api.Group("/auth"), auth),
		middleware.NewRoutes(api.Group("/users"), auth))
	connection.NewHandler(connSvc).RegisterRoutes(connRoutes)
	message.NewHandler(msgSvc).RegisterRoutes(connRoutes, middleware.NewRoutes(api.Group("/messages"), auth))
	match.NewHandler(matchSvc).RegisterRoutes(middleware.NewRoutes(api.Group("/matches"), auth))
	assistant.NewHandler(assistantSvc).RegisterRoutes(middleware.NewRoutes(api.Group("/assistant"), auth))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	srvErr := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("node", cfg.NodeID))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-srvErr:
		stop()
		return err
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return <-hubDone
}
