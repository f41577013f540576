package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"classlink/api"
	"classlink/chat"
	"classlink/config"
	"classlink/crypto"
	"classlink/notify"
	"classlink/push"
	"classlink/router"
	"classlink/session"
	"classlink/socket"
	"classlink/storage"
)

func main() {
	cfg, cfgPath, err := config.LoadOrCreate()
	if err != nil {
		log.Fatalf("startup failed while loading config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("startup failed while creating logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dataDir := filepath.Dir(cfgPath)
	store, dbPath, err := storage.Open(dataDir)
	if err != nil {
		log.Fatalf("startup failed while opening database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("database close error: %v", err)
		}
	}()

	// The expiry hook reaches components wired further down.
	var onAuthExpired func()
	sessionManager := session.NewManager(store, session.Options{
		Logger: logger,
		OnAuthExpired: func() {
			if onAuthExpired != nil {
				onAuthExpired()
			}
		},
	})
	if err := sessionManager.Restore(); err != nil {
		log.Fatalf("startup failed while restoring session: %v", err)
	}

	apiClient := api.New(cfg.ServerBaseURL, api.Options{
		Token:         sessionManager.Token,
		OnAuthExpired: sessionManager.HandleAuthExpired,
		Logger:        logger,
	})

	console := notify.NewConsole()

	sender := &lazySender{}
	chatStore := chat.NewStore(apiClient, chat.Options{
		Identity: sessionManager.Current,
		Sender:   sender,
		Logger:   logger,
	})

	presenter := notify.NewPresenter(console, console, console, notify.Options{
		ActivePeer:  chatStore.ActivePeer,
		ContactName: contactNameLookup(chatStore),
		Logger:      logger,
	})

	appRouter := router.NewRouter(router.Options{
		Identity:      sessionManager.Current,
		Conversations: chatStore,
		Notifier:      presenter,
		RefreshIdentity: func(ctx context.Context) error {
			return sessionManager.RefreshIdentity(ctx, apiClient)
		},
		Logger: logger,
	})

	socketManager := socket.NewManager(cfg.SocketURL, socket.Options{
		Identity:       sessionManager.Current,
		Handler:        appRouter,
		ReconnectDelay: time.Duration(cfg.ReconnectDelaySeconds) * time.Second,
		Logger:         logger,
	})
	sender.set(socketManager)

	onAuthExpired = func() {
		socketManager.Disconnect()
		presenter.Activate("/login")
	}

	var pushManager *push.Manager
	worker, err := push.NewWorker(cfg.PushListenAddr, push.WorkerOptions{
		Keys: func() *crypto.SubscriptionKeys {
			if pushManager == nil {
				return nil
			}
			return pushManager.Keys()
		},
		Present: presenter.Push,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("startup failed while binding push listener: %v", err)
	}
	pushManager = push.NewManager(apiClient, store, push.Options{
		Endpoint: worker.Endpoint,
		Logger:   logger,
	})
	go func() {
		if err := worker.Start(); err != nil {
			logger.Warn("push worker stopped", zap.Error(err))
		}
	}()
	defer func() { _ = worker.Close() }()

	fmt.Printf("Server:          %s\n", cfg.ServerBaseURL)
	fmt.Printf("Socket:          %s\n", cfg.SocketURL)
	fmt.Printf("Push Endpoint:   %s\n", worker.Endpoint())
	fmt.Printf("AI Stream:       %s\n", apiClient.AIStreamURL())
	fmt.Printf("Config File:     %s\n", cfgPath)
	fmt.Printf("Database File:   %s\n", dbPath)

	if identity, ok := sessionManager.Current(); ok {
		fmt.Printf("Logged in as:    %s (#%d)\n", identity.DisplayName, identity.UserID)

		startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := chatStore.LoadContacts(startupCtx); err != nil {
			logger.Warn("initial contact load failed", zap.Error(err))
		}
		if presenter.EnsurePermission() {
			if err := pushManager.EnsureSubscription(startupCtx); err != nil &&
				!errors.Is(err, api.ErrAuthExpired) {
				logger.Warn("push registration failed", zap.Error(err))
			}
		}
		cancel()

		socketManager.Connect()
	} else {
		fmt.Println("Logged in as:    (nobody; log in to connect)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Status:          running (press Ctrl+C to stop)")
	<-ctx.Done()
	fmt.Println("Status:          shutting down")
	socketManager.Disconnect()
}

// lazySender defers outbound frames to the socket manager, which is wired
// after the chat store exists.
type lazySender struct {
	mu       sync.Mutex
	delegate chat.Sender
}

func (s *lazySender) set(delegate chat.Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delegate = delegate
}

func (s *lazySender) Send(v any) error {
	s.mu.Lock()
	delegate := s.delegate
	s.mu.Unlock()
	if delegate == nil {
		return socket.ErrNotConnected
	}
	return delegate.Send(v)
}

func contactNameLookup(store *chat.Store) func(int64) string {
	return func(userID int64) string {
		for _, contact := range store.Contacts() {
			if contact.PeerID == userID {
				return contact.DisplayName
			}
		}
		return ""
	}
}
