package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"chatsync/internal/adapter/api"
	"chatsync/internal/adapter/api/handler"
	apimiddleware "chatsync/internal/adapter/api/middleware"
	"chatsync/internal/adapter/api/router"
	"chatsync/internal/adapter/docstore"
	"chatsync/internal/adapter/repository"
	"chatsync/internal/infrastructure/media"
	"chatsync/internal/infrastructure/websocket"
	"chatsync/internal/usecase"
	"chatsync/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opts []option.ClientOption
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
	} else if cfg.CredentialsPath != "" {
		if _, err := os.Stat(cfg.CredentialsPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", cfg.CredentialsPath)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	uploader, err := media.NewUploader(ctx, cfg.StorageBucket, cfg.CredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Cloud Storage: %v", err)
	}
	defer uploader.Close()

	store := docstore.NewFirestoreStore(firestoreClient)

	convRepo := repository.NewConversationRepository(store)
	msgRepo := repository.NewMessageRepository(store)
	profileRepo := repository.NewProfileRepository(store)

	convUseCase := usecase.NewConversationUseCase(convRepo, msgRepo, profileRepo)
	msgUseCase := usecase.NewMessageUseCase(msgRepo, convRepo)
	syncUseCase := usecase.NewSyncUseCase(convUseCase, msgUseCase)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient)

	convHandler := handler.NewConversationHandler(convUseCase)
	msgHandler := handler.NewMessageHandler(msgUseCase)
	mediaHandler := handler.NewMediaHandler(uploader)
	wsHandler := handler.NewWebSocketHandler(wsManager, syncUseCase, authMiddleware, cfg.MessageWindow)

	router.Setup(e, authMiddleware, convHandler, msgHandler, mediaHandler, wsHandler)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
