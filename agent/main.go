package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/imkonsowa/cafes-rag/cache"
	"github.com/imkonsowa/cafes-rag/catalog"
	"github.com/imkonsowa/cafes-rag/config"
	"github.com/imkonsowa/cafes-rag/events"
	"github.com/imkonsowa/cafes-rag/llm"
	"github.com/imkonsowa/cafes-rag/preferences"
	"github.com/imkonsowa/cafes-rag/ranking"
	"github.com/imkonsowa/cafes-rag/session"
	"github.com/imkonsowa/cafes-rag/store"
	"github.com/imkonsowa/cafes-rag/vocabulary"
	"golang.org/x/sync/errgroup"
)

type Agent struct {
	config   *config.Config
	handler  *Handler
	upgrader websocket.Upgrader
}

func main() {
	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, reviews, err := loadCatalog(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	slog.Info("catalog loaded", "source", cfg.Catalog.Source, "cafes", cat.Len(), "categories", len(cat.Categories), "reviews", len(reviews))

	model, err := llm.New(cfg.LLM)
	if err != nil {
		log.Fatal(err)
	}

	var opts []preferences.Option
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			log.Fatal(err)
		}
		defer redisCache.Close()

		opts = append(opts, preferences.WithCache(redisCache, cfg.Redis.TTL))
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Nats.Enabled {
		natsPublisher, err := events.NewNatsPublisher(cfg.Nats)
		if err != nil {
			log.Fatal(err)
		}
		publisher = natsPublisher
	}
	defer publisher.Close()

	vocab := vocabulary.New(cat.Categories, vocabulary.DefaultSynonyms)
	extractor := preferences.NewExtractor(model, vocab, cfg.LLM.Timeout, opts...)

	agent := &Agent{
		config:   cfg,
		handler:  NewHandler(extractor, ranking.NewRecommender(cat, reviews), publisher),
		upgrader: websocket.Upgrader{},
	}

	if err := agent.Run(ctx); err != nil {
		log.Fatalf("failed to run the agent: %v", err)
	}
}

func loadCatalog(ctx context.Context, cfg *config.Config) (*catalog.Catalog, []catalog.Review, error) {
	switch cfg.Catalog.Source {
	case "", "csv":
		return catalog.LoadFiles(ctx, cfg.Catalog.ScoresFile, cfg.Catalog.ReviewsFile)
	case "database":
		db, err := store.Open(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		return db.LoadCatalog(ctx)
	default:
		return nil, nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}
}

// Run serves the API until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.config.Server.Address(),
		Handler: a.Router(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("agent listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *Agent) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/chat", a.chat)

	r.POST("/sessions", func(ctx *gin.Context) {
		s := a.handler.Sessions().Create()

		ctx.JSON(http.StatusCreated, NewSessionView(s))
	})

	r.GET("/sessions/:id", func(ctx *gin.Context) {
		s, ok := a.session(ctx)
		if !ok {
			return
		}

		ctx.JSON(http.StatusOK, NewSessionView(s))
	})

	r.POST("/sessions/:id/utterances", func(ctx *gin.Context) {
		s, ok := a.session(ctx)
		if !ok {
			return
		}

		var req UtteranceRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		phase := s.Phase()
		result, err := a.handler.Submit(ctx.Request.Context(), s, req.Text)
		if err != nil {
			ctx.JSON(statusFor(err), errorData(phase, err))
			return
		}

		ctx.JSON(http.StatusOK, result)
	})

	r.GET("/sessions/:id/recommendations", func(ctx *gin.Context) {
		s, ok := a.session(ctx)
		if !ok {
			return
		}

		recs, err := a.handler.Recommend(s)
		if err != nil {
			ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		ctx.JSON(http.StatusOK, recs)
	})

	r.POST("/sessions/:id/reset", func(ctx *gin.Context) {
		s, ok := a.session(ctx)
		if !ok {
			return
		}
		s.Reset()

		ctx.JSON(http.StatusOK, NewSessionView(s))
	})

	r.DELETE("/sessions/:id", func(ctx *gin.Context) {
		if err := a.handler.Sessions().Delete(ctx.Param("id")); err != nil {
			ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		ctx.Status(http.StatusNoContent)
	})

	r.GET("/cafes", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, a.handler.Catalog())
	})

	r.GET("/categories", func(ctx *gin.Context) {
		vocab := a.handler.Vocabulary()

		ctx.JSON(http.StatusOK, CategoriesResponse{
			Categories: vocab.Categories(),
			Synonyms:   vocab.Synonyms(),
		})
	})

	return r
}

func (a *Agent) session(ctx *gin.Context) (*session.Session, bool) {
	s, err := a.handler.Sessions().Get(ctx.Param("id"))
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return nil, false
	}

	return s, true
}

func statusFor(err error) int {
	var extractionErr *preferences.ExtractionError

	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrEmptyUtterance):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionComplete), errors.Is(err, session.ErrNotReady):
		return http.StatusConflict
	case errors.As(err, &extractionErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorData pairs an error with the message the user sees for phase.
func errorData(phase session.Phase, err error) ErrorData {
	var extractionErr *preferences.ExtractionError
	if errors.As(err, &extractionErr) {
		return ErrorData{Error: err.Error(), Message: phase.FailureMessage()}
	}

	return ErrorData{Error: err.Error(), Message: phase.Prompt()}
}
