package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-insight/internal/analyses"
	googleauth "resume-insight/internal/auth"
	"resume-insight/internal/llm"
	openai "resume-insight/internal/llm/openai"
	"resume-insight/internal/resumes"
	sharedauth "resume-insight/internal/shared/auth"
	"resume-insight/internal/shared/config"
	"resume-insight/internal/shared/server"
	"resume-insight/internal/shared/storage/db"
	"resume-insight/internal/users"
)

// App holds the wired application dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB

	ResumesRepo  resumes.Repo
	AnalysesRepo analyses.Repo
	UsersRepo    users.Repo

	ResumesService  *resumes.Service
	AnalysesService *analyses.Service
	UsersService    *users.Service

	ResumeHandler   *resumes.Handler
	AnalysisHandler *analyses.Handler
	UserHandler     *users.Handler
	GoogleAuth      *googleauth.GoogleService
}

// Build prepares the full dependency graph and router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, DB: sqlDB}
	if err := buildServices(app); err != nil {
		return nil, err
	}

	verifier, err := sharedauth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Verifier:        verifier,
		ResumeHandler:   app.ResumeHandler,
		AnalysisHandler: app.AnalysisHandler,
		UserHandler:     app.UserHandler,
		GoogleAuth:      app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return sqlDB, nil
}

func buildServices(app *App) error {
	cfg := app.Config

	var resumeRepo resumes.Repo
	var analysisRepo analyses.Repo
	var userRepo users.Repo
	if app.DB != nil {
		resumeRepo = &resumes.PGRepo{DB: app.DB}
		analysisRepo = &analyses.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
	} else {
		resumeRepo = resumes.NewMemoryRepo()
		analysisRepo = analyses.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}

	llmClient := llm.Client(llm.PlaceholderClient{})
	switch {
	case cfg.LLMProvider == "openai" && strings.TrimSpace(cfg.OpenAIAPIKey) != "":
		openaiClient, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMFastModel, cfg.LLMEnhancedModel)
		if err != nil {
			return err
		}
		llmClient = llm.WithBudget(openaiClient, cfg.LLMMaxInFlight)
	case isDevLike(cfg.Env):
		log.Printf("bootstrap: llm provider not configured; analyses will fail until OPENAI_API_KEY is set")
	default:
		return fmt.Errorf("llm provider %q is not configured", cfg.LLMProvider)
	}

	resumeSvc := &resumes.Service{Repo: resumeRepo, MaxUploadBytes: cfg.MaxUploadBytes}
	analysisSvc := &analyses.Service{
		Repo:          analysisRepo,
		Resumes:       resumeRepo,
		LLM:           llmClient,
		Provider:      cfg.LLMProvider,
		FastModel:     cfg.LLMFastModel,
		EnhancedModel: cfg.LLMEnhancedModel,
		Matcher:       analyses.NewMatcher(analyses.DefaultMatcherConfig()),
		Aggregator:    analyses.DefaultAggregatorConfig(),
	}
	userSvc := users.NewService(userRepo)

	signer, err := sharedauth.NewSigner(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}
	googleAuthSvc := googleauth.NewGoogleService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
		signer,
		userSvc,
	)

	app.ResumesRepo = resumeRepo
	app.AnalysesRepo = analysisRepo
	app.UsersRepo = userRepo
	app.ResumesService = resumeSvc
	app.AnalysesService = analysisSvc
	app.UsersService = userSvc
	app.ResumeHandler = resumes.NewHandler(resumeSvc, cfg.MaxUploadBytes)
	app.AnalysisHandler = analyses.NewHandler(analysisSvc)
	app.UserHandler = users.NewHandler(userSvc)
	app.GoogleAuth = googleAuthSvc

	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
