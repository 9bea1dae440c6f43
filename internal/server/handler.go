package server

import (
	"context"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/driftworks/manifestmod/internal/routing"
	"github.com/driftworks/manifestmod/modules/manifestmod/domain/ports"
	"github.com/driftworks/manifestmod/modules/manifestmod/infrastructure/persistence"
	"github.com/driftworks/manifestmod/modules/manifestmod/services"
)

type HandlerOptions struct {
	RuleStore    ports.RuleStore
	AuditLog     ports.AuditLog
	WriteService services.RuleWriteService
	Evaluator    *services.EvaluationService
	Authorizer   authorizer
}

func NewHandler() (http.Handler, error) {
	return NewHandlerWithOptions(HandlerOptions{})
}

func NewHandlerWithOptions(opts HandlerOptions) (http.Handler, error) {
	allowlistPath := os.Getenv("ALLOWLIST_PATH")
	if allowlistPath == "" {
		p, err := defaultConfigPath("config/routing/allowlist.yaml")
		if err != nil {
			return nil, err
		}
		allowlistPath = p
	}

	a, err := routing.LoadAllowlist(allowlistPath)
	if err != nil {
		return nil, err
	}
	classifier, err := routing.NewClassifier(a, "server")
	if err != nil {
		return nil, err
	}

	store := opts.RuleStore
	audit := opts.AuditLog
	if store == nil {
		if databaseConfigured() {
			pool, err := pgxpool.New(context.Background(), dbDSNFromEnv())
			if err != nil {
				return nil, err
			}
			store = persistence.NewRulePGStore(pool)
			if audit == nil {
				audit = persistence.NewAuditPGStore(pool)
			}
		} else {
			store = persistence.NewRuleMemoryStore()
		}
	}
	if audit == nil {
		audit = persistence.NewAuditMemoryLog()
	}

	writeService := opts.WriteService
	if writeService == nil {
		writeService = services.NewRuleWriteService(store, audit)
	}
	evaluator := opts.Evaluator
	if evaluator == nil {
		evaluator = services.NewEvaluationService(store)
	}

	az := opts.Authorizer
	if az == nil {
		loaded, err := loadAuthorizer()
		if err != nil {
			return nil, err
		}
		az = loaded
	}

	router := routing.NewRouter(classifier)

	router.Handle(routing.RouteClassOps, http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}))
	router.Handle(routing.RouteClassOps, http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}))

	router.Handle(routing.RouteClassInternalAPI, http.MethodPost, "/manifestmod/api/rules", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleCreateRuleAPI(w, r, writeService)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodGet, "/manifestmod/api/rules", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleListRulesAPI(w, r, store)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodGet, "/manifestmod/api/rule", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleGetRuleAPI(w, r, store)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodPost, "/manifestmod/api/rules/enable", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleToggleRuleAPI(w, r, writeService)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodPost, "/manifestmod/api/rules/delete", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleDeleteRuleAPI(w, r, writeService)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodPost, "/manifestmod/api/evaluate", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleEvaluateAPI(w, r, evaluator)
	}))

	return withIdentity(withAuthz(classifier, az, router)), nil
}

func databaseConfigured() bool {
	return os.Getenv("DATABASE_URL") != "" || os.Getenv("DB_HOST") != ""
}
