package router

import (
	"whisperbox/internal/application"
	"whisperbox/internal/container"
	"whisperbox/internal/infrastructure/suggest"
	handlers "whisperbox/internal/interface/http"
	"whisperbox/internal/router/modules"
)

// InitModules builds all feature modules from the container singletons and
// registers them with the router registry. Called once during startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()

	authSvc := application.NewAuthService(
		container.GetStore(),
		container.GetJWT(),
		container.GetRabbitPub(),
		container.GetLogger(),
		cfg.SignupRequireVerification,
		cfg.VerifyCodeTTL,
		cfg.MailSendEnabled,
	)
	msgSvc := application.NewMessageService(container.GetStore(), container.GetLogger())
	suggestSvc := application.NewSuggestService(
		suggest.NewClient(cfg.SuggestBaseURL, cfg.SuggestAPIKey, cfg.SuggestModel),
		container.GetRedis(),
		container.GetLogger(),
		cfg.SuggestCacheTTL,
	)

	authHandler := handlers.NewAuthHandler(authSvc, container.GetLogger(), cfg.CookieDomain, cfg.CookieSecure)
	msgHandler := handlers.NewMessageHandler(msgSvc, suggestSvc, container.GetLogger())

	r.Add(modules.NewAuthModule(authHandler))
	r.Add(modules.NewMessageModule(msgHandler))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
