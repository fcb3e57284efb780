// Package server arma el grafo de dependencias del servicio a partir de la config.
package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/siteconnect/internal/config"
	"github.com/dropDatabas3/siteconnect/internal/dispatch"
	"github.com/dropDatabas3/siteconnect/internal/gateway"
	"github.com/dropDatabas3/siteconnect/internal/handshake"
	mw "github.com/dropDatabas3/siteconnect/internal/http/middlewares"
	"github.com/dropDatabas3/siteconnect/internal/http/router"
	"github.com/dropDatabas3/siteconnect/internal/metrics"
	"github.com/dropDatabas3/siteconnect/internal/observability/logger"
	"github.com/dropDatabas3/siteconnect/internal/rate"
	"github.com/dropDatabas3/siteconnect/internal/remoteactions"
	"github.com/dropDatabas3/siteconnect/internal/secrets"
	"github.com/dropDatabas3/siteconnect/internal/site"
	"github.com/dropDatabas3/siteconnect/internal/store"
)

// App es el servicio armado.
type App struct {
	Handler    http.Handler
	Store      store.Store
	Secrets    *secrets.SecretStore
	Handshake  *handshake.Service
	Dispatcher *dispatch.Dispatcher
	Registry   *prometheus.Registry
}

// Close libera el store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// Build crea store, servicios y router. Si kv no es nil se usa en lugar de
// abrir el store configurado (tests).
func Build(ctx context.Context, cfg *config.Config, kv store.Store) (*App, error) {
	log := logger.L().With(logger.Component("wiring"))

	if kv == nil {
		var err error
		kv, err = openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	info, err := siteInfo(cfg)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	sec := secrets.New(kv, secrets.Options{
		Prefix:        cfg.Client.Prefix,
		ActivationTTL: cfg.Handshake.ActivationTTL,
	})

	client := gateway.NewClient(sec, gateway.Options{
		Timeout:            cfg.Gateway.Timeout,
		Redirection:        cfg.Gateway.Redirection,
		InsecureSkipVerify: !cfg.TLSVerify(),
	})

	hs := handshake.New(handshake.Config{
		ConnectionURL:     cfg.Client.ConnectionURL,
		APIURL:            cfg.Client.APIURL,
		APINamespace:      cfg.Client.APINamespace,
		LocalAPINamespace: cfg.Client.LocalAPINamespace,
		Prefix:            cfg.Client.Prefix,
		SingleUseSecret:   cfg.SingleUseSecret(),
		SkipDomainCheck:   cfg.Handshake.SkipDomainCheck,
	}, sec, site.Static(info), client)

	disp := dispatch.New(cfg.Client.Prefix, dispatch.NewRegistry())
	remoteactions.New(sec, remoteactions.Options{
		AllowedIPs:          cfg.RemoteActions.AllowedIPs,
		OptionAllowlist:     cfg.RemoteActions.OptionAllowlist,
		ValidLicenceDomains: cfg.RemoteActions.ValidLicenceDomains,
	}).Register(disp)

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("wiring: metrics: %w", err)
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	restBase := ""
	if info.RestURL != "" {
		if u, err := url.Parse(info.RestURL); err == nil {
			restBase = u.Path
		}
	}

	trusted, err := mw.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("wiring: server.trusted_proxies: %w", err)
	}

	handler := router.New(router.Deps{
		Handshake:           hs,
		Dispatcher:          disp,
		Authenticator:       gateway.NewAuthenticator(sec),
		Store:               sec,
		RegistrationLimiter: registrationLimiter(cfg, kv),
		AdminAPIKey:         cfg.Admin.APIKey,
		RESTBase:            restBase,
		CORSAllowedOrigins:  cfg.Server.CORSAllowedOrigins,
		TrustedProxies:      trusted,
		Metrics:             promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	log.Info("service wired",
		logger.String("storage", cfg.Storage.Driver),
		logger.Bool("sealed", cfg.Storage.MasterKey != ""),
		logger.String("local_namespace", cfg.Client.LocalAPINamespace),
		logger.Bool("rate_limit", cfg.Rate.Enabled),
	)

	return &App{
		Handler:    handler,
		Store:      kv,
		Secrets:    sec,
		Handshake:  hs,
		Dispatcher: disp,
		Registry:   reg,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	key, err := store.ParseMasterKey(cfg.Storage.MasterKey)
	if err != nil {
		return nil, err
	}
	sc := store.Config{
		Driver:    cfg.Storage.Driver,
		MasterKey: key,
	}
	sc.Redis.Addr = cfg.Storage.Redis.Addr
	sc.Redis.Password = cfg.Storage.Redis.Password
	sc.Redis.DB = cfg.Storage.Redis.DB
	sc.Redis.Prefix = cfg.Storage.Redis.Prefix
	sc.Postgres.DSN = cfg.Storage.Postgres.DSN

	s, err := store.New(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("wiring: open store: %w", err)
	}
	return s, nil
}

func siteInfo(cfg *config.Config) (site.Info, error) {
	info := site.Info{
		Name:     cfg.Site.Name,
		SiteURL:  cfg.Site.SiteURL,
		HomeURL:  cfg.Site.HomeURL,
		AdminURL: cfg.Site.AdminURL,
		RestURL:  cfg.Site.RestURL,
		IconURL:  cfg.Site.IconURL,
		Locale:   cfg.Site.Locale,
	}
	admins, err := config.ParseSiteTime(cfg.Site.AdminsRegisteredAt)
	if err != nil {
		return site.Info{}, fmt.Errorf("wiring: site.admins_registered_at: %w", err)
	}
	info.AdminsRegisteredAt = admins

	content, err := config.ParseSiteTime(cfg.Site.FirstContentAt)
	if err != nil {
		return site.Info{}, fmt.Errorf("wiring: site.first_content_at: %w", err)
	}
	if !content.IsZero() {
		info.FirstContentAt = &content
	}
	return info, nil
}

// registrationLimiter usa Redis si el store es Redis (límite compartido entre
// réplicas); si no, un limiter en memoria.
func registrationLimiter(cfg *config.Config, kv store.Store) rate.Limiter {
	if !cfg.Rate.Enabled {
		return nil
	}
	limit, window := cfg.Rate.Registration.Limit, cfg.Rate.Registration.Window
	if client, ok := store.RedisClientOf(kv); ok {
		return rate.NewRedisLimiter(client, cfg.Client.Prefix+":rl:registration:", limit, window)
	}
	return rate.NewMemoryLimiter(limit, window)
}
