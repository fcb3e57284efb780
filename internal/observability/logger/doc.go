// Package logger provee el logger Zap del proceso con scoping por contexto.
//
//   - Singleton: Init() una vez en main; L() devuelve el logger (dev/info si nadie llamó Init).
//   - Context Scoping: los middlewares inyectan un logger con request_id/method/path
//     y los servicios lo recuperan con From(ctx).
//   - Environments: "dev" consola con colores, "prod" JSON.
//
// Nunca loguear material de claves: para secretos usar Secret(), que solo
// registra un fingerprint corto.
//
//	logger.Init(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level, ServiceName: "siteconnect"})
//	defer logger.Sync()
//
//	log := logger.From(ctx)
//	log.Info("site registered", logger.SiteID(42))
package logger
