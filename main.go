package main

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()

	cfg, err := LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	db, err := ConnectDB(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	if err := MigrateDB(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	app := NewApp(db, []byte(cfg.SecretKey), log)
	app.secureCookies = cfg.IsProduction()

	addr := ":" + cfg.Port
	log.Info("Server starting on ", addr)
	log.Fatal(http.ListenAndServe(addr, app.Handler(true)))
}
