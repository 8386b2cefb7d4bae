// Command devtoken mints a bearer token for local testing against the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/pawbazaar/marketplace-backend/pkg/auth"
	"github.com/pawbazaar/marketplace-backend/pkg/config"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	"github.com/pawbazaar/marketplace-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "devtoken"})
	_ = godotenv.Load()

	userID := flag.String("user", "", "user id (uuid); random when empty")
	role := flag.String("role", string(enums.RoleCustomer), "customer|vendor|vet|admin")
	name := flag.String("name", "Dev User", "display name claim")
	email := flag.String("email", "dev@pawbazaar.local", "email claim")
	flag.Parse()

	ctx := logg.WithField(context.Background(), "role", *role)

	var app config.AppConfig
	if err := envconfig.Process(config.EnvPrefix, &app); err != nil {
		logg.Error(ctx, "failed to load app config", err)
		os.Exit(1)
	}
	if app.IsProd() {
		logg.Error(ctx, "refusing to mint tokens in production", nil)
		os.Exit(1)
	}

	var jwtCfg config.JWTConfig
	if err := envconfig.Process(config.EnvPrefix, &jwtCfg); err != nil {
		logg.Error(ctx, "failed to load jwt config", err)
		os.Exit(1)
	}

	parsedRole, err := enums.ParseRole(*role)
	if err != nil {
		logg.Error(ctx, "invalid role", err)
		os.Exit(1)
	}

	id := uuid.New()
	if *userID != "" {
		id, err = uuid.Parse(*userID)
		if err != nil {
			logg.Error(ctx, "invalid user id", err)
			os.Exit(1)
		}
	}

	token, err := auth.MintAccessToken(jwtCfg, time.Now(), auth.AccessTokenPayload{
		UserID: id,
		Role:   parsedRole,
		Name:   *name,
		Email:  *email,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		logg.Error(ctx, "failed to mint token", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
