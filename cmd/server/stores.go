package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	_ "github.com/lib/pq"

	"coworkspace/internal/api"
	"coworkspace/internal/calendar"
	"coworkspace/internal/config"
	"coworkspace/internal/repository"
)

type stores struct {
	meetings    repository.MeetingStore
	purger      repository.MeetingPurger
	credentials calendar.CredentialStore
	pinger      api.Pinger
	close       func()
}

// openStores connects the configured meeting and credential backends.
func openStores(ctx context.Context, cfg *config.Config, migrate bool, logger *slog.Logger) (*stores, error) {
	var conn *sql.DB
	s := &stores{close: func() { closeDB(conn, logger) }}

	if cfg.MeetingStore == config.StorePostgres || cfg.CredentialStore == config.StorePostgres {
		var err error
		conn, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open DB: %w", err)
		}
		if err := conn.PingContext(ctx); err != nil {
			closeDB(conn, logger)
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		if migrate {
			if err := repository.Migrate(ctx, conn); err != nil {
				closeDB(conn, logger)
				return nil, err
			}
			logger.Info("database schema is up to date")
		}
	}

	needsAWS := cfg.MeetingStore == config.StoreDynamoDB || cfg.CredentialStore == config.StoreSSM
	var awsCfg awsClients
	if needsAWS {
		var err error
		awsCfg, err = loadAWS(ctx)
		if err != nil {
			closeDB(conn, logger)
			return nil, err
		}
	}

	switch cfg.MeetingStore {
	case config.StoreDynamoDB:
		store, err := repository.NewDynamoMeetingStore(awsCfg.dynamodb, cfg.DynamoDBTable)
		if err != nil {
			closeDB(conn, logger)
			return nil, err
		}
		s.meetings = store
		logger.Info("meeting store: dynamodb (expiry via table TTL)", "table", cfg.DynamoDBTable)
	default:
		repo := repository.NewMeetingRepository(conn)
		s.meetings = repo
		s.pinger = repo
		s.purger = repository.NewJobRepository(conn)
	}

	switch cfg.CredentialStore {
	case config.StoreSSM:
		store, err := repository.NewSSMCredentialStore(awsCfg.ssm, cfg.SSMCredentialParameter)
		if err != nil {
			closeDB(conn, logger)
			return nil, err
		}
		s.credentials = store
	default:
		sealer, err := repository.NewSealerFromHex(cfg.CredentialEncryptionKey)
		if err != nil {
			closeDB(conn, logger)
			return nil, fmt.Errorf("CREDENTIAL_ENCRYPTION_KEY: %w", err)
		}
		s.credentials = repository.NewCredentialRepository(conn, cfg.GoogleCalendarID, sealer)
	}
	return s, nil
}

type awsClients struct {
	dynamodb *awsdynamodb.Client
	ssm      *awsssm.Client
}

func loadAWS(ctx context.Context) (awsClients, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return awsClients{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsClients{
		dynamodb: awsdynamodb.NewFromConfig(cfg),
		ssm:      awsssm.NewFromConfig(cfg),
	}, nil
}

func closeDB(conn *sql.DB, logger *slog.Logger) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
}
