package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cardroom/application"
	"cardroom/cmd"
	"cardroom/config"
	"cardroom/database"
	"cardroom/domain/entities"
	"cardroom/infrastructure"

	"github.com/alecthomas/kong"
	log "github.com/sirupsen/logrus"
)

type CLI struct {
	Serve       ServeCmd       `cmd:"" default:"1" help:"Run the card room server"`
	Migrate     MigrateCmd     `cmd:"" help:"Manage database migrations"`
	VerifyRound VerifyRoundCmd `cmd:"verify-round" help:"Replay a stored round and check it against its record"`
	IssueToken  IssueTokenCmd  `cmd:"issue-token" help:"Sign a session token for a username"`
}

type ServeCmd struct{}

func (c *ServeCmd) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return cmd.Run(ctx)
}

type MigrateCmd struct {
	Up     MigrateUpCmd     `cmd:"" help:"Apply all pending migrations"`
	Down   MigrateDownCmd   `cmd:"" help:"Roll back migrations"`
	Status MigrateStatusCmd `cmd:"" help:"Show the current migration version"`
}

type MigrateUpCmd struct{}

func (c *MigrateUpCmd) Run() error {
	return database.MigrateUp(config.Get().GetDatabaseURL())
}

type MigrateDownCmd struct {
	Steps int `arg:"" optional:"" default:"1" help:"Number of migrations to roll back"`
}

func (c *MigrateDownCmd) Run() error {
	return database.MigrateDown(config.Get().GetDatabaseURL(), c.Steps)
}

type MigrateStatusCmd struct{}

func (c *MigrateStatusCmd) Run() error {
	return database.MigrateStatus(config.Get().GetDatabaseURL())
}

type VerifyRoundCmd struct {
	RoundID string `arg:"" help:"Round ID to replay"`
}

func (c *VerifyRoundCmd) Run() error {
	cfg := config.Get()
	cmd.ConfigureLogging(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	rounds := application.NewRoundHandler(infrastructure.NewUnitOfWorkFactory(db, nil), nil, cfg.SeedCommitSecret, application.NoopMetrics{})
	verification, err := rounds.VerifyRound(ctx, c.RoundID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(verification); err != nil {
		return err
	}
	if !verification.Verified() {
		return fmt.Errorf("round %s failed verification", c.RoundID)
	}
	return nil
}

type IssueTokenCmd struct {
	Username string        `arg:"" help:"Username the token identifies"`
	Role     string        `default:"player" enum:"player,admin" help:"Role claim"`
	TTL      time.Duration `default:"24h" help:"Token lifetime, 0 for no expiry"`
}

func (c *IssueTokenCmd) Run() error {
	token, err := infrastructure.NewSessionVerifier(config.Get().JWTSecret, c.TTL).Issue(c.Username, entities.Role(c.Role))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("cardroom"),
		kong.Description("Multiplayer card room with auditable rounds"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	if err := ctx.Run(); err != nil {
		log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
