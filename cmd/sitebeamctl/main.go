// main.go - Admin control tool for sitebeam
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"sitebeam/internal"
	"sitebeam/internal/config"
	"sitebeam/internal/users"
)

const defaultShutdownTimeout = 30 * time.Second

// auditLog records every CLI operation to a rotated file so admin
// actions on production boxes leave a trail.
var auditLog = logrus.New()

func setupAuditLog(cfg *config.Config) {
	auditLog.SetFormatter(&logrus.JSONFormatter{})
	auditLog.SetOutput(&lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogsDirectory, "sitebeamctl.log"),
		MaxSize:    cfg.LogsMaxSizeInMb,
		MaxBackups: cfg.LogsMaxBackups,
		MaxAge:     cfg.LogsMaxAgeInDays,
	})
}

// Command defines the interface for all command implementations
type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, app *internal.Application, args []string) error
}

var commands = []Command{
	&CreateAdminUserCommand{},
	&ChangeAdminPasswordCommand{},
	&MigrateCommand{},
	&StatusCommand{},
	&HelpCommand{},
}

func main() {
	flag.Parse()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, initiating cleanup...", sig)
		cancel()
	}()

	cmdName, args := parseArgs()

	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	cfg := config.GetConfig()
	setupAuditLog(cfg)

	app, err := internal.NewApp()
	if err != nil {
		log.Printf("Warning: Failed to initialize app: %v", err)
		log.Println("Proceeding with limited functionality...")
	}

	defer func() {
		if app != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
			defer cancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				log.Printf("Warning: Cleanup error: %v", err)
			}
		}
	}()

	if err := cmd.Execute(ctx, app, args); err != nil {
		auditLog.WithFields(logrus.Fields{
			"command": cmd.Name(),
			"error":   err.Error(),
		}).Error("command failed")
		log.Fatalf("Command failed: %v", err)
	}

	auditLog.WithField("command", cmd.Name()).Info("command completed")
	log.Printf("Command %s completed successfully", cmd.Name())
}

func parseArgs() (string, []string) {
	args := flag.Args()
	if len(args) == 0 {
		return "", nil
	}
	return args[0], args[1:]
}

func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func showUsageAndExit() {
	fmt.Println("Usage: sitebeamctl <command> [args]")
	fmt.Println("Commands:")
	for _, cmd := range commands {
		fmt.Printf("  %-25s %s\n", cmd.Name(), cmd.Description())
	}
	os.Exit(1)
}

func requireDB(app *internal.Application) (*gorm.DB, error) {
	if app == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	db := app.DBManager.GetConnection()
	if db == nil {
		return nil, fmt.Errorf("no database configured (SITEBEAM_DB_TYPE=none)")
	}
	return db, nil
}

// promptPassword reads a password without echoing when attached to a
// terminal, falling back to the argument list otherwise.
func promptPassword(args []string, index int) (string, error) {
	if len(args) > index {
		return args[index], nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("password argument required when not running interactively")
	}

	fmt.Print("Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}

// CreateAdminUserCommand creates an initial admin user.
type CreateAdminUserCommand struct{}

func (c *CreateAdminUserCommand) Name() string        { return "create-admin-user" }
func (c *CreateAdminUserCommand) Description() string { return "Creates an initial admin user" }

func (c *CreateAdminUserCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <email> [password]", c.Name())
	}

	db, err := requireDB(app)
	if err != nil {
		return err
	}

	email := args[0]
	password, err := promptPassword(args, 1)
	if err != nil {
		return err
	}

	if err := users.CreateAdminUser(db, email, password); err != nil {
		return err
	}

	auditLog.WithField("email", email).Info("admin user created")
	log.Printf("Admin user %s created", email)
	return nil
}

// ChangeAdminPasswordCommand updates an admin user's password.
type ChangeAdminPasswordCommand struct{}

func (c *ChangeAdminPasswordCommand) Name() string        { return "change-admin-password" }
func (c *ChangeAdminPasswordCommand) Description() string { return "Changes an admin user's password" }

func (c *ChangeAdminPasswordCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <email> [password]", c.Name())
	}

	db, err := requireDB(app)
	if err != nil {
		return err
	}

	email := args[0]
	password, err := promptPassword(args, 1)
	if err != nil {
		return err
	}

	if err := users.ChangePassword(db, email, password); err != nil {
		return err
	}

	auditLog.WithField("email", email).Info("admin password changed")
	log.Printf("Password changed for %s", email)
	return nil
}

// MigrateCommand runs the database migrations.
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string        { return "migrate" }
func (c *MigrateCommand) Description() string { return "Runs database migrations" }

func (c *MigrateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("application not initialized")
	}
	return app.DBManager.MigrateDatabase()
}

// StatusCommand reports the service configuration and store state.
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Shows configuration and database status" }

func (c *StatusCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	cfg := config.GetConfig()

	fmt.Printf("Environment:   %s\n", cfg.Environment)
	fmt.Printf("Database type: %s\n", cfg.DatabaseType)
	fmt.Printf("Geo provider:  %s\n", cfg.GeoProvider)

	db, err := requireDB(app)
	if err != nil {
		fmt.Printf("Database:      unavailable (%v)\n", err)
		return nil
	}

	var pageViews int64
	if err := db.Raw("SELECT COUNT(*) FROM page_views").Scan(&pageViews).Error; err != nil {
		fmt.Printf("Database:      connected, schema not migrated\n")
		return nil
	}

	var admins int64
	db.Raw("SELECT COUNT(*) FROM users").Scan(&admins)

	fmt.Printf("Database:      connected (%s)\n", cfg.GetDatabasePath())
	fmt.Printf("Page views:    %d\n", pageViews)
	fmt.Printf("Admin users:   %d\n", admins)
	return nil
}

// HelpCommand prints usage information.
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Shows this help" }

func (c *HelpCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fmt.Println("Usage: sitebeamctl <command> [args]")
	fmt.Println("Commands:")
	for _, cmd := range commands {
		fmt.Printf("  %-25s %s\n", cmd.Name(), cmd.Description())
	}
	return nil
}
