package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"github.com/xnoquant/xno/api"
	"github.com/xnoquant/xno/backtest"
	"github.com/xnoquant/xno/config"
	"github.com/xnoquant/xno/database"
	"github.com/xnoquant/xno/database/repository/backtestresult"
	"github.com/xnoquant/xno/encoding/json"
	"github.com/xnoquant/xno/log"
	"github.com/xnoquant/xno/marketdata"
	"github.com/xnoquant/xno/report"
	"github.com/xnoquant/xno/runner"
	"github.com/xnoquant/xno/signal"
)

const shutdownTimeout = 10 * time.Second

var (
	errDatabaseDisabled = errors.New("database support is disabled in the config")
	errNoTimeframe      = errors.New("no timeframe provided")
)

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Value:   config.DefaultConfigFile,
	Usage:   "the bot config file to load",
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "runs a strategy over its market data and prints the run stats",
	ArgsUsage: " ",
	Flags: []cli.Flag{
		configFlag,
		&cli.BoolFlag{
			Name:  "report",
			Usage: "print the backtest report",
		},
		&cli.StringFlag{
			Name:  "csv",
			Usage: "write the per bar backtest series to this file",
		},
		&cli.BoolFlag{
			Name:  "save",
			Usage: "store the backtest result in the configured database",
		},
	},
	Action: runStrategy,
}

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "starts the REST server",
	Flags:  []cli.Flag{configFlag},
	Action: serve,
}

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "runs database migrations",
	Flags: []cli.Flag{
		configFlag,
		&cli.StringFlag{
			Name:  "command",
			Value: "status",
			Usage: "migration command status|up|up-by-one|up-to|down|redo|version",
		},
		&cli.StringFlag{
			Name:  "args",
			Usage: "arguments passed to the migration command",
		},
		&cli.StringFlag{
			Name:  "migrationdir",
			Usage: "override the migration folder",
		},
	},
	Action: migrate,
}

var timeframeCommand = &cli.Command{
	Name:      "timeframe",
	Usage:     "prints how a timeframe is annualised",
	ArgsUsage: "<timeframe>",
	Action:    timeframe,
}

func loadEnv(c *cli.Context) error {
	path := c.String("env")
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func jsonOutput(c *cli.Context, in any) error {
	j, err := json.MarshalIndent(in, "", " ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(j))
	return err
}

// loadConfig reads and validates the config, sets up logging and resolves
// relative data paths against the config file directory
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	cfg, err := config.ReadConfigFromFile(c.Context, path)
	if err != nil {
		return nil, err
	}
	if err := log.SetupGlobalLogger(&cfg.Logging); err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	cfg.Data.Path = resolve(dir, cfg.Data.Path)
	cfg.Signal.Path = resolve(dir, cfg.Signal.Path)
	cfg.Database.MigrationDir = resolve(dir, cfg.Database.MigrationDir)
	if database.Dialect(cfg.Database.Driver) == database.DBSQLite3 {
		cfg.Database.Database = resolve(dir, cfg.Database.Database)
	}
	return cfg, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func runStrategy(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := marketdata.LoadFile(cfg.Data.Path, cfg.Data.Format, cfg.Bot.Symbol, cfg.Location())
	if err != nil {
		return err
	}
	src, err := signal.New(&cfg.Signal)
	if err != nil {
		return err
	}
	r, err := runner.New(cfg, data, src, runner.NewStateStore(0))
	if err != nil {
		return err
	}
	if err := r.Run(c.Context); err != nil {
		return err
	}
	stats, err := r.Stats()
	if err != nil {
		return err
	}
	if err := jsonOutput(c, stats); err != nil {
		return err
	}
	if !c.Bool("report") && c.String("csv") == "" && !c.Bool("save") {
		return nil
	}

	summary, err := r.Backtest()
	if err != nil {
		return err
	}
	if c.Bool("report") {
		if err := report.Print(c.App.Writer, summary); err != nil {
			return err
		}
	}
	if path := c.String("csv"); path != "" {
		if err := writeCSV(path, summary); err != nil {
			return err
		}
	}
	if c.Bool("save") {
		return save(c.Context, cfg, summary)
	}
	return nil
}

func writeCSV(path string, summary *backtest.Summary) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return report.WriteSeriesCSV(f, summary)
}

func connect(cfg *config.Config) (*database.Instance, error) {
	if !cfg.Database.Enabled {
		return nil, errDatabaseDisabled
	}
	db := &database.Instance{}
	if err := db.SetConfig(&cfg.Database); err != nil {
		return nil, err
	}
	if err := db.Connect(); err != nil {
		return nil, err
	}
	return db, nil
}

func save(ctx context.Context, cfg *config.Config, summary *backtest.Summary) error {
	db, err := connect(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.CloseConnection(); err != nil {
			log.Errorf(log.DatabaseMgr, "Closing database: %v", err)
		}
	}()
	if err := db.Migrate("up", "", ""); err != nil {
		return err
	}
	conn, err := db.GetSQL()
	if err != nil {
		return err
	}
	res, err := backtestresult.FromSummary(uuid.Nil, summary)
	if err != nil {
		return err
	}
	if err := backtestresult.Insert(ctx, conn, db.GetDialect(), res); err != nil {
		return err
	}
	log.Infof(log.DatabaseMgr, "Stored backtest result %s for %s", res.ID, summary.BotID)
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}
	srv, err := api.New(&cfg.API, runner.NewRunManager(), runner.NewStateStore(0))
	if err != nil {
		return err
	}
	if cfg.Database.Enabled {
		db, err := connect(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.CloseConnection(); err != nil {
				log.Errorf(log.DatabaseMgr, "Closing database: %v", err)
			}
		}()
		if err := db.Migrate("up", "", ""); err != nil {
			return err
		}
		conn, err := db.GetSQL()
		if err != nil {
			return err
		}
		srv.SetDatabase(conn, db.GetDialect())
	}

	errs := make(chan error, 1)
	go func() { errs <- srv.Start() }()
	select {
	case err := <-errs:
		return err
	case <-c.Context.Done():
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		return err
	}
	return <-errs
}

func migrate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := connect(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.CloseConnection(); err != nil {
			log.Errorf(log.DatabaseMgr, "Closing database: %v", err)
		}
	}()
	if db.GetDialect() == database.DBSQLite3 {
		fmt.Fprintf(c.App.Writer, "Database file: %s\n", cfg.Database.Database)
	} else {
		fmt.Fprintf(c.App.Writer, "Connected to: %s\n", cfg.Database.Host)
	}
	return db.Migrate(c.String("command"), c.String("migrationdir"), c.String("args"))
}

func timeframe(c *cli.Context) error {
	tf := c.Args().First()
	if tf == "" {
		return errNoTimeframe
	}
	minutes, err := backtest.TimeframeMinutes(tf)
	if err != nil {
		return err
	}
	periods, err := backtest.PeriodsPerYear(tf)
	if err != nil {
		return err
	}
	return jsonOutput(c, api.TimeframeResponse{
		Timeframe:      tf,
		Minutes:        minutes,
		PeriodsPerYear: periods,
		AutoWindow:     backtest.AutoWindow(tf),
	})
}
