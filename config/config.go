package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/xnoquant/xno/backtest"
	"github.com/xnoquant/xno/common"
	"github.com/xnoquant/xno/common/convert"
	"github.com/xnoquant/xno/config/versions"
	"github.com/xnoquant/xno/database"
	"github.com/xnoquant/xno/encoding/json"
	"github.com/xnoquant/xno/execution"
	"github.com/xnoquant/xno/log"
)

var signalSources = []string{SignalStatic, SignalCSV, SignalScript, SignalRSI, SignalSMACross}

// ReadConfigFromFile reads the config at path and decodes it with ReadConfig
func ReadConfigFromFile(ctx context.Context, path string) (*Config, error) {
	if path == "" {
		return nil, errNoConfigPath
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := ReadConfig(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ReadConfig upgrades the raw config to the latest version and decodes it.
// Any key may be overridden from the environment using the XNO prefix, with
// the key path joined by underscores, eg XNO_DATABASE_PASSWORD
func ReadConfig(ctx context.Context, b []byte) (*Config, error) {
	b, err := versions.Manager.Deploy(ctx, b, versions.UseLatestVersion)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	if err := v.ReadConfig(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	c := &Config{}
	if err := v.Unmarshal(c, decoderConfig); err != nil {
		return nil, err
	}
	c.checkLoggerConfig()
	return c, nil
}

// setDefaults registers every default, which also lets AutomaticEnv find keys
// absent from the file
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.id", "")
	v.SetDefault("bot.symbol", "")
	v.SetDefault("bot.timeframe", "D")
	v.SetDefault("bot.initCash", 0)
	v.SetDefault("bot.mode", defaultMode)
	v.SetDefault("bot.symbolType", defaultSymbolType)
	v.SetDefault("bot.engine", defaultEngine)
	v.SetDefault("execution.lotSize", defaultLotSize)
	v.SetDefault("execution.settlementTimezoneOffsetHours", defaultUTCOffset)
	v.SetDefault("fees.stockPercent", defaultStockFee)
	v.SetDefault("fees.fixedDerivative", defaultFixedFee)
	v.SetDefault("signal.source", defaultSignalType)
	v.SetDefault("signal.column", defaultSignalCol)
	v.SetDefault("data.path", "")
	v.SetDefault("data.priceFactor", defaultPriceFactor)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", database.DBSQLite3)
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", database.DefaultSQLiteDatabase)
	v.SetDefault("database.sslmode", "")
	v.SetDefault("database.migrationDir", database.MigrationDir)
	v.SetDefault("api.listenAddress", defaultListenAddr)
	v.SetDefault("api.requestsPerSecond", defaultRPS)
	v.SetDefault("api.burst", defaultRPS)
}

func decoderConfig(dc *mapstructure.DecoderConfig) {
	dc.TagName = "json"
	dc.Squash = true
	dc.WeaklyTypedInput = true
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(stringToTimeHook, mapstructure.StringToSliceHookFunc(","))
}

// stringToTimeHook parses config times with the same layouts as bar data,
// reading times without an offset in Vietnam time
func stringToTimeHook(f, t reflect.Type, data any) (any, error) {
	if t != reflect.TypeOf(time.Time{}) || f.Kind() != reflect.String {
		return data, nil
	}
	s, _ := data.(string)
	if s == "" {
		return time.Time{}, nil
	}
	return convert.TimeFromString(s, execution.ICT)
}

// checkLoggerConfig fills in a missing logging section
func (c *Config) checkLoggerConfig() {
	if c.Logging.Enabled == nil || c.Logging.Output == "" {
		subLoggers := c.Logging.SubLoggers
		c.Logging = log.GenDefaultSettings()
		c.Logging.SubLoggers = subLoggers
	}
	if c.Logging.AdvancedSettings.ShowLogSystemName == nil {
		c.Logging.AdvancedSettings.ShowLogSystemName = convert.BoolPtr(false)
	}
}

// Validate checks every setting needed for a run, returning all problems found
func (c *Config) Validate() error {
	var errs error
	if c.Bot.ID == "" {
		errs = common.AppendError(errs, errEmptyBotID)
	}
	if c.Bot.Symbol == "" {
		errs = common.AppendError(errs, errEmptySymbol)
	}
	if !(c.Bot.InitCash > 0) {
		errs = common.AppendError(errs, fmt.Errorf("%w: %v", errInvalidInitCash, c.Bot.InitCash))
	}
	if !c.Bot.RunFrom.IsZero() && !c.Bot.RunTo.IsZero() && !c.Bot.RunFrom.Before(c.Bot.RunTo) {
		errs = common.AppendError(errs, fmt.Errorf("run window %w", common.ErrStartAfterEnd))
	}
	if _, err := backtest.PeriodsPerYear(c.Bot.Timeframe); err != nil {
		errs = common.AppendError(errs, err)
	}
	if _, err := backtest.ParseTradeMode(c.Bot.Mode); err != nil {
		errs = common.AppendError(errs, err)
	}
	if _, err := backtest.ParseSymbolType(c.Bot.SymbolType); err != nil {
		errs = common.AppendError(errs, err)
	}
	if _, err := backtest.ParseEngine(c.Bot.Engine); err != nil {
		errs = common.AppendError(errs, err)
	}
	if !(c.Execution.LotSize > 0) {
		errs = common.AppendError(errs, fmt.Errorf("%w: %v", errInvalidLotSize, c.Execution.LotSize))
	}
	if c.Execution.SettlementTimezoneOffsetHours < -12 || c.Execution.SettlementTimezoneOffsetHours > 14 {
		errs = common.AppendError(errs, fmt.Errorf("%w: %d", errInvalidUTCOffset, c.Execution.SettlementTimezoneOffsetHours))
	}
	if !(c.Fees.StockPercent >= 0 && c.Fees.StockPercent < 1) {
		errs = common.AppendError(errs, fmt.Errorf("%w: %v", errInvalidFee, c.Fees.StockPercent))
	}
	if !(c.Data.PriceFactor > 0) {
		errs = common.AppendError(errs, fmt.Errorf("%w: %v", errInvalidFactor, c.Data.PriceFactor))
	}
	if !slices.Contains(signalSources, strings.ToLower(c.Signal.Source)) {
		errs = common.AppendError(errs, fmt.Errorf("%w %q", errUnknownSignalType, c.Signal.Source))
	}
	if c.Database.Enabled && !database.IsSupportedDriver(c.Database.Driver) {
		errs = common.AppendError(errs, fmt.Errorf("%w %q", database.ErrUnsupportedDriver, c.Database.Driver))
	}
	return errs
}

// ValidateAPI checks the REST server settings
func (c *Config) ValidateAPI() error {
	if !(c.API.RequestsPerSecond > 0) || c.API.Burst <= 0 {
		return fmt.Errorf("%w: %v burst %d", errInvalidRateLimit, c.API.RequestsPerSecond, c.API.Burst)
	}
	return nil
}

// Location returns the zone used to decide settlement day boundaries
func (c *Config) Location() *time.Location {
	h := c.Execution.SettlementTimezoneOffsetHours
	if h == defaultUTCOffset {
		return execution.ICT
	}
	return time.FixedZone(fmt.Sprintf("UTC%+d", h), h*60*60)
}

// ExecutionConfig returns the settlement simulator settings of the bot
func (c *Config) ExecutionConfig() execution.Config {
	return execution.Config{
		BotID:       c.Bot.ID,
		InitialCash: c.Bot.InitCash,
		LotSize:     c.Execution.LotSize,
		Location:    c.Location(),
	}
}

// TradeMode returns the parsed run mode
func (c *Config) TradeMode() (backtest.TradeMode, error) {
	return backtest.ParseTradeMode(c.Bot.Mode)
}

// SymbolType returns the parsed symbol type
func (c *Config) SymbolType() (backtest.SymbolType, error) {
	return backtest.ParseSymbolType(c.Bot.SymbolType)
}

// Engine returns the parsed bot engine
func (c *Config) Engine() (backtest.Engine, error) {
	return backtest.ParseEngine(c.Bot.Engine)
}

// SaveConfigToFile writes the config as indented JSON stamped with the
// latest config version
func (c *Config) SaveConfigToFile(path string) error {
	if path == "" {
		return errNoConfigPath
	}
	latest, err := versions.Manager.Latest()
	if err != nil {
		return err
	}
	c.Version = int(latest)
	payload, err := json.MarshalIndent(c, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}
