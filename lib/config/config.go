// Package config loads the folio configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/sboehler/folio/lib/common/date"
)

// Config is the configuration of a folio installation. Relative paths are
// resolved against the directory of the configuration file.
type Config struct {
	Accounts   []Account  `yaml:"accounts"`
	Ledger     Ledger     `yaml:"ledger"`
	Period     Period     `yaml:"period"`
	Dividends  Dividends  `yaml:"dividends"`
	Holdings   Holdings   `yaml:"holdings"`
	Catalog    Catalog    `yaml:"catalog"`
	Allocation Allocation `yaml:"allocation"`
	Output     Output     `yaml:"output"`
	Calendar   Calendar   `yaml:"calendar"`
	Schedule   Schedule   `yaml:"schedule"`
	Server     Server     `yaml:"server"`
	Log        Log        `yaml:"log"`
}

// Account is a tracked account and its ledger file.
type Account struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
	// Optional accounts do not take part in the common horizon.
	Optional bool   `yaml:"optional"`
	Encoding string `yaml:"encoding"`
}

// Ledger describes the layout of the ledger files.
type Ledger struct {
	Encoding   string        `yaml:"encoding"`
	HeaderRows int           `yaml:"header_rows"`
	Columns    LedgerColumns `yaml:"columns"`
}

// LedgerColumns are zero-based column indexes.
type LedgerColumns struct {
	Date       int `yaml:"date"`
	Deposit    int `yaml:"deposit"`
	Withdrawal int `yaml:"withdrawal"`
	Value      int `yaml:"value"`
}

// Period optionally bounds the evaluated dates.
type Period struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Dividends describes the dividend journal.
type Dividends struct {
	File       string          `yaml:"file"`
	Encoding   string          `yaml:"encoding"`
	HeaderRows int             `yaml:"header_rows"`
	Columns    DividendColumns `yaml:"columns"`
}

// DividendColumns are zero-based column indexes.
type DividendColumns struct {
	Date    int `yaml:"date"`
	Amount  int `yaml:"amount"`
	Account int `yaml:"account"`
}

// Holdings describes the current positions and account balances.
type Holdings struct {
	File     string `yaml:"file"`
	Balances string `yaml:"balances"`
	Encoding string `yaml:"encoding"`
}

// Catalog describes the classification and target source.
type Catalog struct {
	File string `yaml:"file"`
	// Format is "yaml" or "settings". It is derived from the file
	// extension if empty.
	Format   string `yaml:"format"`
	Encoding string `yaml:"encoding"`
}

// Allocation configures the weight reconciliation.
type Allocation struct {
	// Baseline is "live" or a fixed portfolio value for target amounts.
	Baseline               string `yaml:"baseline"`
	AlternativeClass       string `yaml:"alternative_class"`
	AlternativeNationality string `yaml:"alternative_nationality"`
	AlternativeLabel       string `yaml:"alternative_label"`
	Unclassified           string `yaml:"unclassified"`
	GoldCode               string `yaml:"gold_code"`
}

// Output configures where results go.
type Output struct {
	Dir      string `yaml:"dir"`
	Database string `yaml:"database"`
	// BOM prefixes CSV files with a UTF-8 byte order mark for spreadsheets.
	BOM bool `yaml:"bom"`
}

// Calendar configures the business day oracle.
type Calendar struct {
	Holidays []string `yaml:"holidays"`
	Weekend  []string `yaml:"weekend"`
	MaxBack  int      `yaml:"max_back"`
}

// Schedule configures recurring runs.
type Schedule struct {
	Cron string `yaml:"cron"`
}

// Server configures the results API.
type Server struct {
	Listen string `yaml:"listen"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads the configuration at path. A .env file next to it is loaded
// into the environment first; environment variables override the file.
func Load(path string) (*Config, error) {
	dir := filepath.Dir(path)
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.applyEnv()
	cfg.resolve(dir)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode strictly decodes a configuration and applies defaults.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, err
	}
	return cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Ledger: Ledger{
			Encoding:   "utf-8",
			HeaderRows: 1,
			Columns:    LedgerColumns{Date: 0, Deposit: 1, Withdrawal: 2, Value: 4},
		},
		Dividends: Dividends{
			HeaderRows: 1,
			Columns:    DividendColumns{Date: 0, Amount: 5, Account: 6},
		},
		Allocation: Allocation{
			Baseline:               "live",
			AlternativeClass:       "대체투자",
			AlternativeNationality: "기타",
			AlternativeLabel:       "대체투자 (금현물)",
			Unclassified:           "미분류",
			GoldCode:               "GOLD",
		},
		Output: Output{
			Dir: "results",
			BOM: true,
		},
		Calendar: Calendar{
			Weekend: []string{"saturday", "sunday"},
			MaxBack: 5,
		},
		Schedule: Schedule{Cron: "0 30 7 * * *"},
		Server:   Server{Listen: ":8080"},
		Log:      Log{Level: "info"},
	}
}

func (c *Config) applyEnv() {
	c.Log.Level = getEnv("FOLIO_LOG_LEVEL", c.Log.Level)
	c.Output.Dir = getEnv("FOLIO_OUTPUT_DIR", c.Output.Dir)
	c.Output.Database = getEnv("FOLIO_DATABASE", c.Output.Database)
	c.Server.Listen = getEnv("FOLIO_LISTEN", c.Server.Listen)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) resolve(dir string) {
	for i := range c.Accounts {
		c.Accounts[i].File = resolvePath(dir, c.Accounts[i].File)
	}
	c.Dividends.File = resolvePath(dir, c.Dividends.File)
	c.Holdings.File = resolvePath(dir, c.Holdings.File)
	c.Holdings.Balances = resolvePath(dir, c.Holdings.Balances)
	c.Catalog.File = resolvePath(dir, c.Catalog.File)
	c.Output.Dir = resolvePath(dir, c.Output.Dir)
	c.Output.Database = resolvePath(dir, c.Output.Database)
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) || p == ":memory:" {
		return p
	}
	return filepath.Join(dir, p)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return errors.New("no accounts configured")
	}
	names := make(map[string]bool)
	for _, a := range c.Accounts {
		if a.Name == "" || a.File == "" {
			return fmt.Errorf("account %q: name and file are required", a.Name)
		}
		if names[a.Name] {
			return fmt.Errorf("duplicate account %q", a.Name)
		}
		names[a.Name] = true
	}
	if _, err := c.Baseline(); err != nil {
		return err
	}
	if _, err := c.DatePeriod(); err != nil {
		return err
	}
	if _, err := c.HolidayDates(); err != nil {
		return err
	}
	if _, err := c.WeekendDays(); err != nil {
		return err
	}
	if _, err := c.CatalogFormat(); err != nil {
		return err
	}
	return nil
}

// AccountNames returns the names of all accounts in configuration order.
func (c *Config) AccountNames() []string {
	var res []string
	for _, a := range c.Accounts {
		res = append(res, a.Name)
	}
	return res
}

// RequiredAccounts returns the accounts which determine the common
// horizon.
func (c *Config) RequiredAccounts() []string {
	var res []string
	for _, a := range c.Accounts {
		if !a.Optional {
			res = append(res, a.Name)
		}
	}
	return res
}

// Baseline returns the fixed allocation baseline, or an invalid value if
// the live portfolio total is used.
func (c *Config) Baseline() (decimal.NullDecimal, error) {
	s := strings.TrimSpace(c.Allocation.Baseline)
	if s == "" || strings.EqualFold(s, "live") {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("allocation baseline: expected \"live\" or an amount, got %q", s)
	}
	if !d.IsPositive() {
		return decimal.NullDecimal{}, fmt.Errorf("allocation baseline must be positive, got %s", d)
	}
	return decimal.NewNullDecimal(d), nil
}

// DatePeriod returns the configured evaluation period.
func (c *Config) DatePeriod() (date.Period, error) {
	var (
		res date.Period
		err error
	)
	if res.Start, err = parseOptionalDate(c.Period.Start); err != nil {
		return res, fmt.Errorf("period start: %w", err)
	}
	if res.End, err = parseOptionalDate(c.Period.End); err != nil {
		return res, fmt.Errorf("period end: %w", err)
	}
	if !res.Start.IsZero() && !res.End.IsZero() && res.End.Before(res.Start) {
		return res, fmt.Errorf("period %s ends before it starts", res)
	}
	return res, nil
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(date.Layout, s)
}

// HolidayDates returns the configured holidays.
func (c *Config) HolidayDates() ([]time.Time, error) {
	var res []time.Time
	for _, s := range c.Calendar.Holidays {
		d, err := time.Parse(date.Layout, s)
		if err != nil {
			return nil, fmt.Errorf("calendar holiday: %w", err)
		}
		res = append(res, d)
	}
	return res, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// WeekendDays returns the configured weekend days.
func (c *Config) WeekendDays() ([]time.Weekday, error) {
	var res []time.Weekday
	for _, s := range c.Calendar.Weekend {
		d, ok := weekdays[strings.ToLower(s)]
		if !ok {
			return nil, fmt.Errorf("calendar weekend: unknown weekday %q", s)
		}
		res = append(res, d)
	}
	return res, nil
}

// Catalog formats.
const (
	FormatYAML     = "yaml"
	FormatSettings = "settings"
)

// CatalogFormat returns the format of the catalog file.
func (c *Config) CatalogFormat() (string, error) {
	switch f := strings.ToLower(c.Catalog.Format); f {
	case FormatYAML, FormatSettings:
		return f, nil
	case "":
		switch strings.ToLower(filepath.Ext(c.Catalog.File)) {
		case ".yaml", ".yml", "":
			return FormatYAML, nil
		case ".csv":
			return FormatSettings, nil
		}
		return "", fmt.Errorf("catalog %s: cannot derive format from extension", c.Catalog.File)
	default:
		return "", fmt.Errorf("catalog: unknown format %q", c.Catalog.Format)
	}
}

// EncodingOr returns the account's encoding, or def if none is set.
func (a Account) EncodingOr(def string) string {
	if a.Encoding != "" {
		return a.Encoding
	}
	return def
}
