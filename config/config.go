package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/warp/entitlement-engine/generic"
	"github.com/warp/entitlement-engine/identity"
	"github.com/warp/entitlement-engine/overtime"
	"github.com/warp/entitlement-engine/parental"
	"github.com/warp/entitlement-engine/sickleave"
	"github.com/warp/entitlement-engine/vacation"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	LeaveTypes LeaveTypeConfig
	PolicyFile string
	Policy     PolicyFile
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	Path string
}

// LeaveTypeConfig holds the record IDs of the well-known leave types. Empty
// means not configured.
type LeaveTypeConfig struct {
	Vacation string
	Sick     string
	Parental string
	Overtime string
}

// Refs converts the configured IDs to engine references.
func (c LeaveTypeConfig) Refs() generic.LeaveTypeRefs {
	return generic.LeaveTypeRefs{
		Vacation: generic.RefOf(c.Vacation),
		Sick:     generic.RefOf(c.Sick),
		Parental: generic.RefOf(c.Parental),
		Overtime: generic.RefOf(c.Overtime),
	}
}

// =============================================================================
// POLICY FILE - Optional TOML overrides of the statutory defaults
// =============================================================================

// PolicyFile mirrors the TOML policy file. Keys missing from the file keep
// their defaults.
//
//	[vacation]
//	annual_days = 25
//	pay_percent = 12
//	allow_negative = false
//
//	[sick_leave]
//	chain = "full"          # or "single"
//
//	[parental]
//	supplement_default_percent = 10
//
//	[overtime]
//	monthly_cap_hours = 48
//	yearly_cap_hours = 200
//	month_hours = 168
//
//	[identity]
//	century = "fixed19"     # or "reference"
type PolicyFile struct {
	Vacation struct {
		AnnualDays    float64 `toml:"annual_days"`
		PayPercent    float64 `toml:"pay_percent"`
		AllowNegative bool    `toml:"allow_negative"`
	} `toml:"vacation"`

	SickLeave struct {
		Chain string `toml:"chain"`
	} `toml:"sick_leave"`

	Parental struct {
		SupplementDefaultPercent float64 `toml:"supplement_default_percent"`
	} `toml:"parental"`

	Overtime struct {
		MonthlyCapHours float64 `toml:"monthly_cap_hours"`
		YearlyCapHours  float64 `toml:"yearly_cap_hours"`
		MonthHours      float64 `toml:"month_hours"`
	} `toml:"overtime"`

	Identity struct {
		Century string `toml:"century"`
	} `toml:"identity"`
}

// DefaultPolicyFile returns the statutory defaults.
func DefaultPolicyFile() PolicyFile {
	var p PolicyFile
	p.Vacation.AnnualDays = 25
	p.Vacation.PayPercent = 12
	p.SickLeave.Chain = string(sickleave.ChainFull)
	p.Parental.SupplementDefaultPercent = 10
	p.Overtime.MonthlyCapHours = 48
	p.Overtime.YearlyCapHours = 200
	p.Overtime.MonthHours = 168
	p.Identity.Century = string(identity.CenturyFixed19)
	return p
}

// LoadPolicyFile decodes path over the defaults. Unknown keys are rejected.
func LoadPolicyFile(path string) (PolicyFile, error) {
	p := DefaultPolicyFile()
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return PolicyFile{}, fmt.Errorf("decode policy file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return PolicyFile{}, fmt.Errorf("unknown policy key %q in %s", undecoded[0].String(), path)
	}
	return p, p.Validate()
}

func (p PolicyFile) Validate() error {
	switch sickleave.ChainMode(p.SickLeave.Chain) {
	case sickleave.ChainFull, sickleave.ChainSingleHop:
	default:
		return fmt.Errorf("invalid sick_leave.chain %q", p.SickLeave.Chain)
	}
	switch identity.CenturyRule(p.Identity.Century) {
	case identity.CenturyFixed19, identity.CenturyFromReference:
	default:
		return fmt.Errorf("invalid identity.century %q", p.Identity.Century)
	}
	if p.Vacation.AnnualDays <= 0 {
		return fmt.Errorf("vacation.annual_days must be positive")
	}
	if p.Overtime.MonthlyCapHours <= 0 || p.Overtime.YearlyCapHours <= 0 || p.Overtime.MonthHours <= 0 {
		return fmt.Errorf("overtime caps and month hours must be positive")
	}
	return nil
}

func (p PolicyFile) VacationPolicy() vacation.Policy {
	return vacation.Policy{
		AnnualDays:    decimal.NewFromFloat(p.Vacation.AnnualDays),
		AllowNegative: p.Vacation.AllowNegative,
		PayPercent:    decimal.NewFromFloat(p.Vacation.PayPercent),
	}
}

func (p PolicyFile) SickLeavePolicy() sickleave.Policy {
	policy := sickleave.DefaultPolicy()
	policy.Chain = sickleave.ChainMode(p.SickLeave.Chain)
	return policy
}

func (p PolicyFile) ParentalPolicy() parental.Policy {
	policy := parental.DefaultPolicy()
	policy.SupplementDefaultPercent = decimal.NewFromFloat(p.Parental.SupplementDefaultPercent)
	return policy
}

func (p PolicyFile) OvertimePolicy() overtime.Policy {
	policy := overtime.DefaultPolicy()
	policy.MonthlyCapHours = decimal.NewFromFloat(p.Overtime.MonthlyCapHours)
	policy.YearlyCapHours = decimal.NewFromFloat(p.Overtime.YearlyCapHours)
	policy.MonthHours = decimal.NewFromFloat(p.Overtime.MonthHours)
	return policy
}

func (p PolicyFile) IdentityValidator() identity.Validator {
	v := identity.DefaultValidator()
	v.Century = identity.CenturyRule(p.Identity.Century)
	return v
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads an optional .env file, then the environment, then the optional
// policy file named by POLICY_FILE.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	config := &Config{}

	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	config.Database = DatabaseConfig{
		Path: getEnv("DB_PATH", "entitlements.db"),
	}

	config.LeaveTypes = LeaveTypeConfig{
		Vacation: getEnv("LEAVE_TYPE_VACATION", ""),
		Sick:     getEnv("LEAVE_TYPE_SICK", ""),
		Parental: getEnv("LEAVE_TYPE_PARENTAL", ""),
		Overtime: getEnv("LEAVE_TYPE_OVERTIME", ""),
	}

	config.PolicyFile = getEnv("POLICY_FILE", "")
	config.Policy = DefaultPolicyFile()
	if config.PolicyFile != "" {
		if config.Policy, err = LoadPolicyFile(config.PolicyFile); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT out of range: %d", c.App.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	return c.Policy.Validate()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
