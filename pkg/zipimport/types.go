package zipimport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Row is one importable postal-code record, derived from a source line.
// CityKana and TownKana are already widened to full-width.
type Row struct {
	Code     string
	Zipcode  string
	City     string
	Town     string
	Chome    string
	CityKana string
	TownKana string
	StartYM  string
	EndYM    string
}

// Values returns the row in Columns order with empty nullable values
// replaced by nil, ready for drivers that bind nil as SQL NULL.
func (r Row) Values() []any {
	return []any{
		r.Code,
		nullIfEmpty(r.Zipcode),
		nullIfEmpty(r.City),
		nullIfEmpty(r.Town),
		nullIfEmpty(r.Chome),
		nullIfEmpty(r.CityKana),
		nullIfEmpty(r.TownKana),
		r.StartYM,
		r.EndYM,
	}
}

// Args returns the row in Columns order without NULL coercion.
// Statements that apply NULLIF(?, '') themselves bind these.
func (r Row) Args() []any {
	return []any{
		r.Code,
		r.Zipcode,
		r.City,
		r.Town,
		r.Chome,
		r.CityKana,
		r.TownKana,
		r.StartYM,
		r.EndYM,
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Phase is a state of the import run.
type Phase int

const (
	PhaseInit      Phase = iota // resolving config, connecting, checking the source
	PhaseLoading                // truncating the destination table
	PhaseCounting               // pre-scanning the source for its line count
	PhaseStreaming              // decoding, filtering and persisting records
	PhaseDone                   // stream exhausted
	PhaseAborted                // fatal error
)

// String returns a human-readable name for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseLoading:
		return "loading"
	case PhaseCounting:
		return "counting"
	case PhaseStreaming:
		return "streaming"
	case PhaseDone:
		return "done"
	case PhaseAborted:
		return "aborted"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// RunState carries the counters of one import run. It is owned by the
// importer and handed back to the caller when the run ends.
type RunState struct {
	RunID uuid.UUID
	Phase Phase

	// AbortedIn is the phase that was running when the run aborted.
	AbortedIn Phase

	// TotalLines is counted once before streaming starts.
	TotalLines int

	// Processed is incremented for every line handled, including skipped ones.
	Processed int

	// CurrentYearMonth is YYYY*100+MM at run start. It does not change
	// during the run, even across a month boundary.
	CurrentYearMonth int

	Loaded    int // rows persisted
	Skipped   int // rows whose validity period has ended
	Failed    int // rows rejected by the destination (row mode)
	Malformed int // lines that could not be parsed (skip policy)

	StartedAt  time.Time
	FinishedAt time.Time
}

// Streamed reports whether the run got as far as streaming records.
func (s *RunState) Streamed() bool {
	if s.Phase == PhaseAborted {
		return s.AbortedIn >= PhaseStreaming
	}
	return s.Phase >= PhaseStreaming
}

// Percent returns Processed as a percentage of TotalLines.
func (s *RunState) Percent() float64 {
	if s.TotalLines == 0 {
		return 0
	}
	return float64(s.Processed) / float64(s.TotalLines) * 100
}

// Mode selects how rows are sent to the destination.
type Mode string

const (
	// ModeRow inserts every row as its own statement; failures are logged and the run continues.
	ModeRow Mode = "row"

	// ModeBatch inserts rows in transactional batches; a failure aborts the run.
	ModeBatch Mode = "batch"
)

// ParseMode converts a configuration value to a Mode. Empty selects ModeRow.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeRow):
		return ModeRow, nil
	case string(ModeBatch):
		return ModeBatch, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want row or batch): %w", s, ErrInvalidConfig)
	}
}

// MalformedPolicy decides what happens to a line that cannot be parsed.
type MalformedPolicy string

const (
	// MalformedAbort stops the run on the first malformed line.
	MalformedAbort MalformedPolicy = "abort"

	// MalformedSkip logs the line number and reason, then continues.
	MalformedSkip MalformedPolicy = "skip"
)

// ParseMalformedPolicy converts a configuration value. Empty selects MalformedAbort.
func ParseMalformedPolicy(s string) (MalformedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(MalformedAbort):
		return MalformedAbort, nil
	case string(MalformedSkip):
		return MalformedSkip, nil
	default:
		return "", fmt.Errorf("unknown malformed-record policy %q (want abort or skip): %w", s, ErrInvalidConfig)
	}
}

// ImportConfig contains all parameters needed for an import run.
type ImportConfig struct {
	// SourcePath is the postal-code file to import.
	SourcePath string

	// ConnectionString selects the backend by scheme (postgres, mysql, sqlite, sqlserver).
	ConnectionString string

	// Table is the destination table, optionally schema-qualified.
	Table string

	Mode        Mode
	BatchSize   int
	OnMalformed MalformedPolicy

	// Auth holds cloud IAM settings for PostgreSQL destinations.
	Auth AuthConfig
}

// Validate checks that the ImportConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *ImportConfig) Validate() error {
	var errs []error

	if c.SourcePath == "" {
		errs = append(errs, fmt.Errorf("source path is required: %w", ErrInvalidConfig))
	}

	if c.ConnectionString == "" {
		errs = append(errs, fmt.Errorf("connection string is required: %w", ErrInvalidConfig))
	}

	if c.Table == "" {
		errs = append(errs, fmt.Errorf("table name is required: %w", ErrInvalidConfig))
	}

	if c.Mode != ModeRow && c.Mode != ModeBatch {
		errs = append(errs, fmt.Errorf("mode must be row or batch, got %q: %w", c.Mode, ErrInvalidConfig))
	}

	if c.Mode == ModeBatch && c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d: %w", c.BatchSize, ErrInvalidConfig))
	}

	if c.OnMalformed != MalformedAbort && c.OnMalformed != MalformedSkip {
		errs = append(errs, fmt.Errorf("malformed-record policy must be abort or skip, got %q: %w", c.OnMalformed, ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// AuthConfig carries the cloud authentication settings for PostgreSQL.
type AuthConfig struct {
	Method AuthMethod

	AWSRegion      string
	GoogleInstance string // project:region:instance

	// If all three Azure values are set, Service Principal authentication is used.
	// Otherwise the DefaultAzureCredential chain is used.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// ConnectionConfig represents parsed PostgreSQL connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	Auth AuthConfig
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// ParseAuthMethod converts a configuration value to an AuthMethod.
// Empty selects AuthMethodStandard.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "aws", "aws-iam":
		return AuthMethodAWSIAM, nil
	case "google", "google-iam", "gcp":
		return AuthMethodGoogleIAM, nil
	case "azure", "entra", "azure-entra-id":
		return AuthMethodAzureEntraID, nil
	default:
		return 0, fmt.Errorf("auth method %q: %w", s, ErrUnsupportedAuthMethod)
	}
}
