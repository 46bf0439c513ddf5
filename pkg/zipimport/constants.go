package zipimport

// Exit codes. Every fatal condition maps to ExitFailure; callers that need
// finer classification use errors.Is against the sentinel errors.
const (
	ExitSuccess = 0 // Import completed (per-record skips and non-fatal failures allowed)
	ExitFailure = 1 // Any fatal condition
)

// Source record layout. Indices are zero-based positions in the
// comma-separated line.
const (
	// MinFieldCount is the smallest number of fields a record may carry.
	MinFieldCount = 41

	FieldCode     = 0
	FieldZipcode  = 2
	FieldCityKana = 11
	FieldTownKana = 12
	FieldCity     = 20
	FieldTown     = 21
	FieldChome    = 22
	FieldStartYM  = 39
	FieldEndYM    = 40
)

const (
	// OpenEndedYearMonth marks a record that has no end of validity in the source file.
	OpenEndedYearMonth = "000000"

	// MaxYearMonth replaces OpenEndedYearMonth before comparison and storage.
	MaxYearMonth = "999999"
)

const (
	// DefaultBatchSize is the number of rows sent per transaction in batch mode.
	DefaultBatchSize = 1000

	// DefaultConfigFileName is looked up in the working directory when --config is not given.
	DefaultConfigFileName = "zipimport.yaml"

	// ApplicationName identifies import sessions on servers that support it.
	ApplicationName = "zipimport"
)

// Columns lists the destination columns in insert order.
var Columns = []string{
	"code",
	"zipcode",
	"city",
	"town",
	"chome",
	"city_kana",
	"town_kana",
	"start_ym",
	"end_ym",
}

// NullableColumns are stored as NULL when the source value is empty.
var NullableColumns = map[string]bool{
	"zipcode":   true,
	"city":      true,
	"town":      true,
	"chome":     true,
	"city_kana": true,
	"town_kana": true,
}
