package msgload

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Load completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (wrong argument count, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration
	ExitConnectionError = 11 // Failed to open the destination store
	ExitInputError      = 20 // Input data could not be loaded (shape or content)
	ExitWriteError      = 21 // Destination table could not be written
)

const (
	// DefaultTableName is the table the cleaned messages are written to.
	DefaultTableName = "LabelledMessages"

	// DefaultIDColumn is the join key shared by both input files.
	DefaultIDColumn = "id"

	// DefaultCategoriesColumn is the packed category field in the categories file.
	DefaultCategoriesColumn = "categories"

	// DefaultDelimiter separates fields in both input files.
	DefaultDelimiter = ','

	// CategorySeparator separates tokens inside the packed category field.
	CategorySeparator = ";"

	// RelatedCategory is the category whose value 2 is a known miscoding of 0.
	RelatedCategory = "related"

	// DefaultTimeout bounds a whole run.
	DefaultTimeout = 10 * time.Minute

	// DefaultConnectRetryAttempts is the number of retries when connecting
	// to a network store.
	DefaultConnectRetryAttempts = 3

	// DefaultRetryInitialDelay is the delay before the first connection retry.
	DefaultRetryInitialDelay = 200 * time.Millisecond

	// DefaultRetryMaxDelay caps the delay between connection retries.
	DefaultRetryMaxDelay = 10 * time.Second
)
