package cli

import (
	"github.com/spf13/cobra"
)

const exampleInvocation = "msgload disaster_messages.csv disaster_categories.csv DisasterResponse.db"

func newRootCmd() *cobra.Command {
	flags := &loadFlagValues{}

	cmd := &cobra.Command{
		Use:   "msgload <messages.csv> <categories.csv> <destination>",
		Short: "Merge, clean and store labelled disaster messages",
		Long: `msgload joins a messages CSV and a categories CSV on their shared id column,
expands the packed category field into one integer column per category,
removes duplicate rows, rewrites the miscoded related value 2 as 0 and
replaces a single table in the destination store with the result.

Arguments:
  messages.csv     Messages file with a header row and an id column
  categories.csv   Categories file with an id column and a packed field such as
                   "related-1;request-0;offer-0"
  destination      SQLite file path (also sqlite://path or file:path)
                   or a postgres:// / postgresql:// connection URL

Configuration precedence:
  flags > MSGLOAD_* environment (a .env file is loaded if present)
        > msgload.yaml > built-in defaults

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (wrong argument count, invalid flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - Destination could not be opened
  20 - Input data error (unreadable file, missing column, malformed row, schema mismatch, empty join)
  21 - Destination table could not be written`,
		Example: "  " + exampleInvocation + `

  # Write to PostgreSQL, dropping categories rows that disagree with the first row
  msgload messages.csv categories.csv postgres://loader@db:5432/etl --on-schema-mismatch skip`,
		Args:         RequireInputsAndDestination,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, args, flags)
		},
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	registerLoadFlags(cmd, flags)
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command with os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return false
	}
	return verbose
}
