package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "puzle",
	Short: "1Puzle AI chat server and tools",
	// bare `puzle` runs the server
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; real environment variables win
		_ = godotenv.Load()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume turn events from RabbitMQ",
	RunE:  runWorker,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a running server from the terminal",
	RunE:  runChat,
}

func init() {
	workerCmd.Flags().IntVar(&workerConcurrencyFlag, "concurrency", workerConcurrency(), "parallel event handlers")

	chatCmd.Flags().StringVar(&chatURLFlag, "url", "", "server base url (default http://localhost:$PORT)")
	chatCmd.Flags().StringVarP(&chatUserFlag, "username", "u", "", "log in as this user")
	chatCmd.Flags().StringVarP(&chatPasswordFlag, "password", "p", "", "password for --username")

	rootCmd.AddCommand(serveCmd, migrateCmd, workerCmd, chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
