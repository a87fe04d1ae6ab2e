package cmd

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	config "github.com/callendorph/mturkemu/internal/configs"
	"github.com/callendorph/mturkemu/internal/questions"
	repository "github.com/callendorph/mturkemu/internal/repositories"
	"github.com/callendorph/mturkemu/internal/services"
)

var (
	seedUsername string
	seedEmail    string
	seedName     string
	seedBalance  string
	seedCountry  string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create an account with system qualifications",
	Long: "Creates a paired worker/requester account with API credentials " +
		"and grants the worker the built-in system qualifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			log.Info(".env file not found, using environment variables")
		}

		cfg := config.Load()
		database := config.NewDatabaseClient(cfg.DatabaseDSN)

		accountRepo := repository.NewAccountRepository(database)
		taskRepo := repository.NewTaskRepository(database)
		qualRepo := repository.NewQualRepository(database)
		paymentRepo := repository.NewPaymentRepository(database)

		validator := questions.NewValidator()
		qualSvc := services.NewQualService(database, qualRepo, taskRepo,
			accountRepo, validator, services.SystemClock)
		accountSvc := services.NewAccountService(database, accountRepo,
			taskRepo, paymentRepo)
		seeder := services.NewSeedService(accountSvc, qualSvc, accountRepo, qualRepo)

		balance, err := decimal.NewFromString(seedBalance)
		if err != nil {
			log.Fatalf("invalid balance %q: %v", seedBalance, err)
		}

		worker, requester, credential, err := seeder.SeedAccount(
			context.Background(), services.SeedParams{
				Username: seedUsername,
				Email:    seedEmail,
				Name:     seedName,
				Balance:  balance,
				Country:  seedCountry,
			})
		if err != nil {
			return err
		}

		log.Info("account ready",
			"worker", worker.ExternalID,
			"requester", requester.ExternalID,
			"access_key", credential.AccessKey,
			"secret_key", credential.SecretKey)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedUsername, "username", "", "login name (required)")
	seedCmd.Flags().StringVar(&seedEmail, "email", "", "contact email")
	seedCmd.Flags().StringVar(&seedName, "name", "", "display name for the requester role")
	seedCmd.Flags().StringVar(&seedBalance, "balance", "10000.00", "initial requester balance")
	seedCmd.Flags().StringVar(&seedCountry, "country", "US", "worker locale country code")
	_ = seedCmd.MarkFlagRequired("username")
	rootCmd.AddCommand(seedCmd)
}
