package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/landlord/internal/auth"
	"github.com/dukerupert/landlord/internal/database"
	"github.com/dukerupert/landlord/internal/model"
	"github.com/dukerupert/landlord/internal/occupancy"
	"github.com/dukerupert/landlord/internal/store"
)

var (
	seedAdminUser     string
	seedAdminPassword string
	seedAdminEmail    string
	seedAdminName     string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default admin and the property's houses",
	Long: `seed creates an admin account if none exists and adds any of the
property's eleven houses that are missing. Running it again changes nothing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return seed(cmd.Context())
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedAdminUser, "admin-username", "admin", "username for the seeded admin")
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "admin123", "password for the seeded admin")
	seedCmd.Flags().StringVar(&seedAdminEmail, "admin-email", "admin@murithirentals.com", "email for the seeded admin")
	seedCmd.Flags().StringVar(&seedAdminName, "admin-name", "Murithi Admin", "display name for the seeded admin")
}

func ptr[T any](v T) *T { return &v }

var seedHouses = []occupancy.HouseInput{
	{Name: "Bedsitter B1", HouseType: "bedsitter", RentAmount: 8000, Floor: ptr("Ground")},
	{Name: "Bedsitter B2", HouseType: "bedsitter", RentAmount: 8000, Floor: ptr("Ground")},
	{Name: "Bedsitter B3", HouseType: "bedsitter", RentAmount: 8000, Floor: ptr("Ground")},
	{Name: "Bedsitter B4", HouseType: "bedsitter", RentAmount: 8000, Floor: ptr("First")},
	{Name: "Bedsitter B5", HouseType: "bedsitter", RentAmount: 8500, Floor: ptr("First")},
	{Name: "Bedsitter B6", HouseType: "bedsitter", RentAmount: 8000, Floor: ptr("First")},
	{Name: "Single S1", HouseType: "single_room", RentAmount: 5500, Floor: ptr("Ground")},
	{Name: "Single S2", HouseType: "single_room", RentAmount: 5500, Floor: ptr("Ground")},
	{Name: "Single S3", HouseType: "single_room", RentAmount: 5500, Floor: ptr("Ground")},
	{Name: "Single S4", HouseType: "single_room", RentAmount: 5500, Floor: ptr("First")},
	{Name: "Single S5", HouseType: "single_room", RentAmount: 5500, Floor: ptr("First")},
}

func seed(ctx context.Context) error {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	// Tokens are never issued here; the secret only has to be non-empty.
	svc := auth.NewService(db, auth.NewTokens("seed-only-secret", cfg.TokenTTL), logger.With("component", "auth"))
	_, err = svc.Register(ctx, auth.RegisterInput{
		Username: seedAdminUser,
		Password: seedAdminPassword,
		Email:    &seedAdminEmail,
		FullName: &seedAdminName,
	})
	switch {
	case err == nil:
		logger.Warn("admin created, change the password after first login", "username", seedAdminUser)
	case errors.Is(err, model.ErrConflict):
		logger.Info("admin already exists, skipping")
	default:
		return fmt.Errorf("seed admin: %w", err)
	}

	houses := store.NewHouseStore(db)
	coord := occupancy.New(db, nil, nil, logger.With("component", "occupancy"))
	created := 0
	for _, in := range seedHouses {
		exists, err := houses.NameExists(ctx, in.Name, 0)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := coord.CreateHouse(ctx, in); err != nil {
			return fmt.Errorf("seed house %s: %w", in.Name, err)
		}
		created++
	}
	logger.Info("houses seeded", "created", created, "existing", len(seedHouses)-created)
	return nil
}
