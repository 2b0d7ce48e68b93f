package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create demo courses for an owner",
	Long:  `Create the five demo course outlines for --owner. No slides are generated.`,
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close(ctx)

	created, err := env.service.Store().SeedDemoCourses(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, c := range created {
		fmt.Println(successStyle.Render("✓ " + c.Name + " (" + c.Slug + ")"))
	}
	fmt.Printf("Seeded %d courses for %s\n", len(created), ownerID)
	return nil
}
