package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/antelabs/bodyshop/internal/observability"
	"github.com/antelabs/bodyshop/pkg/jobs"
	"github.com/antelabs/bodyshop/pkg/model"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and edit the local job list",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := jobsService()
		if err != nil {
			return err
		}
		list := svc.List()
		if len(list) == 0 {
			fmt.Println("No jobs.")
			return nil
		}
		for _, j := range list {
			fmt.Printf("%-36s  %-19s  %-11s  %s %s (%s)\n",
				j.ID,
				j.CreatedTime().Format("2006-01-02 15:04:05"),
				j.Status,
				j.CarDetails.Make,
				j.CarDetails.Model,
				j.CarDetails.Plate)
		}
		return nil
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one job in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := jobsService()
		if err != nil {
			return err
		}
		job, err := svc.Get(args[0])
		if err != nil {
			return err
		}
		printJob(job)
		return nil
	},
}

var (
	addPlate string
	addMake  string
	addModel string
	addColor string
	addYear  string
)

var jobsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new job from intake",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := jobsService()
		if err != nil {
			return err
		}
		job, err := svc.Create(model.CarDetails{
			Plate: addPlate,
			Make:  addMake,
			Model: addModel,
			Color: addColor,
			Year:  addYear,
		}, "")
		if err != nil {
			return err
		}
		fmt.Printf("Created job %s\n", job.ID)
		return nil
	},
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <id> <intake|assessing|in_progress|completed>",
	Short: "Move a job to a workflow stage",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := jobsService()
		if err != nil {
			return err
		}
		job, err := svc.SetStatus(args[0], model.ParseJobStatus(args[1]))
		if err != nil {
			return err
		}
		fmt.Printf("Job %s is now %s\n", job.ID, job.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsAddCmd)
	jobsCmd.AddCommand(jobsStatusCmd)

	jobsAddCmd.Flags().StringVar(&addPlate, "plate", "", "License plate (required)")
	jobsAddCmd.Flags().StringVar(&addMake, "make", "", "Vehicle make (required)")
	jobsAddCmd.Flags().StringVar(&addModel, "model", "", "Vehicle model (required)")
	jobsAddCmd.Flags().StringVar(&addColor, "color", "", "Vehicle color")
	jobsAddCmd.Flags().StringVar(&addYear, "year", "", "Vehicle year")
	_ = jobsAddCmd.MarkFlagRequired("plate")
	_ = jobsAddCmd.MarkFlagRequired("make")
	_ = jobsAddCmd.MarkFlagRequired("model")
}

func jobsService() (*jobs.Service, error) {
	return jobs.NewService(localStore, observability.CLILogger)
}

func printJob(j model.Job) {
	fmt.Printf("ID:          %s\n", j.ID)
	fmt.Printf("Created:     %s\n", j.CreatedTime().Format(time.RFC3339))
	fmt.Printf("Status:      %s\n", j.Status)
	fmt.Printf("Vehicle:     %s %s (%s)", j.CarDetails.Make, j.CarDetails.Model, j.CarDetails.Plate)
	if j.CarDetails.Color != "" || j.CarDetails.Year != "" {
		fmt.Printf("  %s %s", j.CarDetails.Color, j.CarDetails.Year)
	}
	fmt.Println()
	fmt.Printf("Repair type: %s\n", j.RepairType)
	if len(j.IdentifiedParts) > 0 {
		fmt.Printf("Parts:       %s\n", strings.Join(j.IdentifiedParts, ", "))
	}
	fmt.Printf("Images:      intake=%v damage=%d\n", j.IntakeImage != "", len(j.DamageImages))
	if j.ManualNotes != "" {
		fmt.Printf("Notes:\n%s\n", j.ManualNotes)
	}
}
