package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"coursecraft/internal/app"
)

var (
	generateTopic string
	ownerID       string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a full course from a topic",
	Long: `Generate an outline for the topic, save it, then generate slides and
narration for every chapter and wait until all chapters are done.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateTopic, "topic", "t", "", "Topic for the course")
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", "local", "Owner id for created courses")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if generateTopic == "" {
		return errors.New("please provide --topic")
	}

	ctx := cmd.Context()
	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close(ctx)

	var report app.CourseReport
	opts := app.PipelineOptionsFromConfig(env.service)
	opts.OnCourseDone = func(r app.CourseReport) { report = r }
	pipeline := app.NewPipeline(env.service, opts)

	c, err := pipeline.GenerateAndPersistCourse(ctx, generateTopic, ownerID)
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Outline saved: %s (%s)", c.Name, c.Slug)))

	pipeline.Wait()

	for _, outcome := range report.Chapters {
		ch := findChapter(c.Chapters, outcome)
		switch {
		case outcome.Err != nil:
			fmt.Println(warnStyle.Render(fmt.Sprintf("✗ %s: %v", ch, outcome.Err)))
		case outcome.InProgress:
			fmt.Println(infoStyle.Render(fmt.Sprintf("… %s: in progress elsewhere", ch)))
		case len(outcome.MissingAudio) > 0:
			fmt.Println(warnStyle.Render(fmt.Sprintf("✓ %s: %d slides, %d without audio", ch, len(outcome.Slides), len(outcome.MissingAudio))))
		default:
			fmt.Println(successStyle.Render(fmt.Sprintf("✓ %s: %d slides", ch, len(outcome.Slides))))
		}
	}

	if report.Failed() > 0 {
		fmt.Println(infoStyle.Render(fmt.Sprintf("Retry failed chapters with: coursecraft chapter %s <chapter>", c.Slug)))
	}
	return nil
}
