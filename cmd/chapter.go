package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"coursecraft/internal/app"
	"coursecraft/internal/course"
)

var timelineFPS int

var chapterCmd = &cobra.Command{
	Use:   "chapter <course> <chapter>",
	Short: "Generate slides and narration for one chapter",
	Long:  `Generate content for a chapter that has none yet. Chapters with slides are left as they are.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runChapter,
}

var timelineCmd = &cobra.Command{
	Use:   "timeline <course> <chapter>",
	Short: "Print the playback timeline of a chapter as JSON",
	Args:  cobra.ExactArgs(2),
	RunE:  runTimeline,
}

func init() {
	timelineCmd.Flags().IntVar(&timelineFPS, "fps", 0, "Frames per second (defaults to content.fps)")
	rootCmd.AddCommand(chapterCmd)
	rootCmd.AddCommand(timelineCmd)
}

func lookupChapter(cmd *cobra.Command, env *environment, courseSlug, chapterSlug string) (*course.Course, *course.Chapter, error) {
	c, err := env.service.Store().GetCourse(cmd.Context(), ownerID, courseSlug)
	if err != nil {
		return nil, nil, fmt.Errorf("course %s: %w", courseSlug, err)
	}
	ch := c.Chapter(chapterSlug)
	if ch == nil {
		return nil, nil, fmt.Errorf("chapter %s: %w", chapterSlug, course.ErrNotFound)
	}
	return c, ch, nil
}

func runChapter(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close(ctx)

	c, ch, err := lookupChapter(cmd, env, args[0], args[1])
	if err != nil {
		return err
	}

	pipeline := app.NewPipeline(env.service, app.PipelineOptionsFromConfig(env.service))
	outcome := pipeline.GenerateChapterContent(ctx, app.ChapterRequestFor(c, ch))
	if outcome.Err != nil {
		return outcome.Err
	}

	if outcome.InProgress {
		fmt.Println(warnStyle.Render(fmt.Sprintf("%s is being generated by another worker", ch.Title)))
		return nil
	}
	if outcome.Skipped {
		fmt.Println(infoStyle.Render(fmt.Sprintf("Slides already generated for %s (%d slides)", ch.Title, len(outcome.Slides))))
		return nil
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ %s: %d slides, %d without audio", ch.Title, len(outcome.Slides), len(outcome.MissingAudio))))
	return nil
}

func runTimeline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close(ctx)

	_, ch, err := lookupChapter(cmd, env, args[0], args[1])
	if err != nil {
		return err
	}

	fps := timelineFPS
	if fps == 0 {
		fps = env.cfg.Content.FPS
	}
	tl, err := app.BuildChapterTimeline(ch, fps)
	if err != nil {
		return fmt.Errorf("fps %d: %w", fps, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(tl)
}

func findChapter(chapters []*course.Chapter, outcome app.ChapterOutcome) string {
	for _, ch := range chapters {
		if ch.ID == outcome.ChapterID {
			return ch.Title
		}
	}
	return outcome.ChapterID.String()
}
