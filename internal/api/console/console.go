package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	app "annotation-survey/internal/application"
	"annotation-survey/internal/domain/entity"
)

const helpText = `Commands:
  start                      begin or resume the survey
  tool select|draw           switch annotation tool
  category deer|rock|bear    object type for new boxes
  down|move|up <x> <y>       pointer events on the current image
  key <name>                 Delete, Backspace, Escape or g, b, r, ArrowLeft, ArrowRight
  delete                     delete the selected box
  clear                      delete all boxes on the current image
  next | prev | image <n>    navigate images of the current task
  boxes                      list boxes on the current image
  classify                   go to the classification task
  rate good|bad [confidence] rate the current image
  clear-rating               remove the rating of the current image
  finish                     complete the survey and upload it, every image must be rated
  progress | status          show progress and sync state
  export [path]              write the survey document as JSON
  stats                      fetch server statistics
  reset                      discard local data and start over
  quit`

var (
	errNotStarted  = errors.New("survey is not started, run start first")
	errNotAllRated = errors.New("rate every image before finishing")
)

// Console построчный клиент опроса, события указателя и клавиш подаются командами
type Console struct {
	survey *app.Survey
	sync   *app.SyncService
	out    io.Writer

	exportDir  string
	annotator  *app.Annotator
	classifier *app.Classifier
}

// New создаёт консольный клиент, экспорт по умолчанию пишется в exportDir
func New(survey *app.Survey, sync *app.SyncService, out io.Writer, exportDir string) *Console {
	return &Console{
		survey:    survey,
		sync:      sync,
		out:       out,
		exportDir: exportDir,
	}
}

// Run читает команды до конца ввода или quit
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	c.printf("Survey session %s, type help for commands\n", c.survey.Document().SessionID)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		quit, err := c.Execute(ctx, scanner.Text())
		if err != nil {
			c.printf("error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

// Execute выполняет одну команду
func (c *Console) Execute(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		c.printf("%s\n", helpText)
		return false, nil
	case "start":
		return false, c.start(ctx)
	case "tool":
		return false, c.tool(args)
	case "category":
		return false, c.category(args)
	case "down", "move", "up":
		return false, c.pointer(ctx, cmd, args)
	case "key":
		return false, c.key(ctx, args)
	case "delete":
		return false, c.withAnnotator(func(a *app.Annotator) error { return a.DeleteSelected(ctx) })
	case "clear":
		return false, c.withAnnotator(func(a *app.Annotator) error { return a.ClearAll(ctx) })
	case "next", "prev":
		return false, c.navigate(ctx, cmd)
	case "image":
		return false, c.image(ctx, args)
	case "boxes":
		return false, c.withAnnotator(func(a *app.Annotator) error {
			c.printBoxes(a)
			return nil
		})
	case "classify":
		return false, c.classify(ctx)
	case "rate":
		return false, c.rate(ctx, args)
	case "clear-rating":
		return false, c.withClassifier(func(cl *app.Classifier) error { return cl.ClearRating(ctx) })
	case "finish":
		return false, c.finish(ctx)
	case "progress":
		c.printProgress()
		return false, nil
	case "status":
		c.printStatus()
		return false, nil
	case "export":
		return false, c.export(args)
	case "stats":
		return false, c.stats(ctx)
	case "reset":
		return false, c.reset(ctx)
	default:
		return false, fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *Console) start(ctx context.Context) error {
	if err := c.sync.StartSurvey(ctx); err != nil {
		return err
	}
	a, err := app.NewAnnotator(ctx, c.survey)
	if err != nil {
		return err
	}
	c.annotator, c.classifier = a, nil
	c.printf("Annotation: image %d/%d %s\n", a.ImageIndex()+1, len(c.survey.AnnotationImages()), a.ImagePath())
	return nil
}

func (c *Console) tool(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: tool select|draw")
	}
	return c.withAnnotator(func(a *app.Annotator) error {
		return a.SetTool(app.ToolMode(strings.ToLower(args[0])))
	})
}

func (c *Console) category(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: category deer|rock|bear")
	}
	category, err := entity.ParseCategory(strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	return c.withAnnotator(func(a *app.Annotator) error { return a.SetCategory(category) })
}

func (c *Console) pointer(ctx context.Context, event string, args []string) error {
	p, err := parsePoint(args)
	if err != nil {
		return err
	}
	return c.withAnnotator(func(a *app.Annotator) error {
		switch event {
		case "down":
			a.PointerDown(p)
			if sel := a.State().Selection; sel != "" {
				c.printf("Selected %s\n", sel)
			}
		case "move":
			a.PointerMove(p)
			if preview, ok := a.Preview(); ok {
				c.printf("Preview %s\n", formatBox(preview))
			}
		case "up":
			box, committed, err := a.PointerUp(ctx, p)
			if committed {
				c.printf("Added %s %s\n", box.ID, formatBox(box))
			}
			return err
		}
		return nil
	})
}

func (c *Console) key(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: key <name>")
	}
	if c.classifier != nil {
		if err := c.classifier.KeyDown(ctx, args[0]); err != nil {
			return err
		}
		c.printClassification()
		return nil
	}
	return c.withAnnotator(func(a *app.Annotator) error { return a.KeyDown(ctx, args[0]) })
}

func (c *Console) navigate(ctx context.Context, dir string) error {
	if c.classifier != nil {
		var moved bool
		var err error
		if dir == "next" {
			moved, err = c.classifier.Next(ctx)
		} else {
			moved, err = c.classifier.Prev(ctx)
		}
		if err != nil {
			return err
		}
		if !moved && dir == "next" {
			c.printf("Last image, run finish when all images are rated\n")
		}
		c.printClassification()
		return nil
	}

	return c.withAnnotator(func(a *app.Annotator) error {
		var moved bool
		var err error
		if dir == "next" {
			moved, err = a.Next(ctx)
		} else {
			moved, err = a.Prev(ctx)
		}
		if err != nil {
			return err
		}
		if !moved && dir == "next" {
			c.printf("Last image, run classify to continue\n")
		}
		c.printf("Annotation: image %d/%d %s\n", a.ImageIndex()+1, len(c.survey.AnnotationImages()), a.ImagePath())
		return nil
	})
}

func (c *Console) image(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: image <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("image number: %w", err)
	}
	if c.classifier != nil {
		if err := c.classifier.GoTo(ctx, n-1); err != nil {
			return err
		}
		c.printClassification()
		return nil
	}
	return c.withAnnotator(func(a *app.Annotator) error {
		if err := a.GoTo(ctx, n-1); err != nil {
			return err
		}
		c.printBoxes(a)
		return nil
	})
}

func (c *Console) classify(ctx context.Context) error {
	if c.annotator == nil {
		return errNotStarted
	}
	if !c.annotator.Complete() {
		done := len(c.survey.Document().AnnotationProgress.CompletedImages)
		c.printf("Continuing with %d of %d images annotated\n", done, len(c.survey.AnnotationImages()))
	}
	cl, err := app.NewClassifier(ctx, c.survey)
	if err != nil {
		return err
	}
	c.classifier = cl
	c.printClassification()
	return nil
}

func (c *Console) rate(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: rate good|bad [low|medium|high]")
	}
	rating, err := entity.ParseRating(strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	var confidence entity.Confidence
	if len(args) == 2 {
		if confidence, err = entity.ParseConfidence(strings.ToLower(args[1])); err != nil {
			return err
		}
	}
	return c.withClassifier(func(cl *app.Classifier) error {
		if err := cl.Rate(ctx, rating, confidence); err != nil {
			return err
		}
		c.printClassification()
		return nil
	})
}

func (c *Console) finish(ctx context.Context) error {
	if c.annotator == nil {
		return errNotStarted
	}
	if c.classifier == nil || !c.classifier.AllRated() {
		return errNotAllRated
	}
	if err := c.sync.Complete(ctx); err != nil {
		return err
	}
	c.annotator, c.classifier = nil, nil
	c.printf("Survey complete, thank you\n")
	c.printSummary()
	c.printStatus()
	return nil
}

func (c *Console) export(args []string) error {
	name, data, err := c.survey.Export()
	if err != nil {
		return err
	}
	path := filepath.Join(c.exportDir, name)
	if len(args) > 0 {
		path = args[0]
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	c.printf("Exported to %s\n", path)
	return nil
}

func (c *Console) stats(ctx context.Context) error {
	stats, err := c.sync.Stats(ctx)
	if err != nil {
		return err
	}
	c.printf("Sessions %d (completed %d), boxes %d, ratings %d\n",
		stats.TotalSessions, stats.CompletedSessions, stats.TotalAnnotations, stats.TotalClassifications)
	return nil
}

func (c *Console) reset(ctx context.Context) error {
	if err := c.survey.Dispatch(ctx, app.Reset{}); err != nil {
		return err
	}
	c.annotator, c.classifier = nil, nil
	c.printf("Survey reset, new session %s\n", c.survey.Document().SessionID)
	return nil
}

func (c *Console) withAnnotator(fn func(a *app.Annotator) error) error {
	if c.annotator == nil {
		return errNotStarted
	}
	if c.classifier != nil {
		return errors.New("annotation is finished, use classification commands")
	}
	return fn(c.annotator)
}

func (c *Console) withClassifier(fn func(cl *app.Classifier) error) error {
	if c.classifier == nil {
		return errors.New("classification is not open, run classify first")
	}
	return fn(c.classifier)
}

func (c *Console) printBoxes(a *app.Annotator) {
	boxes := a.Boxes()
	c.printf("Image %d %s: %d boxes\n", a.ImageIndex()+1, a.ImagePath(), len(boxes))
	for _, b := range boxes {
		c.printf("  %s %s\n", b.ID, formatBox(b))
	}
}

func (c *Console) printClassification() {
	cl := c.classifier
	rating := "not rated"
	if data, ok := cl.Current(); ok {
		rating = string(data.Classification.Rating)
		if data.Classification.Confidence != "" {
			rating += " (" + string(data.Classification.Confidence) + ")"
		}
	}
	c.printf("Classification: image %d/%d %s, %s\n", cl.ImageIndex()+1, len(c.survey.ClassificationImages()), cl.ImagePath(), rating)
}

func (c *Console) printSummary() {
	sum := c.survey.Document().Summary()

	counts := make([]string, 0, len(entity.Categories()))
	for _, cat := range entity.Categories() {
		counts = append(counts, fmt.Sprintf("%s %d", cat.Label(), sum.BoxesByCategory[cat]))
	}
	c.printf("Annotated images: %d, boxes: %d (%s)\n", sum.AnnotatedImages, sum.TotalBoxes, strings.Join(counts, ", "))
	c.printf("Rated images: %d (good %d, bad %d)\n", sum.RatedImages, sum.GoodRatings, sum.BadRatings)
	c.printf("Duration: %d min\n", sum.DurationMinutes)
}

func (c *Console) printProgress() {
	p := c.survey.Progress()
	c.printf("Annotation %.0f%%, classification %.0f%%, overall %.0f%%\n", p.Annotation, p.Classification, p.Overall)
}

func (c *Console) printStatus() {
	s := c.sync.Status()
	switch {
	case s.Loading:
		c.printf("Sync: in progress\n")
	case s.Error != "":
		c.printf("Sync: %s\n", s.Error)
	case !s.LastSavedAt.IsZero():
		c.printf("Sync: saved at %s\n", s.LastSavedAt.Format("15:04:05"))
	default:
		c.printf("Sync: not saved yet\n")
	}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func parsePoint(args []string) (entity.Point, error) {
	if len(args) != 2 {
		return entity.Point{}, errors.New("expected <x> <y>")
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return entity.Point{}, fmt.Errorf("x: %w", err)
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return entity.Point{}, fmt.Errorf("y: %w", err)
	}
	return entity.Point{X: x, Y: y}, nil
}

func formatBox(b entity.BoundingBox) string {
	return fmt.Sprintf("%s at (%g, %g) %gx%g", b.ObjectType.Label(), b.X, b.Y, b.Width, b.Height)
}
