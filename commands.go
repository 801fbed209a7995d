package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ByLCY/folio/config"
	"github.com/ByLCY/folio/fonts"
	"github.com/ByLCY/folio/layout"
	"github.com/ByLCY/folio/measure"
	"github.com/ByLCY/folio/project"
	"github.com/ByLCY/folio/renderer"
	canvasrenderer "github.com/ByLCY/folio/renderer/canvas"
)

// loadDocument reads a project file, or wraps a plain text document into a
// project using the configured layout settings.
func loadDocument(path string, cfg *config.Config) (*project.Project, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		store := &project.FileStore{Path: path}
		p, err := store.Load()
		if errors.Is(err, project.ErrNoProject) {
			return nil, fmt.Errorf("project file '%s' does not exist", path)
		}
		return p, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read document: %w", err)
	}
	p := project.New()
	p.Settings = cfg.Layout.Settings()
	p.Content = string(data)
	return p, nil
}

// newMeasurer builds the configured backend. A backend that cannot be
// created leaves pagination in degraded mode instead of failing.
func newMeasurer(cfg *config.Config, log *zap.Logger) layout.TextMeasurer {
	backend, err := measure.ParseBackend(cfg.Measure.Backend)
	if err == nil {
		var m layout.TextMeasurer
		if m, err = measure.New(backend, cfg.Measure.FontFile); err == nil {
			return m
		}
	}
	if !errors.Is(err, measure.ErrUnavailable) {
		log.Warn("Text measurement is unavailable", zap.String("backend", cfg.Measure.Backend), zap.Error(err))
	}
	return nil
}

func paginate(ctx context.Context, path string) (*project.Project, *layout.Result, error) {
	e := envFromContext(ctx)
	p, err := loadDocument(path, e.Cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := p.Paginate(newMeasurer(e.Cfg, e.Log), e.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to paginate '%s': %w", path, err)
	}
	return p, res, nil
}

func renderFonts(cfg *config.Config) map[string]canvasrenderer.Resource {
	out := make(map[string]canvasrenderer.Resource, len(cfg.Render.Fonts))
	for style, src := range cfg.Render.Fonts {
		if strings.HasPrefix(src, "embed:") {
			data, err := fonts.Load(src)
			if err != nil {
				continue
			}
			out[style] = canvasrenderer.Resource{Bytes: data}
			continue
		}
		out[style] = canvasrenderer.Resource{Path: src}
	}
	// body text is drawn with the measurement face so wrapped lines fit the preview
	if _, ok := out[fonts.Regular]; !ok && cfg.Measure.FontFile != "" {
		switch backend, _ := measure.ParseBackend(cfg.Measure.Backend); backend {
		case measure.BackendCanvas, measure.BackendShaper:
			if data, err := fonts.Resolve(cfg.Measure.FontFile); err == nil {
				out[fonts.Regular] = canvasrenderer.Resource{Bytes: data}
			}
		}
	}
	return out
}

func renderDocument(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)
	src := cmd.Args().Get(0)
	if src == "" {
		return errors.New("no SOURCE has been specified")
	}
	dst := cmd.Args().Get(1)
	if dst == "" {
		dst = strings.TrimSuffix(src, filepath.Ext(src)) + ".pdf"
	}

	p, res, err := paginate(ctx, src)
	if err != nil {
		return err
	}
	if fname := cmd.String("layout-json"); fname != "" {
		if err := layout.WriteDebugJSON(res, fname); err != nil {
			return err
		}
	}

	baseDir := cmd.String("assets")
	if baseDir == "" {
		baseDir = filepath.Dir(src)
	}
	var r renderer.Renderer = canvasrenderer.NewRenderer(canvasrenderer.Options{
		BaseDir:     baseDir,
		Settings:    p.Settings,
		Fonts:       renderFonts(e.Cfg),
		Title:       e.Cfg.Render.Title,
		Author:      e.Cfg.Render.Author,
		PageNumbers: e.Cfg.Render.PageNumbers,
		Logger:      e.Log,
	})
	data, err := r.Render(res)
	if err != nil {
		return fmt.Errorf("unable to render PDF: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("unable to create destination directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("unable to write PDF: %w", err)
	}
	e.Log.Info("Preview rendered", zap.String("file", dst), zap.Int("pages", len(res.Pages)), zap.Bool("degraded", res.Degraded))
	return nil
}

func listPages(ctx context.Context, cmd *cli.Command) error {
	src := cmd.Args().Get(0)
	if src == "" {
		return errors.New("no SOURCE has been specified")
	}
	_, res, err := paginate(ctx, src)
	if err != nil {
		return err
	}
	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	if cmd.Bool("json") {
		return layout.EncodeDebugJSON(out, res)
	}
	for i, page := range res.Pages {
		kinds := make([]string, 0, len(page.Blocks))
		for _, b := range page.Blocks {
			kinds = append(kinds, b.Kind.String())
		}
		fmt.Fprintf(out, "%3d  %6.2fcm  %s\n", i+1, page.Height(), strings.Join(kinds, " "))
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	return nil
}

func openProject(cmd *cli.Command) (*project.FileStore, *project.Project, error) {
	path := cmd.Args().Get(0)
	if path == "" {
		return nil, nil, errors.New("no PROJECT has been specified")
	}
	store := &project.FileStore{Path: path}
	p, err := store.Load()
	if errors.Is(err, project.ErrNoProject) {
		p, err = project.New(), nil
	}
	return store, p, err
}

func renumberProject(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)
	store, p, err := openProject(cmd)
	if err != nil {
		return err
	}
	rpt := p.Renumber()
	if err := store.Save(p); err != nil {
		return err
	}
	e.Log.Info("Project renumbered", zap.Int("figures", rpt.Figures), zap.Int("tables", rpt.Tables), zap.Strings("unmatched", rpt.Unmatched))

	entries := make([]string, 0, len(p.Figures)+len(p.Tables))
	for _, f := range p.Figures {
		entries = append(entries, f.Number+": "+f.Caption)
	}
	for _, tbl := range p.Tables {
		entries = append(entries, tbl.Number+": "+tbl.Caption)
	}
	sort.Sort(natural.StringSlice(entries))
	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	for _, entry := range entries {
		fmt.Fprintln(out, entry)
	}
	return nil
}

func insertFigure(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)
	store, p, err := openProject(cmd)
	if err != nil {
		return err
	}
	imgPath := cmd.Args().Get(1)
	if imgPath == "" {
		return errors.New("no IMAGE has been specified")
	}
	dir := cmd.String("assets")
	if dir == "" {
		dir = filepath.Join(filepath.Dir(store.Path), "uploads")
	}
	f, err := os.Open(imgPath)
	if err != nil {
		return fmt.Errorf("unable to open image: %w", err)
	}
	defer f.Close()

	fig, err := p.InsertFigure(&project.DirAssetStore{Dir: dir, BaseURL: "/uploads"}, filepath.Base(imgPath), f, cmd.String("caption"), cmd.Float("scale"))
	if err != nil {
		return err
	}
	if err := store.Save(p); err != nil {
		return err
	}
	e.Log.Info("Figure inserted", zap.String("number", fig.Number), zap.String("path", fig.Path))
	return nil
}

func citeProject(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)
	store, p, err := openProject(cmd)
	if err != nil {
		return err
	}
	if cmd.String("title") != "" {
		c, err := p.AddCitation(project.Citation{
			Author:    cmd.String("author"),
			Year:      cmd.String("year"),
			Title:     cmd.String("title"),
			Publisher: cmd.String("publisher"),
			URL:       cmd.String("url"),
			Type:      cmd.String("type"),
		})
		if err != nil {
			return err
		}
		if err := store.Save(p); err != nil {
			return err
		}
		e.Log.Info("Citation added", zap.Int("id", c.ID))
	}
	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	for i, entry := range p.Bibliography() {
		fmt.Fprintf(out, "[%d] %s\n", i+1, entry)
	}
	return nil
}

func checkDocument(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)
	src := cmd.Args().Get(0)
	if src == "" {
		return errors.New("no SOURCE has been specified")
	}
	p, err := loadDocument(src, e.Cfg)
	if err != nil {
		return err
	}
	if cmd.Bool("fix") {
		if n := p.FixAllSpacing(); n > 0 {
			if strings.EqualFold(filepath.Ext(src), ".json") {
				err = (&project.FileStore{Path: src}).Save(p)
			} else {
				err = os.WriteFile(src, []byte(p.Content), 0o644)
			}
			if err != nil {
				return fmt.Errorf("unable to save fixes: %w", err)
			}
			e.Log.Info("Spacing fixed", zap.String("file", src), zap.Int("count", n))
		}
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	issues := p.Lint()
	if cmd.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(issues)
	}
	for _, is := range issues {
		detail := is.Text
		if is.Pattern != "" {
			detail = is.Pattern + " in " + is.Text
		}
		fmt.Fprintf(out, "%d:%d  %-7s  %s  %s\n", is.Line+1, is.Column+1, is.Kind, detail, is.Context)
	}
	return nil
}

func abbreviationsProject(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)
	store, p, err := openProject(cmd)
	if err != nil {
		return err
	}
	changed := false
	if id := cmd.String("delete"); id != "" {
		if err := p.DeleteAbbreviation(id); err != nil {
			return err
		}
		changed = true
	}
	if name := cmd.String("import"); name != "" {
		f, err := os.Open(name)
		if err != nil {
			return fmt.Errorf("unable to open abbreviations: %w", err)
		}
		n, err := p.ImportAbbreviations(f, cmd.Bool("replace"))
		f.Close()
		if err != nil {
			return err
		}
		e.Log.Info("Abbreviations imported", zap.Int("count", n), zap.Bool("replace", cmd.Bool("replace")))
		changed = true
	}
	if cmd.String("abbr") != "" || cmd.String("full") != "" {
		a := project.Abbreviation{Abbreviation: cmd.String("abbr"), FullForm: cmd.String("full")}
		if cmd.Bool("symbol") {
			a.Type = project.TypeSymbol
		}
		if id := cmd.String("update"); id != "" {
			err = p.UpdateAbbreviation(id, a)
		} else {
			a, err = p.AddAbbreviation(a)
		}
		if err != nil {
			return err
		}
		changed = true
	}
	if changed {
		if err := store.Save(p); err != nil {
			return err
		}
	}

	if name := cmd.String("export"); name != "" {
		f, err := os.Create(name)
		if err != nil {
			return fmt.Errorf("unable to create export: %w", err)
		}
		defer f.Close()
		return p.ExportAbbreviations(f)
	}
	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	for _, a := range p.Abbreviations {
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", a.Abbreviation, a.FullForm, a.Type, a.ID)
	}
	return nil
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)
	if cmd.Args().Len() > 1 {
		e.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)
	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(e.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	out := os.Stdout
	if len(fname) > 0 {
		if out, err = os.Create(fname); err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	} else {
		fname = "STDOUT"
	}
	e.Log.Debug("Outputting configuration", zap.String("state", state), zap.String("file", fname))

	if _, err = out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
