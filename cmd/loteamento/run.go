package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/config"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/logger"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/server"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/store"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/backend"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/editor"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/greenarea"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/project"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/schedule"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/validation"
)

const requestTimeout = 60 * time.Second

// setup loads the environment and installs the global logger.
func setup() (*config.Config, error) {
	cfg := config.Load(envFile)
	if _, err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

// loadAndValidate loads the project file and its inputs. The report carries
// every finding; callers decide whether an invalid one is fatal.
func loadAndValidate(projectPath string) (*project.Project, *project.Data, *validation.Report, error) {
	p, err := project.LoadProject(projectPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading project: %w", err)
	}
	report := validation.ValidateProject(p)
	if !report.Valid {
		return p, nil, report, nil
	}
	data, err := p.LoadData()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading inputs: %w", err)
	}
	report.Merge(validation.ValidateData(data))
	return p, data, report, nil
}

// newSession seeds an editor session with a project's geometry. Features the
// session rejects are logged and skipped; validation already reported them.
func newSession(p *project.Project, d *project.Data, frames schedule.FrameSource) *editor.Session {
	sess := editor.NewSession(editor.Options{
		Frames:             frames,
		PercentPermitido:   p.Parameters.PercentPermitido,
		DefaultStreetWidth: p.Parameters.DefaultStreetWidthM,
		ExtendStreetsM:     p.Parameters.ExtendStreetsM,
		AOI:                d.AOI,
	})
	log := logger.Get()
	for i, f := range d.Green {
		if _, err := sess.AddGreen(f.Geometry); err != nil {
			log.Warn("skipping green area", zap.Int("index", i), zap.Error(err))
		}
	}
	for i, f := range d.Cuts {
		if _, err := sess.AddCut(f.Geometry); err != nil {
			log.Warn("skipping cut", zap.Int("index", i), zap.Error(err))
		}
	}
	for i, f := range d.Streets {
		if _, err := sess.Streets().AddFeature(f); err != nil {
			log.Warn("skipping street", zap.Int("index", i), zap.Error(err))
		}
	}
	return sess
}

// openSession is the common prologue of the offline commands.
func openSession(projectPath string) (*project.Project, *editor.Session, *validation.Report, error) {
	if _, err := setup(); err != nil {
		return nil, nil, nil, err
	}
	p, data, report, err := loadAndValidate(projectPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if !report.Valid {
		printValidationReport(report)
		return nil, nil, nil, fmt.Errorf("project has validation errors")
	}
	return p, newSession(p, data, schedule.NewManualFrames()), report, nil
}

func runAreas(projectPath string) error {
	_, sess, report, err := openSession(projectPath)
	if err != nil {
		return err
	}
	defer sess.Close()

	totals := sess.Refresh()
	report.Merge(sess.Aggregator().Report())

	printTotals(totals)
	fmt.Println()
	printValidationReport(report)
	return nil
}

func runMask(projectPath string, raw bool) error {
	_, sess, _, err := openSession(projectPath)
	if err != nil {
		return err
	}
	defer sess.Close()

	var mask *geojson.Feature
	if raw {
		mask = sess.Streets().RawMask()
	} else {
		mask = sess.StreetMask()
	}
	if mask == nil {
		return errors.New("no street mask: the project has no usable streets")
	}
	return writeJSON(mask)
}

func runBuildable(projectPath string, percent float64) error {
	_, sess, _, err := openSession(projectPath)
	if err != nil {
		return err
	}
	defer sess.Close()

	if percent >= 0 {
		sess.SetPercentPermitido(percent)
	}
	f, err := generate(sess)
	if err != nil {
		return err
	}
	return writeJSON(f)
}

// generate runs buildable generation and renders a limit rejection as a
// report.
func generate(sess *editor.Session) (*geojson.Feature, error) {
	f, err := sess.GenerateBuildable()
	var limit *greenarea.LimitError
	if errors.As(err, &limit) {
		r := validation.NewReport()
		r.AddError(limit.Finding())
		printValidationReport(r)
		return nil, errors.New("buildable area rejected")
	}
	if err != nil {
		return nil, fmt.Errorf("generating buildable area: %w", err)
	}
	return f, nil
}

func runFetch(projectPath string, offline bool) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	p, err := project.LoadProject(projectPath)
	if err != nil {
		return fmt.Errorf("loading project: %w", err)
	}
	if p.RestricaoID == 0 {
		return errors.New("project has no restricao_id")
	}

	st, err := store.Open(cachePath(cfg, p))
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var body []byte
	if offline {
		entry, err := st.Get(ctx, p.RestricaoID)
		if err != nil {
			return fmt.Errorf("reading cache: %w", err)
		}
		logger.Get().Info("using cached bundle",
			zap.Int("restricao_id", p.RestricaoID),
			zap.Time("fetched_at", entry.FetchedAt))
		body = entry.Body
	} else {
		client := backend.New(cfg.APIURL, cfg.Token)
		body, err = client.RestrictionsRaw(ctx, p.RestricaoID)
		if err != nil {
			return err
		}
		if err := st.Put(ctx, p.RestricaoID, body); err != nil {
			return fmt.Errorf("caching bundle: %w", err)
		}
	}

	bundle, err := backend.DecodeBundle(body)
	if err != nil {
		return err
	}
	printBundleSummary(p.RestricaoID, bundle)
	return nil
}

func cachePath(cfg *config.Config, p *project.Project) string {
	if cfg.CachePath != "" {
		return cfg.CachePath
	}
	return filepath.Join(p.Dir, ".loteamento", "cache.db")
}

func runPreview(projectPath string, materialize bool, note string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	p, data, report, err := loadAndValidate(projectPath)
	if err != nil {
		return err
	}
	if !report.Valid {
		printValidationReport(report)
		return fmt.Errorf("project has validation errors")
	}
	if p.PlanoID == 0 {
		return errors.New("project has no plano_id")
	}

	sess := newSession(p, data, schedule.NewManualFrames())
	defer sess.Close()
	f, err := generate(sess)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	client := backend.New(cfg.APIURL, cfg.Token)
	geom := geojson.NewGeometry(f.Geometry)

	resp, err := client.Preview(ctx, p.PlanoID, backend.PreviewRequest{
		ALGeom: geom,
		Params: p.Parameters.Preview,
	})
	if err != nil {
		return err
	}
	printPreviewSummary(resp)

	if !materialize {
		return nil
	}
	out, err := client.Materialize(ctx, p.PlanoID, backend.MaterializeRequest{
		ALGeom: geom,
		Params: p.Parameters.Preview,
		Nota:   note,
	})
	if err != nil {
		return err
	}
	fmt.Printf("\nMaterialized as version %d\n", out.VersaoID)
	return nil
}

func runServe(projectPath string, port int) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Port
	}
	frames := schedule.TimerFrames{Interval: cfg.FrameInterval}

	name := "loteamento"
	var sess *editor.Session
	if projectPath != "" {
		p, data, report, err := loadAndValidate(projectPath)
		if err != nil {
			return err
		}
		if !report.Valid {
			printValidationReport(report)
			return fmt.Errorf("project has validation errors")
		}
		name = p.Name
		sess = newSession(p, data, frames)
	} else {
		sess = editor.NewSession(editor.Options{
			Frames:             frames,
			DefaultStreetWidth: project.DefaultStreetWidthM,
		})
	}
	defer sess.Close()
	sess.AttachLayers(editor.NewMemoryLayer(), editor.NewMemoryLayer())

	srv := server.New(sess, name, port)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
		logger.Get().Info("shutting down")
		sess.DetachLayers()
		return srv.Shutdown()
	}
}
