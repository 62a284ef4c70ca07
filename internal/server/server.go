// Package server exposes an editing session over HTTP for a map client.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/logger"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/internal/metrics"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/editor"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/greenarea"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/project"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/streets"
	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/validation"
)

// Server is the local editing server.
type Server struct {
	session *editor.Session
	name    string
	port    int
	app     *fiber.App
}

// New creates a server for an editing session.
func New(session *editor.Session, name string, port int) *Server {
	s := &Server{session: session, name: name, port: port}
	s.app = fiber.New(fiber.Config{AppName: "loteamento"})

	s.app.Use(recover.New())
	s.app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
	}))

	s.app.Get("/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := s.app.Group("/api")
	api.Get("/areas", s.handleAreas)
	api.Post("/areas/verde", s.handleAddGreen)
	api.Delete("/areas/verde/:uid", s.handleRemoveGreen)
	api.Post("/areas/corte", s.handleAddCut)
	api.Delete("/areas/corte", s.handleClearCuts)
	api.Delete("/areas/corte/:uid", s.handleRemoveCut)
	api.Get("/areas/loteavel", s.handleGetBuildable)
	api.Post("/areas/loteavel", s.handleGenerateBuildable)
	api.Get("/areas/report", s.handleReport)

	api.Get("/ruas", s.handleStreets)
	api.Post("/ruas", s.handleAddStreet)
	api.Get("/ruas/mask", s.handleMask)
	api.Patch("/ruas/:id", s.handleUpdateStreet)
	api.Delete("/ruas/:id", s.handleRemoveStreet)

	api.Post("/events", s.handleEvent)
	api.Get("/layers/:name", s.handleGetLayer)
	api.Post("/layers/:name", s.handleAddToLayer)
	api.Patch("/layers/:name/:id", s.handleUpdateLayerFeature)
	api.Delete("/layers/:name/:id", s.handleDeleteLayerFeature)

	return s
}

// App returns the fiber app, for tests.
func (s *Server) App() *fiber.App { return s.app }

// Start launches the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	logger.Get().Info("loteamento server starting",
		zap.String("addr", "http://localhost"+addr),
		zap.String("project", s.name))
	return s.app.Listen(addr)
}

// Shutdown stops the server and the session's pending work.
func (s *Server) Shutdown() error {
	s.session.Close()
	return s.app.Shutdown()
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "project": s.name})
}

// --- areas ---

func (s *Server) handleAreas(c fiber.Ctx) error {
	snap := s.session.Snapshot()
	return c.JSON(fiber.Map{
		"totals": s.session.Totals(),
		"live":   s.session.HasLiveLayer(),
		"verde":  collection(snap.Green),
		"corte":  collection(snap.Cuts),
	})
}

func (s *Server) handleAddGreen(c fiber.Ctx) error {
	g, _, err := parseGeometry(c.Body())
	if err != nil {
		return badRequest(c, err)
	}
	uid, err := s.session.AddGreen(g)
	if err != nil {
		return badRequest(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"uid": uid})
}

func (s *Server) handleRemoveGreen(c fiber.Ctx) error {
	uid, err := strconv.Atoi(c.Params("uid"))
	if err != nil {
		return badRequest(c, err)
	}
	if err := s.session.RemoveGreen(uid); err != nil {
		return notFound(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleAddCut(c fiber.Ctx) error {
	g, _, err := parseGeometry(c.Body())
	if err != nil {
		return badRequest(c, err)
	}
	uid, err := s.session.AddCut(g)
	if err != nil {
		return badRequest(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"uid": uid})
}

func (s *Server) handleClearCuts(c fiber.Ctx) error {
	s.session.ClearCuts()
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleRemoveCut(c fiber.Ctx) error {
	uid, err := strconv.Atoi(c.Params("uid"))
	if err != nil {
		return badRequest(c, err)
	}
	if err := s.session.RemoveCut(uid); err != nil {
		return notFound(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleGetBuildable(c fiber.Ctx) error {
	f := s.session.Aggregator().Buildable()
	if f == nil {
		return notFound(c, errors.New("no buildable area generated"))
	}
	return c.JSON(f)
}

func (s *Server) handleGenerateBuildable(c fiber.Ctx) error {
	f, err := s.session.GenerateBuildable()
	var limit *greenarea.LimitError
	switch {
	case errors.As(err, &limit):
		r := validation.NewReport()
		r.AddError(limit.Finding())
		return c.Status(fiber.StatusUnprocessableEntity).JSON(r)
	case errors.Is(err, greenarea.ErrNoGreenArea), errors.Is(err, greenarea.ErrEmptyBuildable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		return err
	}
	return c.JSON(f)
}

func (s *Server) handleReport(c fiber.Ctx) error {
	return c.JSON(s.session.Aggregator().Report())
}

// --- streets ---

func (s *Server) handleStreets(c fiber.Ctx) error {
	return c.JSON(s.session.Streets().Features())
}

func (s *Server) handleAddStreet(c fiber.Ctx) error {
	g, props, err := parseGeometry(c.Body())
	if err != nil {
		return badRequest(c, err)
	}
	f := geojson.NewFeature(g)
	f.Properties = props
	id, err := s.session.Streets().AddFeature(f)
	if err != nil {
		return badRequest(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (s *Server) handleUpdateStreet(c fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return badRequest(c, err)
	}
	var body struct {
		WidthM   *float64         `json:"width_m"`
		Geometry *geojson.Geometry `json:"geometry"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return badRequest(c, err)
	}
	var (
		g     orb.Geometry
		width float64
	)
	if body.Geometry != nil {
		if g = body.Geometry.Geometry(); g == nil {
			return badRequest(c, streets.ErrNotLine)
		}
	}
	if body.WidthM != nil {
		if width = *body.WidthM; !streets.ValidWidth(width) {
			return badRequest(c, streets.ErrInvalidWidth)
		}
	}
	if err := s.session.Streets().Update(id, g, width); err != nil {
		return streetError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleRemoveStreet(c fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return badRequest(c, err)
	}
	if err := s.session.RemoveStreet(id); err != nil {
		return streetError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleMask(c fiber.Ctx) error {
	m := s.session.StreetMask()
	if m == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(m)
}

// --- live layers ---

func (s *Server) handleEvent(c fiber.Ctx) error {
	var body struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return badRequest(c, err)
	}
	accepted := s.session.HandleEvent(body.Event)
	return c.JSON(fiber.Map{"accepted": accepted})
}

func (s *Server) handleGetLayer(c fiber.Ctx) error {
	l := s.session.Layer(c.Params("name"))
	if l == nil {
		return notFound(c, fmt.Errorf("no live layer %q", c.Params("name")))
	}
	return c.JSON(l.GetAll())
}

func (s *Server) handleAddToLayer(c fiber.Ctx) error {
	l := s.session.Layer(c.Params("name"))
	if l == nil {
		return notFound(c, fmt.Errorf("no live layer %q", c.Params("name")))
	}
	feats, err := project.ParseFeatures(c.Body())
	if err != nil {
		return badRequest(c, err)
	}
	fc := geojson.NewFeatureCollection()
	fc.Features = feats
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ids": l.Add(fc)})
}

type updatableLayer interface {
	Update(id string, g orb.Geometry) error
}

func (s *Server) handleUpdateLayerFeature(c fiber.Ctx) error {
	l, ok := s.session.Layer(c.Params("name")).(updatableLayer)
	if !ok {
		return notFound(c, fmt.Errorf("no editable layer %q", c.Params("name")))
	}
	g, _, err := parseGeometry(c.Body())
	if err != nil {
		return badRequest(c, err)
	}
	if err := l.Update(c.Params("id"), g); err != nil {
		return notFound(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleDeleteLayerFeature(c fiber.Ctx) error {
	l := s.session.Layer(c.Params("name"))
	if l == nil {
		return notFound(c, fmt.Errorf("no live layer %q", c.Params("name")))
	}
	id := c.Params("id")
	for _, f := range l.GetAll().Features {
		if fmt.Sprint(f.ID) == id {
			l.Delete([]string{id})
			return c.SendStatus(fiber.StatusNoContent)
		}
	}
	return notFound(c, editor.ErrFeatureMissing)
}

// --- helpers ---

// parseGeometry reads the first feature of a GeoJSON body.
func parseGeometry(body []byte) (orb.Geometry, geojson.Properties, error) {
	feats, err := project.ParseFeatures(body)
	if err != nil {
		return nil, nil, err
	}
	if len(feats) == 0 || feats[0].Geometry == nil {
		return nil, nil, errors.New("body has no geometry")
	}
	props := feats[0].Properties
	if props == nil {
		props = geojson.Properties{}
	}
	return feats[0].Geometry, props, nil
}

func collection(feats []*geojson.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = append(fc.Features, feats...)
	return fc
}

func badRequest(c fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

func notFound(c fiber.Ctx, err error) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
}

func streetError(c fiber.Ctx, err error) error {
	if errors.Is(err, streets.ErrUnknownStreet) {
		return notFound(c, err)
	}
	return badRequest(c, err)
}
