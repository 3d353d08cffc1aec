package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"brainzzz/internal/backend"
	"brainzzz/internal/layout"
	"brainzzz/internal/model"
	"brainzzz/internal/snapshot"
	"brainzzz/internal/stats"
)

func (s *Server) routes() {
	app := s.app

	app.Get("/", s.handleIndex)
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/api/status", s.handleStatus)
	app.Get("/api/population", s.handlePopulation)
	app.Get("/api/population/:id", s.handleBrain)
	app.Get("/api/stats", s.handleStats)
	app.Post("/api/evolve", s.handleEvolve)
	app.Post("/api/evaluate", s.handleEvaluate)

	app.Get("/api/view/:id", s.handleView)
	app.Post("/api/view/:id/tap", s.handleTap)
	app.Post("/api/view/:id/resize", s.handleResize)
	app.Get("/api/export/:id.:ext", s.handleExport)

	app.Get("/api/tasks", s.handleTaskList)
	app.Post("/api/tasks", s.handleTaskAdd)
	app.Put("/api/tasks/:id", s.handleTaskUpdate)
	app.Delete("/api/tasks/:id", s.handleTaskDelete)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(s.handleSocket))
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	status, err := s.client.Status(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(status)
}

func (s *Server) handlePopulation(c *fiber.Ctx) error {
	summaries, err := s.client.Population(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"population": summaries})
}

func (s *Server) handleBrain(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "brain id must be an integer")
	}
	snap, err := s.loader.Load(c.UserContext(), id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"snapshot":     snap,
		"stats":        stats.Derive(snap),
		"all_disabled": snapshot.AllDisabled(snap),
	})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	ps, err := s.client.Stats(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(ps)
}

func (s *Server) handleEvolve(c *fiber.Ctx) error {
	var req model.EvolveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "evolve body: "+err.Error())
	}
	ack, err := s.client.Evolve(c.UserContext(), req)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(ack)
}

func (s *Server) handleEvaluate(c *fiber.Ctx) error {
	ack, err := s.client.Evaluate(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(ack)
}

func (s *Server) handleView(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "brain id must be an integer")
	}
	params, err := parseStateParams(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	view, err := s.views.acquire(c.UserContext(), id, params)
	if err != nil {
		return s.fail(c, err)
	}
	mdl, err := view.Model()
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(mdl)
}

func (s *Server) handleTap(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "brain id must be an integer")
	}
	var body struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "tap body: "+err.Error())
	}
	view, err := s.views.current(id)
	if err != nil {
		return s.fail(c, err)
	}
	sel, err := view.Tap(body.X, body.Y)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"selection": sel})
}

func (s *Server) handleResize(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "brain id must be an integer")
	}
	var body struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "resize body: "+err.Error())
	}
	view, err := s.views.current(id)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.views.resize(body.Width, body.Height); err != nil {
		return s.fail(c, err)
	}
	view.Flush()
	return c.JSON(fiber.Map{"state": view.State()})
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "brain id must be an integer")
	}
	ext := c.Params("ext")
	params, err := parseStateParams(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	view, err := s.views.acquire(c.UserContext(), id, params)
	if err != nil {
		return s.fail(c, err)
	}

	var buf bytes.Buffer
	var mime string
	switch ext {
	case "png":
		mime = "image/png"
		err = view.ExportPNG(&buf)
	case "svg":
		mime = "image/svg+xml"
		err = view.ExportSVG(&buf)
	case "json":
		mime = fiber.MIMEApplicationJSON
		err = view.ExportJSON(&buf)
	default:
		return badRequest(c, fmt.Sprintf("unsupported export format %q", ext))
	}
	if err != nil {
		return s.fail(c, err)
	}

	c.Set(fiber.HeaderContentType, mime)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", view.Filename(ext)))
	return c.Send(buf.Bytes())
}

func (s *Server) handleTaskList(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"tasks": s.tasks.List()})
}

func (s *Server) handleTaskAdd(c *fiber.Ctx) error {
	var t model.TaskInfo
	if err := c.BodyParser(&t); err != nil {
		return badRequest(c, "task body: "+err.Error())
	}
	added, err := s.tasks.Add(t)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(added)
}

func (s *Server) handleTaskUpdate(c *fiber.Ctx) error {
	var t model.TaskInfo
	if err := c.BodyParser(&t); err != nil {
		return badRequest(c, "task body: "+err.Error())
	}
	updated, err := s.tasks.Update(c.Params("id"), t)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(updated)
}

func (s *Server) handleTaskDelete(c *fiber.Ctx) error {
	if err := s.tasks.Delete(c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// parseStateParams reads the view-state query knobs. Absent knobs stay nil
// so the live view keeps its current state.
func parseStateParams(c *fiber.Ctx) (stateParams, error) {
	var p stateParams
	if v := c.Query("layout"); v != "" {
		p.Layout = &v
	}
	if v := c.Query("weights"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, fmt.Errorf("weights: %w", err)
		}
		p.ShowWeights = &b
	}
	if v := c.Query("disabled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, fmt.Errorf("disabled: %w", err)
		}
		p.ShowDisabled = &b
	}
	if v := c.Query("scale"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, fmt.Errorf("scale: %w", err)
		}
		p.NodeScale = &f
	}
	return p, nil
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// fail maps an error to a response status: client mistakes and upstream
// failures get distinct codes so the UI can phrase them.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	var vErr *model.ValidationError
	var apiErr *backend.APIError
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, layout.ErrLayoutNotFound), errors.Is(err, backend.ErrInvalidArgument):
		status = fiber.StatusBadRequest
	case errors.Is(err, backend.ErrNotFound), errors.Is(err, ErrTaskNotFound):
		status = fiber.StatusNotFound
	case errors.As(err, &vErr):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, snapshot.ErrStale), errors.Is(err, ErrTaskExists), errors.Is(err, errNoView):
		status = fiber.StatusConflict
	case errors.As(err, &apiErr):
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
