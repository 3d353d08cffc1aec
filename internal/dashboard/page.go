package dashboard

import (
	"bytes"
	_ "embed"
	"html/template"

	"github.com/gofiber/fiber/v2"

	"brainzzz/internal/layout"
)

//go:embed assets/index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

func (s *Server) handleIndex(c *fiber.Ctx) error {
	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, map[string]any{
		"Title":   "Brainzzz Dashboard",
		"Layouts": layout.List(),
		"Default": layout.DefaultName,
	})
	if err != nil {
		return s.fail(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}
