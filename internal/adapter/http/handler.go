package http

import (
	"mime"
	"strings"

	"cv-optimizer/internal/model"
	"cv-optimizer/internal/usecase"
	"cv-optimizer/pkg/ai"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handler struct {
	auth     *usecase.AuthService
	profile  *usecase.ProfileService
	settings *usecase.SettingsService
	cvs      *usecase.Manager
	appName  string
}

func NewHandler(auth *usecase.AuthService, profile *usecase.ProfileService, settings *usecase.SettingsService, cvs *usecase.Manager, appName string) *Handler {
	return &Handler{auth: auth, profile: profile, settings: settings, cvs: cvs, appName: appName}
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return NewAppError(fiber.StatusBadRequest, "Invalid request body", err)
	}
	return nil
}

func parseCVID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, NewAppError(fiber.StatusBadRequest, "Invalid CV id", err)
	}
	return id, nil
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy", "service": h.appName})
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Signup(c *fiber.Ctx) error {
	var req credentials
	if err := parseBody(c, &req); err != nil {
		return err
	}
	s, err := h.auth.Signup(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(s)
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req credentials
	if err := parseBody(c, &req); err != nil {
		return err
	}
	s, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(s)
}

// Logout is a no-op for stateless tokens; clients drop the token.
func (h *Handler) Logout(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) Me(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"email": currentEmail(c)})
}

func (h *Handler) GetProfile(c *fiber.Ctx) error {
	p, err := h.profile.Get(c.UserContext(), currentEmail(c))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (h *Handler) UpdatePersonalData(c *fiber.Ctx) error {
	var patch model.PersonalDataPatch
	if err := parseBody(c, &patch); err != nil {
		return err
	}
	if _, err := h.profile.UpdatePersonalData(c.UserContext(), currentEmail(c), patch); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) UpdateCVContent(c *fiber.Ctx) error {
	var req struct {
		CVContent map[string]any `json:"cv_content"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.profile.UpdateCVContent(c.UserContext(), currentEmail(c), req.CVContent); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) Preview(c *fiber.Ctx) error {
	html, err := h.profile.Preview(c.UserContext(), currentEmail(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"html": html})
}

func (h *Handler) GetSettings(c *fiber.Ctx) error {
	s, err := h.settings.Get(c.UserContext(), currentEmail(c))
	if err != nil {
		return err
	}
	return c.JSON(s)
}

func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	var req struct {
		Provider string  `json:"provider"`
		Model    string  `json:"model"`
		APIKey   *string `json:"api_key"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in := usecase.SettingsUpdate{Provider: req.Provider, Model: req.Model}
	if req.APIKey != nil {
		in.APIKey = *req.APIKey
	}
	if _, err := h.settings.Update(c.UserContext(), currentEmail(c), in); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) DeleteAPIKey(c *fiber.Ctx) error {
	if err := h.settings.DeleteAPIKey(c.UserContext(), currentEmail(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ListProviders(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"providers": ai.Catalog()})
}

func (h *Handler) ListModels(c *fiber.Ctx) error {
	p, ok := ai.LookupProvider(c.Params("id"))
	if !ok {
		return NewAppError(fiber.StatusNotFound, "Provider not found", nil)
	}
	return c.JSON(p.Models)
}

func (h *Handler) ListCVs(c *fiber.Ctx) error {
	cvs, err := h.cvs.List(c.UserContext(), currentEmail(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"cvs": cvs})
}

func (h *Handler) CreateCV(c *fiber.Ctx) error {
	var req struct {
		Description    string  `json:"description"`
		JobDescription string  `json:"job_description"`
		Link           *string `json:"link"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cv, err := h.cvs.Create(c.UserContext(), currentEmail(c), usecase.CreateCV{
		Description:    req.Description,
		JobDescription: req.JobDescription,
		Link:           req.Link,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(cv)
}

func (h *Handler) GetCV(c *fiber.Ctx) error {
	id, err := parseCVID(c)
	if err != nil {
		return err
	}
	cv, err := h.cvs.Get(c.UserContext(), id, currentEmail(c))
	if err != nil {
		return err
	}
	return c.JSON(cv)
}

func (h *Handler) DeleteCV(c *fiber.Ctx) error {
	id, err := parseCVID(c)
	if err != nil {
		return err
	}
	if err := h.cvs.Delete(c.UserContext(), id, currentEmail(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) CVStatus(c *fiber.Ctx) error {
	id, err := parseCVID(c)
	if err != nil {
		return err
	}
	s, err := h.cvs.Status(c.UserContext(), id, currentEmail(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": s.Status, "error_message": s.ErrorMessage})
}

func (h *Handler) CVPDF(c *fiber.Ctx) error {
	id, err := parseCVID(c)
	if err != nil {
		return err
	}
	pdf, name, err := h.cvs.PDF(c.UserContext(), id, currentEmail(c))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, contentDisposition(name))
	return c.Send(pdf)
}

func contentDisposition(filename string) string {
	filename = strings.Map(func(r rune) rune {
		if r < 0x20 || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, filename)
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return `attachment; filename="cv.pdf"`
}
