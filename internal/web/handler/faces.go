package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
	"github.com/saturnino-fabrica-de-software/facegate/internal/session"
	"github.com/saturnino-fabrica-de-software/facegate/internal/web/middleware"
)

// Flag pages. Edit and delete confirmations are scoped to the page that
// raised them; navigating to another page drops the other page's flags.
const (
	PageManage = "manage"
	PageDelete = "delete"
)

// GalleryService interface for the service
type GalleryService interface {
	Add(ctx context.Context, name, contact string, embedding []float64, image []byte) (*domain.Identity, error)
	Search(ctx context.Context, field repository.SearchField, substring string) ([]domain.Identity, error)
	Update(ctx context.Context, id int64, name, contact string) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Identity, error)
}

// Capturer grabs a single frame for enrollment.
type Capturer interface {
	CaptureOnce(ctx context.Context) ([]float64, []byte, error)
}

// FacesHandler serves the Manage Faces, Add Face and Delete Face pages.
type FacesHandler struct {
	gallery  GalleryService
	capturer Capturer
	logger   *slog.Logger
}

func NewFacesHandler(gallery GalleryService, capturer Capturer, logger *slog.Logger) *FacesHandler {
	return &FacesHandler{
		gallery:  gallery,
		capturer: capturer,
		logger:   logger,
	}
}

// faceRow is one gallery record prepared for a listing template.
type faceRow struct {
	ID             int64
	Name           string
	Contact        string
	HasImage       bool
	Editing        bool
	ConfirmPending bool
}

func searchField(c *fiber.Ctx) repository.SearchField {
	field := repository.SearchField(c.Query("by", string(repository.SearchByName)))
	if !field.Valid() {
		field = repository.SearchByName
	}
	return field
}

func listURL(base string, field repository.SearchField, query string, flash string) string {
	values := url.Values{}
	if field != repository.SearchByName {
		values.Set("by", string(field))
	}
	if query != "" {
		values.Set("q", query)
	}
	if flash != "" {
		values.Set("flash", flash)
	}
	if len(values) == 0 {
		return base
	}
	return base + "?" + values.Encode()
}

// Manage lists the gallery with substring search and inline editing.
func (h *FacesHandler) Manage(c *fiber.Ctx) error {
	sess := middleware.SessionFromCtx(c)
	sess.ClearPageFlags(PageDelete)

	field := searchField(c)
	query := c.Query("q")

	identities, err := h.gallery.Search(c.UserContext(), field, query)
	if err != nil {
		return err
	}

	rows := make([]faceRow, 0, len(identities))
	for _, identity := range identities {
		rows = append(rows, faceRow{
			ID:       identity.ID,
			Name:     identity.Name,
			Contact:  identity.Contact,
			HasImage: len(identity.Image) > 0,
			Editing:  sess.Flag(session.FlagKey{Page: PageManage, RecordID: identity.ID, Name: identity.Name}),
		})
	}

	data := fiber.Map{
		"Title": "Manage Faces",
		"Rows":  rows,
		"By":    string(field),
		"Query": query,
	}
	if c.Query("flash") == "updated" {
		data["Success"] = "Updated successfully"
	}
	return c.Render("manage", data)
}

// Edit raises the inline edit form for one record.
func (h *FacesHandler) Edit(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return domain.ErrBadRequest
	}

	sess := middleware.SessionFromCtx(c)
	sess.SetFlag(session.FlagKey{Page: PageManage, RecordID: int64(id), Name: c.FormValue("name")})

	return c.Redirect(listURL("/faces", searchFieldForm(c), c.FormValue("q"), ""), fiber.StatusSeeOther)
}

// Save persists an inline edit and closes the form.
func (h *FacesHandler) Save(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return domain.ErrBadRequest
	}

	newName := c.FormValue("name")
	newContact := c.FormValue("contact")

	if err := h.gallery.Update(c.UserContext(), int64(id), newName, newContact); err != nil {
		return err
	}

	sess := middleware.SessionFromCtx(c)
	sess.ClearFlag(session.FlagKey{Page: PageManage, RecordID: int64(id), Name: c.FormValue("original_name")})

	h.logger.Info("face updated", slog.Int("id", id))

	return c.Redirect(listURL("/faces", searchFieldForm(c), c.FormValue("q"), "updated"), fiber.StatusSeeOther)
}

// Image serves the stored enrollment photo.
func (h *FacesHandler) Image(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return domain.ErrBadRequest
	}

	identity, err := h.gallery.Get(c.UserContext(), int64(id))
	if err != nil {
		return err
	}
	if len(identity.Image) == 0 {
		return domain.ErrNotFound
	}

	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(identity.Image)
}

// DeletePage lists the gallery with two-step removal.
func (h *FacesHandler) DeletePage(c *fiber.Ctx) error {
	sess := middleware.SessionFromCtx(c)
	sess.ClearPageFlags(PageManage)

	field := searchField(c)
	query := c.Query("q")

	identities, err := h.gallery.Search(c.UserContext(), field, query)
	if err != nil {
		return err
	}

	rows := make([]faceRow, 0, len(identities))
	for _, identity := range identities {
		rows = append(rows, faceRow{
			ID:             identity.ID,
			Name:           identity.Name,
			Contact:        identity.Contact,
			HasImage:       len(identity.Image) > 0,
			ConfirmPending: sess.Flag(session.FlagKey{Page: PageDelete, RecordID: identity.ID, Name: identity.Name}),
		})
	}

	data := fiber.Map{
		"Title": "Delete Face",
		"Rows":  rows,
		"By":    string(field),
		"Query": query,
	}
	if c.Query("flash") == "deleted" {
		data["Success"] = "Deleted successfully"
	}
	return c.Render("delete", data)
}

// RequestDelete raises the confirmation for one record. Nothing is removed
// until the operator confirms.
func (h *FacesHandler) RequestDelete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return domain.ErrBadRequest
	}

	sess := middleware.SessionFromCtx(c)
	sess.SetFlag(session.FlagKey{Page: PageDelete, RecordID: int64(id), Name: c.FormValue("name")})

	return c.Redirect(listURL("/faces/delete", searchFieldForm(c), c.FormValue("q"), ""), fiber.StatusSeeOther)
}

// ConfirmDelete removes a record whose confirmation is pending. A confirm
// without a prior request is ignored.
func (h *FacesHandler) ConfirmDelete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return domain.ErrBadRequest
	}

	sess := middleware.SessionFromCtx(c)
	key := session.FlagKey{Page: PageDelete, RecordID: int64(id), Name: c.FormValue("name")}

	if !sess.Flag(key) {
		return c.Redirect(listURL("/faces/delete", searchFieldForm(c), c.FormValue("q"), ""), fiber.StatusSeeOther)
	}

	if err := h.gallery.Delete(c.UserContext(), int64(id)); err != nil {
		return err
	}
	sess.ClearFlag(key)

	h.logger.Info("face deleted", slog.Int("id", id))

	return c.Redirect(listURL("/faces/delete", searchFieldForm(c), c.FormValue("q"), "deleted"), fiber.StatusSeeOther)
}

// AddPage shows the capture button and, once a face is held, the enrollment
// form with the captured frame.
func (h *FacesHandler) AddPage(c *fiber.Ctx) error {
	sess := middleware.SessionFromCtx(c)
	sess.ClearPageFlags(PageManage)
	sess.ClearPageFlags(PageDelete)

	data := fiber.Map{
		"Title":      "Add Face",
		"HasCapture": sess.Capture() != nil,
	}
	switch c.Query("flash") {
	case "captured":
		data["Success"] = "Face captured successfully"
	case "added":
		data["Success"] = "Face added successfully"
	}
	return c.Render("add", data)
}

// Capture grabs one frame and holds the first detected face in the session.
// A fresh capture replaces any held one.
func (h *FacesHandler) Capture(c *fiber.Ctx) error {
	embedding, frameJPEG, err := h.capturer.CaptureOnce(c.UserContext())
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) && appErr.StatusCode < 500 {
			sess := middleware.SessionFromCtx(c)
			return c.Status(appErr.StatusCode).Render("add", fiber.Map{
				"Title":      "Add Face",
				"HasCapture": sess.Capture() != nil,
				"Error":      appErr.Message,
			})
		}
		return err
	}

	sess := middleware.SessionFromCtx(c)
	sess.SetCapture(&session.HeldCapture{Embedding: embedding, FrameJPEG: frameJPEG})

	return c.Redirect("/faces/add?flash=captured", fiber.StatusSeeOther)
}

// Preview serves the held captured frame.
func (h *FacesHandler) Preview(c *fiber.Ctx) error {
	sess := middleware.SessionFromCtx(c)
	capture := sess.Capture()
	if capture == nil {
		return domain.ErrNoCapture
	}

	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(capture.FrameJPEG)
}

// AddSave enrolls the held capture under the submitted name and contact.
func (h *FacesHandler) AddSave(c *fiber.Ctx) error {
	sess := middleware.SessionFromCtx(c)
	capture := sess.Capture()
	if capture == nil {
		return domain.ErrNoCapture
	}

	name := c.FormValue("name")
	contact := c.FormValue("contact")

	_, err := h.gallery.Add(c.UserContext(), name, contact, capture.Embedding, capture.FrameJPEG)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidationFailed):
			// Keep the capture so the operator can fix the form.
			return c.Status(fiber.StatusUnprocessableEntity).Render("add", fiber.Map{
				"Title":      "Add Face",
				"HasCapture": true,
				"Error":      "Name and mobile are required",
			})
		case errors.Is(err, domain.ErrDuplicateFace):
			sess.TakeCapture()
			return c.Status(fiber.StatusConflict).Render("add", fiber.Map{
				"Title": "Add Face",
				"Error": "This face is already in the gallery",
			})
		}
		return err
	}

	sess.TakeCapture()

	h.logger.Info("face enrolled", slog.String("name", name))

	return c.Redirect("/faces/add?flash=added", fiber.StatusSeeOther)
}

// searchFieldForm reads the search field from a posted form, so redirects
// land back on the same filtered listing.
func searchFieldForm(c *fiber.Ctx) repository.SearchField {
	field := repository.SearchField(c.FormValue("by", string(repository.SearchByName)))
	if !field.Valid() {
		field = repository.SearchByName
	}
	return field
}
