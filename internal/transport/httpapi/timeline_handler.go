package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"podoagenda/backend/internal/domain"
	"podoagenda/backend/internal/service/scheduling"
	"podoagenda/backend/internal/store"
	"podoagenda/backend/internal/timeline"
)

type timelineService interface {
	DayTimeline(ctx context.Context, locationID uuid.UUID, date time.Time) (timeline.Day, error)
	FindEligibleProfessionals(ctx context.Context, in scheduling.EligibleInput) (scheduling.EligibleResult, error)
	Drop(ctx context.Context, in scheduling.DropInput) (timeline.Outcome, error)
}

// TimelineHandler serves the drag-and-drop day view.
type TimelineHandler struct {
	svc timelineService
	log *slog.Logger
}

func NewTimelineHandler(svc timelineService, log *slog.Logger) *TimelineHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TimelineHandler{svc: svc, log: log.With(slog.String("component", "http.timeline"))}
}

func (h *TimelineHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/locations/:id/timeline", h.GetTimeline)
	g.GET("/slots/eligible", h.FindEligible)
	g.POST("/timeline/drops", h.Drop)
}

type professionalView struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	HomeID     uuid.UUID `json:"home_location_id"`
	IsExternal bool      `json:"is_external,omitempty"`
}

type windowView struct {
	Start      domain.TimeOfDay `json:"start"`
	End        domain.TimeOfDay `json:"end"`
	LocationID uuid.UUID        `json:"location_id"`
	Source     string           `json:"source"`
}

type blockView struct {
	ID            string    `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Kind          string    `json:"kind"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Top           float64   `json:"top"`
	Height        float64   `json:"height"`
	Overlap       bool      `json:"overlap,omitempty"`
	Status        string    `json:"status"`
}

type columnView struct {
	Professional professionalView `json:"professional"`
	Window       *windowView      `json:"window,omitempty"`
	HasOverlap   bool             `json:"has_overlap,omitempty"`
	Blocks       []blockView      `json:"blocks"`
}

type timelineView struct {
	Date       string       `json:"date"`
	LocationID uuid.UUID    `json:"location_id"`
	DayStart   string       `json:"day_start"`
	Scale      float64      `json:"scale"`
	Columns    []columnView `json:"columns"`
}

func toView(d timeline.Day) timelineView {
	out := timelineView{
		Date:       domain.DateKey(d.Date),
		LocationID: d.LocationID,
		DayStart:   d.DayStart.String(),
		Scale:      d.Scale,
		Columns:    make([]columnView, 0, len(d.Columns)),
	}
	for _, c := range d.Columns {
		col := columnView{
			Professional: professionalView{
				ID:         c.Professional.ID,
				Name:       c.Professional.FullName(),
				HomeID:     c.Professional.HomeLocationID,
				IsExternal: c.IsExternal,
			},
			HasOverlap: c.HasOverlap(),
			Blocks:     make([]blockView, 0, len(c.Blocks)),
		}
		if c.Availability != nil {
			col.Window = &windowView{Start: c.Availability.Start, End: c.Availability.End, LocationID: c.Availability.LocationID, Source: string(c.Availability.Source)}
		}
		for _, b := range c.Blocks {
			col.Blocks = append(col.Blocks, blockView{
				ID:            b.ID,
				AppointmentID: b.AppointmentID,
				Kind:          string(b.Kind),
				Start:         b.Start,
				End:           b.End,
				Top:           b.Top,
				Height:        b.Height,
				Overlap:       b.Overlap,
				Status:        string(b.Status),
			})
		}
		out.Columns = append(out.Columns, col)
	}
	return out
}

// GetTimeline handles GET /locations/:id/timeline?date=2006-01-02.
func (h *TimelineHandler) GetTimeline(c echo.Context) error {
	locationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "location id must be a UUID")
	}
	date, err := scheduling.ParseDate("date", c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	day, err := h.svc.DayTimeline(c.Request().Context(), locationID, date)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, toView(day))
}

type decisionView struct {
	ProfessionalID uuid.UUID `json:"professional_id"`
	Name           string    `json:"name"`
	Reason         string    `json:"reason"`
	Conflicts      []string  `json:"conflicts,omitempty"`
}

type eligibleView struct {
	Eligible  []uuid.UUID    `json:"eligible"`
	Decisions []decisionView `json:"decisions"`
}

func toEligibleView(res scheduling.EligibleResult) eligibleView {
	out := eligibleView{Eligible: make([]uuid.UUID, 0, len(res.Professionals)), Decisions: make([]decisionView, 0, len(res.Decisions))}
	for _, p := range res.Professionals {
		out.Eligible = append(out.Eligible, p.ID)
	}
	for _, d := range res.Decisions {
		out.Decisions = append(out.Decisions, decisionView{
			ProfessionalID: d.Professional.ID,
			Name:           d.Professional.FullName(),
			Reason:         string(d.Reason),
			Conflicts:      d.Conflicts,
		})
	}
	return out
}

// FindEligible handles GET /slots/eligible?date=&start=&service_id=&location_id=.
func (h *TimelineHandler) FindEligible(c echo.Context) error {
	date, err := scheduling.ParseDate("date", c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	serviceID, err := uuid.Parse(c.QueryParam("service_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "service_id must be a UUID")
	}
	in := scheduling.EligibleInput{Date: date, Start: c.QueryParam("start"), ServiceID: serviceID}
	if raw := strings.TrimSpace(c.QueryParam("location_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "location_id must be a UUID")
		}
		in.LocationID = &id
	}

	res, err := h.svc.FindEligibleProfessionals(c.Request().Context(), in)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, toEligibleView(res))
}

type dropRequest struct {
	AppointmentID uuid.UUID            `json:"appointment_id"`
	Origin        timeline.Position    `json:"origin"`
	Target        *timeline.DropTarget `json:"target"`
}

type dropResponse struct {
	State       timeline.DragState  `json:"state"`
	Reverted    bool                `json:"reverted"`
	Position    timeline.Position   `json:"position"`
	Appointment *domain.Appointment `json:"appointment,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Drop handles POST /timeline/drops. A refused commit still answers with the
// position to redraw the block at.
func (h *TimelineHandler) Drop(c echo.Context) error {
	var req dropRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.AppointmentID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "appointment_id is required")
	}

	out, err := h.svc.Drop(c.Request().Context(), scheduling.DropInput{
		AppointmentID: req.AppointmentID,
		Origin:        req.Origin,
		Target:        req.Target,
	})
	resp := dropResponse{State: out.Dropped, Reverted: out.Reverted, Position: out.Position, Appointment: out.Appointment}
	if err != nil {
		if !out.Reverted {
			return h.httpError(err)
		}
		code := statusCode(err)
		if code == http.StatusInternalServerError {
			return h.httpError(err)
		}
		resp.Error = err.Error()
		return c.JSON(code, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func statusCode(err error) int {
	var (
		vErr     *scheduling.ValidationError
		schedErr *domain.InvalidScheduleError
		svcErr   *domain.InvalidServiceError
		winErr   *domain.OutOfWindowError
		confErr  *domain.ConflictError
		staleErr *domain.StaleCommitError
	)
	switch {
	case errors.As(err, &vErr), errors.As(err, &schedErr), errors.As(err, &svcErr):
		return http.StatusBadRequest
	case errors.As(err, &staleErr), errors.As(err, &confErr):
		return http.StatusConflict
	case errors.As(err, &winErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, timeline.ErrReassignNotAllowed), errors.Is(err, timeline.ErrNothingToCommit), errors.Is(err, timeline.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *TimelineHandler) httpError(err error) error {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		h.log.Error("request failed", slog.Any("err", err))
		return echo.NewHTTPError(code, "internal error")
	}
	return echo.NewHTTPError(code, err.Error())
}
