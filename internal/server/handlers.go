package server

import (
	"net/http"
	"strconv"

	"github.com/agrosync/fieldops/internal/apperr"
	"github.com/agrosync/fieldops/internal/geo"
	"github.com/agrosync/fieldops/pkg/core"
	"github.com/labstack/echo/v4"
)

type createSessionRequest struct {
	Name string `json:"name"`
}

type updateSessionRequest struct {
	Name  *string `json:"session_name"`
	Notes *string `json:"notes"`
}

type placeRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type completeResponse struct {
	Completed *core.Session `json:"completed"`
	Active    *core.Session `json:"active"`
}

type activeMarkersResponse struct {
	Session *core.Session `json:"session"`
	Markers []core.Marker `json:"markers"`
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperr.Invalid("body", "malformed JSON")
	}
	return nil
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSessions(c echo.Context) error {
	list, err := s.deps.Sessions.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleCreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	session, err := s.deps.Sessions.Create(c.Request().Context(), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, session)
}

func (s *Server) handleActiveSession(c echo.Context) error {
	session, err := s.deps.Sessions.Active(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

func (s *Server) handleUpdateSession(c echo.Context) error {
	var req updateSessionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	upd := core.SessionUpdate{Name: req.Name, Notes: req.Notes}
	if upd.Empty() {
		return apperr.Invalid("body", "nothing to update")
	}
	session, err := s.deps.Sessions.Update(c.Request().Context(), c.Param("id"), upd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

func (s *Server) handleCompleteSession(c echo.Context) error {
	completed, next, err := s.deps.Placement.Rollover(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, completeResponse{Completed: completed, Active: next})
}

func (s *Server) handleDeleteSession(c echo.Context) error {
	if err := s.deps.Sessions.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListMarkers(c echo.Context) error {
	list, err := s.deps.Markers.List(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleAddMarker(c echo.Context) error {
	var in core.MarkerInput
	if err := bind(c, &in); err != nil {
		return err
	}
	if err := geo.Validate(in.Position.Lat(), in.Position.Lng()); err != nil {
		return apperr.Invalid("position", err.Error())
	}
	m, err := s.deps.Markers.Add(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

func (s *Server) handleClearMarkers(c echo.Context) error {
	if err := s.deps.Markers.Clear(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleActiveMarkers(c echo.Context) error {
	session, list, err := s.deps.Placement.ActiveMarkers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, activeMarkersResponse{Session: session, Markers: list})
}

func (s *Server) handlePlaceMarker(c echo.Context) error {
	var req placeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Latitude == nil || req.Longitude == nil {
		return apperr.Invalid("position", "latitude and longitude are required")
	}
	if err := geo.Validate(*req.Latitude, *req.Longitude); err != nil {
		return apperr.Invalid("position", err.Error())
	}
	m, err := s.deps.Placement.Place(c.Request().Context(), *req.Latitude, *req.Longitude)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

func (s *Server) handleDeleteMarker(c echo.Context) error {
	if err := s.deps.Markers.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleHistory(c echo.Context) error {
	list, err := s.deps.History.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleGetPreferences(c echo.Context) error {
	p, err := s.deps.Profile.GetPreferences(c.Request().Context())
	if err != nil {
		return err
	}
	if p == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleSavePreferences(c echo.Context) error {
	var p core.Preferences
	if err := bind(c, &p); err != nil {
		return err
	}
	saved, err := s.deps.Profile.SavePreferences(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, saved)
}

func (s *Server) handleListWeather(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return apperr.Invalid("limit", "must be a non-negative integer")
		}
		limit = n
	}
	list, err := s.deps.Profile.ListWeather(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleSaveWeather(c echo.Context) error {
	var w core.WeatherRecord
	if err := bind(c, &w); err != nil {
		return err
	}
	saved, err := s.deps.Profile.SaveWeather(c.Request().Context(), w)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, saved)
}

func (s *Server) handleListAnalyses(c echo.Context) error {
	list, err := s.deps.Profile.ListAnalyses(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleSaveAnalysis(c echo.Context) error {
	var a core.ImageAnalysis
	if err := bind(c, &a); err != nil {
		return err
	}
	saved, err := s.deps.Profile.SaveAnalysis(c.Request().Context(), a)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, saved)
}
