package bff

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nephroinnovate/renal-console/internal/domain/hdsessions"
	"github.com/nephroinnovate/renal-console/internal/domain/institutions"
	"github.com/nephroinnovate/renal-console/internal/domain/labs"
	"github.com/nephroinnovate/renal-console/internal/domain/patients"
	"github.com/nephroinnovate/renal-console/internal/domain/users"
	"github.com/nephroinnovate/renal-console/pkg/pagination"
)

// listEnvelope is the console's own list shape, mirroring the normalized
// form the typed clients produce.
type listEnvelope struct {
	Items    interface{} `json:"items"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

func envelope(items interface{}, total int, p pagination.Params) listEnvelope {
	return listEnvelope{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize}
}

// -- Patients --

func (s *Server) listPatients(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := currentScope(c).patients.List(c.Request().Context(), c.QueryParam("q"), p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, envelope(items, total, p))
}

func (s *Server) getPatient(c echo.Context) error {
	patient, err := currentScope(c).patients.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, patient)
}

func (s *Server) createPatient(c echo.Context) error {
	var patient patients.Patient
	if err := c.Bind(&patient); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := currentScope(c).patients.Create(c.Request().Context(), &patient)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) updatePatient(c echo.Context) error {
	var patient patients.Patient
	if err := c.Bind(&patient); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	patient.ID = c.Param("id")
	updated, err := currentScope(c).patients.Update(c.Request().Context(), &patient)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deletePatient(c echo.Context) error {
	if err := currentScope(c).patients.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Institutions --

func (s *Server) listInstitutions(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := currentScope(c).institutions.List(c.Request().Context(), p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, envelope(items, total, p))
}

func (s *Server) getInstitution(c echo.Context) error {
	inst, err := currentScope(c).institutions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, inst)
}

func (s *Server) createInstitution(c echo.Context) error {
	var inst institutions.Institution
	if err := c.Bind(&inst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := currentScope(c).institutions.Create(c.Request().Context(), &inst)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) updateInstitution(c echo.Context) error {
	var inst institutions.Institution
	if err := c.Bind(&inst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inst.ID = c.Param("id")
	updated, err := currentScope(c).institutions.Update(c.Request().Context(), &inst)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteInstitution(c echo.Context) error {
	if err := currentScope(c).institutions.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Dialysis sessions --

func (s *Server) listHDSessions(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := currentScope(c).hdsessions.List(c.Request().Context(), c.QueryParam("patient"), p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, envelope(items, total, p))
}

func (s *Server) getHDSession(c echo.Context) error {
	log, err := currentScope(c).hdsessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, log)
}

func (s *Server) createHDSession(c echo.Context) error {
	var log hdsessions.SessionLog
	if err := c.Bind(&log); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if log.PatientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	created, err := currentScope(c).hdsessions.Create(c.Request().Context(), &log)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) updateHDSession(c echo.Context) error {
	var log hdsessions.SessionLog
	if err := c.Bind(&log); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	log.ID = c.Param("id")
	updated, err := currentScope(c).hdsessions.Update(c.Request().Context(), &log)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteHDSession(c echo.Context) error {
	if err := currentScope(c).hdsessions.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Lab results --

func (s *Server) listLabs(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := currentScope(c).labs.List(c.Request().Context(), c.QueryParam("patient"), c.QueryParam("code"), p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, envelope(items, total, p))
}

func (s *Server) getLab(c echo.Context) error {
	result, err := currentScope(c).labs.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) createLab(c echo.Context) error {
	var result labs.LabResult
	if err := c.Bind(&result); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := currentScope(c).labs.Create(c.Request().Context(), &result)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) deleteLab(c echo.Context) error {
	if err := currentScope(c).labs.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Users --

func (s *Server) listUsers(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := currentScope(c).users.List(c.Request().Context(), c.QueryParam("role"), p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, envelope(items, total, p))
}

func (s *Server) getUser(c echo.Context) error {
	u, err := currentScope(c).users.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (s *Server) updateUser(c echo.Context) error {
	var u users.User
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u.ID = c.Param("id")
	updated, err := currentScope(c).users.Update(c.Request().Context(), &u)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deactivateUser(c echo.Context) error {
	if err := currentScope(c).users.Deactivate(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
