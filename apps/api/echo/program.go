package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/klasshero/backend/core/program"
	"github.com/klasshero/backend/core/user"
)

type programApi struct {
	svc    program.Service
	usrSvc user.Service
}

func registerProgramAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc program.Service, usrSvc user.Service) {
	api := programApi{svc: svc, usrSvc: usrSvc}

	pg := g.Group("/programs")

	// catalog browsing is open
	pg.GET("", api.query)
	pg.GET("/:id", api.retrieve)
	pg.GET("/:id/sessions", api.querySessions)

	// provider endpoints
	ag := pg.Group("", jwt, providerMiddleware())
	ag.POST("", api.create)
	ag.PUT("/:id", api.update)
	ag.POST("/:id/sessions", api.addSession)
}

// ProgramResponse decorates a Program with its derived registration status
// and remaining capacity.
type ProgramResponse struct {
	program.Program
	RegistrationStatus program.RegistrationStatus `json:"registration_status"`
	SpotsLeft          int                        `json:"spots_left"`
}

func newProgramResponse(prog program.Program) ProgramResponse {
	return ProgramResponse{
		Program:            prog,
		RegistrationStatus: prog.RegistrationStatusAt(time.Now()),
		SpotsLeft:          prog.SpotsLeft(),
	}
}

// ownProgram enforces that the program belongs to the authenticated provider;
// admins bypass the check.
func (api *programApi) ownProgram(ctx echo.Context) (program.Program, error) {
	prog, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return program.Program{}, err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return program.Program{}, errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin && prog.ProviderID != claims.Subject {
		return program.Program{}, program.ErrNotFound
	}
	return prog, nil
}

// Handlers

func (api *programApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data program.NewProgram
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProgram")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	prog, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating program")
	}
	return ctx.JSON(http.StatusCreated, newProgramResponse(prog))
}

func (api *programApi) query(ctx echo.Context) error {
	filter := new(program.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []ProgramResponse{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	programs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying programs")
	}

	res := make([]ProgramResponse, 0, len(programs))
	for _, prog := range programs {
		res = append(res, newProgramResponse(prog))
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *programApi) retrieve(ctx echo.Context) error {
	prog, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newProgramResponse(prog))
}

func (api *programApi) update(ctx echo.Context) error {
	prog, err := api.ownProgram(ctx)
	if err != nil {
		return err
	}

	var data program.UpdateProgram
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProgram")
	}

	prog, err = api.svc.Update(ctx.Request().Context(), prog.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating program")
	}
	return ctx.JSON(http.StatusOK, newProgramResponse(prog))
}

func (api *programApi) addSession(ctx echo.Context) error {
	prog, err := api.ownProgram(ctx)
	if err != nil {
		return err
	}

	var data program.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sess, err := api.svc.AddSession(ctx.Request().Context(), prog.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *programApi) querySessions(ctx echo.Context) error {
	// the program must exist
	if _, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}

	sessions, err := api.svc.QuerySessions(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []program.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}
