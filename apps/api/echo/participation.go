package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/klasshero/backend/core/family"
	"github.com/klasshero/backend/core/participation"
	"github.com/klasshero/backend/core/user"
)

type participationApi struct {
	svc       participation.Service
	familySvc family.Service
	usrSvc    user.Service
}

func registerParticipationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc participation.Service,
	familySvc family.Service,
	usrSvc user.Service,
) {
	api := participationApi{svc: svc, familySvc: familySvc, usrSvc: usrSvc}

	sg := g.Group("/sessions", jwt, providerMiddleware())
	sg.GET("/:id/roster", api.roster)
	sg.POST("/:id/check-in", api.batchCheckIn)

	tg := g.Group("/participations", jwt)
	tg.POST("/:id/check-in", api.checkIn, providerMiddleware())
	tg.POST("/:id/check-out", api.checkOut, providerMiddleware())
	tg.POST("/:id/absent", api.markAbsent, providerMiddleware())

	g.GET("/children/:id/participations", api.queryByChild, jwt, parentMiddleware())
}

// BatchItemResponse is the per-child outcome of a batch check-in.
type BatchItemResponse struct {
	ChildID  string `json:"child_id"`
	RecordID string `json:"record_id,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

func newBatchItemResponse(res participation.BatchResult) BatchItemResponse {
	item := BatchItemResponse{ChildID: res.ChildID, RecordID: res.RecordID, Status: "ok"}
	if res.Err != nil {
		item.Status = "failed"
		item.Error = res.Err.Error()
	}
	return item
}

// Handlers

func (api *participationApi) roster(ctx echo.Context) error {
	entries, err := api.svc.Roster(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []participation.RosterEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *participationApi) batchCheckIn(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data BatchCheckInRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BatchCheckInRequest")
	}
	if len(data.ChildIDs) == 0 {
		return ctx.JSON(http.StatusOK, []BatchItemResponse{})
	}

	results := api.svc.BatchCheckIn(ctx.Request().Context(), actor, ctx.Param("id"), data.ChildIDs, data.Note)

	res := make([]BatchItemResponse, 0, len(results))
	var failed bool
	for _, r := range results {
		if r.Err != nil {
			failed = true
		}
		res = append(res, newBatchItemResponse(r))
	}

	code := http.StatusOK
	if failed {
		code = http.StatusMultiStatus
	}
	return ctx.JSON(code, res)
}

func (api *participationApi) checkIn(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data NoteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NoteRequest")
	}

	rec, err := api.svc.CheckIn(ctx.Request().Context(), actor, ctx.Param("id"), data.Note)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *participationApi) checkOut(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data NoteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NoteRequest")
	}

	rec, err := api.svc.CheckOut(ctx.Request().Context(), actor, ctx.Param("id"), data.Note)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *participationApi) markAbsent(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rec, err := api.svc.MarkAbsent(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *participationApi) queryByChild(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// the child must belong to this parent
	prof, err := api.familySvc.GetProfileByUserID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	child, err := api.familySvc.GetChild(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if child.ParentID != prof.ID {
		return family.ErrNotFound
	}

	records, err := api.svc.QueryByChild(ctx.Request().Context(), child.ID)
	if err != nil {
		return err
	}
	if records == nil {
		records = []participation.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

type (
	BatchCheckInRequest struct {
		ChildIDs []string `json:"child_ids"`
		Note     string   `json:"note"`
	}

	NoteRequest struct {
		Note string `json:"note"`
	}
)
